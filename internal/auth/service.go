// Package auth はアカウント登録、パスワード認証、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/jobboard/internal/metrics"
	"github.com/hitoshi/jobboard/internal/model"
	"github.com/hitoshi/jobboard/internal/repository"
	"github.com/hitoshi/jobboard/internal/validate"
)

// RegisterInput は登録フォームの入力。
// ロールによって必須項目が異なる。
type RegisterInput struct {
	Role         model.PrincipalKind `form:"role" validate:"oneof=user agency"`
	Username     string              `form:"username" validate:"required,max=20"`
	Email        string              `form:"email" validate:"required,email,max=120"`
	Password     string              `form:"password" validate:"required,min=8,max=72"`
	Phone        string              `form:"phone" validate:"max=20"`
	FirstName    string              `form:"firstname" validate:"required_if=Role user,max=20"`
	LastName     string              `form:"lastname" validate:"required_if=Role user,max=20"`
	CompanyName  string              `form:"company_name" validate:"required_if=Role agency,max=100"`
	TradeLicense string              `form:"trade_license" validate:"required_if=Role agency,max=100"`
}

// ProfileInput はプロフィール編集フォームの入力。
type ProfileInput struct {
	FirstName string `form:"firstname" validate:"required,max=20"`
	LastName  string `form:"lastname" validate:"required,max=20"`
	Phone     string `form:"phone" validate:"max=20"`
	Email     string `form:"email" validate:"required,email,max=120"`
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	accounts    repository.AccountRepository
	userRepo    repository.UserRepository
	agencyRepo  repository.AgencyRepository
	sessionRepo repository.SessionRepository
	metrics     metrics.MetricsCollector
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	accounts repository.AccountRepository,
	userRepo repository.UserRepository,
	agencyRepo repository.AgencyRepository,
	sessionRepo repository.SessionRepository,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		accounts:    accounts,
		userRepo:    userRepo,
		agencyRepo:  agencyRepo,
		sessionRepo: sessionRepo,
		metrics:     collector,
		config:      config,
	}
}

// CurrentPrincipal はセッションIDから現在の主体を解決する。
// セッションが無効な場合はnil, nilを返す（未ログイン扱い）。
// セッションにはユーザー名のみ保持するため、users、agenciesの順に検索する。
func (s *Service) CurrentPrincipal(ctx context.Context, sessionID string) (*model.Principal, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	return s.principalByUsername(ctx, session.Username)
}

func (s *Service) principalByUsername(ctx context.Context, username string) (*model.Principal, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user != nil {
		return model.PrincipalFromUser(user), nil
	}

	agency, err := s.agencyRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find agency: %w", err)
	}
	if agency != nil {
		return model.PrincipalFromAgency(agency), nil
	}
	return nil, nil
}

// Register はユーザーまたはエージェンシーを登録する。
// エージェンシーは承認待ちで作成され、管理者に通知が送られる。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.Principal, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if in.Role == model.PrincipalAgency {
		agency := &model.Agency{
			Username:     in.Username,
			PasswordHash: hash,
			Email:        in.Email,
			Phone:        in.Phone,
			CompanyName:  in.CompanyName,
			TradeLicense: in.TradeLicense,
		}
		msg := fmt.Sprintf("New agency registration from %s is awaiting your approval.", in.Username)
		if err := s.accounts.CreateAgency(ctx, agency, msg); err != nil {
			return nil, mapDuplicate(err, "failed to create agency")
		}
		slog.Info("agency registered",
			slog.Int64("agency_id", agency.ID),
			slog.String("username", agency.Username),
		)
		return model.PrincipalFromAgency(agency), nil
	}

	user := &model.User{
		Username:     in.Username,
		PasswordHash: hash,
		Email:        in.Email,
		Phone:        in.Phone,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
	}
	if err := s.accounts.CreateUser(ctx, user); err != nil {
		return nil, mapDuplicate(err, "failed to create user")
	}
	slog.Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return model.PrincipalFromUser(user), nil
}

// Login はユーザー名とパスワードで認証し、セッションを発行する。
// usersを先に検索し、見つからなければagenciesを検索する。
// 承認待ちのエージェンシーはパスワードが正しくてもログインできない。
func (s *Service) Login(ctx context.Context, username, password string) (*model.Session, *model.Principal, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		s.metrics.RecordLogin(metrics.LoginInvalid)
		return nil, nil, model.NewInvalidCredentialsError()
	}

	var principal *model.Principal

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user != nil && CheckPasswordHash(password, user.PasswordHash) {
		principal = model.PrincipalFromUser(user)
	}

	if principal == nil && user == nil {
		agency, err := s.agencyRepo.FindByUsername(ctx, username)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to find agency: %w", err)
		}
		if agency != nil && CheckPasswordHash(password, agency.PasswordHash) {
			if agency.Status != model.StatusVerified {
				s.metrics.RecordLogin(metrics.LoginPending)
				return nil, nil, model.NewAgencyPendingError()
			}
			principal = model.PrincipalFromAgency(agency)
		}
	}

	if principal == nil {
		s.metrics.RecordLogin(metrics.LoginInvalid)
		return nil, nil, model.NewInvalidCredentialsError()
	}

	session, err := s.createSession(ctx, principal.Username)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.metrics.RecordLogin(metrics.LoginSuccess)
	slog.Info("logged in",
		slog.String("username", principal.Username),
		slog.String("kind", string(principal.Kind)),
	)
	return session, principal, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// UpdateProfile は一般ユーザー（管理者を含む）のプロフィールを更新する。
// エージェンシーはプロフィール編集の対象外。
func (s *Service) UpdateProfile(ctx context.Context, p *model.Principal, in ProfileInput) (*model.Principal, error) {
	if p == nil {
		return nil, model.NewUnauthenticatedError()
	}
	if p.Kind != model.PrincipalUser {
		return nil, model.NewForbiddenError("プロフィール編集は一般ユーザーのみ利用できます")
	}
	in.Email = strings.TrimSpace(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	user.FirstName = in.FirstName
	user.LastName = in.LastName
	user.Phone = in.Phone
	user.Email = in.Email
	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, mapDuplicate(err, "failed to update profile")
	}
	return model.PrincipalFromUser(user), nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, username string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        sessionID,
		Username:  username,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// mapDuplicate はリポジトリの重複エラーをDUPLICATE_ACCOUNTに変換する。
func mapDuplicate(err error, msg string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return model.NewDuplicateAccountError()
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

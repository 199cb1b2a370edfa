// Package model はドメインモデルを定義する。
package model

import "time"

// PrincipalKind は認証主体の種別を表す。
type PrincipalKind string

const (
	// PrincipalUser は一般ユーザー（求職者・管理者）を表す。
	PrincipalUser PrincipalKind = "user"
	// PrincipalAgency は求人を掲載するエージェンシーを表す。
	PrincipalAgency PrincipalKind = "agency"
)

// AccountStatus はアカウントの承認状態を表す。
type AccountStatus string

const (
	// StatusPending は管理者の承認待ち状態。エージェンシーの初期状態。
	StatusPending AccountStatus = "pending"
	// StatusVerified は承認済み状態。一般ユーザーは常にこの状態。
	StatusVerified AccountStatus = "verified"
)

// User は一般ユーザーを表す。IsAdminがtrueの行が管理者。
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Email        string
	Phone        string
	FirstName    string
	LastName     string
	IsAdmin      bool
	Status       AccountStatus
	CreatedAt    time.Time
}

// Agency は求人掲載者（人材エージェンシー）を表す。
type Agency struct {
	ID           int64
	Username     string
	PasswordHash string
	Email        string
	Phone        string
	CompanyName  string
	TradeLicense string
	Status       AccountStatus
	CreatedAt    time.Time
}

// Principal はリクエストごとに解決される認証済み主体。
// users / agencies の2テーブルを1つの型で扱い、権限判定をここに集約する。
type Principal struct {
	Kind        PrincipalKind
	ID          int64
	Username    string
	Email       string
	Phone       string
	DisplayName string
	IsAdmin     bool
	Status      AccountStatus

	// 一般ユーザーのみ
	FirstName string
	LastName  string

	// エージェンシーのみ
	CompanyName  string
	TradeLicense string
}

// IsAgency はエージェンシーかどうかを返す。
func (p *Principal) IsAgency() bool {
	return p != nil && p.Kind == PrincipalAgency
}

// IsAdministrator は管理者かどうかを返す。
func (p *Principal) IsAdministrator() bool {
	return p != nil && p.Kind == PrincipalUser && p.IsAdmin
}

// IsJobSeeker は管理者ではない一般ユーザーかどうかを返す。
// 応募・ブックマークはこの主体にのみ許可される。
func (p *Principal) IsJobSeeker() bool {
	return p != nil && p.Kind == PrincipalUser && !p.IsAdmin
}

// Owner は通知やサクセスストーリーの所有者参照を返す。
func (p *Principal) Owner() OwnerRef {
	if p.Kind == PrincipalAgency {
		return AgencyOwner(p.ID)
	}
	return UserOwner(p.ID)
}

// PrincipalFromUser はUserからPrincipalを生成する。
func PrincipalFromUser(u *User) *Principal {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if name == "" {
		name = u.Username
	}
	return &Principal{
		Kind:        PrincipalUser,
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Phone:       u.Phone,
		DisplayName: name,
		IsAdmin:     u.IsAdmin,
		Status:      u.Status,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
	}
}

// PrincipalFromAgency はAgencyからPrincipalを生成する。
func PrincipalFromAgency(a *Agency) *Principal {
	return &Principal{
		Kind:         PrincipalAgency,
		ID:           a.ID,
		Username:     a.Username,
		Email:        a.Email,
		Phone:        a.Phone,
		DisplayName:  a.CompanyName,
		Status:       a.Status,
		CompanyName:  a.CompanyName,
		TradeLicense: a.TradeLicense,
	}
}

// Session はログインセッションを表す。
// Cookieには推測不能なIDのみを保持し、ユーザー名はサーバー側に置く。
type Session struct {
	ID        string
	Username  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// RequireAgency はエージェンシー以外の主体をエラーにする。
func RequireAgency(p *Principal) error {
	if p == nil {
		return NewUnauthenticatedError()
	}
	if !p.IsAgency() {
		return NewForbiddenError("エージェンシーのみ利用できます")
	}
	return nil
}

// RequireJobSeeker は求職者以外の主体をエラーにする。
func RequireJobSeeker(p *Principal) error {
	if p == nil {
		return NewUnauthenticatedError()
	}
	if !p.IsJobSeeker() {
		return NewForbiddenError("求職者のみ利用できます")
	}
	return nil
}

// RequireAdmin は管理者以外の主体をエラーにする。
func RequireAdmin(p *Principal) error {
	if p == nil {
		return NewUnauthenticatedError()
	}
	if !p.IsAdministrator() {
		return NewForbiddenError("管理者のみ利用できます")
	}
	return nil
}

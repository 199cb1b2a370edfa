package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hitoshi/jobboard/internal/admin"
	"github.com/hitoshi/jobboard/internal/application"
	"github.com/hitoshi/jobboard/internal/auth"
	"github.com/hitoshi/jobboard/internal/job"
	"github.com/hitoshi/jobboard/internal/middleware"
	"github.com/hitoshi/jobboard/internal/model"
	"github.com/hitoshi/jobboard/internal/story"
)

// --- モック定義 ---

type mockAuthService struct {
	registerFn      func(ctx context.Context, in auth.RegisterInput) (*model.Principal, error)
	loginFn         func(ctx context.Context, username, password string) (*model.Session, *model.Principal, error)
	logoutFn        func(ctx context.Context, sessionID string) error
	updateProfileFn func(ctx context.Context, p *model.Principal, in auth.ProfileInput) (*model.Principal, error)
}

func (m *mockAuthService) Register(ctx context.Context, in auth.RegisterInput) (*model.Principal, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, in)
	}
	return &model.Principal{Kind: in.Role, Username: in.Username}, nil
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*model.Session, *model.Principal, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, username, password)
	}
	return nil, nil, model.NewInvalidCredentialsError()
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) UpdateProfile(ctx context.Context, p *model.Principal, in auth.ProfileInput) (*model.Principal, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, p, in)
	}
	return p, nil
}

type mockJobService struct {
	listFn      func(ctx context.Context, p *model.Principal) ([]model.JobListing, error)
	detailFn    func(ctx context.Context, id int64) (*model.JobListing, error)
	createFn    func(ctx context.Context, p *model.Principal, in job.Input) (*model.Job, error)
	findOwnedFn func(ctx context.Context, p *model.Principal, id int64) (*model.Job, error)
	updateFn    func(ctx context.Context, p *model.Principal, id int64, in job.Input) (*model.Job, error)
	deleteFn    func(ctx context.Context, p *model.Principal, id int64) error
	dashboardFn func(ctx context.Context, p *model.Principal) ([]model.AgencyJobSummary, error)
}

func (m *mockJobService) List(ctx context.Context, p *model.Principal) ([]model.JobListing, error) {
	if m.listFn != nil {
		return m.listFn(ctx, p)
	}
	return nil, nil
}

func (m *mockJobService) Detail(ctx context.Context, id int64) (*model.JobListing, error) {
	if m.detailFn != nil {
		return m.detailFn(ctx, id)
	}
	return nil, model.NewJobNotFoundError(id)
}

func (m *mockJobService) Create(ctx context.Context, p *model.Principal, in job.Input) (*model.Job, error) {
	if m.createFn != nil {
		return m.createFn(ctx, p, in)
	}
	return &model.Job{ID: 1}, nil
}

func (m *mockJobService) FindOwned(ctx context.Context, p *model.Principal, id int64) (*model.Job, error) {
	if m.findOwnedFn != nil {
		return m.findOwnedFn(ctx, p, id)
	}
	return nil, model.NewJobNotFoundError(id)
}

func (m *mockJobService) Update(ctx context.Context, p *model.Principal, id int64, in job.Input) (*model.Job, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, p, id, in)
	}
	return &model.Job{ID: id}, nil
}

func (m *mockJobService) Delete(ctx context.Context, p *model.Principal, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, p, id)
	}
	return nil
}

func (m *mockJobService) Dashboard(ctx context.Context, p *model.Principal) ([]model.AgencyJobSummary, error) {
	if m.dashboardFn != nil {
		return m.dashboardFn(ctx, p)
	}
	return nil, model.RequireAgency(p)
}

type mockApplicationService struct {
	prepareFn        func(ctx context.Context, p *model.Principal, jobID int64) (*model.JobListing, error)
	applyFn          func(ctx context.Context, p *model.Principal, jobID int64, in application.ApplyInput, cv io.Reader) (*model.Application, error)
	approveFn        func(ctx context.Context, p *model.Principal, id int64) error
	rejectFn         func(ctx context.Context, p *model.Principal, id int64) error
	listForJobFn     func(ctx context.Context, p *model.Principal, jobID int64) (*model.Job, []model.ApplicantView, error)
	myApplicationsFn func(ctx context.Context, p *model.Principal) ([]model.MyActivity, error)
	authorizeCVFn    func(ctx context.Context, p *model.Principal, filename string) error
}

func (m *mockApplicationService) Prepare(ctx context.Context, p *model.Principal, jobID int64) (*model.JobListing, error) {
	if m.prepareFn != nil {
		return m.prepareFn(ctx, p, jobID)
	}
	return &model.JobListing{Job: model.Job{ID: jobID, Title: "Welder"}}, nil
}

func (m *mockApplicationService) Apply(ctx context.Context, p *model.Principal, jobID int64, in application.ApplyInput, cv io.Reader) (*model.Application, error) {
	if m.applyFn != nil {
		return m.applyFn(ctx, p, jobID, in, cv)
	}
	return &model.Application{ID: 1}, nil
}

func (m *mockApplicationService) Approve(ctx context.Context, p *model.Principal, id int64) error {
	if m.approveFn != nil {
		return m.approveFn(ctx, p, id)
	}
	return nil
}

func (m *mockApplicationService) Reject(ctx context.Context, p *model.Principal, id int64) error {
	if m.rejectFn != nil {
		return m.rejectFn(ctx, p, id)
	}
	return nil
}

func (m *mockApplicationService) ListForJob(ctx context.Context, p *model.Principal, jobID int64) (*model.Job, []model.ApplicantView, error) {
	if m.listForJobFn != nil {
		return m.listForJobFn(ctx, p, jobID)
	}
	return &model.Job{ID: jobID}, nil, nil
}

func (m *mockApplicationService) MyApplications(ctx context.Context, p *model.Principal) ([]model.MyActivity, error) {
	if m.myApplicationsFn != nil {
		return m.myApplicationsFn(ctx, p)
	}
	return nil, nil
}

func (m *mockApplicationService) AuthorizeCV(ctx context.Context, p *model.Principal, filename string) error {
	if m.authorizeCVFn != nil {
		return m.authorizeCVFn(ctx, p, filename)
	}
	return nil
}

type mockCVLocator struct {
	pathFn func(filename string) (string, bool)
}

func (m *mockCVLocator) Path(filename string) (string, bool) {
	if m.pathFn != nil {
		return m.pathFn(filename)
	}
	return "", false
}

type mockBookmarkService struct {
	addFn    func(ctx context.Context, p *model.Principal, jobID int64) (bool, error)
	removeFn func(ctx context.Context, p *model.Principal, jobID int64) error
}

func (m *mockBookmarkService) Add(ctx context.Context, p *model.Principal, jobID int64) (bool, error) {
	if m.addFn != nil {
		return m.addFn(ctx, p, jobID)
	}
	return true, nil
}

func (m *mockBookmarkService) Remove(ctx context.Context, p *model.Principal, jobID int64) error {
	if m.removeFn != nil {
		return m.removeFn(ctx, p, jobID)
	}
	return nil
}

type mockNotificationService struct {
	listFn func(ctx context.Context, p *model.Principal) ([]*model.Notification, error)
}

func (m *mockNotificationService) List(ctx context.Context, p *model.Principal) ([]*model.Notification, error) {
	if m.listFn != nil {
		return m.listFn(ctx, p)
	}
	return nil, nil
}

type mockStoryService struct {
	listFn      func(ctx context.Context) ([]model.StoryView, error)
	createFn    func(ctx context.Context, p *model.Principal, in story.Input) (*model.SuccessStory, error)
	findOwnedFn func(ctx context.Context, p *model.Principal, id int64) (*model.SuccessStory, error)
	updateFn    func(ctx context.Context, p *model.Principal, id int64, in story.Input) (*model.SuccessStory, error)
	deleteFn    func(ctx context.Context, p *model.Principal, id int64) error
}

func (m *mockStoryService) List(ctx context.Context) ([]model.StoryView, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockStoryService) Create(ctx context.Context, p *model.Principal, in story.Input) (*model.SuccessStory, error) {
	if m.createFn != nil {
		return m.createFn(ctx, p, in)
	}
	return &model.SuccessStory{ID: 1}, nil
}

func (m *mockStoryService) FindOwned(ctx context.Context, p *model.Principal, id int64) (*model.SuccessStory, error) {
	if m.findOwnedFn != nil {
		return m.findOwnedFn(ctx, p, id)
	}
	return nil, model.NewStoryNotFoundError(id)
}

func (m *mockStoryService) Update(ctx context.Context, p *model.Principal, id int64, in story.Input) (*model.SuccessStory, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, p, id, in)
	}
	return &model.SuccessStory{ID: id}, nil
}

func (m *mockStoryService) Delete(ctx context.Context, p *model.Principal, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, p, id)
	}
	return nil
}

type mockAdminService struct {
	dashboardFn func(ctx context.Context, p *model.Principal) (*admin.Dashboard, error)
	verifyFn    func(ctx context.Context, p *model.Principal, id int64) error
	rejectFn    func(ctx context.Context, p *model.Principal, id int64) error
}

func (m *mockAdminService) Dashboard(ctx context.Context, p *model.Principal) (*admin.Dashboard, error) {
	if m.dashboardFn != nil {
		return m.dashboardFn(ctx, p)
	}
	if err := model.RequireAdmin(p); err != nil {
		return nil, err
	}
	return &admin.Dashboard{}, nil
}

func (m *mockAdminService) VerifyAgency(ctx context.Context, p *model.Principal, id int64) error {
	if m.verifyFn != nil {
		return m.verifyFn(ctx, p, id)
	}
	return model.RequireAdmin(p)
}

func (m *mockAdminService) RejectAgency(ctx context.Context, p *model.Principal, id int64) error {
	if m.rejectFn != nil {
		return m.rejectFn(ctx, p, id)
	}
	return model.RequireAdmin(p)
}

// sessionResolver はセッションIDをキーに主体を返すテスト用リゾルバー。
type sessionResolver map[string]*model.Principal

func (s sessionResolver) CurrentPrincipal(_ context.Context, sessionID string) (*model.Principal, error) {
	if sessionID == "broken" {
		return nil, errors.New("db down")
	}
	return s[sessionID], nil
}

var (
	_ AuthServiceInterface         = (*mockAuthService)(nil)
	_ JobServiceInterface          = (*mockJobService)(nil)
	_ ApplicationServiceInterface  = (*mockApplicationService)(nil)
	_ BookmarkServiceInterface     = (*mockBookmarkService)(nil)
	_ NotificationServiceInterface = (*mockNotificationService)(nil)
	_ StoryServiceInterface        = (*mockStoryService)(nil)
	_ AdminServiceInterface        = (*mockAdminService)(nil)
	_ CVLocator                    = (*mockCVLocator)(nil)
)

// --- テストヘルパー ---

const (
	testCSRFToken    = "test-csrf-token"
	testCookieSecret = "test-secret"
)

var (
	seeker   = &model.Principal{Kind: model.PrincipalUser, ID: 10, Username: "jdoe", DisplayName: "John Doe", Email: "jdoe@example.com", FirstName: "John", LastName: "Doe"}
	agency   = &model.Principal{Kind: model.PrincipalAgency, ID: 20, Username: "acme", DisplayName: "Acme", CompanyName: "Acme", Status: model.StatusVerified}
	adminUsr = &model.Principal{Kind: model.PrincipalUser, ID: 1, Username: "admin", DisplayName: "Admin User", IsAdmin: true}
)

// testDeps は全サービスをモックにしたRouterDepsを返す。
func testDeps(t *testing.T) *RouterDeps {
	t.Helper()
	return &RouterDeps{
		PrincipalResolver: sessionResolver{
			"sid-seeker": seeker,
			"sid-agency": agency,
			"sid-admin":  adminUsr,
		},
		CookieSigner:        auth.NewCookieSigner(testCookieSecret, 3600),
		RateLimiter:         newTestRateLimiter(t, 1000, 1000),
		AuthService:         &mockAuthService{},
		AuthConfig:          AuthHandlerConfig{SessionMaxAge: 3600},
		JobService:          &mockJobService{},
		BaseURL:             "https://jobs.example.com",
		ApplicationService:  &mockApplicationService{},
		CVLocator:           &mockCVLocator{},
		BookmarkService:     &mockBookmarkService{},
		NotificationService: &mockNotificationService{},
		StoryService:        &mockStoryService{},
		AdminService:        &mockAdminService{},
		Renderer:            MustNewRenderer(),
	}
}

func newTestRateLimiter(t *testing.T, generalPerMinute, authPerMinute int) *middleware.RateLimiter {
	t.Helper()
	rl := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(generalPerMinute, authPerMinute))
	t.Cleanup(rl.Stop)
	return rl
}

// serve はルーター全体にリクエストを通す。
func serve(t *testing.T, deps *RouterDeps, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	NewRouter(deps).ServeHTTP(w, req)
	return w
}

// withSession は署名済みセッションCookieを付与する。
func withSession(req *http.Request, sessionID string) *http.Request {
	signed, err := auth.NewCookieSigner(testCookieSecret, 3600).Sign(sessionID)
	if err != nil {
		panic(err)
	}
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: signed})
	return req
}

// postForm はCSRFトークン付きのフォーム送信リクエストを生成する。
func postForm(target string, form url.Values) *http.Request {
	if form == nil {
		form = url.Values{}
	}
	form.Set(middleware.CSRFFormField, testCSRFToken)
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: testCSRFToken})
	return req
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, want string) {
	t.Helper()
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d\nbody: %s", w.Code, http.StatusSeeOther, w.Body.String())
	}
	if got := w.Header().Get("Location"); got != want {
		t.Errorf("Location = %q, want %q", got, want)
	}
}

func assertBodyContains(t *testing.T, w *httptest.ResponseRecorder, substr string) {
	t.Helper()
	if !strings.Contains(w.Body.String(), substr) {
		t.Errorf("body does not contain %q\nbody: %s", substr, w.Body.String())
	}
}

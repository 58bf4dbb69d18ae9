package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rankwise/seo-crm/internal/core/domain"
	"github.com/rankwise/seo-crm/internal/core/ports"
)

var (
	adminP  = domain.Principal{ID: "u-admin", Email: "admin@agency.test", Role: domain.RoleAdmin}
	clientP = domain.Principal{ID: "u-client", Email: "owner@acme.test", Role: domain.RoleClient, TenantScope: "client-42"}
)

// newContext builds an echo context carrying p, with the validator installed.
func newContext(p domain.Principal, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req = req.WithContext(domain.WithPrincipal(req.Context(), p))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// ---------------------------------------------------------------------------
// Session manager
// ---------------------------------------------------------------------------

type stubSessions struct {
	loginFn       func(ctx context.Context, email, password string) (*ports.Session, error)
	logoutFn      func(ctx context.Context, p domain.Principal) error
	registerFn    func(ctx context.Context, in ports.RegisterUserInput) (*domain.Profile, error)
	adminFn       func(ctx context.Context, in ports.AdminRegistration) (*domain.Profile, error)
	clientUserFn  func(ctx context.Context, actor domain.Principal, in ports.ClientUserInput) (*domain.Profile, error)
	adminExistsFn func(ctx context.Context) (bool, error)
}

func (s *stubSessions) Login(ctx context.Context, email, password string) (*ports.Session, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubSessions) Logout(ctx context.Context, p domain.Principal) error {
	return s.logoutFn(ctx, p)
}

func (s *stubSessions) RegisterUser(ctx context.Context, in ports.RegisterUserInput) (*domain.Profile, error) {
	return s.registerFn(ctx, in)
}

func (s *stubSessions) RegisterAdmin(ctx context.Context, in ports.AdminRegistration) (*domain.Profile, error) {
	return s.adminFn(ctx, in)
}

func (s *stubSessions) RegisterClientUser(ctx context.Context, actor domain.Principal, in ports.ClientUserInput) (*domain.Profile, error) {
	return s.clientUserFn(ctx, actor, in)
}

func (s *stubSessions) AdminExists(ctx context.Context) (bool, error) {
	return s.adminExistsFn(ctx)
}

// ---------------------------------------------------------------------------
// Scope enforcer
// ---------------------------------------------------------------------------

// stubEnforcer overrides only the methods a test needs; the embedded
// interface is nil so any other call panics.
type stubEnforcer struct {
	ports.ScopeEnforcer

	listClientsFn    func(ctx context.Context, p domain.Principal, f ports.ClientFilter) (*ports.Page[domain.Client], error)
	getClientFn      func(ctx context.Context, p domain.Principal, id string) (*domain.Client, error)
	createClientFn   func(ctx context.Context, p domain.Principal, c *domain.Client) error
	deleteClientFn   func(ctx context.Context, p domain.Principal, id string) error
	createKeywordFn  func(ctx context.Context, p domain.Principal, k *domain.Keyword) error
	recordPositionFn func(ctx context.Context, p domain.Principal, id string, position int) (*domain.Keyword, error)
	listBacklinksFn  func(ctx context.Context, p domain.Principal, f ports.BacklinkFilter) (*ports.Page[domain.Backlink], error)
	createBacklinkFn func(ctx context.Context, p domain.Principal, b *domain.Backlink) error
}

func (s *stubEnforcer) ListClients(ctx context.Context, p domain.Principal, f ports.ClientFilter) (*ports.Page[domain.Client], error) {
	return s.listClientsFn(ctx, p, f)
}

func (s *stubEnforcer) GetClient(ctx context.Context, p domain.Principal, id string) (*domain.Client, error) {
	return s.getClientFn(ctx, p, id)
}

func (s *stubEnforcer) CreateClient(ctx context.Context, p domain.Principal, c *domain.Client) error {
	return s.createClientFn(ctx, p, c)
}

func (s *stubEnforcer) DeleteClient(ctx context.Context, p domain.Principal, id string) error {
	return s.deleteClientFn(ctx, p, id)
}

func (s *stubEnforcer) CreateKeyword(ctx context.Context, p domain.Principal, k *domain.Keyword) error {
	return s.createKeywordFn(ctx, p, k)
}

func (s *stubEnforcer) RecordKeywordPosition(ctx context.Context, p domain.Principal, id string, position int) (*domain.Keyword, error) {
	return s.recordPositionFn(ctx, p, id, position)
}

func (s *stubEnforcer) ListBacklinks(ctx context.Context, p domain.Principal, f ports.BacklinkFilter) (*ports.Page[domain.Backlink], error) {
	return s.listBacklinksFn(ctx, p, f)
}

func (s *stubEnforcer) CreateBacklink(ctx context.Context, p domain.Principal, b *domain.Backlink) error {
	return s.createBacklinkFn(ctx, p, b)
}

// ---------------------------------------------------------------------------
// Imports and dashboards
// ---------------------------------------------------------------------------

type stubImports struct {
	clientID string
	rows     []ports.ImportRow
	report   *ports.ImportReport
	err      error
}

func (s *stubImports) ImportKeywords(_ context.Context, _ domain.Principal, clientID string, rows []ports.ImportRow) (*ports.ImportReport, error) {
	s.clientID, s.rows = clientID, rows
	return s.report, s.err
}

func (s *stubImports) ImportBacklinks(_ context.Context, _ domain.Principal, clientID string, rows []ports.ImportRow) (*ports.ImportReport, error) {
	s.clientID, s.rows = clientID, rows
	return s.report, s.err
}

type stubDashboards struct {
	admin  *ports.AdminDashboard
	client *ports.ClientDashboard
	err    error
}

func (s *stubDashboards) AdminDashboard(context.Context, domain.Principal) (*ports.AdminDashboard, error) {
	return s.admin, s.err
}

func (s *stubDashboards) ClientDashboard(context.Context, domain.Principal) (*ports.ClientDashboard, error) {
	return s.client, s.err
}

func intp(v int) *int { return &v }

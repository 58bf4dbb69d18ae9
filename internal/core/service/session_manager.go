package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/rankwise/seo-crm/internal/core/domain"
	"github.com/rankwise/seo-crm/internal/core/ports"
	"github.com/rankwise/seo-crm/internal/pkg/metrics"
)

const (
	minAdminPassword = 8
	minUserPassword  = 6
	// bcrypt ignores input past 72 bytes.
	maxPassword = 72
)

var bcryptCost = bcrypt.DefaultCost

// ClientLinker is the slice of the enforcer needed to attach a login to a
// Client.
type ClientLinker interface {
	Authorize(p domain.Principal, action domain.Action, resource domain.ResourceType, clientID string) error
	GetClient(ctx context.Context, p domain.Principal, id string) (*domain.Client, error)
	LinkClientUser(ctx context.Context, p domain.Principal, clientID, userID string) error
}

// SessionManager implements ports.SessionManager.
type SessionManager struct {
	identities ports.IdentityRepository
	clients    ClientLinker
	sessions   ports.SessionStore
	tokens     *TokenIssuer
	audit      ports.AuditLog
	log        zerolog.Logger
	timeout    time.Duration
	dummyHash  []byte
}

func NewSessionManager(
	identities ports.IdentityRepository,
	clients ClientLinker,
	sessions ports.SessionStore,
	tokens *TokenIssuer,
	audit ports.AuditLog,
	log zerolog.Logger,
	timeout time.Duration,
) *SessionManager {
	// Compared against on unknown emails so both paths cost one bcrypt run.
	dummy, _ := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcryptCost)
	return &SessionManager{
		identities: identities,
		clients:    clients,
		sessions:   sessions,
		tokens:     tokens,
		audit:      audit,
		log:        log,
		timeout:    timeout,
		dummyHash:  dummy,
	}
}

// Login verifies credentials and issues a session. Unknown emails and wrong
// passwords produce the same ErrInvalidCredentials.
func (s *SessionManager) Login(ctx context.Context, email, password string) (*ports.Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	ident, err := retryRead(ctx, s.log, "identities.find", func(ctx context.Context) (*domain.Identity, error) {
		return s.identities.FindByEmail(ctx, email)
	})
	switch {
	case errors.Is(err, domain.ErrNotFound):
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	case err != nil:
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("login: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(ident.PasswordHash), []byte(password)) != nil {
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	principal := domain.Principal{ID: ident.ID, Email: ident.Email, Role: domain.RoleClient}
	profile, err := retryRead(ctx, s.log, "profiles.get", func(ctx context.Context) (*domain.Profile, error) {
		return s.identities.GetProfile(ctx, ident.ID)
	})
	switch {
	case err == nil:
		principal = profile.Principal()
	case !errors.Is(err, domain.ErrNotFound):
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("login: %w", err)
	}

	token, claims, err := s.tokens.Issue(ident.ID)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	principal.SessionID = claims.ID
	principal.ExpiresAt = claims.ExpiresAt.Time

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.log.Info().
		Str("user", principal.ID).
		Str("role", string(principal.Role)).
		Str("tenant", principal.TenantScope).
		Msg("login succeeded")
	s.record(ctx, principal, "login", "")

	return &ports.Session{Token: token, ExpiresAt: principal.ExpiresAt, Principal: principal}, nil
}

// Logout revokes the session until it would have expired anyway.
func (s *SessionManager) Logout(ctx context.Context, p domain.Principal) error {
	if !p.IsAuthenticated() || p.SessionID == "" {
		return nil
	}

	ctx, cancel := detached(ctx, s.timeout)
	defer cancel()
	if err := s.sessions.Revoke(ctx, p.SessionID, p.ExpiresAt); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	s.log.Info().Str("user", p.ID).Msg("logged out")
	s.record(ctx, p, "logout", "")
	return nil
}

// RegisterUser creates a self-service account. It starts without a tenant
// until an admin links it to a Client.
func (s *SessionManager) RegisterUser(ctx context.Context, in ports.RegisterUserInput) (*domain.Profile, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.FullName)

	ve := &domain.ValidationError{}
	if name == "" {
		ve.Add("name", "name is required")
	}
	validateCredentials(ve, email, in.Password, minUserPassword)
	if err := ve.OrNil(); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("user", "invalid").Inc()
		return nil, err
	}

	identity, profile, err := newAccount(email, in.Password, domain.RoleClient)
	if err != nil {
		return nil, err
	}
	profile.FullName = name

	ctx, cancel := detached(ctx, s.timeout)
	defer cancel()
	err = s.identities.CreateUser(ctx, identity, profile)
	metrics.RegistrationsTotal.WithLabelValues("user", registrationResult(err)).Inc()
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user", profile.ID).Msg("user registered")
	return profile, nil
}

// RegisterAdmin bootstraps the single administrator.
func (s *SessionManager) RegisterAdmin(ctx context.Context, in ports.AdminRegistration) (*domain.Profile, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.FullName)

	ve := &domain.ValidationError{}
	if name == "" {
		ve.Add("full_name", "full_name is required")
	}
	validateCredentials(ve, email, in.Password, minAdminPassword)
	if err := ve.OrNil(); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("admin", "invalid").Inc()
		return nil, err
	}

	exists, err := s.AdminExists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		metrics.RegistrationsTotal.WithLabelValues("admin", "conflict").Inc()
		return nil, domain.ErrAdminExists
	}

	identity, profile, err := newAccount(email, in.Password, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}
	profile.FullName = name
	profile.Company = strings.TrimSpace(in.Company)

	ctx, cancel := detached(ctx, s.timeout)
	defer cancel()
	err = s.identities.CreateAdmin(ctx, identity, profile)
	metrics.RegistrationsTotal.WithLabelValues("admin", registrationResult(err)).Inc()
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user", profile.ID).Msg("administrator registered")
	s.record(ctx, profile.Principal(), "register_admin", "")
	return profile, nil
}

// RegisterClientUser creates a login for a Client and links it. The identity
// is created first; if linking fails it is deleted again and the caller gets
// a *domain.PartialFailureError describing what was left behind.
func (s *SessionManager) RegisterClientUser(ctx context.Context, actor domain.Principal, in ports.ClientUserInput) (*domain.Profile, error) {
	if err := s.clients.Authorize(actor, domain.ActionUpdate, domain.ResourceClient, in.ClientID); err != nil {
		return nil, err
	}

	email := normalizeEmail(in.Email)
	ve := &domain.ValidationError{}
	if in.ClientID == "" {
		ve.Add("client_id", "client_id is required")
	}
	validateCredentials(ve, email, in.Password, minUserPassword)
	if err := ve.OrNil(); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("client_user", "invalid").Inc()
		return nil, err
	}

	client, err := s.clients.GetClient(ctx, actor, in.ClientID)
	if err != nil {
		return nil, err
	}
	if client.LinkedUserID != "" {
		metrics.RegistrationsTotal.WithLabelValues("client_user", "conflict").Inc()
		return nil, domain.ErrClientLinked
	}

	identity, profile, err := newAccount(email, in.Password, domain.RoleClient)
	if err != nil {
		return nil, err
	}
	profile.FullName = client.Name
	profile.Company = client.Name

	ctx, cancel := detached(ctx, s.timeout)
	defer cancel()
	if err := s.identities.CreateUser(ctx, identity, profile); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("client_user", registrationResult(err)).Inc()
		return nil, err
	}

	if err := s.clients.LinkClientUser(ctx, actor, client.ID, identity.ID); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("client_user", "error").Inc()
		return nil, s.compensate(ctx, identity.ID, client.ID, err)
	}

	metrics.RegistrationsTotal.WithLabelValues("client_user", "success").Inc()
	profile.ClientID = client.ID
	s.log.Info().Str("user", identity.ID).Str("client_id", client.ID).Msg("client user registered")
	return profile, nil
}

func (s *SessionManager) AdminExists(ctx context.Context) (bool, error) {
	return retryRead(ctx, s.log, "profiles.admin_exists", s.identities.AdminExists)
}

func (s *SessionManager) compensate(ctx context.Context, userID, clientID string, cause error) error {
	pf := &domain.PartialFailureError{
		Operation: "register client user",
		UserID:    userID,
		ClientID:  clientID,
		Cause:     cause,
	}
	if err := s.identities.DeleteUser(ctx, userID); err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("failed to remove identity after link failure")
	} else {
		pf.Compensated = true
	}

	metrics.PartialFailuresTotal.WithLabelValues("register_client_user", strconv.FormatBool(pf.Compensated)).Inc()
	s.log.Error().
		Err(cause).
		Str("user", userID).
		Str("client_id", clientID).
		Bool("compensated", pf.Compensated).
		Msg("client user registration partially failed")
	return pf
}

func (s *SessionManager) record(ctx context.Context, p domain.Principal, action, reason string) {
	if s.audit == nil {
		return
	}
	ev := domain.NewAuditEvent(p, action, domain.ResourceSession, domain.AuditAllowed)
	ev.ResourceID = p.SessionID
	ev.Reason = reason
	if err := s.audit.Record(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Warn().Err(err).Str("action", action).Msg("failed to record audit event")
	}
}

func newAccount(email, password string, role domain.Role) (*domain.Identity, *domain.Profile, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	id := uuid.NewString()
	identity := &domain.Identity{ID: id, Email: email, PasswordHash: string(hash), CreatedAt: now}
	profile := &domain.Profile{ID: id, Email: email, Role: role, CreatedAt: now, UpdatedAt: now}
	return identity, profile, nil
}

func validateCredentials(ve *domain.ValidationError, email, password string, minPassword int) {
	if email == "" {
		ve.Add("email", "email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		ve.Add("email", "email must be a valid email")
	}
	switch {
	case len(password) < minPassword:
		ve.Add("password", fmt.Sprintf("password must be at least %d characters", minPassword))
	case len(password) > maxPassword:
		ve.Add("password", fmt.Sprintf("password must be at most %d bytes", maxPassword))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func registrationResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}

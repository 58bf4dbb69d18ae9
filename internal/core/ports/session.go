package ports

import (
	"context"
	"time"

	"github.com/rankwise/seo-crm/internal/core/domain"
)

// Session is the result of a successful login.
type Session struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Principal domain.Principal `json:"principal"`
}

// RegisterUserInput is a self-service registration.
type RegisterUserInput struct {
	FullName string
	Email    string
	Password string
}

// AdminRegistration is the one-time bootstrap of the administrator.
type AdminRegistration struct {
	FullName string
	Company  string
	Email    string
	Password string
}

// ClientUserInput creates a login for an existing Client.
type ClientUserInput struct {
	ClientID string
	Email    string
	Password string
}

// SessionManager owns login, logout and account creation.
type SessionManager interface {
	Login(ctx context.Context, email, password string) (*Session, error)
	Logout(ctx context.Context, p domain.Principal) error
	RegisterUser(ctx context.Context, in RegisterUserInput) (*domain.Profile, error)
	RegisterAdmin(ctx context.Context, in AdminRegistration) (*domain.Profile, error)
	RegisterClientUser(ctx context.Context, actor domain.Principal, in ClientUserInput) (*domain.Profile, error)
	AdminExists(ctx context.Context) (bool, error)
}

// IdentityResolver turns a raw session credential into a Principal. It never
// fails: any problem yields domain.Anonymous().
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) domain.Principal
}

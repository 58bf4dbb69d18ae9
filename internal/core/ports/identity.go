package ports

import (
	"context"
	"time"

	"github.com/rankwise/seo-crm/internal/core/domain"
)

// IdentityRepository persists credentials and role profiles.
type IdentityRepository interface {
	// FindByEmail returns domain.ErrNotFound for unknown emails.
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
	// GetProfile returns domain.ErrNotFound when the identity has no profile.
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	// CreateUser stores identity and profile in one transaction.
	CreateUser(ctx context.Context, identity *domain.Identity, profile *domain.Profile) error
	// CreateAdmin is CreateUser guarded so that at most one admin profile can
	// ever exist. Returns domain.ErrAdminExists when one already does.
	CreateAdmin(ctx context.Context, identity *domain.Identity, profile *domain.Profile) error
	AdminExists(ctx context.Context) (bool, error)
	DeleteUser(ctx context.Context, userID string) error
}

// SessionStore tracks revoked sessions until their natural expiry.
type SessionStore interface {
	Revoke(ctx context.Context, sessionID string, until time.Time) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/rankwise/seo-crm/internal/core/domain"
	"github.com/rankwise/seo-crm/internal/core/ports"
)

// ProfileReader is the identity-store read used to resolve roles.
type ProfileReader interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
}

// IdentityResolver implements ports.IdentityResolver.
type IdentityResolver struct {
	tokens   *TokenIssuer
	sessions ports.SessionStore
	profiles ProfileReader
	log      zerolog.Logger
}

func NewIdentityResolver(tokens *TokenIssuer, sessions ports.SessionStore, profiles ProfileReader, log zerolog.Logger) *IdentityResolver {
	return &IdentityResolver{tokens: tokens, sessions: sessions, profiles: profiles, log: log}
}

// Resolve fails closed: a bad token, a revoked session or an unreachable
// store all yield the anonymous principal. An identity without a profile
// resolves to a client with no tenant.
func (r *IdentityResolver) Resolve(ctx context.Context, credential string) domain.Principal {
	if credential == "" {
		return domain.Anonymous()
	}

	claims, err := r.tokens.Parse(credential)
	if err != nil {
		r.log.Debug().Err(err).Msg("session token rejected")
		return domain.Anonymous()
	}

	revoked, err := r.sessions.IsRevoked(ctx, claims.ID)
	if err != nil {
		r.log.Warn().Err(err).Str("session", claims.ID).Msg("revocation check failed")
		return domain.Anonymous()
	}
	if revoked {
		return domain.Anonymous()
	}

	var p domain.Principal
	profile, err := retryRead(ctx, r.log, "profiles.get", func(ctx context.Context) (*domain.Profile, error) {
		return r.profiles.GetProfile(ctx, claims.Subject)
	})
	switch {
	case errors.Is(err, domain.ErrNotFound):
		p = domain.Principal{ID: claims.Subject, Role: domain.RoleClient}
	case err != nil:
		r.log.Warn().Err(err).Str("user", claims.Subject).Msg("profile lookup failed")
		return domain.Anonymous()
	default:
		p = profile.Principal()
	}

	p.SessionID = claims.ID
	p.ExpiresAt = claims.ExpiresAt.Time
	return p
}

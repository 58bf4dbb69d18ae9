package domain

import (
	"context"
	"time"
)

// SessionState is the route-policy view of a Principal.
type SessionState int

const (
	StateUnauthenticated SessionState = iota
	// StateNoRole is an authenticated client without a linked Client.
	StateNoRole
	StateAdmin
	StateClient
)

func (s SessionState) String() string {
	switch s {
	case StateNoRole:
		return "no_role"
	case StateAdmin:
		return "admin"
	case StateClient:
		return "client"
	default:
		return "unauthenticated"
	}
}

// Principal is the resolved identity of the caller for one request. It is
// immutable once resolved.
type Principal struct {
	ID          string    `json:"id,omitempty"`
	Email       string    `json:"email,omitempty"`
	Role        Role      `json:"role"`
	TenantScope string    `json:"tenant_scope,omitempty"`
	SessionID   string    `json:"-"`
	ExpiresAt   time.Time `json:"-"`
}

// Anonymous returns the principal used when no valid session is present.
func Anonymous() Principal {
	return Principal{Role: RoleAnonymous}
}

func (p Principal) IsAuthenticated() bool {
	return p.ID != "" && (p.Role == RoleAdmin || p.Role == RoleClient)
}

func (p Principal) IsAdmin() bool {
	return p.IsAuthenticated() && p.Role == RoleAdmin
}

// IsTenant reports whether p is a client bound to exactly one tenant.
func (p Principal) IsTenant() bool {
	return p.IsAuthenticated() && p.Role == RoleClient && p.TenantScope != ""
}

// State classifies p for route decisions.
func (p Principal) State() SessionState {
	switch {
	case !p.IsAuthenticated():
		return StateUnauthenticated
	case p.Role == RoleAdmin:
		return StateAdmin
	case p.TenantScope == "":
		return StateNoRole
	default:
		return StateClient
	}
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx, or Anonymous.
func PrincipalFrom(ctx context.Context) Principal {
	if p, ok := ctx.Value(principalKey{}).(Principal); ok {
		return p
	}
	return Anonymous()
}

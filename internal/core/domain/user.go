package domain

import "time"

// Role is the authorization role carried by a Principal.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleClient    Role = "client"
	RoleAnonymous Role = "anonymous"
)

// Valid reports whether r is a role that can be persisted on a profile.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleClient
}

// Identity is the credential record owned by the identity store.
type Identity struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile is the role record attached to an Identity. ClientID is derived
// from the Client whose linked user is this identity, never stored on the
// profile itself.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	Company   string    `json:"company,omitempty"`
	Role      Role      `json:"role"`
	ClientID  string    `json:"client_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Principal builds the request principal for this profile.
func (p Profile) Principal() Principal {
	pr := Principal{ID: p.ID, Email: p.Email, Role: p.Role}
	if p.Role == RoleClient {
		pr.TenantScope = p.ClientID
	}
	return pr
}

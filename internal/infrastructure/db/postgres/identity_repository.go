package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/rankwise/seo-crm/internal/core/domain"
)

// adminLockKey serialises first-admin bootstrap across every API replica.
const adminLockKey int64 = 0x5e0c4a11

type IdentityRepository struct {
	store
	tx *TxManager
}

func NewIdentityRepository(db *sql.DB, tx *TxManager, timeout time.Duration) *IdentityRepository {
	return &IdentityRepository{store: newStore(db, timeout), tx: tx}
}

func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var u domain.Identity
	err := r.q(ctx).QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE lower(email) = lower($1)`, email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

// GetProfile derives ClientID from the client row linked to the user.
func (r *IdentityRepository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var (
		p        domain.Profile
		role     string
		clientID sql.NullString
	)
	err := r.q(ctx).QueryRowContext(ctx,
		`SELECT p.id, p.email, p.full_name, p.company, p.role, c.id, p.created_at, p.updated_at
		 FROM profiles p LEFT JOIN clients c ON c.linked_user_id = p.id WHERE p.id = $1`, userID,
	).Scan(&p.ID, &p.Email, &p.FullName, &p.Company, &role, &clientID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	p.Role = domain.Role(role)
	p.ClientID = clientID.String
	return &p, nil
}

func (r *IdentityRepository) CreateUser(ctx context.Context, identity *domain.Identity, profile *domain.Profile) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.tx.RunInTx(ctx, func(ctx context.Context) error {
		return r.insert(ctx, identity, profile)
	})
}

// CreateAdmin holds a transaction-scoped advisory lock while checking for an
// existing admin. The partial unique index profiles_single_admin backs it up.
func (r *IdentityRepository) CreateAdmin(ctx context.Context, identity *domain.Identity, profile *domain.Profile) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := r.q(ctx).ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, adminLockKey); err != nil {
			return mapError(err)
		}
		exists, err := r.adminExists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrAdminExists
		}
		return r.insert(ctx, identity, profile)
	})
}

func (r *IdentityRepository) AdminExists(ctx context.Context) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.adminExists(ctx)
}

// DeleteUser removes the identity. The profile goes with it and any linked
// client is released.
func (r *IdentityRepository) DeleteUser(ctx context.Context, userID string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return affected(r.q(ctx).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID))
}

func (r *IdentityRepository) adminExists(ctx context.Context) (bool, error) {
	var exists bool
	if err := r.q(ctx).QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE role = 'admin')`).Scan(&exists); err != nil {
		return false, mapError(err)
	}
	return exists, nil
}

func (r *IdentityRepository) insert(ctx context.Context, identity *domain.Identity, profile *domain.Profile) error {
	q := r.q(ctx)
	if _, err := q.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		identity.ID, identity.Email, identity.PasswordHash, identity.CreatedAt,
	); err != nil {
		return mapError(err)
	}
	if _, err := q.ExecContext(ctx,
		`INSERT INTO profiles (id, email, full_name, company, role, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		profile.ID, profile.Email, profile.FullName, profile.Company, string(profile.Role), profile.CreatedAt, profile.UpdatedAt,
	); err != nil {
		return mapError(err)
	}
	return nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rankwise/seo-crm/internal/core/domain"
	"github.com/rankwise/seo-crm/internal/core/ports"
)

const (
	clientColumns = `c.id, c.name, c.website, c.contact_email, c.contact_phone, c.status, c.linked_user_id, p.email, c.created_at, c.updated_at`
	clientFrom    = ` FROM clients c LEFT JOIN profiles p ON p.id = c.linked_user_id`
)

var clientSorts = map[string]string{
	"id":         "c.id",
	"name":       "c.name",
	"status":     "c.status",
	"created_at": "c.created_at",
	"updated_at": "c.updated_at",
}

type ClientRepository struct {
	store
}

func NewClientRepository(db *sql.DB, timeout time.Duration) *ClientRepository {
	return &ClientRepository{store: newStore(db, timeout)}
}

func (r *ClientRepository) Create(ctx context.Context, c *domain.Client) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.q(ctx).ExecContext(ctx,
		`INSERT INTO clients (id, name, website, contact_email, contact_phone, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.Name, c.Website, c.ContactEmail, c.ContactPhone, string(c.Status), c.CreatedAt, c.UpdatedAt,
	)
	return mapError(err)
}

func (r *ClientRepository) Get(ctx context.Context, id string) (*domain.Client, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	row := r.q(ctx).QueryRowContext(ctx, `SELECT `+clientColumns+clientFrom+` WHERE c.id = $1`, id)
	c, err := scanClient(row)
	if err != nil {
		return nil, mapError(err)
	}
	return c, nil
}

func (r *ClientRepository) List(ctx context.Context, f ports.ClientFilter) ([]domain.Client, int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var w filter
	if f.ID != "" {
		w.add("c.id = $%d", f.ID)
	}
	if f.Status != "" {
		w.add("c.status = $%d", f.Status)
	}
	if f.Search != "" {
		w.add("(c.name ILIKE $%[1]d OR c.contact_email ILIKE $%[1]d)", "%"+f.Search+"%")
	}

	var total int64
	if err := r.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM clients c`+w.where(), w.args...).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	query := `SELECT ` + clientColumns + clientFrom + w.where()
	query += w.page(f.ListOptions, clientSorts, "created_at", true)

	rows, err := r.q(ctx).QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	clients := make([]domain.Client, 0, f.Limit)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, mapError(err)
		}
		clients = append(clients, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError(err)
	}
	return clients, total, nil
}

func (r *ClientRepository) Update(ctx context.Context, c *domain.Client) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var linked sql.NullString
	err := r.q(ctx).QueryRowContext(ctx,
		`UPDATE clients SET name = $2, website = $3, contact_email = $4, contact_phone = $5, status = $6, updated_at = $7
		 WHERE id = $1 RETURNING linked_user_id, created_at`,
		c.ID, c.Name, c.Website, c.ContactEmail, c.ContactPhone, string(c.Status), c.UpdatedAt,
	).Scan(&linked, &c.CreatedAt)
	if err != nil {
		return mapError(err)
	}
	c.LinkedUserID = linked.String
	return nil
}

func (r *ClientRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return affected(r.q(ctx).ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id))
}

func (r *ClientRepository) LinkUser(ctx context.Context, clientID, userID string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	err := affected(r.q(ctx).ExecContext(ctx,
		`UPDATE clients SET linked_user_id = $2, updated_at = NOW() WHERE id = $1 AND linked_user_id IS NULL`,
		clientID, userID,
	))
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	var exists bool
	if err := r.q(ctx).QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM clients WHERE id = $1)`, clientID).Scan(&exists); err != nil {
		return mapError(err)
	}
	if exists {
		return domain.ErrClientLinked
	}
	return domain.ErrNotFound
}

type scanner interface {
	Scan(dest ...any) error
}

func scanClient(s scanner) (*domain.Client, error) {
	var (
		c      domain.Client
		status string
		linked sql.NullString
		email  sql.NullString
	)
	if err := s.Scan(&c.ID, &c.Name, &c.Website, &c.ContactEmail, &c.ContactPhone, &status, &linked, &email, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Status = domain.ClientStatus(status)
	c.LinkedUserID = linked.String
	c.LinkedUserEmail = email.String
	return &c, nil
}

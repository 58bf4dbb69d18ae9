package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/rankwise/seo-crm/internal/core/domain"
	"github.com/rankwise/seo-crm/internal/core/ports"
)

const backlinkColumns = `id, client_id, source_url, target_url, anchor_text, do_follow, cost, acquired_date, created_at, updated_at`

var backlinkSorts = map[string]string{
	"id":            "id",
	"source_url":    "source_url",
	"cost":          "cost",
	"acquired_date": "acquired_date",
	"created_at":    "created_at",
	"updated_at":    "updated_at",
}

type BacklinkRepository struct {
	store
}

func NewBacklinkRepository(db *sql.DB, timeout time.Duration) *BacklinkRepository {
	return &BacklinkRepository{store: newStore(db, timeout)}
}

func (r *BacklinkRepository) Create(ctx context.Context, b *domain.Backlink) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.q(ctx).ExecContext(ctx,
		`INSERT INTO backlinks (`+backlinkColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		b.ID, b.ClientID, b.SourceURL, b.TargetURL, b.AnchorText, b.DoFollow, b.Cost, b.AcquiredDate, b.CreatedAt, b.UpdatedAt,
	)
	return mapError(err)
}

func (r *BacklinkRepository) Get(ctx context.Context, id, scope string) (*domain.Backlink, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query, args := scoped(`SELECT `+backlinkColumns+` FROM backlinks WHERE id = $1`, []any{id}, scope)
	b, err := scanBacklink(r.q(ctx).QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return b, nil
}

func (r *BacklinkRepository) List(ctx context.Context, f ports.BacklinkFilter) ([]domain.Backlink, int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var w filter
	if f.ClientID != "" {
		w.add("client_id = $%d", f.ClientID)
	}
	if f.DoFollow != nil {
		w.add("do_follow = $%d", *f.DoFollow)
	}

	var total int64
	if err := r.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM backlinks`+w.where(), w.args...).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	query := `SELECT ` + backlinkColumns + ` FROM backlinks` + w.where()
	query += w.page(f.ListOptions, backlinkSorts, "created_at", true)

	rows, err := r.q(ctx).QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	backlinks := make([]domain.Backlink, 0, f.Limit)
	for rows.Next() {
		b, err := scanBacklink(rows)
		if err != nil {
			return nil, 0, mapError(err)
		}
		backlinks = append(backlinks, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError(err)
	}
	return backlinks, total, nil
}

func (r *BacklinkRepository) Update(ctx context.Context, b *domain.Backlink, scope string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query, args := scoped(
		`UPDATE backlinks SET client_id = $2, source_url = $3, target_url = $4, anchor_text = $5, do_follow = $6,
		 cost = $7, acquired_date = $8, updated_at = $9 WHERE id = $1`,
		[]any{b.ID, b.ClientID, b.SourceURL, b.TargetURL, b.AnchorText, b.DoFollow, b.Cost, b.AcquiredDate, b.UpdatedAt},
		scope,
	)
	if err := r.q(ctx).QueryRowContext(ctx, query+` RETURNING created_at`, args...).Scan(&b.CreatedAt); err != nil {
		return mapError(err)
	}
	return nil
}

func (r *BacklinkRepository) Delete(ctx context.Context, id, scope string) (string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query, args := scoped(`DELETE FROM backlinks WHERE id = $1`, []any{id}, scope)
	var clientID string
	if err := r.q(ctx).QueryRowContext(ctx, query+` RETURNING client_id`, args...).Scan(&clientID); err != nil {
		return "", mapError(err)
	}
	return clientID, nil
}

func (r *BacklinkRepository) Count(ctx context.Context, clientID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var w filter
	if clientID != "" {
		w.add("client_id = $%d", clientID)
	}

	var n int64
	if err := r.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM backlinks`+w.where(), w.args...).Scan(&n); err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

func scanBacklink(s scanner) (*domain.Backlink, error) {
	var (
		b    domain.Backlink
		cost sql.NullFloat64
	)
	if err := s.Scan(&b.ID, &b.ClientID, &b.SourceURL, &b.TargetURL, &b.AnchorText, &b.DoFollow, &cost, &b.AcquiredDate, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Cost = floatPtr(cost)
	return &b, nil
}

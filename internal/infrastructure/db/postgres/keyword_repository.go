package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rankwise/seo-crm/internal/core/domain"
	"github.com/rankwise/seo-crm/internal/core/ports"
)

const keywordColumns = `id, client_id, keyword, current_position, previous_position, best_position, created_at, updated_at`

var keywordSorts = map[string]string{
	"id":               "id",
	"keyword":          "keyword",
	"current_position": "current_position",
	"best_position":    "best_position",
	"created_at":       "created_at",
	"updated_at":       "updated_at",
}

type KeywordRepository struct {
	store
}

func NewKeywordRepository(db *sql.DB, timeout time.Duration) *KeywordRepository {
	return &KeywordRepository{store: newStore(db, timeout)}
}

// scoped appends a tenant predicate when scope is non-empty.
func scoped(query string, args []any, scope string) (string, []any) {
	if scope == "" {
		return query, args
	}
	args = append(args, scope)
	return query + fmt.Sprintf(" AND client_id = $%d", len(args)), args
}

func (r *KeywordRepository) Create(ctx context.Context, k *domain.Keyword) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.q(ctx).ExecContext(ctx,
		`INSERT INTO keywords (`+keywordColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		k.ID, k.ClientID, k.Text, k.CurrentPosition, k.PreviousPosition, k.BestPosition, k.CreatedAt, k.UpdatedAt,
	)
	return mapError(err)
}

func (r *KeywordRepository) Get(ctx context.Context, id, scope string) (*domain.Keyword, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query, args := scoped(`SELECT `+keywordColumns+` FROM keywords WHERE id = $1`, []any{id}, scope)
	k, err := scanKeyword(r.q(ctx).QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return k, nil
}

func (r *KeywordRepository) List(ctx context.Context, f ports.KeywordFilter) ([]domain.Keyword, int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var w filter
	if f.ClientID != "" {
		w.add("client_id = $%d", f.ClientID)
	}
	if f.Search != "" {
		w.add("keyword ILIKE $%d", "%"+f.Search+"%")
	}

	var total int64
	if err := r.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM keywords`+w.where(), w.args...).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	query := `SELECT ` + keywordColumns + ` FROM keywords` + w.where()
	query += w.page(f.ListOptions, keywordSorts, "created_at", true)

	rows, err := r.q(ctx).QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	keywords := make([]domain.Keyword, 0, f.Limit)
	for rows.Next() {
		k, err := scanKeyword(rows)
		if err != nil {
			return nil, 0, mapError(err)
		}
		keywords = append(keywords, *k)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError(err)
	}
	return keywords, total, nil
}

// Update writes the caller's positions; best_position only ever moves down.
func (r *KeywordRepository) Update(ctx context.Context, k *domain.Keyword, scope string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query, args := scoped(
		`UPDATE keywords SET client_id = $2, keyword = $3, current_position = $4, previous_position = $5,
		 best_position = LEAST(best_position, $6, $4, $5), updated_at = $7 WHERE id = $1`,
		[]any{k.ID, k.ClientID, k.Text, k.CurrentPosition, k.PreviousPosition, k.BestPosition, k.UpdatedAt},
		scope,
	)
	var best sql.NullInt64
	if err := r.q(ctx).QueryRowContext(ctx, query+` RETURNING best_position, created_at`, args...).Scan(&best, &k.CreatedAt); err != nil {
		return mapError(err)
	}
	k.BestPosition = intPtr(best)
	return nil
}

// RecordPosition shifts current into previous in a single statement.
func (r *KeywordRepository) RecordPosition(ctx context.Context, id, scope string, position int) (*domain.Keyword, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query, args := scoped(
		`UPDATE keywords SET previous_position = COALESCE(current_position, previous_position), current_position = $2,
		 best_position = LEAST(best_position, $2, current_position), updated_at = NOW() WHERE id = $1`,
		[]any{id, position},
		scope,
	)
	k, err := scanKeyword(r.q(ctx).QueryRowContext(ctx, query+` RETURNING `+keywordColumns, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return k, nil
}

func (r *KeywordRepository) Delete(ctx context.Context, id, scope string) (string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query, args := scoped(`DELETE FROM keywords WHERE id = $1`, []any{id}, scope)
	var clientID string
	if err := r.q(ctx).QueryRowContext(ctx, query+` RETURNING client_id`, args...).Scan(&clientID); err != nil {
		return "", mapError(err)
	}
	return clientID, nil
}

// Stats aggregates one tenant, or every tenant when clientID is empty.
func (r *KeywordRepository) Stats(ctx context.Context, clientID string) (ports.KeywordStats, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var w filter
	if clientID != "" {
		w.add("client_id = $%d", clientID)
	}

	var s ports.KeywordStats
	err := r.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(current_position), COALESCE(AVG(current_position), 0),
		 COUNT(*) FILTER (WHERE current_position < previous_position) FROM keywords`+w.where(),
		w.args...,
	).Scan(&s.Total, &s.Ranked, &s.AverageRanking, &s.Improved)
	if err != nil {
		return ports.KeywordStats{}, mapError(err)
	}
	return s, nil
}

func scanKeyword(s scanner) (*domain.Keyword, error) {
	var (
		k                       domain.Keyword
		current, previous, best sql.NullInt64
	)
	if err := s.Scan(&k.ID, &k.ClientID, &k.Text, &current, &previous, &best, &k.CreatedAt, &k.UpdatedAt); err != nil {
		return nil, err
	}
	k.CurrentPosition = intPtr(current)
	k.PreviousPosition = intPtr(previous)
	k.BestPosition = intPtr(best)
	return &k, nil
}

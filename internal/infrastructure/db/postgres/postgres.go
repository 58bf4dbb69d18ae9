package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/rankwise/seo-crm/internal/core/domain"
	"github.com/rankwise/seo-crm/internal/core/ports"
)

const defaultTimeout = 10 * time.Second

//go:embed schema.sql
var schema string

// Config captures the settings required to open the connection pool.
type Config struct {
	DSN          string
	MaxOpenConns int
	Timeout      time.Duration
}

// Connect opens the pool and verifies connectivity with a ping.
func Connect(ctx context.Context, cfg Config) (*sql.DB, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns/2 + 1)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}

// store holds what every repository needs.
type store struct {
	db      *sql.DB
	timeout time.Duration
}

func newStore(db *sql.DB, timeout time.Duration) store {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return store{db: db, timeout: timeout}
}

func (s store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// q returns the transaction carried by ctx, or the pool.
func (s store) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// mapError converts driver errors into domain errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			switch pqErr.Constraint {
			case "profiles_single_admin":
				return domain.ErrAdminExists
			case "users_email_key":
				return domain.ErrEmailTaken
			case "clients_linked_user_id_key":
				return domain.ErrClientLinked
			}
			return fmt.Errorf("%w: %s", domain.ErrConflict, pqErr.Constraint)
		case "23503": // foreign_key_violation
			return domain.NewValidationError("client_id", "client does not exist")
		case "23514": // check_violation
			if pqErr.Constraint == "keywords_best_position_check" {
				return domain.NewValidationError("best_position", "best_position cannot be worse than the observed positions")
			}
			return fmt.Errorf("%w: %s", domain.ErrValidation, pqErr.Constraint)
		case "22P02": // invalid_text_representation, e.g. a malformed uuid
			return domain.ErrNotFound
		case "57014": // query_canceled
			return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrStore, err)
}

// affected turns a zero-row write into domain.ErrNotFound.
func affected(res sql.Result, err error) error {
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// filter accumulates WHERE conditions with positional arguments. Each
// condition is a format string whose %[1]d is replaced by its placeholder
// index.
type filter struct {
	conds []string
	args  []any
}

func (f *filter) add(cond string, arg any) {
	f.args = append(f.args, arg)
	f.conds = append(f.conds, fmt.Sprintf(cond, len(f.args)))
}

func (f *filter) where() string {
	if len(f.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.conds, " AND ")
}

// page appends ORDER BY, LIMIT and OFFSET. Only columns in allowed can be
// sorted on; anything else falls back to def. allowed["id"] breaks ties.
func (f *filter) page(opts ports.ListOptions, allowed map[string]string, def string, defDesc bool) string {
	col, ok := allowed[opts.Sort]
	desc := opts.Desc
	if !ok {
		col, desc = allowed[def], defDesc
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}

	f.args = append(f.args, opts.Limit, opts.Offset())
	n := len(f.args)
	return fmt.Sprintf(" ORDER BY %s %s NULLS LAST, %s LIMIT $%d OFFSET $%d", col, dir, allowed["id"], n-1, n)
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

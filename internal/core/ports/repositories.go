package ports

import (
	"context"
	"math"

	"github.com/rankwise/seo-crm/internal/core/domain"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	// MaxPage keeps Offset within int32 for any allowed Limit.
	MaxPage = math.MaxInt32 / MaxPageSize
)

// ListOptions carries paging and ordering. Unknown sort fields fall back to
// the repository default.
type ListOptions struct {
	Sort  string
	Desc  bool
	Page  int // 1-based
	Limit int
}

// Normalize clamps Page and Limit to their allowed ranges.
func (o *ListOptions) Normalize() {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Page > MaxPage {
		o.Page = MaxPage
	}
	if o.Limit <= 0 {
		o.Limit = DefaultPageSize
	}
	if o.Limit > MaxPageSize {
		o.Limit = MaxPageSize
	}
}

// Offset is the number of rows skipped for the current page.
func (o ListOptions) Offset() int {
	return (o.Page - 1) * o.Limit
}

type ClientFilter struct {
	ID     string // non-empty restricts the list to one Client
	Status string
	Search string
	ListOptions
}

// ClientRepository persists Clients. Clients are the tenant root, so it
// carries no tenant scope of its own.
type ClientRepository interface {
	Create(ctx context.Context, c *domain.Client) error
	Get(ctx context.Context, id string) (*domain.Client, error)
	List(ctx context.Context, f ClientFilter) ([]domain.Client, int64, error)
	Update(ctx context.Context, c *domain.Client) error
	// Delete removes the Client and, by cascade, its keywords and backlinks.
	Delete(ctx context.Context, id string) error
	// LinkUser sets linked_user_id only when it is still empty. Returns
	// domain.ErrClientLinked otherwise.
	LinkUser(ctx context.Context, clientID, userID string) error
}

type KeywordFilter struct {
	ClientID string // empty means all tenants
	Search   string
	ListOptions
}

// KeywordStats aggregates keyword positions for one tenant or all of them.
type KeywordStats struct {
	Total          int64
	Ranked         int64
	AverageRanking float64
	Improved       int64
}

// KeywordRepository persists keywords. Every single-row method takes a scope:
// when non-empty, rows of other tenants behave as missing.
type KeywordRepository interface {
	Create(ctx context.Context, k *domain.Keyword) error
	Get(ctx context.Context, id, scope string) (*domain.Keyword, error)
	List(ctx context.Context, f KeywordFilter) ([]domain.Keyword, int64, error)
	// Update never raises best_position above its stored value.
	Update(ctx context.Context, k *domain.Keyword, scope string) error
	RecordPosition(ctx context.Context, id, scope string, position int) (*domain.Keyword, error)
	// Delete returns the client_id of the removed row.
	Delete(ctx context.Context, id, scope string) (string, error)
	Stats(ctx context.Context, clientID string) (KeywordStats, error)
}

type BacklinkFilter struct {
	ClientID string
	DoFollow *bool
	ListOptions
}

// BacklinkRepository persists backlinks with the same scope rule as
// KeywordRepository.
type BacklinkRepository interface {
	Create(ctx context.Context, b *domain.Backlink) error
	Get(ctx context.Context, id, scope string) (*domain.Backlink, error)
	List(ctx context.Context, f BacklinkFilter) ([]domain.Backlink, int64, error)
	Update(ctx context.Context, b *domain.Backlink, scope string) error
	Delete(ctx context.Context, id, scope string) (string, error)
	Count(ctx context.Context, clientID string) (int64, error)
}

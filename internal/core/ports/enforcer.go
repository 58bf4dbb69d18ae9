package ports

import (
	"context"

	"github.com/rankwise/seo-crm/internal/core/domain"
)

// Page is one page of a list result.
type Page[T any] struct {
	Items      []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// NewPage builds a Page from the rows and total count of a query.
func NewPage[T any](items []T, total int64, opts ListOptions) *Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if opts.Limit > 0 {
		pages = int((total + int64(opts.Limit) - 1) / int64(opts.Limit))
	}
	return &Page[T]{Items: items, Total: total, Page: opts.Page, Limit: opts.Limit, TotalPages: pages}
}

// Summary aggregates keyword and backlink counts for one tenant, or for all
// of them when requested by an admin.
type Summary struct {
	Keywords  KeywordStats
	Backlinks int64
}

// ScopeEnforcer is the only path to tenant-owned data. Each method checks the
// principal before touching storage and scopes the storage call to the
// principal's tenant.
type ScopeEnforcer interface {
	Authorize(p domain.Principal, action domain.Action, resource domain.ResourceType, clientID string) error

	ListClients(ctx context.Context, p domain.Principal, f ClientFilter) (*Page[domain.Client], error)
	GetClient(ctx context.Context, p domain.Principal, id string) (*domain.Client, error)
	CreateClient(ctx context.Context, p domain.Principal, c *domain.Client) error
	UpdateClient(ctx context.Context, p domain.Principal, c *domain.Client) error
	DeleteClient(ctx context.Context, p domain.Principal, id string) error
	LinkClientUser(ctx context.Context, p domain.Principal, clientID, userID string) error

	ListKeywords(ctx context.Context, p domain.Principal, f KeywordFilter) (*Page[domain.Keyword], error)
	GetKeyword(ctx context.Context, p domain.Principal, id string) (*domain.Keyword, error)
	CreateKeyword(ctx context.Context, p domain.Principal, k *domain.Keyword) error
	UpdateKeyword(ctx context.Context, p domain.Principal, k *domain.Keyword) error
	RecordKeywordPosition(ctx context.Context, p domain.Principal, id string, position int) (*domain.Keyword, error)
	DeleteKeyword(ctx context.Context, p domain.Principal, id string) error

	ListBacklinks(ctx context.Context, p domain.Principal, f BacklinkFilter) (*Page[domain.Backlink], error)
	GetBacklink(ctx context.Context, p domain.Principal, id string) (*domain.Backlink, error)
	CreateBacklink(ctx context.Context, p domain.Principal, b *domain.Backlink) error
	UpdateBacklink(ctx context.Context, p domain.Principal, b *domain.Backlink) error
	DeleteBacklink(ctx context.Context, p domain.Principal, id string) error

	Summary(ctx context.Context, p domain.Principal, clientID string) (*Summary, error)
}

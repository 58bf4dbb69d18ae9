package ports

import (
	"context"

	"github.com/rankwise/seo-crm/internal/core/domain"
)

// ImportRow is one CSV-derived record keyed by column header.
type ImportRow map[string]string

// RowError describes why a single import row was rejected. Row is 1-based.
type RowError struct {
	Row    int               `json:"row"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ImportReport summarizes a bulk import. Rows are independent: a failed row
// never rolls back the others.
type ImportReport struct {
	Imported int        `json:"imported"`
	Failed   int        `json:"failed"`
	Errors   []RowError `json:"errors"`
}

// ImportService bulk-loads keywords and backlinks for one Client.
type ImportService interface {
	ImportKeywords(ctx context.Context, p domain.Principal, clientID string, rows []ImportRow) (*ImportReport, error)
	ImportBacklinks(ctx context.Context, p domain.Principal, clientID string, rows []ImportRow) (*ImportReport, error)
}

// AdminDashboard is the agency-wide overview.
type AdminDashboard struct {
	TotalClients   int64           `json:"total_clients"`
	TotalKeywords  int64           `json:"total_keywords"`
	TotalBacklinks int64           `json:"total_backlinks"`
	AverageRanking float64         `json:"average_ranking"`
	RecentClients  []domain.Client `json:"recent_clients"`
}

// ClientDashboardStats are computed over all of a Client's keywords.
type ClientDashboardStats struct {
	TotalKeywords     int64   `json:"total_keywords"`
	TotalBacklinks    int64   `json:"total_backlinks"`
	AverageRanking    float64 `json:"average_ranking"`
	ImprovedPositions int64   `json:"improved_positions"`
}

// ClientDashboard is the tenant's own overview.
type ClientDashboard struct {
	Client    domain.Client        `json:"client"`
	Keywords  []domain.Keyword     `json:"keywords"`
	Backlinks []domain.Backlink    `json:"backlinks"`
	Stats     ClientDashboardStats `json:"stats"`
}

// DashboardService builds role-specific dashboards.
type DashboardService interface {
	AdminDashboard(ctx context.Context, p domain.Principal) (*AdminDashboard, error)
	ClientDashboard(ctx context.Context, p domain.Principal) (*ClientDashboard, error)
}

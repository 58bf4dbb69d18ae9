package service

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rankwise/seo-crm/internal/core/domain"
	"github.com/rankwise/seo-crm/internal/core/ports"
	"github.com/rankwise/seo-crm/internal/pkg/metrics"
)

const (
	recentClientsLimit  = 5
	topKeywordsLimit    = 10
	recentBacklinkLimit = 5
)

type dashboardService struct {
	enforcer ports.ScopeEnforcer
	log      zerolog.Logger
}

// NewDashboardService returns a DashboardService whose reads all go through
// the enforcer.
func NewDashboardService(enforcer ports.ScopeEnforcer, log zerolog.Logger) ports.DashboardService {
	return &dashboardService{enforcer: enforcer, log: log}
}

func (s *dashboardService) AdminDashboard(ctx context.Context, p domain.Principal) (*ports.AdminDashboard, error) {
	if !p.IsAdmin() {
		return nil, denyReason(p)
	}
	defer observe("admin", time.Now())

	var (
		clients *ports.Page[domain.Client]
		summary *ports.Summary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		clients, err = s.enforcer.ListClients(gctx, p, ports.ClientFilter{
			ListOptions: ports.ListOptions{Sort: "created_at", Desc: true, Page: 1, Limit: recentClientsLimit},
		})
		return err
	})
	g.Go(func() error {
		var err error
		summary, err = s.enforcer.Summary(gctx, p, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &ports.AdminDashboard{
		TotalClients:   clients.Total,
		TotalKeywords:  summary.Keywords.Total,
		TotalBacklinks: summary.Backlinks,
		AverageRanking: round1(summary.Keywords.AverageRanking),
		RecentClients:  clients.Items,
	}, nil
}

func (s *dashboardService) ClientDashboard(ctx context.Context, p domain.Principal) (*ports.ClientDashboard, error) {
	if !p.IsTenant() {
		return nil, denyReason(p)
	}
	defer observe("client", time.Now())

	var (
		client    *domain.Client
		keywords  *ports.Page[domain.Keyword]
		backlinks *ports.Page[domain.Backlink]
		summary   *ports.Summary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		client, err = s.enforcer.GetClient(gctx, p, p.TenantScope)
		return err
	})
	g.Go(func() error {
		var err error
		keywords, err = s.enforcer.ListKeywords(gctx, p, ports.KeywordFilter{
			ClientID:    p.TenantScope,
			ListOptions: ports.ListOptions{Sort: "current_position", Page: 1, Limit: topKeywordsLimit},
		})
		return err
	})
	g.Go(func() error {
		var err error
		backlinks, err = s.enforcer.ListBacklinks(gctx, p, ports.BacklinkFilter{
			ClientID:    p.TenantScope,
			ListOptions: ports.ListOptions{Sort: "acquired_date", Desc: true, Page: 1, Limit: recentBacklinkLimit},
		})
		return err
	})
	g.Go(func() error {
		var err error
		summary, err = s.enforcer.Summary(gctx, p, p.TenantScope)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &ports.ClientDashboard{
		Client:    *client,
		Keywords:  keywords.Items,
		Backlinks: backlinks.Items,
		Stats: ports.ClientDashboardStats{
			TotalKeywords:     summary.Keywords.Total,
			TotalBacklinks:    summary.Backlinks,
			AverageRanking:    round1(summary.Keywords.AverageRanking),
			ImprovedPositions: summary.Keywords.Improved,
		},
	}, nil
}

func denyReason(p domain.Principal) error {
	if !p.IsAuthenticated() {
		return domain.ErrUnauthenticated
	}
	return domain.ErrForbidden
}

func observe(kind string, start time.Time) {
	metrics.DashboardBuildDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

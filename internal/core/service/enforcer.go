package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rankwise/seo-crm/internal/core/domain"
	"github.com/rankwise/seo-crm/internal/core/ports"
	"github.com/rankwise/seo-crm/internal/pkg/metrics"
)

// Enforcer implements ports.ScopeEnforcer. Every storage call it makes is
// scoped to the principal's tenant, so a client can never read or mutate a
// row of another tenant even if a handler forgets a check.
type Enforcer struct {
	clients   ports.ClientRepository
	keywords  ports.KeywordRepository
	backlinks ports.BacklinkRepository
	audit     ports.AuditLog
	log       zerolog.Logger
	timeout   time.Duration
	now       func() time.Time
}

func NewEnforcer(
	clients ports.ClientRepository,
	keywords ports.KeywordRepository,
	backlinks ports.BacklinkRepository,
	audit ports.AuditLog,
	log zerolog.Logger,
	timeout time.Duration,
) *Enforcer {
	return &Enforcer{
		clients:   clients,
		keywords:  keywords,
		backlinks: backlinks,
		audit:     audit,
		log:       log,
		timeout:   timeout,
		now:       time.Now,
	}
}

type listResult[T any] struct {
	items []T
	total int64
}

// Authorize is the pure scope rule:
//   - anonymous principals are unauthenticated;
//   - admins may do anything;
//   - clients may touch only rows of their own tenant, and may only read
//     their own Client record.
func (e *Enforcer) Authorize(p domain.Principal, action domain.Action, resource domain.ResourceType, clientID string) error {
	switch {
	case !p.IsAuthenticated():
		return domain.ErrUnauthenticated
	case p.IsAdmin():
		return nil
	case !p.IsTenant():
		return domain.ErrForbidden
	case clientID == "" || clientID != p.TenantScope:
		return domain.ErrForbidden
	case resource == domain.ResourceClient && action != domain.ActionRead:
		return domain.ErrForbidden
	}
	return nil
}

func (e *Enforcer) check(ctx context.Context, p domain.Principal, action domain.Action, resource domain.ResourceType, resourceID, clientID string) error {
	err := e.Authorize(p, action, resource, clientID)

	decision := "allowed"
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		decision = "unauthenticated"
	case err != nil:
		decision = "denied"
	}
	metrics.AuthzDecisionsTotal.WithLabelValues(string(resource), string(action), decision).Inc()

	if err != nil {
		e.log.Warn().
			Str("principal", p.ID).
			Str("role", string(p.Role)).
			Str("action", string(action)).
			Str("resource", string(resource)).
			Str("resource_id", resourceID).
			Str("client_id", clientID).
			Msg("access denied")
		e.record(ctx, p, action, resource, resourceID, clientID, domain.AuditDenied, err.Error())
	}
	return err
}

// precheck rejects principals that may not touch tenant data at all, before
// any storage call is made.
func (e *Enforcer) precheck(ctx context.Context, p domain.Principal, action domain.Action, resource domain.ResourceType, resourceID string) error {
	if p.IsAdmin() || p.IsTenant() {
		return nil
	}
	return e.check(ctx, p, action, resource, resourceID, "")
}

// miss maps a scoped lookup that found nothing. Clients get ErrForbidden so
// that rows of other tenants are indistinguishable from missing ones.
func (e *Enforcer) miss(ctx context.Context, p domain.Principal, action domain.Action, resource domain.ResourceType, resourceID string) error {
	if p.IsAdmin() {
		return domain.ErrNotFound
	}
	metrics.AuthzDecisionsTotal.WithLabelValues(string(resource), string(action), "denied").Inc()
	e.log.Warn().
		Str("principal", p.ID).
		Str("action", string(action)).
		Str("resource", string(resource)).
		Str("resource_id", resourceID).
		Msg("access denied: resource outside tenant scope")
	e.record(ctx, p, action, resource, resourceID, "", domain.AuditDenied, "outside tenant scope")
	return domain.ErrForbidden
}

func (e *Enforcer) scope(p domain.Principal) string {
	if p.IsAdmin() {
		return ""
	}
	return p.TenantScope
}

func (e *Enforcer) record(ctx context.Context, p domain.Principal, action domain.Action, resource domain.ResourceType, resourceID, clientID string, outcome domain.AuditOutcome, reason string) {
	if e.audit == nil {
		return
	}
	ev := domain.NewAuditEvent(p, string(action), resource, outcome)
	ev.ResourceID = resourceID
	ev.ClientID = clientID
	ev.Reason = reason
	if err := e.audit.Record(context.WithoutCancel(ctx), ev); err != nil {
		e.log.Warn().Err(err).Str("resource", string(resource)).Msg("failed to record audit event")
	}
}

func (e *Enforcer) mutation(ctx context.Context) (context.Context, context.CancelFunc) {
	return detached(ctx, e.timeout)
}

func (e *Enforcer) missOr(ctx context.Context, p domain.Principal, action domain.Action, resource domain.ResourceType, id string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return e.miss(ctx, p, action, resource, id)
	}
	return err
}

// ---------------------------------------------------------------------------
// Clients
// ---------------------------------------------------------------------------

func (e *Enforcer) ListClients(ctx context.Context, p domain.Principal, f ports.ClientFilter) (*ports.Page[domain.Client], error) {
	if err := e.precheck(ctx, p, domain.ActionRead, domain.ResourceClient, ""); err != nil {
		return nil, err
	}
	if !p.IsAdmin() {
		f.ID = p.TenantScope
	}
	f.ListOptions.Normalize()

	res, err := retryRead(ctx, e.log, "clients.list", func(ctx context.Context) (listResult[domain.Client], error) {
		items, total, err := e.clients.List(ctx, f)
		return listResult[domain.Client]{items: items, total: total}, err
	})
	if err != nil {
		return nil, err
	}
	return ports.NewPage(res.items, res.total, f.ListOptions), nil
}

func (e *Enforcer) GetClient(ctx context.Context, p domain.Principal, id string) (*domain.Client, error) {
	if err := e.check(ctx, p, domain.ActionRead, domain.ResourceClient, id, id); err != nil {
		return nil, err
	}
	c, err := retryRead(ctx, e.log, "clients.get", func(ctx context.Context) (*domain.Client, error) {
		return e.clients.Get(ctx, id)
	})
	if err != nil {
		return nil, e.missOr(ctx, p, domain.ActionRead, domain.ResourceClient, id, err)
	}
	return c, nil
}

func (e *Enforcer) CreateClient(ctx context.Context, p domain.Principal, c *domain.Client) error {
	if err := e.check(ctx, p, domain.ActionCreate, domain.ResourceClient, "", ""); err != nil {
		return err
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return err
	}

	now := e.now().UTC()
	c.ID = uuid.NewString()
	c.LinkedUserID, c.LinkedUserEmail = "", ""
	c.CreatedAt, c.UpdatedAt = now, now

	ctx, cancel := e.mutation(ctx)
	defer cancel()
	if err := e.clients.Create(ctx, c); err != nil {
		return err
	}

	e.log.Info().Str("client_id", c.ID).Str("name", c.Name).Msg("client created")
	e.record(ctx, p, domain.ActionCreate, domain.ResourceClient, c.ID, c.ID, domain.AuditAllowed, "")
	return nil
}

func (e *Enforcer) UpdateClient(ctx context.Context, p domain.Principal, c *domain.Client) error {
	if err := e.check(ctx, p, domain.ActionUpdate, domain.ResourceClient, c.ID, c.ID); err != nil {
		return err
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return err
	}
	c.UpdatedAt = e.now().UTC()

	ctx, cancel := e.mutation(ctx)
	defer cancel()
	if err := e.clients.Update(ctx, c); err != nil {
		return e.missOr(ctx, p, domain.ActionUpdate, domain.ResourceClient, c.ID, err)
	}

	e.record(ctx, p, domain.ActionUpdate, domain.ResourceClient, c.ID, c.ID, domain.AuditAllowed, "")
	return nil
}

func (e *Enforcer) DeleteClient(ctx context.Context, p domain.Principal, id string) error {
	if err := e.check(ctx, p, domain.ActionDelete, domain.ResourceClient, id, id); err != nil {
		return err
	}

	ctx, cancel := e.mutation(ctx)
	defer cancel()
	if err := e.clients.Delete(ctx, id); err != nil {
		return e.missOr(ctx, p, domain.ActionDelete, domain.ResourceClient, id, err)
	}

	e.log.Info().Str("client_id", id).Msg("client deleted with its keywords and backlinks")
	e.record(ctx, p, domain.ActionDelete, domain.ResourceClient, id, id, domain.AuditAllowed, "")
	return nil
}

func (e *Enforcer) LinkClientUser(ctx context.Context, p domain.Principal, clientID, userID string) error {
	if err := e.check(ctx, p, domain.ActionUpdate, domain.ResourceClient, clientID, clientID); err != nil {
		return err
	}

	ctx, cancel := e.mutation(ctx)
	defer cancel()
	if err := e.clients.LinkUser(ctx, clientID, userID); err != nil {
		return e.missOr(ctx, p, domain.ActionUpdate, domain.ResourceClient, clientID, err)
	}

	e.record(ctx, p, domain.ActionUpdate, domain.ResourceClient, clientID, clientID, domain.AuditAllowed, "linked user "+userID)
	return nil
}

// ---------------------------------------------------------------------------
// Keywords
// ---------------------------------------------------------------------------

func (e *Enforcer) ListKeywords(ctx context.Context, p domain.Principal, f ports.KeywordFilter) (*ports.Page[domain.Keyword], error) {
	if err := e.precheck(ctx, p, domain.ActionRead, domain.ResourceKeyword, ""); err != nil {
		return nil, err
	}
	if !p.IsAdmin() {
		if f.ClientID != "" {
			if err := e.check(ctx, p, domain.ActionRead, domain.ResourceKeyword, "", f.ClientID); err != nil {
				return nil, err
			}
		}
		f.ClientID = p.TenantScope
	}
	f.ListOptions.Normalize()

	res, err := retryRead(ctx, e.log, "keywords.list", func(ctx context.Context) (listResult[domain.Keyword], error) {
		items, total, err := e.keywords.List(ctx, f)
		return listResult[domain.Keyword]{items: items, total: total}, err
	})
	if err != nil {
		return nil, err
	}
	return ports.NewPage(res.items, res.total, f.ListOptions), nil
}

func (e *Enforcer) GetKeyword(ctx context.Context, p domain.Principal, id string) (*domain.Keyword, error) {
	if err := e.precheck(ctx, p, domain.ActionRead, domain.ResourceKeyword, id); err != nil {
		return nil, err
	}
	k, err := retryRead(ctx, e.log, "keywords.get", func(ctx context.Context) (*domain.Keyword, error) {
		return e.keywords.Get(ctx, id, e.scope(p))
	})
	if err != nil {
		return nil, e.missOr(ctx, p, domain.ActionRead, domain.ResourceKeyword, id, err)
	}
	if err := e.check(ctx, p, domain.ActionRead, domain.ResourceKeyword, id, k.ClientID); err != nil {
		return nil, err
	}
	return k, nil
}

func (e *Enforcer) CreateKeyword(ctx context.Context, p domain.Principal, k *domain.Keyword) error {
	if err := e.check(ctx, p, domain.ActionCreate, domain.ResourceKeyword, "", k.ClientID); err != nil {
		return err
	}
	if err := k.Validate(); err != nil {
		return err
	}
	k.Reconcile()

	now := e.now().UTC()
	k.ID = uuid.NewString()
	k.CreatedAt, k.UpdatedAt = now, now

	ctx, cancel := e.mutation(ctx)
	defer cancel()
	if err := e.keywords.Create(ctx, k); err != nil {
		return err
	}
	e.record(ctx, p, domain.ActionCreate, domain.ResourceKeyword, k.ID, k.ClientID, domain.AuditAllowed, "")
	return nil
}

// UpdateKeyword replaces a keyword. Moving it to another tenant requires
// update rights on both tenants.
func (e *Enforcer) UpdateKeyword(ctx context.Context, p domain.Principal, k *domain.Keyword) error {
	if err := e.precheck(ctx, p, domain.ActionUpdate, domain.ResourceKeyword, k.ID); err != nil {
		return err
	}
	existing, err := retryRead(ctx, e.log, "keywords.get", func(ctx context.Context) (*domain.Keyword, error) {
		return e.keywords.Get(ctx, k.ID, e.scope(p))
	})
	if err != nil {
		return e.missOr(ctx, p, domain.ActionUpdate, domain.ResourceKeyword, k.ID, err)
	}
	if err := e.check(ctx, p, domain.ActionUpdate, domain.ResourceKeyword, k.ID, existing.ClientID); err != nil {
		return err
	}
	if k.ClientID == "" {
		k.ClientID = existing.ClientID
	}
	if k.ClientID != existing.ClientID {
		if err := e.check(ctx, p, domain.ActionUpdate, domain.ResourceKeyword, k.ID, k.ClientID); err != nil {
			return err
		}
	}
	if err := k.Validate(); err != nil {
		return err
	}
	k.Reconcile()
	k.CreatedAt = existing.CreatedAt
	k.UpdatedAt = e.now().UTC()

	ctx, cancel := e.mutation(ctx)
	defer cancel()
	if err := e.keywords.Update(ctx, k, e.scope(p)); err != nil {
		return e.missOr(ctx, p, domain.ActionUpdate, domain.ResourceKeyword, k.ID, err)
	}
	e.record(ctx, p, domain.ActionUpdate, domain.ResourceKeyword, k.ID, k.ClientID, domain.AuditAllowed, "")
	return nil
}

func (e *Enforcer) RecordKeywordPosition(ctx context.Context, p domain.Principal, id string, position int) (*domain.Keyword, error) {
	if err := e.precheck(ctx, p, domain.ActionUpdate, domain.ResourceKeyword, id); err != nil {
		return nil, err
	}
	if position < 1 {
		return nil, domain.NewValidationError("position", "position must be at least 1")
	}

	ctx, cancel := e.mutation(ctx)
	defer cancel()
	k, err := e.keywords.RecordPosition(ctx, id, e.scope(p), position)
	if err != nil {
		return nil, e.missOr(ctx, p, domain.ActionUpdate, domain.ResourceKeyword, id, err)
	}

	e.log.Info().Str("keyword_id", id).Int("position", position).Msg("keyword position recorded")
	e.record(ctx, p, domain.ActionUpdate, domain.ResourceKeyword, id, k.ClientID, domain.AuditAllowed, "position recorded")
	return k, nil
}

func (e *Enforcer) DeleteKeyword(ctx context.Context, p domain.Principal, id string) error {
	if err := e.precheck(ctx, p, domain.ActionDelete, domain.ResourceKeyword, id); err != nil {
		return err
	}

	ctx, cancel := e.mutation(ctx)
	defer cancel()
	clientID, err := e.keywords.Delete(ctx, id, e.scope(p))
	if err != nil {
		return e.missOr(ctx, p, domain.ActionDelete, domain.ResourceKeyword, id, err)
	}
	e.record(ctx, p, domain.ActionDelete, domain.ResourceKeyword, id, clientID, domain.AuditAllowed, "")
	return nil
}

// ---------------------------------------------------------------------------
// Backlinks
// ---------------------------------------------------------------------------

func (e *Enforcer) ListBacklinks(ctx context.Context, p domain.Principal, f ports.BacklinkFilter) (*ports.Page[domain.Backlink], error) {
	if err := e.precheck(ctx, p, domain.ActionRead, domain.ResourceBacklink, ""); err != nil {
		return nil, err
	}
	if !p.IsAdmin() {
		if f.ClientID != "" {
			if err := e.check(ctx, p, domain.ActionRead, domain.ResourceBacklink, "", f.ClientID); err != nil {
				return nil, err
			}
		}
		f.ClientID = p.TenantScope
	}
	f.ListOptions.Normalize()

	res, err := retryRead(ctx, e.log, "backlinks.list", func(ctx context.Context) (listResult[domain.Backlink], error) {
		items, total, err := e.backlinks.List(ctx, f)
		return listResult[domain.Backlink]{items: items, total: total}, err
	})
	if err != nil {
		return nil, err
	}
	return ports.NewPage(res.items, res.total, f.ListOptions), nil
}

func (e *Enforcer) GetBacklink(ctx context.Context, p domain.Principal, id string) (*domain.Backlink, error) {
	if err := e.precheck(ctx, p, domain.ActionRead, domain.ResourceBacklink, id); err != nil {
		return nil, err
	}
	b, err := retryRead(ctx, e.log, "backlinks.get", func(ctx context.Context) (*domain.Backlink, error) {
		return e.backlinks.Get(ctx, id, e.scope(p))
	})
	if err != nil {
		return nil, e.missOr(ctx, p, domain.ActionRead, domain.ResourceBacklink, id, err)
	}
	if err := e.check(ctx, p, domain.ActionRead, domain.ResourceBacklink, id, b.ClientID); err != nil {
		return nil, err
	}
	return b, nil
}

func (e *Enforcer) CreateBacklink(ctx context.Context, p domain.Principal, b *domain.Backlink) error {
	if err := e.check(ctx, p, domain.ActionCreate, domain.ResourceBacklink, "", b.ClientID); err != nil {
		return err
	}
	if err := b.Validate(); err != nil {
		return err
	}

	now := e.now().UTC()
	if b.AcquiredDate.IsZero() {
		b.AcquiredDate = domain.AcquiredToday(now)
	}
	b.ID = uuid.NewString()
	b.CreatedAt, b.UpdatedAt = now, now

	ctx, cancel := e.mutation(ctx)
	defer cancel()
	if err := e.backlinks.Create(ctx, b); err != nil {
		return err
	}
	e.record(ctx, p, domain.ActionCreate, domain.ResourceBacklink, b.ID, b.ClientID, domain.AuditAllowed, "")
	return nil
}

func (e *Enforcer) UpdateBacklink(ctx context.Context, p domain.Principal, b *domain.Backlink) error {
	if err := e.precheck(ctx, p, domain.ActionUpdate, domain.ResourceBacklink, b.ID); err != nil {
		return err
	}
	existing, err := retryRead(ctx, e.log, "backlinks.get", func(ctx context.Context) (*domain.Backlink, error) {
		return e.backlinks.Get(ctx, b.ID, e.scope(p))
	})
	if err != nil {
		return e.missOr(ctx, p, domain.ActionUpdate, domain.ResourceBacklink, b.ID, err)
	}
	if err := e.check(ctx, p, domain.ActionUpdate, domain.ResourceBacklink, b.ID, existing.ClientID); err != nil {
		return err
	}
	if b.ClientID == "" {
		b.ClientID = existing.ClientID
	}
	if b.ClientID != existing.ClientID {
		if err := e.check(ctx, p, domain.ActionUpdate, domain.ResourceBacklink, b.ID, b.ClientID); err != nil {
			return err
		}
	}
	if err := b.Validate(); err != nil {
		return err
	}
	if b.AcquiredDate.IsZero() {
		b.AcquiredDate = existing.AcquiredDate
	}
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = e.now().UTC()

	ctx, cancel := e.mutation(ctx)
	defer cancel()
	if err := e.backlinks.Update(ctx, b, e.scope(p)); err != nil {
		return e.missOr(ctx, p, domain.ActionUpdate, domain.ResourceBacklink, b.ID, err)
	}
	e.record(ctx, p, domain.ActionUpdate, domain.ResourceBacklink, b.ID, b.ClientID, domain.AuditAllowed, "")
	return nil
}

func (e *Enforcer) DeleteBacklink(ctx context.Context, p domain.Principal, id string) error {
	if err := e.precheck(ctx, p, domain.ActionDelete, domain.ResourceBacklink, id); err != nil {
		return err
	}

	ctx, cancel := e.mutation(ctx)
	defer cancel()
	clientID, err := e.backlinks.Delete(ctx, id, e.scope(p))
	if err != nil {
		return e.missOr(ctx, p, domain.ActionDelete, domain.ResourceBacklink, id, err)
	}
	e.record(ctx, p, domain.ActionDelete, domain.ResourceBacklink, id, clientID, domain.AuditAllowed, "")
	return nil
}

// ---------------------------------------------------------------------------
// Aggregates
// ---------------------------------------------------------------------------

// Summary returns keyword statistics and the backlink count of clientID. An
// admin passing an empty clientID gets agency-wide figures.
func (e *Enforcer) Summary(ctx context.Context, p domain.Principal, clientID string) (*ports.Summary, error) {
	if clientID != "" || !p.IsAdmin() {
		if err := e.check(ctx, p, domain.ActionRead, domain.ResourceKeyword, "", clientID); err != nil {
			return nil, err
		}
	}

	stats, err := retryRead(ctx, e.log, "keywords.stats", func(ctx context.Context) (ports.KeywordStats, error) {
		return e.keywords.Stats(ctx, clientID)
	})
	if err != nil {
		return nil, err
	}
	backlinks, err := retryRead(ctx, e.log, "backlinks.count", func(ctx context.Context) (int64, error) {
		return e.backlinks.Count(ctx, clientID)
	})
	if err != nil {
		return nil, err
	}
	return &ports.Summary{Keywords: stats, Backlinks: backlinks}, nil
}

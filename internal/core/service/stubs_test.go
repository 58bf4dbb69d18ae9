package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/rankwise/seo-crm/internal/core/domain"
	"github.com/rankwise/seo-crm/internal/core/ports"
)

func init() {
	bcryptCost = bcrypt.MinCost
}

var discardLogger = zerolog.Nop()

// ---------------------------------------------------------------------------
// In-memory store shared by the stub repositories
// ---------------------------------------------------------------------------

type memDB struct {
	mu        sync.Mutex
	calls     int
	clients   map[string]domain.Client
	keywords  map[string]domain.Keyword
	backlinks map[string]domain.Backlink

	identities map[string]domain.Identity
	profiles   map[string]domain.Profile

	// readFailures makes the next N list calls fail with domain.ErrStore.
	readFailures int
	createErr    error
	linkErr      error
	deleteUsrErr error
}

func newMemDB() *memDB {
	return &memDB{
		clients:    make(map[string]domain.Client),
		keywords:   make(map[string]domain.Keyword),
		backlinks:  make(map[string]domain.Backlink),
		identities: make(map[string]domain.Identity),
		profiles:   make(map[string]domain.Profile),
	}
}

func (db *memDB) touch() {
	db.calls++
}

func (db *memDB) callCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.calls
}

func inScope(scope, clientID string) bool {
	return scope == "" || scope == clientID
}

func paginate[T any](items []T, opts ports.ListOptions) []T {
	start := opts.Offset()
	if start > len(items) {
		return []T{}
	}
	end := start + opts.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// ---------------------------------------------------------------------------
// Clients
// ---------------------------------------------------------------------------

type memClients struct{ db *memDB }

func (r memClients) Create(_ context.Context, c *domain.Client) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.touch()
	if r.db.createErr != nil {
		return r.db.createErr
	}
	r.db.clients[c.ID] = *c
	return nil
}

func (r memClients) Get(_ context.Context, id string) (*domain.Client, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.touch()
	c, ok := r.db.clients[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r memClients) List(_ context.Context, f ports.ClientFilter) ([]domain.Client, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.touch()
	if r.db.readFailures > 0 {
		r.db.readFailures--
		return nil, 0, domain.ErrStore
	}

	var out []domain.Client
	for _, c := range r.db.clients {
		if f.ID != "" && c.ID != f.ID {
			continue
		}
		if f.Status != "" && string(c.Status) != f.Status {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, f.ListOptions), int64(len(out)), nil
}

func (r memClients) Update(_ context.Context, c *domain.Client) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.touch()
	existing, ok := r.db.clients[c.ID]
	if !ok {
		return domain.ErrNotFound
	}
	c.LinkedUserID = existing.LinkedUserID
	c.CreatedAt = existing.CreatedAt
	r.db.clients[c.ID] = *c
	return nil
}

func (r memClients) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.touch()
	if _, ok := r.db.clients[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.db.clients, id)
	for kid, k := range r.db.keywords {
		if k.ClientID == id {
			delete(r.db.keywords, kid)
		}
	}
	for bid, b := range r.db.backlinks {
		if b.ClientID == id {
			delete(r.db.backlinks, bid)
		}
	}
	return nil
}

func (r memClients) LinkUser(_ context.Context, clientID, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.touch()
	if r.db.linkErr != nil {
		return r.db.linkErr
	}
	c, ok := r.db.clients[clientID]
	if !ok {
		return domain.ErrNotFound
	}
	if c.LinkedUserID != "" {
		return domain.ErrClientLinked
	}
	c.LinkedUserID = userID
	r.db.clients[clientID] = c
	return nil
}

// ---------------------------------------------------------------------------
// Keywords
// ---------------------------------------------------------------------------

type memKeywords struct{ db *memDB }

func (r memKeywords) Create(_ context.Context, k *domain.Keyword) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.touch()
	if r.db.createErr != nil {
		return r.db.createErr
	}
	if _, ok := r.db.clients[k.ClientID]; !ok {
		return domain.NewValidationError("client_id", "client does not exist")
	}
	r.db.keywords[k.ID] = *k
	return nil
}

func (r memKeywords) Get(_ context.Context, id, scope string) (*domain.Keyword, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.touch()
	k, ok := r.db.keywords[id]
	if !ok || !inScope(scope, k.ClientID) {
		return nil, domain.ErrNotFound
	}
	return &k, nil
}

func (r memKeywords) List(_ context.Context, f ports.KeywordFilter) ([]domain.Keyword, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.touch()
	if r.db.readFailures > 0 {
		r.db.readFailures--
		return nil, 0, domain.ErrStore
	}

	var out []domain.Keyword
	for _, k := range r.db.keywords {
		if f.ClientID != "" && k.ClientID != f.ClientID {
			continue
		}
		if f.Search != "" && !strings.Contains(k.Text, f.Search) {
			continue
		}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, f.ListOptions), int64(len(out)), nil
}

func (r memKeywords) Update(_ context.Context, k *domain.Keyword, scope string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.touch()
	existing, ok := r.db.keywords[k.ID]
	if !ok || !inScope(scope, existing.ClientID) {
		return domain.ErrNotFound
	}
	k.BestPosition = minPosition(existing.BestPosition, k.BestPosition)
	r.db.keywords[k.ID] = *k
	return nil
}

func minPosition(a, b *int) *int {
	switch {
	case a == nil:
		return b
	case b == nil || *a < *b:
		return a
	default:
		return b
	}
}

func (r memKeywords) RecordPosition(_ context.Context, id, scope string, position int) (*domain.Keyword, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.touch()
	k, ok := r.db.keywords[id]
	if !ok || !inScope(scope, k.ClientID) {
		return nil, domain.ErrNotFound
	}
	k.RecordPosition(position)
	r.db.keywords[id] = k
	return &k, nil
}

func (r memKeywords) Delete(_ context.Context, id, scope string) (string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.touch()
	k, ok := r.db.keywords[id]
	if !ok || !inScope(scope, k.ClientID) {
		return "", domain.ErrNotFound
	}
	delete(r.db.keywords, id)
	return k.ClientID, nil
}

func (r memKeywords) Stats(_ context.Context, clientID string) (ports.KeywordStats, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.touch()

	var stats ports.KeywordStats
	var sum int
	for _, k := range r.db.keywords {
		if clientID != "" && k.ClientID != clientID {
			continue
		}
		stats.Total++
		if k.CurrentPosition != nil {
			stats.Ranked++
			sum += *k.CurrentPosition
		}
		if k.Improved() {
			stats.Improved++
		}
	}
	if stats.Ranked > 0 {
		stats.AverageRanking = float64(sum) / float64(stats.Ranked)
	}
	return stats, nil
}

// ---------------------------------------------------------------------------
// Backlinks
// ---------------------------------------------------------------------------

type memBacklinks struct{ db *memDB }

func (r memBacklinks) Create(_ context.Context, b *domain.Backlink) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.touch()
	if r.db.createErr != nil {
		return r.db.createErr
	}
	r.db.backlinks[b.ID] = *b
	return nil
}

func (r memBacklinks) Get(_ context.Context, id, scope string) (*domain.Backlink, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.touch()
	b, ok := r.db.backlinks[id]
	if !ok || !inScope(scope, b.ClientID) {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

func (r memBacklinks) List(_ context.Context, f ports.BacklinkFilter) ([]domain.Backlink, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.touch()

	var out []domain.Backlink
	for _, b := range r.db.backlinks {
		if f.ClientID != "" && b.ClientID != f.ClientID {
			continue
		}
		if f.DoFollow != nil && b.DoFollow != *f.DoFollow {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, f.ListOptions), int64(len(out)), nil
}

func (r memBacklinks) Update(_ context.Context, b *domain.Backlink, scope string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.touch()
	existing, ok := r.db.backlinks[b.ID]
	if !ok || !inScope(scope, existing.ClientID) {
		return domain.ErrNotFound
	}
	r.db.backlinks[b.ID] = *b
	return nil
}

func (r memBacklinks) Delete(_ context.Context, id, scope string) (string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.touch()
	b, ok := r.db.backlinks[id]
	if !ok || !inScope(scope, b.ClientID) {
		return "", domain.ErrNotFound
	}
	delete(r.db.backlinks, id)
	return b.ClientID, nil
}

func (r memBacklinks) Count(_ context.Context, clientID string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.touch()
	var n int64
	for _, b := range r.db.backlinks {
		if clientID == "" || b.ClientID == clientID {
			n++
		}
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Identities
// ---------------------------------------------------------------------------

type memIdentities struct{ db *memDB }

func (r memIdentities) FindByEmail(_ context.Context, email string) (*domain.Identity, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, id := range r.db.identities {
		if id.Email == email {
			clone := id
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memIdentities) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.profiles[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for _, c := range r.db.clients {
		if c.LinkedUserID == userID {
			p.ClientID = c.ID
		}
	}
	return &p, nil
}

func (r memIdentities) create(identity *domain.Identity, profile *domain.Profile) error {
	for _, existing := range r.db.identities {
		if existing.Email == identity.Email {
			return domain.ErrEmailTaken
		}
	}
	r.db.identities[identity.ID] = *identity
	r.db.profiles[profile.ID] = *profile
	return nil
}

func (r memIdentities) CreateUser(_ context.Context, identity *domain.Identity, profile *domain.Profile) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.create(identity, profile)
}

func (r memIdentities) CreateAdmin(_ context.Context, identity *domain.Identity, profile *domain.Profile) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.profiles {
		if p.Role == domain.RoleAdmin {
			return domain.ErrAdminExists
		}
	}
	return r.create(identity, profile)
}

func (r memIdentities) AdminExists(_ context.Context) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.profiles {
		if p.Role == domain.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (r memIdentities) DeleteUser(_ context.Context, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.deleteUsrErr != nil {
		return r.db.deleteUsrErr
	}
	delete(r.db.identities, userID)
	delete(r.db.profiles, userID)
	return nil
}

// ---------------------------------------------------------------------------
// Sessions and audit
// ---------------------------------------------------------------------------

type memSessions struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	err     error
}

func newMemSessions() *memSessions {
	return &memSessions{revoked: make(map[string]time.Time)}
}

func (s *memSessions) Revoke(_ context.Context, id string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[id] = until
	return nil
}

func (s *memSessions) IsRevoked(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.revoked[id]
	return ok, nil
}

type memAudit struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (a *memAudit) Record(_ context.Context, e domain.AuditEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
	return nil
}

func (a *memAudit) denied() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, e := range a.events {
		if e.Outcome == domain.AuditDenied {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type fixture struct {
	db       *memDB
	audit    *memAudit
	sessions *memSessions
	tokens   *TokenIssuer
	enforcer *Enforcer
	sessMgr  *SessionManager
	resolver *IdentityResolver
}

func newFixture() *fixture {
	db := newMemDB()
	audit := &memAudit{}
	sessions := newMemSessions()
	tokens := NewTokenIssuer("test-secret", time.Hour)
	enforcer := NewEnforcer(memClients{db}, memKeywords{db}, memBacklinks{db}, audit, discardLogger, time.Second)

	return &fixture{
		db:       db,
		audit:    audit,
		sessions: sessions,
		tokens:   tokens,
		enforcer: enforcer,
		sessMgr:  NewSessionManager(memIdentities{db}, enforcer, sessions, tokens, audit, discardLogger, time.Second),
		resolver: NewIdentityResolver(tokens, sessions, memIdentities{db}, discardLogger),
	}
}

func (f *fixture) seedClient(id, name string) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.clients[id] = domain.Client{ID: id, Name: name, Status: domain.ClientActive, CreatedAt: time.Now()}
}

func (f *fixture) seedKeyword(id, clientID, text string, current, previous *int) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	k := domain.Keyword{ID: id, ClientID: clientID, Text: text, CurrentPosition: current, PreviousPosition: previous}
	k.Reconcile()
	f.db.keywords[id] = k
}

func (f *fixture) seedBacklink(id, clientID string) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.backlinks[id] = domain.Backlink{
		ID:        id,
		ClientID:  clientID,
		SourceURL: "https://blog.example.com/" + id,
		TargetURL: "https://" + clientID + ".example.com",
		DoFollow:  true,
	}
}

func (f *fixture) resetCalls() {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.calls = 0
}

func intp(v int) *int { return &v }

var (
	adminP    = domain.Principal{ID: "u-admin", Role: domain.RoleAdmin}
	client42P = domain.Principal{ID: "u-42", Role: domain.RoleClient, TenantScope: "client-42"}
	noRoleP   = domain.Principal{ID: "u-new", Role: domain.RoleClient}
	anonP     = domain.Anonymous()
)

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rankwise/seo-crm/internal/core/domain"
	"github.com/rankwise/seo-crm/internal/core/ports"
)

func TestEnforcer_Authorize(t *testing.T) {
	e := newFixture().enforcer

	actions := []domain.Action{domain.ActionRead, domain.ActionCreate, domain.ActionUpdate, domain.ActionDelete}
	resources := []domain.ResourceType{domain.ResourceClient, domain.ResourceKeyword, domain.ResourceBacklink}

	for _, a := range actions {
		for _, r := range resources {
			if err := e.Authorize(adminP, a, r, "client-43"); err != nil {
				t.Fatalf("admin %s %s: %v", a, r, err)
			}
			if err := e.Authorize(anonP, a, r, "client-42"); !errors.Is(err, domain.ErrUnauthenticated) {
				t.Fatalf("anonymous %s %s: expected ErrUnauthenticated, got %v", a, r, err)
			}
			if err := e.Authorize(noRoleP, a, r, ""); !errors.Is(err, domain.ErrForbidden) {
				t.Fatalf("no-role %s %s: expected ErrForbidden, got %v", a, r, err)
			}
			if err := e.Authorize(client42P, a, r, "client-43"); !errors.Is(err, domain.ErrForbidden) {
				t.Fatalf("client %s %s on other tenant: expected ErrForbidden, got %v", a, r, err)
			}
		}
	}

	for _, r := range []domain.ResourceType{domain.ResourceKeyword, domain.ResourceBacklink} {
		for _, a := range actions {
			if err := e.Authorize(client42P, a, r, "client-42"); err != nil {
				t.Fatalf("client %s own %s: %v", a, r, err)
			}
		}
	}

	if err := e.Authorize(client42P, domain.ActionRead, domain.ResourceClient, "client-42"); err != nil {
		t.Fatalf("client must read its own client record: %v", err)
	}
	if err := e.Authorize(client42P, domain.ActionUpdate, domain.ResourceClient, "client-42"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("client must not update its client record, got %v", err)
	}
}

func TestEnforcer_ClientCannotDeleteOtherTenantBacklink(t *testing.T) {
	f := newFixture()
	f.seedClient("client-42", "Acme")
	f.seedClient("client-43", "Globex")
	f.seedBacklink("77", "client-43")

	err := f.enforcer.DeleteBacklink(context.Background(), client42P, "77")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, ok := f.db.backlinks["77"]; !ok {
		t.Fatalf("backlink 77 must still exist")
	}
	if f.audit.denied() != 1 {
		t.Fatalf("expected one denied audit event, got %d", f.audit.denied())
	}
}

func TestEnforcer_MissingRowLooksForbiddenToClients(t *testing.T) {
	f := newFixture()
	f.seedClient("client-42", "Acme")
	f.seedClient("client-43", "Globex")
	f.seedKeyword("k-43", "client-43", "globex widgets", nil, nil)

	_, errOther := f.enforcer.GetKeyword(context.Background(), client42P, "k-43")
	_, errMissing := f.enforcer.GetKeyword(context.Background(), client42P, "k-missing")

	if !errors.Is(errOther, domain.ErrForbidden) || !errors.Is(errMissing, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for both, got %v and %v", errOther, errMissing)
	}

	if _, err := f.enforcer.GetKeyword(context.Background(), adminP, "k-missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("admin miss must be ErrNotFound, got %v", err)
	}
}

func TestEnforcer_DeniedCallsNeverReachStore(t *testing.T) {
	f := newFixture()
	f.seedClient("client-43", "Globex")
	f.seedKeyword("k-43", "client-43", "globex widgets", nil, nil)
	f.resetCalls()
	ctx := context.Background()

	for _, p := range []domain.Principal{anonP, noRoleP} {
		if _, err := f.enforcer.ListKeywords(ctx, p, ports.KeywordFilter{}); err == nil {
			t.Fatalf("%s: ListKeywords must fail", p.State())
		}
		if _, err := f.enforcer.GetKeyword(ctx, p, "k-43"); err == nil {
			t.Fatalf("%s: GetKeyword must fail", p.State())
		}
		if err := f.enforcer.DeleteKeyword(ctx, p, "k-43"); err == nil {
			t.Fatalf("%s: DeleteKeyword must fail", p.State())
		}
		if _, err := f.enforcer.ListClients(ctx, p, ports.ClientFilter{}); err == nil {
			t.Fatalf("%s: ListClients must fail", p.State())
		}
	}
	if _, err := f.enforcer.GetClient(ctx, client42P, "client-43"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := f.enforcer.CreateKeyword(ctx, client42P, &domain.Keyword{ClientID: "client-43", Text: "x"}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := f.enforcer.DeleteClient(ctx, client42P, "client-42"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	if n := f.db.callCount(); n != 0 {
		t.Fatalf("expected no storage calls, got %d", n)
	}
}

func TestEnforcer_ClientListIsScoped(t *testing.T) {
	f := newFixture()
	f.seedClient("client-42", "Acme")
	f.seedClient("client-43", "Globex")
	f.seedKeyword("k1", "client-42", "acme anvils", intp(3), nil)
	f.seedKeyword("k2", "client-43", "globex widgets", intp(1), nil)
	f.seedKeyword("k3", "client-42", "acme rockets", nil, nil)
	ctx := context.Background()

	page, err := f.enforcer.ListKeywords(ctx, client42P, ports.KeywordFilter{})
	if err != nil {
		t.Fatalf("ListKeywords: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("expected 2 keywords, got %d", page.Total)
	}
	for _, k := range page.Items {
		if k.ClientID != "client-42" {
			t.Fatalf("leaked keyword of %s", k.ClientID)
		}
	}

	if _, err := f.enforcer.ListKeywords(ctx, client42P, ports.KeywordFilter{ClientID: "client-43"}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("filtering by another tenant must be forbidden, got %v", err)
	}

	all, err := f.enforcer.ListKeywords(ctx, adminP, ports.KeywordFilter{})
	if err != nil {
		t.Fatalf("admin ListKeywords: %v", err)
	}
	if all.Total != 3 {
		t.Fatalf("admin must see all 3 keywords, got %d", all.Total)
	}

	clients, err := f.enforcer.ListClients(ctx, client42P, ports.ClientFilter{})
	if err != nil {
		t.Fatalf("ListClients: %v", err)
	}
	if clients.Total != 1 || clients.Items[0].ID != "client-42" {
		t.Fatalf("client must only list itself, got %+v", clients.Items)
	}
}

func TestEnforcer_UpdateCannotMoveRowAcrossTenants(t *testing.T) {
	f := newFixture()
	f.seedClient("client-42", "Acme")
	f.seedClient("client-43", "Globex")
	f.seedKeyword("k1", "client-42", "acme anvils", intp(3), nil)

	moved := &domain.Keyword{ID: "k1", ClientID: "client-43", Text: "acme anvils"}
	err := f.enforcer.UpdateKeyword(context.Background(), client42P, moved)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if got := f.db.keywords["k1"].ClientID; got != "client-42" {
		t.Fatalf("keyword moved to %s", got)
	}

	if err := f.enforcer.UpdateKeyword(context.Background(), adminP, moved); err != nil {
		t.Fatalf("admin may reassign keywords: %v", err)
	}
	if got := f.db.keywords["k1"].ClientID; got != "client-43" {
		t.Fatalf("expected client-43, got %s", got)
	}
}

func TestEnforcer_UpdateKeepsBestPosition(t *testing.T) {
	f := newFixture()
	f.seedClient("client-42", "Acme")
	f.seedKeyword("k1", "client-42", "acme anvils", intp(2), nil)

	k := &domain.Keyword{ID: "k1", Text: "acme anvils", CurrentPosition: intp(9)}
	if err := f.enforcer.UpdateKeyword(context.Background(), client42P, k); err != nil {
		t.Fatalf("UpdateKeyword: %v", err)
	}
	stored := f.db.keywords["k1"]
	if stored.BestPosition == nil || *stored.BestPosition != 2 {
		t.Fatalf("best position must stay 2, got %v", stored.BestPosition)
	}
	if stored.ClientID != "client-42" {
		t.Fatalf("omitted client id must keep the tenant, got %q", stored.ClientID)
	}
}

func TestEnforcer_RecordKeywordPosition(t *testing.T) {
	f := newFixture()
	f.seedClient("client-42", "Acme")
	f.seedKeyword("k1", "client-42", "acme anvils", intp(5), nil)
	ctx := context.Background()

	for _, pos := range []int{8, 3, 6} {
		if _, err := f.enforcer.RecordKeywordPosition(ctx, client42P, "k1", pos); err != nil {
			t.Fatalf("RecordKeywordPosition(%d): %v", pos, err)
		}
	}
	k := f.db.keywords["k1"]
	if *k.CurrentPosition != 6 || *k.PreviousPosition != 3 || *k.BestPosition != 3 {
		t.Fatalf("unexpected positions: current=%d previous=%d best=%d",
			*k.CurrentPosition, *k.PreviousPosition, *k.BestPosition)
	}

	if _, err := f.enforcer.RecordKeywordPosition(ctx, client42P, "k1", 0); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestEnforcer_DeleteClientCascades(t *testing.T) {
	f := newFixture()
	f.seedClient("client-42", "Acme")
	f.seedKeyword("k1", "client-42", "acme anvils", nil, nil)
	f.seedBacklink("b1", "client-42")

	if err := f.enforcer.DeleteClient(context.Background(), adminP, "client-42"); err != nil {
		t.Fatalf("DeleteClient: %v", err)
	}
	if len(f.db.keywords) != 0 || len(f.db.backlinks) != 0 {
		t.Fatalf("keywords and backlinks must be removed with the client")
	}
	if err := f.enforcer.DeleteClient(context.Background(), adminP, "client-42"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestEnforcer_DeleteAuditCarriesOwningClient(t *testing.T) {
	tests := []struct {
		name     string
		p        domain.Principal
		resource domain.ResourceType
		del      func(e *Enforcer, p domain.Principal) error
	}{
		{"admin deletes keyword", adminP, domain.ResourceKeyword, func(e *Enforcer, p domain.Principal) error {
			return e.DeleteKeyword(context.Background(), p, "k1")
		}},
		{"admin deletes backlink", adminP, domain.ResourceBacklink, func(e *Enforcer, p domain.Principal) error {
			return e.DeleteBacklink(context.Background(), p, "b1")
		}},
		{"client deletes own backlink", client42P, domain.ResourceBacklink, func(e *Enforcer, p domain.Principal) error {
			return e.DeleteBacklink(context.Background(), p, "b1")
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			f.seedClient("client-42", "Acme")
			f.seedKeyword("k1", "client-42", "acme anvils", nil, nil)
			f.seedBacklink("b1", "client-42")

			if err := tc.del(f.enforcer, tc.p); err != nil {
				t.Fatalf("delete: %v", err)
			}

			var found bool
			for _, ev := range f.audit.events {
				if ev.Action != string(domain.ActionDelete) || ev.Resource != tc.resource || ev.Outcome != domain.AuditAllowed {
					continue
				}
				found = true
				if ev.ClientID != "client-42" {
					t.Fatalf("expected audit client_id client-42, got %q", ev.ClientID)
				}
			}
			if !found {
				t.Fatalf("expected an allowed delete audit event, got %+v", f.audit.events)
			}
		})
	}
}

func TestEnforcer_CreateClient_DefaultsAndValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	c := &domain.Client{Name: "  Acme  ", Website: "https://acme.example"}
	if err := f.enforcer.CreateClient(ctx, adminP, c); err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	if c.ID == "" || c.Status != domain.ClientActive || c.Name != "Acme" {
		t.Fatalf("unexpected client: %+v", c)
	}

	bad := &domain.Client{Name: "Bad", Website: "acme.example"}
	if err := f.enforcer.CreateClient(ctx, adminP, bad); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestEnforcer_CreateBacklink_DefaultsAcquiredDate(t *testing.T) {
	f := newFixture()
	f.seedClient("client-42", "Acme")

	b := &domain.Backlink{ClientID: "client-42", SourceURL: "https://blog.example/a", TargetURL: "https://acme.example", DoFollow: true}
	if err := f.enforcer.CreateBacklink(context.Background(), client42P, b); err != nil {
		t.Fatalf("CreateBacklink: %v", err)
	}
	if b.AcquiredDate.IsZero() {
		t.Fatalf("acquired date must default to today")
	}
}

func TestEnforcer_ReadsRetriedOnceMutationsNot(t *testing.T) {
	f := newFixture()
	f.seedClient("client-42", "Acme")
	ctx := context.Background()

	f.db.readFailures = 1
	if _, err := f.enforcer.ListKeywords(ctx, client42P, ports.KeywordFilter{}); err != nil {
		t.Fatalf("single transient failure must be retried, got %v", err)
	}

	f.db.readFailures = 2
	if _, err := f.enforcer.ListKeywords(ctx, client42P, ports.KeywordFilter{}); !errors.Is(err, domain.ErrStore) {
		t.Fatalf("expected ErrStore after one retry, got %v", err)
	}

	f.db.createErr = domain.ErrStore
	f.resetCalls()
	err := f.enforcer.CreateKeyword(ctx, client42P, &domain.Keyword{ClientID: "client-42", Text: "anvils"})
	if !errors.Is(err, domain.ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
	if n := f.db.callCount(); n != 1 {
		t.Fatalf("mutations must not be retried, got %d calls", n)
	}
}

func TestEnforcer_ConcurrentReadsAreIsolated(t *testing.T) {
	f := newFixture()
	f.seedClient("client-42", "Acme")
	f.seedClient("client-43", "Globex")
	f.seedKeyword("k1", "client-42", "acme", nil, nil)
	f.seedKeyword("k2", "client-43", "globex", nil, nil)
	client43P := domain.Principal{ID: "u-43", Role: domain.RoleClient, TenantScope: "client-43"}

	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		for _, p := range []domain.Principal{client42P, client43P} {
			go func(p domain.Principal) {
				page, err := f.enforcer.ListKeywords(context.Background(), p, ports.KeywordFilter{})
				if err == nil {
					for _, k := range page.Items {
						if k.ClientID != p.TenantScope {
							err = errors.New("cross-tenant row returned")
						}
					}
				}
				errs <- err
			}(p)
		}
	}
	for i := 0; i < 40; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("concurrent list: %v", err)
		}
	}
}

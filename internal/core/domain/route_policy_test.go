package domain

import "testing"

var (
	admin    = Principal{ID: "u-admin", Role: RoleAdmin}
	client42 = Principal{ID: "u-42", Role: RoleClient, TenantScope: "client-42"}
	noRole   = Principal{ID: "u-new", Role: RoleClient}
	anon     = Anonymous()
)

func TestClassifyPath(t *testing.T) {
	cases := map[string]RouteClass{
		"/":                   RoutePublic,
		"":                    RoutePublic,
		"/login":              RoutePublic,
		"/register":           RoutePublic,
		"/auth/login":         RoutePublic,
		"/admin/setup":        RoutePublic,
		"/admin/setup/":       RoutePublic,
		"/health/ready":       RoutePublic,
		"/swagger/index.html": RoutePublic,
		"/swagger":            RoutePublic,
		"/dashboard":          RouteDashboardAlias,
		"/admin":              RouteAdminOnly,
		"/admin/dashboard":    RouteAdminOnly,
		"/admin/clients/1":    RouteAdminOnly,
		"/admin/../admin/x":   RouteAdminOnly,
		"/administrator":      RouteAuthenticated,
		"/client":             RouteClientOnly,
		"/client/dashboard":   RouteClientOnly,
		"/clients":            RouteAuthenticated,
		"/keywords/abc":       RouteAuthenticated,
		"/auth/me":            RouteAuthenticated,
	}
	for path, want := range cases {
		if got := ClassifyPath(path); got != want {
			t.Errorf("ClassifyPath(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestDecideRoute_Table(t *testing.T) {
	cases := []struct {
		name     string
		p        Principal
		path     string
		allowed  bool
		redirect string
	}{
		{"anon public", anon, "/login", true, ""},
		{"anon protected", anon, "/keywords", false, PathLogin},
		{"anon admin", anon, "/admin/dashboard", false, PathLogin},
		{"anon alias", anon, "/dashboard", false, PathLogin},
		{"admin alias", admin, "/dashboard", false, PathAdminDashboard},
		{"client alias", client42, "/dashboard", false, PathClientDashboard},
		{"no role alias", noRole, "/dashboard", false, PathLogin},
		{"admin on admin", admin, "/admin/clients", true, ""},
		{"admin on client area", admin, "/client/dashboard", false, PathAdminDashboard},
		{"client on client area", client42, "/client/dashboard", true, ""},
		{"client on admin area", client42, "/admin/dashboard", false, PathClientDashboard},
		{"no role on client area", noRole, "/client/dashboard", false, PathLogin},
		{"no role on admin area", noRole, "/admin/clients", false, PathLogin},
		{"no role on shared", noRole, "/keywords", true, ""},
		{"client on setup", client42, "/admin/setup", true, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := DecideRoute(tc.p, tc.path)
			if d.Allowed != tc.allowed {
				t.Fatalf("allowed: got %v, want %v", d.Allowed, tc.allowed)
			}
			if d.RedirectTo != tc.redirect {
				t.Fatalf("redirect: got %q, want %q", d.RedirectTo, tc.redirect)
			}
		})
	}
}

func TestDecideRoute_UnauthenticatedFlag(t *testing.T) {
	if d := DecideRoute(anon, "/admin/clients"); !d.Unauthenticated {
		t.Fatalf("anonymous caller must be flagged unauthenticated")
	}
	if d := DecideRoute(client42, "/admin/clients"); d.Unauthenticated {
		t.Fatalf("wrong-role caller must not be flagged unauthenticated")
	}
}

// Following a redirect must land on a page the same principal is allowed to
// see, so a second decision never redirects again.
func TestDecideRoute_RedirectsConverge(t *testing.T) {
	principals := []Principal{admin, client42, noRole, anon}
	paths := []string{
		"/dashboard", "/admin", "/admin/dashboard", "/admin/clients/9",
		"/client", "/client/dashboard", "/keywords", "/backlinks/1", "/",
	}

	for _, p := range principals {
		for _, path := range paths {
			first := DecideRoute(p, path)
			if first.Allowed {
				continue
			}
			second := DecideRoute(p, first.RedirectTo)
			if !second.Allowed {
				t.Fatalf("%s on %s: redirect to %s is not allowed (next: %q)",
					p.State(), path, first.RedirectTo, second.RedirectTo)
			}
		}
	}
}

func TestPrincipalState(t *testing.T) {
	cases := map[SessionState]Principal{
		StateUnauthenticated: {Role: RoleAdmin},
		StateAdmin:           admin,
		StateClient:          client42,
		StateNoRole:          noRole,
	}
	for want, p := range cases {
		if got := p.State(); got != want {
			t.Errorf("State() = %s, want %s", got, want)
		}
	}
}

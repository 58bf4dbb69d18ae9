package domain

import (
	"path"
	"strings"
)

const (
	PathHome            = "/"
	PathLogin           = "/login"
	PathRegister        = "/register"
	PathDashboard       = "/dashboard"
	PathAdminDashboard  = "/admin/dashboard"
	PathClientDashboard = "/client/dashboard"
	PathAdminSetup      = "/admin/setup"
)

// RouteClass is the access class of a request path.
type RouteClass int

const (
	RoutePublic RouteClass = iota
	RouteAdminOnly
	RouteClientOnly
	RouteAuthenticated
	// RouteDashboardAlias resolves to the role's own dashboard.
	RouteDashboardAlias
)

func (c RouteClass) String() string {
	switch c {
	case RoutePublic:
		return "public"
	case RouteAdminOnly:
		return "admin_only"
	case RouteClientOnly:
		return "client_only"
	case RouteDashboardAlias:
		return "dashboard_alias"
	default:
		return "authenticated"
	}
}

var publicPaths = map[string]struct{}{
	PathHome:         {},
	PathLogin:        {},
	PathRegister:     {},
	PathAdminSetup:   {},
	"/auth/login":    {},
	"/auth/register": {},
	"/health":        {},
	"/health/ready":  {},
	"/metrics":       {},
}

var publicPrefixes = []string{"/swagger"}

// ClassifyPath maps a request path to its RouteClass. Unknown paths are
// treated as authenticated.
func ClassifyPath(p string) RouteClass {
	p = cleanPath(p)

	if _, ok := publicPaths[p]; ok {
		return RoutePublic
	}
	for _, prefix := range publicPrefixes {
		if hasSegmentPrefix(p, prefix) {
			return RoutePublic
		}
	}

	switch {
	case p == PathDashboard:
		return RouteDashboardAlias
	case hasSegmentPrefix(p, "/admin"), hasSegmentPrefix(p, "/api/admin"):
		return RouteAdminOnly
	case hasSegmentPrefix(p, "/client"), hasSegmentPrefix(p, "/api/client"):
		return RouteClientOnly
	default:
		return RouteAuthenticated
	}
}

// RouteDecision is the outcome of DecideRoute. When Allowed is false,
// RedirectTo names the page the caller is sent to and Unauthenticated tells
// whether the caller lacks a session (as opposed to the wrong role).
type RouteDecision struct {
	Class           RouteClass
	Allowed         bool
	RedirectTo      string
	Unauthenticated bool
}

// DecideRoute is a pure function of principal and path.
func DecideRoute(p Principal, requestPath string) RouteDecision {
	class := ClassifyPath(requestPath)
	state := p.State()
	d := RouteDecision{Class: class}

	if class == RoutePublic {
		d.Allowed = true
		return d
	}

	if state == StateUnauthenticated {
		d.RedirectTo = PathLogin
		d.Unauthenticated = true
		return d
	}

	switch class {
	case RouteDashboardAlias:
		d.RedirectTo = DashboardFor(p)
	case RouteAdminOnly:
		switch state {
		case StateAdmin:
			d.Allowed = true
		case StateClient:
			d.RedirectTo = PathClientDashboard
		default:
			d.RedirectTo = PathLogin
		}
	case RouteClientOnly:
		switch state {
		case StateClient:
			d.Allowed = true
		case StateAdmin:
			d.RedirectTo = PathAdminDashboard
		default:
			d.RedirectTo = PathLogin
		}
	default:
		d.Allowed = true
	}
	return d
}

// DashboardFor returns the dashboard page of p's role.
func DashboardFor(p Principal) string {
	switch p.State() {
	case StateAdmin:
		return PathAdminDashboard
	case StateClient:
		return PathClientDashboard
	default:
		return PathLogin
	}
}

func cleanPath(p string) string {
	if p == "" {
		return PathHome
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func hasSegmentPrefix(p, prefix string) bool {
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

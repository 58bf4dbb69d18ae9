package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rankwise/seo-crm/internal/core/domain"
	"github.com/rankwise/seo-crm/internal/pkg/metrics"
)

// Gate applies the route policy before any handler runs. Page navigations
// that are not allowed are redirected; API calls get 401 or 403.
func Gate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			d := domain.DecideRoute(domain.PrincipalFrom(req.Context()), req.URL.Path)
			class := d.Class.String()

			if d.Allowed {
				metrics.RouteDecisionsTotal.WithLabelValues(class, "allowed").Inc()
				return next(c)
			}

			if d.Class == domain.RouteDashboardAlias || isNavigation(req) {
				metrics.RouteDecisionsTotal.WithLabelValues(class, "redirected").Inc()
				return c.Redirect(http.StatusFound, d.RedirectTo)
			}

			metrics.RouteDecisionsTotal.WithLabelValues(class, "rejected").Inc()
			if d.Unauthenticated {
				return domain.ErrUnauthenticated
			}
			return domain.ErrForbidden
		}
	}
}

// RequireRole rejects principals whose role is not listed. It backs up Gate on
// route groups whose role is fixed.
func RequireRole(roles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := domain.PrincipalFrom(c.Request().Context())
			if !p.IsAuthenticated() {
				return domain.ErrUnauthenticated
			}
			if _, ok := allowed[p.Role]; !ok {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}

// isNavigation reports whether the request is a browser page load rather than
// an API call.
func isNavigation(req *http.Request) bool {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return false
	}
	p := req.URL.Path
	if strings.HasPrefix(p, "/api/") || strings.HasPrefix(p, "/auth/") {
		return false
	}
	return !strings.Contains(req.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

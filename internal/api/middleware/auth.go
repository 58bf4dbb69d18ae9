package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rankwise/seo-crm/internal/core/domain"
	"github.com/rankwise/seo-crm/internal/core/ports"
)

// PrincipalKey is the echo context key holding the request principal.
const PrincipalKey = "principal"

// Authenticate resolves the session credential into a principal and stores it
// on the request context. It never rejects: requests without a valid session
// continue as anonymous and Gate decides what they may reach.
func Authenticate(resolver ports.IdentityResolver, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			p := domain.Anonymous()
			if raw := credential(c, cookieName); raw != "" {
				p = resolver.Resolve(req.Context(), raw)
			}

			c.SetRequest(req.WithContext(domain.WithPrincipal(req.Context(), p)))
			c.Set(PrincipalKey, p)

			return next(c)
		}
	}
}

// credential prefers a bearer token over the session cookie. A malformed
// Authorization header yields no credential at all.
func credential(c echo.Context, cookieName string) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return ""
		}
		return strings.TrimSpace(parts[1])
	}

	if cookieName == "" {
		return ""
	}
	ck, err := c.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return ck.Value
}

package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rankwise/seo-crm/internal/core/domain"
	"github.com/rankwise/seo-crm/internal/core/ports"
)

// principal returns the request principal placed by the Authenticate
// middleware. Handlers never decide access themselves; they pass it on.
func principal(c echo.Context) domain.Principal {
	return domain.PrincipalFrom(c.Request().Context())
}

// bindAndValidate decodes the request body into req and runs struct validation.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(req)
}

// listOptions reads ?page=&limit=&sort=&order= from the query string.
func listOptions(c echo.Context) (ports.ListOptions, error) {
	var (
		opts  ports.ListOptions
		order string
	)
	err := echo.QueryParamsBinder(c).
		Int("page", &opts.Page).
		Int("limit", &opts.Limit).
		String("sort", &opts.Sort).
		String("order", &order).
		BindError()
	if err != nil {
		return opts, domain.NewValidationError("query", "page and limit must be integers")
	}
	if opts.Page > ports.MaxPage {
		return opts, domain.NewValidationError("page", fmt.Sprintf("page must not exceed %d", ports.MaxPage))
	}

	opts.Desc = strings.EqualFold(order, "desc")
	opts.Normalize()
	return opts, nil
}

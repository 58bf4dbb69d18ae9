package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rankwise/seo-crm/internal/core/domain"
	"github.com/rankwise/seo-crm/internal/core/ports"
)

type DashboardHandler struct {
	dashboards ports.DashboardService
}

func NewDashboardHandler(dashboards ports.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards}
}

// Landing handles GET /.
//
// @Summary      Landing
// @Tags         pages
// @Produce      json
// @Success      200  {object}  landingResponse
// @Router       / [get]
func (h *DashboardHandler) Landing(c echo.Context) error {
	resp := landingResponse{
		Name:     "SEO CRM",
		Login:    domain.PathLogin,
		Register: domain.PathRegister,
	}
	if p := principal(c); p.IsAuthenticated() {
		resp.Dashboard = domain.DashboardFor(p)
	}
	return c.JSON(http.StatusOK, resp)
}

// LoginPage handles GET /login. Signed-in users are sent to their dashboard.
//
// @Summary      Login page
// @Tags         pages
// @Produce      json
// @Success      200  {object}  landingResponse
// @Success      302
// @Router       /login [get]
func (h *DashboardHandler) LoginPage(c echo.Context) error {
	p := principal(c)
	if p.State() == domain.StateAdmin || p.State() == domain.StateClient {
		return c.Redirect(http.StatusFound, domain.DashboardFor(p))
	}
	return c.JSON(http.StatusOK, landingResponse{
		Name:     "SEO CRM",
		Login:    "/auth/login",
		Register: domain.PathRegister,
	})
}

// Redirect handles GET /dashboard by sending the caller to the dashboard of
// their role.
//
// @Summary      Dashboard alias
// @Tags         pages
// @Security     BearerAuth
// @Success      302
// @Router       /dashboard [get]
func (h *DashboardHandler) Redirect(c echo.Context) error {
	return c.Redirect(http.StatusFound, domain.DashboardFor(principal(c)))
}

// Admin handles GET /admin/dashboard.
//
// @Summary      Admin dashboard
// @Tags         dashboards
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ports.AdminDashboard
// @Failure      403  {object}  errorResponse
// @Router       /admin/dashboard [get]
func (h *DashboardHandler) Admin(c echo.Context) error {
	dash, err := h.dashboards.AdminDashboard(c.Request().Context(), principal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dash)
}

// Client handles GET /client/dashboard.
//
// @Summary      Client dashboard
// @Tags         dashboards
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ports.ClientDashboard
// @Failure      403  {object}  errorResponse
// @Router       /client/dashboard [get]
func (h *DashboardHandler) Client(c echo.Context) error {
	dash, err := h.dashboards.ClientDashboard(c.Request().Context(), principal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dash)
}

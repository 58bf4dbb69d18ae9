package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rankwise/seo-crm/internal/core/domain"
	"github.com/rankwise/seo-crm/internal/core/ports"
)

type BacklinkHandler struct {
	enforcer ports.ScopeEnforcer
}

func NewBacklinkHandler(enforcer ports.ScopeEnforcer) *BacklinkHandler {
	return &BacklinkHandler{enforcer: enforcer}
}

// List handles GET /api/backlinks.
//
// @Summary      List backlinks
// @Tags         backlinks
// @Produce      json
// @Security     BearerAuth
// @Param        client_id  query     string  false  "Filter by client (admins only)"
// @Param        do_follow  query     bool    false  "Filter by follow attribute"
// @Param        sort       query     string  false  "source_url, cost, acquired_date, created_at or updated_at"
// @Param        order      query     string  false  "asc or desc"
// @Param        page       query     int     false  "Page (1-based)"
// @Param        limit      query     int     false  "Page size (max 100)"
// @Success      200        {object}  ports.Page[domain.Backlink]
// @Failure      401        {object}  errorResponse
// @Failure      403        {object}  errorResponse
// @Router       /api/backlinks [get]
func (h *BacklinkHandler) List(c echo.Context) error {
	opts, err := listOptions(c)
	if err != nil {
		return err
	}

	f := ports.BacklinkFilter{ClientID: c.QueryParam("client_id"), ListOptions: opts}
	if raw := c.QueryParam("do_follow"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return domain.NewValidationError("do_follow", "do_follow must be true or false")
		}
		f.DoFollow = &v
	}

	page, err := h.enforcer.ListBacklinks(c.Request().Context(), principal(c), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Get handles GET /api/backlinks/:id.
//
// @Summary      Get a backlink
// @Tags         backlinks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Backlink ID"
// @Success      200  {object}  domain.Backlink
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/backlinks/{id} [get]
func (h *BacklinkHandler) Get(c echo.Context) error {
	b, err := h.enforcer.GetBacklink(c.Request().Context(), principal(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

// Create handles POST /api/backlinks. do_follow defaults to true and
// acquired_date to today.
//
// @Summary      Record a backlink
// @Tags         backlinks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      backlinkRequest  true  "Backlink"
// @Success      201   {object}  domain.Backlink
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/backlinks [post]
func (h *BacklinkHandler) Create(c echo.Context) error {
	var req backlinkRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	p := principal(c)
	b := req.toDomain("")
	b.ClientID = ownClient(p, b.ClientID)
	if err := h.enforcer.CreateBacklink(c.Request().Context(), p, b); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, b)
}

// Update handles PUT /api/backlinks/:id.
//
// @Summary      Update a backlink
// @Tags         backlinks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string           true  "Backlink ID"
// @Param        body  body      backlinkRequest  true  "Backlink"
// @Success      200   {object}  domain.Backlink
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/backlinks/{id} [put]
func (h *BacklinkHandler) Update(c echo.Context) error {
	var req backlinkRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	b := req.toDomain(c.Param("id"))
	if err := h.enforcer.UpdateBacklink(c.Request().Context(), principal(c), b); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

// Delete handles DELETE /api/backlinks/:id.
//
// @Summary      Delete a backlink
// @Tags         backlinks
// @Security     BearerAuth
// @Param        id   path  string  true  "Backlink ID"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/backlinks/{id} [delete]
func (h *BacklinkHandler) Delete(c echo.Context) error {
	if err := h.enforcer.DeleteBacklink(c.Request().Context(), principal(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rankwise/seo-crm/internal/core/ports"
)

// ClientHandler handles HTTP requests for client records. Every call goes
// through the scope enforcer.
type ClientHandler struct {
	enforcer ports.ScopeEnforcer
}

func NewClientHandler(enforcer ports.ScopeEnforcer) *ClientHandler {
	return &ClientHandler{enforcer: enforcer}
}

// List handles GET /api/clients. Client users only ever see their own record.
//
// @Summary      List clients
// @Tags         clients
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "active, pending or inactive"
// @Param        q       query     string  false  "Search name or contact email"
// @Param        sort    query     string  false  "name, status, created_at or updated_at"
// @Param        order   query     string  false  "asc or desc"
// @Param        page    query     int     false  "Page (1-based)"
// @Param        limit   query     int     false  "Page size (max 100)"
// @Success      200     {object}  ports.Page[domain.Client]
// @Failure      401     {object}  errorResponse
// @Failure      403     {object}  errorResponse
// @Router       /api/clients [get]
func (h *ClientHandler) List(c echo.Context) error {
	opts, err := listOptions(c)
	if err != nil {
		return err
	}

	page, err := h.enforcer.ListClients(c.Request().Context(), principal(c), ports.ClientFilter{
		Status:      c.QueryParam("status"),
		Search:      c.QueryParam("q"),
		ListOptions: opts,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Get handles GET /api/clients/:id.
//
// @Summary      Get a client
// @Tags         clients
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Client ID"
// @Success      200  {object}  domain.Client
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/clients/{id} [get]
func (h *ClientHandler) Get(c echo.Context) error {
	client, err := h.enforcer.GetClient(c.Request().Context(), principal(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, client)
}

// Create handles POST /api/clients. Admin only.
//
// @Summary      Create a client
// @Tags         clients
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      clientRequest  true  "Client"
// @Success      201   {object}  domain.Client
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/clients [post]
func (h *ClientHandler) Create(c echo.Context) error {
	var req clientRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	client := req.toDomain("")
	if err := h.enforcer.CreateClient(c.Request().Context(), principal(c), client); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, client)
}

// Update handles PUT /api/clients/:id. Admin only.
//
// @Summary      Update a client
// @Tags         clients
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string         true  "Client ID"
// @Param        body  body      clientRequest  true  "Client"
// @Success      200   {object}  domain.Client
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/clients/{id} [put]
func (h *ClientHandler) Update(c echo.Context) error {
	var req clientRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	client := req.toDomain(c.Param("id"))
	if err := h.enforcer.UpdateClient(c.Request().Context(), principal(c), client); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, client)
}

// Delete handles DELETE /api/clients/:id. Keywords and backlinks go with it.
//
// @Summary      Delete a client
// @Tags         clients
// @Security     BearerAuth
// @Param        id   path  string  true  "Client ID"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/clients/{id} [delete]
func (h *ClientHandler) Delete(c echo.Context) error {
	if err := h.enforcer.DeleteClient(c.Request().Context(), principal(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rankwise/seo-crm/internal/core/domain"
	"github.com/rankwise/seo-crm/internal/core/ports"
)

type KeywordHandler struct {
	enforcer ports.ScopeEnforcer
}

func NewKeywordHandler(enforcer ports.ScopeEnforcer) *KeywordHandler {
	return &KeywordHandler{enforcer: enforcer}
}

// ownClient defaults an omitted client_id to the caller's tenant.
func ownClient(p domain.Principal, clientID string) string {
	if clientID == "" && p.IsTenant() {
		return p.TenantScope
	}
	return clientID
}

// List handles GET /api/keywords.
//
// @Summary      List keywords
// @Tags         keywords
// @Produce      json
// @Security     BearerAuth
// @Param        client_id  query     string  false  "Filter by client (admins only)"
// @Param        q          query     string  false  "Search keyword text"
// @Param        sort       query     string  false  "keyword, current_position, best_position, created_at or updated_at"
// @Param        order      query     string  false  "asc or desc"
// @Param        page       query     int     false  "Page (1-based)"
// @Param        limit      query     int     false  "Page size (max 100)"
// @Success      200        {object}  ports.Page[domain.Keyword]
// @Failure      401        {object}  errorResponse
// @Failure      403        {object}  errorResponse
// @Router       /api/keywords [get]
func (h *KeywordHandler) List(c echo.Context) error {
	opts, err := listOptions(c)
	if err != nil {
		return err
	}

	page, err := h.enforcer.ListKeywords(c.Request().Context(), principal(c), ports.KeywordFilter{
		ClientID:    c.QueryParam("client_id"),
		Search:      c.QueryParam("q"),
		ListOptions: opts,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Get handles GET /api/keywords/:id.
//
// @Summary      Get a keyword
// @Tags         keywords
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Keyword ID"
// @Success      200  {object}  domain.Keyword
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/keywords/{id} [get]
func (h *KeywordHandler) Get(c echo.Context) error {
	k, err := h.enforcer.GetKeyword(c.Request().Context(), principal(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, k)
}

// Create handles POST /api/keywords.
//
// @Summary      Track a keyword
// @Tags         keywords
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      keywordRequest  true  "Keyword"
// @Success      201   {object}  domain.Keyword
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/keywords [post]
func (h *KeywordHandler) Create(c echo.Context) error {
	var req keywordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	p := principal(c)
	k := req.toDomain("")
	k.ClientID = ownClient(p, k.ClientID)
	if err := h.enforcer.CreateKeyword(c.Request().Context(), p, k); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, k)
}

// Update handles PUT /api/keywords/:id. best_position never gets worse.
//
// @Summary      Update a keyword
// @Tags         keywords
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string          true  "Keyword ID"
// @Param        body  body      keywordRequest  true  "Keyword"
// @Success      200   {object}  domain.Keyword
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/keywords/{id} [put]
func (h *KeywordHandler) Update(c echo.Context) error {
	var req keywordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	k := req.toDomain(c.Param("id"))
	if err := h.enforcer.UpdateKeyword(c.Request().Context(), principal(c), k); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, k)
}

// RecordPosition handles PUT /api/keywords/:id/position.
//
// @Summary      Record a new ranking observation
// @Tags         keywords
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string           true  "Keyword ID"
// @Param        body  body      positionRequest  true  "Observed position"
// @Success      200   {object}  domain.Keyword
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/keywords/{id}/position [put]
func (h *KeywordHandler) RecordPosition(c echo.Context) error {
	var req positionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	k, err := h.enforcer.RecordKeywordPosition(c.Request().Context(), principal(c), c.Param("id"), req.Position)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, k)
}

// Delete handles DELETE /api/keywords/:id.
//
// @Summary      Delete a keyword
// @Tags         keywords
// @Security     BearerAuth
// @Param        id   path  string  true  "Keyword ID"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/keywords/{id} [delete]
func (h *KeywordHandler) Delete(c echo.Context) error {
	if err := h.enforcer.DeleteKeyword(c.Request().Context(), principal(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rankwise/seo-crm/internal/core/ports"
)

// ImportHandler accepts parsed CSV/XLSX rows for bulk creation.
type ImportHandler struct {
	imports ports.ImportService
}

func NewImportHandler(imports ports.ImportService) *ImportHandler {
	return &ImportHandler{imports: imports}
}

// Keywords handles POST /api/keywords/import.
//
// @Summary      Bulk import keywords
// @Tags         keywords
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      importRequest  true  "client_id and rows"
// @Success      200   {object}  ports.ImportReport  "every row imported"
// @Success      207   {object}  ports.ImportReport  "some rows failed"
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  ports.ImportReport  "no row imported"
// @Router       /api/keywords/import [post]
func (h *ImportHandler) Keywords(c echo.Context) error {
	var req importRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	p := principal(c)
	report, err := h.imports.ImportKeywords(c.Request().Context(), p, ownClient(p, req.ClientID), req.importRows())
	if err != nil {
		return err
	}
	return c.JSON(reportStatus(report), report)
}

// Backlinks handles POST /api/backlinks/import.
//
// @Summary      Bulk import backlinks
// @Tags         backlinks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      importRequest  true  "client_id and rows"
// @Success      200   {object}  ports.ImportReport  "every row imported"
// @Success      207   {object}  ports.ImportReport  "some rows failed"
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  ports.ImportReport  "no row imported"
// @Router       /api/backlinks/import [post]
func (h *ImportHandler) Backlinks(c echo.Context) error {
	var req importRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	p := principal(c)
	report, err := h.imports.ImportBacklinks(c.Request().Context(), p, ownClient(p, req.ClientID), req.importRows())
	if err != nil {
		return err
	}
	return c.JSON(reportStatus(report), report)
}

func reportStatus(r *ports.ImportReport) int {
	switch {
	case r.Failed == 0:
		return http.StatusOK
	case r.Imported == 0:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusMultiStatus
	}
}

// cellString renders a decoded JSON cell the way a spreadsheet would show it.
func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

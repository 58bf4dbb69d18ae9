package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/rankwise/seo-crm/internal/core/domain"
	"github.com/rankwise/seo-crm/internal/core/ports"
)

func TestImportHandler_StatusFollowsReport(t *testing.T) {
	tests := []struct {
		name     string
		report   ports.ImportReport
		wantCode int
	}{
		{"all rows imported", ports.ImportReport{Imported: 3}, http.StatusOK},
		{"some rows failed", ports.ImportReport{Imported: 2, Failed: 1, Errors: []ports.RowError{{Row: 2, Error: "keyword is required"}}}, http.StatusMultiStatus},
		{"no row imported", ports.ImportReport{Failed: 2}, http.StatusUnprocessableEntity},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			report := tc.report
			stub := &stubImports{report: &report}
			c, rec := newContext(adminP, http.MethodPost, "/api/keywords/import", `{"client_id":"client-42","rows":[{"keyword":"shoes"}]}`)

			if err := NewImportHandler(stub).Keywords(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rec.Code)
			}
		})
	}
}

func TestImportHandler_StringifiesCells(t *testing.T) {
	stub := &stubImports{report: &ports.ImportReport{Imported: 1}}
	c, _ := newContext(clientP, http.MethodPost, "/api/backlinks/import",
		`{"data":[{"source_url":"https://blog.test","target_url":"https://acme.test","cost":12.5,"do_follow":false,"anchor_text":null}]}`)

	if err := NewImportHandler(stub).Backlinks(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if stub.clientID != "client-42" {
		t.Fatalf("expected tenant client-42, got %q", stub.clientID)
	}
	if len(stub.rows) != 1 {
		t.Fatalf("expected one row, got %d", len(stub.rows))
	}
	row := stub.rows[0]
	if row["cost"] != "12.5" || row["do_follow"] != "false" || row["anchor_text"] != "" {
		t.Fatalf("unexpected row: %+v", row)
	}
}

func TestImportHandler_ForbiddenBatch(t *testing.T) {
	stub := &stubImports{err: domain.ErrForbidden}
	c, rec := newContext(clientP, http.MethodPost, "/api/keywords/import", `{"client_id":"client-7","rows":[{"keyword":"shoes"}]}`)

	if err := NewImportHandler(stub).Keywords(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if stub.clientID != "client-7" {
		t.Fatalf("an explicit client_id must reach the service unchanged, got %q", stub.clientID)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected no body, got %s", rec.Body.String())
	}
}

func TestImportHandler_MalformedBody(t *testing.T) {
	c, _ := newContext(adminP, http.MethodPost, "/api/keywords/import", `{"rows":`)

	err := NewImportHandler(&stubImports{}).Keywords(c)
	if err == nil {
		t.Fatal("expected an error for a malformed body")
	}
	if errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected a bind error, got %v", err)
	}
}

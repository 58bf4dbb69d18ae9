package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rankwise/seo-crm/internal/core/domain"
	"github.com/rankwise/seo-crm/internal/core/ports"
	"github.com/rankwise/seo-crm/internal/pkg/metrics"
)

const maxImportRows = 5000

type importService struct {
	enforcer ports.ScopeEnforcer
	log      zerolog.Logger
}

// NewImportService returns an ImportService that writes every row through
// the enforcer.
func NewImportService(enforcer ports.ScopeEnforcer, log zerolog.Logger) ports.ImportService {
	return &importService{enforcer: enforcer, log: log}
}

// ImportKeywords checks the tenant once for the whole batch, then stores each
// row independently.
func (s *importService) ImportKeywords(ctx context.Context, p domain.Principal, clientID string, rows []ports.ImportRow) (*ports.ImportReport, error) {
	if err := s.admit(p, domain.ResourceKeyword, clientID, rows); err != nil {
		return nil, err
	}

	report := &ports.ImportReport{Errors: []ports.RowError{}}
	for i, raw := range rows {
		if err := ctx.Err(); err != nil {
			s.abandon(report, domain.ResourceKeyword, i, len(rows), err)
			break
		}
		k, err := parseKeywordRow(clientID, normalizeRow(raw))
		if err == nil {
			err = s.enforcer.CreateKeyword(ctx, p, k)
		}
		s.tally(report, domain.ResourceKeyword, i+1, err)
	}

	s.log.Info().
		Str("client_id", clientID).
		Int("imported", report.Imported).
		Int("failed", report.Failed).
		Msg("keyword import finished")
	return report, nil
}

func (s *importService) ImportBacklinks(ctx context.Context, p domain.Principal, clientID string, rows []ports.ImportRow) (*ports.ImportReport, error) {
	if err := s.admit(p, domain.ResourceBacklink, clientID, rows); err != nil {
		return nil, err
	}

	today := domain.AcquiredToday(time.Now())
	report := &ports.ImportReport{Errors: []ports.RowError{}}
	for i, raw := range rows {
		if err := ctx.Err(); err != nil {
			s.abandon(report, domain.ResourceBacklink, i, len(rows), err)
			break
		}
		b, err := parseBacklinkRow(clientID, normalizeRow(raw), today)
		if err == nil {
			err = s.enforcer.CreateBacklink(ctx, p, b)
		}
		s.tally(report, domain.ResourceBacklink, i+1, err)
	}

	s.log.Info().
		Str("client_id", clientID).
		Int("imported", report.Imported).
		Int("failed", report.Failed).
		Msg("backlink import finished")
	return report, nil
}

func (s *importService) admit(p domain.Principal, resource domain.ResourceType, clientID string, rows []ports.ImportRow) error {
	if err := s.enforcer.Authorize(p, domain.ActionCreate, resource, clientID); err != nil {
		s.log.Warn().
			Str("principal", p.ID).
			Str("resource", string(resource)).
			Str("client_id", clientID).
			Msg("import rejected")
		return err
	}

	ve := &domain.ValidationError{}
	if clientID == "" {
		ve.Add("client_id", "client_id is required")
	}
	switch {
	case len(rows) == 0:
		ve.Add("rows", "at least one row is required")
	case len(rows) > maxImportRows:
		ve.Add("rows", fmt.Sprintf("at most %d rows can be imported at once", maxImportRows))
	}
	return ve.OrNil()
}

func (s *importService) tally(report *ports.ImportReport, resource domain.ResourceType, row int, err error) {
	if err == nil {
		report.Imported++
		metrics.ImportRowsTotal.WithLabelValues(string(resource), "imported").Inc()
		return
	}

	report.Failed++
	metrics.ImportRowsTotal.WithLabelValues(string(resource), "failed").Inc()

	re := ports.RowError{Row: row, Error: rowMessage(err)}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		re.Fields = ve.Fields
	}
	if !isExpectedRowError(err) {
		s.log.Error().Err(err).Int("row", row).Str("resource", string(resource)).Msg("import row failed")
	}
	report.Errors = append(report.Errors, re)
}

// abandon marks rows [from, total) as failed once the request is gone.
func (s *importService) abandon(report *ports.ImportReport, resource domain.ResourceType, from, total int, cause error) {
	s.log.Warn().Err(cause).Int("remaining", total-from).Msg("import interrupted")
	for row := from + 1; row <= total; row++ {
		report.Failed++
		metrics.ImportRowsTotal.WithLabelValues(string(resource), "failed").Inc()
		report.Errors = append(report.Errors, ports.RowError{Row: row, Error: "request cancelled"})
	}
}

func rowMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation failed"
	case errors.Is(err, domain.ErrForbidden):
		return "access forbidden"
	case errors.Is(err, domain.ErrConflict):
		return "conflicts with an existing record"
	case errors.Is(err, domain.ErrTimeout):
		return "timed out"
	default:
		return "could not be stored"
	}
}

func isExpectedRowError(err error) bool {
	return errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrConflict)
}

// normalizeRow lower-cases headers and turns spaces and dashes into
// underscores, so "Current Position" and "current-position" both match.
func normalizeRow(row ports.ImportRow) ports.ImportRow {
	out := make(ports.ImportRow, len(row))
	for k, v := range row {
		key := strings.ToLower(strings.TrimSpace(k))
		key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
		out[key] = strings.TrimSpace(v)
	}
	return out
}

func parseKeywordRow(clientID string, row ports.ImportRow) (*domain.Keyword, error) {
	ve := &domain.ValidationError{}
	k := &domain.Keyword{
		ClientID:         clientID,
		Text:             firstOf(row, "keyword", "text", "term"),
		CurrentPosition:  parsePosition(ve, row, "current_position"),
		PreviousPosition: parsePosition(ve, row, "previous_position"),
		BestPosition:     parsePosition(ve, row, "best_position"),
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	return k, nil
}

func parseBacklinkRow(clientID string, row ports.ImportRow, today time.Time) (*domain.Backlink, error) {
	ve := &domain.ValidationError{}
	b := &domain.Backlink{
		ClientID:     clientID,
		SourceURL:    row["source_url"],
		TargetURL:    row["target_url"],
		AnchorText:   row["anchor_text"],
		DoFollow:     true,
		AcquiredDate: today,
	}

	if raw := row["do_follow"]; raw != "" {
		v, ok := parseFlag(raw)
		if !ok {
			ve.Add("do_follow", "do_follow must be true or false")
		}
		b.DoFollow = v
	}
	if raw := row["cost"]; raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			ve.Add("cost", "cost must be a number")
		} else {
			b.Cost = &v
		}
	}
	if raw := row["acquired_date"]; raw != "" {
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			ve.Add("acquired_date", "acquired_date must be a date (YYYY-MM-DD)")
		} else {
			b.AcquiredDate = d
		}
	}

	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	return b, nil
}

func parsePosition(ve *domain.ValidationError, row ports.ImportRow, field string) *int {
	raw := row[field]
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		ve.Add(field, field+" must be a whole number")
		return nil
	}
	return &n
}

func parseFlag(raw string) (bool, bool) {
	switch strings.ToLower(raw) {
	case "yes", "y":
		return true, true
	case "no", "n":
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	return v, err == nil
}

func firstOf(row ports.ImportRow, keys ...string) string {
	for _, k := range keys {
		if v := row[k]; v != "" {
			return v
		}
	}
	return ""
}

package handler

import (
	"time"

	"github.com/rankwise/seo-crm/internal/core/domain"
	"github.com/rankwise/seo-crm/internal/core/ports"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error     string            `json:"error"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// --- Auth ---

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	FullName string `json:"full_name" validate:"required,max=200"`
	Email    string `json:"email"     validate:"required,email"`
	Password string `json:"password"  validate:"required,min=6,max=72"`
}

type adminSetupRequest struct {
	FullName string `json:"full_name" validate:"required,max=200"`
	Company  string `json:"company"   validate:"max=200"`
	Email    string `json:"email"     validate:"required,email"`
	Password string `json:"password"  validate:"required,min=8,max=72"`
}

type clientUserRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type setupStatusResponse struct {
	AdminExists bool `json:"admin_exists"`
}

type meResponse struct {
	ID          string      `json:"id"`
	Email       string      `json:"email,omitempty"`
	Role        domain.Role `json:"role"`
	State       string      `json:"state"`
	TenantScope string      `json:"client_id,omitempty"`
	Dashboard   string      `json:"dashboard"`
}

func newMeResponse(p domain.Principal) meResponse {
	return meResponse{
		ID:          p.ID,
		Email:       p.Email,
		Role:        p.Role,
		State:       p.State().String(),
		TenantScope: p.TenantScope,
		Dashboard:   domain.DashboardFor(p),
	}
}

type landingResponse struct {
	Name      string `json:"name"`
	Login     string `json:"login"`
	Register  string `json:"register"`
	Dashboard string `json:"dashboard,omitempty"`
}

// --- Clients ---

type clientRequest struct {
	Name         string `json:"name"          validate:"required,max=200"`
	Website      string `json:"website"       validate:"omitempty,absurl"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone string `json:"contact_phone" validate:"max=50"`
	Status       string `json:"status"        validate:"omitempty,oneof=active pending inactive"`
}

func (r clientRequest) toDomain(id string) *domain.Client {
	return &domain.Client{
		ID:           id,
		Name:         r.Name,
		Website:      r.Website,
		ContactEmail: r.ContactEmail,
		ContactPhone: r.ContactPhone,
		Status:       domain.ClientStatus(r.Status),
	}
}

// --- Keywords ---

type keywordRequest struct {
	ClientID         string `json:"client_id"`
	Keyword          string `json:"keyword"           validate:"required,max=500"`
	CurrentPosition  *int   `json:"current_position"  validate:"omitempty,gte=1"`
	PreviousPosition *int   `json:"previous_position" validate:"omitempty,gte=1"`
	BestPosition     *int   `json:"best_position"     validate:"omitempty,gte=1"`
}

func (r keywordRequest) toDomain(id string) *domain.Keyword {
	return &domain.Keyword{
		ID:               id,
		ClientID:         r.ClientID,
		Text:             r.Keyword,
		CurrentPosition:  r.CurrentPosition,
		PreviousPosition: r.PreviousPosition,
		BestPosition:     r.BestPosition,
	}
}

type positionRequest struct {
	Position int `json:"position" validate:"required,gte=1"`
}

// --- Backlinks ---

type backlinkRequest struct {
	ClientID     string   `json:"client_id"`
	SourceURL    string   `json:"source_url"    validate:"required,absurl"`
	TargetURL    string   `json:"target_url"    validate:"required,absurl"`
	AnchorText   string   `json:"anchor_text"   validate:"max=500"`
	DoFollow     *bool    `json:"do_follow"`
	Cost         *float64 `json:"cost"          validate:"omitempty,gte=0"`
	AcquiredDate string   `json:"acquired_date" validate:"omitempty,datetime=2006-01-02"`
}

func (r backlinkRequest) toDomain(id string) *domain.Backlink {
	b := &domain.Backlink{
		ID:         id,
		ClientID:   r.ClientID,
		SourceURL:  r.SourceURL,
		TargetURL:  r.TargetURL,
		AnchorText: r.AnchorText,
		DoFollow:   true,
		Cost:       r.Cost,
	}
	if r.DoFollow != nil {
		b.DoFollow = *r.DoFollow
	}
	if r.AcquiredDate != "" {
		// validated by the datetime tag
		b.AcquiredDate, _ = time.Parse(time.DateOnly, r.AcquiredDate)
	}
	return b
}

// --- Imports ---

// importRequest accepts rows under "rows" or "data". Cell values may be any
// JSON scalar; they are stringified before parsing.
type importRequest struct {
	ClientID string           `json:"client_id"`
	Rows     []map[string]any `json:"rows"`
	Data     []map[string]any `json:"data"`
}

func (r importRequest) importRows() []ports.ImportRow {
	src := r.Rows
	if len(src) == 0 {
		src = r.Data
	}
	rows := make([]ports.ImportRow, 0, len(src))
	for _, raw := range src {
		row := make(ports.ImportRow, len(raw))
		for k, v := range raw {
			row[k] = cellString(v)
		}
		rows = append(rows, row)
	}
	return rows
}

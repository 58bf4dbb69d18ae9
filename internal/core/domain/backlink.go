package domain

import (
	"math"
	"strings"
	"time"
)

// MaxBacklinkCost is the largest cost a NUMERIC(10,2) column holds.
const MaxBacklinkCost = 99999999.99

// Backlink is an inbound link acquired for a Client.
type Backlink struct {
	ID           string    `json:"id"`
	ClientID     string    `json:"client_id"`
	SourceURL    string    `json:"source_url"`
	TargetURL    string    `json:"target_url"`
	AnchorText   string    `json:"anchor_text,omitempty"`
	DoFollow     bool      `json:"do_follow"`
	Cost         *float64  `json:"cost,omitempty"`
	AcquiredDate time.Time `json:"acquired_date"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AcquiredToday returns the current UTC date truncated to midnight.
func AcquiredToday(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (b *Backlink) Validate() error {
	ve := &ValidationError{}
	b.SourceURL = strings.TrimSpace(b.SourceURL)
	b.TargetURL = strings.TrimSpace(b.TargetURL)
	b.AnchorText = strings.TrimSpace(b.AnchorText)

	if b.ClientID == "" {
		ve.Add("client_id", "client_id is required")
	}
	if !IsAbsoluteURL(b.SourceURL) {
		ve.Add("source_url", "source_url must be an absolute URL")
	}
	if !IsAbsoluteURL(b.TargetURL) {
		ve.Add("target_url", "target_url must be an absolute URL")
	}
	if b.Cost != nil {
		switch c := *b.Cost; {
		case math.IsNaN(c) || math.IsInf(c, 0) || c < 0:
			ve.Add("cost", "cost must be greater than or equal to 0")
		case c > MaxBacklinkCost:
			ve.Add("cost", "cost must not exceed 99999999.99")
		}
	}
	return ve.OrNil()
}

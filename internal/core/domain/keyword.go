package domain

import (
	"strings"
	"time"
)

// Keyword is a search term tracked for a Client. Positions are 1-based SERP
// ranks; nil means not ranked yet.
type Keyword struct {
	ID               string    `json:"id"`
	ClientID         string    `json:"client_id"`
	Text             string    `json:"keyword"`
	CurrentPosition  *int      `json:"current_position"`
	PreviousPosition *int      `json:"previous_position"`
	BestPosition     *int      `json:"best_position"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (k *Keyword) Validate() error {
	ve := &ValidationError{}
	k.Text = strings.TrimSpace(k.Text)
	if k.Text == "" {
		ve.Add("keyword", "keyword is required")
	}
	if k.ClientID == "" {
		ve.Add("client_id", "client_id is required")
	}
	checkPosition(ve, "current_position", k.CurrentPosition)
	checkPosition(ve, "previous_position", k.PreviousPosition)
	checkPosition(ve, "best_position", k.BestPosition)
	return ve.OrNil()
}

// Reconcile lowers BestPosition so it is never worse than any observed
// position.
func (k *Keyword) Reconcile() {
	k.BestPosition = minPosition(k.BestPosition, k.CurrentPosition, k.PreviousPosition)
}

// RecordPosition shifts the current rank into PreviousPosition and stores
// pos as the new current rank.
func (k *Keyword) RecordPosition(pos int) {
	if k.CurrentPosition != nil {
		prev := *k.CurrentPosition
		k.PreviousPosition = &prev
	}
	k.CurrentPosition = &pos
	k.Reconcile()
}

// Improved reports whether the keyword moved up since the previous check.
func (k Keyword) Improved() bool {
	return k.CurrentPosition != nil && k.PreviousPosition != nil &&
		*k.CurrentPosition < *k.PreviousPosition
}

func checkPosition(ve *ValidationError, field string, pos *int) {
	if pos != nil && *pos < 1 {
		ve.Add(field, field+" must be at least 1")
	}
}

func minPosition(positions ...*int) *int {
	var best *int
	for _, p := range positions {
		if p == nil {
			continue
		}
		if best == nil || *p < *best {
			v := *p
			best = &v
		}
	}
	return best
}

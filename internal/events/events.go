// Package events announces per-row classification outcomes to optional
// downstream consumers.
package events

import (
	"context"
	"time"

	"github.com/JakeFAU/sitecat/internal/category"
)

// RowClassified is published once per processed row.
type RowClassified struct {
	RunID   string          `json:"run_id"`
	Row     int             `json:"row"`
	URL     string          `json:"url"`
	Code    category.Code   `json:"code"`
	Status  category.Status `json:"status"`
	Source  category.Source `json:"source"`
	WriteOK bool            `json:"write_ok"`
	At      time.Time       `json:"at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev RowClassified) error
}

// Nop discards events.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, RowClassified) error { return nil }

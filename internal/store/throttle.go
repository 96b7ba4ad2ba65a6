package store

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Throttled rate-limits cell updates, e.g. to stay under the Sheets API
// per-minute write quota.
type Throttled struct {
	next    Writer
	limiter *rate.Limiter
}

// NewThrottled wraps w. perSecond <= 0 disables throttling and returns w.
func NewThrottled(w Writer, perSecond float64, burst int) Writer {
	if perSecond <= 0 {
		return w
	}
	if burst <= 0 {
		burst = 1
	}
	return &Throttled{next: w, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// UpdateCell waits for a token, then delegates.
func (t *Throttled) UpdateCell(ctx context.Context, row, col int, value string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return t.next.UpdateCell(ctx, row, col, value)
}

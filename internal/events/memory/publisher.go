// Package memory keeps published events in memory for tests and inspection.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/sitecat/internal/events"
)

// DefaultCapacity bounds the retained events.
const DefaultCapacity = 1000

// Publisher stores the most recent events.
type Publisher struct {
	mu       sync.RWMutex
	capacity int
	events   []events.RowClassified
	total    int
}

// New returns a Publisher keeping at most capacity events; zero uses
// DefaultCapacity.
func New(capacity int) *Publisher {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Publisher{capacity: capacity}
}

// Publish records ev, dropping the oldest event when full.
func (p *Publisher) Publish(_ context.Context, ev events.RowClassified) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total++
	if len(p.events) == p.capacity {
		copy(p.events, p.events[1:])
		p.events = p.events[:len(p.events)-1]
	}
	p.events = append(p.events, ev)
	return nil
}

// Events returns a copy of the retained events, oldest first.
func (p *Publisher) Events() []events.RowClassified {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]events.RowClassified, len(p.events))
	copy(out, p.events)
	return out
}

// Total counts every publish, including dropped events.
func (p *Publisher) Total() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.total
}

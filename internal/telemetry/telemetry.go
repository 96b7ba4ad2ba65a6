// Package telemetry accumulates run-level counters for one batch execution
// and turns them into a cost-accounted summary.
package telemetry

import (
	"sync/atomic"
	"time"
)

// ErrorKind names one bucket of the per-URL error taxonomy.
type ErrorKind string

// Error kinds counted by the run.
const (
	KindTimeout  ErrorKind = "timeout"
	KindSSL      ErrorKind = "ssl"
	KindMetadata ErrorKind = "metadata_extract"
	KindLLM      ErrorKind = "llm"
	KindOther    ErrorKind = "other"
	KindEmptyURL ErrorKind = "empty_url"
	KindWrite    ErrorKind = "store_write"
)

// Pricing holds per-token rates in currency units.
type Pricing struct {
	InputPerToken  float64
	OutputPerToken float64
}

// DefaultPricing matches the GPT-4 8k list price.
var DefaultPricing = Pricing{InputPerToken: 0.00003, OutputPerToken: 0.00006}

// Observer receives every increment, e.g. to mirror counters into Prometheus.
type Observer interface {
	ObserveError(kind ErrorKind)
	ObserveTokens(input, output int)
	ObserveProcessed()
}

// Run holds the counters of one batch run. The zero value is not usable;
// create it with New. All methods are safe for concurrent use.
type Run struct {
	timeoutErrors  atomic.Int64
	sslErrors      atomic.Int64
	otherErrors    atomic.Int64
	metadataErrors atomic.Int64
	llmErrors      atomic.Int64
	writeErrors    atomic.Int64
	tokensUsed     atomic.Int64
	inputTokens    atomic.Int64
	outputTokens   atomic.Int64
	urlsProcessed  atomic.Int64
	validURLCount  atomic.Int64

	started  time.Time
	pricing  Pricing
	observer Observer
}

// Option customizes a Run.
type Option func(*Run)

// WithPricing overrides the token prices used for the cost estimate.
func WithPricing(p Pricing) Option {
	return func(r *Run) { r.pricing = p }
}

// WithObserver mirrors every increment to o.
func WithObserver(o Observer) Option {
	return func(r *Run) { r.observer = o }
}

// New starts a run clock at started with zeroed counters.
func New(started time.Time, opts ...Option) *Run {
	r := &Run{started: started, pricing: DefaultPricing}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecordError increments the counter for kind. Empty URLs are not failures
// and are only forwarded to the observer.
func (r *Run) RecordError(kind ErrorKind) {
	switch kind {
	case KindTimeout:
		r.timeoutErrors.Add(1)
	case KindSSL:
		r.sslErrors.Add(1)
	case KindMetadata:
		r.metadataErrors.Add(1)
	case KindLLM:
		r.llmErrors.Add(1)
	case KindWrite:
		r.writeErrors.Add(1)
	case KindEmptyURL:
	default:
		r.otherErrors.Add(1)
	}
	if r.observer != nil {
		r.observer.ObserveError(kind)
	}
}

// AddTokens accumulates completion-service usage. total may be zero, in
// which case input+output is used.
func (r *Run) AddTokens(input, output, total int) {
	if total == 0 {
		total = input + output
	}
	r.inputTokens.Add(int64(input))
	r.outputTokens.Add(int64(output))
	r.tokensUsed.Add(int64(total))
	if r.observer != nil {
		r.observer.ObserveTokens(input, output)
	}
}

// MarkProcessed counts one row for which classification was attempted and
// returns the new total.
func (r *Run) MarkProcessed() int {
	n := r.urlsProcessed.Add(1)
	if r.observer != nil {
		r.observer.ObserveProcessed()
	}
	return int(n)
}

// Processed returns the number of rows attempted so far.
func (r *Run) Processed() int { return int(r.urlsProcessed.Load()) }

// SetValidURLCount records the start-of-run snapshot of non-empty URLs.
func (r *Run) SetValidURLCount(n int) { r.validURLCount.Store(int64(n)) }

// Count returns the current value of one error bucket.
func (r *Run) Count(kind ErrorKind) int {
	switch kind {
	case KindTimeout:
		return int(r.timeoutErrors.Load())
	case KindSSL:
		return int(r.sslErrors.Load())
	case KindMetadata:
		return int(r.metadataErrors.Load())
	case KindLLM:
		return int(r.llmErrors.Load())
	case KindWrite:
		return int(r.writeErrors.Load())
	case KindOther:
		return int(r.otherErrors.Load())
	default:
		return 0
	}
}

// Summary is an immutable snapshot of a run.
type Summary struct {
	RunID          string
	URLsProcessed  int
	ValidURLCount  int
	TimeoutErrors  int
	SSLErrors      int
	MetadataErrors int
	LLMErrors      int
	OtherErrors    int
	WriteErrors    int
	TokensUsed     int
	InputTokens    int
	OutputTokens   int
	Elapsed        time.Duration
	Cost           float64
}

// TotalFailures sums the per-URL classification failures. Store write
// failures are reported separately.
func (s Summary) TotalFailures() int {
	return s.TimeoutErrors + s.SSLErrors + s.MetadataErrors + s.LLMErrors + s.OtherErrors
}

// TotalSuccesses is ValidURLCount minus TotalFailures.
func (s Summary) TotalSuccesses() int {
	return s.ValidURLCount - s.TotalFailures()
}

// Snapshot freezes the counters, measuring elapsed time up to now.
func (r *Run) Snapshot(runID string, now time.Time) Summary {
	in := int(r.inputTokens.Load())
	out := int(r.outputTokens.Load())
	return Summary{
		RunID:          runID,
		URLsProcessed:  int(r.urlsProcessed.Load()),
		ValidURLCount:  int(r.validURLCount.Load()),
		TimeoutErrors:  int(r.timeoutErrors.Load()),
		SSLErrors:      int(r.sslErrors.Load()),
		MetadataErrors: int(r.metadataErrors.Load()),
		LLMErrors:      int(r.llmErrors.Load()),
		OtherErrors:    int(r.otherErrors.Load()),
		WriteErrors:    int(r.writeErrors.Load()),
		TokensUsed:     int(r.tokensUsed.Load()),
		InputTokens:    in,
		OutputTokens:   out,
		Elapsed:        now.Sub(r.started),
		Cost:           Cost(r.pricing, in, out),
	}
}

// Cost estimates spend for the given token counts.
func Cost(p Pricing, input, output int) float64 {
	return float64(input)*p.InputPerToken + float64(output)*p.OutputPerToken
}

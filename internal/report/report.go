// Package report renders and delivers the end-of-run summary.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitecat/internal/telemetry"
)

// Sink receives the final summary of a run.
type Sink interface {
	Report(ctx context.Context, s telemetry.Summary) error
}

// Render writes the human-readable summary block to w.
func Render(w io.Writer, s telemetry.Summary) error {
	var b bytes.Buffer
	fmt.Fprintln(&b, "----------- Summary of key metrics -----------")
	fmt.Fprintf(&b, "Run ID: %s\n", s.RunID)
	fmt.Fprintf(&b, "Total URLs processed: %d\n", s.URLsProcessed)
	fmt.Fprintf(&b, "Total valid URLs found: %d\n", s.ValidURLCount)
	fmt.Fprintln(&b, "----------------------------------------------")
	fmt.Fprintf(&b, "Total URLs failed due to timeout errors: %d\n", s.TimeoutErrors)
	fmt.Fprintf(&b, "Total URLs failed due to SSL errors: %d\n", s.SSLErrors)
	fmt.Fprintf(&b, "Total URLs failed during metadata extraction: %d\n", s.MetadataErrors)
	fmt.Fprintf(&b, "Total URLs failed during LLM categorization: %d\n", s.LLMErrors)
	fmt.Fprintf(&b, "Total URLs failed due to other errors: %d\n", s.OtherErrors)
	if s.WriteErrors > 0 {
		fmt.Fprintf(&b, "Total rows not written to the store: %d\n", s.WriteErrors)
	}
	fmt.Fprintln(&b, "----------------------------------------------")
	fmt.Fprintf(&b, "Total URLs failed: %d out of %d\n", s.TotalFailures(), s.ValidURLCount)
	fmt.Fprintf(&b, "Total URLs successfully updated: %d out of %d\n", s.TotalSuccesses(), s.ValidURLCount)
	fmt.Fprintln(&b, "----------------------------------------------")
	fmt.Fprintf(&b, "Time taken: %.2f seconds\n", s.Elapsed.Seconds())
	fmt.Fprintf(&b, "Total tokens used: %d (input %d, output %d)\n", s.TokensUsed, s.InputTokens, s.OutputTokens)
	fmt.Fprintf(&b, "Cost of tokens used: $%.2f\n", s.Cost)
	if _, err := w.Write(b.Bytes()); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// WriterSink renders the summary to an io.Writer such as stdout.
type WriterSink struct {
	W io.Writer
}

// Report implements Sink.
func (s WriterSink) Report(_ context.Context, sum telemetry.Summary) error {
	return Render(s.W, sum)
}

// LogSink emits the summary as one structured log entry.
type LogSink struct {
	Logger *zap.Logger
}

// Report implements Sink.
func (s LogSink) Report(_ context.Context, sum telemetry.Summary) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("run summary",
		zap.String("run_id", sum.RunID),
		zap.Int("urls_processed", sum.URLsProcessed),
		zap.Int("valid_urls", sum.ValidURLCount),
		zap.Int("timeout_errors", sum.TimeoutErrors),
		zap.Int("ssl_errors", sum.SSLErrors),
		zap.Int("metadata_errors", sum.MetadataErrors),
		zap.Int("llm_errors", sum.LLMErrors),
		zap.Int("other_errors", sum.OtherErrors),
		zap.Int("write_errors", sum.WriteErrors),
		zap.Int("total_failures", sum.TotalFailures()),
		zap.Int("total_successes", sum.TotalSuccesses()),
		zap.Duration("elapsed", sum.Elapsed),
		zap.Int("tokens_used", sum.TokensUsed),
		zap.Int("input_tokens", sum.InputTokens),
		zap.Int("output_tokens", sum.OutputTokens),
		zap.Float64("cost", sum.Cost),
	)
	return nil
}

// Multi fans a summary out to every sink. All sinks run; errors are joined.
type Multi []Sink

// Report implements Sink.
func (m Multi) Report(ctx context.Context, sum telemetry.Summary) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Report(ctx, sum); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Package batch drives one classification pass over every row of a store.
package batch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitecat/internal/category"
	"github.com/JakeFAU/sitecat/internal/events"
	"github.com/JakeFAU/sitecat/internal/report"
	"github.com/JakeFAU/sitecat/internal/retry"
	"github.com/JakeFAU/sitecat/internal/store"
	"github.com/JakeFAU/sitecat/internal/telemetry"
)

// Default write retry policy.
const (
	DefaultWriteAttempts = 3
	DefaultWriteDelay    = 3 * time.Second
	reportTimeout        = 30 * time.Second
)

// PageClassifier classifies a single URL and never fails.
type PageClassifier interface {
	Classify(ctx context.Context, rawURL string) category.Result
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// WriteObserver is told about every repeated store write.
type WriteObserver interface {
	ObserveWriteRetry()
}

// Config tunes the runner.
type Config struct {
	RunID         string
	WriteAttempts int
	WriteDelay    time.Duration
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Runner processes rows sequentially.
type Runner struct {
	cfg        Config
	reader     store.Reader
	writer     store.Writer
	classifier PageClassifier
	run        *telemetry.Run

	publisher events.Publisher
	sink      report.Sink
	clock     Clock
	sleep     retry.Sleeper
	writes    WriteObserver
	logger    *zap.Logger
}

// Option customizes a Runner.
type Option func(*Runner)

// WithPublisher sends a RowClassified event for each processed row.
func WithPublisher(p events.Publisher) Option {
	return func(r *Runner) { r.publisher = p }
}

// WithSink delivers the final summary.
func WithSink(s report.Sink) Option {
	return func(r *Runner) { r.sink = s }
}

// WithClock overrides the wall clock.
func WithClock(c Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithSleeper overrides the wait between write attempts.
func WithSleeper(s retry.Sleeper) Option {
	return func(r *Runner) { r.sleep = s }
}

// WithWriteObserver reports write retries.
func WithWriteObserver(o WriteObserver) Option {
	return func(r *Runner) { r.writes = o }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// New builds a Runner. reader, writer, classifier and run are required.
func New(cfg Config, reader store.Reader, writer store.Writer, classifier PageClassifier, run *telemetry.Run, opts ...Option) (*Runner, error) {
	if reader == nil || writer == nil {
		return nil, fmt.Errorf("store reader and writer are required")
	}
	if classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if run == nil {
		return nil, fmt.Errorf("telemetry run is required")
	}
	if cfg.WriteAttempts <= 0 {
		cfg.WriteAttempts = DefaultWriteAttempts
	}
	if cfg.WriteDelay < 0 {
		cfg.WriteDelay = DefaultWriteDelay
	}
	r := &Runner{
		cfg:        cfg,
		reader:     reader,
		writer:     writer,
		classifier: classifier,
		run:        run,
		publisher:  events.Nop{},
		clock:      systemClock{},
		sleep:      retry.SleepContext,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	r.logger = r.logger.With(zap.String("run_id", cfg.RunID))
	return r, nil
}

// Run classifies every row and writes Product and Status back. Only a
// failure to read the store is returned; everything else is counted.
func (r *Runner) Run(ctx context.Context) (telemetry.Summary, error) {
	rows, err := r.reader.Rows(ctx)
	if err != nil {
		return telemetry.Summary{}, fmt.Errorf("read rows: %w", err)
	}
	valid := store.CountValidURLs(rows)
	r.run.SetValidURLCount(valid)
	r.logger.Info("run started", zap.Int("rows", len(rows)), zap.Int("valid_urls", valid))

	processed := 0
	for _, row := range rows {
		if ctx.Err() != nil {
			r.logger.Warn("run cancelled", zap.Int("processed", processed))
			break
		}
		if processed >= valid {
			break
		}
		url := strings.TrimSpace(row.URL)
		if url == "" {
			r.logger.Info("skipping row with empty url", zap.Int("row", row.Index))
			r.run.RecordError(telemetry.KindEmptyURL)
			continue
		}
		processed++
		r.run.MarkProcessed()
		r.processRow(ctx, row.Index, url)
	}

	sum := r.run.Snapshot(r.cfg.RunID, r.clock.Now())
	r.report(ctx, sum)
	return sum, nil
}

func (r *Runner) processRow(ctx context.Context, index int, url string) {
	logger := r.logger.With(zap.Int("row", index), zap.String("url", url))
	logger.Info("processing row")

	res := r.classifier.Classify(ctx, url)
	if ctx.Err() != nil {
		logger.Warn("classification interrupted; row left untouched")
		return
	}
	logger.Info("row classified",
		zap.String("code", res.Code.String()),
		zap.String("label", res.Code.Label()),
		zap.String("source", string(res.Source)),
	)

	writeOK := r.write(ctx, logger, index, store.ColProduct, res.Code.String())
	if writeOK {
		writeOK = r.write(ctx, logger, index, store.ColStatus, res.Status.String())
	} else {
		logger.Warn("product write failed; skipping status write")
	}
	if !writeOK {
		r.run.RecordError(telemetry.KindWrite)
	}

	ev := events.RowClassified{
		RunID:   r.cfg.RunID,
		Row:     index,
		URL:     url,
		Code:    res.Code,
		Status:  res.Status,
		Source:  res.Source,
		WriteOK: writeOK,
		At:      r.clock.Now(),
	}
	if err := r.publisher.Publish(ctx, ev); err != nil {
		logger.Warn("publish row event failed", zap.Error(err))
	}
}

func (r *Runner) write(ctx context.Context, logger *zap.Logger, row, col int, value string) bool {
	policy := retry.NewFixed(r.cfg.WriteAttempts, r.cfg.WriteDelay)
	notify := func(err error, attempt int) {
		logger.Warn("cell update failed",
			zap.Int("col", col),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", policy.Attempts),
			zap.Error(err),
		)
		if attempt < policy.Attempts && r.writes != nil {
			r.writes.ObserveWriteRetry()
		}
	}
	_, err := retry.Do(ctx, policy, r.sleep, notify, func(ctx context.Context, _ int) error {
		return r.writer.UpdateCell(ctx, row, col, value)
	})
	if err != nil {
		logger.Error("cell update gave up", zap.Int("col", col), zap.Error(err))
		return false
	}
	logger.Debug("cell updated", zap.Int("col", col), zap.String("value", value))
	return true
}

func (r *Runner) report(ctx context.Context, sum telemetry.Summary) {
	if r.sink == nil {
		return
	}
	reportCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
	defer cancel()
	if err := r.sink.Report(reportCtx, sum); err != nil {
		r.logger.Warn("report delivery failed", zap.Error(err))
	}
}

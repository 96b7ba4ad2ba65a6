// Package app builds the long-lived sitecat services from configuration and
// owns their shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitecat/internal/batch"
	"github.com/JakeFAU/sitecat/internal/browser"
	chromedpdriver "github.com/JakeFAU/sitecat/internal/browser/chromedp"
	playwrightdriver "github.com/JakeFAU/sitecat/internal/browser/playwright"
	"github.com/JakeFAU/sitecat/internal/browser/static"
	"github.com/JakeFAU/sitecat/internal/category"
	"github.com/JakeFAU/sitecat/internal/classifier"
	"github.com/JakeFAU/sitecat/internal/clock/system"
	"github.com/JakeFAU/sitecat/internal/config"
	"github.com/JakeFAU/sitecat/internal/events"
	memoryevents "github.com/JakeFAU/sitecat/internal/events/memory"
	pubsubevents "github.com/JakeFAU/sitecat/internal/events/pubsub"
	"github.com/JakeFAU/sitecat/internal/extractor"
	"github.com/JakeFAU/sitecat/internal/hash/sha256"
	"github.com/JakeFAU/sitecat/internal/id/uuid"
	"github.com/JakeFAU/sitecat/internal/llm"
	"github.com/JakeFAU/sitecat/internal/llm/cache"
	"github.com/JakeFAU/sitecat/internal/llm/gemini"
	"github.com/JakeFAU/sitecat/internal/llm/langchain"
	"github.com/JakeFAU/sitecat/internal/metrics"
	"github.com/JakeFAU/sitecat/internal/navigator"
	"github.com/JakeFAU/sitecat/internal/popup"
	"github.com/JakeFAU/sitecat/internal/report"
	gcsreport "github.com/JakeFAU/sitecat/internal/report/gcs"
	"github.com/JakeFAU/sitecat/internal/store"
	"github.com/JakeFAU/sitecat/internal/store/csvfile"
	"github.com/JakeFAU/sitecat/internal/store/postgres"
	"github.com/JakeFAU/sitecat/internal/store/sheets"
	"github.com/JakeFAU/sitecat/internal/telemetry"
)

// Overrides replaces configured backends, mainly for tests.
type Overrides struct {
	Launcher  browser.Launcher
	Completer llm.Completer
	Store     store.Store
	Publisher events.Publisher
	Stdout    io.Writer
}

// App holds the services shared by every command.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	runID      string
	clock      *system.Clock
	run        *telemetry.Run
	metrics    *metrics.Recorder
	launcher   browser.Launcher
	classifier *classifier.Classifier
	overrides  Overrides
	closers    []func() error
}

// New wires the classification pipeline. Store and report sinks are built
// lazily by NewRunner so `classify` never touches them.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, ov Overrides) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := system.New()
	a := &App{
		cfg:       cfg,
		clock:     clk,
		runID:     uuid.New().NewRunID(),
		metrics:   metrics.New(nil),
		overrides: ov,
	}
	a.logger = logger.With(zap.String("run_id", a.runID))
	a.run = telemetry.New(clk.Now(),
		telemetry.WithPricing(telemetry.Pricing{
			InputPerToken:  cfg.Pricing.InputPerToken,
			OutputPerToken: cfg.Pricing.OutputPerToken,
		}),
		telemetry.WithObserver(a.metrics),
	)

	launcher := ov.Launcher
	if launcher == nil {
		var err error
		launcher, err = newLauncher(cfg.Browser)
		if err != nil {
			return nil, err
		}
	}
	a.launcher = launcher
	a.closers = append(a.closers, launcher.Close)

	completer := ov.Completer
	if completer == nil {
		var err error
		completer, err = newCompleter(ctx, cfg.LLM)
		if err != nil {
			a.Close()
			return nil, err
		}
	}
	if cfg.Cache.Enabled {
		redisStore, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			a.logger.Warn("llm cache disabled", zap.Error(err))
		} else {
			a.closers = append(a.closers, redisStore.Close)
			completer = cache.New(completer, redisStore, sha256.New(), cfg.LLM.Provider+"/"+cfg.LLM.Model, cfg.Cache.TTL, a.logger.Named("cache"))
		}
	}

	var extractOpts []extractor.Option
	if cfg.Extractor.DetectLanguage {
		extractOpts = append(extractOpts, extractor.WithLanguageDetector(extractor.NewLingua()))
	}

	cls, err := classifier.New(classifier.Deps{
		Launcher: launcher,
		Navigator: navigator.New(navigator.Config{
			Retries:             cfg.Navigation.Retries,
			Delay:               cfg.Navigation.Delay,
			AttemptTimeout:      cfg.Navigation.AttemptTimeout,
			FirstAttemptTimeout: cfg.Navigation.FirstAttemptTimeout,
		}, a.logger.Named("navigator")),
		Suppressor: popup.New(a.logger.Named("popup"), popup.WithStepTimeout(cfg.Popup.StepTimeout)),
		Extractor: extractor.New(extractor.Config{
			IdleTimeout: cfg.Extractor.IdleTimeout,
			ReadTimeout: cfg.Extractor.ReadTimeout,
			MaxWords:    cfg.Extractor.MaxWords,
		}, a.run, a.logger.Named("extractor"), extractOpts...),
		LLM:      llm.New(completer, a.run, a.logger.Named("llm")),
		Errors:   a.run,
		Observer: a.metrics,
		Logger:   a.logger.Named("classifier"),
	}, cfg.Browser.BlockedResources)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build classifier: %w", err)
	}
	a.classifier = cls
	return a, nil
}

// Logger returns the run-scoped logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// RunID identifies this process' run.
func (a *App) RunID() string { return a.runID }

// Metrics returns the Prometheus recorder.
func (a *App) Metrics() *metrics.Recorder { return a.metrics }

// Telemetry returns the run counters.
func (a *App) Telemetry() *telemetry.Run { return a.run }

// Classify classifies a single URL without touching the store.
func (a *App) Classify(ctx context.Context, rawURL string) category.Result {
	return a.classifier.Classify(ctx, rawURL)
}

// NewRunner builds the batch runner over the configured store. With dryRun
// the writer only logs.
func (a *App) NewRunner(ctx context.Context, dryRun bool) (*batch.Runner, error) {
	st := a.overrides.Store
	if st == nil {
		var err error
		st, err = a.newStore(ctx)
		if err != nil {
			return nil, err
		}
	}
	writer := store.NewThrottled(st, a.cfg.Store.WritesPerSecond, 1)
	if dryRun {
		writer = store.DryRunWriter{Logger: a.logger.Named("dry-run")}
	}

	publisher, err := a.newPublisher(ctx)
	if err != nil {
		return nil, err
	}
	sink, err := a.newSink(ctx)
	if err != nil {
		return nil, err
	}

	runner, err := batch.New(batch.Config{
		RunID:         a.runID,
		WriteAttempts: a.cfg.Store.WriteAttempts,
		WriteDelay:    a.cfg.Store.WriteDelay,
	}, st, writer, a.classifier, a.run,
		batch.WithPublisher(publisher),
		batch.WithSink(sink),
		batch.WithClock(a.clock),
		batch.WithWriteObserver(a.metrics),
		batch.WithLogger(a.logger.Named("batch")),
	)
	if err != nil {
		return nil, fmt.Errorf("build runner: %w", err)
	}
	return runner, nil
}

// RunBatch runs one batch pass, serving metrics for its duration.
func (a *App) RunBatch(ctx context.Context, dryRun bool) (telemetry.Summary, error) {
	runner, err := a.NewRunner(ctx, dryRun)
	if err != nil {
		return telemetry.Summary{}, err
	}
	metricsCtx, stop := context.WithCancel(ctx)
	wait, err := a.ServeMetrics(metricsCtx)
	if err != nil {
		stop()
		return telemetry.Summary{}, err
	}
	sum, runErr := runner.Run(ctx)
	stop()
	if err := wait(); err != nil {
		a.logger.Warn("metrics server stopped with error", zap.Error(err))
	}
	return sum, runErr
}

// ServeMetrics starts the metrics endpoint when configured. The returned
// wait function blocks until the server has stopped after ctx ends.
func (a *App) ServeMetrics(ctx context.Context) (func() error, error) {
	if a.cfg.Metrics.ListenAddr == "" {
		return func() error { return nil }, nil
	}
	srv, err := metrics.Listen(a.cfg.Metrics.ListenAddr, metrics.NewRouter(a.metrics, a.logger.Named("metrics")), a.logger.Named("metrics"))
	if err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	return func() error { return <-done }, nil
}

// Close releases every resource in reverse creation order.
func (a *App) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown errors", zap.Error(err))
	}
	_ = a.logger.Sync() //nolint:errcheck // stderr sync fails on some platforms
}

func newLauncher(cfg config.BrowserConfig) (browser.Launcher, error) {
	switch cfg.Driver {
	case config.DriverStatic:
		return static.New(static.Config{UserAgent: cfg.UserAgent, Timeout: cfg.StaticTimeout}), nil
	case config.DriverPlaywright:
		l, err := playwrightdriver.New(playwrightdriver.Config{Engine: cfg.Engine, UserAgent: cfg.UserAgent})
		if err != nil {
			return nil, fmt.Errorf("start playwright: %w", err)
		}
		return l, nil
	default:
		return chromedpdriver.New(chromedpdriver.Config{
			UserAgent:  cfg.UserAgent,
			ExecPath:   cfg.ExecPath,
			IdleWindow: cfg.IdleWindow,
		}), nil
	}
}

func newCompleter(ctx context.Context, cfg config.LLMConfig) (llm.Completer, error) {
	if cfg.Provider == config.ProviderGemini {
		c, err := gemini.New(ctx, gemini.Config{APIKey: cfg.Key(), Model: cfg.Model})
		if err != nil {
			return nil, fmt.Errorf("build gemini completer: %w", err)
		}
		return c, nil
	}
	c, err := langchain.New(langchain.Config{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		APIKey:   cfg.Key(),
		BaseURL:  cfg.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("build %s completer: %w", cfg.Provider, err)
	}
	return c, nil
}

func (a *App) newStore(ctx context.Context) (store.Store, error) {
	cfg := a.cfg.Store
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate store config: %w", err)
	}
	switch cfg.Backend {
	case config.StoreCSV:
		s, err := csvfile.New(cfg.CSVPath)
		if err != nil {
			return nil, fmt.Errorf("open csv store: %w", err)
		}
		return s, nil
	case config.StorePostgres:
		s, err := postgres.New(ctx, postgres.Config{DSN: cfg.DatabaseURL, Table: cfg.Table})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		a.closers = append(a.closers, func() error { s.Close(); return nil })
		return s, nil
	default:
		s, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID:   cfg.SheetID,
			CredentialsFile: cfg.CredentialsFile,
			Worksheet:       cfg.Worksheet,
		})
		if err != nil {
			return nil, fmt.Errorf("open sheets store: %w", err)
		}
		return s, nil
	}
}

func (a *App) newPublisher(ctx context.Context) (events.Publisher, error) {
	if a.overrides.Publisher != nil {
		return a.overrides.Publisher, nil
	}
	if a.cfg.Events.PubSubTopic == "" {
		return memoryevents.New(a.cfg.Events.MemoryCapacity), nil
	}
	pub, closeFn, err := pubsubevents.Dial(ctx, a.cfg.Events.PubSubProject, a.cfg.Events.PubSubTopic)
	if err != nil {
		return nil, fmt.Errorf("open event topic: %w", err)
	}
	a.closers = append(a.closers, closeFn)
	return pub, nil
}

func (a *App) newSink(ctx context.Context) (report.Sink, error) {
	sinks := report.Multi{report.LogSink{Logger: a.logger.Named("report")}}
	if a.cfg.Report.Stdout {
		out := a.overrides.Stdout
		if out == nil {
			out = os.Stdout
		}
		sinks = append(sinks, report.WriterSink{W: out})
	}
	if bucket := strings.TrimSpace(a.cfg.Report.GCSBucket); bucket != "" {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		gcsSink, err := gcsreport.New(client, gcsreport.Config{Bucket: bucket, Prefix: a.cfg.Report.GCSPrefix})
		if err != nil {
			return nil, fmt.Errorf("build gcs report sink: %w", err)
		}
		sinks = append(sinks, gcsSink)
	}
	return sinks, nil
}

// Package navigator loads a URL into a page with bounded retries.
package navigator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitecat/internal/browser"
	"github.com/JakeFAU/sitecat/internal/retry"
)

// Defaults for Navigator.
const (
	DefaultRetries        = 3
	DefaultDelay          = 5 * time.Second
	DefaultAttemptTimeout = 60 * time.Second
)

// Config controls the retry loop.
type Config struct {
	Retries int
	Delay   time.Duration
	// AttemptTimeout bounds every attempt after the first.
	AttemptTimeout time.Duration
	// FirstAttemptTimeout bounds the first attempt; zero uses AttemptTimeout.
	FirstAttemptTimeout time.Duration
}

// Navigator retries page loads with a fixed delay between attempts.
type Navigator struct {
	cfg    Config
	policy retry.Fixed
	sleep  retry.Sleeper
	logger *zap.Logger
}

// Option customizes a Navigator.
type Option func(*Navigator)

// WithSleeper replaces the wait between attempts.
func WithSleeper(s retry.Sleeper) Option {
	return func(n *Navigator) { n.sleep = s }
}

// New builds a Navigator, filling zero fields with defaults.
func New(cfg Config, logger *zap.Logger, opts ...Option) *Navigator {
	if cfg.Retries <= 0 {
		cfg.Retries = DefaultRetries
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Navigator{
		cfg:    cfg,
		policy: retry.NewFixed(cfg.Retries, cfg.Delay),
		sleep:  retry.SleepContext,
		logger: logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Navigate reports whether url was loaded within the allowed attempts.
// Failures are logged, never returned.
func (n *Navigator) Navigate(ctx context.Context, page browser.Page, url string) bool {
	return n.NavigateErr(ctx, page, url) == nil
}

// NavigateErr is Navigate but hands back the last attempt's error so the
// caller can bucket it once for the whole URL.
func (n *Navigator) NavigateErr(ctx context.Context, page browser.Page, url string) error {
	attempts, err := retry.Do(ctx, n.policy, n.sleep,
		func(err error, attempt int) {
			n.logger.Warn("navigation attempt failed",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Int("retries", n.cfg.Retries),
				zap.String("kind", string(browser.ClassifyFailure(err))),
				zap.Error(err),
			)
		},
		func(ctx context.Context, attempt int) error {
			n.logger.Debug("navigating", zap.String("url", url), zap.Int("attempt", attempt))
			return page.Goto(ctx, url, n.timeout(attempt))
		},
	)
	if err != nil {
		n.logger.Warn("navigation failed", zap.String("url", url), zap.Int("attempts", attempts), zap.Error(err))
		return err
	}
	return nil
}

func (n *Navigator) timeout(attempt int) time.Duration {
	if attempt == 1 && n.cfg.FirstAttemptTimeout > 0 {
		return n.cfg.FirstAttemptTimeout
	}
	return n.cfg.AttemptTimeout
}

// Package classifier runs the per-URL pipeline: open a session, load the
// page, clear overlays, extract metadata and route it to the keyword rules
// or the language model.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitecat/internal/browser"
	"github.com/JakeFAU/sitecat/internal/category"
	"github.com/JakeFAU/sitecat/internal/extractor"
	"github.com/JakeFAU/sitecat/internal/rules"
	"github.com/JakeFAU/sitecat/internal/telemetry"
)

// Navigator loads a URL, returning the last failure when every attempt failed.
type Navigator interface {
	NavigateErr(ctx context.Context, page browser.Page, url string) error
}

// Suppressor dismisses overlays; it never fails.
type Suppressor interface {
	Suppress(ctx context.Context, page browser.Page)
}

// Extractor reads metadata; ok is false when it aborted and counted the error.
type Extractor interface {
	Extract(ctx context.Context, page browser.Page) (extractor.Metadata, bool)
}

// TextClassifier classifies non-English metadata.
type TextClassifier interface {
	Classify(ctx context.Context, metadata string) (category.Code, category.Status)
}

// ErrorRecorder counts failures.
type ErrorRecorder interface {
	RecordError(kind telemetry.ErrorKind)
}

// Observer is told about every finished classification.
type Observer interface {
	ObserveClassification(res category.Result, elapsed time.Duration)
}

// Deps are the collaborators of a Classifier.
type Deps struct {
	Launcher   browser.Launcher
	Navigator  Navigator
	Suppressor Suppressor
	Extractor  Extractor
	LLM        TextClassifier
	Errors     ErrorRecorder
	Observer   Observer
	Logger     *zap.Logger
}

// Classifier classifies one URL at a time.
type Classifier struct {
	deps           Deps
	sessionOptions browser.SessionOptions
}

// New validates deps and builds a Classifier. blocked lists resource types
// aborted during page loads; nil uses browser.DefaultBlockedResources.
func New(deps Deps, blocked []string) (*Classifier, error) {
	switch {
	case deps.Launcher == nil:
		return nil, errors.New("classifier: launcher required")
	case deps.Navigator == nil:
		return nil, errors.New("classifier: navigator required")
	case deps.Extractor == nil:
		return nil, errors.New("classifier: extractor required")
	case deps.LLM == nil:
		return nil, errors.New("classifier: llm required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if blocked == nil {
		blocked = browser.DefaultBlockedResources
	}
	return &Classifier{
		deps:           deps,
		sessionOptions: browser.SessionOptions{BlockedResources: blocked},
	}, nil
}

// Classify never returns an error. Failures are counted and yield
// category.FailedResult.
func (c *Classifier) Classify(ctx context.Context, rawURL string) (res category.Result) {
	start := time.Now()
	url := strings.TrimSpace(rawURL)
	logger := c.deps.Logger.With(zap.String("url", url))

	if url == "" {
		logger.Warn("received empty url")
		c.record(telemetry.KindEmptyURL)
		return category.FailedResult()
	}
	url = NormalizeURL(url)
	logger = c.deps.Logger.With(zap.String("url", url))

	defer func() {
		if r := recover(); r != nil {
			res = c.fail(ctx, logger, fmt.Errorf("classification panicked: %v", r))
		}
		if c.deps.Observer != nil {
			c.deps.Observer.ObserveClassification(res, time.Since(start))
		}
	}()

	session, err := c.deps.Launcher.NewSession(ctx, c.sessionOptions)
	if err != nil {
		return c.fail(ctx, logger, fmt.Errorf("open session: %w", err))
	}
	defer func() {
		if err := session.Close(); err != nil && !errors.Is(err, browser.ErrClosed) {
			logger.Warn("close session", zap.Error(err))
		}
	}()
	page := session.Page()

	if err := c.deps.Navigator.NavigateErr(ctx, page, url); err != nil {
		return c.fail(ctx, logger, fmt.Errorf("load page: %w", err))
	}

	if c.deps.Suppressor != nil {
		c.deps.Suppressor.Suppress(ctx, page)
	}
	md, ok := c.deps.Extractor.Extract(ctx, page)
	if !ok {
		return category.FailedResult()
	}
	logger = logger.With(zap.String("lang", md.Language))

	if IsEnglish(md.Language) {
		m := rules.Matches(md.Text)
		res = category.FromRules(m.Code())
		logger.Info("classified by rules",
			zap.String("code", res.Code.String()),
			zap.Strings("clothing", m.Clothing),
			zap.Strings("shoes", m.Shoes),
			zap.Strings("lingerie", m.Lingerie),
		)
		return res
	}

	code, status := c.deps.LLM.Classify(ctx, md.Text)
	res = category.FromLLM(code, status)
	logger.Info("classified by llm", zap.String("code", res.Code.String()), zap.Stringer("status", res.Status))
	return res
}

// fail counts err once under its error kind. A cancelled run is not a page
// failure and is not counted.
func (c *Classifier) fail(ctx context.Context, logger *zap.Logger, err error) category.Result {
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		logger.Info("classification cancelled", zap.Error(err))
		return category.FailedResult()
	}
	kind := ClassifyError(err)
	logger.Warn("classification failed", zap.String("kind", string(kind)), zap.Error(err))
	c.record(kind)
	return category.FailedResult()
}

func (c *Classifier) record(kind telemetry.ErrorKind) {
	if c.deps.Errors != nil {
		c.deps.Errors.RecordError(kind)
	}
}

// ClassifyError maps a failure onto the timeout, ssl or other bucket.
func ClassifyError(err error) telemetry.ErrorKind {
	switch browser.ClassifyFailure(err) {
	case browser.FailureTimeout:
		return telemetry.KindTimeout
	case browser.FailureTLS:
		return telemetry.KindSSL
	default:
		return telemetry.KindOther
	}
}

// NormalizeURL prefixes https:// when url has no http(s) scheme.
func NormalizeURL(url string) string {
	lower := strings.ToLower(url)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return url
	}
	return "https://" + url
}

var englishTags = map[string]bool{"en": true, "gb": true, "us": true, "en-gb": true, "en-us": true}

// IsEnglish reports whether lang is English or one of its GB/US variants.
func IsEnglish(lang string) bool {
	return englishTags[strings.ToLower(strings.TrimSpace(lang))]
}

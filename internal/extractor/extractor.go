// Package extractor reads a bounded metadata string from a loaded page.
package extractor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitecat/internal/browser"
	"github.com/JakeFAU/sitecat/internal/telemetry"
)

// Defaults for Config.
const (
	DefaultIdleTimeout = 30 * time.Second
	DefaultReadTimeout = 30 * time.Second
	DefaultMaxWords    = 500
	DefaultLanguage    = "en"
	untitledPage       = "Untitled Page"
)

var (
	headingSelector      = browser.CSS("h1", "h2", "h3", "h4", "h5", "h6")
	categoryLinkSelector = browser.CSS(`a[href*="clothing"]`, `a[href*="shoes"]`, `a[href*="lingerie"]`)
	titleSelector        = browser.CSS("title")
)

// metaProbes are read in concatenation order; the page title follows them.
var metaProbes = []struct{ css, attr string }{
	{`meta[property="og:title"]`, "content"},
	{`meta[property="og:description"]`, "content"},
	{`meta[property="og:keywords"]`, "content"},
	{`meta[name="description"]`, "content"},
	{`meta[name="keywords"]`, "content"},
}

// Metadata is the text handed to the classifiers plus the page language.
type Metadata struct {
	Language string
	Text     string
}

// ErrorRecorder counts extraction failures.
type ErrorRecorder interface {
	RecordError(kind telemetry.ErrorKind)
}

// LanguageDetector guesses the language of free text as an ISO 639-1 code.
type LanguageDetector interface {
	Detect(text string) (string, bool)
}

// Config controls extraction.
type Config struct {
	IdleTimeout time.Duration
	// ReadTimeout bounds every DOM read made after the idle wait.
	ReadTimeout time.Duration
	MaxWords    int
}

// Extractor reads metadata from pages.
type Extractor struct {
	cfg      Config
	errors   ErrorRecorder
	detector LanguageDetector
	logger   *zap.Logger
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithLanguageDetector enables content-based detection when html[lang] is
// missing.
func WithLanguageDetector(d LanguageDetector) Option {
	return func(e *Extractor) { e.detector = d }
}

// New builds an Extractor. errs may be nil.
func New(cfg Config, errs ErrorRecorder, logger *zap.Logger, opts ...Option) *Extractor {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.MaxWords <= 0 {
		cfg.MaxWords = DefaultMaxWords
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Extractor{cfg: cfg, errors: errs, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract waits for the network to settle and assembles the metadata
// string. ok is false when extraction aborted; the failure has then
// already been counted.
func (e *Extractor) Extract(ctx context.Context, page browser.Page) (Metadata, bool) {
	md, err := e.extract(ctx, page)
	if err != nil {
		e.logger.Warn("metadata extraction failed", zap.Error(err))
		if e.errors != nil {
			e.errors.RecordError(telemetry.KindMetadata)
		}
		return Metadata{}, false
	}
	return md, true
}

func (e *Extractor) extract(ctx context.Context, page browser.Page) (Metadata, error) {
	if err := page.WaitForNetworkIdle(ctx, e.cfg.IdleTimeout); err != nil {
		return Metadata{}, fmt.Errorf("wait for network idle: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.ReadTimeout)
	defer cancel()

	parts := make([]string, 0, len(metaProbes)+1)
	for _, p := range metaProbes {
		parts = append(parts, e.attribute(ctx, page, p.css, p.attr))
	}
	parts = append(parts, e.title(ctx, page))
	if err := ctx.Err(); err != nil {
		return Metadata{}, fmt.Errorf("read metadata: %w", err)
	}
	text := strings.TrimSpace(strings.Join(parts, " "))

	headings, err := texts(ctx, page, headingSelector)
	if err != nil {
		return Metadata{}, fmt.Errorf("read headings: %w", err)
	}
	if len(headings) == 0 {
		e.logger.Debug("no headings found")
	}
	links, err := texts(ctx, page, categoryLinkSelector)
	if err != nil {
		return Metadata{}, fmt.Errorf("read category links: %w", err)
	}

	lang, _, err := page.Attribute(ctx, "html", "lang")
	if err != nil {
		return Metadata{}, fmt.Errorf("read html lang: %w", err)
	}
	lang = strings.TrimSpace(lang)

	text += " " + strings.Join(headings, " ") + " " + strings.Join(links, " ")
	if lang == "" {
		lang = e.detect(text)
	}
	text += " Language: " + lang

	return Metadata{Language: lang, Text: Truncate(text, e.cfg.MaxWords)}, nil
}

// attribute is an optional probe; failures read as "".
func (e *Extractor) attribute(ctx context.Context, page browser.Page, css, name string) string {
	v, _, err := page.Attribute(ctx, css, name)
	if err != nil {
		e.logger.Debug("metadata probe failed", zap.String("selector", css), zap.Error(err))
		return ""
	}
	return v
}

func (e *Extractor) title(ctx context.Context, page browser.Page) string {
	el, err := page.Query(ctx, titleSelector)
	if err != nil {
		e.logger.Debug("title probe failed", zap.Error(err))
		return ""
	}
	if el == nil {
		return untitledPage
	}
	t, err := el.InnerText(ctx)
	if err != nil {
		e.logger.Debug("title probe failed", zap.Error(err))
		return ""
	}
	return t
}

func (e *Extractor) detect(text string) string {
	if e.detector == nil {
		return DefaultLanguage
	}
	if lang, ok := e.detector.Detect(text); ok && lang != "" {
		return lang
	}
	return DefaultLanguage
}

func texts(ctx context.Context, page browser.Page, sel browser.Selector) ([]string, error) {
	els, err := page.QueryAll(ctx, sel)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(els))
	for _, el := range els {
		t, err := el.InnerText(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Truncate keeps the first max whitespace-delimited words of s, joined by
// single spaces.
func Truncate(s string, max int) string {
	words := strings.Fields(s)
	if max > 0 && len(words) > max {
		words = words[:max]
	}
	return strings.Join(words, " ")
}

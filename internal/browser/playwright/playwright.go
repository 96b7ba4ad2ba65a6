// Package playwright implements browser.Launcher with playwright-go. Each
// session launches its own browser so no state leaks between URLs.
package playwright

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/JakeFAU/sitecat/internal/browser"
)

// Engines supported by Launcher.
const (
	EngineWebKit   = "webkit"
	EngineChromium = "chromium"
	EngineFirefox  = "firefox"
)

// Config controls the launched browsers.
type Config struct {
	Engine    string
	UserAgent string
	Args      []string
}

// Launcher owns the playwright driver process.
type Launcher struct {
	cfg  Config
	pw   *playwright.Playwright
	kind playwright.BrowserType
}

// New starts the playwright driver.
func New(cfg Config) (*Launcher, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("playwright run: %w", err)
	}
	kind, err := browserType(pw, cfg.Engine)
	if err != nil {
		_ = pw.Stop()
		return nil, err
	}
	return &Launcher{cfg: cfg, pw: pw, kind: kind}, nil
}

func browserType(pw *playwright.Playwright, engine string) (playwright.BrowserType, error) {
	switch normalizeEngine(engine) {
	case EngineWebKit:
		return pw.WebKit, nil
	case EngineChromium:
		return pw.Chromium, nil
	case EngineFirefox:
		return pw.Firefox, nil
	default:
		return nil, fmt.Errorf("unknown playwright engine %q", engine)
	}
}

func normalizeEngine(engine string) string {
	engine = strings.ToLower(strings.TrimSpace(engine))
	if engine == "" {
		return EngineWebKit
	}
	return engine
}

// Close stops the driver.
func (l *Launcher) Close() error {
	if err := l.pw.Stop(); err != nil {
		return fmt.Errorf("stop playwright: %w", err)
	}
	return nil
}

// NewSession launches a browser, a context and a page.
func (l *Launcher) NewSession(ctx context.Context, opts browser.SessionOptions) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	b, err := l.kind.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args:     l.cfg.Args,
	})
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	ctxOpts := playwright.BrowserNewContextOptions{}
	ua := l.cfg.UserAgent
	if opts.UserAgent != "" {
		ua = opts.UserAgent
	}
	if ua != "" {
		ctxOpts.UserAgent = playwright.String(ua)
	}
	bctx, err := b.NewContext(ctxOpts)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("new browser context: %w", err)
	}

	blocked := blockSet(opts.BlockedResources)
	if len(blocked) > 0 {
		err := bctx.Route("**/*", func(route playwright.Route) {
			if blocked[route.Request().ResourceType()] {
				_ = route.Abort("blockedbyclient")
				return
			}
			_ = route.Continue()
		})
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("install resource blocking: %w", err)
		}
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}
	return &session{browser: b, page: &Page{page: page}}, nil
}

func blockSet(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			out[n] = true
		}
	}
	return out
}

type session struct {
	browser playwright.Browser
	page    *Page

	mu     sync.Mutex
	closed bool
}

func (s *session) Page() browser.Page { return s.page }

func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return browser.ErrClosed
	}
	s.closed = true
	if err := s.browser.Close(); err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}

// Page wraps a playwright page.
type Page struct {
	page playwright.Page
}

// Goto navigates and waits for the load event.
func (p *Page) Goto(ctx context.Context, url string, timeout time.Duration) error {
	ms, err := timeoutMillis(ctx, timeout)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	_, err = p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(ms),
	})
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, translate(err))
	}
	return nil
}

// WaitForNetworkIdle waits for Playwright's networkidle load state.
func (p *Page) WaitForNetworkIdle(ctx context.Context, timeout time.Duration) error {
	ms, err := timeoutMillis(ctx, timeout)
	if err != nil {
		return fmt.Errorf("network idle: %w", err)
	}
	err = p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(ms),
	})
	if err != nil {
		return fmt.Errorf("network idle: %w", translate(err))
	}
	return nil
}

// Query returns the first element matching sel.
func (p *Page) Query(ctx context.Context, sel browser.Selector) (browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := p.page.QuerySelector(sel.Playwright())
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", sel, translate(err))
	}
	if h == nil {
		return nil, nil
	}
	return &element{handle: h}, nil
}

// QueryAll returns every element matching sel in document order.
func (p *Page) QueryAll(ctx context.Context, sel browser.Selector) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handles, err := p.page.QuerySelectorAll(sel.Playwright())
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", sel, translate(err))
	}
	out := make([]browser.Element, 0, len(handles))
	for _, h := range handles {
		out = append(out, &element{handle: h})
	}
	return out, nil
}

// Attribute reads name from the first element matching css. Playwright does
// not distinguish a missing attribute from an empty one.
func (p *Page) Attribute(ctx context.Context, css, name string) (string, bool, error) {
	el, err := p.Query(ctx, browser.CSS(css))
	if err != nil || el == nil {
		return "", false, err
	}
	return el.Attribute(ctx, name)
}

// PressKey presses key on the page keyboard.
func (p *Page) PressKey(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.page.Keyboard().Press(key); err != nil {
		return fmt.Errorf("press %s: %w", key, translate(err))
	}
	return nil
}

type element struct {
	handle playwright.ElementHandle
}

func (e *element) Click(ctx context.Context) error {
	ms, err := timeoutMillis(ctx, 0)
	if err != nil {
		return fmt.Errorf("click: %w", err)
	}
	opts := playwright.ElementHandleClickOptions{}
	if ms > 0 {
		opts.Timeout = playwright.Float(ms)
	}
	if err := e.handle.Click(opts); err != nil {
		return fmt.Errorf("click: %w", translate(err))
	}
	return nil
}

func (e *element) InnerText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := e.handle.InnerText()
	if err != nil {
		return "", fmt.Errorf("inner text: %w", translate(err))
	}
	return text, nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	v, err := e.handle.GetAttribute(name)
	if err != nil {
		return "", false, fmt.Errorf("attribute %s: %w", name, translate(err))
	}
	return v, v != "", nil
}

func (e *element) Query(ctx context.Context, sel browser.Selector) (browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := e.handle.QuerySelector(sel.Playwright())
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", sel, translate(err))
	}
	if h == nil {
		return nil, nil
	}
	return &element{handle: h}, nil
}

// timeoutMillis clamps timeout to ctx's deadline. Playwright has no context
// support, so the deadline is the only way to honour cancellation.
func timeoutMillis(ctx context.Context, timeout time.Duration) (float64, error) {
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, fmt.Errorf("%w: %w", browser.ErrTimeout, err)
		}
		return 0, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return 0, fmt.Errorf("%w: %w", browser.ErrTimeout, context.DeadlineExceeded)
		}
		if timeout <= 0 || left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return 0, nil
	}
	// Playwright reads 0 as no limit.
	return float64(max(timeout.Milliseconds(), 1)), nil
}

func translate(err error) error {
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %w", browser.ErrTimeout, err)
	}
	switch browser.MatchFailure(err) {
	case browser.FailureTLS:
		return fmt.Errorf("%w: %w", browser.ErrTLS, err)
	case browser.FailureTimeout:
		return fmt.Errorf("%w: %w", browser.ErrTimeout, err)
	}
	return err
}

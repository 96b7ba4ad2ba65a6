// Package chromedp implements browser.Launcher with headless Chrome driven
// over the DevTools protocol.
package chromedp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/JakeFAU/sitecat/internal/browser"
)

// Config controls the headless browser.
type Config struct {
	UserAgent string
	// ExecPath overrides Chrome discovery.
	ExecPath string
	// IdleWindow is how long the network must stay quiet to count as idle.
	IdleWindow time.Duration
}

// Launcher starts one Chrome process per session.
type Launcher struct {
	cfg         Config
	allocator   context.Context
	allocCancel context.CancelFunc
}

// New creates a Launcher. Chrome is not started until NewSession.
func New(cfg Config) *Launcher {
	if cfg.IdleWindow <= 0 {
		cfg.IdleWindow = 500 * time.Millisecond
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Launcher{cfg: cfg, allocator: allocCtx, allocCancel: allocCancel}
}

// Close cancels the allocator context.
func (l *Launcher) Close() error {
	l.allocCancel()
	return nil
}

// NewSession starts a fresh browser with a single tab.
func (l *Launcher) NewSession(ctx context.Context, opts browser.SessionOptions) (browser.Session, error) {
	tabCtx, tabCancel := chromedp.NewContext(l.allocator)
	stop := context.AfterFunc(ctx, tabCancel)

	tracker := newInflight()
	blocked := blockedTypes(opts.BlockedResources)
	chromedp.ListenTarget(tabCtx, func(ev any) {
		tracker.observe(ev)
		if paused, ok := ev.(*fetch.EventRequestPaused); ok {
			go abortPaused(tabCtx, paused)
		}
	})

	ua := l.cfg.UserAgent
	if opts.UserAgent != "" {
		ua = opts.UserAgent
	}
	if err := chromedp.Run(tabCtx, setupAction(ua, blocked)); err != nil {
		stop()
		tabCancel()
		return nil, fmt.Errorf("start chrome session: %w", err)
	}
	stop()

	s := &session{cancel: tabCancel}
	s.page = &Page{ctx: tabCtx, tracker: tracker, idleWindow: l.cfg.IdleWindow}
	return s, nil
}

func setupAction(userAgent string, blocked []network.ResourceType) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if userAgent != "" {
			if err := emulation.SetUserAgentOverride(userAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		if len(blocked) == 0 {
			return nil
		}
		patterns := make([]*fetch.RequestPattern, 0, len(blocked))
		for _, rt := range blocked {
			patterns = append(patterns, &fetch.RequestPattern{
				URLPattern:   "*",
				ResourceType: rt,
				RequestStage: fetch.RequestStageRequest,
			})
		}
		if err := fetch.Enable().WithPatterns(patterns).Do(ctx); err != nil {
			return fmt.Errorf("enable request interception: %w", err)
		}
		return nil
	})
}

// abortPaused fails an intercepted request. Only blocked resource types are
// intercepted, so every paused request is aborted.
func abortPaused(tabCtx context.Context, ev *fetch.EventRequestPaused) {
	c := chromedp.FromContext(tabCtx)
	if c == nil || c.Target == nil {
		return
	}
	ctx := cdp.WithExecutor(tabCtx, c.Target)
	_ = fetch.FailRequest(ev.RequestID, network.ErrorReasonBlockedByClient).Do(ctx)
}

func blockedTypes(names []string) []network.ResourceType {
	out := make([]network.ResourceType, 0, len(names))
	seen := map[network.ResourceType]bool{}
	for _, name := range names {
		var rt network.ResourceType
		switch strings.ToLower(strings.TrimSpace(name)) {
		case browser.ResourceImage:
			rt = network.ResourceTypeImage
		case browser.ResourceFont:
			rt = network.ResourceTypeFont
		case browser.ResourceMedia:
			rt = network.ResourceTypeMedia
		case "stylesheet":
			rt = network.ResourceTypeStylesheet
		default:
			continue
		}
		if !seen[rt] {
			seen[rt] = true
			out = append(out, rt)
		}
	}
	return out
}

type session struct {
	page   *Page
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

func (s *session) Page() browser.Page { return s.page }

// Close shuts the tab and its browser process down.
func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return browser.ErrClosed
	}
	s.closed = true
	s.cancel()
	return nil
}

// Page is a Chrome tab.
type Page struct {
	ctx        context.Context
	tracker    *inflight
	idleWindow time.Duration
}

// run executes actions on the tab, bounded by the caller's ctx and timeout.
func (p *Page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx := p.ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(runCtx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("chromedp run: %w", ctx.Err())
	}
	return translate(err)
}

// Goto navigates and waits for the load event.
func (p *Page) Goto(ctx context.Context, url string, timeout time.Duration) error {
	if err := p.run(ctx, timeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// WaitForNetworkIdle polls the in-flight request set until it has been empty
// for the idle window.
func (p *Page) WaitForNetworkIdle(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if p.tracker.idleFor(time.Now()) >= p.idleWindow {
			return nil
		}
		if timeout > 0 && time.Now().After(deadline) {
			return fmt.Errorf("network idle: %w", browser.ErrTimeout)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("network idle: %w", ctx.Err())
		case <-p.ctx.Done():
			return browser.ErrClosed
		case <-ticker.C:
		}
	}
}

// Query returns the first element matching sel.
func (p *Page) Query(ctx context.Context, sel browser.Selector) (browser.Element, error) {
	ids, err := p.find(ctx, "", sel)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	return &element{page: p, id: ids[0]}, nil
}

// QueryAll returns every element matching sel in document order.
func (p *Page) QueryAll(ctx context.Context, sel browser.Selector) ([]browser.Element, error) {
	ids, err := p.find(ctx, "", sel)
	if err != nil {
		return nil, err
	}
	out := make([]browser.Element, 0, len(ids))
	for _, id := range ids {
		out = append(out, &element{page: p, id: id})
	}
	return out, nil
}

func (p *Page) find(ctx context.Context, rootID string, sel browser.Selector) ([]string, error) {
	expr, err := findScript(rootID, sel)
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := p.run(ctx, 0, chromedp.Evaluate(expr, &ids)); err != nil {
		return nil, fmt.Errorf("query %s: %w", sel, err)
	}
	return ids, nil
}

// Attribute reads name from the first element matching css.
func (p *Page) Attribute(ctx context.Context, css, name string) (string, bool, error) {
	expr, err := attributeScript("", css, name)
	if err != nil {
		return "", false, err
	}
	return p.attribute(ctx, expr)
}

func (p *Page) attribute(ctx context.Context, expr string) (string, bool, error) {
	var res attrResult
	if err := p.run(ctx, 0, chromedp.Evaluate(expr, &res)); err != nil {
		return "", false, fmt.Errorf("read attribute: %w", err)
	}
	return res.Value, res.Found, nil
}

// PressKey dispatches a key press to the focused element.
func (p *Page) PressKey(ctx context.Context, key string) error {
	if err := p.run(ctx, 0, chromedp.KeyEvent(keyFor(key))); err != nil {
		return fmt.Errorf("press %s: %w", key, err)
	}
	return nil
}

func keyFor(key string) string {
	switch strings.ToLower(key) {
	case "escape", "esc":
		return kb.Escape
	case "enter":
		return kb.Enter
	case "tab":
		return kb.Tab
	default:
		return key
	}
}

type element struct {
	page *Page
	id   string
}

func (e *element) Click(ctx context.Context) error {
	var clicked bool
	if err := e.page.run(ctx, 0, chromedp.Evaluate(clickScript(e.id), &clicked)); err != nil {
		return fmt.Errorf("click: %w", err)
	}
	if !clicked {
		return errors.New("click: element detached")
	}
	return nil
}

func (e *element) InnerText(ctx context.Context) (string, error) {
	var text string
	if err := e.page.run(ctx, 0, chromedp.Evaluate(innerTextScript(e.id), &text)); err != nil {
		return "", fmt.Errorf("inner text: %w", err)
	}
	return text, nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	expr, err := attributeScript(e.id, "", name)
	if err != nil {
		return "", false, err
	}
	return e.page.attribute(ctx, expr)
}

func (e *element) Query(ctx context.Context, sel browser.Selector) (browser.Element, error) {
	ids, err := e.page.find(ctx, e.id, sel)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	return &element{page: e.page, id: ids[0]}, nil
}

// translate maps chromedp failures onto the browser sentinels.
func translate(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
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

// Package browsertest provides scriptable in-memory browser doubles.
package browsertest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/JakeFAU/sitecat/internal/browser"
)

// Element is a fake DOM node.
type Element struct {
	Text     string
	Attrs    map[string]string
	Children map[string]*Element
	ClickErr error

	mu     sync.Mutex
	clicks int
}

// Clicks returns how often Click was called.
func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

// Click records the click.
func (e *Element) Click(context.Context) error {
	e.mu.Lock()
	e.clicks++
	e.mu.Unlock()
	return e.ClickErr
}

// InnerText returns Text.
func (e *Element) InnerText(context.Context) (string, error) { return e.Text, nil }

// Attribute reads Attrs.
func (e *Element) Attribute(_ context.Context, name string) (string, bool, error) {
	v, ok := e.Attrs[name]
	return v, ok, nil
}

// Query looks sel up in Children keyed by sel.String().
func (e *Element) Query(_ context.Context, sel browser.Selector) (browser.Element, error) {
	if child, ok := e.Children[sel.String()]; ok {
		return child, nil
	}
	return nil, nil
}

// Page is a fake page. Selectors are matched by their String() rendering.
type Page struct {
	// GotoErrs is consumed one entry per Goto call; nil entries succeed.
	// Once exhausted, Goto succeeds.
	GotoErrs []error
	// GotoDelay makes Goto block until the delay elapses or ctx ends.
	GotoDelay time.Duration
	IdleErr   error
	Elements  map[string]*Element
	Lists     map[string][]*Element
	// Attrs maps css -> attribute -> value.
	Attrs    map[string]map[string]string
	QueryErr map[string]error
	KeyErr   error
	// Panic makes every query panic with the given value.
	Panic any

	mu        sync.Mutex
	gotoCalls []string
	keys      []string
}

// Goto pops the next scripted error.
func (p *Page) Goto(ctx context.Context, url string, timeout time.Duration) error {
	p.mu.Lock()
	p.gotoCalls = append(p.gotoCalls, url)
	var err error
	if len(p.GotoErrs) > 0 {
		err = p.GotoErrs[0]
		p.GotoErrs = p.GotoErrs[1:]
	}
	delay := p.GotoDelay
	p.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return browser.ErrTimeout
			}
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

// GotoCalls returns the URLs passed to Goto.
func (p *Page) GotoCalls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.gotoCalls...)
}

// Keys returns the pressed keys.
func (p *Page) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

// WaitForNetworkIdle returns IdleErr.
func (p *Page) WaitForNetworkIdle(context.Context, time.Duration) error { return p.IdleErr }

// Query returns Elements[sel.String()].
func (p *Page) Query(_ context.Context, sel browser.Selector) (browser.Element, error) {
	if p.Panic != nil {
		panic(p.Panic)
	}
	if err := p.QueryErr[sel.String()]; err != nil {
		return nil, err
	}
	if el, ok := p.Elements[sel.String()]; ok {
		return el, nil
	}
	return nil, nil
}

// QueryAll returns Lists[sel.String()].
func (p *Page) QueryAll(_ context.Context, sel browser.Selector) ([]browser.Element, error) {
	if p.Panic != nil {
		panic(p.Panic)
	}
	if err := p.QueryErr[sel.String()]; err != nil {
		return nil, err
	}
	list := p.Lists[sel.String()]
	out := make([]browser.Element, 0, len(list))
	for _, el := range list {
		out = append(out, el)
	}
	return out, nil
}

// Attribute reads Attrs[css][name].
func (p *Page) Attribute(_ context.Context, css, name string) (string, bool, error) {
	if err := p.QueryErr[css]; err != nil {
		return "", false, err
	}
	v, ok := p.Attrs[css][name]
	return v, ok, nil
}

// PressKey records key.
func (p *Page) PressKey(_ context.Context, key string) error {
	p.mu.Lock()
	p.keys = append(p.keys, key)
	p.mu.Unlock()
	return p.KeyErr
}

// Session wraps a Page.
type Session struct {
	P *Page

	mu     sync.Mutex
	closed int
}

// Page returns P.
func (s *Session) Page() browser.Page { return s.P }

// Close counts closes.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
	return nil
}

// Closed reports how often Close was called.
func (s *Session) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Launcher hands out Sessions built by NewPage.
type Launcher struct {
	NewPage    func() *Page
	SessionErr error

	mu       sync.Mutex
	sessions []*Session
	opts     []browser.SessionOptions
}

// NewSession creates a session around a fresh page.
func (l *Launcher) NewSession(_ context.Context, opts browser.SessionOptions) (browser.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opts = append(l.opts, opts)
	if l.SessionErr != nil {
		return nil, l.SessionErr
	}
	page := &Page{}
	if l.NewPage != nil {
		page = l.NewPage()
	}
	s := &Session{P: page}
	l.sessions = append(l.sessions, s)
	return s, nil
}

// Close is a no-op.
func (l *Launcher) Close() error { return nil }

// Sessions returns every session handed out.
func (l *Launcher) Sessions() []*Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Session(nil), l.sessions...)
}

// Options returns the options each NewSession call received.
func (l *Launcher) Options() []browser.SessionOptions {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]browser.SessionOptions(nil), l.opts...)
}

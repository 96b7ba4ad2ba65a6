// Package static implements browser.Launcher over plain HTTP using gocolly
// and goquery. Pages are parsed but never executed, so clicks and key
// presses are unsupported; everything that reads the DOM works.
package static

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/sitecat/internal/browser"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Launcher hands out static sessions sharing one pooled transport.
type Launcher struct {
	cfg       Config
	transport http.RoundTripper
}

// New builds a Launcher.
func New(cfg Config) *Launcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Launcher{cfg: cfg, transport: newHTTPTransport()}
}

// NewSession returns a session with an empty page.
func (l *Launcher) NewSession(_ context.Context, opts browser.SessionOptions) (browser.Session, error) {
	ua := l.cfg.UserAgent
	if opts.UserAgent != "" {
		ua = opts.UserAgent
	}
	return &session{page: &Page{launcher: l, userAgent: ua}}, nil
}

// Close is a no-op; idle connections are released by the transport.
func (l *Launcher) Close() error {
	if t, ok := l.transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
	return nil
}

type session struct {
	page   *Page
	closed bool
}

func (s *session) Page() browser.Page { return s.page }

func (s *session) Close() error {
	if s.closed {
		return browser.ErrClosed
	}
	s.closed = true
	s.page.reset()
	return nil
}

// Page is a parsed HTML document.
type Page struct {
	launcher  *Launcher
	userAgent string

	mu  sync.RWMutex
	doc *goquery.Document
}

// NewPage parses html into a ready Page. It is used where a document is
// already in hand, such as cached bodies and tests.
func NewPage(html string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Page{doc: doc}, nil
}

// Goto fetches url with colly and parses the body.
func (p *Page) Goto(ctx context.Context, url string, timeout time.Duration) error {
	if p.launcher == nil {
		return fmt.Errorf("goto %s: %w", url, browser.ErrUnsupported)
	}
	body, err := p.launcher.fetch(ctx, url, p.userAgent, timeout)
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("parse %s: %w", url, err)
	}
	p.mu.Lock()
	p.doc = doc
	p.mu.Unlock()
	return nil
}

func (p *Page) reset() {
	p.mu.Lock()
	p.doc = nil
	p.mu.Unlock()
}

func (p *Page) document() (*goquery.Document, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.doc == nil {
		return nil, errors.New("static page: no document loaded")
	}
	return p.doc, nil
}

// WaitForNetworkIdle returns immediately; a static page has no network.
func (p *Page) WaitForNetworkIdle(context.Context, time.Duration) error {
	_, err := p.document()
	return err
}

// Query returns the first element matching sel.
func (p *Page) Query(_ context.Context, sel browser.Selector) (browser.Element, error) {
	doc, err := p.document()
	if err != nil {
		return nil, err
	}
	return first(doc.Selection, sel), nil
}

// QueryAll returns every element matching sel in document order.
func (p *Page) QueryAll(_ context.Context, sel browser.Selector) ([]browser.Element, error) {
	doc, err := p.document()
	if err != nil {
		return nil, err
	}
	return all(doc.Selection, sel), nil
}

// Attribute reads name from the first element matching css.
func (p *Page) Attribute(_ context.Context, css, name string) (string, bool, error) {
	doc, err := p.document()
	if err != nil {
		return "", false, err
	}
	node := doc.Find(css).First()
	if node.Length() == 0 {
		return "", false, nil
	}
	v, ok := node.Attr(name)
	return v, ok, nil
}

// PressKey is unsupported on a static document.
func (p *Page) PressKey(_ context.Context, key string) error {
	return fmt.Errorf("press %s: %w", key, browser.ErrUnsupported)
}

type element struct {
	sel *goquery.Selection
}

func (e element) Click(context.Context) error {
	return fmt.Errorf("click: %w", browser.ErrUnsupported)
}

func (e element) InnerText(context.Context) (string, error) {
	return innerText(e.sel), nil
}

func (e element) Attribute(_ context.Context, name string) (string, bool, error) {
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

func (e element) Query(_ context.Context, sel browser.Selector) (browser.Element, error) {
	return first(e.sel, sel), nil
}

// all walks root's descendants in document order and keeps those matching
// any alternative of sel.
func all(root *goquery.Selection, sel browser.Selector) []browser.Element {
	var out []browser.Element
	root.Find("*").Each(func(_ int, s *goquery.Selection) {
		if matches(s, sel) {
			out = append(out, element{sel: s})
		}
	})
	return out
}

func first(root *goquery.Selection, sel browser.Selector) browser.Element {
	var found browser.Element
	root.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if matches(s, sel) {
			found = element{sel: s}
			return false
		}
		return true
	})
	return found
}

func matches(s *goquery.Selection, sel browser.Selector) bool {
	for _, m := range sel {
		if m.CSS == "" || !s.Is(m.CSS) {
			continue
		}
		if m.MatchesText(s.Text()) {
			return true
		}
	}
	return false
}

// innerText approximates the rendered text: script and style bodies are
// dropped and whitespace runs collapse to one space.
func innerText(s *goquery.Selection) string {
	clone := s.Clone()
	clone.Find("script, style, noscript, template").Remove()
	return strings.Join(strings.Fields(clone.Text()), " ")
}

func (l *Launcher) fetch(ctx context.Context, url, userAgent string, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = l.cfg.Timeout
	}
	collector := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	collector.WithTransport(l.transport)
	collector.SetRequestTimeout(timeout)
	if userAgent != "" {
		collector.UserAgent = userAgent
	}

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("visit %s: %w", url, browser.ErrTimeout)
		}
		return nil, fmt.Errorf("visit %s canceled: %w", url, ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("visit %s: %w", url, err)
		}
		if fetchErr != nil {
			return nil, fmt.Errorf("response %s: %w", url, fetchErr)
		}
		return body, nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}

// Package browser declares the page-automation capability the classifier
// pipeline depends on. Drivers live in subpackages (chromedp, playwright,
// static) and translate their native failures into the sentinel errors
// below so callers can bucket them without string matching.
package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTimeout marks a navigation or query that ran out of time.
	ErrTimeout = errors.New("browser: timeout")
	// ErrTLS marks a TLS handshake or certificate failure.
	ErrTLS = errors.New("browser: tls failure")
	// ErrUnsupported is returned by drivers that cannot perform an action,
	// e.g. clicks on a static document.
	ErrUnsupported = errors.New("browser: unsupported action")
	// ErrClosed is returned after a session has been released.
	ErrClosed = errors.New("browser: session closed")
)

// Resource types that can be blocked while loading a page.
const (
	ResourceImage = "image"
	ResourceFont  = "font"
	ResourceMedia = "media"
)

// DefaultBlockedResources are aborted for every classification session.
var DefaultBlockedResources = []string{ResourceImage, ResourceFont, ResourceMedia}

// SessionOptions configures a freshly launched session.
type SessionOptions struct {
	BlockedResources []string
	UserAgent        string
}

// Launcher opens isolated sessions. Each session owns its own browser
// state; nothing is shared between two sessions.
type Launcher interface {
	NewSession(ctx context.Context, opts SessionOptions) (Session, error)
	Close() error
}

// Session is one isolated browser with a single page.
type Session interface {
	Page() Page
	Close() error
}

// Page is a loaded (or loadable) document.
type Page interface {
	// Goto loads url, bounded by timeout.
	Goto(ctx context.Context, url string, timeout time.Duration) error
	// WaitForNetworkIdle blocks until no requests are in flight.
	WaitForNetworkIdle(ctx context.Context, timeout time.Duration) error
	// Query returns the first element matching sel, or nil when none does.
	Query(ctx context.Context, sel Selector) (Element, error)
	// QueryAll returns every element matching sel in document order.
	QueryAll(ctx context.Context, sel Selector) ([]Element, error)
	// Attribute reads attribute name of the first element matching css.
	// ok is false when the element or the attribute is missing.
	Attribute(ctx context.Context, css, name string) (value string, ok bool, err error)
	// PressKey sends a key press (e.g. "Escape") to the page.
	PressKey(ctx context.Context, key string) error
}

// Element is a handle to one DOM node of a Page.
type Element interface {
	Click(ctx context.Context) error
	InnerText(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (value string, ok bool, err error)
	// Query searches the element's subtree.
	Query(ctx context.Context, sel Selector) (Element, error)
}

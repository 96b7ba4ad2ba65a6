package browser

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectorPlaywrightRendering(t *testing.T) {
	t.Parallel()

	sel := CSS("#onetrust-accept-btn-handler").Or(HasText("button", "Accept", "Agree"))
	assert.Equal(t, `#onetrust-accept-btn-handler, button:has-text("Accept"), button:has-text("Agree")`, sel.Playwright())
	assert.Equal(t, sel.Playwright(), sel.String())
}

func TestMatchTextIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	m := Match{CSS: "button", HasText: "Accept"}
	assert.True(t, m.MatchesText("  ACCEPT all cookies "))
	assert.False(t, m.MatchesText("Reject"))
	assert.True(t, Match{CSS: "a"}.MatchesText("anything"))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o wait" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassifyFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{name: "nil", err: nil, want: FailureOther},
		{name: "sentinel timeout", err: fmt.Errorf("goto: %w", ErrTimeout), want: FailureTimeout},
		{name: "sentinel tls", err: fmt.Errorf("goto: %w", ErrTLS), want: FailureTLS},
		{name: "deadline", err: fmt.Errorf("run: %w", context.DeadlineExceeded), want: FailureTimeout},
		{name: "net timeout", err: &url.Error{Op: "Get", URL: "https://x", Err: timeoutErr{}}, want: FailureTimeout},
		{name: "x509", err: &url.Error{Op: "Get", URL: "https://x", Err: x509.UnknownAuthorityError{}}, want: FailureTLS},
		{name: "chrome cert", err: errors.New("page load error net::ERR_CERT_DATE_INVALID"), want: FailureTLS},
		{name: "curl ssl", err: errors.New("SSL connect error"), want: FailureTLS},
		{name: "playwright timeout", err: errors.New("TimeoutError: Timeout 30000ms exceeded."), want: FailureTimeout},
		{name: "plain", err: errors.New("connection refused"), want: FailureOther},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ClassifyFailure(tc.err))
		})
	}
}

func TestClassifyFailureIgnoresLocation(t *testing.T) {
	t.Parallel()

	dns := errors.New("page load error net::ERR_NAME_NOT_RESOLVED")
	hosts := []string{
		"hassle-free-fashion.com",
		"giftcertificates-shop.com",
		"timeout-store.co.uk",
		"ssl-outlet.example",
		"plain-shop.com",
	}
	for _, host := range hosts {
		t.Run(host, func(t *testing.T) {
			t.Parallel()
			u := "https://" + host
			err := fmt.Errorf("load page: navigate %s: %w", u, dns)
			assert.Equal(t, FailureOther, ClassifyFailure(err))

			opaque := fmt.Errorf("load page: %w",
				errors.New("net::ERR_CONNECTION_REFUSED at "+u+"/\nCall log:\n  - navigating to \""+u+"/\", waiting until \"load\""))
			assert.Equal(t, FailureOther, ClassifyFailure(opaque))
		})
	}
}

func TestMatchFailureUsesCause(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("navigate https://shop.example: %w", errors.New("net::ERR_SSL_PROTOCOL_ERROR at https://shop.example/"))
	assert.Equal(t, FailureTLS, MatchFailure(err))

	err = fmt.Errorf("navigate https://shop.example: %w", errors.New("Timeout 30000ms exceeded."))
	assert.Equal(t, FailureTimeout, MatchFailure(err))

	joined := errors.Join(errors.New("connection reset"), errors.New("x509: certificate signed by unknown authority"))
	assert.Equal(t, FailureTLS, MatchFailure(joined))

	assert.Equal(t, FailureOther, MatchFailure(errors.New("certificate-deals.com refused")))
}

package browser

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"regexp"
	"strings"
)

// FailureKind is the bucket a page-load failure is counted in.
type FailureKind string

// Failure kinds.
const (
	FailureTimeout FailureKind = "timeout"
	FailureTLS     FailureKind = "ssl"
	FailureOther   FailureKind = "other"
)

var tlsFragments = []string{
	"ssl peer certificate or ssh remote key was not ok",
	"ssl connect error",
	"net::err_ssl",
	"net::err_cert",
	"net::err_bad_ssl",
	"tls:",
	"x509:",
}

var timeoutFragments = []string{
	"timeouterror",
	"timeout",
	"timed out",
	"deadline exceeded",
	"net::err_timed_out",
	"net::err_connection_timed_out",
}

// locationPattern matches URLs and host names. Drivers embed them in error
// text and they must not feed the fragment scan.
var locationPattern = regexp.MustCompile(`[a-z][a-z0-9+.-]*://\S*|[a-z0-9-]+(?:\.[a-z0-9-]+)+`)

// ClassifyFailure buckets err. Structured signals are checked first; the
// substring fallback only handles errors that crossed an opaque boundary.
func ClassifyFailure(err error) FailureKind {
	if err == nil {
		return FailureOther
	}
	if errors.Is(err, ErrTLS) || isTLSError(err) {
		return FailureTLS
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	return MatchFailure(err)
}

// MatchFailure scans the innermost error text of err, with URLs and host
// names removed, for TLS and timeout fragments.
func MatchFailure(err error) FailureKind {
	if err == nil {
		return FailureOther
	}
	for _, msg := range causeMessages(err) {
		msg = locationPattern.ReplaceAllString(strings.ToLower(msg), " ")
		for _, f := range tlsFragments {
			if strings.Contains(msg, f) {
				return FailureTLS
			}
		}
		for _, f := range timeoutFragments {
			if strings.Contains(msg, f) {
				return FailureTimeout
			}
		}
	}
	return FailureOther
}

// causeMessages returns the texts of the innermost errors of err's tree,
// leaving out the context added by wrapping.
func causeMessages(err error) []string {
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		var out []string
		for _, e := range u.Unwrap() {
			if e != nil {
				out = append(out, causeMessages(e)...)
			}
		}
		return out
	case interface{ Unwrap() error }:
		if inner := u.Unwrap(); inner != nil {
			return causeMessages(inner)
		}
	}
	return []string{err.Error()}
}

func isTLSError(err error) bool {
	var (
		certErr     *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidErr  x509.CertificateInvalidError
	)
	return errors.As(err, &certErr) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidErr)
}

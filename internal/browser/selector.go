package browser

import (
	"fmt"
	"strings"
)

// Match selects elements by CSS and, optionally, by contained text. Text
// matching is a case-insensitive substring test on the element's text,
// mirroring Playwright's :has-text pseudo-class.
type Match struct {
	CSS     string
	HasText string
}

// Selector is a union of matches; an element matching any of them matches.
type Selector []Match

// CSS builds a selector from plain CSS selectors.
func CSS(selectors ...string) Selector {
	out := make(Selector, 0, len(selectors))
	for _, s := range selectors {
		out = append(out, Match{CSS: s})
	}
	return out
}

// HasText builds a selector matching css elements containing any of texts.
func HasText(css string, texts ...string) Selector {
	out := make(Selector, 0, len(texts))
	for _, t := range texts {
		out = append(out, Match{CSS: css, HasText: t})
	}
	return out
}

// Or concatenates selectors.
func (s Selector) Or(other Selector) Selector {
	out := make(Selector, 0, len(s)+len(other))
	out = append(out, s...)
	return append(out, other...)
}

// Playwright renders the selector with Playwright's :has-text syntax.
func (s Selector) Playwright() string {
	parts := make([]string, 0, len(s))
	for _, m := range s {
		if m.HasText == "" {
			parts = append(parts, m.CSS)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:has-text(%q)", m.CSS, m.HasText))
	}
	return strings.Join(parts, ", ")
}

// String is the Playwright rendering, used in logs.
func (s Selector) String() string { return s.Playwright() }

// MatchesText reports whether text satisfies m's text predicate.
func (m Match) MatchesText(text string) bool {
	if m.HasText == "" {
		return true
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(m.HasText))
}

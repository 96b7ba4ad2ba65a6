package chromedp

import (
	"encoding/json"
	"fmt"

	"github.com/JakeFAU/sitecat/internal/browser"
)

// Elements found by a query are tagged with this attribute so later calls
// can address them without holding remote object handles.
const idAttr = "data-sitecat-id"

type matchArg struct {
	CSS  string `json:"css"`
	Text string `json:"text"`
}

type attrResult struct {
	Found bool   `json:"found"`
	Value string `json:"value"`
}

const lookupJS = `function __sitecatLookup(id) {
  return id ? document.querySelector('[` + idAttr + `="' + id + '"]') : document;
}`

const findJS = `(function(rootId, matches) {
  %s
  const root = __sitecatLookup(rootId);
  if (!root) { return []; }
  const out = [];
  for (const el of root.querySelectorAll('*')) {
    for (const m of matches) {
      let ok = false;
      try { ok = el.matches(m.css); } catch (e) { ok = false; }
      if (!ok) { continue; }
      if (m.text) {
        const text = (el.innerText || el.textContent || '').toLowerCase();
        if (!text.includes(m.text.toLowerCase())) { continue; }
      }
      if (!el.getAttribute('` + idAttr + `')) {
        window.__sitecatSeq = (window.__sitecatSeq || 0) + 1;
        el.setAttribute('` + idAttr + `', String(window.__sitecatSeq));
      }
      out.push(el.getAttribute('` + idAttr + `'));
      break;
    }
  }
  return out;
})(%s, %s)`

func findScript(rootID string, sel browser.Selector) (string, error) {
	matches := make([]matchArg, 0, len(sel))
	for _, m := range sel {
		if m.CSS == "" {
			continue
		}
		matches = append(matches, matchArg{CSS: m.CSS, Text: m.HasText})
	}
	rawRoot, err := json.Marshal(rootID)
	if err != nil {
		return "", fmt.Errorf("encode root id: %w", err)
	}
	rawMatches, err := json.Marshal(matches)
	if err != nil {
		return "", fmt.Errorf("encode selector: %w", err)
	}
	return fmt.Sprintf(findJS, lookupJS, rawRoot, rawMatches), nil
}

const attributeJS = `(function(rootId, css, name) {
  %s
  let el = __sitecatLookup(rootId);
  if (el && css) { el = el.querySelector(css); }
  if (!el || el === document || !el.hasAttribute(name)) { return {found: false, value: ''}; }
  return {found: true, value: el.getAttribute(name)};
})(%s, %s, %s)`

func attributeScript(rootID, css, name string) (string, error) {
	args := make([]any, 0, 3)
	for _, v := range []string{rootID, css, name} {
		raw, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("encode attribute query: %w", err)
		}
		args = append(args, string(raw))
	}
	return fmt.Sprintf(attributeJS, append([]any{lookupJS}, args...)...), nil
}

func clickScript(id string) string {
	raw, _ := json.Marshal(id)
	return fmt.Sprintf(`(function(id) {
  %s
  const el = __sitecatLookup(id);
  if (!el || el === document) { return false; }
  el.click();
  return true;
})(%s)`, lookupJS, raw)
}

func innerTextScript(id string) string {
	raw, _ := json.Marshal(id)
	return fmt.Sprintf(`(function(id) {
  %s
  const el = __sitecatLookup(id);
  if (!el || el === document) { return ''; }
  return el.innerText || el.textContent || '';
})(%s)`, lookupJS, raw)
}

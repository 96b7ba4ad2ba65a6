package chromedp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp/kb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/sitecat/internal/browser"
)

func TestBlockedTypes(t *testing.T) {
	t.Parallel()

	got := blockedTypes([]string{"image", " FONT ", "media", "image", "script"})
	assert.Equal(t, []network.ResourceType{
		network.ResourceTypeImage,
		network.ResourceTypeFont,
		network.ResourceTypeMedia,
	}, got)
	assert.Empty(t, blockedTypes(nil))
}

func TestKeyFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, kb.Escape, keyFor("Escape"))
	assert.Equal(t, kb.Enter, keyFor("enter"))
	assert.Equal(t, "a", keyFor("a"))
}

func TestTranslate(t *testing.T) {
	t.Parallel()

	err := translate(fmt.Errorf("wrap: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, err, browser.ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	err = translate(errors.New("page load error net::ERR_CERT_AUTHORITY_INVALID"))
	assert.ErrorIs(t, err, browser.ErrTLS)

	err = translate(errors.New("page load error net::ERR_CONNECTION_TIMED_OUT"))
	assert.ErrorIs(t, err, browser.ErrTimeout)

	plain := errors.New("page load error net::ERR_NAME_NOT_RESOLVED")
	assert.Equal(t, plain, translate(plain))
}

func TestInflightIdle(t *testing.T) {
	t.Parallel()

	f := newInflight()
	f.observe(&network.EventRequestWillBeSent{RequestID: "1"})
	f.observe(&network.EventRequestWillBeSent{RequestID: "2"})
	assert.Zero(t, f.idleFor(time.Now().Add(time.Hour)))

	f.observe(&network.EventLoadingFinished{RequestID: "1"})
	assert.Zero(t, f.idleFor(time.Now().Add(time.Hour)))

	f.observe(&network.EventLoadingFailed{RequestID: "2"})
	now := time.Now()
	assert.GreaterOrEqual(t, f.idleFor(now.Add(time.Second)), time.Second-time.Millisecond)

	// Unknown ids do not reset the idle clock.
	f.observe(&network.EventLoadingFinished{RequestID: "zzz"})
	assert.GreaterOrEqual(t, f.idleFor(now.Add(time.Second)), time.Second-time.Millisecond)
}

func TestScriptsEncodeArguments(t *testing.T) {
	t.Parallel()

	expr, err := findScript("7", browser.HasText("button", `Say "yes"`))
	require.NoError(t, err)
	assert.Contains(t, expr, `"7"`)
	assert.Contains(t, expr, `[{"css":"button","text":"Say \"yes\""}]`)

	expr, err = attributeScript("", `meta[name="description"]`, "content")
	require.NoError(t, err)
	assert.Contains(t, expr, `"meta[name=\"description\"]"`)
	assert.Contains(t, expr, `"content"`)

	assert.Contains(t, clickScript("3"), `"3"`)
	assert.Contains(t, innerTextScript("4"), `"4"`)
}

func chromeAvailable() bool {
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

func TestSessionAgainstLocalServer(t *testing.T) {
	if testing.Short() || !chromeAvailable() {
		t.Skip("chrome not available")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html lang="en"><head><title>Shoes</title>
<meta name="description" content="Sneakers and boots"></head>
<body><div id="modal"><button onclick="document.getElementById('modal').remove()">Close</button></div>
<h2>Boots</h2></body></html>`)
	}))
	defer srv.Close()

	l := New(Config{})
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sess, err := l.NewSession(ctx, browser.SessionOptions{BlockedResources: browser.DefaultBlockedResources})
	require.NoError(t, err)
	defer sess.Close()

	page := sess.Page()
	require.NoError(t, page.Goto(ctx, srv.URL, 10*time.Second))
	require.NoError(t, page.WaitForNetworkIdle(ctx, 5*time.Second))

	desc, ok, err := page.Attribute(ctx, `meta[name="description"]`, "content")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Sneakers and boots", desc)

	btn, err := page.Query(ctx, browser.HasText("button", "close"))
	require.NoError(t, err)
	require.NotNil(t, btn)
	require.NoError(t, btn.Click(ctx))

	gone, err := page.Query(ctx, browser.CSS("#modal"))
	require.NoError(t, err)
	assert.Nil(t, gone)

	heading, err := page.Query(ctx, browser.CSS("h2"))
	require.NoError(t, err)
	text, err := heading.InnerText(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Boots", strings.TrimSpace(text))
	require.NoError(t, page.PressKey(ctx, "Escape"))
}

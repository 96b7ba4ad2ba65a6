package extractor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pemistahl/lingua-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/sitecat/internal/browser"
	"github.com/JakeFAU/sitecat/internal/browser/browsertest"
	"github.com/JakeFAU/sitecat/internal/browser/static"
	"github.com/JakeFAU/sitecat/internal/telemetry"
)

type recorder struct {
	kinds []telemetry.ErrorKind
}

func (r *recorder) RecordError(kind telemetry.ErrorKind) { r.kinds = append(r.kinds, kind) }

func staticPage(t *testing.T, html string) *static.Page {
	t.Helper()
	page, err := static.NewPage(html)
	require.NoError(t, err)
	return page
}

func TestExtractConcatenatesInOrder(t *testing.T) {
	t.Parallel()

	page := staticPage(t, `<html lang="fr"><head>
<title>Boutique</title>
<meta property="og:title" content="OG T">
<meta property="og:description" content="OG D">
<meta name="keywords" content="robes">
</head><body>
<h1>H1</h1><h2>H2</h2>
<a href="/shoes/new">Chaussures</a><a href="/about">About</a>
</body></html>`)

	rec := &recorder{}
	md, ok := New(Config{}, rec, nil).Extract(context.Background(), page)
	require.True(t, ok)
	assert.Equal(t, "fr", md.Language)
	assert.Equal(t, "OG T OG D robes Boutique H1 H2 Chaussures Language: fr", md.Text)
	assert.Empty(t, rec.kinds)
}

func TestExtractDefaultsTitleAndLanguage(t *testing.T) {
	t.Parallel()

	page := staticPage(t, `<html><body><p>nothing</p></body></html>`)
	md, ok := New(Config{}, nil, nil).Extract(context.Background(), page)
	require.True(t, ok)
	assert.Equal(t, "en", md.Language)
	assert.Equal(t, "Untitled Page Language: en", md.Text)
}

func TestExtractCapsWords(t *testing.T) {
	t.Parallel()

	page := staticPage(t, `<html lang="en"><head><title>`+strings.Repeat("word ", 700)+`</title></head></html>`)
	md, ok := New(Config{}, nil, nil).Extract(context.Background(), page)
	require.True(t, ok)
	assert.Len(t, strings.Fields(md.Text), DefaultMaxWords)
	assert.NotContains(t, md.Text, "Language:")

	md, ok = New(Config{MaxWords: 3}, nil, nil).Extract(context.Background(), page)
	require.True(t, ok)
	assert.Equal(t, "word word word", md.Text)
}

func TestExtractIdleFailureIsCounted(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	page := &browsertest.Page{IdleErr: errors.New("network busy")}
	_, ok := New(Config{}, rec, nil).Extract(context.Background(), page)
	assert.False(t, ok)
	assert.Equal(t, []telemetry.ErrorKind{telemetry.KindMetadata}, rec.kinds)
}

func TestExtractHeadingFailureAborts(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	page := &browsertest.Page{QueryErr: map[string]error{headingSelector.String(): errors.New("detached")}}
	_, ok := New(Config{}, rec, nil).Extract(context.Background(), page)
	assert.False(t, ok)
	assert.Equal(t, []telemetry.ErrorKind{telemetry.KindMetadata}, rec.kinds)
}

func TestExtractProbeFailureDegradesField(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	page := &browsertest.Page{
		Attrs: map[string]map[string]string{
			`meta[name="description"]`: {"content": "Sneakers"},
			"html":                     {"lang": "en-GB"},
		},
		QueryErr: map[string]error{`meta[property="og:title"]`: errors.New("boom")},
		Elements: map[string]*browsertest.Element{titleSelector.String(): {Text: "Shop"}},
	}
	md, ok := New(Config{}, rec, nil).Extract(context.Background(), page)
	require.True(t, ok)
	assert.Equal(t, "Sneakers Shop Language: en-GB", md.Text)
	assert.Equal(t, "en-GB", md.Language)
	assert.Empty(t, rec.kinds)
}

// hungPage settles the network but never answers a DOM read until ctx ends.
type hungPage struct {
	*browsertest.Page
}

func (hungPage) Attribute(ctx context.Context, _, _ string) (string, bool, error) {
	<-ctx.Done()
	return "", false, ctx.Err()
}

func (hungPage) Query(ctx context.Context, _ browser.Selector) (browser.Element, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (hungPage) QueryAll(ctx context.Context, _ browser.Selector) ([]browser.Element, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestExtractReadTimeoutAborts(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	ex := New(Config{IdleTimeout: 100 * time.Millisecond, ReadTimeout: 50 * time.Millisecond}, rec, nil)

	done := make(chan bool, 1)
	go func() {
		_, ok := ex.Extract(context.Background(), hungPage{Page: &browsertest.Page{}})
		done <- ok
	}()

	select {
	case ok := <-done:
		assert.False(t, ok)
		assert.Equal(t, []telemetry.ErrorKind{telemetry.KindMetadata}, rec.kinds)
	case <-time.After(3 * time.Second):
		t.Fatal("extract did not honour the read timeout")
	}
}

type fixedDetector string

func (d fixedDetector) Detect(string) (string, bool) { return string(d), d != "" }

func TestExtractUsesDetectorWhenLangMissing(t *testing.T) {
	t.Parallel()

	page := staticPage(t, `<html><head><title>Kleider</title></head></html>`)
	md, ok := New(Config{}, nil, nil, WithLanguageDetector(fixedDetector("de"))).Extract(context.Background(), page)
	require.True(t, ok)
	assert.Equal(t, "de", md.Language)
	assert.Equal(t, "Kleider Language: de", md.Text)

	md, ok = New(Config{}, nil, nil, WithLanguageDetector(fixedDetector(""))).Extract(context.Background(), page)
	require.True(t, ok)
	assert.Equal(t, "en", md.Language)
}

func TestLinguaDetect(t *testing.T) {
	t.Parallel()

	d := NewLinguaFor(lingua.English, lingua.French, lingua.German)
	lang, ok := d.Detect("Die neue Kollektion mit Kleidern, Schuhen und Jacken ist jetzt im Laden erhältlich")
	require.True(t, ok)
	assert.Equal(t, "de", lang)
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a b", Truncate("  a \n b  ", 10))
	assert.Equal(t, "a b", Truncate("a b c", 2))
	assert.Equal(t, "", Truncate("   ", 2))
}

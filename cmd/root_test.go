package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitecat/internal/category"
	"github.com/JakeFAU/sitecat/internal/config"
	"github.com/JakeFAU/sitecat/internal/telemetry"
)

type fakeApp struct {
	closed  int
	dryRun  bool
	runs    int
	runErr  error
	urls    []string
	results map[string]category.Result
	gotCfg  config.Config
}

func (f *fakeApp) Close() { f.closed++ }

func (f *fakeApp) Logger() *zap.Logger { return zap.NewNop() }

func (f *fakeApp) Classify(_ context.Context, url string) category.Result {
	f.urls = append(f.urls, url)
	if res, ok := f.results[url]; ok {
		return res
	}
	return category.FailedResult()
}

func (f *fakeApp) RunBatch(_ context.Context, dryRun bool) (telemetry.Summary, error) {
	f.runs++
	f.dryRun = dryRun
	return telemetry.Summary{URLsProcessed: 1}, f.runErr
}

func withFakeApp(t *testing.T, fake *fakeApp) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SITECAT_STORE_BACKEND", "csv")
	t.Setenv("SITECAT_STORE_CSV_PATH", "sites.csv")
	orig := newApp
	newApp = func(_ context.Context, cfg config.Config, _ *zap.Logger) (App, error) {
		fake.gotCfg = cfg
		return fake, nil
	}
	t.Cleanup(func() { newApp = orig })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := executeRoot(context.Background(), root)
	return out.String(), err
}

func TestRunCommandDryRun(t *testing.T) {
	fake := &fakeApp{}
	withFakeApp(t, fake)

	_, err := execute(t, "run", "--dry-run")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.runs)
	assert.True(t, fake.dryRun)
	assert.Equal(t, 1, fake.closed)
	assert.Equal(t, config.StoreCSV, fake.gotCfg.Store.Backend)
}

func TestRunCommandPropagatesStoreFailure(t *testing.T) {
	fake := &fakeApp{runErr: errors.New("header mismatch")}
	withFakeApp(t, fake)

	_, err := execute(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header mismatch")
	assert.False(t, fake.dryRun)
	assert.Equal(t, 1, fake.closed)
}

func TestClassifyCommandPrintsResults(t *testing.T) {
	fake := &fakeApp{results: map[string]category.Result{
		"shop.example.com": category.FromRules(category.Shoes),
	}}
	withFakeApp(t, fake)

	out, err := execute(t, "classify", "shop.example.com", "down.example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"shop.example.com", "down.example.com"}, fake.urls)
	assert.Contains(t, out, "shop.example.com\t7\t1\tShoes\trules\n")
	assert.Contains(t, out, "down.example.com\t-\t0\tNo match\tnone\n")
}

func TestClassifyCommandRequiresURL(t *testing.T) {
	fake := &fakeApp{}
	withFakeApp(t, fake)

	_, err := execute(t, "classify")
	assert.Error(t, err)
	assert.Empty(t, fake.urls)
}

func TestInvalidConfigFailsBeforeAppIsBuilt(t *testing.T) {
	fake := &fakeApp{}
	withFakeApp(t, fake)
	t.Setenv("SITECAT_BROWSER_DRIVER", "lynx")

	_, err := execute(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "browser.driver")
	assert.Equal(t, 0, fake.runs)
}

func TestClassifyCommandNeedsNoStoreSettings(t *testing.T) {
	fake := &fakeApp{}
	withFakeApp(t, fake)
	t.Setenv("SITECAT_STORE_BACKEND", "sheets")
	t.Setenv("GOOGLE_SHEET_ID", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := execute(t, "classify", "shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"shop.example.com"}, fake.urls)
	assert.Equal(t, 1, fake.closed)
}

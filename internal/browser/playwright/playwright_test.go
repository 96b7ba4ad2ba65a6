package playwright

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/sitecat/internal/browser"
)

func TestNormalizeEngine(t *testing.T) {
	t.Parallel()

	assert.Equal(t, EngineWebKit, normalizeEngine(""))
	assert.Equal(t, EngineChromium, normalizeEngine(" Chromium "))
	assert.Equal(t, "opera", normalizeEngine("opera"))
}

func TestBlockSet(t *testing.T) {
	t.Parallel()

	set := blockSet([]string{"Image", "font", "", " media "})
	assert.Equal(t, map[string]bool{"image": true, "font": true, "media": true}, set)
}

func TestTimeoutMillis(t *testing.T) {
	t.Parallel()

	ms, err := timeoutMillis(context.Background(), 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, float64(30000), ms)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ms, err = timeoutMillis(ctx, time.Minute)
	require.NoError(t, err)
	assert.LessOrEqual(t, ms, float64(1000))

	ms, err = timeoutMillis(context.Background(), 500*time.Microsecond)
	require.NoError(t, err)
	assert.Equal(t, float64(1), ms)

	ms, err = timeoutMillis(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, ms)

	expired, cancelExpired := context.WithTimeout(context.Background(), -time.Second)
	defer cancelExpired()
	_, err = timeoutMillis(expired, time.Minute)
	assert.ErrorIs(t, err, browser.ErrTimeout)

	canceled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	_, err = timeoutMillis(canceled, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTranslate(t *testing.T) {
	t.Parallel()

	err := translate(fmt.Errorf("goto: %w", playwright.ErrTimeout))
	assert.ErrorIs(t, err, browser.ErrTimeout)

	err = translate(errors.New("SSL peer certificate or SSH remote key was not OK"))
	assert.ErrorIs(t, err, browser.ErrTLS)

	plain := errors.New("net::ERR_NAME_NOT_RESOLVED")
	assert.Equal(t, plain, translate(plain))

	dns := errors.New("net::ERR_NAME_NOT_RESOLVED at https://ssl-certificate-shop.com/")
	assert.Equal(t, dns, translate(dns))
}

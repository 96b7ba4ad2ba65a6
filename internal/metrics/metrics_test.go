package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/JakeFAU/sitecat/internal/category"
	"github.com/JakeFAU/sitecat/internal/telemetry"
)

func TestRecorderMirrorsTelemetry(t *testing.T) {
	t.Parallel()

	rec := New(nil)
	run := telemetry.New(time.Now(), telemetry.WithObserver(rec))

	run.MarkProcessed()
	run.MarkProcessed()
	run.RecordError(telemetry.KindTimeout)
	run.RecordError(telemetry.KindEmptyURL)
	run.AddTokens(120, 4, 0)

	assert.InDelta(t, 2, testutil.ToFloat64(rec.urlsProcessed), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(rec.errors.WithLabelValues("timeout")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(rec.errors.WithLabelValues("empty_url")), 0)
	assert.InDelta(t, 120, testutil.ToFloat64(rec.tokens.WithLabelValues("input")), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(rec.tokens.WithLabelValues("output")), 0)
}

func TestObserveClassification(t *testing.T) {
	t.Parallel()

	rec := New(nil)
	rec.ObserveClassification(category.FromRules(category.Shoes), 2*time.Second)
	rec.ObserveClassification(category.FailedResult(), time.Second)
	rec.ObserveWriteRetry()

	assert.InDelta(t, 1, testutil.ToFloat64(rec.classifications.WithLabelValues("7", "rules")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(rec.classifications.WithLabelValues("-", "none")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(rec.writeRetries), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(rec.pageDuration))
}

func TestRecordersAreIndependent(t *testing.T) {
	t.Parallel()

	a := New(nil)
	b := New(nil)
	a.ObserveProcessed()
	assert.InDelta(t, 1, testutil.ToFloat64(a.urlsProcessed), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.urlsProcessed), 0)
}

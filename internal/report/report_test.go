package report

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/sitecat/internal/telemetry"
)

func sampleSummary() telemetry.Summary {
	return telemetry.Summary{
		RunID:          "run-1",
		URLsProcessed:  10,
		ValidURLCount:  10,
		TimeoutErrors:  2,
		SSLErrors:      1,
		MetadataErrors: 1,
		LLMErrors:      0,
		OtherErrors:    1,
		TokensUsed:     1500,
		InputTokens:    1000,
		OutputTokens:   500,
		Elapsed:        12340 * time.Millisecond,
		Cost:           telemetry.Cost(telemetry.DefaultPricing, 1000, 500),
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleSummary()))
	out := buf.String()

	assert.Contains(t, out, "Total URLs processed: 10\n")
	assert.Contains(t, out, "Total URLs failed due to timeout errors: 2\n")
	assert.Contains(t, out, "Total URLs failed: 5 out of 10\n")
	assert.Contains(t, out, "Total URLs successfully updated: 5 out of 10\n")
	assert.Contains(t, out, "Time taken: 12.34 seconds\n")
	assert.Contains(t, out, "Total tokens used: 1500 (input 1000, output 500)\n")
	assert.Contains(t, out, "Cost of tokens used: $0.06\n")
	assert.NotContains(t, out, "not written to the store")
}

func TestRenderShowsWriteErrors(t *testing.T) {
	t.Parallel()

	sum := sampleSummary()
	sum.WriteErrors = 3
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sum))
	assert.Contains(t, buf.String(), "Total rows not written to the store: 3\n")
}

func TestLogSink(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	require.NoError(t, LogSink{Logger: zap.New(core)}.Report(context.Background(), sampleSummary()))

	entries := logs.FilterMessage("run summary").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "run-1", fields["run_id"])
	assert.EqualValues(t, 5, fields["total_failures"])
}

type failingSink struct{ err error }

func (f failingSink) Report(context.Context, telemetry.Summary) error { return f.err }

func TestMultiRunsAllSinks(t *testing.T) {
	t.Parallel()

	errA := errors.New("a failed")
	errB := errors.New("b failed")
	var buf bytes.Buffer
	m := Multi{failingSink{errA}, nil, WriterSink{W: &buf}, failingSink{errB}}

	err := m.Report(context.Background(), sampleSummary())
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.NotEmpty(t, buf.String(), "writer sink still ran")
}

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingWriter struct{ n int }

func (c *countingWriter) UpdateCell(context.Context, int, int, string) error {
	c.n++
	return nil
}

func TestNewThrottledDisabled(t *testing.T) {
	t.Parallel()

	w := &countingWriter{}
	assert.Same(t, w, NewThrottled(w, 0, 0))
}

func TestThrottledSpacesWrites(t *testing.T) {
	t.Parallel()

	w := &countingWriter{}
	th := NewThrottled(w, 20, 1)
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, th.UpdateCell(context.Background(), 2, ColProduct, "9"))
	}
	assert.Equal(t, 3, w.n)
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestThrottledHonoursCancellation(t *testing.T) {
	t.Parallel()

	w := &countingWriter{}
	th := NewThrottled(w, 0.001, 1)
	require.NoError(t, th.UpdateCell(context.Background(), 2, ColProduct, "9"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, th.UpdateCell(ctx, 2, ColStatus, "1"))
	assert.Equal(t, 1, w.n)
}

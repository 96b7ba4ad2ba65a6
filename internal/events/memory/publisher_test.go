package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/sitecat/internal/events"
)

func TestPublisherStoresEvents(t *testing.T) {
	t.Parallel()

	pub := New(0)
	require.NoError(t, pub.Publish(context.Background(), events.RowClassified{Row: 2, URL: "a"}))
	require.NoError(t, pub.Publish(context.Background(), events.RowClassified{Row: 3, URL: "b"}))

	got := pub.Events()
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Row)
	assert.Equal(t, 3, got[1].Row)

	got[0].URL = "modified"
	assert.Equal(t, "a", pub.Events()[0].URL, "Events() returns a copy")
}

func TestPublisherDropsOldest(t *testing.T) {
	t.Parallel()

	pub := New(2)
	for row := 2; row <= 5; row++ {
		require.NoError(t, pub.Publish(context.Background(), events.RowClassified{Row: row}))
	}
	got := pub.Events()
	require.Len(t, got, 2)
	assert.Equal(t, 4, got[0].Row)
	assert.Equal(t, 5, got[1].Row)
	assert.Equal(t, 4, pub.Total())
}

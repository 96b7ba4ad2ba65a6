package csvfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/sitecat/internal/store"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sites.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRowsAndUpdate(t *testing.T) {
	t.Parallel()

	path := writeFile(t, strings.Join([]string{
		"Duplicate,URL,Product,Status,Email,Name,Competitor,Response,Comments",
		",shop.example.com,,,,,,,",
		",,,",
		"no,https://b.example.com",
	}, "\n")+"\n")

	s, err := New(path)
	require.NoError(t, err)

	ctx := context.Background()
	rows, err := s.Rows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 2, store.CountValidURLs(rows))

	require.NoError(t, s.UpdateCell(ctx, 2, store.ColProduct, "9"))
	require.NoError(t, s.UpdateCell(ctx, 4, store.ColStatus, "1"))

	rows, err = s.Rows(ctx)
	require.NoError(t, err)
	assert.Equal(t, "9", rows[0].Product)
	assert.Equal(t, "1", rows[2].Status)
	assert.Equal(t, "https://b.example.com", rows[2].URL)
}

func TestUpdateKeepsFileMode(t *testing.T) {
	t.Parallel()

	path := writeFile(t, strings.Join(store.ExpectedHeaders, ",")+"\n,shop.example.com\n")
	require.NoError(t, os.Chmod(path, 0o644))

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.UpdateCell(context.Background(), 2, store.ColProduct, "8"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestUpdateOutOfRange(t *testing.T) {
	t.Parallel()

	path := writeFile(t, strings.Join(store.ExpectedHeaders, ",")+"\n")
	s, err := New(path)
	require.NoError(t, err)

	assert.Error(t, s.UpdateCell(context.Background(), 5, 3, "9"))
	assert.Error(t, s.UpdateCell(context.Background(), 0, 3, "9"))
}

func TestRowsMissingFile(t *testing.T) {
	t.Parallel()

	s, err := New(filepath.Join(t.TempDir(), "missing.csv"))
	require.NoError(t, err)
	_, err = s.Rows(context.Background())
	assert.Error(t, err)

	_, err = New("")
	assert.Error(t, err)
}

package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/JakeFAU/sitecat/internal/store"
)

type fakeAPI struct {
	mu      sync.Mutex
	values  [][]any
	updates []update
}

type update struct {
	path   string
	query  string
	values [][]any
}

func (f *fakeAPI) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/spreadsheets/sheet-id"):
			_, _ = io.WriteString(w, `{"sheets":[{"properties":{"title":"Leads 2024"}}]}`)
		case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/values/"):
			_ = json.NewEncoder(w).Encode(map[string]any{"values": f.values})
		case r.Method == http.MethodPut && strings.Contains(r.URL.Path, "/values/"):
			var body struct {
				Values [][]any `json:"values"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			f.updates = append(f.updates, update{path: r.URL.Path, query: r.URL.RawQuery, values: body.Values})
			_, _ = io.WriteString(w, `{}`)
		default:
			http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusNotFound)
		}
	})
}

func newTestStore(t *testing.T, api *fakeAPI) *Store {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	s, err := NewWithOptions(context.Background(), Config{SpreadsheetID: "sheet-id"},
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return s
}

func TestStoreReadsFirstWorksheet(t *testing.T) {
	t.Parallel()

	header := make([]any, 0, len(store.ExpectedHeaders))
	for _, h := range store.ExpectedHeaders {
		header = append(header, h)
	}
	api := &fakeAPI{values: [][]any{
		header,
		{"", "shop.example.com"},
		{"", ""},
		{"", "https://b.example.com", "8", "1"},
	}}
	s := newTestStore(t, api)
	assert.Equal(t, "Leads 2024", s.Worksheet())

	rows, err := s.Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "shop.example.com", rows[0].URL)
	assert.Equal(t, 2, rows[0].Index)
	assert.Equal(t, "8", rows[2].Product)
}

func TestStoreRejectsBadHeader(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, &fakeAPI{values: [][]any{{"URL", "Category"}}})
	_, err := s.Rows(context.Background())
	assert.ErrorIs(t, err, store.ErrHeaderMismatch)
}

func TestStoreUpdatesCell(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	s := newTestStore(t, api)
	require.NoError(t, s.UpdateCell(context.Background(), 5, store.ColProduct, "9"))

	require.Len(t, api.updates, 1)
	got := api.updates[0]
	assert.Contains(t, got.path, "'Leads 2024'!C5")
	assert.Contains(t, got.query, "valueInputOption=USER_ENTERED")
	assert.Equal(t, [][]any{{"9"}}, got.values)
}

func TestColumnName(t *testing.T) {
	t.Parallel()

	for col, want := range map[int]string{1: "A", 3: "C", 4: "D", 26: "Z", 27: "AA", 52: "AZ", 703: "AAA"} {
		assert.Equal(t, want, ColumnName(col))
	}
	assert.Equal(t, "'It''s'!D2", CellRange("It's", 2, 4))
}

func TestNewRequiresIDs(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{SpreadsheetID: "x"})
	assert.Error(t, err)
	_, err = NewWithOptions(context.Background(), Config{}, option.WithoutAuthentication())
	assert.Error(t, err)
}

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Header names of the expected columns.
const (
	HeaderDuplicate  = "Duplicate"
	HeaderURL        = "URL"
	HeaderProduct    = "Product"
	HeaderStatus     = "Status"
	HeaderEmail      = "Email"
	HeaderName       = "Name"
	HeaderCompetitor = "Competitor"
	HeaderResponse   = "Response"
	HeaderComments   = "Comments"
)

// Column numbers (1-based) of the cells the runner writes.
const (
	ColProduct = 3
	ColStatus  = 4
)

// ExpectedHeaders is the required header set; order is not significant.
var ExpectedHeaders = []string{
	HeaderDuplicate,
	HeaderURL,
	HeaderProduct,
	HeaderStatus,
	HeaderEmail,
	HeaderName,
	HeaderCompetitor,
	HeaderResponse,
	HeaderComments,
}

// ErrHeaderMismatch is returned when the header row is not ExpectedHeaders.
var ErrHeaderMismatch = errors.New("store: header mismatch")

// Row is one data row. Index is the 1-based row number in the source, so
// the first data row has Index 2.
type Row struct {
	Index      int
	Duplicate  string
	URL        string
	Product    string
	Status     string
	Email      string
	Name       string
	Competitor string
	Response   string
	Comments   string
}

// Reader lists every data row after validating the header.
type Reader interface {
	Rows(ctx context.Context) ([]Row, error)
}

// Writer updates a single cell addressed by 1-based row and column.
type Writer interface {
	UpdateCell(ctx context.Context, row, col int, value string) error
}

// Store is a readable and writable row source.
type Store interface {
	Reader
	Writer
}

// ValidateHeaders checks headers against ExpectedHeaders, ignoring order,
// surrounding whitespace and trailing empty columns.
func ValidateHeaders(headers []string) error {
	got := make([]string, 0, len(headers))
	for _, h := range headers {
		if h = strings.TrimSpace(h); h != "" {
			got = append(got, h)
		}
	}
	want := append([]string(nil), ExpectedHeaders...)
	sort.Strings(got)
	sort.Strings(want)
	if strings.Join(got, "\x00") != strings.Join(want, "\x00") {
		return fmt.Errorf("%w: got %v, want %v", ErrHeaderMismatch, headers, ExpectedHeaders)
	}
	return nil
}

// RowsFromRecords maps a header record plus data records into Rows.
// Missing trailing cells read as "".
func RowsFromRecords(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no header row", ErrHeaderMismatch)
	}
	header := records[0]
	if err := ValidateHeaders(header); err != nil {
		return nil, err
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	cell := func(rec []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		rows = append(rows, Row{
			Index:      i + 2,
			Duplicate:  cell(rec, HeaderDuplicate),
			URL:        cell(rec, HeaderURL),
			Product:    cell(rec, HeaderProduct),
			Status:     cell(rec, HeaderStatus),
			Email:      cell(rec, HeaderEmail),
			Name:       cell(rec, HeaderName),
			Competitor: cell(rec, HeaderCompetitor),
			Response:   cell(rec, HeaderResponse),
			Comments:   cell(rec, HeaderComments),
		})
	}
	return rows, nil
}

// CountValidURLs counts rows with a non-empty URL.
func CountValidURLs(rows []Row) int {
	n := 0
	for _, r := range rows {
		if strings.TrimSpace(r.URL) != "" {
			n++
		}
	}
	return n
}

// DryRunWriter logs updates instead of applying them.
type DryRunWriter struct {
	Logger *zap.Logger
}

// UpdateCell logs the would-be write.
func (w DryRunWriter) UpdateCell(_ context.Context, row, col int, value string) error {
	if w.Logger != nil {
		w.Logger.Info("dry run: skipping cell update", zap.Int("row", row), zap.Int("col", col), zap.String("value", value))
	}
	return nil
}

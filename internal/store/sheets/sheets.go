// Package sheets implements store.Store over the first worksheet of a
// Google Sheets spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/JakeFAU/sitecat/internal/store"
)

// Config addresses the spreadsheet.
type Config struct {
	SpreadsheetID   string
	CredentialsFile string
	// Worksheet selects a tab by title; empty means the first one.
	Worksheet string
}

// Store reads and writes one worksheet.
type Store struct {
	svc   *sheets.Service
	id    string
	title string
}

// New authenticates with a service-account file and resolves the worksheet.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.CredentialsFile == "" {
		return nil, errors.New("sheets: credentials file is required")
	}
	return NewWithOptions(ctx, cfg,
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
}

// NewWithOptions builds a Store with explicit client options.
func NewWithOptions(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Store, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("sheets: spreadsheet id is required")
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	s := &Store{svc: svc, id: cfg.SpreadsheetID, title: cfg.Worksheet}
	if s.title == "" {
		if s.title, err = s.firstWorksheet(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) firstWorksheet(ctx context.Context) (string, error) {
	ss, err := s.svc.Spreadsheets.Get(s.id).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get spreadsheet %s: %w", s.id, err)
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return "", fmt.Errorf("spreadsheet %s has no worksheets", s.id)
	}
	return ss.Sheets[0].Properties.Title, nil
}

// Worksheet returns the resolved worksheet title.
func (s *Store) Worksheet() string { return s.title }

// Rows reads the whole worksheet.
func (s *Store) Rows(ctx context.Context) ([]store.Row, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.id, quoteTitle(s.title)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read worksheet %s: %w", s.title, err)
	}
	records := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		rec := make([]string, 0, len(row))
		for _, v := range row {
			rec = append(rec, fmt.Sprint(v))
		}
		records = append(records, rec)
	}
	return store.RowsFromRecords(records)
}

// UpdateCell writes value at (row, col) as if typed by a user.
func (s *Store) UpdateCell(ctx context.Context, row, col int, value string) error {
	rng := CellRange(s.title, row, col)
	vr := &sheets.ValueRange{Values: [][]interface{}{{value}}}
	_, err := s.svc.Spreadsheets.Values.Update(s.id, rng, vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// CellRange renders an A1 reference such as 'Sheet 1'!C2.
func CellRange(title string, row, col int) string {
	return fmt.Sprintf("%s!%s%d", quoteTitle(title), ColumnName(col), row)
}

// ColumnName converts a 1-based column number to letters (1→A, 27→AA).
func ColumnName(col int) string {
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// Package csvfile implements store.Store over a local CSV file. Every cell
// update rewrites the file through a temporary file and a rename.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/JakeFAU/sitecat/internal/store"
)

// Store is a CSV-backed row source.
type Store struct {
	path string
	mu   sync.Mutex
}

// New returns a Store for path. The file must exist when Rows is called.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("csvfile: path is required")
	}
	return &Store{path: path}, nil
}

// Rows parses the file.
func (s *Store) Rows(ctx context.Context) ([]store.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.read()
	if err != nil {
		return nil, err
	}
	return store.RowsFromRecords(records)
}

// UpdateCell sets (row, col), growing the record when needed.
func (s *Store) UpdateCell(ctx context.Context, row, col int, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if row < 1 || col < 1 {
		return fmt.Errorf("csvfile: invalid cell (%d,%d)", row, col)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return err
	}
	if row > len(records) {
		return fmt.Errorf("csvfile: row %d out of range (%d rows)", row, len(records))
	}
	rec := records[row-1]
	for len(rec) < col {
		rec = append(rec, "")
	}
	rec[col-1] = value
	records[row-1] = rec
	return s.write(records)
}

func (s *Store) read() ([][]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return records, nil
}

func (s *Store) write(records [][]string) error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", s.path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".sitecat-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	// CreateTemp uses 0600; keep the mode the user gave the file.
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(records); err != nil {
		tmp.Close()
		return fmt.Errorf("write csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

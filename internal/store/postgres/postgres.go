// Package postgres implements store.Store over a Postgres table holding the
// sheet's columns plus a row_index.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/sitecat/internal/store"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// columns maps 1-based write-contract column numbers to table columns.
var columns = map[int]string{
	1: "duplicate",
	2: "url",
	3: "product",
	4: "status",
	5: "email",
	6: "name",
	7: "competitor",
	8: "response",
	9: "comments",
}

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Store reads and writes site rows.
type Store struct {
	pool  pool
	table string
}

// New connects using cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.postgres.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: p, table: table}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, table string) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	table, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &Store{pool: p, table: table}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = "sites"
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Rows lists every row ordered by row_index.
func (s *Store) Rows(ctx context.Context) ([]store.Row, error) {
	query := fmt.Sprintf(`
SELECT row_index, duplicate, url, product, status, email, name, competitor, response, comments
FROM %s
ORDER BY row_index`, s.table)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select rows: %w", err)
	}
	defer rows.Close()

	var out []store.Row
	for rows.Next() {
		var r store.Row
		if err := rows.Scan(
			&r.Index, &r.Duplicate, &r.URL, &r.Product, &r.Status,
			&r.Email, &r.Name, &r.Competitor, &r.Response, &r.Comments,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// UpdateCell sets one column of the row with row_index = row.
func (s *Store) UpdateCell(ctx context.Context, row, col int, value string) error {
	column, ok := columns[col]
	if !ok {
		return fmt.Errorf("unknown column %d", col)
	}
	query := fmt.Sprintf(`UPDATE %s SET %s = $1 WHERE row_index = $2`, s.table, column)
	tag, err := s.pool.Exec(ctx, query, value, row)
	if err != nil {
		return fmt.Errorf("update row %d %s: %w", row, column, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update row %d %s: no such row", row, column)
	}
	return nil
}

package ingest

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DefaultSQLiteQuery reads the results table written by record producers.
const DefaultSQLiteQuery = "SELECT id, record FROM results"

// SQLiteSource streams records out of a SQLite database. Only one record
// is alive at a time, keeping memory usage constant.
type SQLiteSource struct {
	Path string
	// Query must return (id, record) rows. Defaults to DefaultSQLiteQuery.
	Query    string
	Selector *Selector
}

func (s *SQLiteSource) Records(ctx context.Context, fn func(Record) error) error {
	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", s.Path, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	q := s.Query
	if q == "" {
		q = DefaultSQLiteQuery
	}
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return fmt.Errorf("query results: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		if err := emit(ctx, s.Selector, id, []byte(raw), fn); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rows: %w", err)
	}
	return nil
}

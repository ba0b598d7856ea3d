package ingest

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func createTestDB(t *testing.T, records []string) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.Exec("CREATE TABLE results (id TEXT PRIMARY KEY, record TEXT NOT NULL)")
	require.NoError(t, err)

	for i, rec := range records {
		_, err = db.Exec("INSERT INTO results (id, record) VALUES (?, ?)",
			string(rune('a'+i)), rec)
		require.NoError(t, err)
	}
	return dbPath
}

func collect(t *testing.T, src Source) []Record {
	t.Helper()
	var out []Record
	require.NoError(t, src.Records(context.Background(), func(r Record) error {
		out = append(out, r)
		return nil
	}))
	return out
}

func TestSQLiteSource(t *testing.T) {
	t.Run("basic records", func(t *testing.T) {
		dbPath := createTestDB(t, []string{
			`{"item":{"name":"Alice","role":"admin"}}`,
			`{"item":{"name":"Bob","role":"user"}}`,
		})

		records := collect(t, &SQLiteSource{Path: dbPath})
		require.Len(t, records, 2)
		assert.Equal(t, "a", records[0].ID)
		assert.JSONEq(t, `{"item":{"name":"Alice","role":"admin"}}`, string(records[0].Raw))
		assert.Equal(t, "b", records[1].ID)
	})

	t.Run("with selector", func(t *testing.T) {
		dbPath := createTestDB(t, []string{`{"items":[{"x":1},{"x":2}]}`})
		sel, err := NewSelector("$.items[*]")
		require.NoError(t, err)

		records := collect(t, &SQLiteSource{Path: dbPath, Selector: sel})
		require.Len(t, records, 2)
		assert.Equal(t, "a#0", records[0].ID)
		assert.Equal(t, `{"x":2}`, string(records[1].Raw))
	})

	t.Run("callback error stops", func(t *testing.T) {
		dbPath := createTestDB(t, []string{`{}`, `{}`})
		stop := errors.New("stop")
		calls := 0
		err := (&SQLiteSource{Path: dbPath}).Records(context.Background(), func(Record) error {
			calls++
			return stop
		})
		assert.ErrorIs(t, err, stop)
		assert.Equal(t, 1, calls)
	})

	t.Run("missing table", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "empty.db")
		err := (&SQLiteSource{Path: dbPath}).Records(context.Background(), func(Record) error { return nil })
		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		dbPath := createTestDB(t, []string{`{}`})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := (&SQLiteSource{Path: dbPath}).Records(ctx, func(Record) error { return nil })
		assert.Error(t, err)
	})
}

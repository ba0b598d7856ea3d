package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/agentic-research/shape/api"
)

// ErrNotFound is returned when no snapshot matches.
var ErrNotFound = errors.New("snapshot not found")

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	version TEXT NOT NULL,
	created INTEGER NOT NULL,
	auto_upgrade INTEGER NOT NULL,
	data TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_name ON snapshots(name, seq);
`

// DB is the snapshot history of one or more named trees.
type DB struct {
	db *sql.DB
}

// Open opens or creates the history database at path.
func Open(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error { return d.db.Close() }

// Save appends snap to the history and returns its id. A missing id is
// generated.
func (d *DB) Save(ctx context.Context, snap api.Snapshot) (string, error) {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.Version == "" {
		snap.Version = api.SnapshotVersion
	}
	if snap.Created.IsZero() {
		snap.Created = time.Now().UTC()
	}
	data, err := json.Marshal(snap.Data)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = d.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, name, version, created, auto_upgrade, data) VALUES (?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.Name, snap.Version, snap.Created.UnixNano(), snap.AutoUpgradeToArray, string(data))
	if err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}
	return snap.ID, nil
}

const selectSnapshot = `SELECT id, name, version, created, auto_upgrade, data FROM snapshots`

// Latest returns the most recently saved snapshot with the given name.
func (d *DB) Latest(ctx context.Context, name string) (api.Snapshot, error) {
	row := d.db.QueryRowContext(ctx, selectSnapshot+` WHERE name = ? ORDER BY seq DESC LIMIT 1`, name)
	return scanSnapshot(row)
}

// Get returns the snapshot with the given id.
func (d *DB) Get(ctx context.Context, id string) (api.Snapshot, error) {
	row := d.db.QueryRowContext(ctx, selectSnapshot+` WHERE id = ?`, id)
	return scanSnapshot(row)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (api.Snapshot, error) {
	var (
		snap    api.Snapshot
		created int64
		data    string
	)
	err := row.Scan(&snap.ID, &snap.Name, &snap.Version, &created, &snap.AutoUpgradeToArray, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, ErrNotFound
	}
	if err != nil {
		return snap, fmt.Errorf("scan snapshot: %w", err)
	}
	snap.Created = time.Unix(0, created).UTC()
	if err := json.Unmarshal([]byte(data), &snap.Data); err != nil {
		return snap, fmt.Errorf("decode snapshot %s: %w", snap.ID, err)
	}
	return snap, nil
}

// List returns every snapshot without its tree data, oldest first.
func (d *DB) List(ctx context.Context) ([]api.Snapshot, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, name, version, created, auto_upgrade FROM snapshots ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	var out []api.Snapshot
	for rows.Next() {
		var (
			snap    api.Snapshot
			created int64
		)
		if err := rows.Scan(&snap.ID, &snap.Name, &snap.Version, &created, &snap.AutoUpgradeToArray); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		snap.Created = time.Unix(0, created).UTC()
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

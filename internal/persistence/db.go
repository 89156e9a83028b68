// Package persistence stores game snapshots in SQLite. Snapshots are JSON,
// compressed with LZ4 and checked with a BLAKE3 hash; a short history of
// saves is kept so a damaged latest save can fall back to an older one.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/sutki/internal/economy"
)

// ErrNoSave means the database holds no snapshot yet.
var ErrNoSave = errors.New("no saved game")

// DefaultKeep is how many saves are retained.
const DefaultKeep = 10

// DB wraps a SQLite connection for snapshot persistence.
type DB struct {
	conn *sqlx.DB
	Keep int // saves retained after each write
}

// Record describes one stored save.
type Record struct {
	ID            int64  `db:"id" json:"-"`
	SaveID        string `db:"save_id" json:"save_id"`
	SavedAt       int64  `db:"saved_at" json:"saved_at"` // unix milliseconds
	SchemaVersion int    `db:"schema_version" json:"schema_version"`
	Hash          string `db:"hash" json:"hash"`
	Size          int    `db:"size" json:"size"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, Keep: DefaultKeep}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS saves (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		save_id TEXT NOT NULL UNIQUE,
		saved_at INTEGER NOT NULL,
		schema_version INTEGER NOT NULL,
		hash TEXT NOT NULL,
		blob BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_saves_saved_at ON saves(saved_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveState writes a new snapshot of s and prunes saves beyond Keep.
func (db *DB) SaveState(ctx context.Context, s *economy.State, now time.Time) (Record, error) {
	raw, err := Encode(s)
	if err != nil {
		return Record{}, err
	}
	blob, hash, err := Pack(raw)
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		SaveID:        uuid.NewString(),
		SavedAt:       now.UnixMilli(),
		SchemaVersion: SchemaVersion,
		Hash:          hash,
		Size:          len(blob),
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return Record{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO saves (save_id, saved_at, schema_version, hash, blob) VALUES (?, ?, ?, ?, ?)`,
		rec.SaveID, rec.SavedAt, rec.SchemaVersion, rec.Hash, blob,
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert save: %w", err)
	}
	if rec.ID, err = res.LastInsertId(); err != nil {
		return Record{}, err
	}

	keep := db.Keep
	if keep < 1 {
		keep = 1
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM saves WHERE id NOT IN (SELECT id FROM saves ORDER BY id DESC LIMIT ?)`, keep,
	); err != nil {
		return Record{}, fmt.Errorf("prune saves: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", "last_save_id", rec.SaveID,
	); err != nil {
		return Record{}, fmt.Errorf("save meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Record{}, err
	}
	slog.Debug("state saved", "save_id", rec.SaveID, "bytes", rec.Size, "raw_bytes", len(raw))
	return rec, nil
}

// LoadLatest restores the newest save that decodes cleanly. Damaged saves
// are skipped with a warning. When nothing usable exists it returns a new
// game together with ErrNoSave or an error wrapping ErrMalformedSnapshot.
func (db *DB) LoadLatest(ctx context.Context, catalog economy.Catalog) (*economy.State, Report, Record, error) {
	var rows []struct {
		Record
		Blob []byte `db:"blob"`
	}
	err := db.conn.SelectContext(ctx, &rows,
		`SELECT id, save_id, saved_at, schema_version, hash, length(blob) AS size, blob
		 FROM saves ORDER BY id DESC`)
	if err != nil {
		return economy.NewState(catalog), Report{}, Record{}, fmt.Errorf("query saves: %w", err)
	}
	if len(rows) == 0 {
		return economy.NewState(catalog), Report{}, Record{}, ErrNoSave
	}

	var lastErr error
	for _, row := range rows {
		raw, err := Unpack(row.Blob, row.Hash)
		if err == nil {
			var s *economy.State
			var rep Report
			s, rep, err = Decode(raw, catalog)
			if err == nil {
				return s, rep, row.Record, nil
			}
		}
		slog.Warn("skipping damaged save", "save_id", row.SaveID, "error", err)
		lastErr = err
	}
	if !errors.Is(lastErr, ErrMalformedSnapshot) {
		lastErr = fmt.Errorf("%w: %v", ErrMalformedSnapshot, lastErr)
	}
	return economy.NewState(catalog), Report{}, Record{}, lastErr
}

// History lists stored saves, newest first.
func (db *DB) History(ctx context.Context) ([]Record, error) {
	var recs []Record
	err := db.conn.SelectContext(ctx, &recs,
		`SELECT id, save_id, saved_at, schema_version, hash, length(blob) AS size
		 FROM saves ORDER BY id DESC`)
	return recs, err
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value. Missing keys return "" and no error.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

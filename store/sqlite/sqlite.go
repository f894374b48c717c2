// Package sqlite provides a durable rawdb.Database on SQLite. Keys and
// values live in one kv table ordered by key bytes; batches commit in a
// single SQL transaction.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/eth2030/presale/core/rawdb"
	"github.com/eth2030/presale/metrics"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is recorded in PRAGMA user_version.
const schemaVersion = 1

// Database is a SQLite-backed key-value store.
type Database struct {
	db   *sql.DB
	path string
}

var _ rawdb.Database = (*Database)(nil)

// Open creates or opens the database at path.
func Open(path string) (*Database, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite: path is required")
	}
	path = filepath.Clean(path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping %s: %w", path, err)
	}
	// One writer at a time; iterators load eagerly so a single connection
	// never deadlocks.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Database{db: db, path: path}, nil
}

func applyPragmas(db *sql.DB) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("sqlite: schema version %d is newer than supported %d", version, schemaVersion)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("sqlite: apply schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("sqlite: set schema version: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (d *Database) Path() string { return d.path }

func (d *Database) Has(key []byte) (bool, error) {
	var one int
	err := d.db.QueryRow("SELECT 1 FROM kv WHERE key = ?", key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: has: %w", err)
	}
	return true, nil
}

func (d *Database) Get(key []byte) ([]byte, error) {
	var value []byte
	err := d.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rawdb.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get: %w", err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (d *Database) Put(key, value []byte) error {
	return put(context.Background(), d.db, key, value)
}

func (d *Database) Delete(key []byte) error {
	return del(context.Background(), d.db, key)
}

func (d *Database) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func put(ctx context.Context, ex execer, key, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := ex.ExecContext(ctx,
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return fmt.Errorf("sqlite: put: %w", err)
	}
	return nil
}

func del(ctx context.Context, ex execer, key []byte) error {
	if _, err := ex.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("sqlite: delete: %w", err)
	}
	return nil
}

// NewIterator returns the entries under prefix in ascending key order. The
// matching rows are read when the iterator is created.
func (d *Database) NewIterator(prefix []byte) rawdb.Iterator {
	query, args := "SELECT key, value FROM kv WHERE key >= ?", []any{prefix}
	if prefix == nil {
		args[0] = []byte{}
	}
	if end := rawdb.PrefixEnd(prefix); end != nil {
		query += " AND key < ?"
		args = append(args, end)
	}
	query += " ORDER BY key"

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return rawdb.NewSnapshotIterator(nil, fmt.Errorf("sqlite: iterate: %w", err))
	}
	defer rows.Close()
	var entries []rawdb.Entry
	for rows.Next() {
		var e rawdb.Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return rawdb.NewSnapshotIterator(nil, fmt.Errorf("sqlite: scan: %w", err))
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return rawdb.NewSnapshotIterator(nil, fmt.Errorf("sqlite: iterate: %w", err))
	}
	return rawdb.NewSnapshotIterator(entries, nil)
}

// NewBatch returns a batch that commits in one transaction.
func (d *Database) NewBatch() rawdb.Batch {
	return rawdb.NewOpBatch(d.commit)
}

func (d *Database) commit(ops []rawdb.BatchOp) error {
	ctx := context.Background()
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin batch: %w", err)
	}
	if err := rawdb.Replay(txWriter{ctx: ctx, tx: tx}, ops); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit batch: %w", err)
	}
	size := 0
	for _, op := range ops {
		size += len(op.Key) + len(op.Value)
	}
	metrics.StoreBatches.Inc()
	metrics.StoreBatchSize.Observe(float64(size))
	return nil
}

// txWriter adapts a transaction to rawdb.KeyValueWriter for batch replay.
type txWriter struct {
	ctx context.Context
	tx  *sql.Tx
}

func (w txWriter) Put(key, value []byte) error { return put(w.ctx, w.tx, key, value) }
func (w txWriter) Delete(key []byte) error     { return del(w.ctx, w.tx, key) }

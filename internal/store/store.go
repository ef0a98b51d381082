// Package store provides the SQLite-backed store adapters used by both
// benchmark pipelines.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	benchErrors "github.com/arkilian/groupbench/internal/errors"
	_ "github.com/mattn/go-sqlite3"
)

// Store names used in errors and reports.
const (
	NamePlain      = "plain"
	NameCompressed = "compressed"
)

// Store persists rows of type R in a single artifact that is recreated on
// every run. Both instances share timing semantics: WriteAll and ReadAll do
// all of their work synchronously on the calling goroutine.
type Store[R any] interface {
	// Name identifies the store in errors and reports
	Name() string

	// Path returns the artifact location
	Path() string

	// Create destroys any existing artifact and initializes the schema
	Create(ctx context.Context) error

	// WriteAll bulk inserts rows in large transactions
	WriteAll(ctx context.Context, rows []R) error

	// ReadAll performs a full scan in insertion order
	ReadAll(ctx context.Context) ([]R, error)

	// SizeOnDisk returns the artifact size in bytes
	SizeOnDisk() (int64, error)

	// Close releases the underlying connection
	Close() error
}

// sqliteFile holds the connection and artifact shared by both adapters.
type sqliteFile struct {
	name      string
	path      string
	batchSize int
	db        *sql.DB
}

// artifactSuffixes are the files SQLite may create next to the database.
var artifactSuffixes = []string{"", "-wal", "-shm", "-journal"}

// create removes any previous artifact, opens a fresh database and runs the
// schema statements.
func (f *sqliteFile) create(ctx context.Context, schema ...string) error {
	if err := f.Close(); err != nil {
		return benchErrors.NewStoreError(benchErrors.CodeCreateFailed, f.name, "failed to close previous connection", err)
	}

	for _, suffix := range artifactSuffixes {
		if err := os.Remove(f.path + suffix); err != nil && !os.IsNotExist(err) {
			return benchErrors.NewStoreError(benchErrors.CodeCreateFailed, f.name,
				fmt.Sprintf("failed to remove %s", f.path+suffix), err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return benchErrors.NewStoreError(benchErrors.CodeCreateFailed, f.name, "failed to create directory", err)
	}

	db, err := sql.Open("sqlite3", f.path)
	if err != nil {
		return benchErrors.NewStoreError(benchErrors.CodeCreateFailed, f.name, "failed to open database", err)
	}
	// one connection keeps the write and read stages single threaded
	db.SetMaxOpenConns(1)

	stmts := append([]string{"PRAGMA journal_mode=WAL"}, schema...)
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return benchErrors.NewStoreError(benchErrors.CodeCreateFailed, f.name, "failed to initialize schema", err)
		}
	}

	f.db = db
	return nil
}

// writeBatches inserts n rows through insertSQL, committing every batchSize
// rows (all rows in one transaction when batchSize is 0), then checkpoints
// the WAL so the main file holds everything.
func (f *sqliteFile) writeBatches(ctx context.Context, insertSQL string, n int, args func(i int) []any) error {
	if f.db == nil {
		return benchErrors.NewStoreError(benchErrors.CodeWriteFailed, f.name, "store not created", nil)
	}

	batch := f.batchSize
	if batch <= 0 || batch > n {
		batch = n
	}

	for start := 0; start < n; start += batch {
		end := min(start+batch, n)
		if err := f.writeBatch(ctx, insertSQL, start, end, args); err != nil {
			return err
		}
	}

	if _, err := f.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return benchErrors.NewStoreError(benchErrors.CodeWriteFailed, f.name, "failed to checkpoint WAL", err)
	}
	return nil
}

func (f *sqliteFile) writeBatch(ctx context.Context, insertSQL string, start, end int, args func(i int) []any) error {
	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return benchErrors.NewStoreError(benchErrors.CodeWriteFailed, f.name, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return benchErrors.NewStoreError(benchErrors.CodeWriteFailed, f.name, "failed to prepare insert statement", err)
	}
	defer stmt.Close()

	for i := start; i < end; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return benchErrors.NewStoreError(benchErrors.CodeWriteFailed, f.name,
				fmt.Sprintf("failed to insert row %d", i), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return benchErrors.NewStoreError(benchErrors.CodeWriteFailed, f.name, "failed to commit", err)
	}
	return nil
}

func (f *sqliteFile) query(ctx context.Context, querySQL string) (*sql.Rows, error) {
	if f.db == nil {
		return nil, benchErrors.NewStoreError(benchErrors.CodeReadFailed, f.name, "store not created", nil)
	}
	rows, err := f.db.QueryContext(ctx, querySQL)
	if err != nil {
		return nil, benchErrors.NewStoreError(benchErrors.CodeReadFailed, f.name, "failed to scan table", err)
	}
	return rows, nil
}

// Name returns the store name.
func (f *sqliteFile) Name() string {
	return f.name
}

// Path returns the database file path.
func (f *sqliteFile) Path() string {
	return f.path
}

// SizeOnDisk returns the size of the database file plus any WAL not yet
// checkpointed.
func (f *sqliteFile) SizeOnDisk() (int64, error) {
	var total int64
	for _, suffix := range []string{"", "-wal"} {
		info, err := os.Stat(f.path + suffix)
		if err != nil {
			if os.IsNotExist(err) && suffix != "" {
				continue
			}
			return 0, benchErrors.NewStoreError(benchErrors.CodeSizeFailed, f.name, "failed to stat database", err)
		}
		total += info.Size()
	}
	return total, nil
}

// Close closes the connection. It is safe to call more than once.
func (f *sqliteFile) Close() error {
	if f.db == nil {
		return nil
	}
	err := f.db.Close()
	f.db = nil
	return err
}

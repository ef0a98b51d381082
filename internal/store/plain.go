package store

import (
	"context"

	benchErrors "github.com/arkilian/groupbench/internal/errors"
	"github.com/arkilian/groupbench/pkg/types"
)

// PlainStore keeps one row per record.
type PlainStore struct {
	sqliteFile
}

var _ Store[types.PlainRow] = (*PlainStore)(nil)

// NewPlainStore creates a plain store at path. batchSize is the number of
// rows per transaction (0 = a single transaction).
func NewPlainStore(path string, batchSize int) *PlainStore {
	return &PlainStore{sqliteFile{name: NamePlain, path: path, batchSize: batchSize}}
}

// Create drops any existing artifact and creates the records table.
func (s *PlainStore) Create(ctx context.Context) error {
	return s.create(ctx, `
		CREATE TABLE records (
			id INTEGER PRIMARY KEY,
			group_key TEXT NOT NULL,
			payload BLOB NOT NULL
		)
	`)
}

// WriteAll inserts every row.
func (s *PlainStore) WriteAll(ctx context.Context, rows []types.PlainRow) error {
	return s.writeBatches(ctx,
		`INSERT INTO records (id, group_key, payload) VALUES (?, ?, ?)`,
		len(rows),
		func(i int) []any {
			return []any{rows[i].ID, rows[i].GroupKey, nonNil(rows[i].Payload)}
		})
}

// ReadAll returns every row ordered by id, which is insertion order.
func (s *PlainStore) ReadAll(ctx context.Context) ([]types.PlainRow, error) {
	rows, err := s.query(ctx, `SELECT id, group_key, payload FROM records ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.PlainRow
	for rows.Next() {
		var r types.PlainRow
		if err := rows.Scan(&r.ID, &r.GroupKey, &r.Payload); err != nil {
			return nil, benchErrors.NewStoreError(benchErrors.CodeReadFailed, s.name, "failed to scan row", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, benchErrors.NewStoreError(benchErrors.CodeReadFailed, s.name, "row iteration failed", err)
	}
	return out, nil
}

// nonNil maps a nil payload to an empty blob so NOT NULL holds.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

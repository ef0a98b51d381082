package store

import (
	"context"

	benchErrors "github.com/arkilian/groupbench/internal/errors"
	"github.com/arkilian/groupbench/pkg/types"
)

// CompressedStore keeps one row per group holding the compressed block.
type CompressedStore struct {
	sqliteFile
}

var _ Store[types.CompressedRow] = (*CompressedStore)(nil)

// NewCompressedStore creates a compressed store at path.
func NewCompressedStore(path string, batchSize int) *CompressedStore {
	return &CompressedStore{sqliteFile{name: NameCompressed, path: path, batchSize: batchSize}}
}

// Create drops any existing artifact and creates the blocks table.
func (s *CompressedStore) Create(ctx context.Context) error {
	return s.create(ctx, `
		CREATE TABLE compressed_blocks (
			group_key TEXT NOT NULL,
			record_count INTEGER NOT NULL,
			raw_size INTEGER NOT NULL,
			data BLOB NOT NULL
		)
	`)
}

// WriteAll inserts every block row.
func (s *CompressedStore) WriteAll(ctx context.Context, rows []types.CompressedRow) error {
	return s.writeBatches(ctx,
		`INSERT INTO compressed_blocks (group_key, record_count, raw_size, data) VALUES (?, ?, ?, ?)`,
		len(rows),
		func(i int) []any {
			r := rows[i]
			return []any{r.GroupKey, r.RecordCount, r.RawSize, nonNil(r.Data)}
		})
}

// ReadAll returns every block row in insertion order.
func (s *CompressedStore) ReadAll(ctx context.Context) ([]types.CompressedRow, error) {
	rows, err := s.query(ctx, `SELECT group_key, record_count, raw_size, data FROM compressed_blocks ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.CompressedRow
	for rows.Next() {
		var r types.CompressedRow
		if err := rows.Scan(&r.GroupKey, &r.RecordCount, &r.RawSize, &r.Data); err != nil {
			return nil, benchErrors.NewStoreError(benchErrors.CodeReadFailed, s.name, "failed to scan row", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, benchErrors.NewStoreError(benchErrors.CodeReadFailed, s.name, "row iteration failed", err)
	}
	return out, nil
}

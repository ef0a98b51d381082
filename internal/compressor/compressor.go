// Package compressor partitions records by group key and compresses every
// group as an independent task on a bounded worker pool.
package compressor

import (
	"context"

	"github.com/arkilian/groupbench/internal/codec"
	benchErrors "github.com/arkilian/groupbench/internal/errors"
	"github.com/arkilian/groupbench/internal/workpool"
	"github.com/arkilian/groupbench/pkg/types"
)

// Result holds the compressed blocks keyed by group key. Keys lists the
// group keys in first-appearance order, which is the order blocks are
// written in; it does not depend on which worker finished first.
type Result struct {
	Keys            []string
	Blocks          map[string]types.CompressedBlock
	RecordCount     int64
	RawBytes        int64
	CompressedBytes int64
}

// Ordered returns the blocks in Keys order.
func (r *Result) Ordered() []types.CompressedBlock {
	out := make([]types.CompressedBlock, 0, len(r.Keys))
	for _, k := range r.Keys {
		out = append(out, r.Blocks[k])
	}
	return out
}

// Rows returns the blocks as persisted rows in Keys order.
func (r *Result) Rows() []types.CompressedRow {
	rows := make([]types.CompressedRow, 0, len(r.Keys))
	for _, k := range r.Keys {
		rows = append(rows, r.Blocks[k].ToRow())
	}
	return rows
}

// Compressor turns records into compressed blocks.
type Compressor struct {
	codec codec.Codec
	pool  *workpool.Pool
}

// New creates a compressor using the given codec and pool size.
func New(c codec.Codec, poolSize int) *Compressor {
	return &Compressor{
		codec: c,
		pool:  workpool.New(poolSize),
	}
}

// PoolSize returns the number of compression workers.
func (c *Compressor) PoolSize() int {
	return c.pool.Size()
}

// Partition groups records by key in a single pass. Groups appear in order
// of their first record and keep their records in input order.
func Partition(records []types.Record) []types.Group {
	index := make(map[string]int)
	var groups []types.Group
	for _, r := range records {
		i, ok := index[r.GroupKey]
		if !ok {
			i = len(groups)
			index[r.GroupKey] = i
			groups = append(groups, types.Group{Key: r.GroupKey})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	return groups
}

// Compress partitions records and compresses every group.
func (c *Compressor) Compress(ctx context.Context, records []types.Record) (*Result, error) {
	return c.CompressGroups(ctx, Partition(records))
}

// CompressGroups compresses every group on the pool and waits for all of
// them. Any failure aborts the whole call with a COMPRESSION error naming
// the group key; no partial result is returned.
func (c *Compressor) CompressGroups(ctx context.Context, groups []types.Group) (*Result, error) {
	blocks, err := workpool.Map(ctx, c.pool, groups, func(_ context.Context, g types.Group) (types.CompressedBlock, error) {
		block, err := codec.EncodeBlock(c.codec, g)
		if err != nil {
			return types.CompressedBlock{}, benchErrors.NewCompressionError(
				benchErrors.CodeCompressFailed, g.Key, "failed to compress group", err)
		}
		return block, nil
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		Keys:   make([]string, 0, len(groups)),
		Blocks: make(map[string]types.CompressedBlock, len(groups)),
	}
	for _, b := range blocks {
		if _, dup := result.Blocks[b.GroupKey]; dup {
			return nil, benchErrors.NewCompressionError(
				benchErrors.CodeCompressFailed, b.GroupKey, "duplicate group key", nil)
		}
		result.Keys = append(result.Keys, b.GroupKey)
		result.Blocks[b.GroupKey] = b
		result.RecordCount += b.RecordCount
		result.RawBytes += b.RawSize
		result.CompressedBytes += int64(len(b.Data))
	}
	return result, nil
}

// DecodeRows decompresses and parses every row on the pool, returning the
// records of each row in row order.
func (c *Compressor) DecodeRows(ctx context.Context, rows []types.CompressedRow) ([][]types.Record, error) {
	return workpool.Map(ctx, c.pool, rows, func(_ context.Context, row types.CompressedRow) ([]types.Record, error) {
		records, err := codec.DecodeBlock(c.codec, row.ToBlock())
		if err != nil {
			return nil, benchErrors.NewCompressionError(
				benchErrors.CodeDecompressFailed, row.GroupKey, "failed to decode block", err)
		}
		return records, nil
	})
}

package codec

import (
	"fmt"

	"github.com/arkilian/groupbench/pkg/types"
)

// EncodeBlock serializes and compresses one group.
func EncodeBlock(c Codec, group types.Group) (types.CompressedBlock, error) {
	raw := EncodeRecords(group.Records)
	data, err := c.Compress(raw)
	if err != nil {
		return types.CompressedBlock{}, err
	}
	return types.CompressedBlock{
		GroupKey:    group.Key,
		Data:        data,
		RecordCount: int64(len(group.Records)),
		RawSize:     int64(len(raw)),
	}, nil
}

// DecodeBlock decompresses and parses a block, checking the recorded raw size
// and record count.
func DecodeBlock(c Codec, block types.CompressedBlock) ([]types.Record, error) {
	raw, err := c.Decompress(block.Data)
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) != block.RawSize {
		return nil, fmt.Errorf("codec: decompressed size %d does not match recorded size %d", len(raw), block.RawSize)
	}
	records, err := DecodeRecords(raw)
	if err != nil {
		return nil, err
	}
	if int64(len(records)) != block.RecordCount {
		return nil, fmt.Errorf("codec: decoded %d records, block records %d", len(records), block.RecordCount)
	}
	return records, nil
}

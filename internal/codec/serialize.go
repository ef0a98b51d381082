// Package codec provides the canonical group serialization and the block
// compression codecs.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/arkilian/groupbench/pkg/types"
)

// Serialization errors.
var (
	ErrTruncated     = errors.New("codec: truncated group encoding")
	ErrTrailingBytes = errors.New("codec: trailing bytes after group encoding")
)

// EncodeRecords serializes records in order. The layout is
//
//	uvarint count
//	count × { varint id | uvarint len | group key | uvarint len | payload }
//
// and is exactly inverted by DecodeRecords.
func EncodeRecords(records []types.Record) []byte {
	size := binary.MaxVarintLen64
	for _, r := range records {
		size += 3*binary.MaxVarintLen64 + len(r.GroupKey) + len(r.Payload)
	}

	buf := make([]byte, 0, size)
	buf = binary.AppendUvarint(buf, uint64(len(records)))
	for _, r := range records {
		buf = binary.AppendVarint(buf, r.ID)
		buf = binary.AppendUvarint(buf, uint64(len(r.GroupKey)))
		buf = append(buf, r.GroupKey...)
		buf = binary.AppendUvarint(buf, uint64(len(r.Payload)))
		buf = append(buf, r.Payload...)
	}
	return buf
}

// DecodeRecords parses the output of EncodeRecords.
func DecodeRecords(data []byte) ([]types.Record, error) {
	d := decoder{buf: data}

	count, err := d.uvarint()
	if err != nil {
		return nil, err
	}
	// every record takes at least 3 bytes, so a larger count is corrupt
	if count > uint64(len(data)) {
		return nil, fmt.Errorf("%w: record count %d exceeds input size %d", ErrTruncated, count, len(data))
	}

	records := make([]types.Record, 0, count)
	for i := uint64(0); i < count; i++ {
		id, err := d.varint()
		if err != nil {
			return nil, fmt.Errorf("record %d id: %w", i, err)
		}
		key, err := d.bytes()
		if err != nil {
			return nil, fmt.Errorf("record %d group key: %w", i, err)
		}
		payload, err := d.bytes()
		if err != nil {
			return nil, fmt.Errorf("record %d payload: %w", i, err)
		}
		records = append(records, types.Record{ID: id, GroupKey: string(key), Payload: payload})
	}

	if d.off != len(d.buf) {
		return nil, fmt.Errorf("%w: %d bytes", ErrTrailingBytes, len(d.buf)-d.off)
	}
	return records, nil
}

type decoder struct {
	buf []byte
	off int
}

func (d *decoder) uvarint() (uint64, error) {
	v, n := binary.Uvarint(d.buf[d.off:])
	if n <= 0 {
		return 0, ErrTruncated
	}
	d.off += n
	return v, nil
}

func (d *decoder) varint() (int64, error) {
	v, n := binary.Varint(d.buf[d.off:])
	if n <= 0 {
		return 0, ErrTruncated
	}
	d.off += n
	return v, nil
}

func (d *decoder) bytes() ([]byte, error) {
	n, err := d.uvarint()
	if err != nil {
		return nil, err
	}
	if n > uint64(len(d.buf)-d.off) {
		return nil, ErrTruncated
	}
	out := make([]byte, n)
	copy(out, d.buf[d.off:d.off+int(n)])
	d.off += int(n)
	return out, nil
}

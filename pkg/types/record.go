// Package types provides core data types for groupbench.
package types

// Record is a single generated record.
type Record struct {
	// ID is unique across a run and assigned monotonically from 1
	ID int64 `json:"id"`

	// GroupKey is the partitioning discriminator (an ISO date)
	GroupKey string `json:"group_key"`

	// Payload is opaque record data
	Payload []byte `json:"payload"`
}

// Group is the ordered sequence of records sharing one group key,
// in generation order.
type Group struct {
	Key     string
	Records []Record
}

// CompressedBlock is the in-memory result of compressing one group's
// serialized records.
type CompressedBlock struct {
	GroupKey    string
	Data        []byte
	RecordCount int64
	RawSize     int64
}

// PlainRow is the persisted form of a Record in the plain store.
type PlainRow struct {
	ID       int64
	GroupKey string
	Payload  []byte
}

// CompressedRow is the persisted form of a CompressedBlock in the compressed store.
type CompressedRow struct {
	GroupKey    string
	Data        []byte
	RecordCount int64
	RawSize     int64
}

// ToPlainRow projects a record onto its plain row.
func (r Record) ToPlainRow() PlainRow {
	return PlainRow{ID: r.ID, GroupKey: r.GroupKey, Payload: r.Payload}
}

// ToRecord projects a plain row back onto a record.
func (p PlainRow) ToRecord() Record {
	return Record{ID: p.ID, GroupKey: p.GroupKey, Payload: p.Payload}
}

// ToRow converts the block into its persisted row.
func (b CompressedBlock) ToRow() CompressedRow {
	return CompressedRow{
		GroupKey:    b.GroupKey,
		Data:        b.Data,
		RecordCount: b.RecordCount,
		RawSize:     b.RawSize,
	}
}

// ToBlock converts a persisted row back into a block.
func (c CompressedRow) ToBlock() CompressedBlock {
	return CompressedBlock{
		GroupKey:    c.GroupKey,
		Data:        c.Data,
		RecordCount: c.RecordCount,
		RawSize:     c.RawSize,
	}
}

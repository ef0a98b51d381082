// Package verify checks that the compressed store reproduces exactly the
// records held by the plain store.
package verify

import (
	"bytes"
	"fmt"

	"github.com/arkilian/groupbench/internal/codec"
	"github.com/arkilian/groupbench/pkg/types"
	"github.com/spaolacci/murmur3"
)

// MismatchKind classifies a discrepancy between the two stores.
type MismatchKind string

const (
	KindMissingGroup   MismatchKind = "missing_group"
	KindExtraGroup     MismatchKind = "extra_group"
	KindDuplicateGroup MismatchKind = "duplicate_group"
	KindCorruptBlock   MismatchKind = "corrupt_block"
	KindMissingRecord  MismatchKind = "missing_record"
	KindExtraRecord    MismatchKind = "extra_record"
	KindFieldMismatch  MismatchKind = "field_mismatch"
	KindOrderMismatch  MismatchKind = "order_mismatch"
)

// Mismatch describes one discrepancy. RecordID is 0 when the mismatch
// concerns a whole group.
type Mismatch struct {
	GroupKey string       `json:"group_key"`
	Kind     MismatchKind `json:"kind"`
	RecordID int64        `json:"record_id,omitempty"`
	Field    string       `json:"field,omitempty"`
	Detail   string       `json:"detail"`
}

func (m Mismatch) String() string {
	s := fmt.Sprintf("%s %s", m.GroupKey, m.Kind)
	if m.RecordID != 0 {
		s += fmt.Sprintf(" id=%d", m.RecordID)
	}
	if m.Field != "" {
		s += " field=" + m.Field
	}
	return s + ": " + m.Detail
}

// Result is the outcome of a verification. It is returned by value; a failed
// verification is not an error.
type Result struct {
	Passed            bool       `json:"passed"`
	PlainRecords      int64      `json:"plain_records"`
	CompressedRecords int64      `json:"compressed_records"`
	DeclaredRecords   int64      `json:"declared_records"`
	Groups            int        `json:"groups"`
	Mismatches        []Mismatch `json:"mismatches,omitempty"`
	// Truncated is set when per-group mismatch reporting was capped
	Truncated bool `json:"truncated,omitempty"`
}

// Verifier compares the read-back contents of both stores. Order within a
// group is significant; order of groups is not.
type Verifier struct {
	codec       codec.Codec
	maxPerGroup int
}

// New creates a verifier decoding blocks with c. maxPerGroup caps the
// mismatches reported for one group (0 = unlimited).
func New(c codec.Codec, maxPerGroup int) *Verifier {
	return &Verifier{codec: c, maxPerGroup: maxPerGroup}
}

type decodedGroup struct {
	records []types.Record
	corrupt bool
}

// Verify reconstructs both record sequences and compares them group by group.
func (v *Verifier) Verify(plainRows []types.PlainRow, compressedRows []types.CompressedRow) Result {
	res := Result{PlainRecords: int64(len(plainRows))}
	rep := &reporter{max: v.maxPerGroup, counts: make(map[string]int)}

	// plain side is a direct projection
	var plainKeys []string
	plain := make(map[string][]types.Record)
	for _, row := range plainRows {
		if _, ok := plain[row.GroupKey]; !ok {
			plainKeys = append(plainKeys, row.GroupKey)
		}
		plain[row.GroupKey] = append(plain[row.GroupKey], row.ToRecord())
	}

	// compressed side requires decoding every block
	var compressedKeys []string
	compressed := make(map[string]decodedGroup)
	for _, row := range compressedRows {
		res.DeclaredRecords += row.RecordCount
		if _, dup := compressed[row.GroupKey]; dup {
			rep.add(Mismatch{
				GroupKey: row.GroupKey,
				Kind:     KindDuplicateGroup,
				Detail:   "group stored in more than one compressed row",
			})
			continue
		}
		compressedKeys = append(compressedKeys, row.GroupKey)

		records, err := codec.DecodeBlock(v.codec, row.ToBlock())
		if err != nil {
			rep.add(Mismatch{GroupKey: row.GroupKey, Kind: KindCorruptBlock, Detail: err.Error()})
			compressed[row.GroupKey] = decodedGroup{corrupt: true}
			continue
		}
		// Some flips decode to identical bytes; compression is deterministic,
		// so the stored blob must equal the re-encoded records.
		if err := v.checkEncoding(row, records); err != nil {
			rep.add(Mismatch{GroupKey: row.GroupKey, Kind: KindCorruptBlock, Detail: err.Error()})
			compressed[row.GroupKey] = decodedGroup{corrupt: true}
			continue
		}
		res.CompressedRecords += int64(len(records))
		compressed[row.GroupKey] = decodedGroup{records: records}
	}

	for _, key := range plainKeys {
		got, ok := compressed[key]
		switch {
		case !ok:
			rep.add(Mismatch{
				GroupKey: key,
				Kind:     KindMissingGroup,
				Detail:   fmt.Sprintf("%d records absent from compressed store", len(plain[key])),
			})
		case got.corrupt:
			// already reported
		default:
			compareGroup(rep, key, plain[key], got.records)
		}
	}
	for _, key := range compressedKeys {
		if _, ok := plain[key]; !ok {
			rep.add(Mismatch{
				GroupKey: key,
				Kind:     KindExtraGroup,
				Detail:   fmt.Sprintf("%d records absent from plain store", len(compressed[key].records)),
			})
		}
	}

	res.Groups = len(plainKeys)
	res.Mismatches = rep.mismatches
	res.Truncated = rep.truncated
	res.Passed = len(rep.mismatches) == 0 &&
		res.PlainRecords == res.CompressedRecords &&
		res.PlainRecords == res.DeclaredRecords
	return res
}

// checkEncoding re-encodes the decoded records and compares the result with
// the stored blob.
func (v *Verifier) checkEncoding(row types.CompressedRow, records []types.Record) error {
	block, err := codec.EncodeBlock(v.codec, types.Group{Key: row.GroupKey, Records: records})
	if err != nil {
		return fmt.Errorf("re-encode failed: %w", err)
	}
	if !bytes.Equal(block.Data, row.Data) {
		return fmt.Errorf("stored blob (%d bytes) differs from re-encoded records (%d bytes)",
			len(row.Data), len(block.Data))
	}
	return nil
}

// fingerprint hashes the canonical serialization of a record sequence.
func fingerprint(records []types.Record) [2]uint64 {
	h1, h2 := murmur3.Sum128(codec.EncodeRecords(records))
	return [2]uint64{h1, h2}
}

// compareGroup reports every difference between the expected and actual
// sequences of one group.
func compareGroup(rep *reporter, key string, want, got []types.Record) {
	if len(want) == len(got) && fingerprint(want) == fingerprint(got) {
		return
	}

	gotByID := make(map[int64]types.Record, len(got))
	var gotOrder []int64
	for _, r := range got {
		if _, dup := gotByID[r.ID]; dup {
			rep.add(Mismatch{GroupKey: key, Kind: KindExtraRecord, RecordID: r.ID, Detail: "duplicate id in compressed block"})
			continue
		}
		gotByID[r.ID] = r
		gotOrder = append(gotOrder, r.ID)
	}

	wantIDs := make(map[int64]bool, len(want))
	var wantOrder []int64
	for _, w := range want {
		if wantIDs[w.ID] {
			rep.add(Mismatch{GroupKey: key, Kind: KindExtraRecord, RecordID: w.ID, Detail: "duplicate id in plain store"})
			continue
		}
		wantIDs[w.ID] = true

		g, ok := gotByID[w.ID]
		if !ok {
			rep.add(Mismatch{GroupKey: key, Kind: KindMissingRecord, RecordID: w.ID, Detail: "record absent from compressed block"})
			continue
		}
		wantOrder = append(wantOrder, w.ID)
		if g.GroupKey != w.GroupKey {
			rep.add(Mismatch{
				GroupKey: key, Kind: KindFieldMismatch, RecordID: w.ID, Field: "group_key",
				Detail: fmt.Sprintf("plain %q, compressed %q", w.GroupKey, g.GroupKey),
			})
		}
		if !bytes.Equal(g.Payload, w.Payload) {
			rep.add(Mismatch{
				GroupKey: key, Kind: KindFieldMismatch, RecordID: w.ID, Field: "payload",
				Detail: fmt.Sprintf("plain %d bytes, compressed %d bytes", len(w.Payload), len(g.Payload)),
			})
		}
	}

	var common []int64
	for _, id := range gotOrder {
		if !wantIDs[id] {
			rep.add(Mismatch{GroupKey: key, Kind: KindExtraRecord, RecordID: id, Detail: "record absent from plain store"})
			continue
		}
		common = append(common, id)
	}

	for i := range wantOrder {
		if wantOrder[i] != common[i] {
			rep.add(Mismatch{
				GroupKey: key, Kind: KindOrderMismatch, RecordID: wantOrder[i],
				Detail: fmt.Sprintf("position %d holds id %d in compressed block", i, common[i]),
			})
			break
		}
	}
}

type reporter struct {
	max        int
	counts     map[string]int
	mismatches []Mismatch
	truncated  bool
}

func (r *reporter) add(m Mismatch) {
	if r.max > 0 && r.counts[m.GroupKey] >= r.max {
		r.truncated = true
		return
	}
	r.counts[m.GroupKey]++
	r.mismatches = append(r.mismatches, m)
}

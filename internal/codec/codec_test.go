package codec

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/arkilian/groupbench/internal/config"
	benchErrors "github.com/arkilian/groupbench/internal/errors"
	"github.com/arkilian/groupbench/pkg/types"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func sampleRecords(n int) []types.Record {
	records := make([]types.Record, n)
	for i := range records {
		records[i] = types.Record{
			ID:       int64(i + 1),
			GroupKey: "2022-01-01",
			Payload:  []byte(fmt.Sprintf("BUY ABCD %d 12.50", i)),
		}
	}
	return records
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	records := sampleRecords(25)
	records[3].Payload = []byte{}

	decoded, err := DecodeRecords(EncodeRecords(records))
	if err != nil {
		t.Fatalf("DecodeRecords failed: %v", err)
	}
	if !reflect.DeepEqual(decoded, records) {
		t.Errorf("round trip changed records")
	}
}

func TestEncodeDecode_Empty(t *testing.T) {
	decoded, err := DecodeRecords(EncodeRecords(nil))
	if err != nil {
		t.Fatalf("DecodeRecords failed: %v", err)
	}
	if len(decoded) != 0 {
		t.Errorf("expected no records, got %d", len(decoded))
	}
}

func TestDecodeRecords_Truncated(t *testing.T) {
	data := EncodeRecords(sampleRecords(3))
	for _, cut := range []int{0, 1, len(data) / 2, len(data) - 1} {
		if _, err := DecodeRecords(data[:cut]); !errors.Is(err, ErrTruncated) {
			t.Errorf("cut at %d: expected ErrTruncated, got %v", cut, err)
		}
	}
}

func TestDecodeRecords_TrailingBytes(t *testing.T) {
	data := append(EncodeRecords(sampleRecords(2)), 0x00)
	if _, err := DecodeRecords(data); !errors.Is(err, ErrTrailingBytes) {
		t.Errorf("expected ErrTrailingBytes, got %v", err)
	}
}

func TestNew_UnknownCodec(t *testing.T) {
	_, err := New("lzma", 1)
	if err == nil {
		t.Fatal("expected error for unknown codec")
	}
	if code := benchErrors.GetCode(err); code != benchErrors.CodeUnknownCodec {
		t.Errorf("expected %s, got %s", benchErrors.CodeUnknownCodec, code)
	}
}

func TestCodecs_RoundTrip(t *testing.T) {
	raw := EncodeRecords(sampleRecords(200))

	for _, name := range []string{config.CodecZlib, config.CodecFlate, config.CodecSnappy} {
		for _, level := range []int{-1, 1, 9} {
			t.Run(fmt.Sprintf("%s/%d", name, level), func(t *testing.T) {
				c, err := New(name, level)
				if err != nil {
					t.Fatal(err)
				}
				if c.Name() != name {
					t.Errorf("Name() = %s, want %s", c.Name(), name)
				}
				compressed, err := c.Compress(raw)
				if err != nil {
					t.Fatalf("Compress failed: %v", err)
				}
				if len(compressed) >= len(raw) {
					t.Errorf("expected repetitive input to shrink: %d >= %d", len(compressed), len(raw))
				}
				out, err := c.Decompress(compressed)
				if err != nil {
					t.Fatalf("Decompress failed: %v", err)
				}
				if !bytes.Equal(out, raw) {
					t.Error("decompressed bytes differ")
				}
			})
		}
	}
}

func TestZlib_InvalidLevel(t *testing.T) {
	c, _ := New(config.CodecZlib, 42)
	if _, err := c.Compress([]byte("x")); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestZlib_DetectsCorruption(t *testing.T) {
	c, _ := New(config.CodecZlib, 6)
	compressed, err := c.Compress(EncodeRecords(sampleRecords(50)))
	if err != nil {
		t.Fatal(err)
	}

	truncated := compressed[:len(compressed)/2]
	if _, err := c.Decompress(truncated); err == nil {
		t.Error("expected error for truncated stream")
	}

	flipped := append([]byte(nil), compressed...)
	flipped[len(flipped)-1] ^= 0xFF
	if _, err := c.Decompress(flipped); err == nil {
		t.Error("expected checksum error for flipped trailer byte")
	}
}

// TestProperty_SerializationRoundTrip validates decode(encode(records)) == records
// and that it survives compression with every codec.
func TestProperty_SerializationRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	recordGen := gopter.CombineGens(
		gen.Int64(),
		gen.AlphaString(),
		gen.SliceOf(gen.UInt8()),
	).Map(func(vals []interface{}) types.Record {
		return types.Record{
			ID:       vals[0].(int64),
			GroupKey: vals[1].(string),
			Payload:  append([]byte{}, vals[2].([]uint8)...),
		}
	})

	properties.Property("decode(encode(records)) reproduces records", prop.ForAll(
		func(records []types.Record) bool {
			decoded, err := DecodeRecords(EncodeRecords(records))
			if err != nil {
				return false
			}
			if len(records) == 0 {
				return len(decoded) == 0
			}
			return reflect.DeepEqual(decoded, records)
		},
		gen.SliceOf(recordGen),
	))

	properties.Property("codecs are byte exact", prop.ForAll(
		func(records []types.Record, which int) bool {
			names := []string{config.CodecZlib, config.CodecFlate, config.CodecSnappy}
			c, err := New(names[which], 6)
			if err != nil {
				return false
			}
			raw := EncodeRecords(records)
			compressed, err := c.Compress(raw)
			if err != nil {
				return false
			}
			out, err := c.Decompress(compressed)
			return err == nil && bytes.Equal(out, raw)
		},
		gen.SliceOf(recordGen),
		gen.IntRange(0, 2),
	))

	properties.TestingRun(t)
}

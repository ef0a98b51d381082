package bench

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/arkilian/groupbench/internal/verify"
)

func sampleResult() *Result {
	res := &Result{
		RunID: "run-1",
		State: StageReport,
		Plain: PipelineResult{Store: "plain", Rows: 100, SizeBytes: 16384, Write: 4 * time.Millisecond, Read: 2 * time.Millisecond},
		Compressed: PipelineResult{
			Store: "compressed", Rows: 5, SizeBytes: 8192,
			Compress: time.Millisecond, Write: time.Millisecond, Read: time.Millisecond, Decode: time.Millisecond,
		},
		Verification: verify.Result{Passed: true, PlainRecords: 100, CompressedRecords: 100, DeclaredRecords: 100, Groups: 5},
	}
	res.Metrics = ComputeMetrics(res.Plain, res.Compressed)
	return res
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	if err := sampleResult().WriteTable(&buf); err != nil {
		t.Fatalf("WriteTable failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Metric", "Plain", "Compressed", "Variation",
		"16384", "8192", "+50.00% saved", "2.00x",
		"-75.00%", "Verification: PASSED (100 records in 5 groups)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestWriteTable_Failed(t *testing.T) {
	res := sampleResult()
	res.Verification.Passed = false
	res.Verification.Mismatches = []verify.Mismatch{
		{GroupKey: "2022-01-01", Kind: verify.KindMissingRecord, RecordID: 7},
	}
	res.DecodeError = "bad block"

	var buf bytes.Buffer
	if err := res.WriteTable(&buf); err != nil {
		t.Fatalf("WriteTable failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"FAILED", "unverified", "bad block", "2022-01-01"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestWriteTable_UndefinedMetrics(t *testing.T) {
	res := &Result{State: StageReport, Verification: verify.Result{Passed: true}}
	res.Metrics = ComputeMetrics(res.Plain, res.Compressed)

	var buf bytes.Buffer
	if err := res.WriteTable(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "n/a") {
		t.Errorf("expected n/a for undefined metrics:\n%s", buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := sampleResult().WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["state"] != "REPORT" {
		t.Errorf("expected state REPORT, got %v", decoded["state"])
	}
	plain := decoded["plain"].(map[string]interface{})
	if plain["size_bytes"].(float64) != 16384 {
		t.Errorf("unexpected plain size %v", plain["size_bytes"])
	}
}

func TestStageString(t *testing.T) {
	want := []string{"GENERATE", "COMPRESS_GROUP", "WRITE_PLAIN", "WRITE_COMPRESSED",
		"READ_PLAIN", "READ_COMPRESSED", "VERIFY", "REPORT"}
	for i, s := range Stages {
		if s.String() != want[i] {
			t.Errorf("stage %d: got %s, want %s", i, s, want[i])
		}
		if s.Terminal() != (s == StageReport) {
			t.Errorf("stage %s: unexpected Terminal()", s)
		}
	}
	if !StageAborted.Terminal() || StageAborted.String() != "ABORTED" {
		t.Error("ABORTED should be terminal")
	}
}

func TestStageUnmarshalText(t *testing.T) {
	for _, s := range append(append([]Stage{}, Stages...), StageAborted) {
		text, err := s.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var got Stage
		if err := got.UnmarshalText(text); err != nil {
			t.Fatalf("stage %s: %v", s, err)
		}
		if got != s {
			t.Errorf("got %s, want %s", got, s)
		}
	}

	var s Stage
	if err := s.UnmarshalText([]byte("UNKNOWN")); err == nil {
		t.Error("expected error for unknown stage")
	}
}

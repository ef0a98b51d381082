package bench

import (
	"encoding/json"
	"io"
	"time"

	"github.com/arkilian/groupbench/internal/config"
	"github.com/arkilian/groupbench/internal/verify"
)

// Result is the structured outcome of one run. A run aborted by a fatal
// error still returns the partial result gathered so far.
type Result struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Config    config.Config `json:"config"`

	// State is REPORT for a completed run and ABORTED otherwise
	State  Stage         `json:"state"`
	Stages []StageTiming `json:"stages"`

	GeneratedRecords int64 `json:"generated_records"`
	Groups           int   `json:"groups"`

	Plain      PipelineResult `json:"plain"`
	Compressed PipelineResult `json:"compressed"`

	Verification verify.Result `json:"verification"`
	// DecodeError is set when decoding during READ_COMPRESSED failed
	DecodeError string `json:"decode_error,omitempty"`

	Metrics Metrics `json:"metrics"`
}

// StageTiming is the wall-clock duration of one stage.
type StageTiming struct {
	Stage    Stage         `json:"stage"`
	Duration time.Duration `json:"duration_ns"`
}

// PipelineResult holds the measurements of one storage strategy.
type PipelineResult struct {
	Store     string `json:"store"`
	Path      string `json:"path"`
	Rows      int64  `json:"rows"`
	SizeBytes int64  `json:"size_bytes"`

	// Compress is the grouping and compression time (compressed pipeline only)
	Compress time.Duration `json:"compress_ns"`
	Write    time.Duration `json:"write_ns"`
	Read     time.Duration `json:"read_ns"`
	// Decode is the block decompression time after the scan (compressed pipeline only)
	Decode time.Duration `json:"decode_ns"`
}

// WriteTotal is the write time including compression.
func (p PipelineResult) WriteTotal() time.Duration {
	return p.Compress + p.Write
}

// ReadTotal is the read time including decoding.
func (p PipelineResult) ReadTotal() time.Duration {
	return p.Read + p.Decode
}

// Verified reports whether the run completed and the stores matched.
func (r *Result) Verified() bool {
	return r.State == StageReport && r.Verification.Passed && r.DecodeError == ""
}

// StageDuration returns the recorded duration of s, if it ran.
func (r *Result) StageDuration(s Stage) (time.Duration, bool) {
	for _, st := range r.Stages {
		if st.Stage == s {
			return st.Duration, true
		}
	}
	return 0, false
}

// WriteJSON writes the result as indented JSON.
func (r *Result) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

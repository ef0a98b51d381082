package bench

import "fmt"

// Stage is one phase of a benchmark run. Stages run strictly in order.
type Stage int

const (
	StageGenerate Stage = iota
	StageCompressGroup
	StageWritePlain
	StageWriteCompressed
	StageReadPlain
	StageReadCompressed
	StageVerify
	StageReport
	StageAborted
)

// Stages lists the stages of a successful run in execution order.
var Stages = []Stage{
	StageGenerate,
	StageCompressGroup,
	StageWritePlain,
	StageWriteCompressed,
	StageReadPlain,
	StageReadCompressed,
	StageVerify,
	StageReport,
}

func (s Stage) String() string {
	switch s {
	case StageGenerate:
		return "GENERATE"
	case StageCompressGroup:
		return "COMPRESS_GROUP"
	case StageWritePlain:
		return "WRITE_PLAIN"
	case StageWriteCompressed:
		return "WRITE_COMPRESSED"
	case StageReadPlain:
		return "READ_PLAIN"
	case StageReadCompressed:
		return "READ_COMPRESSED"
	case StageVerify:
		return "VERIFY"
	case StageReport:
		return "REPORT"
	case StageAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the stage name in JSON output.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a stage name written by MarshalText.
func (s *Stage) UnmarshalText(text []byte) error {
	name := string(text)
	for st := StageGenerate; st <= StageAborted; st++ {
		if st.String() == name {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", name)
}

// Terminal reports whether no stage follows s.
func (s Stage) Terminal() bool {
	return s == StageReport || s == StageAborted
}

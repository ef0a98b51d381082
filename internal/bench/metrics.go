package bench

import "time"

// Metric names reported in Metrics.Undefined.
const (
	MetricStorageRatio        = "storage_ratio"
	MetricStorageSavings      = "storage_savings_pct"
	MetricWriteVariation      = "write_variation_pct"
	MetricWriteTotalVariation = "write_total_variation_pct"
	MetricReadVariation       = "read_variation_pct"
	MetricReadTotalVariation  = "read_total_variation_pct"
)

// Metrics compares the compressed pipeline against the plain one.
// Variations are (compressed/plain - 1) * 100: positive means the compressed
// pipeline took longer. StorageSavingsPct is negative when the compressed
// store is larger. A metric whose denominator is zero is reported as 0 and
// listed in Undefined.
type Metrics struct {
	StorageRatio           float64  `json:"storage_ratio"`
	StorageSavingsPct      float64  `json:"storage_savings_pct"`
	WriteVariationPct      float64  `json:"write_variation_pct"`
	WriteTotalVariationPct float64  `json:"write_total_variation_pct"`
	ReadVariationPct       float64  `json:"read_variation_pct"`
	ReadTotalVariationPct  float64  `json:"read_total_variation_pct"`
	Undefined              []string `json:"undefined,omitempty"`
}

// IsDefined reports whether the named metric had a non-zero denominator.
func (m Metrics) IsDefined(name string) bool {
	for _, u := range m.Undefined {
		if u == name {
			return false
		}
	}
	return true
}

// ComputeMetrics derives the comparison metrics from both pipelines. The
// plain pipeline has no compress or decode step, so its totals equal its
// bare write and read times.
func ComputeMetrics(plain, compressed PipelineResult) Metrics {
	var m Metrics
	set := func(dst *float64, name string, v float64, ok bool) {
		*dst = v
		if !ok {
			m.Undefined = append(m.Undefined, name)
		}
	}

	ratio, ok := divide(float64(plain.SizeBytes), float64(compressed.SizeBytes))
	set(&m.StorageRatio, MetricStorageRatio, ratio, ok)

	frac, ok := divide(float64(compressed.SizeBytes), float64(plain.SizeBytes))
	set(&m.StorageSavingsPct, MetricStorageSavings, savings(frac, ok), ok)

	v, ok := variation(plain.Write, compressed.Write)
	set(&m.WriteVariationPct, MetricWriteVariation, v, ok)

	v, ok = variation(plain.WriteTotal(), compressed.WriteTotal())
	set(&m.WriteTotalVariationPct, MetricWriteTotalVariation, v, ok)

	v, ok = variation(plain.Read, compressed.Read)
	set(&m.ReadVariationPct, MetricReadVariation, v, ok)

	v, ok = variation(plain.ReadTotal(), compressed.ReadTotal())
	set(&m.ReadTotalVariationPct, MetricReadTotalVariation, v, ok)

	return m
}

func divide(num, den float64) (float64, bool) {
	if den == 0 {
		return 0, false
	}
	return num / den, true
}

func savings(frac float64, ok bool) float64 {
	if !ok {
		return 0
	}
	return (1 - frac) * 100
}

func variation(plain, compressed time.Duration) (float64, bool) {
	frac, ok := divide(float64(compressed), float64(plain))
	if !ok {
		return 0, false
	}
	return (frac - 1) * 100, true
}

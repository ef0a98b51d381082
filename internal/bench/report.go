package bench

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// WriteTable renders the result as a Metric | Plain | Compressed | Variation
// table followed by the verification outcome.
func (r *Result) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	m := r.Metrics

	fmt.Fprintf(tw, "Run\t%s\t\t\n", r.RunID)
	fmt.Fprintf(tw, "Metric\tPlain\tCompressed\tVariation\n")
	fmt.Fprintf(tw, "Rows\t%d\t%d\t\n", r.Plain.Rows, r.Compressed.Rows)
	fmt.Fprintf(tw, "Size (bytes)\t%d\t%d\t%s\n", r.Plain.SizeBytes, r.Compressed.SizeBytes,
		formatPct(m, MetricStorageSavings, m.StorageSavingsPct, "saved"))
	fmt.Fprintf(tw, "Storage ratio\t\t\t%s\n", formatRatio(m))
	fmt.Fprintf(tw, "Write\t%s\t%s\t%s\n", formatDuration(r.Plain.Write), formatDuration(r.Compressed.Write),
		formatPct(m, MetricWriteVariation, m.WriteVariationPct, ""))
	fmt.Fprintf(tw, "Compress + write\t%s\t%s\t%s\n", formatDuration(r.Plain.WriteTotal()), formatDuration(r.Compressed.WriteTotal()),
		formatPct(m, MetricWriteTotalVariation, m.WriteTotalVariationPct, ""))
	fmt.Fprintf(tw, "Read\t%s\t%s\t%s\n", formatDuration(r.Plain.Read), formatDuration(r.Compressed.Read),
		formatPct(m, MetricReadVariation, m.ReadVariationPct, ""))
	fmt.Fprintf(tw, "Read + decode\t%s\t%s\t%s\n", formatDuration(r.Plain.ReadTotal()), formatDuration(r.Compressed.ReadTotal()),
		formatPct(m, MetricReadTotalVariation, m.ReadTotalVariationPct, ""))
	if err := tw.Flush(); err != nil {
		return err
	}

	switch {
	case r.State != StageReport:
		_, err := fmt.Fprintf(w, "Verification: not run (state %s)\n", r.State)
		return err
	case r.Verified():
		_, err := fmt.Fprintf(w, "Verification: PASSED (%d records in %d groups)\n",
			r.Verification.PlainRecords, r.Verification.Groups)
		return err
	}

	if _, err := fmt.Fprintf(w, "Verification: FAILED, results unverified (%d mismatches)\n",
		len(r.Verification.Mismatches)); err != nil {
		return err
	}
	if r.DecodeError != "" {
		if _, err := fmt.Fprintf(w, "  decode: %s\n", r.DecodeError); err != nil {
			return err
		}
	}
	for _, mm := range r.Verification.Mismatches {
		if _, err := fmt.Fprintf(w, "  %s\n", mm); err != nil {
			return err
		}
	}
	if r.Verification.Truncated {
		_, err := fmt.Fprintln(w, "  (mismatch list truncated)")
		return err
	}
	return nil
}

func formatPct(m Metrics, name string, v float64, suffix string) string {
	if !m.IsDefined(name) {
		return "n/a"
	}
	s := fmt.Sprintf("%+.2f%%", v)
	if suffix != "" {
		s += " " + suffix
	}
	return s
}

func formatRatio(m Metrics) string {
	if !m.IsDefined(MetricStorageRatio) {
		return "n/a"
	}
	return fmt.Sprintf("%.2fx", m.StorageRatio)
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Microsecond).String()
}

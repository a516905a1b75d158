package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lead-scorer/internal/model"
	"github.com/sells-group/lead-scorer/internal/orchestrator"
)

var outputFormats = []string{"table", "json", "yaml"}

func validateFormat(format string) error {
	if !slices.Contains(outputFormats, format) {
		return eris.Errorf("unsupported format %q (want %s)", format, strings.Join(outputFormats, ", "))
	}
	return nil
}

// writeStructured renders v as indented JSON or as YAML. YAML goes through
// JSON first so both formats share the json field names.
func writeStructured(out io.Writer, format string, v any) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return eris.Wrap(err, "marshal output")
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return eris.Wrap(err, "decode output")
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	defer enc.Close() //nolint:errcheck
	return enc.Encode(generic)
}

func writeResult(out io.Writer, format string, r *model.ScoringResult) error {
	if format != "table" {
		return writeStructured(out, format, r)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Lead:\t%s\n", r.LeadID)
	_, _ = fmt.Fprintf(w, "Score:\t%d / 120\n", r.LeadScore)
	_, _ = fmt.Fprintf(w, "Tier:\t%s\n", r.Tier)
	if size := r.SizeLabel(); size != "" {
		_, _ = fmt.Fprintf(w, "Practice size:\t%s\n", size)
	}
	_, _ = fmt.Fprintf(w, "Target ICP:\t%t\n", r.TargetICP)
	_, _ = fmt.Fprintf(w, "Confidence:\t%s (x%.1f)\n", displayConfidence(r.Breakdown.ConfidenceLevel), r.Breakdown.ConfidenceMultiplier)
	if len(r.ConfidenceFlags) > 0 {
		_, _ = fmt.Fprintf(w, "Flags:\t%s\n", strings.Join(r.ConfidenceFlags, "; "))
	}
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, "COMPONENT\tSCORE\tDETAIL")
	_, _ = fmt.Fprintln(w, "---------\t-----\t------")
	for _, c := range r.Breakdown.Components() {
		_, _ = fmt.Fprintf(w, "%s\t%d/%d\t%s\n", c.Name, c.Score, c.Max, c.Detail)
	}
	_, _ = fmt.Fprintf(w, "total before confidence\t%d/130\t\n", r.Breakdown.TotalBeforeConfidence)
	if r.Recommendation != "" {
		_, _ = fmt.Fprintf(w, "\nRecommendation:\t%s\n", r.Recommendation)
	}
	return w.Flush()
}

func displayConfidence(c model.ConfidenceLevel) string {
	if c == model.ConfidenceAbsent {
		return "unknown"
	}
	return string(c)
}

var tierOrder = []model.PriorityTier{
	model.TierHot, model.TierWarm, model.TierCold, model.TierOutOfScope, model.TierPendingEnrichment,
}

func writeReport(out io.Writer, format string, rep *orchestrator.BatchReport) error {
	if format != "table" {
		return writeStructured(out, format, rep)
	}

	s := rep.Summary
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if rep.RunID != "" {
		_, _ = fmt.Fprintf(w, "Run:\t%s\n", rep.RunID)
	}
	_, _ = fmt.Fprintf(w, "Total:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Succeeded:\t%d\n", s.Succeeded)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "  Timed out:\t%d\n", s.TimedOut)
	_, _ = fmt.Fprintf(w, "  Breaker blocked:\t%d\n", s.BreakerBlocked)
	if skipped := s.Total - s.Succeeded - s.Failed; skipped > 0 {
		_, _ = fmt.Fprintf(w, "Not attempted:\t%d\n", skipped)
	}
	if s.Aborted {
		_, _ = fmt.Fprintln(w, "Aborted:\tyes")
	}
	_, _ = fmt.Fprintf(w, "Duration:\t%dms\n", s.DurationMs)

	if s.Succeeded > 0 {
		_, _ = fmt.Fprintln(w, "\nTIER\tLEADS")
		for _, t := range tierOrder {
			if n := s.Distribution[t]; n > 0 {
				_, _ = fmt.Fprintf(w, "%s\t%d\n", t, n)
			}
		}
	}

	if errs := rep.FirstErrors(orchestrator.MaxReportedErrors); len(errs) > 0 {
		_, _ = fmt.Fprintln(w, "\nLEAD\tCAUSE\tERROR")
		for _, e := range errs {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", e.LeadID, e.Cause, e.Message)
		}
		if more := len(rep.Errors) - len(errs); more > 0 {
			_, _ = fmt.Fprintf(w, "... %d more\t\t\n", more)
		}
	}
	return w.Flush()
}

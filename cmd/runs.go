package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-scorer/internal/model"
	"github.com/sells-group/lead-scorer/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect batch scoring run history",
	Long:  "Commands for listing, viewing, and summarizing batch scoring runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scoring runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")
		filter := store.RunFilter{Limit: 10000}
		if since > 0 {
			filter.CreatedAfter = time.Now().Add(-since)
		}

		runs, err := st.ListRuns(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(os.Stdout, computeRunStats(runs))
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (running, complete, aborted)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsStatsCmd.Flags().Duration("since", 24*time.Hour, "time window for stats (e.g. 24h, 72h, 168h)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// runStats holds aggregate statistics computed from a set of runs.
type runStats struct {
	Runs         int
	Complete     int
	Aborted      int
	Running      int
	Leads        int
	Succeeded    int
	Failed       int
	TimedOut     int
	Distribution map[model.PriorityTier]int
	AvgDurMs     float64
}

// computeRunStats computes aggregate statistics from a list of runs.
func computeRunStats(runs []model.ScoringRun) runStats {
	s := runStats{Runs: len(runs), Distribution: make(map[model.PriorityTier]int)}

	var totalDur int64
	var durCount int
	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			s.Complete++
		case model.RunStatusAborted:
			s.Aborted++
		case model.RunStatusRunning:
			s.Running++
		}
		if r.Summary == nil {
			continue
		}
		s.Leads += r.Summary.Total
		s.Succeeded += r.Summary.Succeeded
		s.Failed += r.Summary.Failed
		s.TimedOut += r.Summary.TimedOut
		for tier, n := range r.Summary.Distribution {
			s.Distribution[tier] += n
		}
		totalDur += r.Summary.DurationMs
		durCount++
	}

	if durCount > 0 {
		s.AvgDurMs = float64(totalDur) / float64(durCount)
	}
	return s
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.ScoringRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tTOTAL\tOK\tFAILED\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t------\t-----\t--\t------\t-------\t--------")

	for _, r := range runs {
		total, ok, failed, dur := "-", "-", "-", "-"
		if r.Summary != nil {
			total = fmt.Sprint(r.Summary.Total)
			ok = fmt.Sprint(r.Summary.Succeeded)
			failed = fmt.Sprint(r.Summary.Failed)
			dur = (time.Duration(r.Summary.DurationMs) * time.Millisecond).Round(time.Millisecond).String()
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Status,
			total,
			ok,
			failed,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Runs)
	_, _ = fmt.Fprintf(w, "  Complete:\t%d\n", s.Complete)
	_, _ = fmt.Fprintf(w, "  Aborted:\t%d\n", s.Aborted)
	_, _ = fmt.Fprintf(w, "  Running:\t%d\n", s.Running)
	_, _ = fmt.Fprintf(w, "Leads:\t%d\n", s.Leads)
	_, _ = fmt.Fprintf(w, "  Scored:\t%d\n", s.Succeeded)
	_, _ = fmt.Fprintf(w, "  Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "    Timed out:\t%d\n", s.TimedOut)
	for _, t := range tierOrder {
		if n := s.Distribution[t]; n > 0 {
			_, _ = fmt.Fprintf(w, "%s:\t%d\n", t, n)
		}
	}
	if s.AvgDurMs > 0 {
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.0fms\n", s.AvgDurMs)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

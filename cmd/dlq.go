package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-scorer/internal/orchestrator"
	"github.com/sells-group/lead-scorer/internal/resilience"
)

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Inspect and retry leads that failed to score",
}

var dlqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dead letter queue entries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		errType, _ := cmd.Flags().GetString("error-type")
		limit, _ := cmd.Flags().GetInt("limit")

		entries, err := st.ListDLQ(ctx, resilience.DLQFilter{ErrorType: errType, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "dlq list")
		}
		if len(entries) == 0 {
			fmt.Fprintln(os.Stderr, "Dead letter queue is empty.")
			return nil
		}

		formatDLQList(os.Stdout, entries, time.Now())
		return nil
	},
}

var dlqRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Rescore dead letter queue entries that are due",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initScorer(ctx, "score")
		if err != nil {
			return err
		}
		defer env.Close()

		errType, _ := cmd.Flags().GetString("error-type")
		limit, _ := cmd.Flags().GetInt("limit")

		report, err := env.Orchestrator.RetryDLQ(ctx, resilience.DLQFilter{ErrorType: errType, Limit: limit})
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Attempted: %d  Resolved: %d  Failed: %d\n",
			report.Attempted, report.Resolved, report.Failed)
		return dlqRetryExit(ctx, report)
	},
}

// dlqRetryExit maps a retry pass to an exit error. An interrupted pass also
// reports Aborted, so the context is checked first.
func dlqRetryExit(ctx context.Context, report *orchestrator.DLQRetryReport) error {
	switch {
	case ctx.Err() != nil:
		return &exitError{code: exitInterrupted, err: eris.New("dlq retry: interrupted")}
	case report.Aborted:
		return &exitError{code: exitBreakerOpen, err: eris.New("dlq retry: breaker open")}
	}
	return nil
}

func init() {
	for _, c := range []*cobra.Command{dlqListCmd, dlqRetryCmd} {
		c.Flags().String("error-type", "", "filter by error type (transient, permanent)")
		c.Flags().Int("limit", 100, "maximum number of entries")
	}

	dlqCmd.AddCommand(dlqListCmd)
	dlqCmd.AddCommand(dlqRetryCmd)
	rootCmd.AddCommand(dlqCmd)
}

func formatDLQList(out io.Writer, entries []resilience.DLQEntry, now time.Time) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "LEAD\tCAUSE\tTYPE\tRETRIES\tNEXT RETRY\tERROR")
	_, _ = fmt.Fprintln(w, "----\t-----\t----\t-------\t----------\t-----")

	for _, e := range entries {
		next := "exhausted"
		if e.CanRetry() {
			next = "due"
			if e.NextRetryAt.After(now) {
				next = "in " + e.NextRetryAt.Sub(now).Round(time.Second).String()
			}
		}
		msg := e.Error
		if len(msg) > 60 {
			msg = msg[:57] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			e.LeadID, e.Cause, e.ErrorType, e.RetryCount, e.MaxRetries, next, msg)
	}
	_ = w.Flush()
}

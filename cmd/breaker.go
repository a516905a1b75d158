package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/lead-scorer/internal/resilience"
	"github.com/sells-group/lead-scorer/internal/store"
)

var breakerCmd = &cobra.Command{
	Use:   "breaker",
	Short: "Inspect or reset the ledger circuit breaker",
}

var breakerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted ledger breaker state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		breaker, err := restoreBreaker(ctx, st)
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if err := validateFormat(format); err != nil {
			return err
		}
		if format != "table" {
			return writeStructured(os.Stdout, format, breaker.Status())
		}
		formatBreakerStatus(os.Stdout, breaker.Status())
		return nil
	},
}

var breakerResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Close the ledger breaker and clear its failure count",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		breaker, err := restoreBreaker(ctx, st)
		if err != nil {
			return err
		}
		breaker.Reset()
		if err := st.SaveBreaker(ctx, store.LedgerBreaker, breaker.Snapshot()); err != nil {
			return err
		}

		formatBreakerStatus(os.Stdout, breaker.Status())
		return nil
	},
}

func init() {
	breakerStatusCmd.Flags().String("format", "table", "output format: table, json or yaml")

	breakerCmd.AddCommand(breakerStatusCmd)
	breakerCmd.AddCommand(breakerResetCmd)
	rootCmd.AddCommand(breakerCmd)
}

func formatBreakerStatus(out io.Writer, s resilience.BreakerStatus) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "State:\t%s\n", s.StateName)
	_, _ = fmt.Fprintf(w, "Consecutive failures:\t%d / %d\n", s.Failures, s.Threshold)
	_, _ = fmt.Fprintf(w, "Cooldown:\t%s\n", s.Cooldown)
	if s.OpenedAt != nil {
		_, _ = fmt.Fprintf(w, "Opened at:\t%s\n", s.OpenedAt.UTC().Format(time.RFC3339))
	}
	if s.RetryIn > 0 {
		_, _ = fmt.Fprintf(w, "Trial allowed in:\t%s\n", s.RetryIn.Round(time.Second))
	}
	_ = w.Flush()
}

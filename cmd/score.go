package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-scorer/internal/ledger"
	"github.com/sells-group/lead-scorer/internal/orchestrator"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score one or more leads",
	Long: `Score leads from the Notion lead database and write the results back.

A single --id is scored on its own and any failure sets the exit code
(1 general, 2 breaker open, 3 timeout, 4 validation). Several ids, or --all,
run as a sequential batch recorded in the run history; failed leads are
queued for retry.

Examples:
  # Score one lead
  score --id 2f1c...

  # Score every enriched lead, continuing past failures
  score --all --enriched-only --continue-on-error

  # Score the first 20 leads and print JSON
  score --all --limit 20 --format json

  # Dry run against a local fixture, without Notion or the store
  score --all --fixture testdata/leads.json`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.StringSlice("id", nil, "lead page id (repeatable or comma-separated)")
	f.Bool("all", false, "score every lead in the database")
	f.Int("limit", 0, "maximum number of leads with --all (0 = no limit)")
	f.Bool("enriched-only", false, "with --all, only leads whose enrichment is Completed or Partial")
	f.Bool("continue-on-error", false, "keep scoring after a failed lead")
	f.String("format", "table", "output format: table, json or yaml")
	f.String("fixture", "", "score from a JSON fixture of scoring inputs instead of Notion")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ids, _ := cmd.Flags().GetStringSlice("id")
	all, _ := cmd.Flags().GetBool("all")
	limit, _ := cmd.Flags().GetInt("limit")
	enrichedOnly, _ := cmd.Flags().GetBool("enriched-only")
	continueOnError, _ := cmd.Flags().GetBool("continue-on-error")
	format, _ := cmd.Flags().GetString("format")
	fixture, _ := cmd.Flags().GetString("fixture")

	if err := validateFormat(format); err != nil {
		return err
	}
	if len(ids) == 0 && !all {
		return eris.New("score: specify --id or --all")
	}
	if len(ids) > 0 && all {
		return eris.New("score: --id and --all are mutually exclusive")
	}

	var env *scorerEnv
	var err error
	if fixture != "" {
		env, err = initFixtureScorer(fixture)
	} else {
		env, err = initScorer(ctx, "score")
	}
	if err != nil {
		return err
	}
	defer env.Close()

	log := zap.L().With(zap.String("command", "score"))

	if len(ids) == 1 {
		result, err := env.Orchestrator.ScoreOne(ctx, ids[0])
		if err != nil {
			if ctx.Err() != nil {
				return &exitError{code: exitInterrupted, err: eris.Wrap(err, "score: interrupted")}
			}
			return err
		}
		return writeResult(os.Stdout, format, result)
	}

	if all {
		ids, err = env.Ledger.ListLeadIDs(ctx, ledger.ListOptions{Limit: limit, EnrichedOnly: enrichedOnly})
		if err != nil {
			return eris.Wrap(err, "score: list leads")
		}
		log.Info("listed leads", zap.Int("count", len(ids)), zap.Bool("enriched_only", enrichedOnly))
	}

	report := env.Orchestrator.ScoreBatch(ctx, ids, orchestrator.BatchOptions{ContinueOnError: continueOnError})
	if err := writeReport(os.Stdout, format, report); err != nil {
		return err
	}
	return batchExit(ctx, report)
}

// batchExit turns a batch outcome into an exit error. A breaker abort wins
// over other failures; an interrupted batch wins over both.
func batchExit(ctx context.Context, report *orchestrator.BatchReport) error {
	s := report.Summary
	switch {
	case ctx.Err() != nil:
		return &exitError{code: exitInterrupted, err: eris.New("score: batch interrupted")}
	case s.BreakerBlocked > 0:
		return &exitError{code: exitBreakerOpen, err: eris.Errorf("score: breaker open, %d of %d leads not scored", s.Total-s.Succeeded, s.Total)}
	case s.Failed > 0:
		return &exitError{code: exitGeneral, err: eris.Errorf("score: %d of %d leads failed", s.Failed, s.Total)}
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-scorer/internal/config"
	"github.com/sells-group/lead-scorer/internal/orchestrator"
)

// Process exit codes.
const (
	exitOK          = 0
	exitGeneral     = 1
	exitBreakerOpen = 2
	exitTimeout     = 3
	exitValidation  = 4
	exitInterrupted = 130
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "lead-scorer",
	Short: "Score veterinary practice leads",
	Long:  "Reads baseline and enrichment facts for veterinary practice leads from Notion, computes a 0-120 lead score and priority tier, and writes the result back.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

// exitError carries a specific process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// exitCode maps a command error to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if errors.Is(err, context.Canceled) {
		return exitInterrupted
	}
	switch orchestrator.Classify(err) {
	case orchestrator.CauseCircuitBreaker:
		return exitBreakerOpen
	case orchestrator.CauseTimeout:
		return exitTimeout
	case orchestrator.CauseValidation:
		return exitValidation
	default:
		return exitGeneral
	}
}

func main() {
	os.Exit(exitCode(rootCmd.Execute()))
}

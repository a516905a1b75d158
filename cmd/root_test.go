package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-scorer/internal/resilience"
	"github.com/sells-group/lead-scorer/internal/scoring"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"score", "serve", "breaker", "runs", "dlq", "schema"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "lead-scorer", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceUsage)
}

func TestScoreCommand_Flags(t *testing.T) {
	for _, name := range []string{"id", "all", "limit", "enriched-only", "continue-on-error", "format", "fixture"} {
		assert.NotNil(t, scoreCmd.Flags().Lookup(name), "score should have --%s", name)
	}
	assert.Equal(t, "table", scoreCmd.Flags().Lookup("format").DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestRunsCommand_Flags(t *testing.T) {
	limit := runsListCmd.Flags().Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "50", limit.DefValue)

	since := runsStatsCmd.Flags().Lookup("since")
	require.NotNil(t, since)
	assert.Equal(t, "24h0m0s", since.DefValue)
}

func TestDLQCommand_Flags(t *testing.T) {
	for _, c := range dlqCmd.Commands() {
		assert.NotNil(t, c.Flags().Lookup("error-type"), "dlq %s should have --error-type", c.Name())
		assert.Equal(t, "100", c.Flags().Lookup("limit").DefValue)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"general", errors.New("boom"), exitGeneral},
		{"validation", &scoring.ValidationError{LeadID: "l1", Field: "vet_count", Msg: "out of range"}, exitValidation},
		{"timeout", &scoring.TimeoutError{LeadID: "l1", Budget: time.Second}, exitTimeout},
		{"breaker", &resilience.BreakerOpenError{Failures: 5, Threshold: 5}, exitBreakerOpen},
		{"wrapped breaker", eris.Wrap(&resilience.BreakerOpenError{Failures: 5, Threshold: 5}, "score"), exitBreakerOpen},
		{"cancelled", eris.Wrap(context.Canceled, "score"), exitInterrupted},
		{"explicit", &exitError{code: exitValidation, err: errors.New("schema")}, exitValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestExitError_Unwraps(t *testing.T) {
	inner := errors.New("inner")
	err := &exitError{code: exitGeneral, err: inner}
	assert.Equal(t, "inner", err.Error())
	assert.ErrorIs(t, err, inner)
}

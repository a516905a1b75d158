package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/lead-scorer/internal/config"
	"github.com/sells-group/lead-scorer/internal/ledger"
	"github.com/sells-group/lead-scorer/internal/model"
	"github.com/sells-group/lead-scorer/internal/orchestrator"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

const leadsFixture = `[
  {"lead_id": "hot",
   "baseline": {"rating": 4.8, "review_count": 150, "website": "https://hot.vet", "multiple_locations": true},
   "enrichment": {"vet_count": 5, "confidence": "high", "emergency_24_7": true, "online_booking": true,
                  "patient_portal": true, "specialty_services": ["Surgery"], "decision_maker_name": "Dr. Lee",
                  "decision_maker_email": "lee@hot.vet", "enrichment_status": "Completed"}},
  {"lead_id": "bad", "baseline": {"rating": 4.1}, "enrichment": {"vet_count": 75, "enrichment_status": "Completed"}},
  {"lead_id": "pending", "baseline": {"rating": 4.0}, "enrichment": {"enrichment_status": "Pending"}}
]`

// loadTestConfig loads defaults from an empty working directory.
func loadTestConfig(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	c, err := config.Load()
	require.NoError(t, err)
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func TestInitFixtureScorer_ScoresBatch(t *testing.T) {
	loadTestConfig(t)
	path := filepath.Join(t.TempDir(), "leads.json")
	require.NoError(t, os.WriteFile(path, []byte(leadsFixture), 0o600))

	env, err := initFixtureScorer(path)
	require.NoError(t, err)
	defer env.Close()
	assert.Nil(t, env.Store)

	ctx := context.Background()
	ids, err := env.Ledger.ListLeadIDs(ctx, ledger.ListOptions{EnrichedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"hot", "bad"}, ids)

	report := env.Orchestrator.ScoreBatch(ctx, ids, orchestrator.BatchOptions{ContinueOnError: true})
	assert.Empty(t, report.RunID)
	assert.Equal(t, 1, report.Summary.Succeeded)
	assert.Equal(t, 1, report.Summary.Failed)
	assert.Equal(t, 1, report.Summary.Distribution[model.TierHot])
	require.Len(t, report.Errors, 1)
	assert.Equal(t, orchestrator.CauseValidation, report.Errors[0].Cause)

	assert.Error(t, batchExit(ctx, report))
	assert.Equal(t, exitGeneral, exitCode(batchExit(ctx, report)))
}

func TestInitFixtureScorer_MissingFile(t *testing.T) {
	loadTestConfig(t)
	_, err := initFixtureScorer(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestBatchExit(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	ctx := context.Background()

	tests := []struct {
		name    string
		ctx     context.Context
		summary model.RunSummary
		want    int
	}{
		{"clean", ctx, model.RunSummary{Total: 2, Succeeded: 2}, exitOK},
		{"failed", ctx, model.RunSummary{Total: 2, Succeeded: 1, Failed: 1}, exitGeneral},
		{"breaker", ctx, model.RunSummary{Total: 3, Failed: 1, BreakerBlocked: 1, Aborted: true}, exitBreakerOpen},
		{"interrupted", cancelled, model.RunSummary{Total: 3, Failed: 1, BreakerBlocked: 1}, exitInterrupted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := batchExit(tt.ctx, &orchestrator.BatchReport{Summary: tt.summary})
			assert.Equal(t, tt.want, exitCode(err))
		})
	}
}

func TestRunScore_RequiresTarget(t *testing.T) {
	scoreCmd.SetContext(context.Background())
	t.Cleanup(func() {
		_ = scoreCmd.Flags().Set("all", "false")
		_ = scoreCmd.Flags().Set("format", "table")
	})

	err := runScore(scoreCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--id or --all")

	require.NoError(t, scoreCmd.Flags().Set("all", "true"))
	require.NoError(t, scoreCmd.Flags().Set("format", "xml"))
	err = runScore(scoreCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

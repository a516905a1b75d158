package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/lead-scorer/internal/model"
)

func sampleRuns() []model.ScoringRun {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	return []model.ScoringRun{
		{
			ID:     "abc12345-6789-0000-0000-000000000000",
			Status: model.RunStatusComplete,
			Summary: &model.RunSummary{
				Total: 10, Succeeded: 8, Failed: 2, TimedOut: 1,
				Distribution: map[model.PriorityTier]int{model.TierHot: 3, model.TierWarm: 5},
				DurationMs:   2000,
			},
			CreatedAt: now,
		},
		{
			ID:     "def12345-6789-0000-0000-000000000000",
			Status: model.RunStatusAborted,
			Summary: &model.RunSummary{
				Total: 4, Succeeded: 1, Failed: 1, BreakerBlocked: 1, Aborted: true,
				Distribution: map[model.PriorityTier]int{model.TierHot: 1},
				DurationMs:   1000,
			},
			CreatedAt: now.Add(-time.Hour),
		},
		{
			ID:        "ghi12345",
			Status:    model.RunStatusRunning,
			CreatedAt: now.Add(-2 * time.Hour),
		},
	}
}

func TestFormatRunsList(t *testing.T) {
	var buf bytes.Buffer
	formatRunsList(&buf, sampleRuns())

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "abc12345")
	assert.NotContains(t, out, "abc12345-6789")
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "aborted")
	assert.Contains(t, out, "2025-06-15 10:30")
	assert.Contains(t, out, "2s")
}

func TestComputeRunStats(t *testing.T) {
	s := computeRunStats(sampleRuns())

	assert.Equal(t, 3, s.Runs)
	assert.Equal(t, 1, s.Complete)
	assert.Equal(t, 1, s.Aborted)
	assert.Equal(t, 1, s.Running)
	assert.Equal(t, 14, s.Leads)
	assert.Equal(t, 9, s.Succeeded)
	assert.Equal(t, 3, s.Failed)
	assert.Equal(t, 1, s.TimedOut)
	assert.Equal(t, 4, s.Distribution[model.TierHot])
	assert.Equal(t, 5, s.Distribution[model.TierWarm])
	assert.InDelta(t, 1500.0, s.AvgDurMs, 0.001)
}

func TestComputeRunStats_Empty(t *testing.T) {
	s := computeRunStats(nil)
	assert.Zero(t, s.Runs)
	assert.Zero(t, s.AvgDurMs)
}

func TestFormatRunStats(t *testing.T) {
	var buf bytes.Buffer
	formatRunStats(&buf, computeRunStats(sampleRuns()))

	out := buf.String()
	assert.Contains(t, out, "Total runs:")
	assert.Contains(t, out, "Hot:")
	assert.Contains(t, out, "Warm:")
	assert.NotContains(t, out, "Cold:")
	assert.Contains(t, out, "1500ms")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}

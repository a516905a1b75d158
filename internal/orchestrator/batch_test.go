package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-scorer/internal/model"
	"github.com/sells-group/lead-scorer/internal/resilience"
	"github.com/sells-group/lead-scorer/internal/store"
)

func TestScoreBatch_AllSucceed(t *testing.T) {
	o, inner := newTestOrchestrator(t)
	for _, id := range []string{"a", "b", "c"} {
		expectHotLead(inner, id)
	}

	report := o.ScoreBatch(context.Background(), []string{"a", "b", "c"}, BatchOptions{ContinueOnError: true})
	assert.Equal(t, 3, report.Summary.Total)
	assert.Equal(t, 3, report.Summary.Succeeded)
	assert.Zero(t, report.Summary.Failed)
	assert.False(t, report.Summary.Aborted)
	assert.Len(t, report.Results, 3)
	assert.Equal(t, 3, report.Summary.Distribution[model.TierHot])
	assert.Equal(t, model.RunStatusComplete, report.Status())
}

func TestScoreBatch_ContinueOnError(t *testing.T) {
	o, inner := newTestOrchestrator(t)
	expectHotLead(inner, "a")
	inner.On("FetchBaseline", mock.Anything, "b").Return(nil, errors.New("bad request")).Once()
	expectHotLead(inner, "c")

	report := o.ScoreBatch(context.Background(), []string{"a", "b", "c"}, BatchOptions{ContinueOnError: true})
	assert.Equal(t, 2, report.Summary.Succeeded)
	assert.Equal(t, 1, report.Summary.Failed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "b", report.Errors[0].LeadID)
	assert.Equal(t, CauseGeneral, report.Errors[0].Cause)
}

func TestScoreBatch_StopOnFirstError(t *testing.T) {
	o, inner := newTestOrchestrator(t)
	inner.On("FetchBaseline", mock.Anything, "a").Return(nil, errors.New("bad request")).Once()

	report := o.ScoreBatch(context.Background(), []string{"a", "b"}, BatchOptions{})
	assert.Equal(t, 2, report.Summary.Total)
	assert.Equal(t, 1, report.Summary.Failed)
	assert.Zero(t, report.Summary.Succeeded)
	assert.False(t, report.Summary.Aborted)
	inner.AssertNotCalled(t, "FetchBaseline", mock.Anything, "b")
}

func TestScoreBatch_TimeoutCountedAndContinues(t *testing.T) {
	o, inner := newTestOrchestrator(t, WithTimeout(20*time.Millisecond))
	inner.On("FetchBaseline", mock.Anything, "slow").
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded).Once()
	expectHotLead(inner, "fast")

	report := o.ScoreBatch(context.Background(), []string{"slow", "fast"}, BatchOptions{ContinueOnError: true})
	assert.Equal(t, 1, report.Summary.TimedOut)
	assert.Equal(t, 1, report.Summary.Failed)
	assert.Equal(t, 1, report.Summary.Succeeded)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, CauseTimeout, report.Errors[0].Cause)
}

func TestScoreBatch_BreakerOpenAbortsRemainder(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	for range 5 {
		o.breaker.Record(errors.New("ledger down"))
	}

	report := o.ScoreBatch(context.Background(), []string{"a", "b", "c"}, BatchOptions{ContinueOnError: true})
	assert.Equal(t, 3, report.Summary.Total)
	assert.Equal(t, 1, report.Summary.Failed)
	assert.Equal(t, 1, report.Summary.BreakerBlocked)
	assert.True(t, report.Summary.Aborted)
	assert.Equal(t, model.RunStatusAborted, report.Status())
	require.Len(t, report.Errors, 1)
	assert.Equal(t, CauseCircuitBreaker, report.Errors[0].Cause)
}

func TestScoreBatch_BreakerTripsMidBatch(t *testing.T) {
	o, inner := newTestOrchestrator(t)
	ids := []string{"l1", "l2", "l3", "l4", "l5", "l6", "l7"}
	for _, id := range ids[:5] {
		inner.On("FetchBaseline", mock.Anything, id).Return(nil, errors.New("bad request")).Once()
	}

	report := o.ScoreBatch(context.Background(), ids, BatchOptions{ContinueOnError: true})
	assert.Equal(t, 7, report.Summary.Total)
	assert.Equal(t, 6, report.Summary.Failed)
	assert.Equal(t, 1, report.Summary.BreakerBlocked)
	assert.True(t, report.Summary.Aborted)
	assert.Equal(t, "l6", report.Errors[5].LeadID)
	inner.AssertNotCalled(t, "FetchBaseline", mock.Anything, "l7")
}

func TestScoreBatch_CancelledContext(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := o.ScoreBatch(ctx, []string{"a", "b"}, BatchOptions{ContinueOnError: true})
	assert.True(t, report.Summary.Aborted)
	assert.Zero(t, report.Summary.Succeeded+report.Summary.Failed)
}

func TestScoreBatch_RecordsRunAndDLQ(t *testing.T) {
	st := newTestStore(t)
	o, inner := newTestOrchestrator(t, WithStore(st))
	expectHotLead(inner, "a")
	inner.On("FetchBaseline", mock.Anything, "b").Return(nil, errors.New("bad request")).Once()

	report := o.ScoreBatch(context.Background(), []string{"a", "b"}, BatchOptions{ContinueOnError: true})
	require.NotEmpty(t, report.RunID)

	run, err := st.GetRun(context.Background(), report.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.NotNil(t, run.Summary)
	assert.Equal(t, 1, run.Summary.Succeeded)
	assert.Equal(t, 1, run.Summary.Failed)

	entries, err := st.ListDLQ(context.Background(), resilience.DLQFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].LeadID)
	assert.Equal(t, report.RunID, entries[0].RunID)
	assert.Equal(t, resilience.ErrorTypePermanent, entries[0].ErrorType)
}

func TestBatchReport_FirstErrors(t *testing.T) {
	r := &BatchReport{}
	for i := range 8 {
		r.Errors = append(r.Errors, ItemError{LeadID: string(rune('a' + i))})
	}
	first := r.FirstErrors(MaxReportedErrors)
	require.Len(t, first, 5)
	assert.Equal(t, "a", first[0].LeadID)

	short := &BatchReport{Errors: []ItemError{{LeadID: "x"}}}
	assert.Len(t, short.FirstErrors(MaxReportedErrors), 1)
}

func TestRetryDLQ(t *testing.T) {
	st := newTestStore(t)
	o, inner := newTestOrchestrator(t, WithStore(st))
	ctx := context.Background()

	// Enqueue two failures in the past so both are due now.
	o.nowFunc = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	o.enqueueDLQ(ctx, "", "fixed", errors.New("bad request"))
	o.enqueueDLQ(ctx, "", "still-broken", errors.New("bad request"))
	o.nowFunc = time.Now

	expectHotLead(inner, "fixed")
	inner.On("FetchBaseline", mock.Anything, "still-broken").Return(nil, errors.New("bad request")).Once()

	report, err := o.RetryDLQ(ctx, resilience.DLQFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 1, report.Resolved)
	assert.Equal(t, 1, report.Failed)

	entries, err := st.ListDLQ(ctx, resilience.DLQFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "still-broken", entries[0].LeadID)
	assert.Equal(t, 1, entries[0].RetryCount)
	assert.True(t, entries[0].NextRetryAt.After(time.Now()))
}

func TestRetryDLQ_BreakerOpenKeepsRetryBudget(t *testing.T) {
	st := newTestStore(t)
	o, inner := newTestOrchestrator(t, WithStore(st))
	ctx := context.Background()

	o.nowFunc = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	o.enqueueDLQ(ctx, "", "lead-1", errors.New("bad request"))
	o.enqueueDLQ(ctx, "", "lead-2", errors.New("bad request"))
	o.nowFunc = time.Now

	for range 5 {
		o.breaker.Record(errors.New("ledger down"))
	}

	report, err := o.RetryDLQ(ctx, resilience.DLQFilter{})
	require.NoError(t, err)
	assert.True(t, report.Aborted)
	assert.Zero(t, report.Attempted)
	assert.Zero(t, report.Failed)
	inner.AssertNotCalled(t, "FetchBaseline", mock.Anything, mock.Anything)

	entries, err := st.ListDLQ(ctx, resilience.DLQFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Zero(t, e.RetryCount, e.LeadID)
	}
}

func TestRetryDLQ_NoStore(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	_, err := o.RetryDLQ(context.Background(), resilience.DLQFilter{})
	require.Error(t, err)
}

func TestScoreBatch_SuccessClearsDLQ(t *testing.T) {
	st := newTestStore(t)
	o, inner := newTestOrchestrator(t, WithStore(st))
	ctx := context.Background()
	require.NoError(t, st.EnqueueDLQ(ctx, resilience.DLQEntry{
		LeadID: "a", Error: "old", ErrorType: resilience.ErrorTypeTransient,
		MaxRetries: 3, NextRetryAt: time.Now(),
	}))
	expectHotLead(inner, "a")

	o.ScoreBatch(ctx, []string{"a"}, BatchOptions{})

	n, err := st.CountDLQ(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	runs, err := st.ListRuns(ctx, store.RunFilter{})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

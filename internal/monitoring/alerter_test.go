package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-scorer/internal/config"
)

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.10,
		DLQDepthThreshold:    50,
	})

	snap := &MetricsSnapshot{
		LeadsSucceeded: 95,
		LeadsFailed:    5,
		LeadFailRate:   0.05,
		DLQDepth:       5,
		BreakerState:   "closed",
		LookbackHours:  24,
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_LeadFailureRate(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})

	snap := &MetricsSnapshot{
		LeadsSucceeded: 12,
		LeadsFailed:    8,
		LeadFailRate:   0.4,
		LookbackHours:  24,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertLeadFailureRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "40.0%")
}

func TestAlerter_Evaluate_MinimumLeadsRequired(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})

	// Only 3 finished leads, below the minimum for a failure rate alert.
	snap := &MetricsSnapshot{
		LeadsSucceeded: 1,
		LeadsFailed:    2,
		LeadFailRate:   0.666,
		LookbackHours:  24,
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_BreakerOpen(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})

	alerts := a.Evaluate(&MetricsSnapshot{BreakerState: "open", BreakerFailures: 5})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertBreakerOpen, alerts[0].Type)
	assert.Equal(t, "critical", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "5 consecutive failures")
}

func TestAlerter_Evaluate_DLQDepth(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{DLQDepthThreshold: 10})

	alerts := a.Evaluate(&MetricsSnapshot{DLQDepth: 11})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertDLQDepth, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "11 leads")
}

func TestAlerter_Evaluate_ZeroDLQThreshold(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{DLQDepthThreshold: 0}) // disabled

	assert.Empty(t, a.Evaluate(&MetricsSnapshot{DLQDepth: 999}))
}

func TestAlerter_Evaluate_MultipleAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.10,
		DLQDepthThreshold:    5,
	})

	snap := &MetricsSnapshot{
		LeadsSucceeded:  10,
		LeadsFailed:     10,
		LeadFailRate:    0.5,
		DLQDepth:        10,
		BreakerState:    "open",
		BreakerFailures: 5,
		LookbackHours:   24,
	}

	alerts := a.Evaluate(snap)
	assert.Len(t, alerts, 3)

	types := make(map[AlertType]bool)
	for _, a := range alerts {
		types[a.Type] = true
	}
	assert.True(t, types[AlertLeadFailureRate])
	assert.True(t, types[AlertBreakerOpen])
	assert.True(t, types[AlertDLQDepth])
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		err := json.NewDecoder(r.Body).Decode(&alert)
		assert.NoError(t, err)
		assert.NotEmpty(t, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	alerts := []Alert{
		{Type: AlertLeadFailureRate, Severity: "high", Message: "test alert 1"},
		{Type: AlertBreakerOpen, Severity: "critical", Message: "test alert 2"},
	}

	sent := a.SendAlerts(context.Background(), alerts)
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_EmptyURL(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{WebhookURL: ""})

	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertLeadFailureRate, Message: "test"},
	})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_EmptyAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{WebhookURL: "http://example.com"})

	assert.Equal(t, 0, a.SendAlerts(context.Background(), nil))
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertBreakerOpen, Message: "test"}})
	assert.Equal(t, 0, sent)
}

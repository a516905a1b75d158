package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-scorer/internal/config"
	"github.com/sells-group/lead-scorer/internal/resilience"
)

// minLeadsForRate is the number of finished leads needed before the failure
// rate is considered meaningful.
const minLeadsForRate = 5

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertLeadFailureRate AlertType = "lead_failure_rate"
	AlertBreakerOpen     AlertType = "breaker_open"
	AlertDLQDepth        AlertType = "dlq_depth"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	finished := snap.LeadsSucceeded + snap.LeadsFailed
	if finished >= minLeadsForRate && snap.LeadFailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertLeadFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Lead scoring failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d scored in last %dh)",
				snap.LeadFailRate*100, a.cfg.FailureRateThreshold*100,
				snap.LeadsFailed, finished, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate": snap.LeadFailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.LeadsFailed,
				"timed_out":    snap.LeadsTimedOut,
				"finished":     finished,
			},
			Timestamp: now,
		})
	}

	if snap.BreakerState == resilience.CircuitOpen.String() {
		alerts = append(alerts, Alert{
			Type:     AlertBreakerOpen,
			Severity: "critical",
			Message: fmt.Sprintf(
				"Ledger circuit breaker is open after %d consecutive failures; scoring is paused",
				snap.BreakerFailures,
			),
			Details: map[string]any{
				"consecutive_failures": snap.BreakerFailures,
			},
			Timestamp: now,
		})
	}

	if a.cfg.DLQDepthThreshold > 0 && snap.DLQDepth > a.cfg.DLQDepthThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertDLQDepth,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%d leads waiting in the dead letter queue (threshold %d)",
				snap.DLQDepth, a.cfg.DLQDepthThreshold,
			),
			Details: map[string]any{
				"dlq_depth": snap.DLQDepth,
				"threshold": a.cfg.DLQDepthThreshold,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}

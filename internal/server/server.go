// Package server exposes the enrichment webhook and breaker controls over
// HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/lead-scorer/internal/model"
	"github.com/sells-group/lead-scorer/internal/monitoring"
	"github.com/sells-group/lead-scorer/internal/resilience"
)

const (
	StatusScored  = "scored"
	StatusSkipped = "skipped"
)

// Scorer is the part of the orchestrator the server drives.
type Scorer interface {
	TriggerAfterEnrichment(ctx context.Context, leadID string) *model.ScoringResult
	BreakerStatus() resilience.BreakerStatus
	ResetBreaker(ctx context.Context)
}

// StatusSource produces the monitoring snapshot served on /status.
type StatusSource interface {
	Collect(ctx context.Context, lookbackHours int) (*monitoring.MetricsSnapshot, error)
}

// Options configures a Server.
type Options struct {
	// AutoTrigger enables scoring from the enrichment webhook. When false
	// deliveries are acknowledged and skipped.
	AutoTrigger   bool
	CORSOrigins   []string
	LookbackHours int
}

// WebhookResponse is the body returned for every accepted delivery.
type WebhookResponse struct {
	Status string               `json:"status"`
	LeadID string               `json:"lead_id"`
	Reason string               `json:"reason,omitempty"`
	Result *model.ScoringResult `json:"result,omitempty"`
}

// Server serves the webhook and operator endpoints. Concurrent deliveries
// for the same lead share one scoring call.
type Server struct {
	scorer Scorer
	status StatusSource
	opts   Options
	group  singleflight.Group
}

// New creates a server. status may be nil, in which case /status
// responds 503.
func New(scorer Scorer, status StatusSource, opts Options) *Server {
	if opts.LookbackHours <= 0 {
		opts.LookbackHours = 24
	}
	return &Server{scorer: scorer, status: status, opts: opts}
}

// Routes returns the router with all endpoints mounted.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	if len(s.opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Post("/webhook/enriched", s.handleEnriched)
	r.Get("/breaker", s.handleBreaker)
	r.Post("/breaker/reset", s.handleBreakerReset)
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	zap.L().Info("starting server", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEnriched(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LeadID string `json:"lead_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	leadID := strings.TrimSpace(req.LeadID)
	if leadID == "" {
		writeError(w, http.StatusBadRequest, "lead_id is required")
		return
	}

	if !s.opts.AutoTrigger {
		writeJSON(w, http.StatusOK, WebhookResponse{Status: StatusSkipped, LeadID: leadID, Reason: "auto-trigger disabled"})
		return
	}

	// Scoring outlives a dropped webhook connection.
	ctx := context.WithoutCancel(r.Context())
	v, _, shared := s.group.Do(leadID, func() (any, error) {
		return s.scorer.TriggerAfterEnrichment(ctx, leadID), nil
	})
	if shared {
		zap.L().Debug("server: collapsed duplicate delivery", zap.String("lead_id", leadID))
	}

	resp := WebhookResponse{Status: StatusSkipped, LeadID: leadID, Reason: "scoring failed"}
	if result, _ := v.(*model.ScoringResult); result != nil {
		resp = WebhookResponse{Status: StatusScored, LeadID: leadID, Result: result}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBreaker(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.scorer.BreakerStatus())
}

func (s *Server) handleBreakerReset(w http.ResponseWriter, r *http.Request) {
	s.scorer.ResetBreaker(r.Context())
	writeJSON(w, http.StatusOK, s.scorer.BreakerStatus())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		writeError(w, http.StatusServiceUnavailable, "monitoring unavailable")
		return
	}
	snap, err := s.status.Collect(r.Context(), s.opts.LookbackHours)
	if err != nil {
		zap.L().Error("server: collect status", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to collect status")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-scorer/internal/ledger"
	"github.com/sells-group/lead-scorer/internal/orchestrator"
	"github.com/sells-group/lead-scorer/internal/resilience"
	"github.com/sells-group/lead-scorer/internal/store"
	"github.com/sells-group/lead-scorer/pkg/notion"
)

// scorerEnv holds the store, the guarded ledger and the orchestrator
// needed by the score, dlq retry and serve commands.
type scorerEnv struct {
	Store        store.Store
	Ledger       *ledger.Guarded
	Orchestrator *orchestrator.Orchestrator
}

// Close releases resources held by the scorer environment.
func (se *scorerEnv) Close() {
	if se.Store != nil {
		_ = se.Store.Close()
	}
}

// initScorer opens the store, restores the persisted ledger breaker and
// builds the orchestrator over the Notion ledger. Callers should defer
// env.Close().
func initScorer(ctx context.Context, mode string) (*scorerEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	breaker, err := restoreBreaker(ctx, st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	client := notion.NewClient(cfg.Notion.Token, notion.WithRateLimit(cfg.Notion.RateLimit))
	guarded := ledger.NewGuarded(
		ledger.NewNotionLedger(client, cfg.Notion.LeadDB),
		breaker,
		cfg.Scoring.RetryPolicy(),
	)

	orch := orchestrator.New(guarded,
		orchestrator.WithStore(st),
		orchestrator.WithTimeout(cfg.Scoring.Timeout()),
		orchestrator.WithDLQMaxRetries(cfg.Scoring.DLQMaxRetries),
	)

	return &scorerEnv{Store: st, Ledger: guarded, Orchestrator: orch}, nil
}

// initFixtureScorer builds an orchestrator over a JSON fixture for dry
// runs. Nothing is persisted: no run history, no DLQ and a fresh breaker,
// so the Notion ledger's breaker state is left untouched.
func initFixtureScorer(path string) (*scorerEnv, error) {
	fl, err := ledger.LoadFileLedger(path)
	if err != nil {
		return nil, err
	}
	guarded := ledger.NewGuarded(fl,
		resilience.NewCircuitBreaker(cfg.Scoring.BreakerConfig()),
		cfg.Scoring.RetryPolicy(),
	)
	orch := orchestrator.New(guarded, orchestrator.WithTimeout(cfg.Scoring.Timeout()))

	zap.L().Info("scoring from fixture", zap.String("path", path))
	return &scorerEnv{Ledger: guarded, Orchestrator: orch}, nil
}

// restoreBreaker builds the ledger breaker from config and loads its last
// persisted state, so an open breaker survives between invocations.
func restoreBreaker(ctx context.Context, st store.Store) (*resilience.CircuitBreaker, error) {
	bcfg := cfg.Scoring.BreakerConfig()
	bcfg.OnStateChange = func(from, to resilience.CircuitState) {
		zap.L().Warn("ledger breaker state change",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
	breaker := resilience.NewCircuitBreaker(bcfg)

	snap, err := st.LoadBreaker(ctx, store.LedgerBreaker)
	if err != nil {
		return nil, eris.Wrap(err, "load breaker state")
	}
	if snap != nil {
		breaker.Restore(*snap)
		zap.L().Debug("restored ledger breaker",
			zap.String("state", snap.State.String()),
			zap.Int("failures", snap.Failures),
		)
	}
	return breaker, nil
}

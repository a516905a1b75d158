package ledger

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-scorer/internal/model"
	"github.com/sells-group/lead-scorer/internal/scoring"
)

// FileLedger implements Ledger over a JSON fixture of scoring inputs. It is
// used for offline dry runs: results are kept in memory and never written
// back to the fixture.
type FileLedger struct {
	order  []string
	leads  map[string]model.ScoringInput
	mu       sync.Mutex
	scores   map[string]*model.ScoringResult
	statuses map[string]model.ScoringStatus
}

// LoadFileLedger reads a JSON array of model.ScoringInput from path.
func LoadFileLedger(path string) (*FileLedger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: read fixture")
	}

	var inputs []model.ScoringInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, eris.Wrap(err, "ledger: unmarshal fixture")
	}
	return NewFileLedger(inputs)
}

// NewFileLedger indexes inputs by lead id. Ids must be non-empty and unique.
func NewFileLedger(inputs []model.ScoringInput) (*FileLedger, error) {
	l := &FileLedger{
		leads:  make(map[string]model.ScoringInput, len(inputs)),
		scores:   make(map[string]*model.ScoringResult),
		statuses: make(map[string]model.ScoringStatus),
	}
	for i, in := range inputs {
		if in.LeadID == "" {
			return nil, eris.Errorf("ledger: fixture entry %d has no lead_id", i)
		}
		if _, dup := l.leads[in.LeadID]; dup {
			return nil, eris.Errorf("ledger: duplicate lead_id %q in fixture", in.LeadID)
		}
		l.leads[in.LeadID] = in
		l.order = append(l.order, in.LeadID)
	}

	zap.L().Debug("ledger: loaded fixture", zap.Int("leads", len(l.order)))
	return l, nil
}

func (l *FileLedger) FetchBaseline(_ context.Context, leadID string) (*model.BaselineFacts, error) {
	in, ok := l.leads[leadID]
	if !ok {
		return nil, eris.Wrap(scoring.ErrLeadNotFound, leadID)
	}
	b := in.Baseline
	return &b, nil
}

func (l *FileLedger) FetchEnrichment(_ context.Context, leadID string) (*model.EnrichmentFacts, error) {
	in, ok := l.leads[leadID]
	if !ok {
		return nil, eris.Wrap(scoring.ErrLeadNotFound, leadID)
	}
	e := in.Enrichment
	return &e, nil
}

func (l *FileLedger) WriteScore(_ context.Context, leadID string, result *model.ScoringResult) error {
	if result == nil {
		return eris.New("ledger: nil scoring result")
	}
	if _, ok := l.leads[leadID]; !ok {
		return eris.Wrap(scoring.ErrLeadNotFound, leadID)
	}
	l.mu.Lock()
	l.scores[leadID] = result
	l.statuses[leadID] = result.Status
	l.mu.Unlock()
	return nil
}

func (l *FileLedger) WriteStatus(_ context.Context, leadID string, status model.ScoringStatus) error {
	if _, ok := l.leads[leadID]; !ok {
		return eris.Wrap(scoring.ErrLeadNotFound, leadID)
	}
	l.mu.Lock()
	l.statuses[leadID] = status
	l.mu.Unlock()
	return nil
}

func (l *FileLedger) ListLeadIDs(_ context.Context, opts ListOptions) ([]string, error) {
	var ids []string
	for _, id := range l.order {
		if opts.EnrichedOnly && !enriched(l.leads[id].Enrichment.EnrichmentStatus) {
			continue
		}
		ids = append(ids, id)
		if opts.Limit > 0 && len(ids) >= opts.Limit {
			break
		}
	}
	return ids, nil
}

// Score returns the last result written for leadID.
func (l *FileLedger) Score(leadID string) (*model.ScoringResult, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.scores[leadID]
	return r, ok
}

// Status returns the last scoring status written for leadID.
func (l *FileLedger) Status(leadID string) (model.ScoringStatus, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.statuses[leadID]
	return s, ok
}

func enriched(status string) bool {
	return model.SameLabel(status, model.EnrichmentCompleted) || model.SameLabel(status, model.EnrichmentPartial)
}

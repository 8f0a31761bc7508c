package evaluations

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process catalogue. Seed methods stand in for the
// dashboard that owns catalogue CRUD in production.
type Memory struct {
	mu          sync.RWMutex
	searches    []SavedSearch
	evaluations []Evaluation
	alerted     map[string]time.Time
}

// NewMemory creates an empty in-process catalogue.
func NewMemory() *Memory {
	return &Memory{alerted: make(map[string]time.Time)}
}

// AddSavedSearch seeds saved searches.
func (m *Memory) AddSavedSearch(searches ...SavedSearch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range searches {
		m.searches = append(m.searches, cloneSearch(s))
	}
}

// AddEvaluation seeds standalone evaluations.
func (m *Memory) AddEvaluation(evals ...Evaluation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluations = append(m.evaluations, evals...)
}

// LastAlerted returns when the alert was last marked, if ever.
func (m *Memory) LastAlerted(alertID string) (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	at, ok := m.alerted[alertID]
	return at, ok
}

func (m *Memory) SavedSearches(_ context.Context, ownerID string) ([]SavedSearch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []SavedSearch
	for _, s := range m.searches {
		if s.OwnerID != ownerID {
			continue
		}
		c := cloneSearch(s)
		for i := range c.Alerts {
			if at, ok := m.alerted[c.Alerts[i].ID]; ok {
				c.Alerts[i].LastAlerted = &at
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *Memory) EvaluationsByOwner(_ context.Context, ownerID string) ([]Evaluation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Evaluation
	for _, e := range m.evaluations {
		if e.Template.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) CreateEvaluations(_ context.Context, ownerID string, templates []Template) ([]Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Evaluation, 0, len(templates))
	now := time.Now()
	for _, t := range templates {
		t.ID = uuid.NewString()
		t.OwnerID = ownerID
		t.CreatedAt = now
		out = append(out, Evaluation{
			ID:         uuid.NewString(),
			TemplateID: t.ID,
			Template:   t,
			Enabled:    true,
		})
	}
	m.evaluations = append(m.evaluations, out...)
	return out, nil
}

func (m *Memory) MarkAlerted(_ context.Context, alertID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.searches {
		if slices.ContainsFunc(s.Alerts, func(a Alert) bool { return a.ID == alertID }) {
			m.alerted[alertID] = at
			return nil
		}
	}
	return ErrNotFound
}

func cloneSearch(s SavedSearch) SavedSearch {
	s.AgentIDs = slices.Clone(s.AgentIDs)
	metadata := make(Filter, len(s.Metadata))
	for k, v := range s.Metadata {
		metadata[k] = v
	}
	s.Metadata = metadata

	groups := make([]Group, len(s.Groups))
	for i, g := range s.Groups {
		g.Evaluations = slices.Clone(g.Evaluations)
		groups[i] = g
	}
	s.Groups = groups

	alerts := make([]Alert, len(s.Alerts))
	for i, a := range s.Alerts {
		a.Details = json.RawMessage(slices.Clone([]byte(a.Details)))
		alerts[i] = a
	}
	s.Alerts = alerts
	return s
}

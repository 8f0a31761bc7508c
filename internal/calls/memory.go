package calls

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/vigil/pkg/pagination"
	"github.com/JaimeStill/vigil/pkg/query"
)

type memory struct {
	mu      sync.RWMutex
	calls   map[string]*Call
	deleted map[string]bool
	now     func() time.Time
}

// NewMemory creates an in-process System used by tests and local runs
// without a database.
func NewMemory() System {
	return &memory{
		calls:   make(map[string]*Call),
		deleted: make(map[string]bool),
		now:     time.Now,
	}
}

func (m *memory) Upsert(_ context.Context, call *Call) (*Call, error) {
	if call.ID == "" || call.OwnerID == "" {
		return nil, &PersistenceError{CallID: call.ID, Err: ErrInvalid}
	}

	c := call.Clone()
	c.normalize()
	for i := range c.Messages {
		if c.Messages[i].ID == "" {
			c.Messages[i].ID = uuid.NewString()
		}
	}
	for i := range c.EvaluationResults {
		if c.EvaluationResults[i].ID == "" {
			c.EvaluationResults[i].ID = uuid.NewString()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if existing, ok := m.calls[c.ID]; ok {
		c.CustomerCallID = existing.CustomerCallID
		c.OwnerID = existing.OwnerID
		if c.AgentID == "" {
			c.AgentID = existing.AgentID
		}
		c.CreatedAt = existing.CreatedAt
	} else if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	m.calls[c.ID] = c
	return c.Clone(), nil
}

func (m *memory) Register(_ context.Context, call *Call) error {
	if call.ID == "" || call.OwnerID == "" {
		return &PersistenceError{CallID: call.ID, Err: ErrInvalid}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.calls[call.ID]; ok {
		return nil
	}

	c := queuedCall(call)
	now := m.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	m.calls[c.ID] = c
	return nil
}

func (m *memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.calls[id]; !ok || m.deleted[id] {
		return ErrNotFound
	}
	m.deleted[id] = true
	return nil
}

func (m *memory) Find(_ context.Context, id string) (*Call, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.calls[id]
	if !ok || m.deleted[id] {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

func (m *memory) MarkFailed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.calls[id]
	if !ok || c.Status == StatusCompleted {
		return nil
	}
	c.Status = StatusFailed
	c.UpdatedAt = m.now()
	return nil
}

// memorySort orders listed calls for the fields the memory adapter can sort on.
var memorySort = map[string]func(a, b *Call) int{
	"createdAt": func(a, b *Call) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"updatedAt": func(a, b *Call) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
	"duration":  func(a, b *Call) int { return cmp.Compare(a.Duration, b.Duration) },
	"status":    func(a, b *Call) int { return strings.Compare(string(a.Status), string(b.Status)) },
}

func (m *memory) List(_ context.Context, ownerID string, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Call], error) {
	page.Normalize(pagination.Defaults())

	m.mu.RLock()
	matched := make([]*Call, 0, len(m.calls))
	for _, c := range m.calls {
		if c.OwnerID != ownerID || c.CustomerCallID == "" || m.deleted[c.ID] {
			continue
		}
		if filters.AgentID != "" && c.AgentID != filters.AgentID {
			continue
		}
		if filters.Status != "" && c.Status != filters.Status {
			continue
		}
		if page.Search != nil && !containsFold(*page.Search, c.ID, c.CustomerCallID) {
			continue
		}
		matched = append(matched, c)
	}
	m.mu.RUnlock()

	order := page.Sort
	if len(order) == 0 {
		order = []query.SortField{defaultSort}
	}
	slices.SortFunc(matched, func(a, b *Call) int {
		for _, f := range order {
			less, ok := memorySort[f.Field]
			if !ok {
				continue
			}
			n := less(a, b)
			if f.Descending {
				n = -n
			}
			if n != 0 {
				return n
			}
		}
		return strings.Compare(a.ID, b.ID)
	})

	start := min(page.Offset(), len(matched))
	end := min(start+page.PageSize, len(matched))

	out := make([]Call, 0, end-start)
	for _, c := range matched[start:end] {
		summary := *c.Clone()
		summary.Messages = nil
		summary.LatencyBlocks = nil
		summary.Interruptions = nil
		summary.EvaluationResults = nil
		out = append(out, summary)
	}

	result := pagination.NewPageResult(out, len(matched), page.Page, page.PageSize)
	return &result, nil
}

func containsFold(needle string, values ...string) bool {
	needle = strings.ToLower(needle)
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

package queue

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type entry struct {
	Message
	visibleAt    time.Time
	lastError    string
	deadLettered bool
}

// Memory is an in-process Queue with the same delivery semantics as the
// Postgres adapter.
type Memory struct {
	mu      sync.Mutex
	nextID  int64
	entries []*entry
	now     func() time.Time
}

// NewMemory creates an empty in-process queue.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (m *Memory) Enqueue(_ context.Context, body []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	now := m.now()
	m.entries = append(m.entries, &entry{
		Message:   Message{ID: m.nextID, Body: slices.Clone(body), EnqueuedAt: now},
		visibleAt: now,
	})
	return m.nextID, nil
}

func (m *Memory) Receive(_ context.Context, max int, visibility time.Duration) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var out []Message
	for _, e := range m.entries {
		if len(out) >= max {
			break
		}
		if e.deadLettered || e.visibleAt.After(now) {
			continue
		}
		e.Deliveries++
		e.Receipt = uuid.NewString()
		e.visibleAt = now.Add(visibility)

		msg := e.Message
		msg.Body = slices.Clone(e.Body)
		out = append(out, msg)
	}
	return out, nil
}

func (m *Memory) Delete(_ context.Context, receipt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, e := range m.entries {
		if e.Receipt == receipt && receipt != "" {
			m.entries = slices.Delete(m.entries, i, i+1)
			return nil
		}
	}
	return ErrReceiptNotFound
}

func (m *Memory) Release(_ context.Context, receipt string, delay time.Duration, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.find(receipt)
	if e == nil {
		return ErrReceiptNotFound
	}
	e.Receipt = ""
	e.visibleAt = m.now().Add(delay)
	e.lastError = errorText(cause)
	return nil
}

func (m *Memory) DeadLetter(_ context.Context, receipt, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.find(receipt)
	if e == nil {
		return ErrReceiptNotFound
	}
	e.Receipt = ""
	e.deadLettered = true
	e.lastError = reason
	return nil
}

// Pending counts messages that are neither acknowledged nor dead-lettered.
func (m *Memory) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, e := range m.entries {
		if !e.deadLettered {
			n++
		}
	}
	return n
}

// DeadLettered returns the last error of each dead-lettered message by id.
func (m *Memory) DeadLettered() map[int64]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[int64]string)
	for _, e := range m.entries {
		if e.deadLettered {
			out[e.ID] = e.lastError
		}
	}
	return out
}

func (m *Memory) find(receipt string) *entry {
	if receipt == "" {
		return nil
	}
	for _, e := range m.entries {
		if e.Receipt == receipt {
			return e
		}
	}
	return nil
}

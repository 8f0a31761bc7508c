package workitem

import (
	"context"
	"fmt"

	"github.com/JaimeStill/vigil/internal/calls"
)

// Enqueuer appends message bodies to the work queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, body []byte) (int64, error)
}

// Registrar records accepted work items as queued calls.
type Registrar interface {
	Register(ctx context.Context, call *calls.Call) error
}

// Submit applies producer defaults, validates item, registers the queued
// call, and enqueues the item. It returns the queue message id. A failed
// enqueue leaves the queued call in place; resubmitting the same call id
// is safe.
func Submit(ctx context.Context, q Enqueuer, reg Registrar, item CallWorkItem) (int64, error) {
	item = item.WithDefaults()
	if err := item.Validate(); err != nil {
		return 0, err
	}

	body, err := Encode(&item)
	if err != nil {
		return 0, fmt.Errorf("encode work item %s: %w", item.CallID, err)
	}

	if err := reg.Register(ctx, item.QueuedCall()); err != nil {
		return 0, fmt.Errorf("register call %s: %w", item.CallID, err)
	}

	id, err := q.Enqueue(ctx, body)
	if err != nil {
		return 0, fmt.Errorf("enqueue work item %s: %w", item.CallID, err)
	}
	return id, nil
}

// Package queue is the durable work queue between producers and the
// consumer. Delivery is at-least-once: a received message stays hidden
// for a visibility timeout and reappears unless it is deleted, released,
// or dead-lettered through its receipt.
package queue

import (
	"context"
	"errors"
	"time"
)

// ErrReceiptNotFound is returned when a receipt no longer identifies a
// claimed message, typically because its visibility timeout expired and
// another consumer received it.
var ErrReceiptNotFound = errors.New("queue receipt not found")

// Message is a received queue entry.
type Message struct {
	ID         int64
	Receipt    string
	Body       []byte
	Deliveries int
	EnqueuedAt time.Time
}

// Queue is the consumer-facing port.
type Queue interface {
	// Enqueue appends a message and returns its id.
	Enqueue(ctx context.Context, body []byte) (int64, error)
	// Receive claims up to max visible messages, hiding each for
	// visibility and incrementing its delivery count.
	Receive(ctx context.Context, max int, visibility time.Duration) ([]Message, error)
	// Delete acknowledges a message.
	Delete(ctx context.Context, receipt string) error
	// Release returns a message to the queue after delay, recording cause.
	Release(ctx context.Context, receipt string, delay time.Duration, cause error) error
	// DeadLetter parks a message permanently with reason.
	DeadLetter(ctx context.Context, receipt, reason string) error
}

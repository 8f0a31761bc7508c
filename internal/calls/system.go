package calls

import (
	"context"

	"github.com/JaimeStill/vigil/pkg/pagination"
)

// System is the storage port for Call records. Submission registers the
// queued row and the pipeline completes or fails it.
type System interface {
	// Register records a newly accepted work item as a queued call. A call
	// that already exists is left untouched, so a resubmission never moves
	// a completed or failed call back to queued.
	Register(ctx context.Context, call *Call) error
	// Upsert creates or replaces the call keyed by ID. Scalar fields are
	// overwritten, isRead is reset, and every child collection is replaced
	// wholesale inside one transaction. Re-running with the same input
	// yields the same single record.
	Upsert(ctx context.Context, call *Call) (*Call, error)
	// Find returns the call with its child collections.
	Find(ctx context.Context, id string) (*Call, error)
	// List returns one page of an owner's calls without child collections,
	// newest first unless the page requests another order. Search matches
	// the call id or customer call id.
	List(ctx context.Context, ownerID string, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Call], error)
	// MarkFailed moves an existing, not yet completed call to failed.
	// It is a no-op when the call does not exist or already completed.
	MarkFailed(ctx context.Context, id string) error
	// Delete hides a call from Find and List. The row and its children are
	// kept. Returns ErrNotFound when no visible call has the id.
	Delete(ctx context.Context, id string) error
}

package evaluations

import (
	"context"
	"time"
)

// System is the storage port for the evaluation catalogue.
type System interface {
	// SavedSearches returns the owner's saved searches with their groups,
	// the groups' enabled evaluations, and the search's alerts.
	SavedSearches(ctx context.Context, ownerID string) ([]SavedSearch, error)
	// EvaluationsByOwner returns every evaluation the owner has, with its
	// template.
	EvaluationsByOwner(ctx context.Context, ownerID string) ([]Evaluation, error)
	// CreateEvaluations creates one template and one evaluation per
	// template in a single transaction and returns the evaluations in order.
	CreateEvaluations(ctx context.Context, ownerID string, templates []Template) ([]Evaluation, error)
	// MarkAlerted records that the alert fired at the given time.
	MarkAlerted(ctx context.Context, alertID string, at time.Time) error
}

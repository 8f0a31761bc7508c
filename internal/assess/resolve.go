// Package assess decides which evaluations apply to a call and scores the
// call against them.
package assess

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/JaimeStill/vigil/internal/calls"
	"github.com/JaimeStill/vigil/internal/evaluations"
	"github.com/JaimeStill/vigil/internal/judge"
	"github.com/JaimeStill/vigil/internal/workitem"
)

// Subject is the call being assessed.
type Subject struct {
	OwnerID    string
	AgentID    string
	Metadata   map[string]string
	Scenario   *workitem.Scenario
	Transcript []calls.Message
}

// Resolution is the evaluation set chosen for a call. SavedSearches and
// Groups are populated on the rule path only.
type Resolution struct {
	Scenario      bool
	Evaluations   []evaluations.Evaluation
	SavedSearches []evaluations.SavedSearch
	Groups        []evaluations.Group
}

// Resolver selects evaluations by scenario or by saved-search rules.
type Resolver struct {
	catalogue  evaluations.System
	classifier judge.Classifier
	logger     *logrus.Entry
}

// NewResolver creates a Resolver.
func NewResolver(catalogue evaluations.System, classifier judge.Classifier, logger *logrus.Entry) *Resolver {
	return &Resolver{
		catalogue:  catalogue,
		classifier: classifier,
		logger:     logger.WithField("system", "resolver"),
	}
}

// Resolve takes the scenario path when the subject carries a scenario and
// the rule path otherwise.
func (r *Resolver) Resolve(ctx context.Context, s Subject) (*Resolution, error) {
	if s.Scenario != nil {
		return r.resolveScenario(ctx, s)
	}
	return r.resolveRules(ctx, s)
}

func (r *Resolver) resolveScenario(ctx context.Context, s Subject) (*Resolution, error) {
	existing, err := r.catalogue.EvaluationsByOwner(ctx, s.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("load evaluations: %w", err)
	}

	prompts := make(map[string]bool, len(s.Scenario.Evaluations))
	for _, e := range s.Scenario.Evaluations {
		prompts[e.Prompt] = true
	}

	var reused []evaluations.Evaluation
	known := make(map[string]bool)
	for _, e := range existing {
		if prompts[e.Template.Description] {
			reused = append(reused, e)
			known[e.Template.Description] = true
		}
	}

	var templates []evaluations.Template
	for _, e := range s.Scenario.Evaluations {
		if known[e.Prompt] {
			continue
		}
		known[e.Prompt] = true
		templates = append(templates, evaluations.Template{Name: e.Name, Description: e.Prompt})
	}

	created, err := r.catalogue.CreateEvaluations(ctx, s.OwnerID, templates)
	if err != nil {
		return nil, fmt.Errorf("create scenario evaluations: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"owner_id": s.OwnerID,
		"reused":   len(reused),
		"created":  len(created),
	}).Debug("scenario evaluations resolved")

	return &Resolution{
		Scenario:    true,
		Evaluations: append(created, reused...),
	}, nil
}

func (r *Resolver) resolveRules(ctx context.Context, s Subject) (*Resolution, error) {
	searches, err := r.catalogue.SavedSearches(ctx, s.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("load saved searches: %w", err)
	}

	res := &Resolution{}
	for _, ss := range searches {
		if ss.Matches(s.AgentID, s.Metadata) {
			res.SavedSearches = append(res.SavedSearches, ss)
		}
	}

	candidates := candidateGroups(res.SavedSearches)
	if len(candidates) == 0 {
		return res, nil
	}

	stripped := make([]evaluations.Group, len(candidates))
	for i, g := range candidates {
		stripped[i] = g.Strip()
	}

	decisions, err := r.classifier.Classify(ctx, s.Transcript, stripped)
	if err != nil {
		var rerr *judge.RelevanceError
		if errors.As(err, &rerr) {
			return nil, err
		}
		return nil, &judge.RelevanceError{Err: err}
	}

	relevant := make(map[string]bool, len(decisions))
	for _, d := range decisions {
		if d.Relevant {
			relevant[d.ID] = true
		}
	}

	seen := make(map[string]bool)
	for _, g := range candidates {
		if !relevant[g.ID] || len(g.Evaluations) == 0 {
			continue
		}
		res.Groups = append(res.Groups, g)
		for _, e := range g.Evaluations {
			if !seen[e.ID] {
				seen[e.ID] = true
				res.Evaluations = append(res.Evaluations, e)
			}
		}
	}

	r.logger.WithFields(logrus.Fields{
		"owner_id":       s.OwnerID,
		"saved_searches": len(res.SavedSearches),
		"candidates":     len(candidates),
		"relevant":       len(res.Groups),
		"evaluations":    len(res.Evaluations),
	}).Debug("rule evaluations resolved")

	return res, nil
}

// candidateGroups collects the enabled groups of the matched searches,
// once each, in search order.
func candidateGroups(searches []evaluations.SavedSearch) []evaluations.Group {
	var out []evaluations.Group
	seen := make(map[string]bool)
	for _, ss := range searches {
		for _, g := range ss.Groups {
			if !g.Enabled || seen[g.ID] {
				continue
			}
			seen[g.ID] = true
			out = append(out, g)
		}
	}
	return out
}

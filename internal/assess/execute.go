package assess

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JaimeStill/vigil/internal/calls"
	"github.com/JaimeStill/vigil/internal/evaluations"
	"github.com/JaimeStill/vigil/internal/judge"
)

// Outcome is the scored result of a resolution. GroupResults is empty on
// the scenario path.
type Outcome struct {
	Results      []calls.EvaluationResult
	GroupResults map[string]bool
}

// Executor scores a call against a resolved evaluation set in a single
// judge request.
type Executor struct {
	judge  judge.Judge
	logger *logrus.Entry
}

// NewExecutor creates an Executor.
func NewExecutor(j judge.Judge, logger *logrus.Entry) *Executor {
	return &Executor{
		judge:  j,
		logger: logger.WithField("system", "executor"),
	}
}

// Execute judges every resolved evaluation, drops verdicts for ids that
// were not requested, and rolls results up per group on the rule path.
func (x *Executor) Execute(ctx context.Context, transcript []calls.Message, startedAt time.Time, res *Resolution) (*Outcome, error) {
	out := &Outcome{
		Results:      []calls.EvaluationResult{},
		GroupResults: map[string]bool{},
	}
	if len(res.Evaluations) == 0 {
		return out, nil
	}

	verdicts, err := x.judge.Judge(ctx, transcript, startedAt, res.Evaluations)
	if err != nil {
		var eerr *judge.ExecutionError
		if errors.As(err, &eerr) {
			return nil, err
		}
		return nil, &judge.ExecutionError{Err: err}
	}

	requested := make(map[string]bool, len(res.Evaluations))
	for _, e := range res.Evaluations {
		requested[e.ID] = true
	}

	recorded := make(map[string]bool)
	dropped := 0
	for _, v := range verdicts {
		if !requested[v.EvaluationID] || recorded[v.EvaluationID] {
			dropped++
			continue
		}
		recorded[v.EvaluationID] = true
		out.Results = append(out.Results, calls.EvaluationResult{
			EvaluationID: v.EvaluationID,
			Success:      v.Success,
			Explanation:  v.Explanation,
		})
	}

	if !res.Scenario {
		for _, g := range res.Groups {
			out.GroupResults[g.ID] = GroupPassed(g, out.Results)
		}
	}

	x.logger.WithFields(logrus.Fields{
		"requested": len(res.Evaluations),
		"results":   len(out.Results),
		"dropped":   dropped,
		"groups":    len(out.GroupResults),
	}).Debug("evaluations executed")

	return out, nil
}

// GroupPassed reports whether every result for a member of g either
// succeeded or belongs to a non-critical evaluation. Members without a
// result do not fail the group.
func GroupPassed(g evaluations.Group, results []calls.EvaluationResult) bool {
	critical := make(map[string]bool, len(g.Evaluations))
	for _, e := range g.Evaluations {
		critical[e.ID] = e.IsCritical
	}

	for _, r := range results {
		isCritical, member := critical[r.EvaluationID]
		if member && !r.Success && isCritical {
			return false
		}
	}
	return true
}

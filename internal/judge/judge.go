// Package judge defines the language-model capabilities the pipeline
// depends on: deciding which evaluation groups apply to a call, and
// scoring a call against a batch of evaluations.
package judge

import (
	"context"
	"time"

	"github.com/JaimeStill/vigil/internal/calls"
	"github.com/JaimeStill/vigil/internal/evaluations"
)

// Relevance is the classifier's decision for one group.
type Relevance struct {
	ID       string `json:"id"`
	Relevant bool   `json:"relevant"`
}

// Verdict is the judged outcome of one evaluation.
type Verdict struct {
	EvaluationID string `json:"evaluationId"`
	Success      bool   `json:"success"`
	Explanation  string `json:"explanation"`
}

// Classifier decides which groups' conditions hold for a transcript.
// Groups arrive stripped of their evaluations.
type Classifier interface {
	Classify(ctx context.Context, transcript []calls.Message, groups []evaluations.Group) ([]Relevance, error)
}

// Judge scores a transcript against every evaluation in one request.
type Judge interface {
	Judge(ctx context.Context, transcript []calls.Message, startedAt time.Time, evals []evaluations.Evaluation) ([]Verdict, error)
}

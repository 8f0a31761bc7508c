package judge

import (
	"context"
	"fmt"
	"time"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
	"github.com/sirupsen/logrus"

	"github.com/JaimeStill/vigil/internal/calls"
	"github.com/JaimeStill/vigil/internal/evaluations"
	"github.com/JaimeStill/vigil/pkg/formatting"
)

type relevanceResponse struct {
	RelevantEvalSets []Relevance `json:"relevantEvalSets"`
}

type evaluateResponse struct {
	Evaluations []Verdict `json:"evaluations"`
}

type transcriptTurn struct {
	Role             calls.Role `json:"role"`
	Message          string     `json:"message"`
	SecondsFromStart float64    `json:"secondsFromStart"`
	Duration         float64    `json:"duration"`
}

type evaluationBrief struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Prompt     string `json:"prompt"`
	IsCritical bool   `json:"isCritical"`
}

// LLM implements Classifier and Judge with a go-agents chat agent.
type LLM struct {
	agent   gaconfig.AgentConfig
	timeout time.Duration
	logger  *logrus.Entry
}

// NewLLM creates an LLM whose requests are each bounded by timeout.
func NewLLM(cfg gaconfig.AgentConfig, timeout time.Duration, logger *logrus.Entry) *LLM {
	return &LLM{
		agent:   cfg,
		timeout: timeout,
		logger:  logger.WithField("system", "judge"),
	}
}

func (l *LLM) Classify(ctx context.Context, transcript []calls.Message, groups []evaluations.Group) ([]Relevance, error) {
	prompt, err := ComposePrompt(StageRelevance,
		Section{Title: "Here is the call transcript", Value: turns(transcript)},
		Section{Title: "Here are the eval sets", Value: groups},
	)
	if err != nil {
		return nil, &RelevanceError{Err: err}
	}

	parsed, err := chat[relevanceResponse](ctx, l, prompt)
	if err != nil {
		return nil, &RelevanceError{Err: err}
	}

	l.logger.WithFields(logrus.Fields{
		"groups":    len(groups),
		"decisions": len(parsed.RelevantEvalSets),
	}).Debug("relevance classified")

	return parsed.RelevantEvalSets, nil
}

func (l *LLM) Judge(ctx context.Context, transcript []calls.Message, startedAt time.Time, evals []evaluations.Evaluation) ([]Verdict, error) {
	briefs := make([]evaluationBrief, len(evals))
	for i, e := range evals {
		briefs[i] = evaluationBrief{
			ID:         e.ID,
			Name:       e.Template.Name,
			Prompt:     e.Template.Description,
			IsCritical: e.IsCritical,
		}
	}

	prompt, err := ComposePrompt(StageEvaluate,
		Section{Title: "The call started at", Value: startedAt.UTC().Format(time.RFC3339)},
		Section{Title: "Here is the call transcript", Value: turns(transcript)},
		Section{Title: "Here are the evaluations", Value: briefs},
	)
	if err != nil {
		return nil, &ExecutionError{Err: err}
	}

	parsed, err := chat[evaluateResponse](ctx, l, prompt)
	if err != nil {
		return nil, &ExecutionError{Err: err}
	}

	l.logger.WithFields(logrus.Fields{
		"evaluations": len(evals),
		"verdicts":    len(parsed.Evaluations),
	}).Debug("evaluations judged")

	return parsed.Evaluations, nil
}

func chat[T any](ctx context.Context, l *LLM, prompt string) (T, error) {
	var zero T

	a, err := agent.New(&l.agent)
	if err != nil {
		return zero, fmt.Errorf("create agent: %w", err)
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	resp, err := a.Chat(ctx, prompt)
	if err != nil {
		return zero, fmt.Errorf("chat call: %w", err)
	}

	parsed, err := formatting.Parse[T](resp.Content())
	if err != nil {
		return zero, fmt.Errorf("parse response: %w", err)
	}
	return parsed, nil
}

func turns(transcript []calls.Message) []transcriptTurn {
	out := make([]transcriptTurn, len(transcript))
	for i, m := range transcript {
		out[i] = transcriptTurn{
			Role:             m.Role,
			Message:          m.Message,
			SecondsFromStart: m.SecondsFromStart,
			Duration:         m.Duration,
		}
	}
	return out
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	gaoconfig "github.com/JaimeStill/go-agents-orchestration/pkg/config"
	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/JaimeStill/vigil/internal/calls"
)

// ErrInvalidJob is returned for a job without a work item.
var ErrInvalidJob = errors.New("invalid job")

// Execute runs one work item through the stage graph
// (probe → archive → transcribe → aggregate → resolve → evaluate? → persist → settle)
// and returns the stored call. A stage failure is returned unwrapped so
// callers can classify it with errors.As.
func Execute(ctx context.Context, rt *Runtime, job Job) (*calls.Call, error) {
	if job.Item == nil {
		return nil, ErrInvalidJob
	}

	graph, err := buildGraph(rt)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	run := &Run{
		Job:       job,
		StartedAt: job.Item.CreatedAtOr(time.Now().UTC()),
		SourceURL: job.Item.StereoRecordingURL,
	}

	if !rt.Options.Production && rt.Options.TestFileURL != "" {
		run.SourceURL = rt.Options.TestFileURL
	}

	if _, err := graph.Execute(ctx, state.New(nil).Set(KeyRun, run)); err != nil {
		if run.Err != nil {
			return nil, run.Err
		}
		return nil, fmt.Errorf("execute graph: %w", err)
	}

	if run.Call == nil {
		return nil, fmt.Errorf("execute graph: no call persisted for %s", job.Item.CallID)
	}

	return run.Call, nil
}

func buildGraph(rt *Runtime) (state.StateGraph, error) {
	cfg := gaoconfig.DefaultGraphConfig("vigil-analyze")
	cfg.Observer = "noop"

	graph, err := state.NewGraph(cfg)
	if err != nil {
		return nil, err
	}

	stages := []struct {
		name string
		fn   stageFunc
	}{
		{StageProbe, probeStage},
		{StageArchive, archiveStage},
		{StageTranscribe, transcribeStage},
		{StageAggregate, aggregateStage},
		{StageResolve, resolveStage},
		{StageEvaluate, evaluateStage},
		{StagePersist, persistStage},
		{StageSettle, settleStage},
	}

	for _, st := range stages {
		if err := graph.AddNode(st.name, node(rt, st.name, st.fn)); err != nil {
			return nil, err
		}
	}

	edges := []struct {
		from, to string
		pred     func(state.State) bool
	}{
		{StageProbe, StageArchive, nil},
		{StageArchive, StageTranscribe, nil},
		{StageTranscribe, StageAggregate, nil},
		{StageAggregate, StageResolve, nil},
		// resolve → evaluate (when anything is selected)
		{StageResolve, StageEvaluate, hasEvaluations},
		// resolve → persist (nothing to judge)
		{StageResolve, StagePersist, state.Not(hasEvaluations)},
		{StageEvaluate, StagePersist, nil},
		{StagePersist, StageSettle, nil},
	}

	for _, e := range edges {
		if err := graph.AddEdge(e.from, e.to, e.pred); err != nil {
			return nil, err
		}
	}

	if err := graph.SetEntryPoint(StageProbe); err != nil {
		return nil, err
	}

	if err := graph.SetExitPoint(StageSettle); err != nil {
		return nil, err
	}

	return graph, nil
}

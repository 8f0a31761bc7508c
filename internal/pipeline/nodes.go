package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/vigil/internal/alerts"
	"github.com/JaimeStill/vigil/internal/assess"
	"github.com/JaimeStill/vigil/internal/calls"
	"github.com/JaimeStill/vigil/internal/metering"
	"github.com/JaimeStill/vigil/internal/stats"
	"github.com/JaimeStill/vigil/pkg/metrics"
)

type stageFunc func(ctx context.Context, rt *Runtime, r *Run) error

// node adapts a stage to the state graph. The run is carried by pointer
// under KeyRun; the first failure is recorded on it unwrapped.
func node(rt *Runtime, stage string, fn stageFunc) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		r, err := extractRun(s)
		if err != nil {
			return s, fmt.Errorf("%s: %w", stage, err)
		}

		start := time.Now()
		err = fn(ctx, rt, r)
		metrics.ObserveStage(stage, start, err)

		if err != nil {
			if r.Err == nil {
				r.Err = err
			}
			return s, fmt.Errorf("%s: %w", stage, err)
		}

		rt.Logger.WithFields(logrus.Fields{
			"call_id":  r.Job.Item.CallID,
			"stage":    stage,
			"duration": time.Since(start).String(),
		}).Debug("stage complete")

		return s.Set(KeyRun, r), nil
	})
}

func probeStage(ctx context.Context, rt *Runtime, r *Run) error {
	opts := rt.Options

	if !opts.Production && opts.TestFileURL != "" {
		r.Duration = opts.FallbackDuration
		return nil
	}

	pctx, cancel := withTimeout(ctx, opts.ProbeTimeout)
	defer cancel()

	media, err := rt.Prober.Probe(pctx, rt.Sources.Resolve(pctx, r.SourceURL))
	if err != nil {
		if opts.Production || opts.FallbackDuration <= 0 || ctx.Err() != nil {
			return err
		}
		rt.Logger.WithError(err).WithField("call_id", r.Job.Item.CallID).
			Warnf("probe failed, using fallback duration %.0fs", opts.FallbackDuration)
		r.Duration = opts.FallbackDuration
		return nil
	}

	r.Duration = media.Duration
	return nil
}

func archiveStage(ctx context.Context, rt *Runtime, r *Run) error {
	item := r.Job.Item

	r.TranscriptionURL = rt.Sources.RefreshURL(ctx, r.SourceURL)
	r.RecordingURL = item.StereoRecordingURL

	if !item.ShouldSaveRecording() {
		return nil
	}

	actx, cancel := withTimeout(ctx, rt.Options.ArchiveTimeout)
	defer cancel()

	saved, err := rt.Archiver.Archive(actx, item.CallID, rt.Sources.Resolve(actx, r.TranscriptionURL), item.IsScenario())
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rt.Logger.WithError(err).WithField("call_id", item.CallID).
			Warn("archive failed, keeping original recording url")
		return nil
	}

	r.RecordingURL = saved
	return nil
}

func transcribeStage(ctx context.Context, rt *Runtime, r *Run) error {
	result, err := rt.Transcriber.Transcribe(ctx, r.TranscriptionURL, r.Job.Item.Language)
	if err != nil {
		return err
	}
	r.Transcript = result
	return nil
}

func aggregateStage(_ context.Context, _ *Runtime, r *Run) error {
	r.Messages = Messages(r.Transcript.Segments)
	r.Summary = stats.Summarize(r.Transcript.LatencyDurations(), r.Transcript.InterruptionDurations())
	return nil
}

func resolveStage(ctx context.Context, rt *Runtime, r *Run) error {
	item := r.Job.Item

	res, err := rt.Resolver.Resolve(ctx, assess.Subject{
		OwnerID:    item.OwnerID,
		AgentID:    r.Job.AgentID,
		Metadata:   item.Metadata,
		Scenario:   item.Scenario,
		Transcript: r.Messages,
	})
	if err != nil {
		return err
	}

	r.Resolution = res
	return nil
}

func evaluateStage(ctx context.Context, rt *Runtime, r *Run) error {
	outcome, err := rt.Executor.Execute(ctx, r.Messages, r.StartedAt, r.Resolution)
	if err != nil {
		return err
	}
	r.Outcome = outcome
	return nil
}

func persistStage(ctx context.Context, rt *Runtime, r *Run) error {
	saved, err := rt.Calls.Upsert(ctx, BuildCall(r))
	if err != nil {
		var pe *calls.PersistenceError
		if !errors.As(err, &pe) {
			err = &calls.PersistenceError{CallID: r.Job.Item.CallID, Err: err}
		}
		return err
	}
	r.Call = saved
	return nil
}

// settleStage accrues usage and dispatches alerts concurrently. Both run
// after the call is durable, so their failures are logged and never fail
// the run; a retry would otherwise bill twice.
func settleStage(ctx context.Context, rt *Runtime, r *Run) error {
	sctx, cancel := withTimeout(context.WithoutCancel(ctx), rt.Options.SettleTimeout)
	defer cancel()

	item := r.Job.Item
	logger := rt.Logger.WithField("call_id", item.CallID)

	var g errgroup.Group

	g.Go(func() error {
		minutes := metering.Minutes(r.Duration)
		if err := rt.Meter.AccrueObservabilityMinutes(sctx, item.OwnerID, minutes); err != nil {
			logger.WithError(err).Error("accrue observability minutes")
		}
		return nil
	})

	if r.Resolution != nil && !r.Resolution.Scenario {
		g.Go(func() error {
			bundle := alerts.Bundle{
				OwnerID:          item.OwnerID,
				LatencyDurations: r.Transcript.LatencyDurations(),
				SavedSearches:    r.Resolution.SavedSearches,
				GroupResults:     map[string]bool{},
				Call:             r.Call,
			}
			if r.Outcome != nil {
				bundle.GroupResults = r.Outcome.GroupResults
			}
			if err := rt.Alerts.Dispatch(sctx, bundle); err != nil {
				logger.WithError(err).Error("dispatch alerts")
			}
			return nil
		})
	}

	return g.Wait()
}

func hasEvaluations(s state.State) bool {
	r, err := extractRun(s)
	if err != nil {
		return false
	}
	return r.Resolution != nil && len(r.Resolution.Evaluations) > 0
}

func extractRun(s state.State) (*Run, error) {
	val, ok := s.Get(KeyRun)
	if !ok {
		return nil, fmt.Errorf("missing %s in state", KeyRun)
	}

	r, ok := val.(*Run)
	if !ok {
		return nil, fmt.Errorf("%s is not *Run", KeyRun)
	}

	return r, nil
}

// Package pipeline runs one call work item through the analysis stages:
// probe, archive, transcribe, aggregate, resolve, evaluate, persist, and
// settle (metering and alerts).
package pipeline

import (
	"time"

	"github.com/JaimeStill/vigil/internal/assess"
	"github.com/JaimeStill/vigil/internal/calls"
	"github.com/JaimeStill/vigil/internal/stats"
	"github.com/JaimeStill/vigil/internal/transcription"
	"github.com/JaimeStill/vigil/internal/workitem"
)

// State keys.
const (
	KeyRun = "run"
)

// Stage names, also used as graph node names and metric labels.
const (
	StageProbe      = "probe"
	StageArchive    = "archive"
	StageTranscribe = "transcribe"
	StageAggregate  = "aggregate"
	StageResolve    = "resolve"
	StageEvaluate   = "evaluate"
	StagePersist    = "persist"
	StageSettle     = "settle"
)

// Job is one work item ready for analysis. AgentID is the registered
// agent id, not the producer's.
type Job struct {
	Item    *workitem.CallWorkItem
	AgentID string
}

// Run accumulates stage outputs for one execution.
type Run struct {
	Job              Job
	StartedAt        time.Time
	SourceURL        string
	TranscriptionURL string
	RecordingURL     string
	Duration         float64
	Transcript       *transcription.Result
	Messages         []calls.Message
	Summary          stats.Summary
	Resolution       *assess.Resolution
	Outcome          *assess.Outcome
	Call             *calls.Call
	// Err is the first stage failure, kept unwrapped for classification.
	Err error
}

// Messages converts transcript segments into call messages. Any role
// other than user is the bot.
func Messages(segments []transcription.Segment) []calls.Message {
	out := make([]calls.Message, len(segments))
	for i, s := range segments {
		role := calls.RoleBot
		if s.Role == string(calls.RoleUser) {
			role = calls.RoleUser
		}
		out[i] = calls.Message{
			Role:             role,
			Message:          s.Text,
			SecondsFromStart: s.Start,
			Duration:         s.End - s.Start,
			Time:             s.Start,
			EndTime:          s.End,
		}
	}
	return out
}

// BuildCall assembles the durable record from a finished run.
func BuildCall(r *Run) *calls.Call {
	item := r.Job.Item

	c := &calls.Call{
		ID:                 item.CallID,
		CustomerCallID:     item.CallID,
		OwnerID:            item.OwnerID,
		AgentID:            r.Job.AgentID,
		Status:             calls.StatusCompleted,
		StereoRecordingURL: r.RecordingURL,
		Duration:           r.Duration,
		TimeToFirstWord:    r.Summary.TimeToFirstWord,
		LatencyP50:         r.Summary.Latency.P50,
		LatencyP90:         r.Summary.Latency.P90,
		LatencyP95:         r.Summary.Latency.P95,
		InterruptionP50:    r.Summary.Interruption.P50,
		InterruptionP90:    r.Summary.Interruption.P90,
		InterruptionP95:    r.Summary.Interruption.P95,
		NumInterruptions:   r.Summary.NumInterruptions,
		Metadata:           map[string]string{},
		EvalSetToSuccess:   map[string]bool{},
		Messages:           r.Messages,
		LatencyBlocks:      []calls.LatencyBlock{},
		Interruptions:      []calls.Interruption{},
		EvaluationResults:  []calls.EvaluationResult{},
		CreatedAt:          r.StartedAt,
		StartedAt:          r.StartedAt,
	}

	for k, v := range item.Metadata {
		c.Metadata[k] = v
	}

	if r.Transcript != nil {
		for _, b := range r.Transcript.LatencyBlocks {
			c.LatencyBlocks = append(c.LatencyBlocks, calls.LatencyBlock{SecondsFromStart: b.SecondsFromStart, Duration: b.Duration})
		}
		for _, in := range r.Transcript.Interruptions {
			c.Interruptions = append(c.Interruptions, calls.Interruption{SecondsFromStart: in.SecondsFromStart, Duration: in.Duration, Text: in.Text})
		}
	}

	if r.Outcome != nil {
		c.EvaluationResults = append(c.EvaluationResults, r.Outcome.Results...)
		for id, ok := range r.Outcome.GroupResults {
			c.EvalSetToSuccess[id] = ok
		}
	}

	return c
}

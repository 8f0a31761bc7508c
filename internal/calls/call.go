// Package calls owns the durable Call record produced by the analysis
// pipeline and the storage port through which it is written.
package calls

import (
	"maps"
	"slices"
	"time"
)

// Status is the processing state of a call.
type Status string

// Call statuses. A call moves from queued to completed, or to failed.
const (
	StatusQueued    Status = "queued"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Role identifies the speaker of a transcript message.
type Role string

// Transcript roles.
const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Message is one transcript turn.
type Message struct {
	ID               string  `json:"id"`
	Role             Role    `json:"role"`
	Message          string  `json:"message"`
	SecondsFromStart float64 `json:"secondsFromStart"`
	Duration         float64 `json:"duration"`
	Time             float64 `json:"time"`
	EndTime          float64 `json:"endTime"`
}

// LatencyBlock is a measured gap between the end of user speech and the
// start of agent speech.
type LatencyBlock struct {
	SecondsFromStart float64 `json:"secondsFromStart"`
	Duration         float64 `json:"duration"`
}

// Interruption is a detected cut-in event.
type Interruption struct {
	SecondsFromStart float64 `json:"secondsFromStart"`
	Duration         float64 `json:"duration"`
	Text             string  `json:"text"`
}

// EvaluationResult is the judged outcome of one evaluation for this call.
type EvaluationResult struct {
	ID           string `json:"id"`
	EvaluationID string `json:"evaluationId"`
	Success      bool   `json:"success"`
	Explanation  string `json:"explanation"`
}

// Call is the durable record of one analysed call.
type Call struct {
	ID                 string             `json:"id"`
	CustomerCallID     string             `json:"customerCallId"`
	OwnerID            string             `json:"ownerId"`
	AgentID            string             `json:"agentId"`
	Status             Status             `json:"status"`
	StereoRecordingURL string             `json:"stereoRecordingUrl"`
	IsRead             bool               `json:"isRead"`
	Duration           float64            `json:"duration"`
	TimeToFirstWord    int                `json:"timeToFirstWord"`
	LatencyP50         float64            `json:"latencyP50"`
	LatencyP90         float64            `json:"latencyP90"`
	LatencyP95         float64            `json:"latencyP95"`
	InterruptionP50    float64            `json:"interruptionP50"`
	InterruptionP90    float64            `json:"interruptionP90"`
	InterruptionP95    float64            `json:"interruptionP95"`
	NumInterruptions   int                `json:"numInterruptions"`
	Metadata           map[string]string  `json:"metadata"`
	EvalSetToSuccess   map[string]bool    `json:"evalSetToSuccess"`
	Messages           []Message          `json:"messages"`
	LatencyBlocks      []LatencyBlock     `json:"latencyBlocks"`
	Interruptions      []Interruption     `json:"interruptions"`
	EvaluationResults  []EvaluationResult `json:"evaluationResults"`
	CreatedAt          time.Time          `json:"createdAt"`
	StartedAt          time.Time          `json:"startedAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// Clone returns a deep copy so adapters never share child slices with callers.
func (c *Call) Clone() *Call {
	out := *c
	out.Metadata = maps.Clone(c.Metadata)
	out.EvalSetToSuccess = maps.Clone(c.EvalSetToSuccess)
	out.Messages = slices.Clone(c.Messages)
	out.LatencyBlocks = slices.Clone(c.LatencyBlocks)
	out.Interruptions = slices.Clone(c.Interruptions)
	out.EvaluationResults = slices.Clone(c.EvaluationResults)
	return &out
}

func (c *Call) normalize() {
	if c.Metadata == nil {
		c.Metadata = map[string]string{}
	}
	if c.EvalSetToSuccess == nil {
		c.EvalSetToSuccess = map[string]bool{}
	}
	if c.Status == "" {
		c.Status = StatusQueued
	}
	c.IsRead = false
}

// queuedCall is the record written when a work item is accepted: identity,
// ownership, and metadata, with no analysis yet.
func queuedCall(src *Call) *Call {
	c := &Call{
		ID:                 src.ID,
		CustomerCallID:     src.CustomerCallID,
		OwnerID:            src.OwnerID,
		Status:             StatusQueued,
		StereoRecordingURL: src.StereoRecordingURL,
		Metadata:           maps.Clone(src.Metadata),
		CreatedAt:          src.CreatedAt,
		StartedAt:          src.StartedAt,
	}
	if c.CustomerCallID == "" {
		c.CustomerCallID = c.ID
	}
	c.normalize()
	return c
}

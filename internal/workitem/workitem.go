// Package workitem defines the queued unit of call-analysis work and its
// decoding and validation rules.
package workitem

import (
	"encoding/json"
	"maps"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/JaimeStill/vigil/internal/calls"
)

// MetadataTestKey marks calls produced by test tooling. Producers default it to "false".
const MetadataTestKey = "test"

// ScenarioEvaluation is one inline evaluation prompt carried by a scenario.
type ScenarioEvaluation struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt" validate:"required"`
}

// Scenario is an ad-hoc set of evaluation prompts supplied directly on a
// work item for one-off test calls. It bypasses relevance resolution.
type Scenario struct {
	Name        string               `json:"name,omitempty"`
	Evaluations []ScenarioEvaluation `json:"evaluations" validate:"dive"`
}

// CallWorkItem is one queued unit of call-analysis work.
type CallWorkItem struct {
	CallID             string            `json:"callId" validate:"required"`
	StereoRecordingURL string            `json:"stereoRecordingUrl" validate:"required"`
	OwnerID            string            `json:"ownerId" validate:"required"`
	AgentID            string            `json:"agentId"`
	CreatedAt          *time.Time        `json:"createdAt" validate:"required"`
	Language           string            `json:"language,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	Scenario           *Scenario         `json:"scenario,omitempty"`
	WebhookURL         string            `json:"webhookUrl,omitempty" validate:"omitempty,url"`
	SaveRecording      *bool             `json:"saveRecording,omitempty"`
}

// ShouldSaveRecording reports whether the recording is archived. Archival
// runs unless the producer explicitly opted out.
func (w *CallWorkItem) ShouldSaveRecording() bool {
	return w.SaveRecording == nil || *w.SaveRecording
}

// IsScenario reports whether the item is an explicit test run.
func (w *CallWorkItem) IsScenario() bool {
	return w.Scenario != nil
}

// CreatedAtOr returns the declared creation time, or fallback when absent.
func (w *CallWorkItem) CreatedAtOr(fallback time.Time) time.Time {
	if w.CreatedAt == nil || w.CreatedAt.IsZero() {
		return fallback
	}
	return *w.CreatedAt
}

// WithDefaults returns a copy carrying producer-side defaults: an empty
// metadata map gains test="false".
func (w CallWorkItem) WithDefaults() CallWorkItem {
	md := make(map[string]string, len(w.Metadata)+1)
	for k, v := range w.Metadata {
		md[k] = v
	}
	if _, ok := md[MetadataTestKey]; !ok {
		md[MetadataTestKey] = "false"
	}
	w.Metadata = md
	return w
}

// QueuedCall is the call record registered when the item is accepted. It
// carries the declared creation time as both created and started times.
func (w *CallWorkItem) QueuedCall() *calls.Call {
	started := w.CreatedAtOr(time.Now().UTC())
	return &calls.Call{
		ID:                 w.CallID,
		CustomerCallID:     w.CallID,
		OwnerID:            w.OwnerID,
		Status:             calls.StatusQueued,
		StereoRecordingURL: w.StereoRecordingURL,
		Metadata:           maps.Clone(w.Metadata),
		CreatedAt:          started,
		StartedAt:          started,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks required fields.
func (w *CallWorkItem) Validate() error {
	if err := validate.Struct(w); err != nil {
		return &MalformedError{CallID: w.CallID, Err: err}
	}
	return nil
}

// Decode parses and validates a queue message body.
func Decode(body []byte) (*CallWorkItem, error) {
	var item CallWorkItem
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, &MalformedError{Err: err}
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return &item, nil
}

// Encode renders the item as a queue message body.
func Encode(item *CallWorkItem) ([]byte, error) {
	return json.Marshal(item)
}

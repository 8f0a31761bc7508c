// Package evaluations holds the evaluation catalogue an organization
// scores its calls against: templates, evaluations, groups, saved
// searches, and the alert rules attached to them.
package evaluations

import (
	"encoding/json"
	"slices"
	"time"
)

// Template is the reusable definition of an evaluation. Description holds
// the prompt the judge scores against.
type Template struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Evaluation instantiates a template with its scoring flags.
type Evaluation struct {
	ID         string   `json:"id"`
	TemplateID string   `json:"templateId"`
	Template   Template `json:"template"`
	IsCritical bool     `json:"isCritical"`
	Enabled    bool     `json:"enabled"`
}

// Group is an evaluation set: a condition that decides relevance plus the
// evaluations scored together when it holds.
type Group struct {
	ID          string       `json:"id"`
	OwnerID     string       `json:"ownerId"`
	Name        string       `json:"name"`
	Condition   string       `json:"condition"`
	Enabled     bool         `json:"enabled"`
	Evaluations []Evaluation `json:"evaluations"`
}

// Strip returns a copy of g without its evaluations, the shape handed to
// the relevance classifier.
func (g Group) Strip() Group {
	g.Evaluations = []Evaluation{}
	return g
}

// SavedSearch scopes groups and alerts to calls by agent and metadata.
type SavedSearch struct {
	ID       string   `json:"id"`
	OwnerID  string   `json:"ownerId"`
	Name     string   `json:"name"`
	AgentIDs []string `json:"agentIds"`
	Metadata Filter   `json:"metadata"`
	Groups   []Group  `json:"groups"`
	Alerts   []Alert  `json:"alerts"`
}

// Matches reports whether a call with the given agent and metadata falls
// under this saved search. An empty agent scope matches every agent.
func (s SavedSearch) Matches(agentID string, metadata map[string]string) bool {
	if !s.Metadata.Matches(metadata) {
		return false
	}
	return len(s.AgentIDs) == 0 || slices.Contains(s.AgentIDs, agentID)
}

// AlertType selects how an alert rule is evaluated.
type AlertType string

const (
	AlertLatency AlertType = "latency"
	AlertEvalSet AlertType = "evalset"
)

// Percentile names a latency percentile an alert thresholds on.
type Percentile string

const (
	P50 Percentile = "p50"
	P90 Percentile = "p90"
	P95 Percentile = "p95"
)

// LatencyDetails configures a latency alert. Threshold is in milliseconds.
type LatencyDetails struct {
	Percentile Percentile `json:"percentile"`
	Threshold  float64    `json:"threshold"`
}

// EvalSetDetails configures an evaluation-set alert: it fires when the
// group's result for a call equals Trigger.
type EvalSetDetails struct {
	EvalSetID string `json:"evalSetId"`
	Trigger   bool   `json:"trigger"`
}

// Alert is a notification rule attached to a saved search.
type Alert struct {
	ID              string          `json:"id"`
	OwnerID         string          `json:"ownerId"`
	SavedSearchID   string          `json:"savedSearchId"`
	Name            string          `json:"name"`
	Enabled         bool            `json:"enabled"`
	Type            AlertType       `json:"type"`
	Details         json.RawMessage `json:"details"`
	CooldownMinutes int             `json:"cooldownMinutes"`
	LastAlerted     *time.Time      `json:"lastAlerted"`
}

// LatencyDetails decodes Details for a latency alert.
func (a Alert) LatencyDetails() (LatencyDetails, error) {
	var d LatencyDetails
	err := json.Unmarshal(a.Details, &d)
	return d, err
}

// EvalSetDetails decodes Details for an evaluation-set alert.
func (a Alert) EvalSetDetails() (EvalSetDetails, error) {
	var d EvalSetDetails
	err := json.Unmarshal(a.Details, &d)
	return d, err
}

// CoolingDown reports whether the alert fired within its cooldown window.
func (a Alert) CoolingDown(now time.Time) bool {
	if a.LastAlerted == nil || a.CooldownMinutes <= 0 {
		return false
	}
	return now.Before(a.LastAlerted.Add(time.Duration(a.CooldownMinutes) * time.Minute))
}

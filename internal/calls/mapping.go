package calls

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/JaimeStill/vigil/pkg/query"
	"github.com/JaimeStill/vigil/pkg/repository"
)

// projection lists call columns in scanCall order. View names match the
// JSON field names accepted by the list endpoint's sort parameter.
var projection = query.
	NewProjectionMap("calls", "c").
	Project("id", "id").
	Project("customer_call_id", "customerCallId").
	Project("owner_id", "ownerId").
	Project("agent_id", "agentId").
	Project("status", "status").
	Project("stereo_recording_url", "stereoRecordingUrl").
	Project("is_read", "isRead").
	Project("duration", "duration").
	Project("time_to_first_word", "timeToFirstWord").
	Project("latency_p50", "latencyP50").
	Project("latency_p90", "latencyP90").
	Project("latency_p95", "latencyP95").
	Project("interruption_p50", "interruptionP50").
	Project("interruption_p90", "interruptionP90").
	Project("interruption_p95", "interruptionP95").
	Project("num_interruptions", "numInterruptions").
	Project("metadata", "metadata").
	Project("eval_set_to_success", "evalSetToSuccess").
	Project("created_at", "createdAt").
	Project("started_at", "startedAt").
	Project("updated_at", "updatedAt").
	Project("deleted", "deleted")

var defaultSort = query.SortField{Field: "createdAt", Descending: true}

// Filters narrows a call listing. Empty fields are ignored.
type Filters struct {
	AgentID string `json:"agentId,omitempty"`
	Status  Status `json:"status,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("agentId", f.AgentID).
		WhereEquals("status", string(f.Status))
}

// FiltersFromQuery reads agentId and status query parameters.
func FiltersFromQuery(values url.Values) Filters {
	return Filters{
		AgentID: values.Get("agentId"),
		Status:  Status(values.Get("status")),
	}
}

func scanCall(s repository.Scanner) (Call, error) {
	var c Call
	var status string
	var metadataRaw, evalSetRaw []byte
	var customerCallID, agentID sql.NullString
	var startedAt sql.NullTime
	var deleted bool

	err := s.Scan(
		&c.ID, &customerCallID, &c.OwnerID, &agentID, &status, &c.StereoRecordingURL,
		&c.IsRead, &c.Duration, &c.TimeToFirstWord,
		&c.LatencyP50, &c.LatencyP90, &c.LatencyP95,
		&c.InterruptionP50, &c.InterruptionP90, &c.InterruptionP95,
		&c.NumInterruptions, &metadataRaw, &evalSetRaw,
		&c.CreatedAt, &startedAt, &c.UpdatedAt, &deleted,
	)
	if err != nil {
		return c, err
	}

	c.CustomerCallID = customerCallID.String
	c.AgentID = agentID.String
	c.Status = Status(status)
	c.StartedAt = startedAt.Time

	c.Metadata = map[string]string{}
	if len(metadataRaw) > 0 {
		if err := json.Unmarshal(metadataRaw, &c.Metadata); err != nil {
			return c, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	c.EvalSetToSuccess = map[string]bool{}
	if len(evalSetRaw) > 0 {
		if err := json.Unmarshal(evalSetRaw, &c.EvalSetToSuccess); err != nil {
			return c, fmt.Errorf("unmarshal eval_set_to_success: %w", err)
		}
	}

	return c, nil
}

func scanMessage(s repository.Scanner) (Message, error) {
	var m Message
	var role string
	err := s.Scan(&m.ID, &role, &m.Message, &m.SecondsFromStart, &m.Duration, &m.Time, &m.EndTime)
	m.Role = Role(role)
	return m, err
}

func scanLatencyBlock(s repository.Scanner) (LatencyBlock, error) {
	var b LatencyBlock
	err := s.Scan(&b.SecondsFromStart, &b.Duration)
	return b, err
}

func scanInterruption(s repository.Scanner) (Interruption, error) {
	var in Interruption
	err := s.Scan(&in.SecondsFromStart, &in.Duration, &in.Text)
	return in, err
}

func scanEvaluationResult(s repository.Scanner) (EvaluationResult, error) {
	var r EvaluationResult
	err := s.Scan(&r.ID, &r.EvaluationID, &r.Success, &r.Explanation)
	return r, err
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

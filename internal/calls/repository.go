package calls

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/JaimeStill/vigil/pkg/pagination"
	"github.com/JaimeStill/vigil/pkg/query"
	"github.com/JaimeStill/vigil/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *logrus.Entry
}

// New creates the Postgres-backed call repository.
func New(db *sql.DB, logger *logrus.Entry) System {
	return &repo{
		db:     db,
		logger: logger.WithField("system", "calls"),
	}
}

const upsertCallQ = `
	INSERT INTO calls(
		id, customer_call_id, owner_id, agent_id, status, stereo_recording_url,
		is_read, duration, time_to_first_word,
		latency_p50, latency_p90, latency_p95,
		interruption_p50, interruption_p90, interruption_p95,
		num_interruptions, metadata, eval_set_to_success,
		created_at, started_at
	)
	VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), $5, $6, false, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	ON CONFLICT (id) DO UPDATE SET
		agent_id = COALESCE(EXCLUDED.agent_id, calls.agent_id),
		is_read = false,
		status = EXCLUDED.status,
		stereo_recording_url = EXCLUDED.stereo_recording_url,
		duration = EXCLUDED.duration,
		time_to_first_word = EXCLUDED.time_to_first_word,
		latency_p50 = EXCLUDED.latency_p50,
		latency_p90 = EXCLUDED.latency_p90,
		latency_p95 = EXCLUDED.latency_p95,
		interruption_p50 = EXCLUDED.interruption_p50,
		interruption_p90 = EXCLUDED.interruption_p90,
		interruption_p95 = EXCLUDED.interruption_p95,
		num_interruptions = EXCLUDED.num_interruptions,
		metadata = EXCLUDED.metadata,
		eval_set_to_success = EXCLUDED.eval_set_to_success,
		started_at = EXCLUDED.started_at,
		updated_at = NOW()
	RETURNING created_at, updated_at`

const registerCallQ = `
	INSERT INTO calls(id, customer_call_id, owner_id, status, stereo_recording_url, metadata, created_at, started_at)
	VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO NOTHING`

const (
	insertMessageQ = `
		INSERT INTO messages(id, call_id, position, role, message, seconds_from_start, duration, time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	insertLatencyBlockQ = `
		INSERT INTO latency_blocks(call_id, position, seconds_from_start, duration)
		VALUES ($1, $2, $3, $4)`

	insertInterruptionQ = `
		INSERT INTO interruptions(call_id, position, seconds_from_start, duration, text)
		VALUES ($1, $2, $3, $4, $5)`

	insertEvaluationResultQ = `
		INSERT INTO evaluation_results(id, call_id, position, evaluation_id, success, explanation)
		VALUES ($1, $2, $3, $4, $5, $6)`
)

var childTables = []string{"messages", "latency_blocks", "interruptions", "evaluation_results"}

func (r *repo) Upsert(ctx context.Context, call *Call) (*Call, error) {
	if call.ID == "" || call.OwnerID == "" {
		return nil, &PersistenceError{CallID: call.ID, Err: ErrInvalid}
	}

	c := call.Clone()
	c.normalize()
	assignIDs(c)

	metadataJSON, err := json.Marshal(c.Metadata)
	if err != nil {
		return nil, &PersistenceError{CallID: c.ID, Err: fmt.Errorf("marshal metadata: %w", err)}
	}
	evalSetJSON, err := json.Marshal(c.EvalSetToSuccess)
	if err != nil {
		return nil, &PersistenceError{CallID: c.ID, Err: fmt.Errorf("marshal eval set results: %w", err)}
	}

	args := []any{
		c.ID, c.CustomerCallID, c.OwnerID, c.AgentID, string(c.Status), c.StereoRecordingURL,
		c.Duration, c.TimeToFirstWord,
		c.LatencyP50, c.LatencyP90, c.LatencyP95,
		c.InterruptionP50, c.InterruptionP90, c.InterruptionP95,
		c.NumInterruptions, metadataJSON, evalSetJSON,
		c.CreatedAt, nullTime(c.StartedAt),
	}

	err = repository.InTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, upsertCallQ, args...).Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
			return fmt.Errorf("upsert call: %w", err)
		}

		if err := repository.ClearChildren(ctx, tx, "call_id", c.ID, childTables...); err != nil {
			return err
		}

		return insertChildren(ctx, tx, c)
	})
	if repository.IsForeignKeyViolation(err) {
		err = fmt.Errorf("%w: unknown agent %q: %w", ErrInvalid, c.AgentID, err)
	}
	if err != nil {
		return nil, &PersistenceError{CallID: c.ID, Err: repository.MapError(err, ErrNotFound, ErrDuplicate)}
	}

	r.logger.WithFields(logrus.Fields{
		"call_id":  c.ID,
		"owner_id": c.OwnerID,
		"messages": len(c.Messages),
		"results":  len(c.EvaluationResults),
	}).Info("call upserted")

	return c, nil
}

func insertChildren(ctx context.Context, tx *sql.Tx, c *Call) error {
	messages := make([][]any, len(c.Messages))
	for i, m := range c.Messages {
		messages[i] = []any{m.ID, c.ID, i, string(m.Role), m.Message, m.SecondsFromStart, m.Duration, m.Time, m.EndTime}
	}
	if err := repository.ExecEach(ctx, tx, insertMessageQ, messages); err != nil {
		return fmt.Errorf("insert messages: %w", err)
	}

	blocks := make([][]any, len(c.LatencyBlocks))
	for i, b := range c.LatencyBlocks {
		blocks[i] = []any{c.ID, i, b.SecondsFromStart, b.Duration}
	}
	if err := repository.ExecEach(ctx, tx, insertLatencyBlockQ, blocks); err != nil {
		return fmt.Errorf("insert latency blocks: %w", err)
	}

	interruptions := make([][]any, len(c.Interruptions))
	for i, in := range c.Interruptions {
		interruptions[i] = []any{c.ID, i, in.SecondsFromStart, in.Duration, in.Text}
	}
	if err := repository.ExecEach(ctx, tx, insertInterruptionQ, interruptions); err != nil {
		return fmt.Errorf("insert interruptions: %w", err)
	}

	results := make([][]any, len(c.EvaluationResults))
	for i, res := range c.EvaluationResults {
		results[i] = []any{res.ID, c.ID, i, res.EvaluationID, res.Success, res.Explanation}
	}
	if err := repository.ExecEach(ctx, tx, insertEvaluationResultQ, results); err != nil {
		return fmt.Errorf("insert evaluation results: %w", err)
	}

	return nil
}

func (r *repo) Find(ctx context.Context, id string) (*Call, error) {
	c, err := repository.QueryOne(ctx, r.db, projection.Select()+" WHERE c.id = $1 AND NOT c.deleted", []any{id}, scanCall)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if c.Messages, err = repository.QueryMany(ctx, r.db,
		`SELECT id, role, message, seconds_from_start, duration, time, end_time
		 FROM messages WHERE call_id = $1 ORDER BY position`,
		[]any{id}, scanMessage); err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}

	if c.LatencyBlocks, err = repository.QueryMany(ctx, r.db,
		`SELECT seconds_from_start, duration FROM latency_blocks WHERE call_id = $1 ORDER BY position`,
		[]any{id}, scanLatencyBlock); err != nil {
		return nil, fmt.Errorf("query latency blocks: %w", err)
	}

	if c.Interruptions, err = repository.QueryMany(ctx, r.db,
		`SELECT seconds_from_start, duration, text FROM interruptions WHERE call_id = $1 ORDER BY position`,
		[]any{id}, scanInterruption); err != nil {
		return nil, fmt.Errorf("query interruptions: %w", err)
	}

	if c.EvaluationResults, err = repository.QueryMany(ctx, r.db,
		`SELECT id, evaluation_id, success, explanation FROM evaluation_results WHERE call_id = $1 ORDER BY position`,
		[]any{id}, scanEvaluationResult); err != nil {
		return nil, fmt.Errorf("query evaluation results: %w", err)
	}

	return &c, nil
}

func (r *repo) List(ctx context.Context, ownerID string, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Call], error) {
	page.Normalize(pagination.Defaults())

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("ownerId", ownerID).
		WhereEquals("deleted", false).
		WhereNotNull("customerCallId").
		WhereSearch(page.Search, "id", "customerCallId")
	filters.Apply(qb)
	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count calls: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	found, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanCall)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}

	result := pagination.NewPageResult(found, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Register(ctx context.Context, call *Call) error {
	if call.ID == "" || call.OwnerID == "" {
		return &PersistenceError{CallID: call.ID, Err: ErrInvalid}
	}

	c := queuedCall(call)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	metadataJSON, err := json.Marshal(c.Metadata)
	if err != nil {
		return &PersistenceError{CallID: c.ID, Err: fmt.Errorf("marshal metadata: %w", err)}
	}

	res, err := r.db.ExecContext(ctx, registerCallQ,
		c.ID, c.CustomerCallID, c.OwnerID, string(c.Status), c.StereoRecordingURL,
		metadataJSON, c.CreatedAt, nullTime(c.StartedAt),
	)
	if err != nil {
		return &PersistenceError{CallID: c.ID, Err: repository.MapError(err, ErrNotFound, ErrDuplicate)}
	}

	if n, _ := res.RowsAffected(); n > 0 {
		r.logger.WithFields(logrus.Fields{
			"call_id":  c.ID,
			"owner_id": c.OwnerID,
		}).Info("call registered")
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, id string) error {
	err := repository.ExecExpectOne(ctx, r.db,
		`UPDATE calls SET deleted = true, updated_at = NOW() WHERE id = $1 AND NOT deleted`, id)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}

func (r *repo) MarkFailed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE calls SET status = $2, updated_at = NOW()
		 WHERE id = $1 AND status <> $3`,
		id, string(StatusFailed), string(StatusCompleted),
	)
	if err != nil {
		return fmt.Errorf("mark call %s failed: %w", id, err)
	}
	return nil
}

func assignIDs(c *Call) {
	for i := range c.Messages {
		if c.Messages[i].ID == "" {
			c.Messages[i].ID = uuid.NewString()
		}
	}
	for i := range c.EvaluationResults {
		if c.EvaluationResults[i].ID == "" {
			c.EvaluationResults[i].ID = uuid.NewString()
		}
	}
}

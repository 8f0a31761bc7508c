package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JaimeStill/vigil/pkg/repository"
)

type pgQueue struct {
	db     *sql.DB
	logger *logrus.Entry
}

// New creates the Postgres-backed queue over the call_queue table.
// Concurrent consumers never claim the same row.
func New(db *sql.DB, logger *logrus.Entry) Queue {
	return &pgQueue{
		db:     db,
		logger: logger.WithField("system", "queue"),
	}
}

const receiveQ = `
	WITH next AS (
		SELECT id FROM call_queue
		WHERE dead_lettered_at IS NULL AND visible_at <= NOW()
		ORDER BY visible_at, id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	)
	UPDATE call_queue q
	SET deliveries = q.deliveries + 1,
	    receipt = gen_random_uuid()::text,
	    visible_at = NOW() + $2::bigint * INTERVAL '1 millisecond'
	FROM next
	WHERE q.id = next.id
	RETURNING q.id, q.receipt, q.body, q.deliveries, q.created_at`

func (q *pgQueue) Enqueue(ctx context.Context, body []byte) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO call_queue(body) VALUES ($1::jsonb) RETURNING id`,
		string(body),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("enqueue: %w", err)
	}
	return id, nil
}

func (q *pgQueue) Receive(ctx context.Context, max int, visibility time.Duration) ([]Message, error) {
	msgs, err := repository.QueryMany(ctx, q.db, receiveQ,
		[]any{max, visibility.Milliseconds()},
		func(s repository.Scanner) (Message, error) {
			var m Message
			err := s.Scan(&m.ID, &m.Receipt, &m.Body, &m.Deliveries, &m.EnqueuedAt)
			return m, err
		},
	)
	if err != nil {
		return nil, fmt.Errorf("receive: %w", err)
	}
	return msgs, nil
}

func (q *pgQueue) Delete(ctx context.Context, receipt string) error {
	err := repository.ExecExpectOne(ctx, q.db,
		`DELETE FROM call_queue WHERE receipt = $1`, receipt)
	return mapReceipt("delete", err)
}

func (q *pgQueue) Release(ctx context.Context, receipt string, delay time.Duration, cause error) error {
	err := repository.ExecExpectOne(ctx, q.db,
		`UPDATE call_queue
		 SET receipt = NULL,
		     visible_at = NOW() + $2::bigint * INTERVAL '1 millisecond',
		     last_error = $3
		 WHERE receipt = $1`,
		receipt, delay.Milliseconds(), errorText(cause))
	return mapReceipt("release", err)
}

func (q *pgQueue) DeadLetter(ctx context.Context, receipt, reason string) error {
	err := repository.ExecExpectOne(ctx, q.db,
		`UPDATE call_queue
		 SET receipt = NULL, dead_lettered_at = NOW(), last_error = $2
		 WHERE receipt = $1`,
		receipt, reason)
	if err == nil {
		q.logger.WithField("reason", reason).Warn("message dead-lettered")
	}
	return mapReceipt("dead-letter", err)
}

func mapReceipt(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrReceiptNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/vigil/pkg/repository"
)

var (
	errNotFound  = errors.New("not found")
	errDuplicate = errors.New("duplicate")
)

func TestMapError(t *testing.T) {
	other := errors.New("some other error")
	fk := &pgconn.PgError{Code: "23503"}

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", sql.ErrNoRows, errNotFound},
		{"wrapped no rows", fmt.Errorf("query: %w", sql.ErrNoRows), errNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, errDuplicate},
		{"foreign key passes through", fk, fk},
		{"other passes through", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := repository.MapError(tt.in, errNotFound, errDuplicate)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, repository.IsForeignKeyViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503"})))
	assert.False(t, repository.IsForeignKeyViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, repository.IsForeignKeyViolation(nil))
}

type recordingExecutor struct {
	queries []string
	calls   [][]any
	failAt  int
}

func (r *recordingExecutor) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	if len(r.calls) == r.failAt {
		return nil, errors.New("exec failed")
	}
	r.queries = append(r.queries, query)
	r.calls = append(r.calls, args)
	return nil, nil
}

func TestExecEach(t *testing.T) {
	rows := [][]any{{1, "a"}, {2, "b"}, {3, "c"}}

	t.Run("all rows", func(t *testing.T) {
		e := &recordingExecutor{failAt: -1}
		require.NoError(t, repository.ExecEach(context.Background(), e, "INSERT", rows))
		assert.Equal(t, rows, e.calls)
	})

	t.Run("stops at first error", func(t *testing.T) {
		e := &recordingExecutor{failAt: 1}
		err := repository.ExecEach(context.Background(), e, "INSERT", rows)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "row 1")
		assert.Len(t, e.calls, 1)
	})
}

func TestClearChildren(t *testing.T) {
	e := &recordingExecutor{failAt: -1}
	err := repository.ClearChildren(context.Background(), e, "call_id", "c1", "messages", "interruptions")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"DELETE FROM messages WHERE call_id = $1",
		"DELETE FROM interruptions WHERE call_id = $1",
	}, e.queries)
	assert.Equal(t, [][]any{{"c1"}, {"c1"}}, e.calls)

	e = &recordingExecutor{failAt: 1}
	err = repository.ClearChildren(context.Background(), e, "call_id", "c1", "messages", "interruptions")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear interruptions")
}

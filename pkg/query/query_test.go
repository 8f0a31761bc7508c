package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JaimeStill/vigil/pkg/query"
)

func projection() *query.ProjectionMap {
	return query.NewProjectionMap("calls", "c").
		Project("id", "id").
		Project("owner_id", "ownerId").
		Project("status", "status").
		Project("customer_call_id", "customerCallId").
		Project("created_at", "createdAt")
}

func TestParseSortFields(t *testing.T) {
	assert.Nil(t, query.ParseSortFields(""))
	assert.Equal(t, []query.SortField{
		{Field: "status"},
		{Field: "createdAt", Descending: true},
	}, query.ParseSortFields(" status, ,-createdAt"))
}

func TestBuildPage(t *testing.T) {
	search := "abc"
	status := ""

	sql, args := query.NewBuilder(projection(), query.SortField{Field: "createdAt", Descending: true}).
		WhereEquals("ownerId", "org1").
		WhereEquals("status", &status).
		WhereNotNull("customerCallId").
		WhereSearch(&search, "id", "customerCallId").
		BuildPage(3, 20)

	assert.Equal(t,
		"SELECT c.id, c.owner_id, c.status, c.customer_call_id, c.created_at FROM calls c"+
			" WHERE c.owner_id = $1 AND c.customer_call_id IS NOT NULL"+
			" AND (c.id ILIKE $2 OR c.customer_call_id ILIKE $3)"+
			" ORDER BY c.created_at DESC LIMIT 20 OFFSET 40",
		sql)
	assert.Equal(t, []any{"org1", "%abc%", "%abc%"}, args)
}

func TestBuildCount(t *testing.T) {
	sql, args := query.NewBuilder(projection()).
		WhereEquals("ownerId", "org1").
		BuildCount()

	assert.Equal(t, "SELECT COUNT(*) FROM calls c WHERE c.owner_id = $1", sql)
	assert.Equal(t, []any{"org1"}, args)
}

func TestUnknownFieldsNeverReachSQL(t *testing.T) {
	sql, args := query.NewBuilder(projection(), query.SortField{Field: "createdAt"}).
		WhereEquals("owner_id; DROP TABLE calls", "x").
		OrderByFields(query.ParseSortFields("-1;DROP")).
		BuildPage(1, 10)

	assert.Equal(t,
		"SELECT c.id, c.owner_id, c.status, c.customer_call_id, c.created_at FROM calls c"+
			" ORDER BY c.created_at ASC LIMIT 10 OFFSET 0",
		sql)
	assert.Empty(t, args)
}

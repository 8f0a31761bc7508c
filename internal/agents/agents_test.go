package agents_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/vigil/internal/agents"
)

func TestMemoryUpsertIsStable(t *testing.T) {
	sys := agents.NewMemory()
	ctx := context.Background()

	first, err := sys.Upsert(ctx, "org1", "a1")
	require.NoError(t, err)
	second, err := sys.Upsert(ctx, "org1", "a1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "a1", second.CustomerAgentID)
}

func TestMemoryUpsertScopesByOwner(t *testing.T) {
	sys := agents.NewMemory()
	ctx := context.Background()

	a, err := sys.Upsert(ctx, "org1", "a1")
	require.NoError(t, err)
	b, err := sys.Upsert(ctx, "org2", "a1")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestMemoryUpsertRequiresKeys(t *testing.T) {
	sys := agents.NewMemory()

	_, err := sys.Upsert(context.Background(), "", "a1")
	assert.ErrorIs(t, err, agents.ErrInvalid)

	_, err = sys.Upsert(context.Background(), "org1", "")
	assert.ErrorIs(t, err, agents.ErrInvalid)
}

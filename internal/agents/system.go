package agents

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/JaimeStill/vigil/pkg/repository"
)

// System resolves producer agent references to registered agents.
type System interface {
	// Upsert returns the agent keyed by (ownerID, customerAgentID),
	// registering it on first sight.
	Upsert(ctx context.Context, ownerID, customerAgentID string) (*Agent, error)
}

type repo struct {
	db     *sql.DB
	logger *logrus.Entry
}

// New creates the Postgres-backed agent registry.
func New(db *sql.DB, logger *logrus.Entry) System {
	return &repo{
		db:     db,
		logger: logger.WithField("system", "agents"),
	}
}

const upsertQ = `
	INSERT INTO agents(id, owner_id, customer_agent_id)
	VALUES ($1, $2, $3)
	ON CONFLICT (owner_id, customer_agent_id) DO UPDATE SET updated_at = NOW()
	RETURNING id, owner_id, customer_agent_id, created_at, updated_at`

func (r *repo) Upsert(ctx context.Context, ownerID, customerAgentID string) (*Agent, error) {
	if ownerID == "" || customerAgentID == "" {
		return nil, ErrInvalid
	}

	a, err := repository.QueryOne(ctx, r.db, upsertQ,
		[]any{uuid.NewString(), ownerID, customerAgentID},
		func(s repository.Scanner) (Agent, error) {
			var a Agent
			err := s.Scan(&a.ID, &a.OwnerID, &a.CustomerAgentID, &a.CreatedAt, &a.UpdatedAt)
			return a, err
		},
	)
	if err != nil {
		return nil, fmt.Errorf("upsert agent %s/%s: %w", ownerID, customerAgentID, err)
	}

	r.logger.WithFields(logrus.Fields{
		"agent_id":          a.ID,
		"owner_id":          ownerID,
		"customer_agent_id": customerAgentID,
	}).Debug("agent resolved")

	return &a, nil
}

type memory struct {
	mu     sync.Mutex
	agents map[[2]string]Agent
}

// NewMemory creates an in-process registry.
func NewMemory() System {
	return &memory{agents: make(map[[2]string]Agent)}
}

func (m *memory) Upsert(_ context.Context, ownerID, customerAgentID string) (*Agent, error) {
	if ownerID == "" || customerAgentID == "" {
		return nil, ErrInvalid
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := [2]string{ownerID, customerAgentID}
	now := time.Now()
	a, ok := m.agents[key]
	if !ok {
		a = Agent{
			ID:              uuid.NewString(),
			OwnerID:         ownerID,
			CustomerAgentID: customerAgentID,
			CreatedAt:       now,
		}
	}
	a.UpdatedAt = now
	m.agents[key] = a

	return &a, nil
}

// Package infrastructure builds the shared systems every vigil component
// leans on: the lifecycle coordinator, the logger, the Postgres pool, and
// the recording store.
package infrastructure

import (
	"fmt"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
	"github.com/sirupsen/logrus"

	"github.com/JaimeStill/vigil/internal/config"
	"github.com/JaimeStill/vigil/pkg/database"
	"github.com/JaimeStill/vigil/pkg/lifecycle"
	"github.com/JaimeStill/vigil/pkg/logger"
	"github.com/JaimeStill/vigil/pkg/storage"
)

type Infrastructure struct {
	Agent     gaconfig.AgentConfig
	Lifecycle *lifecycle.Coordinator
	Logger    *logrus.Entry
	Database  database.System
	Storage   storage.System
}

// starter is a system that registers hooks with the coordinator.
type starter interface {
	Start(lc *lifecycle.Coordinator) error
}

// New constructs the systems without touching the network.
func New(cfg *config.Config) (*Infrastructure, error) {
	log := logrus.NewEntry(logger.New(&cfg.Logging)).WithFields(logrus.Fields{
		"service": "vigil",
		"env":     cfg.Env(),
	})

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	store, err := storage.New(&cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	return &Infrastructure{
		Agent:     cfg.Agent,
		Lifecycle: lifecycle.New(),
		Logger:    log,
		Database:  db,
		Storage:   store,
	}, nil
}

// Start registers the database ping and the bucket check as startup hooks.
func (i *Infrastructure) Start() error {
	systems := map[string]starter{
		"database": i.Database,
		"storage":  i.Storage,
	}
	for name, s := range systems {
		if err := s.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("start %s: %w", name, err)
		}
	}
	return nil
}

// Ready reports whether startup finished and the database answered.
func (i *Infrastructure) Ready() bool {
	return i.Lifecycle.Ready() && i.Database.Ready()
}

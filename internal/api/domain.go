package api

import (
	"github.com/JaimeStill/vigil/internal/agents"
	"github.com/JaimeStill/vigil/internal/calls"
	"github.com/JaimeStill/vigil/internal/evaluations"
	"github.com/JaimeStill/vigil/internal/queue"
)

// Domain holds the Postgres-backed domain systems.
type Domain struct {
	Agents      agents.System
	Calls       calls.System
	Evaluations evaluations.System
	Queue       queue.Queue
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	db := runtime.Database.Connection()

	return &Domain{
		Agents:      agents.New(db, runtime.Logger),
		Calls:       calls.New(db, runtime.Logger),
		Evaluations: evaluations.New(db, runtime.Logger),
		Queue:       queue.New(db, runtime.Logger),
	}
}

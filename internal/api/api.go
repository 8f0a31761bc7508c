// Package api assembles the HTTP surface and the call analysis runtime.
package api

import (
	"context"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/JaimeStill/vigil/internal/calls"
	"github.com/JaimeStill/vigil/internal/config"
	"github.com/JaimeStill/vigil/internal/infrastructure"
	"github.com/JaimeStill/vigil/pkg/lifecycle"
	"github.com/JaimeStill/vigil/pkg/middleware"
	"github.com/JaimeStill/vigil/pkg/pagination"
	"github.com/JaimeStill/vigil/pkg/routes"
	"github.com/JaimeStill/vigil/pkg/storage"
)

// Prefixes at which the module routers are mounted. RecordingsPath
// matches the links issued by the recording archiver.
const (
	BasePath       = "/api"
	RecordingsPath = "/recordings"
)

// Module is the wired service: its routers and the analysis runtime.
type Module struct {
	API        chi.Router
	Recordings chi.Router
	Analysis   *Analysis
}

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	return &Module{
		API:        NewAPIRouter(domain, cfg.Pagination, runtime.Logger),
		Recordings: NewRecordingsRouter(runtime.Storage, runtime.Logger),
		Analysis:   NewAnalysis(runtime, domain),
	}, nil
}

// Start runs the queue consumer under the lifecycle coordinator once
// startup hooks have completed.
func (m *Module) Start(lc *lifecycle.Coordinator) {
	lc.Run(func(ctx context.Context) {
		lc.WaitForStartup()
		m.Analysis.Consumer.Run(ctx)
	})
}

// NewAPIRouter serves call listing, call lookup, and work item submission.
func NewAPIRouter(domain *Domain, pages pagination.Config, logger *logrus.Entry) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logger(logger))

	routes.Register(
		r,
		calls.NewHandler(domain.Calls, logger, pages).Routes(),
		newEnqueueHandler(domain.Queue, domain.Calls, logger).routes(),
	)
	return r
}

// NewRecordingsRouter serves archived recordings from store.
func NewRecordingsRouter(store storage.System, logger *logrus.Entry) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logger(logger))

	routes.Register(r, newRecordingsHandler(store, logger).routes())
	return r
}

// Package database opens the PostgreSQL pool shared by the calls,
// evaluations, and queue adapters and ties it to the process lifecycle.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"

	"github.com/JaimeStill/vigil/pkg/lifecycle"
	"github.com/JaimeStill/vigil/pkg/retry"
)

// System is the pool plus its readiness.
type System interface {
	lifecycle.ReadinessChecker
	Connection() *sql.DB
	// Start pings the database during startup and closes the pool on
	// shutdown.
	Start(lc *lifecycle.Coordinator) error
}

type pool struct {
	db          *sql.DB
	log         *logrus.Entry
	connTimeout time.Duration
	ready       atomic.Bool
}

// New configures the pool without connecting. sql.Open only validates the
// DSN; the first round trip happens in Start.
func New(cfg *Config, logger *logrus.Entry) (System, error) {
	db, err := sql.Open("pgx", cfg.Dsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &pool{
		db:          db,
		log:         logger.WithField("system", "database"),
		connTimeout: cfg.ConnTimeoutDuration(),
	}, nil
}

func (p *pool) Connection() *sql.DB { return p.db }

func (p *pool) Ready() bool { return p.ready.Load() }

func (p *pool) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup(func() {
		// Postgres often comes up alongside the service, so keep pinging
		// until the connect timeout runs out.
		err := retry.Do(lc.Context(), p.connTimeout, func() error {
			ctx, cancel := context.WithTimeout(lc.Context(), p.connTimeout)
			defer cancel()
			return p.db.PingContext(ctx)
		})
		if err != nil {
			p.log.WithError(err).Error("database unreachable")
			return
		}
		p.ready.Store(true)
		stats := p.db.Stats()
		p.log.WithField("max_open", stats.MaxOpenConnections).Info("database ready")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		p.ready.Store(false)
		if err := p.db.Close(); err != nil {
			p.log.WithError(err).Error("close database")
			return
		}
		p.log.Info("database closed")
	})

	return nil
}

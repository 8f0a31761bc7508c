package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/JaimeStill/vigil/internal/calls"
	"github.com/JaimeStill/vigil/internal/config"
	"github.com/JaimeStill/vigil/internal/queue"
	"github.com/JaimeStill/vigil/internal/workitem"
	"github.com/JaimeStill/vigil/pkg/database"
	"github.com/JaimeStill/vigil/pkg/logger"
)

var dsn string

var rootCmd = &cobra.Command{
	Use:           "enqueue",
	Short:         "Submit call-analysis work items to the Vigil queue",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(callCmd, importCmd)
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Database connection URL (defaults to the service configuration)")
}

// target is where submitted work items land: the queued call row and the
// queue message share one database.
type target struct {
	queue queue.Queue
	calls calls.System
}

func (t *target) submit(ctx context.Context, item workitem.CallWorkItem) (int64, error) {
	return workitem.Submit(ctx, t.queue, t.calls, item)
}

// openTarget connects to the service database. An explicit --dsn bypasses
// the service configuration entirely.
func openTarget(ctx context.Context) (*target, func(), *logrus.Entry, error) {
	dbCfg, logCfg, err := resolveConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	log := logrus.NewEntry(logger.New(logCfg)).WithField("system", "enqueue")

	sys, err := database.New(dbCfg, log)
	if err != nil {
		return nil, nil, nil, err
	}
	db := sys.Connection()

	pingCtx, cancel := context.WithTimeout(ctx, dbCfg.ConnTimeoutDuration())
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("connect database: %w", err)
	}

	closeFn := func() {
		if err := db.Close(); err != nil {
			log.WithError(err).Warn("close database")
		}
	}
	return &target{queue: queue.New(db, log), calls: calls.New(db, log)}, closeFn, log, nil
}

func resolveConfig() (*database.Config, *logger.Config, error) {
	if dsn == "" {
		return config.LoadDatabase()
	}

	dbCfg := &database.Config{URL: dsn}
	if err := dbCfg.Finalize(nil); err != nil {
		return nil, nil, err
	}
	logCfg := &logger.Config{}
	if err := logCfg.Finalize(nil); err != nil {
		return nil, nil, err
	}
	return dbCfg, logCfg, nil
}

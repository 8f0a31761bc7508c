package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/JaimeStill/vigil/internal/config"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("load .env")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config load failed")
	}

	srv, err := NewServer(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("server init failed")
	}

	if err := srv.Start(); err != nil {
		srv.logger.WithError(err).Fatal("server start failed")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	srv.logger.WithField("signal", sig.String()).Info("shutdown signal received")

	if err := srv.Shutdown(cfg.ShutdownTimeoutDuration()); err != nil {
		srv.logger.WithError(err).Fatal("shutdown failed")
	}

	srv.logger.Info("vigil stopped")
}

package main

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JaimeStill/vigil/internal/api"
	"github.com/JaimeStill/vigil/internal/config"
	"github.com/JaimeStill/vigil/internal/infrastructure"
)

type Server struct {
	infra  *infrastructure.Infrastructure
	module *api.Module
	http   *httpServer
	logger *logrus.Entry
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	module, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra, module)

	infra.Logger.WithFields(logrus.Fields{
		"addr":    cfg.Server.Addr(),
		"version": cfg.Version,
		"mode":    cfg.Pipeline.Mode,
	}).Info("server initialized")

	return &Server{
		infra:  infra,
		module: module,
		http:   newHTTPServer(&cfg.Server, router, infra.Logger),
		logger: infra.Logger,
	}, nil
}

func (s *Server) Start() error {
	s.logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}

	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	s.module.Start(s.infra.Lifecycle)

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		s.logger.Info("all subsystems ready")
	}()

	return nil
}

func (s *Server) Shutdown(timeout time.Duration) error {
	s.logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}

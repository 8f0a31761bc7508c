package api

import (
	"context"
	"net/http"

	"github.com/JaimeStill/vigil/internal/alerts"
	"github.com/JaimeStill/vigil/internal/assess"
	"github.com/JaimeStill/vigil/internal/calls"
	"github.com/JaimeStill/vigil/internal/consumer"
	"github.com/JaimeStill/vigil/internal/judge"
	"github.com/JaimeStill/vigil/internal/metering"
	"github.com/JaimeStill/vigil/internal/pipeline"
	"github.com/JaimeStill/vigil/internal/recording"
	"github.com/JaimeStill/vigil/internal/transcription"
	"github.com/JaimeStill/vigil/internal/webhook"
	"github.com/JaimeStill/vigil/pkg/storage"
)

// Analysis is the wired pipeline and the consumer that feeds it.
type Analysis struct {
	Pipeline *pipeline.Runtime
	Consumer *consumer.Consumer
}

// NewAnalysis assembles every pipeline collaborator from configuration.
func NewAnalysis(runtime *Runtime, domain *Domain) *Analysis {
	cfg := runtime.Config
	logger := runtime.Logger

	fetchClient := &http.Client{Timeout: cfg.Pipeline.ArchiveTimeoutDuration()}
	maxBytes := cfg.Pipeline.MaxRecordingBytes()

	var meter metering.Meter = metering.NewNoop(logger)
	if cfg.Metering.Enabled() {
		meter = metering.New(
			cfg.Metering.BaseURL,
			cfg.Metering.APIKey,
			&http.Client{Timeout: cfg.Metering.TimeoutDuration()},
			cfg.Metering.TimeoutDuration(),
			logger,
		)
	}

	notifier := alerts.NewSlack(
		&http.Client{Timeout: cfg.Alerting.TimeoutDuration()},
		cfg.Alerting.SlackWebhookURL,
		cfg.Alerting.Owners,
		cfg.Alerting.TimeoutDuration(),
		logger,
	)

	llm := judge.NewLLM(runtime.Agent, cfg.Pipeline.LLMTimeoutDuration(), logger)

	rt := &pipeline.Runtime{
		Sources: recording.NewResolver(
			cfg.Pipeline.RecordingDomain,
			cfg.Storage.ContainerName,
			storage.PresignExpiry,
			runtime.Storage,
			logger,
		),
		Prober: recording.NewProber(
			recording.ExecRunner{},
			fetchClient,
			maxBytes,
			cfg.Pipeline.TempDir,
			logger,
		),
		Archiver: recording.NewArchiver(
			recording.ExecRunner{},
			fetchClient,
			runtime.Storage,
			cfg.Pipeline.PublicURL,
			maxBytes,
			logger,
		),
		Transcriber: transcription.New(cfg.Transcription.BaseURL, cfg.Transcription.Secret, logger),
		Resolver:    assess.NewResolver(domain.Evaluations, llm, logger),
		Executor:    assess.NewExecutor(llm, logger),
		Calls:       domain.Calls,
		Meter:       meter,
		Alerts:      alerts.New(domain.Evaluations, notifier, cfg.DashboardURL, logger),
		Options: pipeline.Options{
			Production:       cfg.Pipeline.IsProduction(),
			FallbackDuration: cfg.Pipeline.FallbackSeconds(),
			TestFileURL:      cfg.Pipeline.TestFileURL,
			ProbeTimeout:     cfg.Pipeline.ProbeTimeoutDuration(),
			ArchiveTimeout:   cfg.Pipeline.ArchiveTimeoutDuration(),
			SettleTimeout:    cfg.Pipeline.SettleTimeoutDuration(),
		},
		Logger: logger.WithField("system", "pipeline"),
	}

	hooks := webhook.New(
		cfg.DashboardURL,
		&http.Client{Timeout: cfg.Webhook.TimeoutDuration()},
		cfg.Webhook.TimeoutDuration(),
		logger,
	)

	process := func(ctx context.Context, job pipeline.Job) (*calls.Call, error) {
		return pipeline.Execute(ctx, rt, job)
	}

	c := consumer.New(
		domain.Queue,
		domain.Agents,
		domain.Calls,
		hooks,
		process,
		consumer.Options{
			Concurrency:   cfg.Queue.Concurrency,
			BatchSize:     cfg.Queue.BatchSize,
			Visibility:    cfg.Queue.VisibilityDuration(),
			PollInterval:  cfg.Queue.PollIntervalDuration(),
			PollJitter:    cfg.Queue.PollJitterDuration(),
			RetryDelay:    cfg.Queue.RetryDelayDuration(),
			MaxDeliveries: cfg.Queue.MaxDeliveries,
			RestartDelay:  cfg.Queue.RestartDelayDuration(),
			CallTimeout:   cfg.Pipeline.CallTimeoutDuration(),
		},
		logger,
	)

	return &Analysis{Pipeline: rt, Consumer: c}
}

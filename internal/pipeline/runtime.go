package pipeline

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JaimeStill/vigil/internal/alerts"
	"github.com/JaimeStill/vigil/internal/assess"
	"github.com/JaimeStill/vigil/internal/calls"
	"github.com/JaimeStill/vigil/internal/metering"
	"github.com/JaimeStill/vigil/internal/recording"
	"github.com/JaimeStill/vigil/internal/transcription"
)

// Prober reads recording media properties.
type Prober interface {
	Probe(ctx context.Context, src recording.Source) (*recording.Media, error)
}

// Archiver persists a recording and returns its retrieval URL.
type Archiver interface {
	Archive(ctx context.Context, callID string, src recording.Source, flipped bool) (string, error)
}

// Options tune stage behaviour.
type Options struct {
	// Production disables every development fallback.
	Production bool
	// FallbackDuration in seconds replaces a failed probe outside production.
	FallbackDuration float64
	// TestFileURL replaces every recording URL outside production and
	// skips probing in favour of FallbackDuration.
	TestFileURL    string
	ProbeTimeout   time.Duration
	ArchiveTimeout time.Duration
	SettleTimeout  time.Duration
}

// Runtime bundles the dependencies that pipeline nodes require.
type Runtime struct {
	Sources     *recording.Resolver
	Prober      Prober
	Archiver    Archiver
	Transcriber transcription.Transcriber
	Resolver    *assess.Resolver
	Executor    *assess.Executor
	Calls       calls.System
	Meter       metering.Meter
	Alerts      alerts.Dispatcher
	Options     Options
	Logger      *logrus.Entry
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

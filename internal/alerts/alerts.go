// Package alerts evaluates the alert rules attached to matching saved
// searches and notifies the owning organization when one fires.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JaimeStill/vigil/internal/calls"
	"github.com/JaimeStill/vigil/internal/evaluations"
	"github.com/JaimeStill/vigil/internal/stats"
	"github.com/JaimeStill/vigil/pkg/metrics"
)

// Bundle is everything the dispatcher needs about a finished call.
type Bundle struct {
	OwnerID          string
	LatencyDurations []float64
	SavedSearches    []evaluations.SavedSearch
	GroupResults     map[string]bool
	Call             *calls.Call
}

// Dispatcher consumes bundles for rule-path calls.
type Dispatcher interface {
	Dispatch(ctx context.Context, b Bundle) error
}

// Notification is a fired alert.
type Notification struct {
	AlertID       string
	AlertName     string
	Type          evaluations.AlertType
	SavedSearch   string
	CallID        string
	Reason        string
	DashboardLink string
}

// Notifier delivers notifications to an organization.
type Notifier interface {
	Notify(ctx context.Context, ownerID string, n Notification) error
}

// Recorder persists alert firing times for cooldown bookkeeping.
type Recorder interface {
	MarkAlerted(ctx context.Context, alertID string, at time.Time) error
}

// Service is the rule-evaluating Dispatcher.
type Service struct {
	recorder     Recorder
	notifier     Notifier
	dashboardURL string
	now          func() time.Time
	logger       *logrus.Entry
}

// New creates a Service. Links in notifications are rooted at dashboardURL.
func New(recorder Recorder, notifier Notifier, dashboardURL string, logger *logrus.Entry) *Service {
	return &Service{
		recorder:     recorder,
		notifier:     notifier,
		dashboardURL: dashboardURL,
		now:          time.Now,
		logger:       logger.WithField("system", "alerts"),
	}
}

// Dispatch evaluates every enabled alert of every saved search in b. An
// alert still inside its cooldown window is skipped. Failures of single
// alerts do not stop the others and are returned joined.
func (s *Service) Dispatch(ctx context.Context, b Bundle) error {
	now := s.now()
	var errs []error

	for _, ss := range b.SavedSearches {
		for _, a := range ss.Alerts {
			if !a.Enabled || a.CoolingDown(now) {
				continue
			}

			reason, fire, err := evaluate(a, b)
			if err != nil {
				errs = append(errs, fmt.Errorf("alert %s: %w", a.ID, err))
				continue
			}
			if !fire {
				continue
			}

			if err := s.fire(ctx, now, ss, a, reason, b); err != nil {
				errs = append(errs, fmt.Errorf("alert %s: %w", a.ID, err))
			}
		}
	}

	return errors.Join(errs...)
}

func (s *Service) fire(ctx context.Context, now time.Time, ss evaluations.SavedSearch, a evaluations.Alert, reason string, b Bundle) error {
	n := Notification{
		AlertID:     a.ID,
		AlertName:   a.Name,
		Type:        a.Type,
		SavedSearch: ss.Name,
		Reason:      reason,
	}
	if b.Call != nil {
		n.CallID = b.Call.CustomerCallID
		n.DashboardLink = fmt.Sprintf("%s/observe/%s", s.dashboardURL, b.Call.CustomerCallID)
	}

	if err := s.notifier.Notify(ctx, b.OwnerID, n); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	if err := s.recorder.MarkAlerted(ctx, a.ID, now); err != nil {
		return fmt.Errorf("mark alerted: %w", err)
	}

	metrics.IncreaseAlertsTotal(string(a.Type))
	s.logger.WithFields(logrus.Fields{
		"alert_id": a.ID,
		"owner_id": b.OwnerID,
		"type":     a.Type,
		"call_id":  n.CallID,
	}).Info("alert fired")

	return nil
}

func evaluate(a evaluations.Alert, b Bundle) (string, bool, error) {
	switch a.Type {
	case evaluations.AlertLatency:
		d, err := a.LatencyDetails()
		if err != nil {
			return "", false, fmt.Errorf("decode latency details: %w", err)
		}
		p, err := percentileOf(d.Percentile)
		if err != nil {
			return "", false, err
		}
		if len(b.LatencyDurations) == 0 {
			return "", false, nil
		}
		ms := stats.Percentile(b.LatencyDurations, p) * 1000
		if ms <= d.Threshold {
			return "", false, nil
		}
		return fmt.Sprintf("%s latency %.0fms exceeded %.0fms", d.Percentile, ms, d.Threshold), true, nil

	case evaluations.AlertEvalSet:
		d, err := a.EvalSetDetails()
		if err != nil {
			return "", false, fmt.Errorf("decode evalset details: %w", err)
		}
		result, ok := b.GroupResults[d.EvalSetID]
		if !ok || result != d.Trigger {
			return "", false, nil
		}
		outcome := "failed"
		if result {
			outcome = "passed"
		}
		return fmt.Sprintf("evaluation set %s %s", d.EvalSetID, outcome), true, nil

	default:
		return "", false, fmt.Errorf("unknown alert type %q", a.Type)
	}
}

func percentileOf(p evaluations.Percentile) (float64, error) {
	switch p {
	case evaluations.P50:
		return 50, nil
	case evaluations.P90:
		return 90, nil
	case evaluations.P95:
		return 95, nil
	default:
		return 0, fmt.Errorf("unknown percentile %q", p)
	}
}

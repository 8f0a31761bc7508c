package alerts_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/vigil/internal/alerts"
	"github.com/JaimeStill/vigil/internal/calls"
	"github.com/JaimeStill/vigil/internal/evaluations"
	"github.com/JaimeStill/vigil/pkg/logger"
)

type captureNotifier struct {
	sent []alerts.Notification
	err  error
}

func (c *captureNotifier) Notify(_ context.Context, _ string, n alerts.Notification) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, n)
	return nil
}

func latencyAlert(id string, p evaluations.Percentile, threshold float64) evaluations.Alert {
	details, _ := json.Marshal(evaluations.LatencyDetails{Percentile: p, Threshold: threshold})
	return evaluations.Alert{ID: id, Name: id, Enabled: true, Type: evaluations.AlertLatency, Details: details, CooldownMinutes: 30}
}

func evalSetAlert(id, group string, trigger bool) evaluations.Alert {
	details, _ := json.Marshal(evaluations.EvalSetDetails{EvalSetID: group, Trigger: trigger})
	return evaluations.Alert{ID: id, Name: id, Enabled: true, Type: evaluations.AlertEvalSet, Details: details, CooldownMinutes: 30}
}

func setup(t *testing.T, alertList ...evaluations.Alert) (*evaluations.Memory, *captureNotifier, *alerts.Service) {
	t.Helper()
	m := evaluations.NewMemory()
	m.AddSavedSearch(evaluations.SavedSearch{ID: "ss1", OwnerID: "org1", Name: "production", Alerts: alertList})
	n := &captureNotifier{}
	return m, n, alerts.New(m, n, "https://dash.example.com", logger.Discard())
}

func bundle(t *testing.T, m *evaluations.Memory) alerts.Bundle {
	t.Helper()
	searches, err := m.SavedSearches(context.Background(), "org1")
	require.NoError(t, err)
	return alerts.Bundle{
		OwnerID:          "org1",
		LatencyDurations: []float64{0.5, 1.2, 3.0},
		SavedSearches:    searches,
		GroupResults:     map[string]bool{"g1": false, "g2": true},
		Call:             &calls.Call{ID: "c1", CustomerCallID: "c1"},
	}
}

func TestDispatchLatency(t *testing.T) {
	m, n, svc := setup(t,
		latencyAlert("slow-p95", evaluations.P95, 2000),
		latencyAlert("fast-p50", evaluations.P50, 2000),
	)

	require.NoError(t, svc.Dispatch(context.Background(), bundle(t, m)))

	require.Len(t, n.sent, 1)
	assert.Equal(t, "slow-p95", n.sent[0].AlertID)
	assert.Contains(t, n.sent[0].Reason, "3000ms")
	assert.Equal(t, "https://dash.example.com/observe/c1", n.sent[0].DashboardLink)

	_, ok := m.LastAlerted("slow-p95")
	assert.True(t, ok)
	_, ok = m.LastAlerted("fast-p50")
	assert.False(t, ok)
}

func TestDispatchEvalSet(t *testing.T) {
	m, n, svc := setup(t,
		evalSetAlert("g1-failed", "g1", false),
		evalSetAlert("g2-failed", "g2", false),
		evalSetAlert("g3-failed", "g3", false),
	)

	require.NoError(t, svc.Dispatch(context.Background(), bundle(t, m)))

	require.Len(t, n.sent, 1)
	assert.Equal(t, "g1-failed", n.sent[0].AlertID)
}

func TestDispatchRespectsCooldownAndEnabled(t *testing.T) {
	recent := time.Now().Add(-5 * time.Minute)
	cooling := evalSetAlert("cooling", "g1", false)
	cooling.LastAlerted = &recent
	disabled := evalSetAlert("disabled", "g1", false)
	disabled.Enabled = false

	m, n, svc := setup(t, cooling, disabled)
	require.NoError(t, m.MarkAlerted(context.Background(), "cooling", recent))

	require.NoError(t, svc.Dispatch(context.Background(), bundle(t, m)))
	assert.Empty(t, n.sent)
}

func TestDispatchSecondRunIsCoolingDown(t *testing.T) {
	m, n, svc := setup(t, evalSetAlert("g1-failed", "g1", false))

	require.NoError(t, svc.Dispatch(context.Background(), bundle(t, m)))
	require.NoError(t, svc.Dispatch(context.Background(), bundle(t, m)))
	assert.Len(t, n.sent, 1)
}

func TestDispatchCollectsErrors(t *testing.T) {
	bad := evaluations.Alert{ID: "bad", Enabled: true, Type: "volume"}
	m, n, svc := setup(t, bad, evalSetAlert("g1-failed", "g1", false))

	err := svc.Dispatch(context.Background(), bundle(t, m))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alert bad")
	assert.Len(t, n.sent, 1, "one broken rule does not stop the rest")
}

func TestDispatchNotifyFailureDoesNotMark(t *testing.T) {
	m, n, svc := setup(t, evalSetAlert("g1-failed", "g1", false))
	n.err = errors.New("webhook down")

	require.Error(t, svc.Dispatch(context.Background(), bundle(t, m)))
	_, ok := m.LastAlerted("g1-failed")
	assert.False(t, ok)
}

func TestSlackNotify(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var msg map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		assert.Contains(t, msg["text"], "Alert *slow*")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := alerts.NewSlack(srv.Client(), "", map[string]string{"org1": srv.URL}, 5*time.Second, logger.Discard())

	err := s.Notify(context.Background(), "org1", alerts.Notification{AlertName: "slow", Reason: "p95 latency"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestSlackNotifyWithoutWebhookIsSkipped(t *testing.T) {
	s := alerts.NewSlack(http.DefaultClient, "", nil, time.Second, logger.Discard())
	assert.NoError(t, s.Notify(context.Background(), "org1", alerts.Notification{}))
}

func TestFormatText(t *testing.T) {
	text := alerts.FormatText(alerts.Notification{
		AlertName:     "slow",
		SavedSearch:   "production",
		Reason:        "p95 latency 3000ms exceeded 2000ms",
		CallID:        "c1",
		DashboardLink: "https://dash.example.com/observe/c1",
	})

	assert.Contains(t, text, "Alert *slow* on saved search *production*: p95 latency")
	assert.Contains(t, text, "Call: c1")
	assert.Contains(t, text, "<https://dash.example.com/observe/c1|View call>")
}

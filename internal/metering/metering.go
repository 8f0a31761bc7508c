// Package metering accrues billable observability minutes against the
// organization that owns an analysed call.
package metering

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JaimeStill/vigil/pkg/metrics"
	"github.com/JaimeStill/vigil/pkg/retry"
)

const accruePath = "/observability-minutes"

// Meter accrues usage.
type Meter interface {
	AccrueObservabilityMinutes(ctx context.Context, ownerID string, minutes int) error
}

// Minutes converts a call duration in seconds to billable whole minutes.
func Minutes(durationSeconds float64) int {
	if durationSeconds <= 0 {
		return 0
	}
	return int(math.Ceil(durationSeconds / 60))
}

type accrueRequest struct {
	OrgID   string `json:"orgId"`
	Minutes int    `json:"minutes"`
}

// Client posts usage to the billing service.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	budget  time.Duration
	logger  *logrus.Entry
}

// New creates a Client. Each accrual retries transient failures for at
// most budget.
func New(baseURL, apiKey string, client *http.Client, budget time.Duration, logger *logrus.Entry) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
		budget:  budget,
		logger:  logger.WithField("system", "metering"),
	}
}

func (c *Client) AccrueObservabilityMinutes(ctx context.Context, ownerID string, minutes int) error {
	body, err := json.Marshal(accrueRequest{OrgID: ownerID, Minutes: minutes})
	if err != nil {
		return err
	}

	err = retry.Do(ctx, c.budget, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+accruePath, bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
			return &retry.StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("accrue %d minutes for %s: %w", minutes, ownerID, err)
	}

	metrics.AddObservabilityMinutes(minutes)
	c.logger.WithFields(logrus.Fields{
		"owner_id": ownerID,
		"minutes":  minutes,
	}).Debug("observability minutes accrued")

	return nil
}

// Noop discards usage. It is used when no billing service is configured.
type Noop struct {
	logger *logrus.Entry
}

// NewNoop creates a Noop meter.
func NewNoop(logger *logrus.Entry) *Noop {
	return &Noop{logger: logger.WithField("system", "metering")}
}

func (n *Noop) AccrueObservabilityMinutes(_ context.Context, ownerID string, minutes int) error {
	n.logger.WithFields(logrus.Fields{
		"owner_id": ownerID,
		"minutes":  minutes,
	}).Debug("metering disabled, usage not recorded")
	return nil
}

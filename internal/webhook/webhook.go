// Package webhook notifies producers when their call finishes processing.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JaimeStill/vigil/internal/calls"
	"github.com/JaimeStill/vigil/pkg/retry"
)

// SuccessPayload is posted after a call completes.
type SuccessPayload struct {
	Success bool        `json:"success"`
	Call    *calls.Call `json:"call"`
	URL     string      `json:"url"`
}

// FailurePayload is posted after a call aborts.
type FailurePayload struct {
	Success bool   `json:"success"`
	CallID  string `json:"callId"`
	Error   string `json:"error"`
}

// Sender delivers completion callbacks.
type Sender interface {
	Success(ctx context.Context, url string, call *calls.Call) error
	Failure(ctx context.Context, url, callID string, cause error) error
}

// Client is the HTTP Sender.
type Client struct {
	dashboardURL string
	client       *http.Client
	budget       time.Duration
	logger       *logrus.Entry
}

// New creates a Client. Success payloads link to the call under dashboardURL.
func New(dashboardURL string, client *http.Client, budget time.Duration, logger *logrus.Entry) *Client {
	return &Client{
		dashboardURL: strings.TrimRight(dashboardURL, "/"),
		client:       client,
		budget:       budget,
		logger:       logger.WithField("system", "webhook"),
	}
}

// ObserveURL is the dashboard page for a call.
func ObserveURL(dashboardURL, customerCallID string) string {
	return fmt.Sprintf("%s/observe/%s", strings.TrimRight(dashboardURL, "/"), customerCallID)
}

func (c *Client) Success(ctx context.Context, url string, call *calls.Call) error {
	return c.post(ctx, url, call.ID, SuccessPayload{
		Success: true,
		Call:    call,
		URL:     ObserveURL(c.dashboardURL, call.CustomerCallID),
	})
}

func (c *Client) Failure(ctx context.Context, url, callID string, cause error) error {
	msg := "processing failed"
	if cause != nil {
		msg = cause.Error()
	}
	return c.post(ctx, url, callID, FailurePayload{
		Success: false,
		CallID:  callID,
		Error:   msg,
	})
}

func (c *Client) post(ctx context.Context, url, callID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	err = retry.Do(ctx, c.budget, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

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
		return fmt.Errorf("webhook for call %s: %w", callID, err)
	}

	c.logger.WithField("call_id", callID).Debug("webhook delivered")
	return nil
}

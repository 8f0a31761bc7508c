package alerts

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

	"github.com/JaimeStill/vigil/pkg/retry"
)

// Slack posts notifications to Slack-compatible incoming webhooks. Each
// owner may have its own webhook; owners without one use the default.
// Owners with neither are skipped.
type Slack struct {
	client   *http.Client
	byOwner  map[string]string
	fallback string
	budget   time.Duration
	logger   *logrus.Entry
}

// NewSlack creates a Slack notifier.
func NewSlack(client *http.Client, fallback string, byOwner map[string]string, budget time.Duration, logger *logrus.Entry) *Slack {
	return &Slack{
		client:   client,
		byOwner:  byOwner,
		fallback: fallback,
		budget:   budget,
		logger:   logger.WithField("system", "slack"),
	}
}

type slackMessage struct {
	Text string `json:"text"`
}

func (s *Slack) Notify(ctx context.Context, ownerID string, n Notification) error {
	url := s.byOwner[ownerID]
	if url == "" {
		url = s.fallback
	}
	if url == "" {
		s.logger.WithFields(logrus.Fields{
			"owner_id": ownerID,
			"alert_id": n.AlertID,
		}).Warn("no webhook configured, notification skipped")
		return nil
	}

	body, err := json.Marshal(slackMessage{Text: FormatText(n)})
	if err != nil {
		return err
	}

	return retry.Do(ctx, s.budget, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
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
}

// FormatText renders the message body for a notification.
func FormatText(n Notification) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, ":rotating_light: Alert *%s*", n.AlertName)
	if n.SavedSearch != "" {
		fmt.Fprintf(&sb, " on saved search *%s*", n.SavedSearch)
	}
	fmt.Fprintf(&sb, ": %s", n.Reason)
	if n.CallID != "" {
		fmt.Fprintf(&sb, "\nCall: %s", n.CallID)
	}
	if n.DashboardLink != "" {
		fmt.Fprintf(&sb, "\n<%s|View call>", n.DashboardLink)
	}
	return sb.String()
}

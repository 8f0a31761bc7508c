// Package transcription calls the audio service that turns a stereo
// recording into speaker turns, interruption events, and latency blocks.
package transcription

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
)

// Timeout bounds a single transcription request.
const Timeout = 3 * time.Minute

const transcribePath = "/transcribe-deepgram"

// Segment is one speaker-labelled span of the transcript.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Role  string  `json:"role"`
}

// Interruption is a detected cut-in event.
type Interruption struct {
	SecondsFromStart float64 `json:"secondsFromStart"`
	Duration         float64 `json:"duration"`
	Text             string  `json:"text"`
}

// LatencyBlock is a response gap after user speech.
type LatencyBlock struct {
	SecondsFromStart float64 `json:"secondsFromStart"`
	Duration         float64 `json:"duration"`
}

// Result is the service response. Absent lists decode as empty.
type Result struct {
	Segments      []Segment      `json:"segments"`
	Interruptions []Interruption `json:"interruptions"`
	LatencyBlocks []LatencyBlock `json:"latencyBlocks"`
}

// Transcriber produces a transcript for a playable recording URL.
type Transcriber interface {
	Transcribe(ctx context.Context, recordingURL, language string) (*Result, error)
}

type request struct {
	StereoAudioURL string `json:"stereo_audio_url"`
	Language       string `json:"language,omitempty"`
}

// Client is the HTTP Transcriber.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
	logger  *logrus.Entry
}

// New creates a Client for the audio service at baseURL, authenticating
// with the shared secret as a bearer token.
func New(baseURL, secret string, logger *logrus.Entry) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		http:    &http.Client{Timeout: Timeout},
		logger:  logger.WithField("system", "transcription"),
	}
}

// Transcribe issues one request; failures are never retried here.
func (c *Client) Transcribe(ctx context.Context, recordingURL, language string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	body, err := json.Marshal(request{StereoAudioURL: recordingURL, Language: language})
	if err != nil {
		return nil, &ServiceError{Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+transcribePath, bytes.NewReader(body))
	if err != nil {
		return nil, &ServiceError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secret)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ServiceError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &ServiceError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(snippet))),
		}
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	result.normalize()

	c.logger.WithFields(logrus.Fields{
		"segments":       len(result.Segments),
		"interruptions":  len(result.Interruptions),
		"latency_blocks": len(result.LatencyBlocks),
		"duration":       time.Since(start).String(),
	}).Debug("transcription received")

	return &result, nil
}

func (r *Result) normalize() {
	if r.Segments == nil {
		r.Segments = []Segment{}
	}
	if r.Interruptions == nil {
		r.Interruptions = []Interruption{}
	}
	if r.LatencyBlocks == nil {
		r.LatencyBlocks = []LatencyBlock{}
	}
}

// LatencyDurations returns latency block durations in transcript order.
func (r *Result) LatencyDurations() []float64 {
	out := make([]float64, len(r.LatencyBlocks))
	for i, b := range r.LatencyBlocks {
		out[i] = b.Duration
	}
	return out
}

// InterruptionDurations returns interruption durations in transcript order.
func (r *Result) InterruptionDurations() []float64 {
	out := make([]float64, len(r.Interruptions))
	for i, in := range r.Interruptions {
		out[i] = in.Duration
	}
	return out
}

package transcription_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/vigil/internal/transcription"
	"github.com/JaimeStill/vigil/pkg/logger"
)

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transcribe-deepgram", r.URL.Path)
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://store/x.wav", body["stereo_audio_url"])
		assert.Equal(t, "es", body["language"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"segments": [{"start": 0.5, "end": 1.5, "text": "Hello", "role": "agent"}],
			"interruptions": [{"secondsFromStart": 3, "duration": 2.5, "text": "wait"}, {"secondsFromStart": 9, "duration": 1.0, "text": "no"}],
			"latencyBlocks": null
		}`))
	}))
	defer srv.Close()

	c := transcription.New(srv.URL+"/", "s3cret", logger.Discard())
	res, err := c.Transcribe(context.Background(), "https://store/x.wav", "es")
	require.NoError(t, err)

	require.Len(t, res.Segments, 1)
	assert.Equal(t, "agent", res.Segments[0].Role)
	assert.Equal(t, []float64{2.5, 1.0}, res.InterruptionDurations())
	assert.NotNil(t, res.LatencyBlocks)
	assert.Empty(t, res.LatencyDurations())
}

func TestTranscribeNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := transcription.New(srv.URL, "s3cret", logger.Discard())
	_, err := c.Transcribe(context.Background(), "https://store/x.wav", "")
	require.Error(t, err)

	var serr *transcription.ServiceError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusBadGateway, serr.StatusCode)
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestTranscribeCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := transcription.New(srv.URL, "s3cret", logger.Discard())
	_, err := c.Transcribe(ctx, "https://store/x.wav", "")

	var serr *transcription.ServiceError
	require.ErrorAs(t, err, &serr)
	assert.Zero(t, serr.StatusCode)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTranscribeBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := transcription.New(srv.URL, "s3cret", logger.Discard())
	_, err := c.Transcribe(context.Background(), "https://store/x.wav", "")

	var serr *transcription.ServiceError
	assert.ErrorAs(t, err, &serr)
}

package recording

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// RoutePrefix is the server path under which archived recordings are served.
const RoutePrefix = "/recordings/"

// Uploader persists archived bytes.
type Uploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
}

// Archiver normalizes recordings to stereo WAV and stores them.
type Archiver struct {
	runner   Runner
	client   *http.Client
	store    Uploader
	baseURL  string
	maxBytes int64
	now      func() time.Time
	logger   *logrus.Entry
}

// NewArchiver creates an Archiver whose returned URLs are rooted at baseURL.
func NewArchiver(runner Runner, client *http.Client, store Uploader, baseURL string, maxBytes int64, logger *logrus.Entry) *Archiver {
	return &Archiver{
		runner:   runner,
		client:   client,
		store:    store,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
		now:      time.Now,
		logger:   logger.WithField("system", "archive"),
	}
}

// Archive downloads src, transcodes it to stereo WAV unless the bytes are
// already a two-channel WAV and flipped is false, uploads it, and returns
// the retrieval URL. When flipped the left and right channels are swapped.
func (a *Archiver) Archive(ctx context.Context, callID string, src Source, flipped bool) (string, error) {
	body, contentType, err := fetch(ctx, a.client, src, a.maxBytes)
	if err != nil {
		return "", &ArchiveError{CallID: callID, Err: err}
	}

	ext := ExtensionFor(contentType)
	if flipped || !isStereoWAV(body) {
		var out bytes.Buffer
		if err := a.runner.Run(ctx, "ffmpeg", TranscodeArgs(flipped), bytes.NewReader(body), &out); err != nil {
			return "", &ArchiveError{CallID: callID, Err: fmt.Errorf("transcode %s: %w", ext, err)}
		}
		body = out.Bytes()
	}

	name := fmt.Sprintf("%s-%d.wav", callID, a.now().UnixMilli())
	if err := a.store.Upload(ctx, name, bytes.NewReader(body), "audio/wav"); err != nil {
		return "", &ArchiveError{CallID: callID, Err: fmt.Errorf("upload: %w", err)}
	}

	a.logger.WithFields(logrus.Fields{
		"call_id":      callID,
		"source_type":  contentType,
		"flipped":      flipped,
		"key":          name,
		"archived_len": len(body),
	}).Info("recording archived")

	return a.baseURL + RoutePrefix + name, nil
}

// ExtensionFor maps a content type to the file extension reported in
// transcode errors.
func ExtensionFor(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "mpeg"), strings.Contains(ct, "mp3"):
		return "mp3"
	case strings.Contains(ct, "wav"):
		return "wav"
	case strings.Contains(ct, "ogg"):
		return "ogg"
	case strings.Contains(ct, "m4a"):
		return "m4a"
	case strings.Contains(ct, "video/mp4"):
		return "mp4"
	default:
		return "bin"
	}
}

// TranscodeArgs returns the ffmpeg arguments that read any input on stdin
// and write two-channel WAV to stdout.
func TranscodeArgs(flipped bool) []string {
	args := []string{"-i", "pipe:0"}
	if flipped {
		args = append(args, "-af", "pan=stereo|c1=c0|c0=c1")
	} else {
		args = append(args, "-ac", "2")
	}
	return append(args, "-f", "wav", "pipe:1")
}

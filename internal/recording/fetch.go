package recording

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JaimeStill/vigil/pkg/formatting"
	"github.com/JaimeStill/vigil/pkg/retry"
)

// ErrTooLarge is returned when a recording exceeds the configured limit.
var ErrTooLarge = fmt.Errorf("recording exceeds size limit")

const fetchRetryBudget = 30 * time.Second

// fetch downloads src, retrying transient failures, and returns the body
// with its declared or sniffed content type.
func fetch(ctx context.Context, client *http.Client, src Source, maxBytes int64) ([]byte, string, error) {
	var body []byte
	var contentType string

	err := retry.Do(ctx, fetchRetryBudget, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		for k, vs := range src.Header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return &retry.StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
		}

		var buf bytes.Buffer
		n, err := io.Copy(&buf, io.LimitReader(resp.Body, maxBytes+1))
		if err != nil {
			return err
		}
		if n > maxBytes {
			return retry.Permanent(fmt.Errorf("%w (%s)", ErrTooLarge, formatting.FormatBytes(maxBytes)))
		}

		body = buf.Bytes()
		contentType = resp.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = http.DetectContentType(body)
		}
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("download: %w", err)
	}

	return body, contentType, nil
}

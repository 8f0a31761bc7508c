package recording

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Media is what the probe learns about a recording.
type Media struct {
	Duration   float64 `json:"duration"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	SampleRate int     `json:"sampleRate"`
	BitRate    int64   `json:"bitRate"`
	Format     string  `json:"format"`
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Channels   int    `json:"channels"`
		SampleRate string `json:"sample_rate"`
		BitRate    string `json:"bit_rate"`
	} `json:"streams"`
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		BitRate    string `json:"bit_rate"`
	} `json:"format"`
}

// Prober reads media properties with ffprobe.
type Prober struct {
	runner   Runner
	client   *http.Client
	maxBytes int64
	tempDir  string
	logger   *logrus.Entry
}

// NewProber creates a Prober. Remote sources are downloaded to a file in
// tempDir (the OS default when empty) that is removed before Probe returns.
func NewProber(runner Runner, client *http.Client, maxBytes int64, tempDir string, logger *logrus.Entry) *Prober {
	return &Prober{
		runner:   runner,
		client:   client,
		maxBytes: maxBytes,
		tempDir:  tempDir,
		logger:   logger.WithField("system", "probe"),
	}
}

// Probe returns the duration, rounded to hundredths of a second, and the
// stream properties of src.
func (p *Prober) Probe(ctx context.Context, src Source) (*Media, error) {
	path := src.URL

	if src.IsRemote() {
		local, cleanup, err := p.download(ctx, src)
		if err != nil {
			return nil, &MediaProbeError{Source: redact(src.URL), Err: err}
		}
		defer cleanup()
		path = local
	}

	var out bytes.Buffer
	args := []string{"-v", "quiet", "-print_format", "json", "-show_streams", "-show_format", path}
	if err := p.runner.Run(ctx, "ffprobe", args, nil, &out); err != nil {
		return nil, &MediaProbeError{Source: redact(src.URL), Err: err}
	}

	media, err := parseProbe(out.Bytes())
	if err != nil {
		return nil, &MediaProbeError{Source: redact(src.URL), Err: err}
	}

	p.logger.WithFields(logrus.Fields{
		"duration": media.Duration,
		"channels": media.Channels,
		"codec":    media.Codec,
	}).Debug("recording probed")

	return media, nil
}

func (p *Prober) download(ctx context.Context, src Source) (string, func(), error) {
	body, _, err := fetch(ctx, p.client, src, p.maxBytes)
	if err != nil {
		return "", nil, err
	}

	f, err := os.CreateTemp(p.tempDir, "vigil-probe-*")
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() {
		if err := os.Remove(f.Name()); err != nil && !os.IsNotExist(err) {
			p.logger.WithError(err).WithField("path", f.Name()).Warn("remove temp file failed")
		}
	}

	if _, err := f.Write(body); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}

	return f.Name(), cleanup, nil
}

func parseProbe(data []byte) (*Media, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode ffprobe output: %w", err)
	}

	duration, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("parse duration %q: %w", out.Format.Duration, err)
	}

	m := &Media{
		Duration: math.Round(duration*100) / 100,
		Format:   out.Format.FormatName,
	}
	m.BitRate, _ = strconv.ParseInt(out.Format.BitRate, 10, 64)

	for _, s := range out.Streams {
		if s.CodecType != "audio" {
			continue
		}
		m.Channels = s.Channels
		m.Codec = s.CodecName
		m.SampleRate, _ = strconv.Atoi(s.SampleRate)
		if m.BitRate == 0 {
			m.BitRate, _ = strconv.ParseInt(s.BitRate, 10, 64)
		}
		break
	}

	return m, nil
}

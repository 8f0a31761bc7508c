// Package recording probes call recordings for their media properties and
// archives them to object storage in canonical stereo WAV form.
package recording

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// SignatureParam marks a URL that already carries an S3-style signature.
const SignatureParam = "X-Amz-Signature"

// Presigner issues time-limited GET URLs for stored objects.
type Presigner interface {
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Source is a fetchable recording location. Header carries credentials
// lifted out of the URL.
type Source struct {
	URL    string
	Header http.Header
}

// IsRemote reports whether the source must be downloaded before local
// tools can read it.
func (s Source) IsRemote() bool {
	return strings.HasPrefix(s.URL, "http://") || strings.HasPrefix(s.URL, "https://") ||
		strings.Contains(s.URL, "?") || len(s.URL) > 500
}

// Resolver turns producer-supplied recording URLs into fetchable sources.
type Resolver struct {
	domain    string
	bucket    string
	expiry    time.Duration
	presigner Presigner
	logger    *logrus.Entry
}

// NewResolver creates a Resolver that refreshes unsigned URLs on domain
// through presigner. A nil presigner disables refresh.
func NewResolver(domain, bucket string, expiry time.Duration, presigner Presigner, logger *logrus.Entry) *Resolver {
	return &Resolver{
		domain:    domain,
		bucket:    bucket,
		expiry:    expiry,
		presigner: presigner,
		logger:    logger.WithField("system", "recording"),
	}
}

// Resolve refreshes the signature of storage-domain URLs and moves any
// embedded basic-auth credentials into an Authorization header. Refresh
// failures fall back to the original URL.
func (r *Resolver) Resolve(ctx context.Context, raw string) Source {
	src := Source{URL: raw, Header: http.Header{}}

	if r.needsRefresh(raw) {
		if signed, err := r.refresh(ctx, raw); err != nil {
			r.logger.WithError(err).WithField("url", redact(raw)).Warn("presign refresh failed, using original url")
		} else {
			src.URL = signed
		}
	}

	u, err := url.Parse(src.URL)
	if err != nil || u.User == nil {
		return src
	}

	user := u.User.Username()
	pass, _ := u.User.Password()
	src.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(user+":"+pass)))
	u.User = nil
	src.URL = u.String()

	return src
}

// RefreshURL returns a freshly signed URL for raw when it points at the
// storage domain without a signature, and raw otherwise.
func (r *Resolver) RefreshURL(ctx context.Context, raw string) string {
	if !r.needsRefresh(raw) {
		return raw
	}
	signed, err := r.refresh(ctx, raw)
	if err != nil {
		r.logger.WithError(err).WithField("url", redact(raw)).Warn("presign refresh failed, using original url")
		return raw
	}
	return signed
}

func (r *Resolver) needsRefresh(raw string) bool {
	return r.presigner != nil && r.domain != "" &&
		strings.Contains(raw, r.domain) && !strings.Contains(raw, SignatureParam)
}

func (r *Resolver) refresh(ctx context.Context, raw string) (string, error) {
	key, err := KeyFromURL(raw, r.bucket)
	if err != nil {
		return "", err
	}
	return r.presigner.PresignGet(ctx, key, r.expiry)
}

// KeyFromURL extracts the object key from a storage URL path, dropping a
// leading bucket segment for path-style URLs.
func KeyFromURL(raw, bucket string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	key := strings.TrimPrefix(u.Path, "/")
	if bucket != "" {
		key = strings.TrimPrefix(key, bucket+"/")
	}
	if key == "" {
		return "", ErrNoKey
	}
	return key, nil
}

func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable>"
	}
	u.User = nil
	u.RawQuery = ""
	return u.String()
}

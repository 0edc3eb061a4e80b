// Package media resolves stored media keys into time-limited signed
// URLs served by the platform's CDN.
package media

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrEmptyKey is returned when an empty media key is resolved.
	ErrEmptyKey = errors.New("media: key cannot be empty")

	// ErrMissingSecret is returned when the resolver is built without a
	// signing secret.
	ErrMissingSecret = errors.New("media: signing secret is required")
)

// Config holds signed-URL resolver configuration.
type Config struct {
	// BaseURL is the CDN base URL, e.g. "https://media.edulearn.io".
	BaseURL string

	// SigningSecret is the shared HMAC secret the CDN validates with.
	SigningSecret string

	// TTL is how long a signed URL stays valid.
	TTL time.Duration
}

// DefaultConfig returns sensible defaults; BaseURL and SigningSecret
// must still be provided.
func DefaultConfig() Config {
	return Config{TTL: 15 * time.Minute}
}

// Resolver builds signed URLs for media keys. It implements
// query.MediaResolver.
type Resolver struct {
	baseURL string
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

// NewResolver creates a Resolver.
func NewResolver(cfg Config) (*Resolver, error) {
	if cfg.SigningSecret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	return &Resolver{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		secret:  []byte(cfg.SigningSecret),
		ttl:     cfg.TTL,
		now:     time.Now,
	}, nil
}

// Resolve turns a media key into a signed URL valid for the configured
// TTL. The signature covers the key and the expiry timestamp.
func (r *Resolver) Resolve(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}

	expires := r.now().Add(r.ttl).Unix()
	sig := r.sign(key, expires)

	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("signature", sig)

	return fmt.Sprintf("%s/%s?%s", r.baseURL, url.PathEscape(key), q.Encode()), nil
}

func (r *Resolver) sign(key string, expires int64) string {
	mac := hmac.New(sha256.New, r.secret)
	fmt.Fprintf(mac, "%s:%d", key, expires)
	return hex.EncodeToString(mac.Sum(nil))
}

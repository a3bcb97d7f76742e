// Package fetch provides the byte transports that feed probes: ranged HTTP
// downloads, local files and bounded page fetches.
package fetch

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultChunkSize = 4096
	DefaultUserAgent = "fastsize/1.0"
)

var (
	ErrStatus     = errors.New("unexpected http status")
	ErrInvalidURL = errors.New("invalid url")
	ErrScheme     = errors.New("unsupported url scheme")
)

// StatusError carries the status of a rejected response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

func (e *StatusError) Is(target error) bool { return target == ErrStatus }

// NewClient returns a client with bounded dial, TLS and header timeouts.
// The overall timeout is left to the caller's context.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   8,
			IdleConnTimeout:       90 * time.Second,
			DisableCompression:    true,
		},
	}
}

// ParseURL accepts absolute http and https URLs only. Every error it returns
// matches ErrInvalidURL.
func ParseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %w %q", ErrInvalidURL, ErrScheme, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrInvalidURL, raw)
	}
	return u, nil
}

// Options configures HTTP transports.
type Options struct {
	ChunkSize int
	UserAgent string
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	return o
}

package http

import (
	"net"
	"net/http"
	"time"
)

// Options tunes the outbound transport.
type Options struct {
	// MaxConnsPerHost should match the worker count so every worker
	// can hold a connection.
	MaxConnsPerHost int
	// DialTimeout bounds TCP connect plus TLS handshake.
	DialTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		MaxConnsPerHost: 8,
		DialTimeout:     10 * time.Second,
	}
}

// NewClient returns a client that never follows redirects on its own.
// Callers see every 3xx response and decide whether to re-issue.
func NewClient(opts Options) *http.Client {
	if opts.MaxConnsPerHost <= 0 {
		opts.MaxConnsPerHost = DefaultOptions().MaxConnsPerHost
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultOptions().DialTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   opts.DialTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.MaxIdleConnsPerHost = opts.MaxConnsPerHost
	transport.MaxIdleConns = opts.MaxConnsPerHost * 2
	transport.TLSHandshakeTimeout = opts.DialTimeout
	transport.IdleConnTimeout = 90 * time.Second

	return &http.Client{
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Package httpclient builds the shared outbound HTTP client. Image
// generation calls can run for tens of seconds, so response header and
// overall timeouts are generous by default.
package httpclient

import (
	"context"
	"net"
	"net/http"
	"time"
)

type Options struct {
	// PreferIPv4 forces tcp4 dials; some desktop networks resolve the
	// Google API endpoints to unreachable IPv6 addresses.
	PreferIPv4 bool
	Timeout    time.Duration
}

func New(opts Options) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	dialer := &net.Dialer{
		Timeout:   15 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	dial := dialer.DialContext
	if opts.PreferIPv4 {
		dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, "tcp4", addr)
		}
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dial,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   15 * time.Second,
			ResponseHeaderTimeout: timeout,
			ExpectContinueTimeout: time.Second,
		},
	}
}

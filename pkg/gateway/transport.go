// Package gateway is the single choke point for calls to the backend
// storage API. Its Transport decorates outbound requests with the
// browser session's credentials and revokes the session token when the
// backend rejects it.
package gateway

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sgaunet/hcconsole/pkg/session"
)

// Header names sent to the backend.
const (
	HeaderAuthorization = "Authorization"
	HeaderAPIKey        = "X-API-Key"
	HeaderAPISecret     = "X-API-Secret"
)

// Transport is an http.RoundTripper that reads credentials from the
// session carried by the request context. It sends every request exactly
// once and never retries.
type Transport struct {
	base    http.RoundTripper
	metrics *Metrics
	log     *slog.Logger
}

// NewTransport wraps base. A nil base uses http.DefaultTransport.
func NewTransport(base http.RoundTripper, metrics *Metrics) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{
		base:    base,
		metrics: metrics,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger
func (t *Transport) SetLogger(log *slog.Logger) {
	t.log = log
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	// requests outside a browser session (health probes) go out bare
	sess, _ := session.FromContext(ctx)

	out := req.Clone(ctx)
	out.Header.Del(HeaderAuthorization)
	out.Header.Del(HeaderAPIKey)
	out.Header.Del(HeaderAPISecret)

	if sess != nil {
		token, err := sess.Token(ctx)
		if err != nil {
			return nil, err
		}
		if token != "" {
			out.Header.Set(HeaderAuthorization, "Bearer "+token)
		}
		creds, ok, err := sess.ServiceCredentials(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			out.Header.Set(HeaderAPIKey, creds.APIKey)
			out.Header.Set(HeaderAPISecret, creds.APISecret)
		}
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(out)
	if err != nil {
		t.metrics.observe(req.Method, "error", time.Since(start))
		return nil, err
	}
	t.metrics.observe(req.Method, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode == http.StatusUnauthorized && sess != nil {
		t.log.Warn("token rejected by gateway, revoking session token",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path))
		if err := sess.ClearToken(ctx); err != nil {
			t.log.Error("failed to revoke session token", slog.String("error", err.Error()))
		} else {
			t.metrics.revoked()
		}
	}
	return resp, nil
}

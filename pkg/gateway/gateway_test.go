package gateway_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgaunet/hcconsole/pkg/gateway"
	"github.com/sgaunet/hcconsole/pkg/session"
)

type recordedRequest struct {
	authorization string
	apiKey        string
	apiSecret     string
	hasAPIKey     bool
	hasAPISecret  bool
}

type backend struct {
	srv    *httptest.Server
	hits   atomic.Int32
	last   atomic.Pointer[recordedRequest]
	status int
	body   string
}

func newBackend(t *testing.T, status int, body string) *backend {
	t.Helper()
	b := &backend{status: status, body: body}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.hits.Add(1)
		_, hasKey := r.Header[http.CanonicalHeaderKey(gateway.HeaderAPIKey)]
		_, hasSecret := r.Header[http.CanonicalHeaderKey(gateway.HeaderAPISecret)]
		b.last.Store(&recordedRequest{
			authorization: r.Header.Get(gateway.HeaderAuthorization),
			apiKey:        r.Header.Get(gateway.HeaderAPIKey),
			apiSecret:     r.Header.Get(gateway.HeaderAPISecret),
			hasAPIKey:     hasKey,
			hasAPISecret:  hasSecret,
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(b.status)
		_, _ = io.WriteString(w, b.body)
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func newSession(t *testing.T) (context.Context, *session.Session) {
	t.Helper()
	sess := session.New("sid", session.NewMemoryStore(), time.Hour)
	return session.NewContext(context.Background(), sess), sess
}

func newClient(baseURL string, metrics *gateway.Metrics) *gateway.Client {
	return gateway.NewClient(baseURL+"/api/v1/storage", gateway.NewTransport(nil, metrics), 5*time.Second)
}

func TestTransport_AttachesBearerToken(t *testing.T) {
	b := newBackend(t, http.StatusOK, `[]`)
	ctx, sess := newSession(t)
	require.NoError(t, sess.SetToken(ctx, "tok-123"))

	var out []any
	require.NoError(t, newClient(b.srv.URL, nil).Do(ctx, http.MethodGet, "/admin/apps", nil, &out))

	assert.Equal(t, "Bearer tok-123", b.last.Load().authorization)
}

func TestTransport_NoTokenNoHeader(t *testing.T) {
	b := newBackend(t, http.StatusOK, `[]`)
	ctx, _ := newSession(t)

	require.NoError(t, newClient(b.srv.URL, nil).Do(ctx, http.MethodGet, "/admin/apps", nil, nil))

	rec := b.last.Load()
	assert.Empty(t, rec.authorization)
	assert.False(t, rec.hasAPIKey)
	assert.False(t, rec.hasAPISecret)
}

func TestTransport_AttachesServiceCredentials(t *testing.T) {
	b := newBackend(t, http.StatusOK, `[]`)
	ctx, sess := newSession(t)
	require.NoError(t, sess.SetToken(ctx, "tok"))
	require.NoError(t, sess.SetServiceCredentials(ctx, session.Credentials{
		BucketID:  "bucket-1",
		APIKey:    "key-abc",
		APISecret: "secret-xyz",
	}))

	require.NoError(t, newClient(b.srv.URL, nil).Do(ctx, http.MethodGet, "/admin/buckets/bucket-1/files", nil, nil))

	rec := b.last.Load()
	assert.Equal(t, "key-abc", rec.apiKey)
	assert.Equal(t, "secret-xyz", rec.apiSecret)

	require.NoError(t, sess.ClearServiceCredentials(ctx))
	require.NoError(t, newClient(b.srv.URL, nil).Do(ctx, http.MethodGet, "/admin/apps", nil, nil))

	rec = b.last.Load()
	assert.False(t, rec.hasAPIKey, "cleared pair must not be sent")
	assert.False(t, rec.hasAPISecret)
	assert.Equal(t, "Bearer tok", rec.authorization)
}

func TestTransport_DropsCallerSuppliedCredentials(t *testing.T) {
	b := newBackend(t, http.StatusOK, ``)
	ctx, _ := newSession(t)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set(gateway.HeaderAuthorization, "Bearer forged")
	req.Header.Set(gateway.HeaderAPIKey, "forged")

	resp, err := (&http.Client{Transport: gateway.NewTransport(nil, nil)}).Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	rec := b.last.Load()
	assert.Empty(t, rec.authorization)
	assert.False(t, rec.hasAPIKey)
	assert.Equal(t, "Bearer forged", req.Header.Get(gateway.HeaderAuthorization), "caller request is not mutated")
}

func TestTransport_WithoutSession(t *testing.T) {
	b := newBackend(t, http.StatusOK, `{}`)

	err := newClient(b.srv.URL, nil).Do(context.Background(), http.MethodGet, "/admin/apps", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, b.last.Load().authorization)
}

func TestTransport_UnauthorizedRevokesToken(t *testing.T) {
	b := newBackend(t, http.StatusUnauthorized, `{"error":"invalid token"}`)
	reg := prometheus.NewRegistry()
	metrics := gateway.NewMetrics(reg)
	ctx, sess := newSession(t)
	require.NoError(t, sess.SetToken(ctx, "stale"))

	err := newClient(b.srv.URL, metrics).Do(ctx, http.MethodGet, "/admin/apps", nil, nil)
	require.Error(t, err, "a 401 must still reach the caller")
	assert.ErrorIs(t, err, gateway.ErrUnauthorized)
	assert.Equal(t, http.StatusUnauthorized, gateway.StatusCode(err))

	var apiErr *gateway.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid token", apiErr.Message)
	assert.JSONEq(t, `{"error":"invalid token"}`, string(apiErr.Body))

	token, err := sess.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token, "token must be purged on 401")

	assert.Equal(t, int32(1), b.hits.Load(), "no retry")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TokenRevocations))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Requests.WithLabelValues(http.MethodGet, "401")))
}

func TestTransport_OtherErrorsKeepToken(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			b := newBackend(t, status, `{"error":"boom"}`)
			ctx, sess := newSession(t)
			require.NoError(t, sess.SetToken(ctx, "keep-me"))

			err := newClient(b.srv.URL, nil).Do(ctx, http.MethodPost, "/admin/apps", map[string]string{"app_name": "x"}, nil)
			require.Error(t, err)
			assert.NotErrorIs(t, err, gateway.ErrUnauthorized)
			assert.Equal(t, status, gateway.StatusCode(err))

			var apiErr *gateway.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, "boom", apiErr.Message)

			token, err := sess.Token(ctx)
			require.NoError(t, err)
			assert.Equal(t, "keep-me", token)
			assert.Equal(t, int32(1), b.hits.Load(), "no retry")
		})
	}
}

func TestTransport_NetworkFailurePropagates(t *testing.T) {
	b := newBackend(t, http.StatusOK, ``)
	url := b.srv.URL
	b.srv.Close()

	ctx, sess := newSession(t)
	require.NoError(t, sess.SetToken(ctx, "tok"))

	err := newClient(url, nil).Do(ctx, http.MethodGet, "/admin/apps", nil, nil)
	require.Error(t, err)
	assert.Zero(t, gateway.StatusCode(err))

	token, err := sess.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
}

func TestClient_DecodesJSON(t *testing.T) {
	b := newBackend(t, http.StatusOK, `{"id":"a1","app_name":"billing"}`)
	ctx, _ := newSession(t)

	var out struct {
		ID      string `json:"id"`
		AppName string `json:"app_name"`
	}
	require.NoError(t, newClient(b.srv.URL, nil).Do(ctx, http.MethodGet, "/admin/apps/a1", nil, &out))
	assert.Equal(t, "a1", out.ID)
	assert.Equal(t, "billing", out.AppName)
}

func TestClient_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/storage/files/view/f1", r.URL.Path)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	ctx, _ := newSession(t)
	resp, err := newClient(srv.URL, nil).Stream(ctx, "/files/view/f1")
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
}

func TestAPIError_Error(t *testing.T) {
	err := &gateway.APIError{Method: "GET", Path: "/admin/apps", StatusCode: 502}
	assert.Equal(t, "GET /admin/apps: 502 Bad Gateway", err.Error())

	err.Message = "upstream down"
	assert.Equal(t, "GET /admin/apps: 502 upstream down", err.Error())
}

func TestClient_Ping(t *testing.T) {
	t.Run("refused probe is reachable", func(t *testing.T) {
		b := newBackend(t, http.StatusUnauthorized, `{"error":"missing token"}`)
		require.NoError(t, newClient(b.srv.URL, nil).Ping(context.Background()))
	})

	t.Run("server error", func(t *testing.T) {
		b := newBackend(t, http.StatusServiceUnavailable, ``)
		err := newClient(b.srv.URL, nil).Ping(context.Background())
		assert.ErrorIs(t, err, gateway.ErrBackendUnavailable)
	})
}

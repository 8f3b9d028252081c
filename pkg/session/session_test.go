package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgaunet/hcconsole/pkg/session"
)

func TestSession_Token(t *testing.T) {
	ctx := context.Background()
	sess := session.New("sid", session.NewMemoryStore(), time.Hour)

	token, err := sess.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, sess.SetToken(ctx, "abc"))
	require.NoError(t, sess.SetToken(ctx, "def"))
	token, err = sess.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "def", token, "a new token replaces the old one")

	has, err := sess.HasToken(ctx)
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, sess.ClearToken(ctx))
	has, err = sess.HasToken(ctx)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestSession_SetEmptyTokenClears(t *testing.T) {
	ctx := context.Background()
	sess := session.New("sid", session.NewMemoryStore(), time.Hour)

	require.NoError(t, sess.SetToken(ctx, "abc"))
	require.NoError(t, sess.SetToken(ctx, ""))

	token, err := sess.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestSession_ServiceCredentials(t *testing.T) {
	ctx := context.Background()
	sess := session.New("sid", session.NewMemoryStore(), time.Hour)

	_, ok, err := sess.ServiceCredentials(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "no pair until a bucket sets one")

	want := session.Credentials{BucketID: "b1", APIKey: "key-1", APISecret: "secret-1"}
	require.NoError(t, sess.SetServiceCredentials(ctx, want))

	got, ok, err := sess.ServiceCredentials(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	other := session.Credentials{BucketID: "b2", APIKey: "key-2", APISecret: "secret-2"}
	require.NoError(t, sess.SetServiceCredentials(ctx, other))
	got, _, err = sess.ServiceCredentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, other, got)

	require.NoError(t, sess.ClearServiceCredentials(ctx))
	_, ok, err = sess.ServiceCredentials(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSession_ServiceCredentialsKeepToken(t *testing.T) {
	ctx := context.Background()
	sess := session.New("sid", session.NewMemoryStore(), time.Hour)

	require.NoError(t, sess.SetToken(ctx, "tok"))
	require.NoError(t, sess.SetServiceCredentials(ctx, session.Credentials{APIKey: "k", APISecret: "s"}))
	require.NoError(t, sess.ClearServiceCredentials(ctx))

	token, err := sess.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
}

func TestSession_IncompleteCredentials(t *testing.T) {
	sess := session.New("sid", session.NewMemoryStore(), time.Hour)

	err := sess.SetServiceCredentials(context.Background(), session.Credentials{APIKey: "only-key"})
	assert.ErrorIs(t, err, session.ErrInvalidCredentials)
}

func TestFromContext(t *testing.T) {
	_, err := session.FromContext(context.Background())
	assert.ErrorIs(t, err, session.ErrNoSession)

	sess := session.New("sid", session.NewMemoryStore(), time.Hour)
	got, err := session.FromContext(session.NewContext(context.Background(), sess))
	require.NoError(t, err)
	assert.Same(t, sess, got)
}

func TestSession_Renew(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	sess := session.New("11111111-1111-1111-1111-111111111111", store, time.Hour)
	require.NoError(t, sess.SetToken(ctx, "tok"))
	require.NoError(t, sess.SetServiceCredentials(ctx, session.Credentials{BucketID: "b1", APIKey: "k", APISecret: "s"}))

	require.NoError(t, sess.Renew(ctx))

	assert.NotEqual(t, "11111111-1111-1111-1111-111111111111", sess.ID())
	token, err := sess.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	creds, ok, err := sess.ServiceCredentials(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b1", creds.BucketID)

	_, ok, err = store.Get(ctx, "11111111-1111-1111-1111-111111111111", session.KeyToken)
	require.NoError(t, err)
	assert.False(t, ok, "the previous id no longer carries the token")
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	var found []*http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "hc_session" {
			found = append(found, c)
		}
	}
	require.Len(t, found, 1)
	return found[0]
}

func TestManager_Middleware(t *testing.T) {
	store := session.NewMemoryStore()
	mgr := session.NewManager(store, "hc_session", true, time.Hour)

	var seen string
	handler := mgr.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := session.FromContext(r.Context())
		require.NoError(t, err)
		seen = sess.ID()
	}))

	t.Run("issues a session when no cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		cookie := sessionCookie(t, rec)
		assert.Equal(t, seen, cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.True(t, cookie.Secure)
		_, err := uuid.Parse(seen)
		assert.NoError(t, err)
	})

	t.Run("reuses a known session", func(t *testing.T) {
		sid := uuid.NewString()
		require.NoError(t, store.Set(context.Background(), sid, session.KeyToken, "tok", time.Hour))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "hc_session", Value: sid})
		handler.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, sid, seen)
	})

	t.Run("replaces an unknown id", func(t *testing.T) {
		sid := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "hc_session", Value: sid})
		handler.ServeHTTP(httptest.NewRecorder(), req)
		assert.NotEqual(t, sid, seen)
	})

	t.Run("replaces a malformed cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "hc_session", Value: "../../etc"})
		handler.ServeHTTP(httptest.NewRecorder(), req)
		assert.NotEqual(t, "../../etc", seen)
	})
}

func TestManager_RenewReplacesCookie(t *testing.T) {
	store := session.NewMemoryStore()
	mgr := session.NewManager(store, "hc_session", false, time.Hour)

	var renewed string
	handler := mgr.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := session.FromContext(r.Context())
		require.NoError(t, err)
		require.NoError(t, sess.SetToken(r.Context(), "tok"))
		require.NoError(t, sess.Renew(r.Context()))
		renewed = sess.ID()
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, renewed, sessionCookie(t, rec).Value)
	value, ok, err := store.Get(context.Background(), renewed, session.KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok", value)
}

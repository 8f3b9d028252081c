// Package session holds the per-browser credential state of the console.
//
// A browser is identified by an opaque session cookie. Everything the
// console remembers about that browser (the operator's bearer token and the
// service credential pair of the bucket being browsed) lives in a Store
// under that id. Handlers never touch the Store directly; they go through
// the Session attached to the request context.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Keys used inside a browser session.
const (
	KeyToken        = "hc_token"
	KeyAPIKey       = "active_api_key"
	KeyAPISecret    = "active_api_secret"
	KeyActiveBucket = "active_bucket_id"
)

var sessionKeys = []string{KeyToken, KeyAPIKey, KeyAPISecret, KeyActiveBucket}

var (
	// ErrNoSession is returned when a context carries no session.
	ErrNoSession = errors.New("no session in context")
	// ErrInvalidCredentials is returned when a service credential pair is incomplete.
	ErrInvalidCredentials = errors.New("service credentials need both key and secret")
)

// Store persists session values keyed by session id. A session expires as
// a whole, ttl after its last Set or Touch.
type Store interface {
	// Get returns the value of key for session sid. The boolean is false
	// when the value does not exist or has expired.
	Get(ctx context.Context, sid, key string) (string, bool, error)
	// Set stores value under key for session sid, overwriting any previous value.
	Set(ctx context.Context, sid, key, value string, ttl time.Duration) error
	// Delete removes keys from session sid. Missing keys are not an error.
	Delete(ctx context.Context, sid string, keys ...string) error
	// Touch pushes the expiry of session sid to ttl from now and reports
	// whether the session exists.
	Touch(ctx context.Context, sid string, ttl time.Duration) (bool, error)
	// Purge removes expired values and returns how many were removed.
	Purge(ctx context.Context) (int64, error)
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}

// Credentials is the API key/secret pair of the application owning a bucket.
type Credentials struct {
	BucketID  string
	APIKey    string
	APISecret string
}

// Session is the credential context of one browser.
type Session struct {
	id      string
	store   Store
	ttl     time.Duration
	onRenew func(id string)
}

// New returns the session sid backed by store.
func New(sid string, store Store, ttl time.Duration) *Session {
	return &Session{id: sid, store: store, ttl: ttl}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Renew moves the session values under a fresh id and forgets the old
// one. The cookie follows when the session came from a Manager.
func (s *Session) Renew(ctx context.Context) error {
	id := uuid.NewString()
	for _, key := range sessionKeys {
		value, ok, err := s.store.Get(ctx, s.id, key)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", key, err)
		}
		if !ok {
			continue
		}
		if err := s.store.Set(ctx, id, key, value, s.ttl); err != nil {
			return fmt.Errorf("failed to copy %s: %w", key, err)
		}
	}
	if err := s.store.Delete(ctx, s.id, sessionKeys...); err != nil {
		return fmt.Errorf("failed to drop previous session: %w", err)
	}
	s.id = id
	if s.onRenew != nil {
		s.onRenew(id)
	}
	return nil
}

// Token returns the persisted bearer token, or "" when none is stored.
func (s *Session) Token(ctx context.Context) (string, error) {
	token, ok, err := s.store.Get(ctx, s.id, KeyToken)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// HasToken reports whether a bearer token is persisted.
func (s *Session) HasToken(ctx context.Context) (bool, error) {
	token, err := s.Token(ctx)
	return token != "", err
}

// SetToken persists token, replacing any previous one. An empty token clears it.
func (s *Session) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return s.ClearToken(ctx)
	}
	if err := s.store.Set(ctx, s.id, KeyToken, token, s.ttl); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// ClearToken removes the persisted bearer token.
func (s *Session) ClearToken(ctx context.Context) error {
	if err := s.store.Delete(ctx, s.id, KeyToken); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}

// ServiceCredentials returns the active service credential pair. The
// boolean is false unless both key and secret were set by a bucket load.
func (s *Session) ServiceCredentials(ctx context.Context) (Credentials, bool, error) {
	var creds Credentials
	key, okKey, err := s.store.Get(ctx, s.id, KeyAPIKey)
	if err != nil {
		return creds, false, fmt.Errorf("failed to read api key: %w", err)
	}
	secret, okSecret, err := s.store.Get(ctx, s.id, KeyAPISecret)
	if err != nil {
		return creds, false, fmt.Errorf("failed to read api secret: %w", err)
	}
	if !okKey || !okSecret {
		return creds, false, nil
	}
	bucketID, _, err := s.store.Get(ctx, s.id, KeyActiveBucket)
	if err != nil {
		return creds, false, fmt.Errorf("failed to read active bucket: %w", err)
	}
	return Credentials{BucketID: bucketID, APIKey: key, APISecret: secret}, true, nil
}

// SetServiceCredentials makes creds the active pair, replacing the previous one.
func (s *Session) SetServiceCredentials(ctx context.Context, creds Credentials) error {
	if creds.APIKey == "" || creds.APISecret == "" {
		return ErrInvalidCredentials
	}
	values := []struct{ key, value string }{
		{KeyActiveBucket, creds.BucketID},
		{KeyAPIKey, creds.APIKey},
		{KeyAPISecret, creds.APISecret},
	}
	for _, v := range values {
		if err := s.store.Set(ctx, s.id, v.key, v.value, s.ttl); err != nil {
			return fmt.Errorf("failed to store %s: %w", v.key, err)
		}
	}
	return nil
}

// ClearServiceCredentials drops the active pair.
func (s *Session) ClearServiceCredentials(ctx context.Context) error {
	if err := s.store.Delete(ctx, s.id, KeyAPIKey, KeyAPISecret, KeyActiveBucket); err != nil {
		return fmt.Errorf("failed to clear service credentials: %w", err)
	}
	return nil
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying sess.
func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, sess)
}

// FromContext returns the session carried by ctx.
func FromContext(ctx context.Context) (*Session, error) {
	sess, ok := ctx.Value(ctxKey{}).(*Session)
	if !ok || sess == nil {
		return nil, ErrNoSession
	}
	return sess, nil
}

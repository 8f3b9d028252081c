package session

import (
	"context"
	"sync"
	"time"
)

type memorySession struct {
	values    map[string]string
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Sessions do not survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
	now      func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
		now:      time.Now,
	}
}

// live returns session sid unless it is missing or expired. Callers hold mu.
func (m *MemoryStore) live(sid string) (*memorySession, bool) {
	sess, ok := m.sessions[sid]
	if !ok || m.expired(sess) {
		return nil, false
	}
	return sess, true
}

func (m *MemoryStore) extend(sess *memorySession, ttl time.Duration) {
	if ttl > 0 {
		sess.expiresAt = m.now().Add(ttl)
	}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, sid, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.live(sid)
	if !ok {
		return "", false, nil
	}
	value, ok := sess.values[key]
	return value, ok, nil
}

// Set implements Store.
func (m *MemoryStore) Set(_ context.Context, sid, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.live(sid)
	if !ok {
		sess = &memorySession{values: make(map[string]string)}
		m.sessions[sid] = sess
	}
	sess.values[key] = value
	m.extend(sess, ttl)
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, sid string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sid]
	if !ok {
		return nil
	}
	for _, key := range keys {
		delete(sess.values, key)
	}
	if len(sess.values) == 0 {
		delete(m.sessions, sid)
	}
	return nil
}

// Touch implements Store.
func (m *MemoryStore) Touch(_ context.Context, sid string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.live(sid)
	if !ok {
		return false, nil
	}
	m.extend(sess, ttl)
	return true, nil
}

// Purge implements Store.
func (m *MemoryStore) Purge(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for sid, sess := range m.sessions {
		if m.expired(sess) {
			removed += int64(len(sess.values))
			delete(m.sessions, sid)
		}
	}
	return removed, nil
}

// Ping implements Store.
func (m *MemoryStore) Ping(_ context.Context) error {
	return nil
}

func (m *MemoryStore) expired(sess *memorySession) bool {
	return !sess.expiresAt.IsZero() && !m.now().Before(sess.expiresAt)
}

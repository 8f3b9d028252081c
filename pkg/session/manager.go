package session

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sgaunet/hcconsole/pkg/slogx"
)

// Manager binds browsers to sessions through a cookie.
type Manager struct {
	store      Store
	cookieName string
	secure     bool
	ttl        time.Duration
}

// NewManager returns a Manager issuing cookieName cookies for sessions kept in store.
func NewManager(store Store, cookieName string, secure bool, ttl time.Duration) *Manager {
	return &Manager{
		store:      store,
		cookieName: cookieName,
		secure:     secure,
		ttl:        ttl,
	}
}

// Store returns the underlying store.
func (m *Manager) Store() Store {
	return m.store
}

// Middleware attaches the browser's Session to the request context. A
// known session has its expiry pushed back; a missing, malformed or
// unknown id is replaced by a fresh one.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := m.sessionID(r)
		if sid != "" {
			known, err := m.store.Touch(r.Context(), sid, m.ttl)
			if err != nil {
				slogx.FromContext(r.Context()).Error("failed to refresh session", slog.String("error", err.Error()))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if !known {
				sid = ""
			}
		}
		if sid == "" {
			sid = uuid.NewString()
		}
		m.setCookie(w, sid)

		sess := New(sid, m.store, m.ttl)
		sess.onRenew = func(id string) { m.setCookie(w, id) }
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), sess)))
	})
}

// setCookie sets the session cookie, replacing one already set on w.
func (m *Manager) setCookie(w http.ResponseWriter, sid string) {
	h := w.Header()
	prefix := m.cookieName + "="
	var kept []string
	for _, c := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(c, prefix) {
			kept = append(kept, c)
		}
	}
	h.Del("Set-Cookie")
	for _, c := range kept {
		h.Add("Set-Cookie", c)
	}

	// refreshed on every request so its lifetime follows activity
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) sessionID(r *http.Request) string {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return ""
	}
	return cookie.Value
}

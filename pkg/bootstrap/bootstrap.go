// Package bootstrap guarantees that protected pages only render for a
// browser holding a session token. A token arriving on the address is
// persisted and stripped from it; a browser without one is sent to the
// identity provider's login page with a return address.
package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/a-h/templ"

	"github.com/sgaunet/hcconsole/pkg/session"
	"github.com/sgaunet/hcconsole/pkg/slogx"
)

const (
	// ParamToken is the address parameter carrying a freshly issued token.
	ParamToken = "token"
	// ParamRedirect is the login parameter carrying the return address.
	ParamRedirect = "redirect"
)

// ErrMissingLoginURL is returned by New when no login address is configured.
var ErrMissingLoginURL = errors.New("login url is required")

// Outcome is the result of one evaluation.
type Outcome int

const (
	// OutcomeReady means a token is persisted and the page may render.
	OutcomeReady Outcome = iota
	// OutcomeTokenAccepted means a token parameter was persisted and the
	// browser is sent back to the same path without query string.
	OutcomeTokenAccepted
	// OutcomeLogin means no token exists and the browser is sent to the login page.
	OutcomeLogin
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReady:
		return "ready"
	case OutcomeTokenAccepted:
		return "token_accepted"
	case OutcomeLogin:
		return "login"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Bootstrapper evaluates the session state of protected requests.
type Bootstrapper struct {
	loginURL    *url.URL
	publicURL   string
	placeholder func(loginURL string) templ.Component
}

// New returns a Bootstrapper redirecting to loginURL. publicURL, when not
// empty, is the origin used to build return addresses instead of the
// request's own scheme and host.
func New(loginURL, publicURL string) (*Bootstrapper, error) {
	if loginURL == "" {
		return nil, ErrMissingLoginURL
	}
	u, err := url.Parse(loginURL)
	if err != nil {
		return nil, fmt.Errorf("invalid login url: %w", err)
	}
	return &Bootstrapper{
		loginURL:    u,
		publicURL:   strings.TrimSuffix(publicURL, "/"),
		placeholder: authenticating,
	}, nil
}

// SetPlaceholder sets the component rendered while the browser is sent to the login page.
func (b *Bootstrapper) SetPlaceholder(fn func(loginURL string) templ.Component) {
	b.placeholder = fn
}

// Origin returns scheme and host the browser sees the console under.
func (b *Bootstrapper) Origin(r *http.Request) string {
	if b.publicURL != "" {
		return b.publicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	return scheme + "://" + r.Host
}

// ReturnURL is the current address without its query string.
func (b *Bootstrapper) ReturnURL(r *http.Request) string {
	return b.Origin(r) + r.URL.EscapedPath()
}

// LoginURL is the login address carrying the return address of r.
func (b *Bootstrapper) LoginURL(r *http.Request) string {
	return b.loginURLFor(b.ReturnURL(r))
}

func (b *Bootstrapper) loginURLFor(returnURL string) string {
	u := *b.loginURL
	q := u.Query()
	q.Set(ParamRedirect, returnURL)
	u.RawQuery = q.Encode()
	return u.String()
}

// Ready reports whether a token is persisted or a non-empty token
// parameter is present on r.
func (b *Bootstrapper) Ready(r *http.Request) (bool, error) {
	if r.URL.Query().Get(ParamToken) != "" {
		return true, nil
	}
	sess, err := session.FromContext(r.Context())
	if err != nil {
		return false, err
	}
	return sess.HasToken(r.Context())
}

// Evaluate applies one bootstrap pass to r and returns its outcome. It
// persists a token parameter under a freshly issued session id but writes
// nothing to the response.
func (b *Bootstrapper) Evaluate(ctx context.Context, r *http.Request) (Outcome, error) {
	r = r.WithContext(ctx)
	ready, err := b.Ready(r)
	if err != nil {
		return OutcomeLogin, err
	}
	if !ready {
		return OutcomeLogin, nil
	}
	token := r.URL.Query().Get(ParamToken)
	if token == "" {
		return OutcomeReady, nil
	}
	sess, err := session.FromContext(ctx)
	if err != nil {
		return OutcomeLogin, err
	}
	if err := sess.Renew(ctx); err != nil {
		return OutcomeLogin, err
	}
	if err := sess.SetToken(ctx, token); err != nil {
		return OutcomeLogin, err
	}
	return OutcomeTokenAccepted, nil
}

// Middleware runs next only when the browser session holds a token.
func (b *Bootstrapper) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := slogx.FromContext(r.Context())
		outcome, err := b.Evaluate(r.Context(), r)
		if err != nil {
			log.Error("session bootstrap failed", slog.String("error", err.Error()))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		switch outcome {
		case OutcomeTokenAccepted:
			log.Debug("session token accepted")
			http.Redirect(w, r, r.URL.EscapedPath(), http.StatusFound)
		case OutcomeLogin:
			log.Debug("no session token, redirecting to login")
			b.RedirectToLogin(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// RedirectToLogin sends the browser to the login page. Page loads get a
// redirect with the placeholder as body; other requests get a 401 JSON
// body naming the login address.
func (b *Bootstrapper) RedirectToLogin(w http.ResponseWriter, r *http.Request) {
	login := b.LoginURL(r)
	w.Header().Set("Cache-Control", "no-store")

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":     "unauthenticated",
			"login_url": login,
		})
		return
	}

	w.Header().Set("Location", login)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusFound)
	if r.Method == http.MethodHead {
		return
	}
	if err := b.placeholder(login).Render(r.Context(), w); err != nil {
		slogx.FromContext(r.Context()).Error("failed to render placeholder", slog.String("error", err.Error()))
	}
}

// LogoutHandler forgets the session's token and service credentials and
// sends the browser to the login page with the console root as return address.
func (b *Bootstrapper) LogoutHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := slogx.FromContext(r.Context())
		sess, err := session.FromContext(r.Context())
		if err != nil {
			log.Error("logout without session", slog.String("error", err.Error()))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if err := sess.ClearServiceCredentials(r.Context()); err != nil {
			log.Error("failed to clear service credentials", slog.String("error", err.Error()))
		}
		if err := sess.ClearToken(r.Context()); err != nil {
			log.Error("failed to clear token", slog.String("error", err.Error()))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, b.loginURLFor(b.Origin(r)+"/"), http.StatusFound)
	})
}

func authenticating(loginURL string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "<!DOCTYPE html><html><head><title>Authenticating…</title></head>"+
			"<body><p>Authenticating…</p><p><a href=\"%s\">Continue to login</a></p></body></html>",
			templ.EscapeString(loginURL))
		return err
	})
}

package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	"github.com/sgaunet/hcconsole/pkg/bootstrap"
	"github.com/sgaunet/hcconsole/pkg/gateway"
	"github.com/sgaunet/hcconsole/pkg/health"
	"github.com/sgaunet/hcconsole/pkg/session"
	"github.com/sgaunet/hcconsole/pkg/slogx"
	"github.com/sgaunet/hcconsole/pkg/views"
)

// flash messages shown after a redirect, keyed by the flash query parameter
var flashMessages = map[string]string{
	"bucket-registered": "Bucket registered.",
	"app-updated":       "Application updated.",
	"app-deleted":       "Application deleted.",
	"rule-created":      "Replication rule created.",
	"rule-toggled":      "Replication rule updated.",
	"rule-deleted":      "Replication rule deleted.",
}

// page returns the layout fields for r.
func (s *App) page(r *http.Request) views.Page {
	p := views.Page{
		Operator: bootstrap.DefaultOperator,
		Flash:    flashMessages[r.URL.Query().Get("flash")],
	}
	if sess, err := session.FromContext(r.Context()); err == nil {
		if token, err := sess.Token(r.Context()); err == nil {
			p.Operator = bootstrap.Operator(token)
		}
	}
	return p
}

func (s *App) errorData(r *http.Request, msg string) views.ErrorData {
	return views.ErrorData{Page: s.page(r), Message: msg}
}

func (s *App) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	templ.Handler(c, templ.WithStatus(status)).ServeHTTP(w, r)
}

func redirectWithFlash(w http.ResponseWriter, r *http.Request, path, flash string) {
	http.Redirect(w, r, path+"?flash="+flash, http.StatusSeeOther)
}

// apiMessage appends the backend's own message to msg when it sent one.
func apiMessage(err error, msg string) string {
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return msg + ": " + apiErr.Message
	}
	return msg
}

// handleAPIError answers a failed backend call. A 401 either sends the
// operator to the login page or shows the error, depending on configuration.
func (s *App) handleAPIError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	log := slogx.FromContext(r.Context())
	if errors.Is(err, context.Canceled) {
		log.Debug("request cancelled by the browser", slog.String("error", err.Error()))
		return
	}
	if errors.Is(err, gateway.ErrUnauthorized) && s.cfg.RedirectOnUnauthorized {
		log.Info("session token rejected, redirecting to login")
		s.boot.RedirectToLogin(w, r)
		return
	}

	status := gateway.StatusCode(err)
	if status == 0 {
		status = http.StatusBadGateway
	}
	log.Error(msg, slog.String("error", err.Error()), slog.Int("status", status))

	data := s.errorData(r, apiMessage(err, msg))
	if status == http.StatusUnauthorized {
		data.Reauthenticate = true
		data.LoginURL = s.boot.LoginURL(r)
	}
	s.views.HandlerError(w, r, status, data)
}

// DashboardHandler renders the overview. The storage service is reported
// stable when the application list can be fetched.
func (s *App) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	data := views.DashboardData{Page: s.page(r)}

	apps, err := s.api.ListApps(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		return
	case errors.Is(err, gateway.ErrUnauthorized) && s.cfg.RedirectOnUnauthorized:
		s.boot.RedirectToLogin(w, r)
		return
	case err != nil:
		log.Warn("storage service check failed", slog.String("error", err.Error()))
		data.Error = apiMessage(err, "The storage service could not be reached")
	default:
		data.StorageHealthy = true
		data.AppCount = len(apps)

		buckets, err := s.api.ListAllBuckets(ctx)
		if err != nil {
			log.Warn("could not fetch all buckets", slog.String("error", err.Error()))
		}
		data.BucketCount = len(buckets)
		for _, b := range buckets {
			data.TotalSize += b.TotalSize
		}
	}

	for _, m := range s.monitors {
		info := m.GetHealthInfo()
		data.Services = append(data.Services, views.ServiceStatus{
			Name:      info.Name,
			Healthy:   info.Status == health.StatusHealthy,
			Message:   info.LastError,
			LastCheck: info.LastCheck,
		})
	}

	s.render(w, r, http.StatusOK, s.views.Dashboard(data))
}

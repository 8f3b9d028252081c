package app

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/sgaunet/hcconsole/pkg/dto"
	"github.com/sgaunet/hcconsole/pkg/gateway"
	"github.com/sgaunet/hcconsole/pkg/slogx"
	"github.com/sgaunet/hcconsole/pkg/views"
)

// AppListingHandler lists the registered applications. The secret of the
// app named by the reveal parameter is shown in clear.
func (s *App) AppListingHandler(w http.ResponseWriter, r *http.Request) {
	s.renderApps(w, r, http.StatusOK, views.AppsData{
		Page:   s.page(r),
		Reveal: r.URL.Query().Get("reveal"),
	})
}

func (s *App) renderApps(w http.ResponseWriter, r *http.Request, status int, data views.AppsData) {
	apps, err := s.api.ListApps(r.Context())
	if err != nil {
		s.handleAPIError(w, r, err, "Failed to retrieve applications")
		return
	}
	data.Apps = apps
	s.render(w, r, status, s.views.Apps(data))
}

func parseAppForm(r *http.Request) (dto.AppRequest, string) {
	if err := r.ParseForm(); err != nil {
		return dto.AppRequest{}, "Invalid form."
	}
	req := dto.AppRequest{
		AppName:  strings.TrimSpace(r.PostForm.Get("app_name")),
		IsActive: r.PostForm.Get("is_active") != "",
	}
	if req.AppName == "" {
		return req, "An application name is required."
	}
	return req, ""
}

// appFormFailure re-renders the apps page with the backend message for
// validation failures, and falls back to the error page otherwise.
func (s *App) appFormFailure(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := gateway.StatusCode(err)
	if status == 0 || status == http.StatusUnauthorized || status >= http.StatusInternalServerError {
		s.handleAPIError(w, r, err, msg)
		return
	}
	s.renderApps(w, r, status, views.AppsData{Page: s.page(r), FormError: apiMessage(err, msg)})
}

// CreateAppHandler creates an application. The page is rendered directly
// so the generated secret can be shown once.
func (s *App) CreateAppHandler(w http.ResponseWriter, r *http.Request) {
	req, formErr := parseAppForm(r)
	if formErr != "" {
		s.renderApps(w, r, http.StatusBadRequest, views.AppsData{Page: s.page(r), FormError: formErr})
		return
	}
	created, err := s.api.CreateApp(r.Context(), req)
	if err != nil {
		s.appFormFailure(w, r, err, "Failed to create application")
		return
	}
	slogx.FromContext(r.Context()).Info("application created", slog.String("app_id", created.ID))
	s.renderApps(w, r, http.StatusCreated, views.AppsData{Page: s.page(r), Created: &created})
}

// UpdateAppHandler renames or (de)activates an application.
func (s *App) UpdateAppHandler(w http.ResponseWriter, r *http.Request) {
	appID := mux.Vars(r)["appID"]
	req, formErr := parseAppForm(r)
	if formErr != "" {
		s.renderApps(w, r, http.StatusBadRequest, views.AppsData{Page: s.page(r), FormError: formErr})
		return
	}
	if _, err := s.api.UpdateApp(r.Context(), appID, req); err != nil {
		s.appFormFailure(w, r, err, "Failed to update application")
		return
	}
	slogx.FromContext(r.Context()).Info("application updated", slog.String("app_id", appID))
	redirectWithFlash(w, r, "/apps", "app-updated")
}

// DeleteAppHandler deletes an application.
func (s *App) DeleteAppHandler(w http.ResponseWriter, r *http.Request) {
	appID := mux.Vars(r)["appID"]
	if err := s.api.DeleteApp(r.Context(), appID); err != nil {
		s.appFormFailure(w, r, err, "Failed to delete application")
		return
	}
	slogx.FromContext(r.Context()).Info("application deleted", slog.String("app_id", appID))
	redirectWithFlash(w, r, "/apps", "app-deleted")
}

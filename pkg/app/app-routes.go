package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sgaunet/hcconsole/pkg/health"
	"github.com/sgaunet/hcconsole/pkg/slogx"
	"github.com/sgaunet/hcconsole/pkg/views"
)

// initRouter initializes the router of the App
func (s *App) initRouter() {
	s.router.Use(slogx.HTTPMiddleware(s.log))

	// public
	s.router.PathPrefix("/static/").Handler(views.StaticHandler)
	s.router.HandleFunc("/favicon.ico", views.FaviconHandler)
	s.router.Handle("/healthz", health.Handler(s.monitors...)).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	withSession := s.router.NewRoute().Subrouter()
	withSession.Use(s.sessions.Middleware)
	withSession.Handle("/logout", s.boot.LogoutHandler()).Methods(http.MethodPost)

	protected := withSession.NewRoute().Subrouter()
	protected.Use(s.boot.Middleware)

	// the service credential pair lives as long as the operator stays on one bucket
	bucketScope := protected.NewRoute().Subrouter()
	bucketScope.HandleFunc("/buckets/{bucketID}/files", s.BucketFilesHandler).Methods(http.MethodGet)
	bucketScope.HandleFunc("/buckets/{bucketID}/files/{fileID}/preview", s.FilePreviewHandler).Methods(http.MethodGet)

	pages := protected.NewRoute().Subrouter()
	pages.Use(s.leaveBucketScope)
	pages.HandleFunc("/", s.DashboardHandler).Methods(http.MethodGet)
	pages.HandleFunc("/buckets", s.BucketListingHandler).Methods(http.MethodGet)
	pages.HandleFunc("/buckets", s.RegisterBucketHandler).Methods(http.MethodPost)
	pages.HandleFunc("/apps", s.AppListingHandler).Methods(http.MethodGet)
	pages.HandleFunc("/apps", s.CreateAppHandler).Methods(http.MethodPost)
	pages.HandleFunc("/apps/{appID}", s.UpdateAppHandler).Methods(http.MethodPost)
	pages.HandleFunc("/apps/{appID}/delete", s.DeleteAppHandler).Methods(http.MethodPost)
	pages.HandleFunc("/replication", s.ReplicationHandler).Methods(http.MethodGet)
	pages.HandleFunc("/replication", s.CreateRuleHandler).Methods(http.MethodPost)
	pages.HandleFunc("/replication/{ruleID}/toggle", s.ToggleRuleHandler).Methods(http.MethodPost)
	pages.HandleFunc("/replication/{ruleID}/delete", s.DeleteRuleHandler).Methods(http.MethodPost)

	s.srv.Handler = s.router
}

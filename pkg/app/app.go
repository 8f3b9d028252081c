// Package app wires the console: routing, session handling, the backend
// gateway and the page handlers.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sgaunet/hcconsole/pkg/bootstrap"
	"github.com/sgaunet/hcconsole/pkg/config"
	"github.com/sgaunet/hcconsole/pkg/gateway"
	"github.com/sgaunet/hcconsole/pkg/health"
	"github.com/sgaunet/hcconsole/pkg/s3svc"
	"github.com/sgaunet/hcconsole/pkg/scheduler"
	"github.com/sgaunet/hcconsole/pkg/session"
	"github.com/sgaunet/hcconsole/pkg/slogx"
	"github.com/sgaunet/hcconsole/pkg/storageapi"
	"github.com/sgaunet/hcconsole/pkg/views"
)

const shutdownTimeout = 10 * time.Second

// BucketChecker verifies AWS_S3 buckets before registration.
type BucketChecker interface {
	CheckBucket(ctx context.Context, p s3svc.Probe) error
}

// App is the console server.
type App struct {
	cfg       config.Config
	router    *mux.Router
	views     *views.Views
	srv       *http.Server
	log       *slog.Logger
	registry  *prometheus.Registry
	store     session.Store
	closeFn   func() error
	sessions  *session.Manager
	boot      *bootstrap.Bootstrapper
	api       *storageapi.Client
	s3        BucketChecker
	monitors  []*health.Monitor
	scheduler *scheduler.Scheduler
	cancel    context.CancelFunc
}

// Option customises NewApp.
type Option func(*App)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *App) { s.log = log }
}

// WithStore uses store instead of opening the configured session backend.
func WithStore(store session.Store) Option {
	return func(s *App) { s.store = store }
}

// WithBucketChecker replaces the AWS bucket probe.
func WithBucketChecker(c BucketChecker) Option {
	return func(s *App) { s.s3 = c }
}

// WithRegistry registers metrics on reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *App) { s.registry = reg }
}

// NewApp builds the console from cfg. The server is not started.
func NewApp(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &App{
		cfg:    cfg,
		router: mux.NewRouter().StrictSlash(true),
		log:    slogx.Discard(),
		srv: &http.Server{
			Addr:              cfg.Listen,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	var err error
	if s.views, err = views.NewViews(); err != nil {
		return nil, err
	}

	if s.store == nil {
		s.store, s.closeFn, err = openStore(ctx, cfg.Session, s.log)
		if err != nil {
			return nil, err
		}
	}
	s.sessions = session.NewManager(s.store, cfg.Session.CookieName, cfg.Session.SecureCookie, cfg.Session.TTL)

	if s.boot, err = bootstrap.New(cfg.AuthLogin, cfg.PublicURL); err != nil {
		return nil, err
	}
	s.boot.SetPlaceholder(s.views.Authenticating)

	transport := gateway.NewTransport(nil, gateway.NewMetrics(s.registry))
	transport.SetLogger(s.log)
	gw := gateway.NewClient(cfg.APIBaseURL(), transport, cfg.RequestTimeout)
	gw.SetLogger(s.log)
	s.api = storageapi.New(gw)

	if s.s3 == nil {
		checker := s3svc.NewS3Svc(cfg.S3)
		checker.SetLogger(s.log)
		s.s3 = checker
	}

	s.monitors = []*health.Monitor{
		health.NewMonitor("session_store", s.store, cfg.HealthInterval),
		health.NewMonitor("storage_gateway", gw, cfg.HealthInterval),
	}
	for _, m := range s.monitors {
		m.SetLogger(s.log)
	}

	s.scheduler = scheduler.NewScheduler(cfg.Session.PurgeSchedule, s.store)
	s.scheduler.SetLogger(s.log)

	s.initRouter()
	return s, nil
}

// Router returns the HTTP handler of the console.
func (s *App) Router() http.Handler {
	return s.router
}

// Start runs the background jobs and the web server.
func (s *App) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	for _, m := range s.monitors {
		m.Start(ctx)
	}
	if err := s.scheduler.Start(ctx); err != nil {
		s.cancel()
		return err
	}
	go s.startWebServer()
	return nil
}

func (s *App) startWebServer() {
	s.log.Info("listen", slog.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error("web server stopped", slog.String("error", err.Error()))
	}
}

// StopServer gracefully stops the server and the background jobs.
func (s *App) StopServer() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown web server: %w", err))
	}
	s.scheduler.Stop()
	for _, m := range s.monitors {
		m.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.closeFn != nil {
		if err := s.closeFn(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close session store: %w", err))
		}
	}
	return errors.Join(errs...)
}

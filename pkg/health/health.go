// Package health provides dependency health monitoring and status tracking functionality.
package health

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Status represents the current health status.
type Status string

const (
	// StatusHealthy indicates the service is functioning normally.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the service is experiencing issues.
	StatusUnhealthy Status = "unhealthy"
	// StatusUnknown indicates the health status hasn't been determined yet.
	StatusUnknown Status = "unknown"
)

const (
	defaultCheckInterval = 30 * time.Second
	pingTimeout          = 5 * time.Second
)

// Pinger is a dependency that can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

// Ping calls f.
func (f PingerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// Monitor tracks the reachability of one dependency.
type Monitor struct {
	mu                  sync.RWMutex
	name                string
	pinger              Pinger
	status              Status
	lastCheck           time.Time
	lastError           error
	consecutiveFailures int
	logger              *slog.Logger
	checkInterval       time.Duration
	cancel              context.CancelFunc
	done                chan struct{}
}

// Info contains current health information.
type Info struct {
	Name                string    `json:"name"`
	Status              Status    `json:"status"`
	LastCheck           time.Time `json:"last_check"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
}

// NewMonitor creates a monitor probing pinger every interval (30s when zero).
func NewMonitor(name string, pinger Pinger, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	return &Monitor{
		name:          name,
		pinger:        pinger,
		status:        StatusUnknown,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		checkInterval: interval,
	}
}

// SetLogger sets the logger
func (h *Monitor) SetLogger(logger *slog.Logger) {
	h.logger = logger
}

// Name returns the monitored dependency name.
func (h *Monitor) Name() string {
	return h.name
}

// Start performs a first check then keeps checking in the background until Stop.
func (h *Monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.done = make(chan struct{})

	h.Check(ctx)

	go h.healthCheckLoop(ctx)
}

// Stop stops the health monitoring and waits for the loop to exit.
func (h *Monitor) Stop() {
	if h.cancel == nil {
		return
	}
	h.cancel()
	<-h.done
}

// GetHealthInfo returns current health information.
func (h *Monitor) GetHealthInfo() Info {
	h.mu.RLock()
	defer h.mu.RUnlock()

	errorMsg := ""
	if h.lastError != nil {
		errorMsg = h.lastError.Error()
	}

	return Info{
		Name:                h.name,
		Status:              h.status,
		LastCheck:           h.lastCheck,
		LastError:           errorMsg,
		ConsecutiveFailures: h.consecutiveFailures,
	}
}

// IsHealthy returns true if the last check succeeded.
func (h *Monitor) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status == StatusHealthy
}

func (h *Monitor) healthCheckLoop(ctx context.Context) {
	defer close(h.done)
	ticker := time.NewTicker(h.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}

// Check probes the dependency once and records the result.
func (h *Monitor) Check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	err := h.pinger.Ping(pingCtx)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastCheck = time.Now()
	if err != nil {
		h.status = StatusUnhealthy
		h.lastError = err
		h.consecutiveFailures++

		h.logger.Debug("health check failed",
			slog.String("service", h.name),
			slog.String("error", err.Error()),
			slog.Int("consecutive_failures", h.consecutiveFailures))
		return
	}

	wasUnhealthy := h.status == StatusUnhealthy
	h.status = StatusHealthy
	h.lastError = nil
	h.consecutiveFailures = 0

	if wasUnhealthy {
		h.logger.Info("health restored", slog.String("service", h.name))
	}
}

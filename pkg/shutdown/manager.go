package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	shutdownDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shutdown_duration_seconds",
		Help:    "Total time taken to shutdown gracefully",
		Buckets: []float64{1, 5, 10, 15, 20, 25, 30},
	})

	shutdownErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shutdown_errors_total",
		Help: "Total number of shutdown errors by component",
	}, []string{"component"})
)

// ShutdownFunc shuts down a single component
type ShutdownFunc func(context.Context) error

type component struct {
	name string
	fn   ShutdownFunc
}

// Manager coordinates graceful shutdown of service components.
// Components shut down in reverse registration order, so servers
// registered after the database stop accepting work before it closes.
type Manager struct {
	logger     *zap.Logger
	components []component
	mu         sync.Mutex
	timeout    time.Duration
}

// NewManager creates a new shutdown manager
func NewManager(logger *zap.Logger, timeout time.Duration) *Manager {
	return &Manager{
		logger:  logger,
		timeout: timeout,
	}
}

// Register adds a shutdown function, called in reverse registration order
func (sm *Manager) Register(name string, fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.components = append(sm.components, component{name: name, fn: fn})
}

// RegisterHTTPServer registers a server exposing Shutdown(ctx)
func (sm *Manager) RegisterHTTPServer(name string, server interface{ Shutdown(context.Context) error }) {
	sm.Register(name, server.Shutdown)
}

// RegisterNoErr registers a shutdown function that cannot fail
func (sm *Manager) RegisterNoErr(name string, fn func()) {
	sm.Register(name, func(ctx context.Context) error {
		fn()
		return nil
	})
}

// WaitForShutdown blocks until SIGINT or SIGTERM, then runs Shutdown
func (sm *Manager) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	sm.logger.Info("received shutdown signal",
		zap.String("signal", sig.String()),
		zap.Duration("timeout", sm.timeout),
	)

	sm.Shutdown()
}

// Shutdown runs every registered shutdown function in reverse order,
// sharing one deadline across all of them
func (sm *Manager) Shutdown() {
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()

	sm.mu.Lock()
	components := make([]component, len(sm.components))
	copy(components, sm.components)
	sm.mu.Unlock()

	sm.logger.Info("starting graceful shutdown",
		zap.Int("component_count", len(components)),
	)

	for i := len(components) - 1; i >= 0; i-- {
		comp := components[i]
		compStart := time.Now()

		if err := comp.fn(ctx); err != nil {
			shutdownErrors.WithLabelValues(comp.name).Inc()
			sm.logger.Error("component shutdown failed",
				zap.String("component", comp.name),
				zap.Error(err),
				zap.Duration("elapsed", time.Since(compStart)),
			)
			continue
		}

		sm.logger.Info("component shut down",
			zap.String("component", comp.name),
			zap.Duration("elapsed", time.Since(compStart)),
		)
	}

	shutdownDuration.Observe(time.Since(start).Seconds())
	sm.logger.Info("graceful shutdown complete",
		zap.Duration("elapsed", time.Since(start)),
	)
}

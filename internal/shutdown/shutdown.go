package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/psantana5/logcheck/internal/logging"
)

// stopSignals releases a channel registered with signal.Notify
var stopSignals = signal.Stop

type hook struct {
	name string
	fn   func(context.Context) error
}

// Manager turns operator signals into context cancellation and runs cleanup
// hooks once, in reverse registration order, under a timeout.
type Manager struct {
	mu      sync.Mutex
	hooks   []hook
	timeout time.Duration
	logger  *logging.Logger
	once    sync.Once
	errs    []error
}

// New creates a new shutdown manager
func New(timeout time.Duration, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Manager{timeout: timeout, logger: logger}
}

// Register adds a cleanup hook. Hooks run LIFO.
func (m *Manager) Register(name string, fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook{name: name, fn: fn})
}

// NotifyContext returns a context cancelled on SIGINT or SIGTERM.
// Only the first signal is caught; a second one gets the default action,
// so a repeated Ctrl+C still ends the process. The returned stop func
// releases the signal handler.
func (m *Manager) NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return m.notifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func (m *Manager) notifyContext(parent context.Context, sigs ...os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, sigs...)

	go func() {
		select {
		case sig := <-sigChan:
			stopSignals(sigChan)
			m.logger.Debug("received signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		stopSignals(sigChan)
		cancel()
	}
}

// Shutdown runs every hook once. Later calls are no-ops returning the
// errors of the first run.
func (m *Manager) Shutdown() []error {
	m.once.Do(func() {
		m.mu.Lock()
		hooks := append([]hook(nil), m.hooks...)
		m.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		for i := len(hooks) - 1; i >= 0; i-- {
			h := hooks[i]
			if err := h.fn(ctx); err != nil {
				err = fmt.Errorf("%s: %w", h.name, err)
				m.errs = append(m.errs, err)
				m.logger.Warn("shutdown hook failed", map[string]interface{}{
					"hook":  h.name,
					"error": err.Error(),
				})
			}
		}
	})
	return m.errs
}

// Package listeners tracks the host's active network listeners and provides
// the suspend/resume capability cycled on platform reconnect signals.
package listeners

import (
	"sync"

	"go.uber.org/zap"

	"github.com/thehaigo/desktop/internal/domain/env"
	"github.com/thehaigo/desktop/internal/infrastructure/logging"
)

// Registry is the host's listener registry. It satisfies the coordinator's
// ListenerRegistry boundary; the coordinator enumerates it on reconnect.
type Registry struct {
	mu     sync.RWMutex
	items  map[string]env.Listener
	logger *logging.Logger
}

// NewRegistry creates an empty listener registry.
func NewRegistry(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{
		items:  make(map[string]env.Listener),
		logger: logger,
	}
}

// Add registers a listener under name, replacing any previous entry.
func (r *Registry) Add(name string, l env.Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[name] = l
	r.logger.Debug("listener registered",
		zap.String("name", name),
		zap.String("addr", l.Addr().String()))
}

// Remove drops the listener registered under name.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, name)
	r.logger.Debug("listener removed", zap.String("name", name))
}

// Active returns the currently registered listeners.
func (r *Registry) Active() []env.Listener {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]env.Listener, 0, len(r.items))
	for _, l := range r.items {
		out = append(out, l)
	}
	return out
}

// Len returns the number of registered listeners.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

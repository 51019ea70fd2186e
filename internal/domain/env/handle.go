package env

import (
	"github.com/thehaigo/desktop/internal/shared/id"
)

// Handle identifies a dependent process (a window, an event subscriber)
// whose liveness the coordinator tracks. The done channel closing is the
// death notification; a nil done channel means the owner never dies.
type Handle struct {
	id    id.WindowID
	label string
	done  <-chan struct{}
}

// NewHandle creates a handle with a fresh window ID.
func NewHandle(label string, done <-chan struct{}) *Handle {
	return &Handle{
		id:    id.NewWindowID(),
		label: label,
		done:  done,
	}
}

// ID returns the handle's window ID.
func (h *Handle) ID() id.WindowID {
	return h.id
}

// Label returns the human-readable handle label.
func (h *Handle) Label() string {
	return h.label
}

// Done returns the channel closed when the owning process is gone.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

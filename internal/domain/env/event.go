package env

import (
	"time"

	"github.com/google/uuid"
)

// Kind tags an OS lifecycle event.
type Kind string

// Lifecycle event kinds delivered by the platform.
const (
	KindOpenFile  Kind = "open_file"
	KindOpenURL   Kind = "open_url"
	KindPrintFile Kind = "print_file"
	KindNewFile   Kind = "new_file"
	KindReopenApp Kind = "reopen_app"
)

// Valid reports whether k is a known lifecycle kind.
func (k Kind) Valid() bool {
	switch k {
	case KindOpenFile, KindOpenURL, KindPrintFile, KindNewFile, KindReopenApp:
		return true
	}
	return false
}

// Event is an OS lifecycle notification fanned out to subscribers.
// Identity for consumers is (Kind, Args); ID and Time are envelope metadata.
type Event struct {
	ID   string    `json:"id"`
	Kind Kind      `json:"kind"`
	Args []string  `json:"args,omitempty"`
	Time time.Time `json:"time"`
}

// NewEvent builds an event envelope with a fresh ID.
func NewEvent(kind Kind, args ...string) Event {
	return Event{
		ID:   uuid.NewString(),
		Kind: kind,
		Args: args,
		Time: time.Now(),
	}
}

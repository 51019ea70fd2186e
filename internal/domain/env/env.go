package env

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/thehaigo/desktop/internal/infrastructure/logging"
	"github.com/thehaigo/desktop/internal/infrastructure/monitoring"
)

var (
	// ErrClosed reports an operation against a stopped coordinator.
	ErrClosed = errors.New("env: coordinator closed")

	// ErrNoToolkit reports a callback registration with no toolkit wired.
	ErrNoToolkit = errors.New("env: no toolkit configured")
)

// SideService is the optional platform integration produced by the probe.
// The coordinator owns the handle once the probe succeeds and closes it on
// shutdown; everything else about the service is the caller's business.
type SideService interface {
	Close() error
}

// Probe starts the side service. It runs inside an isolated worker: a panic
// or error resolves the service as unavailable and never reaches callers.
type Probe func(ctx context.Context) (SideService, error)

// Toolkit is the narrow boundary to the embedded GUI toolkit. The
// coordinator forwards callback registrations verbatim and does not
// interpret targets or event kinds.
type Toolkit interface {
	Connect(target, kind string, cb func(args []string), id string) (string, error)
}

// Listener is one active network endpoint known to the listener registry.
type Listener interface {
	Addr() net.Addr
}

// Suspender is the optional suspend/resume capability of a listener,
// cycled on reconnect signals.
type Suspender interface {
	Suspend() error
	Resume() error
}

// ListenerRegistry enumerates the host's active listeners.
type ListenerRegistry interface {
	Active() []Listener
}

// Options configures a coordinator.
type Options struct {
	Logger   *logging.Logger
	Metrics  *monitoring.Metrics
	Probe    Probe
	Toolkit  Toolkit
	Registry ListenerRegistry
}

// Env is the shared-state coordinator for the host process. A single
// goroutine owns all state and processes one message at a time; the public
// methods are the message protocol.
type Env struct {
	logger  *logging.Logger
	metrics *monitoring.Metrics

	probe    Probe
	toolkit  Toolkit
	registry ListenerRegistry

	mailbox chan any
	quit    chan struct{}
	done    chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	// Fields below are owned by the run loop.
	values         map[string]any
	waiters        map[string][]chan any
	waiterCount    int
	windows        []*Handle
	subs           []*subscriber
	buffer         []Event
	everSubscribed bool
	ss             sideServiceState
}

type subscriber struct {
	handle *Handle
	box    *mailbox
}

// Stats is a point-in-time snapshot of coordinator state.
type Stats struct {
	Keys        int    `json:"keys"`
	Waiters     int    `json:"waiters"`
	Windows     int    `json:"windows"`
	Subscribers int    `json:"subscribers"`
	Buffered    int    `json:"buffered_events"`
	SideService string `json:"side_service"`
}

// New creates a coordinator and starts its message loop.
func New(opts Options) *Env {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	e := &Env{
		logger:   logger,
		metrics:  opts.Metrics,
		probe:    opts.Probe,
		toolkit:  opts.Toolkit,
		registry: opts.Registry,
		mailbox:  make(chan any, 128),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		values:   make(map[string]any),
		waiters:  make(map[string][]chan any),
	}

	go e.run()
	return e
}

// Close stops the coordinator. Blocked Await callers unblock with ErrClosed,
// subscriber channels close, and a running side service is shut down.
func (e *Env) Close() error {
	e.once.Do(func() {
		e.cancel()
		close(e.quit)
		<-e.done
	})
	return nil
}

// Get returns the stored value for key, or def when absent. A stored nil is
// a present value and shadows def.
func (e *Env) Get(key string, def any) any {
	reply := make(chan any, 1)
	if !e.send(getMsg{key: key, def: def, reply: reply}) {
		return def
	}
	return e.waitValue(reply, def)
}

// Pop returns and removes the stored value for key, or def when absent.
func (e *Env) Pop(key string, def any) any {
	reply := make(chan any, 1)
	if !e.send(popMsg{key: key, def: def, reply: reply}) {
		return def
	}
	return e.waitValue(reply, def)
}

// Put stores value under key and returns the previous value (nil when
// absent). Every caller blocked in Await on the same key unblocks with
// value before Put returns control to the store.
func (e *Env) Put(key string, value any) any {
	reply := make(chan any, 1)
	if !e.send(putMsg{key: key, value: value, reply: reply}) {
		return nil
	}
	return e.waitValue(reply, nil)
}

// Await returns the value for key, blocking until some Put populates it.
// The coordinator never times out a waiter; bounded waiting is the caller's
// business via ctx. A cancelled waiter leaves a harmless no-op reply slot
// behind, cleared by the next Put on the key.
func (e *Env) Await(ctx context.Context, key string) (any, error) {
	reply := make(chan any, 1)
	if !e.send(awaitMsg{key: key, reply: reply}) {
		return nil, ErrClosed
	}

	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-e.done:
		select {
		case v := <-reply:
			return v, nil
		default:
			return nil, ErrClosed
		}
	}
}

// RegisterWindow adds h to the window set and begins liveness tracking.
// One-way: registration is unconditional and carries no reply.
func (e *Env) RegisterWindow(h *Handle) {
	e.send(registerWindowMsg{h: h})
}

// Windows returns a snapshot of the registered window handles in
// registration order.
func (e *Env) Windows() []*Handle {
	reply := make(chan []*Handle, 1)
	if !e.send(windowsMsg{reply: reply}) {
		return nil
	}
	select {
	case ws := <-reply:
		return ws
	case <-e.done:
		select {
		case ws := <-reply:
			return ws
		default:
			return nil
		}
	}
}

// Subscribe registers h as an event subscriber and returns its delivery
// channel. Events buffered before the first subscription ever are queued to
// that first subscriber in arrival order, then the buffer is gone for good.
// The channel closes when the subscriber's handle dies or the coordinator
// stops.
func (e *Env) Subscribe(h *Handle) (<-chan Event, error) {
	reply := make(chan (<-chan Event), 1)
	if !e.send(subscribeMsg{h: h, reply: reply}) {
		return nil, ErrClosed
	}
	select {
	case ch := <-reply:
		return ch, nil
	case <-e.done:
		select {
		case ch := <-reply:
			return ch, nil
		default:
			return nil, ErrClosed
		}
	}
}

// Publish hands an OS lifecycle event to the coordinator. One-way.
func (e *Env) Publish(ev Event) {
	e.send(publishMsg{ev: ev})
}

// SideService returns the side service handle, lazily probing on first use.
// The probe runs at most once per coordinator lifetime in an isolated
// worker; any failure resolves to (nil, false). Never fails.
func (e *Env) SideService(ctx context.Context) (SideService, bool) {
	reply := make(chan ssReply, 1)
	if !e.send(sideServiceMsg{reply: reply}) {
		return nil, false
	}

	select {
	case r := <-reply:
		return r.svc, r.ok
	case <-ctx.Done():
		return nil, false
	case <-e.done:
		select {
		case r := <-reply:
			return r.svc, r.ok
		default:
			return nil, false
		}
	}
}

// ConnectCallback forwards a callback registration to the GUI toolkit and
// returns its result verbatim.
func (e *Env) ConnectCallback(target, kind string, cb func(args []string), id string) (string, error) {
	reply := make(chan connectReply, 1)
	if !e.send(connectMsg{target: target, kind: kind, cb: cb, id: id, reply: reply}) {
		return "", ErrClosed
	}
	select {
	case r := <-reply:
		return r.result, r.err
	case <-e.done:
		select {
		case r := <-reply:
			return r.result, r.err
		default:
			return "", ErrClosed
		}
	}
}

// Reconnect cycles the suspend state of every registry listener carrying
// the Suspender capability. Listeners without it, or a missing registry,
// make this a no-op. One-way.
func (e *Env) Reconnect() {
	e.send(reconnectMsg{})
}

// Stats returns a snapshot of coordinator state.
func (e *Env) Stats() Stats {
	reply := make(chan Stats, 1)
	if !e.send(statsMsg{reply: reply}) {
		return Stats{}
	}
	select {
	case s := <-reply:
		return s
	case <-e.done:
		select {
		case s := <-reply:
			return s
		default:
			return Stats{}
		}
	}
}

// send queues a message for the loop. False means the coordinator stopped.
func (e *Env) send(m any) bool {
	select {
	case e.mailbox <- m:
		return true
	case <-e.done:
		return false
	}
}

// waitValue collects a value reply, falling back to def on shutdown.
func (e *Env) waitValue(reply chan any, def any) any {
	select {
	case v := <-reply:
		return v
	case <-e.done:
		select {
		case v := <-reply:
			return v
		default:
			return def
		}
	}
}

package env

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"
)

func newTestEnv(t *testing.T, opts Options) *Env {
	t.Helper()
	e := New(opts)
	t.Cleanup(func() { e.Close() })
	return e
}

// waitUntil polls cond until it holds or the deadline passes. One-way sends
// (RegisterWindow, Publish, Reconnect) and death notifications land
// asynchronously, so tests observe them through Stats.
func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}

func recvEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("event channel closed early")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func assertNoEvent(t *testing.T, ch <-chan Event) {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("event channel closed unexpectedly")
		}
		t.Fatalf("unexpected event: kind=%s args=%v", ev.Kind, ev.Args)
	case <-time.After(100 * time.Millisecond):
	}
}

// mortalHandle is a handle whose death the test controls.
func mortalHandle(label string) (*Handle, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	return NewHandle(label, ctx.Done()), cancel
}

type fakeToolkit struct {
	mu      sync.Mutex
	targets []string
	kinds   []string
	ids     []string
	result  string
	err     error
}

func (f *fakeToolkit) Connect(target, kind string, cb func(args []string), id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets = append(f.targets, target)
	f.kinds = append(f.kinds, kind)
	f.ids = append(f.ids, id)
	if f.err != nil {
		return "", f.err
	}
	return f.result, nil
}

type plainListener struct{}

func (plainListener) Addr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}

type cyclingListener struct {
	plainListener
	mu       sync.Mutex
	suspends int
	resumes  int
}

func (c *cyclingListener) Suspend() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suspends++
	return nil
}

func (c *cyclingListener) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resumes++
	return nil
}

func (c *cyclingListener) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suspends, c.resumes
}

type fakeRegistry struct {
	listeners []Listener
}

func (f *fakeRegistry) Active() []Listener {
	return f.listeners
}

func TestConnectCallbackPassThrough(t *testing.T) {
	tk := &fakeToolkit{result: "cb-7"}
	e := newTestEnv(t, Options{Toolkit: tk})

	got, err := e.ConnectCallback("menu.quit", "clicked", func([]string) {}, "quit")
	if err != nil {
		t.Fatalf("ConnectCallback failed: %v", err)
	}
	if got != "cb-7" {
		t.Errorf("Expected toolkit result 'cb-7', got %q", got)
	}
	if len(tk.targets) != 1 || tk.targets[0] != "menu.quit" {
		t.Errorf("Toolkit saw targets %v", tk.targets)
	}
	if tk.kinds[0] != "clicked" || tk.ids[0] != "quit" {
		t.Errorf("Toolkit saw kind=%q id=%q", tk.kinds[0], tk.ids[0])
	}
}

func TestConnectCallbackErrorVerbatim(t *testing.T) {
	want := errors.New("unknown target")
	tk := &fakeToolkit{err: want}
	e := newTestEnv(t, Options{Toolkit: tk})

	_, err := e.ConnectCallback("menu.bogus", "clicked", nil, "")
	if !errors.Is(err, want) {
		t.Errorf("Expected toolkit error %v, got %v", want, err)
	}
}

func TestConnectCallbackNoToolkit(t *testing.T) {
	e := newTestEnv(t, Options{})

	_, err := e.ConnectCallback("menu.quit", "clicked", nil, "")
	if !errors.Is(err, ErrNoToolkit) {
		t.Errorf("Expected ErrNoToolkit, got %v", err)
	}
}

func TestReconnectCyclesSuspendableListeners(t *testing.T) {
	cycling := &cyclingListener{}
	reg := &fakeRegistry{listeners: []Listener{plainListener{}, cycling}}
	e := newTestEnv(t, Options{Registry: reg})

	e.Reconnect()

	waitUntil(t, func() bool {
		s, r := cycling.counts()
		return s == 1 && r == 1
	}, "suspendable listener cycled once")
}

func TestReconnectWithoutRegistry(t *testing.T) {
	e := newTestEnv(t, Options{})

	e.Reconnect()

	// The signal must not disturb unrelated operations.
	e.Put("k", "v")
	if got := e.Get("k", nil); got != "v" {
		t.Errorf("Coordinator unhealthy after reconnect: got %v", got)
	}
}

func TestStatsInitial(t *testing.T) {
	e := newTestEnv(t, Options{})

	s := e.Stats()
	if s.Keys != 0 || s.Waiters != 0 || s.Windows != 0 || s.Subscribers != 0 || s.Buffered != 0 {
		t.Errorf("Expected empty stats, got %+v", s)
	}
	if s.SideService != "uninitialized" {
		t.Errorf("Expected side service uninitialized, got %q", s.SideService)
	}
}

func TestCloseIdempotent(t *testing.T) {
	e := New(Options{})

	if err := e.Close(); err != nil {
		t.Fatalf("First close failed: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Second close failed: %v", err)
	}

	if got := e.Get("k", "fallback"); got != "fallback" {
		t.Errorf("Get after close should return default, got %v", got)
	}
}

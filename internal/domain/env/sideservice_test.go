package env

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

type fakeService struct {
	closed atomic.Bool
}

func (f *fakeService) Close() error {
	f.closed.Store(true)
	return nil
}

func TestSideServiceSuccessMemoized(t *testing.T) {
	svc := &fakeService{}
	var calls atomic.Int32

	e := newTestEnv(t, Options{
		Probe: func(ctx context.Context) (SideService, error) {
			calls.Add(1)
			return svc, nil
		},
	})

	got1, ok1 := e.SideService(context.Background())
	got2, ok2 := e.SideService(context.Background())

	if !ok1 || !ok2 {
		t.Fatalf("Expected side service available, got ok1=%v ok2=%v", ok1, ok2)
	}
	if got1 != SideService(svc) || got2 != SideService(svc) {
		t.Error("Both calls should return the probed handle")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("Probe should run exactly once, ran %d times", n)
	}
	if s := e.Stats().SideService; s != "ready" {
		t.Errorf("Expected state 'ready', got %q", s)
	}
}

func TestSideServiceFailureMemoized(t *testing.T) {
	var calls atomic.Int32

	e := newTestEnv(t, Options{
		Probe: func(ctx context.Context) (SideService, error) {
			calls.Add(1)
			return nil, errors.New("watcher not registered")
		},
	})

	if _, ok := e.SideService(context.Background()); ok {
		t.Error("Failed probe should resolve unavailable")
	}
	if _, ok := e.SideService(context.Background()); ok {
		t.Error("Second call should reuse the memoized outcome")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("Probe should run exactly once, ran %d times", n)
	}
	if s := e.Stats().SideService; s != "unavailable" {
		t.Errorf("Expected state 'unavailable', got %q", s)
	}
}

func TestSideServicePanicRecovered(t *testing.T) {
	e := newTestEnv(t, Options{
		Probe: func(ctx context.Context) (SideService, error) {
			panic("dbus exploded")
		},
	})

	if _, ok := e.SideService(context.Background()); ok {
		t.Error("Panicking probe should resolve unavailable")
	}

	// The coordinator must stay responsive after the crash.
	e.Put("alive", true)
	if got := e.Get("alive", false); got != true {
		t.Error("Coordinator unresponsive after probe panic")
	}
}

func TestSideServiceNoProbeConfigured(t *testing.T) {
	e := newTestEnv(t, Options{})

	if _, ok := e.SideService(context.Background()); ok {
		t.Error("Missing probe should resolve unavailable")
	}
}

func TestSideServiceConcurrentAccessors(t *testing.T) {
	gate := make(chan struct{})
	svc := &fakeService{}
	var calls atomic.Int32

	e := newTestEnv(t, Options{
		Probe: func(ctx context.Context) (SideService, error) {
			calls.Add(1)
			<-gate
			return svc, nil
		},
	})

	const accessors = 4
	var wg sync.WaitGroup
	results := make([]bool, accessors)

	for i := 0; i < accessors; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = e.SideService(context.Background())
		}(i)
	}

	waitUntil(t, func() bool { return e.Stats().SideService == "probing" }, "probe in flight")

	// Accessors queue behind the single probe; unrelated requests keep
	// flowing while it runs.
	e.Put("during-probe", "fine")
	if got := e.Get("during-probe", nil); got != "fine" {
		t.Error("Coordinator blocked during probe")
	}

	close(gate)
	wg.Wait()

	for i, ok := range results {
		if !ok {
			t.Errorf("Accessor %d did not observe the service", i)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("Concurrent accessors must share one probe, ran %d", n)
	}
}

func TestSideServiceAccessorCancel(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)

	e := newTestEnv(t, Options{
		Probe: func(ctx context.Context) (SideService, error) {
			<-gate
			return nil, errors.New("unsupported")
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A caller that walks away just sees no integration.
	if _, ok := e.SideService(ctx); ok {
		t.Error("Cancelled accessor should report unavailable")
	}
}

func TestSideServiceClosedOnShutdown(t *testing.T) {
	svc := &fakeService{}

	e := New(Options{
		Probe: func(ctx context.Context) (SideService, error) {
			return svc, nil
		},
	})

	if _, ok := e.SideService(context.Background()); !ok {
		t.Fatal("Probe should succeed")
	}

	e.Close()

	if !svc.closed.Load() {
		t.Error("Side service should be closed on coordinator shutdown")
	}
}

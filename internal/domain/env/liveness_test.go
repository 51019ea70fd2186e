package env

import (
	"testing"
)

func TestRegisterWindow(t *testing.T) {
	e := newTestEnv(t, Options{})

	h1, _ := mortalHandle("main")
	h2, _ := mortalHandle("settings")

	e.RegisterWindow(h1)
	e.RegisterWindow(h2)

	waitUntil(t, func() bool { return e.Stats().Windows == 2 }, "windows registered")

	ws := e.Windows()
	if len(ws) != 2 {
		t.Fatalf("Expected 2 windows, got %d", len(ws))
	}
	if ws[0] != h1 || ws[1] != h2 {
		t.Error("Windows snapshot should preserve registration order")
	}
	if ws[0].Label() != "main" {
		t.Errorf("Expected label 'main', got %q", ws[0].Label())
	}
}

func TestRegisterWindowUnconditional(t *testing.T) {
	e := newTestEnv(t, Options{})

	h, _ := mortalHandle("main")
	e.RegisterWindow(h)
	e.RegisterWindow(h)

	// Additions are not deduplicated; callers register once per real window.
	waitUntil(t, func() bool { return e.Stats().Windows == 2 }, "both registrations recorded")
}

func TestWindowRemovedOnDeath(t *testing.T) {
	e := newTestEnv(t, Options{})

	h1, kill1 := mortalHandle("w1")
	h2, _ := mortalHandle("w2")

	e.RegisterWindow(h1)
	e.RegisterWindow(h2)
	waitUntil(t, func() bool { return e.Stats().Windows == 2 }, "windows registered")

	kill1()
	waitUntil(t, func() bool { return e.Stats().Windows == 1 }, "dead window removed")

	ws := e.Windows()
	if len(ws) != 1 || ws[0] != h2 {
		t.Error("Surviving window set wrong")
	}
}

func TestDuplicateRegistrationRemovedAtOnce(t *testing.T) {
	e := newTestEnv(t, Options{})

	h, kill := mortalHandle("w")
	e.RegisterWindow(h)
	e.RegisterWindow(h)
	waitUntil(t, func() bool { return e.Stats().Windows == 2 }, "registrations recorded")

	// Removal is membership-based: death clears every occurrence.
	kill()
	waitUntil(t, func() bool { return e.Stats().Windows == 0 }, "all occurrences removed")
}

func TestSubscriberRemovedOnDeath(t *testing.T) {
	e := newTestEnv(t, Options{})

	h, kill := mortalHandle("sub")
	if _, err := e.Subscribe(h); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	waitUntil(t, func() bool { return e.Stats().Subscribers == 1 }, "subscriber registered")

	kill()
	waitUntil(t, func() bool { return e.Stats().Subscribers == 0 }, "subscriber removed")
}

func TestDeathClearsBothSets(t *testing.T) {
	e := newTestEnv(t, Options{})

	h, kill := mortalHandle("both")
	e.RegisterWindow(h)
	if _, err := e.Subscribe(h); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	waitUntil(t, func() bool {
		s := e.Stats()
		return s.Windows == 1 && s.Subscribers == 1
	}, "handle in both sets")

	kill()

	waitUntil(t, func() bool {
		s := e.Stats()
		return s.Windows == 0 && s.Subscribers == 0
	}, "handle removed from both sets")
}

func TestDeathOfUnknownHandleIgnored(t *testing.T) {
	e := newTestEnv(t, Options{})

	h1, _ := mortalHandle("registered")
	e.RegisterWindow(h1)
	waitUntil(t, func() bool { return e.Stats().Windows == 1 }, "window registered")

	// A handle that was never registered dying must not disturb anything.
	_, killUnknown := mortalHandle("stranger")
	killUnknown()

	e.Put("sync", true)
	if w := e.Stats().Windows; w != 1 {
		t.Errorf("Expected 1 window, got %d", w)
	}
}

func TestHandleIDsDistinct(t *testing.T) {
	h1, _ := mortalHandle("a")
	h2, _ := mortalHandle("a")

	if h1.ID() == h2.ID() {
		t.Error("Handles should get distinct IDs")
	}
	if h1.ID().String() == "" {
		t.Error("Handle ID should be non-empty")
	}
}

package tray

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"
	"go.uber.org/zap"

	"github.com/thehaigo/desktop/internal/infrastructure/logging"
	"github.com/thehaigo/desktop/internal/shared/platform"
)

// ErrUnsupported reports that no tray can run on this host: wrong platform,
// opted out, or no StatusNotifierWatcher on the session bus.
var ErrUnsupported = errors.New("tray unsupported")

const (
	watcherName  = "org.kde.StatusNotifierWatcher"
	watcherPath  = dbus.ObjectPath("/StatusNotifierWatcher")
	watcherIface = "org.kde.StatusNotifierWatcher"

	itemIface = "org.kde.StatusNotifierItem"
	itemPath  = dbus.ObjectPath("/StatusNotifierItem")
	menuPath  = dbus.ObjectPath("/MenuBar")
	menuIface = "com.canonical.dbusmenu"
)

// Options configures the tray item.
type Options struct {
	// ID is the item identifier shown to the watcher. Defaults to "desktop".
	ID string

	// Title and IconName seed the item's visible state.
	Title    string
	IconName string
	Tooltip  string

	// Disabled skips the probe entirely (operator opt-out).
	Disabled bool

	// OnActivate runs when the user activates the item (left click).
	OnActivate func()

	// OnQuit runs when the user picks the menu's quit entry.
	OnQuit func()

	Logger *logging.Logger
}

// Tray is a live StatusNotifierItem registration. It owns the session bus
// connection it was dialed on.
type Tray struct {
	conn   *dbus.Conn
	name   string
	props  *prop.Properties
	logger *logging.Logger

	mu     sync.Mutex
	closed bool
}

// Dial probes the host for tray support and, when available, exports and
// registers a StatusNotifierItem. It returns ErrUnsupported when the
// platform, configuration, or session bus cannot carry one.
func Dial(ctx context.Context, opts Options) (*Tray, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.ID == "" {
		opts.ID = "desktop"
	}

	if opts.Disabled {
		return nil, fmt.Errorf("%w: disabled by configuration", ErrUnsupported)
	}
	if ok, reason := platform.SupportsTray(); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, reason)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("session bus: %w", err)
	}

	t, err := dial(ctx, conn, opts, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return t, nil
}

func dial(ctx context.Context, conn *dbus.Conn, opts Options, logger *logging.Logger) (*Tray, error) {
	if err := checkWatcher(ctx, conn); err != nil {
		return nil, err
	}

	name := fmt.Sprintf("org.kde.StatusNotifierItem-%d-1", os.Getpid())
	reply, err := conn.RequestName(name, dbus.NameFlagDoNotQueue)
	if err != nil || reply != dbus.RequestNameReplyPrimaryOwner {
		// The unique bus name works just as well for registration.
		name = conn.Names()[0]
	}

	props, err := exportItem(conn, opts)
	if err != nil {
		return nil, fmt.Errorf("export item: %w", err)
	}
	if err := exportMenu(conn, opts.OnQuit, logger); err != nil {
		return nil, fmt.Errorf("export menu: %w", err)
	}

	watcher := conn.Object(watcherName, watcherPath)
	call := watcher.CallWithContext(ctx, watcherIface+".RegisterStatusNotifierItem", 0, name)
	if call.Err != nil {
		return nil, fmt.Errorf("register item: %w", call.Err)
	}

	logger.Info("tray item registered",
		zap.String("name", name),
		zap.String("icon", opts.IconName))

	return &Tray{
		conn:   conn,
		name:   name,
		props:  props,
		logger: logger,
	}, nil
}

// checkWatcher verifies a StatusNotifierWatcher owns its well-known name and
// that at least one host is attached to it.
func checkWatcher(ctx context.Context, conn *dbus.Conn) error {
	var hasOwner bool
	err := conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.NameHasOwner", 0, watcherName).Store(&hasOwner)
	if err != nil {
		return fmt.Errorf("query watcher: %w", err)
	}
	if !hasOwner {
		return fmt.Errorf("%w: no status notifier watcher", ErrUnsupported)
	}

	watcher := conn.Object(watcherName, watcherPath)
	variant, err := watcher.GetProperty(watcherIface + ".IsStatusNotifierHostRegistered")
	if err != nil {
		return fmt.Errorf("query watcher host: %w", err)
	}
	registered, ok := variant.Value().(bool)
	if !ok || !registered {
		return fmt.Errorf("%w: no status notifier host", ErrUnsupported)
	}
	return nil
}

// SetTitle updates the item's title and signals the change to the host.
func (t *Tray) SetTitle(title string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.New("tray closed")
	}
	t.props.SetMust(itemIface, "Title", title)
	return t.conn.Emit(itemPath, itemIface+".NewTitle")
}

// SetIconName updates the item's themed icon and signals the change.
func (t *Tray) SetIconName(icon string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.New("tray closed")
	}
	t.props.SetMust(itemIface, "IconName", icon)
	return t.conn.Emit(itemPath, itemIface+".NewIcon")
}

// Close releases the item's bus name and connection. The watcher observes
// the name vanish and drops the item.
func (t *Tray) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true

	t.logger.Info("tray item released", zap.String("name", t.name))
	if _, err := t.conn.ReleaseName(t.name); err != nil {
		t.conn.Close()
		return err
	}
	return t.conn.Close()
}

package tray

import (
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"

	"github.com/thehaigo/desktop/internal/infrastructure/logging"
)

// Menu item identifiers. com.canonical.dbusmenu reserves 0 for the root.
const (
	rootMenuID int32 = 0
	quitMenuID int32 = 1
)

// layout is the wire shape of a dbusmenu layout node, signature (ia{sv}av).
type layout struct {
	ID         int32
	Properties map[string]dbus.Variant
	Children   []dbus.Variant
}

// idProps pairs a menu item with its properties, signature (ia{sv}).
type idProps struct {
	ID         int32
	Properties map[string]dbus.Variant
}

// menu serves a single-entry com.canonical.dbusmenu tree: a root with one
// quit item. The layout never changes, so the revision is constant and no
// LayoutUpdated signals are emitted.
type menu struct {
	onQuit func()
	logger *logging.Logger
}

func quitProps() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"label":   dbus.MakeVariant("Quit"),
		"enabled": dbus.MakeVariant(true),
		"visible": dbus.MakeVariant(true),
	}
}

func (m *menu) GetLayout(parentID int32, recursionDepth int32, propertyNames []string) (uint32, layout, *dbus.Error) {
	if parentID == quitMenuID {
		return 1, layout{ID: quitMenuID, Properties: quitProps()}, nil
	}

	root := layout{
		ID: rootMenuID,
		Properties: map[string]dbus.Variant{
			"children-display": dbus.MakeVariant("submenu"),
		},
	}
	if recursionDepth != 0 {
		root.Children = []dbus.Variant{
			dbus.MakeVariant(layout{ID: quitMenuID, Properties: quitProps()}),
		}
	}
	return 1, root, nil
}

func (m *menu) GetGroupProperties(ids []int32, propertyNames []string) ([]idProps, *dbus.Error) {
	out := make([]idProps, 0, len(ids))
	for _, id := range ids {
		if id == quitMenuID {
			out = append(out, idProps{ID: quitMenuID, Properties: quitProps()})
		}
	}
	return out, nil
}

func (m *menu) GetProperty(id int32, name string) (dbus.Variant, *dbus.Error) {
	if id == quitMenuID {
		if v, ok := quitProps()[name]; ok {
			return v, nil
		}
	}
	return dbus.MakeVariant(""), nil
}

// Event receives user interaction. Only a click on the quit entry carries
// an action.
func (m *menu) Event(id int32, eventID string, data dbus.Variant, timestamp uint32) *dbus.Error {
	if id == quitMenuID && eventID == "clicked" {
		if m.logger != nil {
			m.logger.Info("tray quit requested")
		}
		if m.onQuit != nil {
			m.onQuit()
		}
	}
	return nil
}

func (m *menu) AboutToShow(id int32) (bool, *dbus.Error) {
	return false, nil
}

func exportMenu(conn *dbus.Conn, onQuit func(), logger *logging.Logger) error {
	m := &menu{onQuit: onQuit, logger: logger}
	if err := conn.Export(m, menuPath, menuIface); err != nil {
		return err
	}

	menuProps := map[string]*prop.Prop{
		"Version":       {Value: uint32(3), Emit: prop.EmitTrue},
		"Status":        {Value: "normal", Emit: prop.EmitTrue},
		"TextDirection": {Value: "ltr", Emit: prop.EmitTrue},
		"IconThemePath": {Value: []string{}, Emit: prop.EmitTrue},
	}
	if _, err := prop.Export(conn, menuPath, prop.Map{menuIface: menuProps}); err != nil {
		return err
	}

	node := &introspect.Node{
		Name: string(menuPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name: menuIface,
				Methods: []introspect.Method{
					{Name: "GetLayout", Args: []introspect.Arg{
						{Name: "parentId", Type: "i", Direction: "in"},
						{Name: "recursionDepth", Type: "i", Direction: "in"},
						{Name: "propertyNames", Type: "as", Direction: "in"},
						{Name: "revision", Type: "u", Direction: "out"},
						{Name: "layout", Type: "(ia{sv}av)", Direction: "out"},
					}},
					{Name: "GetGroupProperties", Args: []introspect.Arg{
						{Name: "ids", Type: "ai", Direction: "in"},
						{Name: "propertyNames", Type: "as", Direction: "in"},
						{Name: "properties", Type: "a(ia{sv})", Direction: "out"},
					}},
					{Name: "GetProperty", Args: []introspect.Arg{
						{Name: "id", Type: "i", Direction: "in"},
						{Name: "name", Type: "s", Direction: "in"},
						{Name: "value", Type: "v", Direction: "out"},
					}},
					{Name: "Event", Args: []introspect.Arg{
						{Name: "id", Type: "i", Direction: "in"},
						{Name: "eventId", Type: "s", Direction: "in"},
						{Name: "data", Type: "v", Direction: "in"},
						{Name: "timestamp", Type: "u", Direction: "in"},
					}},
					{Name: "AboutToShow", Args: []introspect.Arg{
						{Name: "id", Type: "i", Direction: "in"},
						{Name: "needUpdate", Type: "b", Direction: "out"},
					}},
				},
			},
		},
	}
	return conn.Export(introspect.NewIntrospectable(node), menuPath,
		"org.freedesktop.DBus.Introspectable")
}

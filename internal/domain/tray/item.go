package tray

import (
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
)

// pixmap is the wire shape of an ARGB32 icon, signature (iiay). Icons are
// served by name from the theme, so the pixmap lists stay empty.
type pixmap struct {
	Width  int32
	Height int32
	Data   []byte
}

// tooltip is the wire shape of the item tooltip, signature (sa(iiay)ss).
type tooltip struct {
	IconName    string
	Pixmaps     []pixmap
	Title       string
	Description string
}

// item receives the method side of org.kde.StatusNotifierItem. Hosts drive
// everything else through properties and signals.
type item struct {
	onActivate func()
}

func (i *item) Activate(x, y int32) *dbus.Error {
	if i.onActivate != nil {
		i.onActivate()
	}
	return nil
}

func (i *item) SecondaryActivate(x, y int32) *dbus.Error { return nil }

func (i *item) ContextMenu(x, y int32) *dbus.Error { return nil }

func (i *item) Scroll(delta int32, orientation string) *dbus.Error { return nil }

// itemProps builds the item's property table. Status is always Active; the
// host process has no passive mode to advertise.
func itemProps(opts Options) map[string]*prop.Prop {
	description := opts.Tooltip
	if description == "" {
		description = opts.Title
	}

	statics := map[string]any{
		"Category":            "ApplicationStatus",
		"Id":                  opts.ID,
		"Title":               opts.Title,
		"Status":              "Active",
		"IconName":            opts.IconName,
		"IconThemePath":       "",
		"OverlayIconName":     "",
		"AttentionIconName":   "",
		"AttentionMovieName":  "",
		"IconPixmap":          []pixmap{},
		"OverlayIconPixmap":   []pixmap{},
		"AttentionIconPixmap": []pixmap{},
		"ItemIsMenu":          false,
		"Menu":                menuPath,
		"ToolTip": tooltip{
			IconName:    opts.IconName,
			Pixmaps:     []pixmap{},
			Title:       opts.Title,
			Description: description,
		},
	}

	out := make(map[string]*prop.Prop, len(statics))
	for name, value := range statics {
		out[name] = &prop.Prop{
			Value:    value,
			Writable: false,
			Emit:     prop.EmitTrue,
		}
	}
	return out
}

func exportItem(conn *dbus.Conn, opts Options) (*prop.Properties, error) {
	it := &item{onActivate: opts.OnActivate}
	if err := conn.Export(it, itemPath, itemIface); err != nil {
		return nil, err
	}

	props, err := prop.Export(conn, itemPath, prop.Map{itemIface: itemProps(opts)})
	if err != nil {
		return nil, err
	}

	node := &introspect.Node{
		Name: string(itemPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name: itemIface,
				Methods: []introspect.Method{
					{Name: "Activate", Args: []introspect.Arg{
						{Name: "x", Type: "i", Direction: "in"},
						{Name: "y", Type: "i", Direction: "in"},
					}},
					{Name: "SecondaryActivate", Args: []introspect.Arg{
						{Name: "x", Type: "i", Direction: "in"},
						{Name: "y", Type: "i", Direction: "in"},
					}},
					{Name: "ContextMenu", Args: []introspect.Arg{
						{Name: "x", Type: "i", Direction: "in"},
						{Name: "y", Type: "i", Direction: "in"},
					}},
					{Name: "Scroll", Args: []introspect.Arg{
						{Name: "delta", Type: "i", Direction: "in"},
						{Name: "orientation", Type: "s", Direction: "in"},
					}},
				},
				Signals: []introspect.Signal{
					{Name: "NewTitle"},
					{Name: "NewIcon"},
					{Name: "NewToolTip"},
					{Name: "NewStatus", Args: []introspect.Arg{
						{Name: "status", Type: "s"},
					}},
				},
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), itemPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return nil, err
	}
	return props, nil
}

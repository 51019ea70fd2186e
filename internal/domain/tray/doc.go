// Package tray integrates the host with a freedesktop system tray over the
// D-Bus StatusNotifierItem protocol.
//
// Dial performs the full availability probe: platform support, operator
// opt-out, session bus reachability, and a live StatusNotifierWatcher with a
// registered host. Any of these missing yields ErrUnsupported; the host runs
// on without a tray. On success the returned Tray owns its bus connection and
// serves the item and its menu until Close.
package tray

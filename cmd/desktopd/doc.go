// Package main is the entry point for the desktop host process.
//
// The host is the long-lived coordinator behind a desktop application: it
// owns shared key/value state, fans OS lifecycle events out to attached
// windows, probes the system tray, and keeps the loopback control surface
// (REST + WebSocket) that webview shells attach to.
//
// Architecture:
//
//	Webview shell (JS) → HTTP/WS control surface → Coordinator
//	                                             → Tray (D-Bus)
//
// The host provides:
//   - Shared key/value store with blocking waits
//   - Lifecycle event fan-out with a pre-attachment buffer
//   - Window liveness tracking over WebSocket connections
//   - StatusNotifierItem tray with a quit menu
//   - Single-instance launch forwarding
//
// Configuration:
//   - Environment variables (12-factor), optional .env file
//   - CLI flags (override env vars)
//   - App manifest (YAML or TOML) for name, icon, and seed defaults
//
// Usage:
//
//	# Serve on the default loopback port
//	./desktopd -manifest ./desktop.yml
//
//	# Development mode (colored logs, debug level)
//	./desktopd -dev
//
//	# Second launch: arguments are forwarded to the running instance
//	./desktopd ~/Documents/notes.txt
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main

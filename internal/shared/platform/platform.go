// Package platform reports host platform capabilities.
package platform

import (
	"os"
	"runtime"
)

// OS identifies the host operating system
type OS string

const (
	Linux   OS = "linux"
	MacOS   OS = "darwin"
	Windows OS = "windows"
	Other   OS = "other"
)

// Current returns the host operating system
func Current() OS {
	switch runtime.GOOS {
	case "linux":
		return Linux
	case "darwin":
		return MacOS
	case "windows":
		return Windows
	default:
		return Other
	}
}

// SupportsTray reports whether a StatusNotifierItem integration can run on
// this host, with a reason when it cannot. The protocol lives on the D-Bus
// session bus, so both a Linux host and a reachable session bus are required.
func SupportsTray() (bool, string) {
	if Current() != Linux {
		return false, "status notifier requires linux"
	}
	if os.Getenv("DBUS_SESSION_BUS_ADDRESS") == "" {
		return false, "no session bus address"
	}
	return true, ""
}

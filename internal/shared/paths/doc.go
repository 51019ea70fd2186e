// Package paths resolves the host's standard filesystem locations.
//
// Desktop apps ship their manifest either next to the binary or in the
// user's configuration directory; this package encodes that search order
// so the rest of the host never hardcodes a location.
//
// # Usage
//
//	import "github.com/thehaigo/desktop/internal/shared/paths"
//
//	// XDG-style configuration root
//	root := paths.ConfigHome()
//
//	// Per-app configuration directory
//	dir := paths.AppConfigDir("notes")
//
//	// Manifest discovery (working dir, binary dir, config dir)
//	if p := paths.FindManifest(); p != "" {
//	    m, err := manifest.Load(p)
//	}
package paths

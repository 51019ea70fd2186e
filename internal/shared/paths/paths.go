package paths

import (
	"os"
	"path/filepath"
)

// configNamespace is the host's own directory under the user config root.
const configNamespace = "desktop"

// manifestNames are the file names probed during discovery, in preference
// order. YAML variants win over TOML.
var manifestNames = []string{"desktop.yml", "desktop.yaml", "desktop.toml"}

// ConfigHome returns the user configuration root for the current platform,
// or empty when the environment does not define one.
func ConfigHome() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return dir
}

// AppConfigDir returns the configuration directory for the named app, or
// empty when no configuration root exists.
func AppConfigDir(name string) string {
	root := ConfigHome()
	if root == "" {
		return ""
	}
	return filepath.Join(root, name)
}

// FindManifest returns the first manifest file found in the standard
// locations: the working directory, the directory holding the binary, then
// the host's user config directory. Empty when none exists.
func FindManifest() string {
	for _, dir := range searchDirs() {
		for _, name := range manifestNames {
			p := filepath.Join(dir, name)
			if fileExists(p) {
				return p
			}
		}
	}
	return ""
}

func searchDirs() []string {
	var dirs []string
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if dir := AppConfigDir(configNamespace); dir != "" {
		dirs = append(dirs, dir)
	}
	return dirs
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

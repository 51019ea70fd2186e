package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "desktop.yml", `
name: todo-app
icon: todo-icon
tooltip: Todo App
defaults:
  theme: dark
  lang: en
  window.width: 1024
`)

	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "todo-app", m.Name)
	assert.Equal(t, "todo-icon", m.Icon)
	assert.Equal(t, "Todo App", m.Tooltip)
	assert.Equal(t, "dark", m.Defaults["theme"])
	assert.Equal(t, "en", m.Defaults["lang"])
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "desktop.toml", `
name = "todo-app"
icon = "todo-icon"

[defaults]
theme = "light"
`)

	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "todo-app", m.Name)
	assert.Equal(t, "light", m.Defaults["theme"])
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeFile(t, "desktop.yml", `name: bare`)

	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bare", m.Name)
	assert.NotNil(t, m.Defaults, "defaults map should never be nil")
	assert.Empty(t, m.Icon, "an unset icon stays empty for the config fallback")
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := writeFile(t, "desktop.ini", `name=app`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.Error(t, err)
}

func TestLoadOrDefault(t *testing.T) {
	m, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, "desktop", m.Name)
	assert.NotNil(t, m.Defaults)

	_, err = LoadOrDefault(filepath.Join(t.TempDir(), "absent.yml"))
	require.Error(t, err, "a configured path that fails to load is an error")
}

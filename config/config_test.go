package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allConfigKeys = []string{
	"PWVAULT_DATA_DIR",
	"PWVAULT_STORAGE_BACKEND",
	"PWVAULT_LOG_LEVEL",
	"PWVAULT_LOG_FORMAT",
	"PWVAULT_UI_MODE",
	"PWVAULT_SECRET_LENGTH",
}

// isolateConfigEnv unsets every PWVAULT_ variable for the duration of the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))

	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 30*time.Second, cfg.UI.ClipboardClear())
}

func TestLoadConfig_File(t *testing.T) {
	isolateConfigEnv(t)
	path := writeConfig(t, `
data_dir: /tmp/pwvault
storage:
  backend: bolt
generator:
  length: 20
  include_special: false
hash:
  time: 2
  memory_kib: 32768
  threads: 2
log:
  level: debug
  format: json
ui:
  mode: tui
  clipboard_clear_seconds: 0
`)

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "/tmp/pwvault", cfg.DataDir)
	assert.Equal(t, "bolt", cfg.Storage.Backend)
	assert.Equal(t, 20, cfg.Generator.Length)
	assert.False(t, cfg.Generator.IncludeSpecial)
	assert.Equal(t, HashConfig{Time: 2, MemoryKiB: 32768, Threads: 2}, cfg.Hash)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
	assert.Equal(t, "tui", cfg.UI.Mode)
	assert.Zero(t, cfg.UI.ClipboardClear())
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	isolateConfigEnv(t)
	path := writeConfig(t, "storage:\n  backend: sqlite\n")

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, 16, cfg.Generator.Length)
	assert.True(t, cfg.Generator.IncludeSpecial)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	isolateConfigEnv(t)
	path := writeConfig(t, "storage:\n  backend: sqlite\n")
	t.Setenv("PWVAULT_STORAGE_BACKEND", "bolt")
	t.Setenv("PWVAULT_DATA_DIR", "/srv/vault")
	t.Setenv("PWVAULT_SECRET_LENGTH", "32")
	t.Setenv("PWVAULT_UI_MODE", "tui")
	t.Setenv("PWVAULT_LOG_LEVEL", "info")

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "bolt", cfg.Storage.Backend)
	assert.Equal(t, "/srv/vault", cfg.DataDir)
	assert.Equal(t, 32, cfg.Generator.Length)
	assert.Equal(t, "tui", cfg.UI.Mode)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]struct {
		file string
		env  map[string]string
	}{
		"bad yaml":           {file: "storage: [unterminated"},
		"unknown backend":    {file: "storage:\n  backend: redis\n"},
		"short secret":       {file: "generator:\n  length: 8\n"},
		"zero hash memory":   {file: "hash:\n  memory_kib: 0\n"},
		"bad log level":      {file: "log:\n  level: loud\n"},
		"bad log format":     {file: "log:\n  format: xml\n"},
		"bad ui mode":        {file: "ui:\n  mode: gui\n"},
		"negative clear":     {file: "ui:\n  clipboard_clear_seconds: -1\n"},
		"non-numeric env":    {env: map[string]string{"PWVAULT_SECRET_LENGTH": "many"}},
		"short secret env":   {env: map[string]string{"PWVAULT_SECRET_LENGTH": "4"}},
		"bad backend in env": {env: map[string]string{"PWVAULT_STORAGE_BACKEND": "s3"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			isolateConfigEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			path := ""
			if tc.file != "" {
				path = writeConfig(t, tc.file)
			}

			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

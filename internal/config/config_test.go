package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"CONFIG_FILE", "PORT", "LOG_LEVEL", "STORE_BACKEND", "DATABASE_URL", "REDIS_ADDR",
	"REDIS_PASSWORD", "REDIS_DB", "DATA_FILE", "TASKS_KEY", "THEME_KEY", "TIMEZONE",
	"CONFIRM_DESTRUCTIVE", "TOAST_DURATION",
}

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, "todo-app-tasks", cfg.TasksKey)
	assert.Equal(t, "todo-app-theme", cfg.ThemeKey)
	assert.Equal(t, 3*time.Second, cfg.ToastDuration)
}

func TestLoad_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("CONFIRM_DESTRUCTIVE", "true")
	t.Setenv("TOAST_DURATION", "5s")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, BackendRedis, cfg.StoreBackend)
	assert.Equal(t, "cache:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.True(t, cfg.ConfirmDestructive)
	assert.Equal(t, 5*time.Second, cfg.ToastDuration)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "todo.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
port = "7070"
store_backend = "file"
data_file = "/var/lib/todo/tasks.json"
tasks_key = "tasks-v2"
confirm_destructive = true
toast_duration = "1500ms"
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7171")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7171", cfg.Port, "env wins over file")
	assert.Equal(t, BackendFile, cfg.StoreBackend)
	assert.Equal(t, "/var/lib/todo/tasks.json", cfg.DataFile)
	assert.Equal(t, "tasks-v2", cfg.TasksKey)
	assert.Equal(t, "todo-app-theme", cfg.ThemeKey, "unset keys keep defaults")
	assert.True(t, cfg.ConfirmDestructive)
	assert.Equal(t, 1500*time.Millisecond, cfg.ToastDuration)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
	}{
		{name: "unknown backend", env: map[string]string{"STORE_BACKEND": "sqlite"}},
		{name: "bad redis db", env: map[string]string{"REDIS_DB": "two"}},
		{name: "bad bool", env: map[string]string{"CONFIRM_DESTRUCTIVE": "maybe"}},
		{name: "bad duration", env: map[string]string{"TOAST_DURATION": "soon"}},
		{name: "negative duration", env: map[string]string{"TOAST_DURATION": "-1s"}},
		{name: "unknown timezone", env: map[string]string{"TIMEZONE": "Mars/Olympus"}},
		{name: "malformed file", file: "port = "},
		{name: "bad file duration", file: `toast_duration = "often"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if tt.file != "" {
				path := filepath.Join(t.TempDir(), "bad.toml")
				require.NoError(t, os.WriteFile(path, []byte(tt.file), 0o600))
				t.Setenv("CONFIG_FILE", path)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.toml"))
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestValidate_FileBackendNeedsPath(t *testing.T) {
	cfg := Defaults()
	cfg.StoreBackend = BackendFile
	cfg.DataFile = ""

	assert.Error(t, cfg.Validate())
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spawnsim.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsAndFile(t *testing.T) {
	path := writeConfig(t, `
[simulation]
tick_rate = "100ms"

[pool]
default_size = 30

[store]
driver = "sqlite"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, cfg.Simulation.TickRate)
	assert.Equal(t, 4*time.Millisecond, cfg.Simulation.SpawningMaxTime, "default kept")
	assert.Equal(t, 30, cfg.Pool.DefaultSize)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.NotZero(t, cfg.Server.StartTime)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
[pool]
default_size = 30
`)
	t.Setenv("SPAWNSIM_POOL_DEFAULT_SIZE", "7")
	t.Setenv("SPAWNSIM_SPAWNING_MAX_TIME", "8ms")
	t.Setenv("SPAWNSIM_LOG_FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Pool.DefaultSize)
	assert.Equal(t, 8*time.Millisecond, cfg.Simulation.SpawningMaxTime)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "[store]\ndriver = \"mysql\"\n"))
	assert.ErrorContains(t, err, "store.driver")

	_, err = Load(writeConfig(t, "[world.bounds]\nmin_x = 10\nmax_x = 0\n"))
	assert.ErrorContains(t, err, "world.bounds")
}

func TestResolvePath(t *testing.T) {
	t.Setenv(PathEnv, "")
	assert.Equal(t, DefaultPath, ResolvePath(""))
	t.Setenv(PathEnv, "/etc/spawnsim.toml")
	assert.Equal(t, "/etc/spawnsim.toml", ResolvePath(""))
	assert.Equal(t, "local.toml", ResolvePath("local.toml"))
}

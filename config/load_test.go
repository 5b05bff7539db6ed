package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Errorf("restoring working directory: %v", err)
		}
	})
}

func writeConfig(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join("config", rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadMergesEnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("APP_ENV", "test")

	writeConfig(t, "app.yaml", `
app:
  name: demo
  env: development
database:
  host: localhost
  port: 5432
  name: demo_dev
  user: demo
  pool: 10
  slow_query_ms: 250
cache:
  adapter: memory
  ttl: 300
`)
	writeConfig(t, "environments/test.yaml", `
database:
  name: demo_test
  replica:
    host: replica.internal
    port: 5432
    name: demo_test
    user: demo_ro
`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "demo", cfg.App.Name)
	assert.Equal(t, "demo_test", cfg.Database.Name)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 250, cfg.Database.SlowQueryMs)
	assert.True(t, cfg.Database.Replica.Enabled())
	assert.Equal(t, "replica.internal", cfg.Database.Replica.Host)
	assert.Equal(t, "memory", cfg.Cache.Adapter)
	assert.Equal(t, 300, cfg.Cache.TTL)
}

func TestLoadWithoutEnvironmentFileFallsBack(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("APP_ENV", "staging")

	writeConfig(t, "app.yaml", `
app:
  name: demo
`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.App.Name)
	assert.False(t, cfg.Database.Replica.Enabled())
}

func TestLoadFailsWithoutAppYaml(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := Load()
	assert.Error(t, err)
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"git.fiblab.net/sim/isochrone/config"
	"git.fiblab.net/sim/isochrone/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg, err := config.Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 0.25, cfg.Budget())
	assert.Equal(t, search.Transit, cfg.OriginMode())
	assert.Equal(t, "localhost:52101", cfg.Server.Listen)

	opts := cfg.Options()
	assert.Equal(t, search.WalkFeetPerHour, opts.WalkSpeed)
	assert.Equal(t, 1.0, opts.RepeatThreshold)
	assert.Equal(t, 7, opts.ConsolidateThreshold)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "config.yml", `
search:
  budget_minutes: 9
  origin_mode: walking
  wait_at_origin: true
network:
  source: isochrone.portland
server:
  listen: 0.0.0.0:8080
log:
  level: debug
`)
	cfg, err := config.Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 0.15, cfg.Budget())
	assert.Equal(t, search.Walking, cfg.OriginMode())
	assert.True(t, cfg.Options().WaitAtOrigin)
	assert.Equal(t, "isochrone.portland", cfg.Network.Source)
	assert.Equal(t, "debug", cfg.Log.Level)
	// 未写出的字段保持默认值
	assert.Equal(t, 1.0, cfg.Search.RepeatThreshold)
}

func TestLoadInvalid(t *testing.T) {
	missingEnv := filepath.Join(t.TempDir(), "missing.env")
	for name, content := range map[string]string{
		"threshold": "search:\n  repeat_threshold: 0.5\n",
		"mode":      "search:\n  origin_mode: driving\n",
		"budget":    "search:\n  budget_minutes: -1\n",
		"level":     "log:\n  level: verbose\n",
		"listen":    "server:\n  listen: nowhere\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(writeFile(t, "config.yml", content), missingEnv)
			assert.Error(t, err)
		})
	}
}

func TestEnvOverride(t *testing.T) {
	env := writeFile(t, ".env", "ISOCHRONE_CACHE=/tmp/isochrone\n")
	t.Setenv("ISOCHRONE_BUDGET_MINUTES", "30")
	t.Setenv("ISOCHRONE_WAIT_AT_ORIGIN", "true")
	// godotenv不覆盖已有的环境变量
	t.Setenv("ISOCHRONE_CACHE", "")
	os.Unsetenv("ISOCHRONE_CACHE")

	cfg, err := config.Load("", env)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Budget())
	assert.True(t, cfg.Search.WaitAtOrigin)
	assert.Equal(t, "/tmp/isochrone", cfg.Network.Cache)

	t.Setenv("ISOCHRONE_REPEAT_THRESHOLD", "abc")
	_, err = config.Load("", env)
	assert.Error(t, err)
}

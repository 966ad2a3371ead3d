package config_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-grades/internal/config"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "DB_DRIVER", "CORS_ORIGINS", "PLAN_CACHE_SIZE", "AUTH_REQUIRED", "DEFAULT_TIE_POLICY"} {
		t.Setenv(k, "")
	}
	cfg := config.FromEnv()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, 256, cfg.PlanCacheSize)
	assert.True(t, cfg.AuthRequired)
	assert.Equal(t, "best", cfg.DefaultTiePolicy)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("PLAN_CACHE_SIZE", "12")
	t.Setenv("AUTH_REQUIRED", "no")
	t.Setenv("LOG_DEBUG", "1")
	cfg := config.FromEnv()
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 12, cfg.PlanCacheSize)
	assert.False(t, cfg.AuthRequired)
	assert.True(t, cfg.LogDebug)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("DB_DRIVER=postgres\nHTTP_ADDR=:9090\n"), 0o600))

	// restored after the test; unset so the file value applies
	t.Setenv("DB_DRIVER", "")
	require.NoError(t, os.Unsetenv("DB_DRIVER"))
	t.Setenv("HTTP_ADDR", ":7070")
	cfg := config.Load(path, filepath.Join(dir, "missing.env"))
	assert.Equal(t, ":7070", cfg.HTTPAddr, "environment wins")
	assert.Equal(t, "postgres", cfg.DBDriver)
}

func TestLoadReportsMalformedFile(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.env")
	require.NoError(t, os.WriteFile(bad, []byte("AUTH_HMAC_SECRET=\"unterminated\n"), 0o600))

	config.Load(filepath.Join(dir, "missing.env"))
	assert.Empty(t, buf.String(), "a missing file is fine")

	config.Load(bad)
	assert.Contains(t, buf.String(), "env file not loaded")
	assert.Contains(t, buf.String(), "bad.env")
}

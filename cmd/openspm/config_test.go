package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openspm/tableops/logger"
)

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openspm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dialect: postgres
dsn: postgres://spm@localhost/spm
page_size: 50
naming:
  snake_case: true
  table_prefix: spm_
log:
  format: zerolog
  level: info
  slow_threshold: 1s
prepare_stmt:
  enabled: true
  max_size: 64
  ttl: 10m
`), 0o600))

	config, err := loadConfig(path, true, env(nil))
	require.NoError(t, err)
	assert.Equal(t, "postgres", config.Dialect)
	assert.Equal(t, "postgres://spm@localhost/spm", config.DSN)
	assert.Equal(t, 50, config.PageSize)
	assert.Equal(t, NamingConfig{TablePrefix: "spm_", SnakeCase: true}, config.Naming)
	assert.Equal(t, LogConfig{Format: "zerolog", Level: "info", SlowThreshold: time.Second}, config.Log)
	assert.True(t, config.PrepareStmt.Enabled)
	assert.Equal(t, 64, config.PrepareStmt.MaxSize)
	assert.Equal(t, 10*time.Minute, config.PrepareStmt.TTL)

	config, err = loadConfig(path, true, env(map[string]string{
		"OPENSPM_DIALECT":   "mysql",
		"OPENSPM_DSN":       "spm:spm@tcp(db:3306)/spm",
		"OPENSPM_LOG_LEVEL": "silent",
	}))
	require.NoError(t, err)
	assert.Equal(t, "mysql", config.Dialect)
	assert.Equal(t, "spm:spm@tcp(db:3306)/spm", config.DSN)
	assert.Equal(t, "silent", config.Log.Level)
}

func TestLoadConfigMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")

	config, err := loadConfig(path, false, env(nil))
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), config)

	_, err = loadConfig(path, true, env(nil))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadConfigInvalid(t *testing.T) {
	dir := t.TempDir()

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("dialect: [sqlite"), 0o600))
	_, err := loadConfig(broken, true, env(nil))
	assert.ErrorContains(t, err, "parse "+broken)

	zero := filepath.Join(dir, "zero.yaml")
	require.NoError(t, os.WriteFile(zero, []byte("page_size: 0"), 0o600))
	_, err = loadConfig(zero, true, env(nil))
	assert.EqualError(t, err, "page_size must be positive, got 0")
}

func TestLogConfigLogger(t *testing.T) {
	for _, format := range []string{"", "text", "zerolog", "logrus", "slog", "ZAP"} {
		t.Run(format, func(t *testing.T) {
			l, err := LogConfig{Format: format, Level: "info"}.Logger(&bytes.Buffer{})
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}

	_, err := LogConfig{Format: "syslog"}.Logger(&bytes.Buffer{})
	assert.EqualError(t, err, `unknown log format "syslog"`)
}

func TestLogConfigWritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	l, err := LogConfig{Format: "text", Level: "warn"}.Logger(&buf)
	require.NoError(t, err)

	l.Info(context.Background(), "hidden")
	l.Warn(context.Background(), "patch %d overdue", 42)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "patch 42 overdue")

	buf.Reset()
	l, err = LogConfig{Format: "logrus", Level: "error"}.Logger(&buf)
	require.NoError(t, err)
	l.Error(context.Background(), "install failed on %s", "web-01")
	assert.Contains(t, buf.String(), "install failed on web-01")

	assert.Equal(t, logger.Warn, logger.ParseLevel("", logger.Warn))
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dialogmanager.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "en", cfg.Language)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 10*time.Second, cfg.ClassifierTimeout())
	assert.Equal(t, 30*time.Second, cfg.LockTTL())
	assert.Zero(t, cfg.RedisTTL())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
language: fr
fallback_replies:
  fr: ["Pardon ?"]
actions: ./bot
classifier:
  url: http://localhost:9000
  timeout: 2s
store:
  driver: redis
  redis:
    addr: redis:6379
    db: 2
    ttl: 24h
pii:
  patterns: ["(?i)email"]
metrics:
  enabled: true
log_level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fr", cfg.Language)
	assert.Equal(t, map[string]any{"fr": []any{"Pardon ?"}}, cfg.FallbackReplies)
	assert.Equal(t, "./bot", cfg.Actions)
	assert.Equal(t, 2*time.Second, cfg.ClassifierTimeout())
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 2, cfg.Store.Redis.DB)
	assert.Equal(t, "dialogmanager:", cfg.Store.Redis.Prefix, "unset keys keep defaults")
	assert.Equal(t, 24*time.Hour, cfg.RedisTTL())
	assert.Equal(t, []string{"(?i)email"}, cfg.PII.Patterns)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvClassifierToken, "secret")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load(writeConfig(t, "classifier:\n  token: from-file\n"))
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Classifier.Token)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"Malformed", "store: [", "failed to parse config"},
		{"Driver", "store:\n  driver: mongo\n", "invalid store driver"},
		{"Duration", "classifier:\n  timeout: soon\n", "invalid classifier.timeout"},
		{"Format", "log_format: xml\n", "invalid log_format"},
		{"File Dir", "store:\n  driver: file\n  dir: \"\"\n", "store.dir is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestEncryptionKey(t *testing.T) {
	cfg := DefaultConfig()
	key, err := cfg.EncryptionKey()
	require.NoError(t, err)
	assert.Empty(t, key)

	cfg.EncryptionKeyEnv = "TEST_DM_KEY"
	_, err = cfg.EncryptionKey()
	assert.Error(t, err)

	t.Setenv("TEST_DM_KEY", "c2VjcmV0")
	key, err = cfg.EncryptionKey()
	require.NoError(t, err)
	assert.Equal(t, "c2VjcmV0", key)
}

func TestLoad_Processes(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
processes:
  dir: ./scripts
  timeout: 1s
  producers:
    Quote: {command: ./quote.sh, args: [--fast], env: {CURRENCY: EUR}}
  validators:
    email: {command: ./check-email.sh}
`))
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.ProcessTimeout())
	assert.Equal(t, ProcessConfig{Command: "./quote.sh", Args: []string{"--fast"}, Env: map[string]string{"CURRENCY": "EUR"}}, cfg.Processes.Producers["Quote"])
	assert.Equal(t, "./check-email.sh", cfg.Processes.Validators["email"].Command)

	_, err = Load(writeConfig(t, `
processes:
  validators:
    email: {args: [x]}
`))
	assert.ErrorContains(t, err, "processes.validators.email")
}

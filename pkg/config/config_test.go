package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnvFile(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.env")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	prev := EnvFile
	EnvFile = path
	t.Cleanup(func() { EnvFile = prev })
}

func TestLoadConfigDefaults(t *testing.T) {
	withEnvFile(t, "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, time.Second, cfg.LockTimeout)
	assert.Equal(t, AuditSinkFile, cfg.Audit.Sink)
	assert.Equal(t, "@every 1m", cfg.Audit.Schedule)
	assert.Equal(t, 100000, cfg.Audit.TransactionCapacity)
	assert.Equal(t, 1000, cfg.Audit.TransactionBatchSize)
	assert.Equal(t, 100*time.Millisecond, cfg.Audit.TransactionInterval)
	assert.Equal(t, 10000, cfg.Audit.BalanceCapacity)
	assert.Equal(t, 100, cfg.Audit.BalanceBatchSize)
	assert.Equal(t, 200*time.Millisecond, cfg.Audit.BalanceInterval)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	withEnvFile(t, "SERVER_PORT=9090\nLOCK_TIMEOUT=250ms\nAUDIT_SINK=postgres\n")
	t.Setenv("SERVER_PORT", "7070")
	// godotenv sets variables for the whole process.
	t.Cleanup(func() {
		os.Unsetenv("LOCK_TIMEOUT")
		os.Unsetenv("AUDIT_SINK")
	})

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.LockTimeout)
	assert.Equal(t, AuditSinkPostgres, cfg.Audit.Sink)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad duration", "LOCK_TIMEOUT", "soon"},
		{"negative duration", "AUDIT_TX_FLUSH_INTERVAL", "-1s"},
		{"bad number", "AUDIT_TX_BATCH_SIZE", "many"},
		{"zero capacity", "AUDIT_BALANCE_QUEUE_CAPACITY", "0"},
		{"unknown sink", "AUDIT_SINK", "kafka"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withEnvFile(t, "")
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoadConfigDB(t *testing.T) {
	withEnvFile(t, "")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "cashdesk")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "audit")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")

	cfg, err := LoadConfigDB()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, 20, cfg.MaxOpenConns)
	assert.Equal(t, 5, cfg.MaxIdleConns)
}

func TestLoadConfigDBRequiresPort(t *testing.T) {
	withEnvFile(t, "")
	t.Setenv("DB_PORT", "")

	_, err := LoadConfigDB()
	assert.ErrorContains(t, err, "DB_PORT")
}

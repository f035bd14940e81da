package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeFile(t, `
env: production
database:
  dsn: postgres://file/db
  max_conns: 7
jwt:
  secret: from-file
worker:
  reminder_interval: 5m
`)
	t.Setenv("SHOPLEDGER_DATABASE_DSN", "postgres://env/db")
	t.Setenv("SHOPLEDGER_HTTP_ADDR", ":9090")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env/db", cfg.Database.DSN)
	assert.Equal(t, int32(7), cfg.Database.MaxConns)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.Equal(t, 5*time.Minute, cfg.Worker.ReminderInterval)
	assert.False(t, cfg.IsDevelopment())

	// defaults
	assert.Equal(t, 12*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, 30, cfg.Credit.DefaultTermDays)
	assert.True(t, cfg.Idempotency.Enabled)
	assert.Equal(t, 100, cfg.Worker.OutboxBatchSize)
}

func TestLoad_RequiresDSN(t *testing.T) {
	path := writeFile(t, "env: development\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHOPLEDGER_DATABASE_DSN")
}

func TestValidate_JWTSecret(t *testing.T) {
	cfg := &Config{Env: "development", Database: DatabaseConfig{DSN: "x"}, Credit: CreditConfig{DefaultTermDays: 30}}
	require.NoError(t, cfg.Validate())
	assert.NotEmpty(t, cfg.JWT.Secret)

	cfg = &Config{Env: "production", Database: DatabaseConfig{DSN: "x"}, Credit: CreditConfig{DefaultTermDays: 30}}
	assert.Error(t, cfg.Validate())
}

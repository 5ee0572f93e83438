package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/govm-net/counter/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	value, err := cfg.Client.Coins()
	require.NoError(t, err)
	assert.Equal(t, core.MustToNano("0.05"), value)
	assert.Equal(t, 2*time.Second, cfg.Client.PollInterval)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
logLevel: debug
client:
  endpoint: http://node:9000
  sender: alice
  value: "1.5"
  pollInterval: 500ms
  maxAttempts: 10
node:
  store: db
  dbPath: /tmp/ledger.db
  blockInterval: 250ms
  autoSeal: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "http://node:9000", cfg.Client.Endpoint)
	assert.Equal(t, "alice", cfg.Client.Sender)
	assert.Equal(t, 500*time.Millisecond, cfg.Client.PollInterval)
	assert.Equal(t, 10, cfg.Client.MaxAttempts)
	// untouched fields keep their defaults
	assert.Equal(t, 30, cfg.Client.DeployAttempts)
	assert.Equal(t, "127.0.0.1:8545", cfg.Node.Listen)
	assert.Equal(t, "db", cfg.Node.Store)
	assert.Equal(t, 250*time.Millisecond, cfg.Node.BlockInterval)
	assert.True(t, cfg.Node.AutoSeal)

	value, err := cfg.Client.Coins()
	require.NoError(t, err)
	assert.Equal(t, core.MustToNano("1.5"), value)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "log level", mutate: func(c *Config) { c.LogLevel = "loud" }},
		{name: "endpoint", mutate: func(c *Config) { c.Client.Endpoint = "" }},
		{name: "value", mutate: func(c *Config) { c.Client.Value = "abc" }},
		{name: "poll interval", mutate: func(c *Config) { c.Client.PollInterval = 0 }},
		{name: "max attempts", mutate: func(c *Config) { c.Client.MaxAttempts = -1 }},
		{name: "store", mutate: func(c *Config) { c.Node.Store = "redis" }},
		{name: "db path", mutate: func(c *Config) { c.Node.Store = "db"; c.Node.DBPath = "" }},
		{name: "listen", mutate: func(c *Config) { c.Node.Listen = "nowhere" }},
		{name: "treasury balance", mutate: func(c *Config) { c.Node.TreasuryBalance = "-1" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), core.ErrInvalidConfig)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "client: [1, 2"))
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	_, err = Load(writeConfig(t, "client:\n  pollInterval: 0s\n"))
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestCoinsValidation(t *testing.T) {
	var v *validator.Validate
	require.NotPanics(t, func() { v = newValidator() })

	type payment struct {
		Value string `validate:"coins"`
	}
	assert.NoError(t, v.Struct(payment{Value: "0.05"}))
	assert.Error(t, v.Struct(payment{Value: "abc"}))
}

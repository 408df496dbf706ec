package app

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LEDGER_STORE", "")
	t.Setenv("LEDGER_NUMBERING", "")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, StoreMemory, cfg.Store)
	require.Equal(t, NumberingMemory, cfg.Numbering)
	require.True(t, cfg.SeedChart)
	require.Equal(t, "0 2 * * *", cfg.GLIntegrityCron)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsUnknownBackends(t *testing.T) {
	t.Setenv("LEDGER_STORE", "sqlite")
	_, err := LoadConfig()
	require.ErrorContains(t, err, "LEDGER_STORE")

	t.Setenv("LEDGER_STORE", "Postgres")
	t.Setenv("LEDGER_NUMBERING", "etcd")
	_, err = LoadConfig()
	require.ErrorContains(t, err, "LEDGER_NUMBERING")
}

func TestRedisNumberingNeedsAddress(t *testing.T) {
	cfg := &Config{Store: StoreMemory, Numbering: NumberingRedis}
	require.Error(t, cfg.Validate())
	cfg.RedisAddr = "127.0.0.1:6379"
	require.NoError(t, cfg.Validate())
}

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&Config{LogFormat: "json", AppEnv: "test"}, &buf).Info("hello")
	require.True(t, strings.HasPrefix(buf.String(), "{"))
	require.Contains(t, buf.String(), `"env":"test"`)

	buf.Reset()
	newLogger(&Config{AppEnv: "production"}, &buf).Debug("hidden")
	require.Empty(t, buf.String())
}

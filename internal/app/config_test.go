package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PG_DSN", "postgres://u:p@db:5432/stock")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 30, cfg.AlertsWindowDays)
	require.True(t, cfg.AlertsSuppressZeroVelocity)
	require.Equal(t, time.Minute, cfg.AlertsCacheTTL)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsWindowOutOfRange(t *testing.T) {
	t.Setenv("ALERTS_WINDOW_DAYS", "0")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("ALERTS_WINDOW_DAYS", "400")
	_, err = LoadConfig()
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, "DEBUG", parseLevel(&Config{LogLevel: "debug"}).String())
	require.Equal(t, "WARN", parseLevel(&Config{LogLevel: "WARNING"}).String())
	require.Equal(t, "INFO", parseLevel(nil).String())
}

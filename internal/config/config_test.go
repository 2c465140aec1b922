package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Empty(t, cfg.DatabaseURL)
	require.Equal(t, time.Minute, cfg.GracePeriod)
	require.Equal(t, time.Hour, cfg.RoomIdleTTL)
	require.Equal(t, 30*time.Second, cfg.SweepInterval)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GRACE_PERIOD", "5m")
	t.Setenv("ROOM_IDLE_TTL", "2h")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, 5*time.Minute, cfg.GracePeriod)
	require.Equal(t, 2*time.Hour, cfg.RoomIdleTTL)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoad_RejectsNonPositiveGrace(t *testing.T) {
	t.Setenv("GRACE_PERIOD", "0s")
	_, err := Load()
	require.Error(t, err)
}

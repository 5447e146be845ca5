package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.True(t, cfg.DBEnabled)
	require.Equal(t, "beidao", cfg.Database.Database)
	require.Equal(t, 7*24*time.Hour, cfg.JWT.AccessExpiry)
	require.Equal(t, 30*24*time.Hour, cfg.JWT.RefreshExpiry)
	require.False(t, cfg.MQTT.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("DB_PORT", "15432")
	t.Setenv("JWT_ACCESS_EXPIRY_MINUTES", "60")
	t.Setenv("MQTT_ENABLED", "true")

	cfg := Load()
	require.Equal(t, ":9090", cfg.HTTP.Addr)
	require.False(t, cfg.DBEnabled)
	require.Equal(t, 15432, cfg.Database.Port)
	require.Equal(t, time.Hour, cfg.JWT.AccessExpiry)
	require.True(t, cfg.MQTT.Enabled)
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.local",
		Port:     5432,
		User:     "beidao",
		Password: "pw",
		Database: "beidao",
		SSLMode:  "disable",
	}
	require.Equal(t,
		"host=db.local port=5432 user=beidao password=pw dbname=beidao sslmode=disable",
		cfg.GetDSN())
}

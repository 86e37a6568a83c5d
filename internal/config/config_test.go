package config_test

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tv-reposteria/api/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("TIME_ZONE", "UTC")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestLocation_Unknown(t *testing.T) {
	cfg := &config.Config{TimeZone: "Nowhere/Bakery"}
	_, err := cfg.Location()
	assert.Error(t, err)
}

func TestConfigureLogger(t *testing.T) {
	defer log.SetLevel(log.GetLevel())

	cfg := &config.Config{LogLevel: "debug", LogFormat: "json"}
	require.NoError(t, cfg.ConfigureLogger())
	assert.Equal(t, log.DebugLevel, log.GetLevel())

	cfg = &config.Config{LogLevel: "loud", LogFormat: "json"}
	assert.Error(t, cfg.ConfigureLogger())

	cfg = &config.Config{LogLevel: "info", LogFormat: "xml"}
	assert.Error(t, cfg.ConfigureLogger())
}

package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morezero/lvc-bridge/pkg/endpoint"
)

var envVars = []string{
	"APP_DATA_DIR", "LVC_CONFIG_FILE", "LVC_CAPABILITIES", "LVC_WATCH_CONFIG",
	"LVC_ENGINE_ADDRESS", "LVC_FAILURE_MESSAGE",
	"COMMS_URL", "SERVICE_NAME",
	"LVC_SEARCH_REQUEST_SUBJECT", "LVC_SEARCH_RESPONSE_SUBJECT",
	"LVC_LOOKUP_REQUEST_SUBJECT", "LVC_LOOKUP_RESPONSE_SUBJECT",
	"LVC_TOPOLOGY_SUBJECT", "LVC_SUPPRESSION_SUBJECT", "LVC_TOPOLOGY_EVENT_SUBJECT",
	"PROVIDER_SUBJECT", "PROVIDER_TIMEOUT",
	"DATABASE_URL", "RUN_MIGRATIONS", "MIGRATION_PATH",
	"HTTP_ADDR", "HTTP_PORT", "HEALTH_CHECK_TIMEOUT", "LOG_LEVEL",
}

// clearEnv unsets every variable LoadConfig reads; t.Setenv restores them
// when the test ends.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envVars {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "nats://127.0.0.1:4222", cfg.COMMSURL)
	assert.Equal(t, "lvc-bridge", cfg.COMMSName)
	assert.Empty(t, cfg.AppDataDir)
	assert.Empty(t, cfg.ConfigFile)
	assert.Empty(t, cfg.Capabilities)
	assert.False(t, cfg.WatchConfig)
	assert.Empty(t, cfg.DatabaseURL)
	assert.False(t, cfg.RunMigrations)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, ":8080", cfg.ListenAddr())
	assert.Equal(t, 5*time.Second, cfg.HealthCheckTimeout)
	assert.Equal(t, time.Duration(0), cfg.ProviderTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NoError(t, cfg.ValidateForServe())
	assert.Error(t, cfg.ValidateForDB())
}

func TestLoadConfig_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_DATA_DIR", "/data/app")
	t.Setenv("LVC_CONFIG_FILE", "/etc/lvc.yaml")
	t.Setenv("LVC_CAPABILITIES", "localSearch")
	t.Setenv("LVC_WATCH_CONFIG", "true")
	t.Setenv("COMMS_URL", "nats://comms:4222")
	t.Setenv("PROVIDER_SUBJECT", "nav.provider")
	t.Setenv("PROVIDER_TIMEOUT", "2s")
	t.Setenv("DATABASE_URL", "postgres://localhost/lvc")
	t.Setenv("RUN_MIGRATIONS", "true")
	t.Setenv("HTTP_ADDR", "127.0.0.1:9090")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/data/app", cfg.AppDataDir)
	assert.Equal(t, "/etc/lvc.yaml", cfg.ConfigFile)
	assert.True(t, cfg.EnabledCapabilities().Has(endpoint.CapabilityLocalSearch))
	assert.True(t, cfg.WatchConfig)
	assert.Equal(t, "nav.provider", cfg.ProviderSubject)
	assert.Equal(t, 2*time.Second, cfg.ProviderTimeout)
	assert.True(t, cfg.RunMigrations)
	assert.Equal(t, "127.0.0.1:9090", cfg.ListenAddr())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.NoError(t, cfg.ValidateForServe())
	assert.NoError(t, cfg.ValidateForDB())
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROVIDER_TIMEOUT", "soon")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown capability", mutate: func(c *Config) { c.Capabilities = []string{"teleport"} }, wantErr: true},
		{name: "watch without file", mutate: func(c *Config) { c.WatchConfig = true }, wantErr: true},
		{name: "empty comms url", mutate: func(c *Config) { c.COMMSURL = "" }, wantErr: true},
		{name: "negative provider timeout", mutate: func(c *Config) { c.ProviderTimeout = -time.Second }, wantErr: true},
		{name: "port out of range", mutate: func(c *Config) { c.HTTPPort = 70000 }, wantErr: true},
		{name: "port ignored with addr", mutate: func(c *Config) { c.HTTPPort = 0; c.HTTPAddr = ":1" }},
		{name: "migrations without db", mutate: func(c *Config) { c.RunMigrations = true }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{COMMSURL: "nats://x:4222", HTTPPort: 8080, HealthCheckTimeout: time.Second}
			tt.mutate(c)
			err := c.ValidateForServe()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

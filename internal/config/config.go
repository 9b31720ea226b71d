// Package config provides service configuration loaded from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/morezero/lvc-bridge/pkg/endpoint"
)

const logPrefix = "config:LoadConfig"

// Config holds lvc-bridge configuration.
type Config struct {
	// Topology inputs
	AppDataDir   string   `envconfig:"APP_DATA_DIR"`
	ConfigFile   string   `envconfig:"LVC_CONFIG_FILE"`
	Capabilities []string `envconfig:"LVC_CAPABILITIES"`
	WatchConfig  bool     `envconfig:"LVC_WATCH_CONFIG" default:"false"`

	// EngineAddress is rendered into aace.localVoiceControl (empty = loopback).
	EngineAddress string `envconfig:"LVC_ENGINE_ADDRESS"`
	// FailureMessage is the errorMessage sent when no provider is wired.
	FailureMessage string `envconfig:"LVC_FAILURE_MESSAGE"`

	// COMMS: connect to standalone NATS at COMMSURL.
	COMMSURL  string `envconfig:"COMMS_URL" default:"nats://127.0.0.1:4222"`
	COMMSName string `envconfig:"SERVICE_NAME" default:"lvc-bridge"`

	// Subject overrides (empty = defaults from commsutil)
	SearchRequestSubject  string `envconfig:"LVC_SEARCH_REQUEST_SUBJECT"`
	SearchResponseSubject string `envconfig:"LVC_SEARCH_RESPONSE_SUBJECT"`
	LookupRequestSubject  string `envconfig:"LVC_LOOKUP_REQUEST_SUBJECT"`
	LookupResponseSubject string `envconfig:"LVC_LOOKUP_RESPONSE_SUBJECT"`
	TopologySubject       string `envconfig:"LVC_TOPOLOGY_SUBJECT"`
	SuppressionSubject    string `envconfig:"LVC_SUPPRESSION_SUBJECT"`
	TopologyEventSubject  string `envconfig:"LVC_TOPOLOGY_EVENT_SUBJECT"`

	// External provider (empty subject = no provider)
	ProviderSubject string        `envconfig:"PROVIDER_SUBJECT"`
	ProviderTimeout time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"0s"`

	// Database (empty URL = topology snapshots are not persisted)
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	RunMigrations bool   `envconfig:"RUN_MIGRATIONS" default:"false"`
	MigrationPath string `envconfig:"MIGRATION_PATH"`

	// HTTP health endpoint (HTTP_ADDR preferred, e.g. "0.0.0.0:8080")
	HTTPAddr           string        `envconfig:"HTTP_ADDR"`
	HTTPPort           int           `envconfig:"HTTP_PORT" default:"8080"`
	HealthCheckTimeout time.Duration `envconfig:"HEALTH_CHECK_TIMEOUT" default:"5s"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("%s - %w", logPrefix, err)
	}
	return &c, nil
}

// EnabledCapabilities returns LVC_CAPABILITIES as a capability set.
func (c *Config) EnabledCapabilities() endpoint.Capabilities {
	return endpoint.NewCapabilities(c.Capabilities...)
}

// ListenAddr is the HTTP listen address.
func (c *Config) ListenAddr() string {
	if c.HTTPAddr != "" {
		return c.HTTPAddr
	}
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// ValidateForResolve checks the inputs needed to resolve a topology.
func (c *Config) ValidateForResolve() error {
	for _, name := range c.Capabilities {
		name = strings.TrimSpace(name)
		if name != "" && endpoint.Capability(name) != endpoint.CapabilityLocalSearch {
			return fmt.Errorf("%s - unknown capability %q in LVC_CAPABILITIES", logPrefix, name)
		}
	}
	if c.WatchConfig && c.ConfigFile == "" {
		return fmt.Errorf("%s - LVC_WATCH_CONFIG requires LVC_CONFIG_FILE", logPrefix)
	}
	return nil
}

// ValidateForServe checks required config when running the bridge service.
func (c *Config) ValidateForServe() error {
	if err := c.ValidateForResolve(); err != nil {
		return err
	}
	if c.COMMSURL == "" {
		return fmt.Errorf("%s - COMMS_URL is required for serve", logPrefix)
	}
	if c.ProviderTimeout < 0 {
		return fmt.Errorf("%s - PROVIDER_TIMEOUT must not be negative", logPrefix)
	}
	if c.HTTPAddr == "" && (c.HTTPPort <= 0 || c.HTTPPort > 65535) {
		return fmt.Errorf("%s - HTTP_PORT %d is out of range", logPrefix, c.HTTPPort)
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("%s - HEALTH_CHECK_TIMEOUT must be positive", logPrefix)
	}
	if c.RunMigrations && c.DatabaseURL == "" {
		return fmt.Errorf("%s - RUN_MIGRATIONS requires DATABASE_URL", logPrefix)
	}
	return nil
}

// ValidateForDB checks required config when running DB-dependent commands (migrate).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}

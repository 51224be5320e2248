package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Sandbox SandboxConfig `mapstructure:"sandbox"`
	Store   StoreConfig   `mapstructure:"store"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Transport string `mapstructure:"transport"`
	HTTPPort  int    `mapstructure:"http_port"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// SandboxConfig holds sandbox lifecycle configuration.
//
// Capable says whether this deployment platform can use remote sandboxes at
// all; Enabled is the feature flag that turns them on. Both must hold for
// the orchestrator to be active.
type SandboxConfig struct {
	Capable            bool   `mapstructure:"capable"`
	Enabled            bool   `mapstructure:"enabled"`
	Backend            string `mapstructure:"backend"`
	Runtime            string `mapstructure:"runtime"`
	SessionTimeoutSec  int    `mapstructure:"session_timeout_sec"`
	ExecTimeoutSec     int    `mapstructure:"exec_timeout_sec"`
	MaxTraceSteps      int    `mapstructure:"max_trace_steps"`
	EnableLocalBackend bool   `mapstructure:"enable_local_backend"`
}

// StoreConfig holds durable state store configuration
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// New loads and validates the application configuration.
//
// Values come from config.yaml (working directory or ./config), with
// environment-variable overrides under the CODING_TOOL prefix, e.g.
// CODING_TOOL_SANDBOX_ENABLED=false.
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("CODING_TOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	v.SetDefault("server.transport", "stdio")
	v.SetDefault("server.http_port", 8080)

	v.SetDefault("logging.mode", "production")
	v.SetDefault("logging.level", "info")

	v.SetDefault("sandbox.capable", true)
	v.SetDefault("sandbox.enabled", true)
	v.SetDefault("sandbox.backend", "docker")
	v.SetDefault("sandbox.runtime", "python:3.11-slim")
	v.SetDefault("sandbox.session_timeout_sec", 1800)
	v.SetDefault("sandbox.exec_timeout_sec", 10)
	v.SetDefault("sandbox.max_trace_steps", 500)
	v.SetDefault("sandbox.enable_local_backend", false)

	v.SetDefault("store.path", "data/bindings.db")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	if c.Server.Transport != "stdio" && c.Server.Transport != "http" {
		return fmt.Errorf("invalid server.transport: %s, must be 'stdio' or 'http'", c.Server.Transport)
	}

	if c.Logging.Mode != "production" && c.Logging.Mode != "development" {
		return fmt.Errorf("invalid logging.mode: %s, must be 'production' or 'development'", c.Logging.Mode)
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	if c.Sandbox.SessionTimeoutSec <= 0 {
		return fmt.Errorf("sandbox.session_timeout_sec must be positive, got: %d", c.Sandbox.SessionTimeoutSec)
	}

	if c.Sandbox.ExecTimeoutSec <= 0 {
		return fmt.Errorf("sandbox.exec_timeout_sec must be positive, got: %d", c.Sandbox.ExecTimeoutSec)
	}

	if c.Sandbox.MaxTraceSteps <= 0 {
		return fmt.Errorf("sandbox.max_trace_steps must be positive, got: %d", c.Sandbox.MaxTraceSteps)
	}

	if c.Sandbox.Runtime == "" {
		return fmt.Errorf("sandbox.runtime must not be empty")
	}

	if c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}

	supportedBackends := map[string]bool{
		"docker": true,
		"local":  c.Sandbox.EnableLocalBackend, // local only enabled if specifically allowed
	}

	if !supportedBackends[c.Sandbox.Backend] {
		return fmt.Errorf("unsupported sandbox.backend: %s", c.Sandbox.Backend)
	}

	return nil
}

// GetSessionTimeout returns the sandbox idle timeout as a duration.
// This spans a full teaching session, not a single request.
func (c *Config) GetSessionTimeout() time.Duration {
	return time.Duration(c.Sandbox.SessionTimeoutSec) * time.Second
}

// GetExecTimeout returns the per-execution timeout as a duration
func (c *Config) GetExecTimeout() time.Duration {
	return time.Duration(c.Sandbox.ExecTimeoutSec) * time.Second
}

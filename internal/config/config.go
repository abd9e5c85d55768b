// Package config defines the mapgame configuration file and its defaults.
//
// The same keys are read from mapgame.yaml, from MAPGAME_* environment
// variables (server.port -> MAPGAME_SERVER_PORT) and from command-line flags
// through viper.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables that override config keys.
const EnvPrefix = "MAPGAME"

// FileName is the config file name searched for when --config is not given.
const FileName = "mapgame.yaml"

// Config is the top-level mapgame configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Auth     AuthConfig     `yaml:"auth" mapstructure:"auth"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics" mapstructure:"metrics"`
	MCP      MCPConfig      `yaml:"mcp" mapstructure:"mcp"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string   `yaml:"host" mapstructure:"host"`
	Port            int      `yaml:"port" mapstructure:"port"`
	ShutdownTimeout string   `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	CORSOrigins     []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	// LoginRateLimit is the number of login attempts allowed per client IP
	// per minute. Zero disables the limit.
	LoginRateLimit int `yaml:"login_rate_limit" mapstructure:"login_rate_limit"`
	// TrustProxy honours X-Forwarded-For / X-Real-IP. Only set it behind a
	// reverse proxy that rewrites those headers.
	TrustProxy bool `yaml:"trust_proxy" mapstructure:"trust_proxy"`
}

// DatabaseConfig selects the store backend.
type DatabaseConfig struct {
	Driver  string `yaml:"driver" mapstructure:"driver"` // sqlite or postgres
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"` // sqlite only
}

// AuthConfig controls admin sessions.
type AuthConfig struct {
	SessionTTL   string `yaml:"session_ttl" mapstructure:"session_ttl"`
	CookieSecure bool   `yaml:"cookie_secure" mapstructure:"cookie_secure"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// MCPConfig controls the MCP server started by `mapgame mcp`.
type MCPConfig struct {
	Transport string `yaml:"transport" mapstructure:"transport"` // stdio or http
	// Host is the HTTP bind address. The HTTP transport has no
	// authentication, so it defaults to loopback.
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
}

// Default returns a Config pre-filled with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: "30s",
			CORSOrigins:     []string{"*"},
			LoginRateLimit:  10,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
		},
		Auth: AuthConfig{
			SessionTTL: "168h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		MCP: MCPConfig{
			Transport: "stdio",
			Host:      "127.0.0.1",
			Port:      3001,
		},
	}
}

// ReadFile reads a config file and expands ${VAR_NAME} references to
// environment variables.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return []byte(os.ExpandEnv(string(data))), nil
}

// Load reads a YAML config file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WriteDefault writes the default configuration to path.
func WriteDefault(path string) error {
	data, err := Default().YAML()
	if err != nil {
		return err
	}
	header := "# mapgame configuration. Values may reference ${ENV_VARS}.\n" +
		"# Every key can also be set as " + EnvPrefix + "_<SECTION>_<KEY>.\n\n"
	return os.WriteFile(path, append([]byte(header), data...), 0o600)
}

// YAML renders c as YAML.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// SetDefaults registers every key and its default with v, so environment
// overrides apply even when no config file sets the key.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("server.login_rate_limit", d.Server.LoginRateLimit)
	v.SetDefault("server.trust_proxy", d.Server.TrustProxy)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.data_dir", d.Database.DataDir)
	v.SetDefault("auth.session_ttl", d.Auth.SessionTTL)
	v.SetDefault("auth.cookie_secure", d.Auth.CookieSecure)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("mcp.transport", d.MCP.Transport)
	v.SetDefault("mcp.host", d.MCP.Host)
	v.SetDefault("mcp.port", d.MCP.Port)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port: %d is not a valid port", c.Server.Port)
	}
	if _, err := c.Server.ShutdownTimeoutDuration(); err != nil {
		add("server.shutdown_timeout: %v", err)
	}
	if c.Server.LoginRateLimit < 0 {
		add("server.login_rate_limit: must not be negative")
	}

	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if c.Database.DSN == "" {
			add("database.dsn: required for the postgres driver")
		}
	default:
		add("database.driver: %q is not supported (use sqlite or postgres)", c.Database.Driver)
	}

	if _, err := c.Auth.SessionTTLDuration(); err != nil {
		add("auth.session_ttl: %v", err)
	}

	if _, err := c.Logging.SlogLevel(); err != nil {
		add("logging.level: %v", err)
	}
	if f := strings.ToLower(c.Logging.Format); f != "text" && f != "json" {
		add("logging.format: %q is not supported (use text or json)", c.Logging.Format)
	}

	switch c.MCP.Transport {
	case "stdio", "http":
	default:
		add("mcp.transport: %q is not supported (use stdio or http)", c.MCP.Transport)
	}
	if c.MCP.Transport == "http" && (c.MCP.Port < 1 || c.MCP.Port > 65535) {
		add("mcp.port: %d is not a valid port", c.MCP.Port)
	}

	return errors.Join(errs...)
}

// Addr returns the host:port listen address of the HTTP transport.
func (m MCPConfig) Addr() string {
	return net.JoinHostPort(m.Host, strconv.Itoa(m.Port))
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ShutdownTimeoutDuration parses ShutdownTimeout.
func (s ServerConfig) ShutdownTimeoutDuration() (time.Duration, error) {
	return positiveDuration(s.ShutdownTimeout)
}

// SessionTTLDuration parses SessionTTL.
func (a AuthConfig) SessionTTLDuration() (time.Duration, error) {
	return positiveDuration(a.SessionTTL)
}

// SlogLevel maps Level to a slog level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown level %q", l.Level)
}

// ResolveDataDir returns DataDir, or ~/.mapgame when it is empty.
func (d DatabaseConfig) ResolveDataDir() string {
	if d.DataDir != "" {
		return d.DataDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mapgame"
	}
	return filepath.Join(home, ".mapgame")
}

func positiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", s)
	}
	return d, nil
}

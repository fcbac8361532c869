package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds backend selection and service parameters. It is populated
// from config.yaml, YINKUN_* environment variables and CLI flags.
type Config struct {
	Backend string       `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir string       `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	Server  ServerConfig `json:"server" yaml:"server" mapstructure:"server"`
	Auth    AuthConfig   `json:"auth" yaml:"auth" mapstructure:"auth"`
	Log     LogConfig    `json:"log" yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr         string        `json:"addr" yaml:"addr" mapstructure:"addr"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout" yaml:"idle_timeout" mapstructure:"idle_timeout"`
	MaxBodyBytes int64         `json:"max_body_bytes" yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	// StorageAuth requires a bearer token on /api/storage. Off by default.
	StorageAuth bool `json:"storage_auth" yaml:"storage_auth" mapstructure:"storage_auth"`
}

// AuthConfig configures bearer-token verification. A token is accepted if
// it matches one of Tokens or is an HS256 JWT signed with JWTSecret.
type AuthConfig struct {
	JWTSecret string   `json:"jwt_secret" yaml:"jwt_secret" mapstructure:"jwt_secret"`
	JWTIssuer string   `json:"jwt_issuer" yaml:"jwt_issuer" mapstructure:"jwt_issuer"`
	Tokens    []string `json:"tokens" yaml:"tokens" mapstructure:"tokens"`
}

// LogConfig configures slog output. File is optional; when set, logs are
// also written there as JSON with size-based rotation.
type LogConfig struct {
	Level      string `json:"level" yaml:"level" mapstructure:"level"`
	File       string `json:"file" yaml:"file" mapstructure:"file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days" mapstructure:"max_age_days"`
}

// Supported backend names.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Default values applied by the CLI config loader.
const (
	DefaultAddr         = ":8099"
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultIdleTimeout  = 120 * time.Second
	DefaultMaxBodyBytes = 20 << 20
	DefaultLogLevel     = "info"
)

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrInvalidConfig  = errors.New("invalid config")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendFile:   true,
	BackendSQLite: true,
}

// knownLogLevels matches the names logging.ParseLevel accepts, after
// lowercasing and trimming.
var knownLogLevels = map[string]bool{
	"":        true,
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return fmt.Errorf("%w: %q", ErrBackendUnknown, c.Backend)
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("%w: server.max_body_bytes must not be negative", ErrInvalidConfig)
	}
	if !knownLogLevels[strings.ToLower(strings.TrimSpace(c.Log.Level))] {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Log.Level)
	}
	return nil
}

// AuthEnabled reports whether any credential source is configured.
func (a AuthConfig) AuthEnabled() bool {
	return a.JWTSecret != "" || len(a.Tokens) > 0
}

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/yinkun-ui/yinkun/internal/paths"
	"github.com/yinkun-ui/yinkun/pkg/types"
)

// envPrefix prefixes environment overrides, e.g. YINKUN_SERVER_ADDR.
const envPrefix = "YINKUN"

// Config keys.
const (
	cfgKeyBackend      = "backend"
	cfgKeyDataDir      = "data_dir"
	cfgKeyAddr         = "server.addr"
	cfgKeyReadTimeout  = "server.read_timeout"
	cfgKeyWriteTimeout = "server.write_timeout"
	cfgKeyIdleTimeout  = "server.idle_timeout"
	cfgKeyMaxBody      = "server.max_body_bytes"
	cfgKeyStorageAuth  = "server.storage_auth"
	cfgKeyJWTSecret    = "auth.jwt_secret"
	cfgKeyJWTIssuer    = "auth.jwt_issuer"
	cfgKeyTokens       = "auth.tokens"
	cfgKeyLogLevel     = "log.level"
	cfgKeyLogFile      = "log.file"
	cfgKeyLogMaxSize   = "log.max_size_mb"
	cfgKeyLogBackups   = "log.max_backups"
	cfgKeyLogMaxAge    = "log.max_age_days"
)

// DefaultConfig returns the configuration used when config.yaml sets nothing.
func DefaultConfig() types.Config {
	return types.Config{
		Backend: types.BackendFile,
		Server: types.ServerConfig{
			Addr:         types.DefaultAddr,
			ReadTimeout:  types.DefaultReadTimeout,
			WriteTimeout: types.DefaultWriteTimeout,
			IdleTimeout:  types.DefaultIdleTimeout,
			MaxBodyBytes: types.DefaultMaxBodyBytes,
		},
		Auth: types.AuthConfig{Tokens: []string{}},
		Log: types.LogConfig{
			Level:      types.DefaultLogLevel,
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault(cfgKeyBackend, d.Backend)
	v.SetDefault(cfgKeyDataDir, "")
	v.SetDefault(cfgKeyAddr, d.Server.Addr)
	v.SetDefault(cfgKeyReadTimeout, d.Server.ReadTimeout)
	v.SetDefault(cfgKeyWriteTimeout, d.Server.WriteTimeout)
	v.SetDefault(cfgKeyIdleTimeout, d.Server.IdleTimeout)
	v.SetDefault(cfgKeyMaxBody, d.Server.MaxBodyBytes)
	v.SetDefault(cfgKeyStorageAuth, d.Server.StorageAuth)
	v.SetDefault(cfgKeyJWTSecret, "")
	v.SetDefault(cfgKeyJWTIssuer, "")
	v.SetDefault(cfgKeyTokens, d.Auth.Tokens)
	v.SetDefault(cfgKeyLogLevel, d.Log.Level)
	v.SetDefault(cfgKeyLogFile, "")
	v.SetDefault(cfgKeyLogMaxSize, d.Log.MaxSizeMB)
	v.SetDefault(cfgKeyLogBackups, d.Log.MaxBackups)
	v.SetDefault(cfgKeyLogMaxAge, d.Log.MaxAgeDays)
}

// loadConfig reads config.yaml from configDir, layering defaults and
// YINKUN_* environment overrides. The directory and a default config.yaml
// are created on first run.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := writeDefaultConfig(paths.ConfigFile(configDir)); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// decodeConfig unmarshals v into a validated Config.
func decodeConfig(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("%w: %v", types.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// fileConfig is the shape of the config.yaml written on first run.
type fileConfig struct {
	Backend string           `yaml:"backend"`
	DataDir string           `yaml:"data_dir"`
	Server  fileServer       `yaml:"server"`
	Auth    types.AuthConfig `yaml:"auth"`
	Log     types.LogConfig  `yaml:"log"`
}

type fileServer struct {
	Addr         string `yaml:"addr"`
	ReadTimeout  string `yaml:"read_timeout"`
	WriteTimeout string `yaml:"write_timeout"`
	IdleTimeout  string `yaml:"idle_timeout"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
	StorageAuth  bool   `yaml:"storage_auth"`
}

// writeDefaultConfig writes config.yaml with default values unless the file
// already exists.
func writeDefaultConfig(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	d := DefaultConfig()
	out, err := yaml.Marshal(fileConfig{
		Backend: d.Backend,
		Server: fileServer{
			Addr:         d.Server.Addr,
			ReadTimeout:  d.Server.ReadTimeout.String(),
			WriteTimeout: d.Server.WriteTimeout.String(),
			IdleTimeout:  d.Server.IdleTimeout.String(),
			MaxBodyBytes: d.Server.MaxBodyBytes,
			StorageAuth:  d.Server.StorageAuth,
		},
		Auth: d.Auth,
		Log:  d.Log,
	})
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	header := []byte("# yinkun configuration\n# Environment overrides use the YINKUN_ prefix, e.g. YINKUN_SERVER_ADDR.\n\n")
	return os.WriteFile(path, append(header, out...), 0o600)
}

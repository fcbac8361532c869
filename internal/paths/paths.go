// Package paths resolves where yinkun keeps its config.yaml and its stored
// records.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user platform directories.
const AppName = "yinkun"

// DefaultDataDirName is the working-directory-relative data directory used
// when nothing else is configured.
const DefaultDataDirName = ".yinkun-data"

// Environment overrides.
const (
	EnvConfigDir = "YINKUN_CONFIG_DIR"
	EnvDataDir   = "YINKUN_DATA_DIR"
)

// ConfigFileName is the config file inside the config directory.
const ConfigFileName = "config.yaml"

// platformDir is swapped in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	getwd         func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	getwd:         os.Getwd,
}

// DefaultConfigDir returns the per-user config directory:
// $XDG_CONFIG_HOME/yinkun or ~/.config/yinkun on Linux, and
// os.UserConfigDir()/yinkun elsewhere.
func DefaultConfigDir() (string, error) {
	return userDir("XDG_CONFIG_HOME", ".config")
}

// DefaultStateDir returns the per-user data directory:
// $XDG_DATA_HOME/yinkun or ~/.local/share/yinkun on Linux, and
// os.UserConfigDir()/yinkun elsewhere.
func DefaultStateDir() (string, error) {
	return userDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func userDir(xdgEnv, homeRel string) (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if xdg := os.Getenv(xdgEnv); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, homeRel, AppName), nil
}

// ResolveConfigDir picks the config directory: flag, then YINKUN_CONFIG_DIR,
// then DefaultConfigDir. Explicit values are made absolute.
func ResolveConfigDir(flag string) (string, error) {
	if dir := firstNonEmpty(flag, os.Getenv(EnvConfigDir)); dir != "" {
		return filepath.Abs(dir)
	}
	return DefaultConfigDir()
}

// ResolveDataDir picks the data directory: flag, then the data_dir config
// value, then YINKUN_DATA_DIR, then ./.yinkun-data.
func ResolveDataDir(flag, configured string) (string, error) {
	if dir := firstNonEmpty(flag, configured, os.Getenv(EnvDataDir)); dir != "" {
		return filepath.Abs(dir)
	}
	cwd, err := platformDir.getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ConfigFile returns the config.yaml path inside configDir.
func ConfigFile(configDir string) string {
	return filepath.Join(configDir, ConfigFileName)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Package config resolves coordinator configuration from three layers,
// lowest precedence first: built-in defaults, a YAML file, and
// environment variables. Each layer only overrides fields it actually
// sets, so a partial YAML file or a single env var never clobbers the
// rest of the configuration.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable the coordinator's ambient and domain
// stacks read at startup.
type Config struct {
	ProxyPort   int    `yaml:"proxyPort"`
	Headless    bool   `yaml:"headless"`
	Browser     string `yaml:"browser"`
	IPCTimeoutMS int   `yaml:"ipcTimeoutMs"`
	EvalTimeoutMS int  `yaml:"evalTimeoutMs"`
	NoSandbox   bool   `yaml:"noSandbox"`
	Debug       bool   `yaml:"debug"`
}

// Defaults returns the built-in configuration baseline.
func Defaults() Config {
	return Config{
		ProxyPort:     0,
		Headless:      true,
		Browser:       "",
		IPCTimeoutMS:  5000,
		EvalTimeoutMS: 30000,
		NoSandbox:     false,
		Debug:         false,
	}
}

// Load resolves configuration: Defaults(), overridden by the YAML file
// at FilePath() if present, overridden by environment variables if
// set. A missing or unreadable config file is not an error; a
// malformed one is.
func Load() (Config, error) {
	cfg := Defaults()

	if data, err := os.ReadFile(FilePath()); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// FilePath returns the config file's well-known location:
// $XDG_CONFIG_HOME/bcoord/config.yaml, falling back to
// ~/.config/bcoord/config.yaml.
func FilePath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "bcoord", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "bcoord", "config.yaml")
	}
	return filepath.Join(home, ".config", "bcoord", "config.yaml")
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("BCOORD_PROXY_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ProxyPort = n
		}
	}
	if v := os.Getenv("BCOORD_HEADLESS"); v != "" {
		cfg.Headless = parseBool(v, cfg.Headless)
	}
	if v := os.Getenv("BCOORD_BROWSER"); v != "" {
		cfg.Browser = v
	}
	if v := os.Getenv("BCOORD_IPC_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.IPCTimeoutMS = n
		}
	}
	if v := os.Getenv("BCOORD_EVAL_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.EvalTimeoutMS = n
		}
	}
	if v := os.Getenv("BCOORD_NO_SANDBOX"); v != "" {
		cfg.NoSandbox = parseBool(v, cfg.NoSandbox)
	}
	if v := os.Getenv("BCOORD_DEBUG"); v != "" {
		cfg.Debug = parseBool(v, cfg.Debug)
	}
}

func parseBool(v string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

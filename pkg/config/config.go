// Package config loads the client configuration.
//
// Settings come from, in increasing priority: built-in defaults, the YAML
// file at $XDG_CONFIG_HOME/<app>/config.yaml (or an explicit path), and
// environment variables prefixed with the upper-cased app name
// (CEPHCLI_CLUSTER_URL overrides cluster.url).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the complete client configuration.
type Config struct {
	Cluster  ClusterConfig `mapstructure:"cluster" yaml:"cluster"`
	Defaults Defaults      `mapstructure:"defaults" yaml:"defaults"`
	Cache    CacheConfig   `mapstructure:"cache" yaml:"cache"`
	History  HistoryConfig `mapstructure:"history" yaml:"history"`
	Log      LogConfig     `mapstructure:"log" yaml:"log"`
}

// ClusterConfig locates the cluster gateway.
type ClusterConfig struct {
	URL            string `mapstructure:"url" yaml:"url,omitempty"`
	User           string `mapstructure:"user" yaml:"user,omitempty"`
	KeyringService string `mapstructure:"keyring_service" yaml:"keyring_service,omitempty"`
	// Target is the default command target, e.g. "mon" or "osd.0".
	Target string `mapstructure:"target" yaml:"target,omitempty"`
}

// Defaults are per-invocation defaults overridable by flags.
type Defaults struct {
	Format  string        `mapstructure:"format" yaml:"format"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// MarshalYAML writes the timeout in its readable form.
func (d Defaults) MarshalYAML() (any, error) {
	return map[string]string{
		"format":  d.Format,
		"timeout": d.Timeout.String(),
	}, nil
}

// CacheConfig controls the description cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// MarshalYAML writes the TTL in its readable form.
func (c CacheConfig) MarshalYAML() (any, error) {
	return map[string]any{
		"enabled": c.Enabled,
		"ttl":     c.TTL.String(),
	}, nil
}

// HistoryConfig controls the command history kept by cephcli.
type HistoryConfig struct {
	Enabled    bool `mapstructure:"enabled" yaml:"enabled"`
	MaxEntries int  `mapstructure:"max_entries" yaml:"max_entries"`
}

// LogConfig controls diagnostics.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Loader reads configuration for one application name.
type Loader struct {
	appName    string
	envPrefix  string
	configPath string
}

// NewLoader creates a loader for appName. A non-empty path replaces the
// XDG config file location.
func NewLoader(appName, path string) *Loader {
	return &Loader{
		appName:    appName,
		envPrefix:  strings.ToUpper(strings.ReplaceAll(appName, "-", "_")),
		configPath: path,
	}
}

// EnvPrefix returns the environment variable prefix, without the trailing
// underscore.
func (l *Loader) EnvPrefix() string {
	return l.envPrefix
}

// Path returns the config file in use. <PREFIX>_CONFIG in the environment
// takes precedence over the XDG location.
func (l *Loader) Path() string {
	if l.configPath != "" {
		return l.configPath
	}
	if p := os.Getenv(l.envPrefix + "_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(xdg.ConfigHome, l.appName, "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Cluster:  ClusterConfig{Target: "mon"},
		Defaults: Defaults{Format: "plain", Timeout: 30 * time.Second},
		Cache:    CacheConfig{Enabled: true, TTL: time.Hour},
		History:  HistoryConfig{Enabled: true, MaxEntries: 1000},
		Log:      LogConfig{Level: "warn"},
	}
}

func (l *Loader) viper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(l.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("cluster.url", def.Cluster.URL)
	v.SetDefault("cluster.user", def.Cluster.User)
	v.SetDefault("cluster.keyring_service", l.appName)
	v.SetDefault("cluster.target", def.Cluster.Target)
	v.SetDefault("defaults.format", def.Defaults.Format)
	v.SetDefault("defaults.timeout", def.Defaults.Timeout)
	v.SetDefault("cache.enabled", def.Cache.Enabled)
	v.SetDefault("cache.ttl", def.Cache.TTL)
	v.SetDefault("history.enabled", def.History.Enabled)
	v.SetDefault("history.max_entries", def.History.MaxEntries)
	v.SetDefault("log.level", def.Log.Level)
	return v
}

// Load reads and validates the configuration. A missing file at the
// default location is not an error; a missing explicit file is.
func (l *Loader) Load() (*Config, error) {
	v := l.viper()
	path := l.Path()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case l.configPath == "" && (errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)):
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := NewValidator().Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg as YAML to the loader's path.
func (l *Loader) Save(cfg *Config) error {
	path := l.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Package config loads liquidforge configuration with Viper from a
// YAML file and LIQUIDFORGE_-prefixed environment variables.
//
// Precedence follows the usual Viper ordering: explicit flags bound by
// the CLI, then environment variables (LIQUIDFORGE_SERVER_PORT and the
// like), then the config file, then built-in defaults.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Platform    PlatformConfig    `mapstructure:"platform"`
	Development DevelopmentConfig `mapstructure:"development"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Render      RenderConfig      `mapstructure:"render"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type StorageConfig struct {
	// Bucket holds theme files under templates/{storeID}/ keys.
	Bucket string `mapstructure:"bucket"`
	Region string `mapstructure:"region"`
	// CDNDomain, when set, is tried before the bucket.
	CDNDomain string `mapstructure:"cdn_domain"`
	// LocalThemeDir serves one theme from disk instead of the bucket.
	// Development only.
	LocalThemeDir string `mapstructure:"local_theme_dir"`
}

type DatabaseConfig struct {
	// URL is the postgres connection string for storefront data.
	URL string `mapstructure:"url"`
}

type PlatformConfig struct {
	// DomainSuffix is the shared suffix of platform sub-domains,
	// e.g. ".myshops.dev".
	DomainSuffix string `mapstructure:"domain_suffix"`
	// BaseURL overrides canonical URL construction. Optional.
	BaseURL string `mapstructure:"base_url"`
}

type DevelopmentConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	LiveReload bool `mapstructure:"live_reload"`
	// StoreID is the tenant the local theme dir belongs to.
	StoreID string `mapstructure:"store_id"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RenderConfig struct {
	// TimeoutSeconds bounds one page render end to end.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	// CompiledCacheSize bounds the parsed-template LRU.
	CompiledCacheSize int `mapstructure:"compiled_cache_size"`
}

// SetDefaults registers the default values on a viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("platform.domain_suffix", ".fasttify.com")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("render.timeout_seconds", 10)
	v.SetDefault("render.compiled_cache_size", 256)
}

// Init wires the config file search and environment binding. A missing
// config file is fine; environment and defaults still apply.
func Init(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envFile := os.Getenv("LIQUIDFORGE_CONFIG_FILE"); envFile != "" {
		viper.SetConfigFile(envFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".liquidforge")
	}

	viper.SetEnvPrefix("LIQUIDFORGE")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// Load unmarshals and validates the active configuration.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for contradictions before startup.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Storage.Bucket == "" && c.Storage.LocalThemeDir == "" {
		return fmt.Errorf("either storage.bucket or storage.local_theme_dir must be set")
	}
	if c.Storage.LocalThemeDir != "" && c.Development.StoreID == "" {
		return fmt.Errorf("development.store_id is required with storage.local_theme_dir")
	}
	if !strings.HasPrefix(c.Platform.DomainSuffix, ".") {
		return fmt.Errorf("platform.domain_suffix must start with a dot, got %q", c.Platform.DomainSuffix)
	}
	if c.Render.TimeoutSeconds <= 0 {
		return fmt.Errorf("render.timeout_seconds must be positive")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}

// Production reports whether the process runs against real storage
// with development conveniences off.
func (c *Config) Production() bool {
	return !c.Development.Enabled
}

// Package config provides configuration management for toolinger using Viper
// for loading from YAML files, TOOLINGER_ environment variables and
// command-line flags.
//
// The configuration carries the content root the Content Locator reads
// from, the sanitizer allow-list extensions, HTTP server settings, the
// client renderer endpoint and the development live-reload switch. Nothing
// here is kept as a process global: callers load a *Config once and pass the
// pieces into constructors.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "TOOLINGER"

var envKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

// BindEnv enables TOOLINGER_<SECTION>_<OPTION> overrides on v,
// e.g. TOOLINGER_CONTENT_ROOT or TOOLINGER_SERVER_PORT.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(envKeyReplacer)
}

type Config struct {
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Content     ContentConfig     `mapstructure:"content" yaml:"content"`
	Sanitizer   SanitizerConfig   `mapstructure:"sanitizer" yaml:"sanitizer"`
	Client      ClientConfig      `mapstructure:"client" yaml:"client"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit" yaml:"rate_limit"`
	Development DevelopmentConfig `mapstructure:"development" yaml:"development"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" yaml:"port"`
	Host            string        `mapstructure:"host" yaml:"host"`
	Environment     string        `mapstructure:"environment" yaml:"environment"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// ContentConfig locates the directory holding the pages/ and tools/ namespaces.
type ContentConfig struct {
	Root string `mapstructure:"root" yaml:"root"`
}

// SanitizerConfig extends the sanitizer allow-list. Empty lists keep the
// built-in defaults.
type SanitizerConfig struct {
	ExtraElements    []string `mapstructure:"extra_elements" yaml:"extra_elements"`
	GlobalAttributes []string `mapstructure:"global_attributes" yaml:"global_attributes"`
	ImageAttributes  []string `mapstructure:"image_attributes" yaml:"image_attributes"`
}

type ClientConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

type DevelopmentConfig struct {
	LiveReload bool          `mapstructure:"live_reload" yaml:"live_reload"`
	Debounce   time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("content.root", "./content")

	v.SetDefault("client.base_url", "http://localhost:8080")
	v.SetDefault("client.timeout", 10*time.Second)

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.requests_per_minute", 600)

	v.SetDefault("development.live_reload", false)
	v.SetDefault("development.debounce", 300*time.Millisecond)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the configuration held by the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom unmarshals and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if cfg.Content.Root != "" {
		cfg.Content.Root = filepath.Clean(cfg.Content.Root)
	}

	if result := Validate(&cfg); result.HasErrors() {
		return nil, fmt.Errorf("invalid configuration: %w", result)
	}

	return &cfg, nil
}

// Addr returns the host:port pair the HTTP server binds to.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsProduction reports whether the server runs with production settings.
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

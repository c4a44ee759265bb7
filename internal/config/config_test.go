package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "content", cfg.Content.Root)
	assert.Equal(t, "http://localhost:8080", cfg.Client.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 300*time.Millisecond, cfg.Development.Debounce)
	assert.False(t, cfg.Development.LiveReload)
	assert.Empty(t, cfg.Sanitizer.ExtraElements)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(v *viper.Viper)
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "custom content root and sanitizer",
			setup: func(v *viper.Viper) {
				v.Set("content.root", "/srv/toolinger/content/")
				v.Set("sanitizer.extra_elements", []string{"section", "aside"})
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/srv/toolinger/content", cfg.Content.Root)
				assert.Equal(t, []string{"section", "aside"}, cfg.Sanitizer.ExtraElements)
			},
		},
		{
			name: "duration strings",
			setup: func(v *viper.Viper) {
				v.Set("client.timeout", "2s")
				v.Set("development.debounce", "50ms")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 2*time.Second, cfg.Client.Timeout)
				assert.Equal(t, 50*time.Millisecond, cfg.Development.Debounce)
			},
		},
		{
			name: "invalid port",
			setup: func(v *viper.Viper) {
				v.Set("server.port", 70000)
			},
			expectError: true,
		},
		{
			name: "undecodable port",
			setup: func(v *viper.Viper) {
				v.Set("server.port", "invalid_port")
			},
			expectError: true,
		},
		{
			name: "empty content root",
			setup: func(v *viper.Viper) {
				v.Set("content.root", " ")
			},
			expectError: true,
		},
		{
			name: "javascript client base url",
			setup: func(v *viper.Viper) {
				v.Set("client.base_url", "javascript:alert(1)")
			},
			expectError: true,
		},
		{
			name: "rate limit enabled without budget",
			setup: func(v *viper.Viper) {
				v.Set("rate_limit.enabled", true)
				v.Set("rate_limit.requests_per_minute", 0)
			},
			expectError: true,
		},
		{
			name: "unknown log level",
			setup: func(v *viper.Viper) {
				v.Set("log.level", "chatty")
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			tt.setup(v)

			cfg, err := LoadFrom(v)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".toolinger.yml")
	content := `
server:
  port: 9090
  environment: production
  allowed_origins:
    - https://toolinger.example
content:
  root: ./site
development:
  live_reload: true
  debounce: 100ms
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Server.IsProduction())
	assert.Equal(t, []string{"https://toolinger.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "site", cfg.Content.Root)
	assert.True(t, cfg.Development.LiveReload)
	assert.Equal(t, 100*time.Millisecond, cfg.Development.Debounce)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("TOOLINGER_CONTENT_ROOT", "/var/lib/toolinger")

	v := viper.New()
	BindEnv(v)

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/toolinger", cfg.Content.Root)
}

func TestValidateWarnings(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{Port: 8080, Environment: "staging"},
		Content: ContentConfig{Root: "content"},
		Client:  ClientConfig{BaseURL: "http://localhost:8080", Timeout: time.Second},
	}

	result := Validate(cfg)
	assert.False(t, result.HasErrors())
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "server.environment", result.Warnings[0].Field)
	assert.Contains(t, result.String(), "unknown environment type")
}

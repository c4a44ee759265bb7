package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/toolinger/toolinger/internal/logging"
	"github.com/toolinger/toolinger/internal/validation"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// Error joins the error messages so a result can be returned as an error.
func (vr *ValidationResult) Error() string {
	messages := make([]string, 0, len(vr.Errors))
	for i := range vr.Errors {
		messages = append(messages, vr.Errors[i].Error())
	}
	return strings.Join(messages, "; ")
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	write := func(title string, issues []ValidationError) {
		if len(issues) == 0 {
			return
		}
		builder.WriteString(title + ":\n")
		for _, issue := range issues {
			builder.WriteString(fmt.Sprintf("  - %s: %s\n", issue.Field, issue.Message))
			for _, suggestion := range issue.Suggestions {
				builder.WriteString(fmt.Sprintf("    hint: %s\n", suggestion))
			}
		}
	}

	write("Validation errors", vr.Errors)
	write("Validation warnings", vr.Warnings)

	return builder.String()
}

func (vr *ValidationResult) addError(field string, value interface{}, message string, suggestions ...string) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Value: value, Message: message, Suggestions: suggestions})
}

func (vr *ValidationResult) addWarning(field string, value interface{}, message string, suggestions ...string) {
	vr.Warnings = append(vr.Warnings, ValidationError{Field: field, Value: value, Message: message, Suggestions: suggestions})
}

// Validate checks every section and collects errors and warnings.
func Validate(cfg *Config) *ValidationResult {
	result := &ValidationResult{}

	validateServer(&cfg.Server, result)
	validateContent(&cfg.Content, result)
	validateSanitizer(&cfg.Sanitizer, result)
	validateClient(&cfg.Client, result)
	validateRateLimit(&cfg.RateLimit, result)
	validateDevelopment(&cfg.Development, result)
	validateLog(&cfg.Log, result)

	return result
}

func validateServer(cfg *ServerConfig, result *ValidationResult) {
	if cfg.Port < 0 || cfg.Port > 65535 {
		result.addError("server.port", cfg.Port,
			fmt.Sprintf("port %d is not in valid range 0-65535", cfg.Port),
			"Port 0 lets the system assign an available port")
	}

	if strings.ContainsAny(cfg.Host, ";&|$`()<>\"'\\ ") {
		result.addError("server.host", cfg.Host, "host contains dangerous characters",
			"Use 'localhost' for local development",
			"Use '0.0.0.0' to bind to all interfaces")
	}

	switch cfg.Environment {
	case "", "development", "production", "testing":
	default:
		result.addWarning("server.environment", cfg.Environment, "unknown environment type",
			"Use 'development', 'production' or 'testing'")
	}

	for i, origin := range cfg.AllowedOrigins {
		if err := validation.ValidateURL(origin); err != nil {
			result.addError(fmt.Sprintf("server.allowed_origins[%d]", i), origin, err.Error())
		}
	}

	timeouts := []struct {
		field string
		value time.Duration
	}{
		{"server.read_timeout", cfg.ReadTimeout},
		{"server.write_timeout", cfg.WriteTimeout},
		{"server.shutdown_timeout", cfg.ShutdownTimeout},
	}
	for _, timeout := range timeouts {
		if timeout.value < 0 {
			result.addError(timeout.field, timeout.value, "timeout cannot be negative")
		}
	}
}

func validateContent(cfg *ContentConfig, result *ValidationResult) {
	if strings.TrimSpace(cfg.Root) == "" {
		result.addError("content.root", cfg.Root, "content root cannot be empty",
			"Point content.root at the directory holding pages/ and tools/")
		return
	}
	if strings.ContainsRune(cfg.Root, 0) {
		result.addError("content.root", cfg.Root, "content root contains a NUL byte")
	}
}

func validateSanitizer(cfg *SanitizerConfig, result *ValidationResult) {
	check := func(field string, names []string) {
		for i, name := range names {
			if strings.TrimSpace(name) == "" || strings.ContainsAny(name, " <>\"'=/") {
				result.addError(fmt.Sprintf("%s[%d]", field, i), name, "not a valid element or attribute name")
			}
		}
	}

	check("sanitizer.extra_elements", cfg.ExtraElements)
	check("sanitizer.global_attributes", cfg.GlobalAttributes)
	check("sanitizer.image_attributes", cfg.ImageAttributes)
}

func validateClient(cfg *ClientConfig, result *ValidationResult) {
	if err := validation.ValidateURL(cfg.BaseURL); err != nil {
		result.addError("client.base_url", cfg.BaseURL, err.Error(),
			"Use the address of a running 'toolinger serve', e.g. http://localhost:8080")
	}
	if cfg.Timeout <= 0 {
		result.addError("client.timeout", cfg.Timeout, "timeout must be positive")
	}
}

func validateRateLimit(cfg *RateLimitConfig, result *ValidationResult) {
	if cfg.Enabled && cfg.RequestsPerMinute <= 0 {
		result.addError("rate_limit.requests_per_minute", cfg.RequestsPerMinute,
			"must be positive when rate limiting is enabled")
	}
}

func validateDevelopment(cfg *DevelopmentConfig, result *ValidationResult) {
	if cfg.LiveReload && cfg.Debounce <= 0 {
		result.addError("development.debounce", cfg.Debounce,
			"debounce must be positive when live reload is enabled",
			"300ms groups editor save bursts well")
	}
}

func validateLog(cfg *LogConfig, result *ValidationResult) {
	if _, err := logging.ParseLevel(cfg.Level); err != nil {
		result.addError("log.level", cfg.Level, err.Error(), "Use debug, info, warn or error")
	}
	switch cfg.Format {
	case "", "text", "json":
	default:
		result.addError("log.format", cfg.Format, "unknown log format", "Use 'text' or 'json'")
	}
}

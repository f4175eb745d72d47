package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/cephforge/cephcli/pkg/transport"
)

// Formats lists the accepted values of defaults.format.
var Formats = []string{"json", "json-pretty", "yaml", "table", "plain"}

// LogLevels lists the accepted values of log.level.
var LogLevels = []string{"debug", "info", "warn", "error"}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validator handles configuration validation.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks every section of cfg and returns ValidationErrors when
// anything is wrong.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = nil

	if cfg.Cluster.URL != "" && !isValidURL(cfg.Cluster.URL) {
		v.addError("cluster.url", "url must be a valid http(s) URL")
	}
	if cfg.Cluster.Target != "" {
		if _, err := transport.ParseTarget(cfg.Cluster.Target); err != nil {
			v.addError("cluster.target", err.Error())
		}
	}

	if cfg.Defaults.Format != "" && !slices.Contains(Formats, cfg.Defaults.Format) {
		v.addError("defaults.format", "format must be one of: "+strings.Join(Formats, ", "))
	}
	if cfg.Defaults.Timeout < 0 {
		v.addError("defaults.timeout", "timeout must be non-negative")
	}

	if cfg.Cache.TTL < 0 {
		v.addError("cache.ttl", "ttl must be non-negative")
	}
	if cfg.History.MaxEntries < 0 {
		v.addError("history.max_entries", "max_entries must be non-negative")
	}

	if cfg.Log.Level != "" && !slices.Contains(LogLevels, strings.ToLower(cfg.Log.Level)) {
		v.addError("log.level", "level must be one of: "+strings.Join(LogLevels, ", "))
	}

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

func (v *Validator) addError(field, message string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

func isValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/suse/upscout/pkg/logging"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// ValidOutputFormats lists the accepted output.format values.
var ValidOutputFormats = []string{"table", "wide", "json", "yaml", "template"}

// Validate checks a fully defaulted configuration.
func Validate(cfg UpscoutConfig) ValidationErrors {
	var errs ValidationErrors

	if cfg.Rancher.URL != "" {
		if err := validateHTTPURL(cfg.Rancher.URL); err != nil {
			errs.Add("rancher.url", err.Error(), cfg.Rancher.URL)
		}
	}

	if cfg.Discovery.Port < 1 || cfg.Discovery.Port > 65535 {
		errs.Add("discovery.port", "must be between 1 and 65535", cfg.Discovery.Port)
	}
	if cfg.Discovery.MaxConcurrent < 1 {
		errs.Add("discovery.maxConcurrent", "must be at least 1", cfg.Discovery.MaxConcurrent)
	}
	for _, ns := range cfg.Discovery.AllowedNamespaces {
		if msgs := validation.IsDNS1123Label(ns); len(msgs) > 0 {
			errs.Add("discovery.allowedNamespaces", fmt.Sprintf("%q is not a valid namespace: %s", ns, strings.Join(msgs, ", ")), ns)
		}
	}
	for _, u := range cfg.Discovery.ServiceURLs {
		if err := validateHTTPURL(u); err != nil {
			errs.Add("discovery.serviceURLs", err.Error(), u)
		}
	}

	if cfg.Health.Timeout < 0 {
		errs.Add("health.timeout", "must not be negative", cfg.Health.Timeout)
	}
	if !strings.HasPrefix(cfg.Health.Path, "/") {
		errs.Add("health.path", "must start with /", cfg.Health.Path)
	}

	if cfg.Monitor.Interval < time.Second {
		errs.Add("monitor.interval", "must be at least 1s", cfg.Monitor.Interval)
	}
	for name, u := range cfg.Monitor.Endpoints {
		if err := validateHTTPURL(u); err != nil {
			errs.Add("monitor.endpoints."+name, err.Error(), u)
		}
	}

	if !isValidOutputFormat(cfg.Output.Format) {
		errs.Add("output.format", fmt.Sprintf("must be one of %s", strings.Join(ValidOutputFormats, ", ")), cfg.Output.Format)
	}
	if cfg.Output.Format == "template" && cfg.Output.Template == "" {
		errs.Add("output.template", "is required when output.format is template")
	}

	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		errs.Add("logLevel", err.Error(), cfg.LogLevel)
	}

	return errs
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}

func isValidOutputFormat(format string) bool {
	for _, f := range ValidOutputFormats {
		if f == format {
			return true
		}
	}
	return false
}

package config

import (
	"fmt"
	"net/url"
	"slices"

	"github.com/soyeahso/mcp-digitalocean/internal/domain"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

var validLogLevels = []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}

// Validate checks a Config for issues. Returns nil if valid.
// The token is not checked here; see RequireToken.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	// API validation
	if u, err := url.Parse(cfg.API.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		issues = append(issues, ValidationIssue{
			Path:    "api.endpoint",
			Message: fmt.Sprintf("must be an absolute URL, got %q", cfg.API.Endpoint),
		})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		issues = append(issues, ValidationIssue{
			Path:    "api.endpoint",
			Message: fmt.Sprintf("scheme must be http or https, got %q", u.Scheme),
		})
	}

	// Wait validation
	if cfg.Wait.PollInterval <= 0 {
		issues = append(issues, ValidationIssue{
			Path:    "wait.pollInterval",
			Message: fmt.Sprintf("must be positive, got %s", cfg.Wait.PollInterval),
		})
	}
	if cfg.Wait.Timeout <= 0 {
		issues = append(issues, ValidationIssue{
			Path:    "wait.timeout",
			Message: fmt.Sprintf("must be positive, got %s", cfg.Wait.Timeout),
		})
	} else if cfg.Wait.PollInterval > cfg.Wait.Timeout {
		issues = append(issues, ValidationIssue{
			Path:    "wait.pollInterval",
			Message: fmt.Sprintf("must not exceed wait.timeout (%s), got %s", cfg.Wait.Timeout, cfg.Wait.PollInterval),
		})
	}
	if slices.Contains(cfg.Wait.FailureStatuses, domain.StatusActive) {
		issues = append(issues, ValidationIssue{
			Path:    "wait.failureStatuses",
			Message: "must not contain the active status",
		})
	}

	// Logging validation
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	// Container validation
	if cfg.Container.Name == "" {
		issues = append(issues, ValidationIssue{
			Path:    "container.name",
			Message: "name is required",
		})
	}
	if cfg.Container.Image == "" {
		issues = append(issues, ValidationIssue{
			Path:    "container.image",
			Message: "image is required",
		})
	}

	issues = append(issues, cfg.envIssues...)

	return issues
}

// RequireToken returns a ConfigurationError when no API token is configured.
func RequireToken(cfg *Config) (domain.Credential, error) {
	if cfg.Token == "" {
		return "", domain.ConfigurationError("startup",
			"no API token: set DIGITALOCEAN_API_TOKEN or token in the config file")
	}
	return domain.Credential(cfg.Token), nil
}

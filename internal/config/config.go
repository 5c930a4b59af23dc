package config

import (
	"fmt"
	"time"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Default values.
const (
	DefaultEndpoint      = "https://api.digitalocean.com/"
	DefaultDropletName   = "gpu-droplet"
	DefaultRegion        = "nyc1"
	DefaultSize          = "g-2vcpu-16gb"
	DefaultPollInterval  = 5 * time.Second
	DefaultWaitTimeout   = 300 * time.Second
	DefaultRuntime       = "docker"
	DefaultImage         = "mcp-digitalocean:latest"
	DefaultContainerName = "mcp-digitalocean"
)

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	var cfg Config
	applyDefaults(&cfg)
	return cfg
}

package config

import "time"

// Config is the root configuration for domcp.
type Config struct {
	Token     string          `yaml:"token,omitempty"` // DigitalOcean API token; ${ENV} references are expanded
	API       APIConfig       `yaml:"api,omitempty"`
	Droplet   DropletDefaults `yaml:"droplet,omitempty"`
	Wait      WaitConfig      `yaml:"wait,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
	Container ContainerConfig `yaml:"container,omitempty"`

	envIssues []ValidationIssue // unparseable environment overrides
}

// APIConfig controls the remote API endpoint.
type APIConfig struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	UserAgent string `yaml:"userAgent,omitempty"`
}

// DropletDefaults are used by the deploy command when creating a droplet.
type DropletDefaults struct {
	Name              string   `yaml:"name,omitempty"`
	Region            string   `yaml:"region,omitempty"`
	Size              string   `yaml:"size,omitempty"`
	Image             string   `yaml:"image,omitempty"` // snapshot ID or image slug
	SSHKeys           []string `yaml:"sshKeys,omitempty"`
	Tags              []string `yaml:"tags,omitempty"`
	UserData          string   `yaml:"userData,omitempty"`
	Monitoring        bool     `yaml:"monitoring,omitempty"`
	IPv6              bool     `yaml:"ipv6,omitempty"`
	PrivateNetworking *bool    `yaml:"privateNetworking,omitempty"` // defaults to true
}

// PrivateNetworkingEnabled reports the effective private networking flag.
func (d DropletDefaults) PrivateNetworkingEnabled() bool {
	return d.PrivateNetworking == nil || *d.PrivateNetworking
}

// WaitConfig controls the provisioning waiter.
type WaitConfig struct {
	Enabled         *bool         `yaml:"enabled,omitempty"` // deploy waits for active; defaults to true
	PollInterval    time.Duration `yaml:"pollInterval,omitempty"`
	Timeout         time.Duration `yaml:"timeout,omitempty"`
	FailureStatuses []string      `yaml:"failureStatuses,omitempty"`
}

// WaitEnabled reports whether deploy should wait for the droplet.
func (w WaitConfig) WaitEnabled() bool {
	return w.Enabled == nil || *w.Enabled
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File  string `yaml:"file,omitempty"`  // defaults to <base>/logs/mcp-digitalocean.log for serve
}

// ContainerConfig controls the container lifecycle commands.
type ContainerConfig struct {
	Runtime    string `yaml:"runtime,omitempty"` // docker-compatible CLI binary
	Image      string `yaml:"image,omitempty"`
	Name       string `yaml:"name,omitempty"`
	Dockerfile string `yaml:"dockerfile,omitempty"`
	Context    string `yaml:"context,omitempty"`
	EnvFile    string `yaml:"envFile,omitempty"`
}

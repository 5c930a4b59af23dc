package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Token environment variables, in lookup order.
var tokenEnvVars = []string{"DIGITALOCEAN_API_TOKEN", "DIGITALOCEAN_TOKEN"}

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so the token can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Token = expandEnvVars(cfg.Token)
	if envVarPattern.MatchString(cfg.Token) {
		// unresolved reference: treat as unset rather than sending it
		cfg.Token = ""
	}
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	expandSensitiveFields(&cfg)
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.API.Endpoint == "" {
		cfg.API.Endpoint = DefaultEndpoint
	}
	if cfg.Droplet.Name == "" {
		cfg.Droplet.Name = DefaultDropletName
	}
	if cfg.Droplet.Region == "" {
		cfg.Droplet.Region = DefaultRegion
	}
	if cfg.Droplet.Size == "" {
		cfg.Droplet.Size = DefaultSize
	}
	if cfg.Wait.PollInterval == 0 {
		cfg.Wait.PollInterval = DefaultPollInterval
	}
	if cfg.Wait.Timeout == 0 {
		cfg.Wait.Timeout = DefaultWaitTimeout
	}
	if cfg.Wait.FailureStatuses == nil {
		cfg.Wait.FailureStatuses = []string{"error"}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Container.Runtime == "" {
		cfg.Container.Runtime = DefaultRuntime
	}
	if cfg.Container.Image == "" {
		cfg.Container.Image = DefaultImage
	}
	if cfg.Container.Name == "" {
		cfg.Container.Name = DefaultContainerName
	}
	if cfg.Container.Dockerfile == "" {
		cfg.Container.Dockerfile = "Dockerfile"
	}
	if cfg.Container.Context == "" {
		cfg.Container.Context = "."
	}
}

// applyEnvOverrides reads environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	for _, name := range tokenEnvVars {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			cfg.Token = v
			break
		}
	}
	if v := os.Getenv("DIGITALOCEAN_API_ENDPOINT"); v != "" {
		cfg.API.Endpoint = v
	}
	if v := os.Getenv("DROPLET_NAME"); v != "" {
		cfg.Droplet.Name = v
	}
	if v := os.Getenv("DROPLET_REGION"); v != "" {
		cfg.Droplet.Region = v
	}
	if v := os.Getenv("DROPLET_SIZE"); v != "" {
		cfg.Droplet.Size = v
	}
	if v := os.Getenv("SNAPSHOT_ID"); v != "" {
		cfg.Droplet.Image = v
	}
	if v := os.Getenv("SSH_KEYS"); v != "" {
		cfg.Droplet.SSHKeys = splitList(v)
	}
	if v := os.Getenv("DROPLET_TAGS"); v != "" {
		cfg.Droplet.Tags = splitList(v)
	}
	if v, ok := envBool("MONITORING"); ok {
		cfg.Droplet.Monitoring = v
	}
	if v, ok := envBool("IPV6"); ok {
		cfg.Droplet.IPv6 = v
	}
	if v, ok := envBool("PRIVATE_NETWORKING"); ok {
		cfg.Droplet.PrivateNetworking = &v
	}
	if v, ok := envBool("WAIT_FOR_ACTIVE"); ok {
		cfg.Wait.Enabled = &v
	}
	if d, ok := envDuration(cfg, "DOMCP_POLL_INTERVAL", "wait.pollInterval"); ok {
		cfg.Wait.PollInterval = d
	}
	if d, ok := envDuration(cfg, "DOMCP_WAIT_TIMEOUT", "wait.timeout"); ok {
		cfg.Wait.Timeout = d
	}
	if v := os.Getenv("DOMCP_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envBool(name string) (bool, bool) {
	v := os.Getenv(name)
	if v == "" {
		return false, false
	}
	return strings.EqualFold(strings.TrimSpace(v), "true"), true
}

// envDuration accepts Go durations ("90s") or plain seconds ("90"). A value
// that parses as neither is recorded as a validation issue for path.
func envDuration(cfg *Config, name, path string) (time.Duration, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), true
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, true
	}
	cfg.envIssues = append(cfg.envIssues, ValidationIssue{
		Path:    path,
		Message: fmt.Sprintf("%s=%q is not a duration", name, v),
	})
	return 0, false
}

package cli

import (
	"strconv"
	"time"

	"github.com/soyeahso/mcp-digitalocean/internal/config"
	"github.com/soyeahso/mcp-digitalocean/internal/doclient"
	"github.com/soyeahso/mcp-digitalocean/internal/logging"
	"github.com/soyeahso/mcp-digitalocean/internal/provision"
	"github.com/soyeahso/mcp-digitalocean/internal/version"
)

// newClient builds a resource client from the loaded config.
func newClient(cfg *config.Config, l *logging.Logger) (*doclient.Client, error) {
	cred, err := config.RequireToken(cfg)
	if err != nil {
		return nil, err
	}
	ua := cfg.API.UserAgent
	if ua == "" {
		ua = version.UserAgent()
	}
	return doclient.New(cred,
		doclient.WithBaseURL(cfg.API.Endpoint),
		doclient.WithUserAgent(ua),
		doclient.WithLogger(l),
	)
}

func waitConfig(cfg *config.Config) provision.Config {
	return provision.Config{
		Interval:        cfg.Wait.PollInterval,
		Deadline:        cfg.Wait.Timeout,
		FailureStatuses: cfg.Wait.FailureStatuses,
	}
}

// parseSeconds accepts a Go duration ("90s") or plain seconds ("90").
func parseSeconds(s string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

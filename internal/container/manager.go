// Package container drives the docker CLI to build, run and tear down the
// MCP server image.
package container

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/soyeahso/mcp-digitalocean/internal/config"
	"github.com/soyeahso/mcp-digitalocean/internal/domain"
	"github.com/soyeahso/mcp-digitalocean/internal/logging"
)

// TokenEnv is the variable the container reads its API token from.
const TokenEnv = "DIGITALOCEAN_API_TOKEN"

// Manager runs the container lifecycle commands.
type Manager struct {
	runner Runner
	cfg    config.ContainerConfig
	out    io.Writer
	errOut io.Writer
	log    *logging.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithOutput streams command output to stdout and stderr.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(m *Manager) {
		m.out = stdout
		m.errOut = stderr
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager creates a Manager. Empty cfg fields take the config defaults.
func NewManager(r Runner, cfg config.ContainerConfig, opts ...Option) *Manager {
	def := config.Defaults().Container
	if cfg.Image == "" {
		cfg.Image = def.Image
	}
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.Dockerfile == "" {
		cfg.Dockerfile = def.Dockerfile
	}
	if cfg.Context == "" {
		cfg.Context = def.Context
	}
	m := &Manager{runner: r, cfg: cfg, log: logging.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.Sub("container")
	return m
}

// Config returns the effective container settings.
func (m *Manager) Config() config.ContainerConfig { return m.cfg }

// Build builds the image.
func (m *Manager) Build(ctx context.Context) error {
	m.log.Info().Str("image", m.cfg.Image).Str("dockerfile", m.cfg.Dockerfile).Msg("building image")
	_, err := m.run(ctx, "build", Command{
		Args: []string{"build", "-t", m.cfg.Image, "-f", m.cfg.Dockerfile, m.cfg.Context},
	})
	return err
}

// Run starts the container detached with stdin open. The token is passed
// by name through the environment so it never shows up in argv.
func (m *Manager) Run(ctx context.Context, token domain.Credential) error {
	if token.Empty() && m.cfg.EnvFile == "" {
		return domain.ConfigurationError("container run", "%s is not set and no env file is configured", TokenEnv)
	}

	args := []string{"run", "-d", "-i", "--name", m.cfg.Name}
	var env []string
	if !token.Empty() {
		args = append(args, "-e", TokenEnv)
		env = append(env, TokenEnv+"="+token.Token())
	}
	if m.cfg.EnvFile != "" {
		args = append(args, "--env-file", m.cfg.EnvFile)
	}
	args = append(args, m.cfg.Image)

	res, err := m.run(ctx, "run", Command{Args: args, Env: env})
	if err != nil {
		return err
	}
	m.log.Info().Str("name", m.cfg.Name).Str("container_id", shortID(res.Stdout)).Msg("container started")
	return nil
}

// BuildRun builds the image and then starts it.
func (m *Manager) BuildRun(ctx context.Context, token domain.Credential) error {
	if err := m.Build(ctx); err != nil {
		return err
	}
	return m.Run(ctx, token)
}

// Stop stops and removes the container.
func (m *Manager) Stop(ctx context.Context) error {
	if _, err := m.run(ctx, "stop", Command{Args: []string{"stop", m.cfg.Name}}); err != nil {
		return err
	}
	_, err := m.run(ctx, "rm", Command{Args: []string{"rm", m.cfg.Name}})
	return err
}

// Logs prints container logs. tail <= 0 means all lines.
func (m *Manager) Logs(ctx context.Context, follow bool, tail int) error {
	args := []string{"logs"}
	if follow {
		args = append(args, "-f")
	}
	if tail > 0 {
		args = append(args, "--tail", strconv.Itoa(tail))
	}
	args = append(args, m.cfg.Name)
	_, err := m.run(ctx, "logs", Command{Args: args})
	return err
}

// Clean removes the container and the image. Missing ones are skipped.
func (m *Manager) Clean(ctx context.Context) error {
	steps := []struct {
		op   string
		args []string
	}{
		{"rm", []string{"rm", "-f", m.cfg.Name}},
		{"rmi", []string{"rmi", m.cfg.Image}},
	}
	for _, s := range steps {
		_, err := m.run(ctx, s.op, Command{Args: s.args})
		if err == nil {
			continue
		}
		if domain.KindOf(err) == domain.KindNotFound {
			m.log.Debug().Str("op", s.op).Msg("nothing to remove")
			continue
		}
		return err
	}
	return nil
}

// run executes cmd, streaming output when configured, and classifies failures.
func (m *Manager) run(ctx context.Context, op string, cmd Command) (Result, error) {
	cmd.Stdout = m.out
	cmd.Stderr = m.errOut

	res, err := m.runner.Run(ctx, cmd)
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	kind := domain.KindUpstream
	if isNotFound(res.Stderr) {
		kind = domain.KindNotFound
	}
	msg := res.Stderr
	if msg == "" {
		msg = err.Error()
	}
	return res, &domain.Error{Kind: kind, Op: "container " + op, Message: msg, Err: err}
}

func isNotFound(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "no such container") ||
		strings.Contains(s, "no such image") ||
		strings.Contains(s, "not found")
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

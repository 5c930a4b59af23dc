package container

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/soyeahso/mcp-digitalocean/internal/logging"
)

// Command is one invocation of the container runtime CLI.
type Command struct {
	Args []string
	// Env is appended to the parent environment. Secrets go here, never in Args.
	Env    []string
	Stdout io.Writer // optional live copy of stdout
	Stderr io.Writer // optional live copy of stderr
}

// Result is the outcome of one command.
type Result struct {
	Command string `json:"command"`
	Success bool   `json:"success"`
	Stdout  string `json:"stdout,omitempty"`
	Stderr  string `json:"stderr,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Runner executes container runtime commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs a docker-compatible binary on the host.
type ExecRunner struct {
	binary string
	log    *logging.Logger
}

// NewExecRunner creates a runner for binary ("docker" when empty).
func NewExecRunner(binary string, log *logging.Logger) *ExecRunner {
	if binary == "" {
		binary = "docker"
	}
	if log == nil {
		log = logging.Nop()
	}
	return &ExecRunner{binary: binary, log: log}
}

// Run executes the command and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	c := exec.CommandContext(ctx, r.binary, cmd.Args...)
	c.Env = append(os.Environ(), cmd.Env...)

	var stdout, stderr bytes.Buffer
	c.Stdout = tee(&stdout, cmd.Stdout)
	c.Stderr = tee(&stderr, cmd.Stderr)

	commandStr := r.binary + " " + strings.Join(cmd.Args, " ")
	r.log.Debug().Str("command", commandStr).Msg("executing")

	err := c.Run()
	result := Result{
		Command: commandStr,
		Success: err == nil,
		Stdout:  strings.TrimSpace(stdout.String()),
		Stderr:  strings.TrimSpace(stderr.String()),
	}
	if err != nil {
		result.Error = err.Error()
		r.log.Warn().Err(err).Str("command", commandStr).Str("stderr", result.Stderr).Msg("command failed")
		return result, err
	}
	r.log.Debug().Str("command", commandStr).Int("stdout_bytes", stdout.Len()).Msg("command succeeded")
	return result, nil
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}

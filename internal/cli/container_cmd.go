package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/soyeahso/mcp-digitalocean/internal/config"
	"github.com/soyeahso/mcp-digitalocean/internal/container"
	"github.com/soyeahso/mcp-digitalocean/internal/domain"
	"github.com/spf13/cobra"
)

func newContainerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "container",
		Aliases: []string{"ctr"},
		Short:   "Build, run and manage the MCP server container",
	}

	cmd.AddCommand(newContainerBuildCmd())
	cmd.AddCommand(newContainerRunCmd())
	cmd.AddCommand(newContainerBuildRunCmd())
	cmd.AddCommand(newContainerStopCmd())
	cmd.AddCommand(newContainerLogsCmd())
	cmd.AddCommand(newContainerCleanCmd())

	return cmd
}

// newManager loads config and builds a container manager that streams
// command output to the terminal.
func newManager(cmd *cobra.Command, envFile string) (*container.Manager, config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, cfg, err
	}
	if envFile != "" {
		cfg.Container.EnvFile = envFile
	}
	runner := container.NewExecRunner(cfg.Container.Runtime, log)
	m := container.NewManager(runner, cfg.Container,
		container.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()),
		container.WithLogger(log),
	)
	return m, cfg, nil
}

func newContainerBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the container image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := newManager(cmd, "")
			if err != nil {
				return err
			}
			if err := m.Build(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Built %s\n", m.Config().Image)
			return nil
		},
	}
}

func newContainerRunCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the container in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContainer(cmd, envFile, false)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", "", "env file passed to the container runtime")
	return cmd
}

func newContainerBuildRunCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "build-run",
		Short: "Build the image and start the container",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContainer(cmd, envFile, true)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", "", "env file passed to the container runtime")
	return cmd
}

func runContainer(cmd *cobra.Command, envFile string, build bool) error {
	m, cfg, err := newManager(cmd, envFile)
	if err != nil {
		return err
	}

	token := domain.Credential(cfg.Token)
	if build {
		err = m.BuildRun(cmd.Context(), token)
	} else {
		err = m.Run(cmd.Context(), token)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Started %s; view logs with: domcp container logs -f\n", m.Config().Name)
	return nil
}

func newContainerStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop and remove the container",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := newManager(cmd, "")
			if err != nil {
				return err
			}
			return m.Stop(cmd.Context())
		},
	}
}

func newContainerLogsCmd() *cobra.Command {
	var (
		follow bool
		tail   int
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show container logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := newManager(cmd, "")
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			err = m.Logs(ctx, follow, tail)
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "follow log output")
	cmd.Flags().IntVar(&tail, "tail", 0, "number of lines to show from the end (0 = all)")
	return cmd
}

func newContainerCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the container and its image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := newManager(cmd, "")
			if err != nil {
				return err
			}
			if err := m.Clean(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cleaned up container and image")
			return nil
		},
	}
}

package cli

import (
	"fmt"
	"os"

	"github.com/soyeahso/mcp-digitalocean/internal/config"
	"github.com/soyeahso/mcp-digitalocean/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domcp",
		Short: "DigitalOcean MCP tool server and deployment helpers",
		Long: "domcp exposes DigitalOcean droplet, snapshot and catalog operations as MCP tools, " +
			"deploys GPU droplets from snapshots, and manages the server container.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.domcp/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newDeployCmd())
	cmd.AddCommand(newContainerCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// Execute runs the root command. Any args are placed in front of the
// process arguments, so a single-purpose binary can pin a subcommand.
func Execute(args ...string) error {
	cmd := newRootCmd()
	if len(args) > 0 {
		cmd.SetArgs(append(args, os.Args[1:]...))
	}
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

// loadConfig loads and validates the config file. Without --log-level the
// configured level replaces the default logger.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return cfg, err
	}
	if logLevel == "" {
		log = logging.New(nil, cfg.Logging.Level)
	}

	issues := config.Validate(&cfg)
	if len(issues) > 0 {
		for _, issue := range issues {
			log.Error().Str("path", issue.Path).Msg(issue.Message)
		}
		return cfg, fmt.Errorf("config validation failed with %d issue(s)", len(issues))
	}
	return cfg, nil
}

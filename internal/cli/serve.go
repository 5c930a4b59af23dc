package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/soyeahso/mcp-digitalocean/internal/hooks"
	"github.com/soyeahso/mcp-digitalocean/internal/logging"
	"github.com/soyeahso/mcp-digitalocean/internal/mcp"
	"github.com/soyeahso/mcp-digitalocean/internal/tools"
	"github.com/soyeahso/mcp-digitalocean/internal/version"
	"github.com/spf13/cobra"
)

const serverName = "mcp-digitalocean"

func newServeCmd() *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP tool server on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if logFile == "" {
				logFile = cfg.Logging.File
			}
			if logFile == "" {
				logFile = paths.LogFile(serverName)
			}
			level := logLevel
			if level == "" {
				level = cfg.Logging.Level
			}
			srvLog, closer, err := logging.Open(logFile, level)
			if err != nil {
				return err
			}
			defer closer.Close()

			client, err := newClient(&cfg, srvLog)
			if err != nil {
				srvLog.Error().Err(err).Msg("cannot start")
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			hookMgr := hooks.NewManager(srvLog)
			hooks.Audit(hookMgr, srvLog)
			dispatcher := tools.New(client,
				tools.WithWaitConfig(waitConfig(&cfg)),
				tools.WithHooks(hookMgr),
				tools.WithLogger(srvLog),
			)
			srv := mcp.NewServer(dispatcher,
				mcp.WithIO(cmd.InOrStdin(), cmd.OutOrStdout()),
				mcp.WithLogger(srvLog),
				mcp.WithHooks(hookMgr),
				mcp.WithServerInfo(serverName, version.Version),
			)

			srvLog.Info().
				Str("version", version.Version).
				Str("endpoint", client.BaseURL()).
				Str("log_file", logFile).
				Int("tools", len(dispatcher.Tools())).
				Msg("MCP server starting")
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "", "log file (default ~/.domcp/logs/mcp-digitalocean.log)")
	return cmd
}

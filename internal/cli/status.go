package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/soyeahso/mcp-digitalocean/internal/config"
	"github.com/soyeahso/mcp-digitalocean/internal/domain"
	"github.com/soyeahso/mcp-digitalocean/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show domcp status and configuration summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "domcp %s (commit %s)\n\n", version.Version, version.Commit)

			// Show paths
			fmt.Fprintf(out, "Config:  %s\n", paths.Config)
			fmt.Fprintf(out, "Logs:    %s\n", paths.Logs)
			fmt.Fprintln(out)

			if _, err := os.Stat(paths.Config); os.IsNotExist(err) {
				fmt.Fprintln(out, "Config file not found (using defaults and environment)")
			}
			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Fprintf(out, "Config:  error loading: %v\n", err)
				return nil
			}

			table := tablewriter.NewWriter(out)
			table.SetHeader([]string{"Setting", "Value"})
			table.SetBorder(false)
			table.SetAutoWrapText(false)
			table.AppendBulk(summary(&cfg))
			table.Render()

			// Validation
			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			if !check {
				return nil
			}
			client, err := newClient(&cfg, log)
			if err != nil {
				return err
			}
			acct, err := client.GetAccount(cmd.Context())
			if err != nil {
				return fmt.Errorf("token check failed: %w", err)
			}
			fmt.Fprintf(out, "\nToken OK: %s (status %s, droplet limit %d)\n", acct.Email, acct.Status, acct.DropletLimit)
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "verify the API token with one account request")
	return cmd
}

// summary lists the effective settings. The token is shown redacted.
func summary(cfg *config.Config) [][]string {
	d := cfg.Droplet
	image := d.Image
	if image == "" {
		image = "(unset)"
	}
	return [][]string{
		{"token", domain.Credential(cfg.Token).Redacted()},
		{"endpoint", cfg.API.Endpoint},
		{"droplet", fmt.Sprintf("%s in %s, size %s", d.Name, d.Region, d.Size)},
		{"snapshot", image},
		{"ssh keys", joinOrNone(d.SSHKeys)},
		{"tags", joinOrNone(d.Tags)},
		{"wait", fmt.Sprintf("enabled=%v every %s up to %s, failure statuses %s",
			cfg.Wait.WaitEnabled(), cfg.Wait.PollInterval, cfg.Wait.Timeout, joinOrNone(cfg.Wait.FailureStatuses))},
		{"log level", cfg.Logging.Level},
		{"container", fmt.Sprintf("%s as %s (%s)", cfg.Container.Image, cfg.Container.Name, cfg.Container.Runtime)},
	}
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ",")
}

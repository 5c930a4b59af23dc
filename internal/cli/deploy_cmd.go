package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/soyeahso/mcp-digitalocean/internal/config"
	"github.com/soyeahso/mcp-digitalocean/internal/deploy"
	"github.com/soyeahso/mcp-digitalocean/internal/domain"
	"github.com/spf13/cobra"
)

type deployFlags struct {
	snapshot     string
	name         string
	region       string
	size         string
	sshKeys      []string
	tags         []string
	userDataFile string
	monitoring   bool
	ipv6         bool
	privateNet   bool
	wait         bool
	timeout      string
	pollInterval string
}

func newDeployCmd() *cobra.Command {
	var f deployFlags

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Create a GPU droplet from a snapshot",
		Long: "Verify a snapshot, list available GPU sizes, create a droplet from the snapshot " +
			"and, unless --wait=false, wait for it to become active.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := f.apply(cmd, &cfg); err != nil {
				return err
			}

			client, err := newClient(&cfg, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			d := deploy.New(client, cmd.OutOrStdout(), deploy.WithLogger(log))
			_, err = d.Run(ctx, deploy.Options{
				Spec:       dropletSpec(&cfg),
				Wait:       cfg.Wait.WaitEnabled(),
				WaitConfig: waitConfig(&cfg),
			})
			return err
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.snapshot, "snapshot", "", "snapshot ID to create the droplet from (env SNAPSHOT_ID)")
	fl.StringVar(&f.name, "name", "", "droplet name (env DROPLET_NAME)")
	fl.StringVar(&f.region, "region", "", "region slug (env DROPLET_REGION)")
	fl.StringVar(&f.size, "size", "", "GPU size slug (env DROPLET_SIZE)")
	fl.StringSliceVar(&f.sshKeys, "ssh-keys", nil, "SSH key IDs or fingerprints (env SSH_KEYS)")
	fl.StringSliceVar(&f.tags, "tags", nil, "droplet tags (env DROPLET_TAGS)")
	fl.StringVar(&f.userDataFile, "user-data-file", "", "cloud-init user data file")
	fl.BoolVar(&f.monitoring, "monitoring", false, "enable monitoring (env MONITORING)")
	fl.BoolVar(&f.ipv6, "ipv6", false, "enable IPv6 (env IPV6)")
	fl.BoolVar(&f.privateNet, "private-networking", true, "enable private networking (env PRIVATE_NETWORKING)")
	fl.BoolVar(&f.wait, "wait", true, "wait for the droplet to become active (env WAIT_FOR_ACTIVE)")
	fl.StringVar(&f.timeout, "timeout", "", "wait deadline, e.g. 300s")
	fl.StringVar(&f.pollInterval, "poll-interval", "", "wait poll interval, e.g. 5s")

	return cmd
}

// apply overrides cfg with flags the user set explicitly.
func (f *deployFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	fl := cmd.Flags()
	if fl.Changed("snapshot") {
		cfg.Droplet.Image = f.snapshot
	}
	if fl.Changed("name") {
		cfg.Droplet.Name = f.name
	}
	if fl.Changed("region") {
		cfg.Droplet.Region = f.region
	}
	if fl.Changed("size") {
		cfg.Droplet.Size = f.size
	}
	if fl.Changed("ssh-keys") {
		cfg.Droplet.SSHKeys = f.sshKeys
	}
	if fl.Changed("tags") {
		cfg.Droplet.Tags = f.tags
	}
	if f.userDataFile != "" {
		data, err := os.ReadFile(f.userDataFile)
		if err != nil {
			return domain.ConfigurationError("deploy", "reading user data: %v", err)
		}
		cfg.Droplet.UserData = string(data)
	}
	if fl.Changed("monitoring") {
		cfg.Droplet.Monitoring = f.monitoring
	}
	if fl.Changed("ipv6") {
		cfg.Droplet.IPv6 = f.ipv6
	}
	if fl.Changed("private-networking") {
		cfg.Droplet.PrivateNetworking = &f.privateNet
	}
	if fl.Changed("wait") {
		cfg.Wait.Enabled = &f.wait
	}
	if f.timeout != "" {
		d, err := parseSeconds(f.timeout)
		if err != nil {
			return domain.ConfigurationError("deploy", "invalid --timeout %q", f.timeout)
		}
		cfg.Wait.Timeout = d
	}
	if f.pollInterval != "" {
		d, err := parseSeconds(f.pollInterval)
		if err != nil {
			return domain.ConfigurationError("deploy", "invalid --poll-interval %q", f.pollInterval)
		}
		cfg.Wait.PollInterval = d
	}
	if issues := config.Validate(cfg); len(issues) > 0 {
		return domain.ConfigurationError("deploy", "%s", issues[0])
	}
	return nil
}

func dropletSpec(cfg *config.Config) domain.DropletSpec {
	d := cfg.Droplet
	return domain.DropletSpec{
		Name:              d.Name,
		Region:            d.Region,
		Size:              d.Size,
		Image:             d.Image,
		SSHKeys:           d.SSHKeys,
		Tags:              d.Tags,
		UserData:          d.UserData,
		Monitoring:        d.Monitoring,
		IPv6:              d.IPv6,
		PrivateNetworking: d.PrivateNetworkingEnabled(),
	}
}

// Package deploy creates a GPU droplet from a snapshot and reports on it.
package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/digitalocean/godo"

	"github.com/soyeahso/mcp-digitalocean/internal/domain"
	"github.com/soyeahso/mcp-digitalocean/internal/hooks"
	"github.com/soyeahso/mcp-digitalocean/internal/logging"
	"github.com/soyeahso/mcp-digitalocean/internal/provision"
)

// maxListedSizes caps the GPU size table.
const maxListedSizes = 5

// Client is the resource client surface the deploy flow needs.
type Client interface {
	GetSnapshot(ctx context.Context, id string) (*domain.SnapshotInfo, error)
	ListSizes(ctx context.Context, gpuOnly bool) ([]godo.Size, error)
	CreateDroplet(ctx context.Context, spec domain.DropletSpec) (*domain.DropletState, error)
	GetDroplet(ctx context.Context, id int) (*domain.DropletState, error)
}

// Options describe one deployment.
type Options struct {
	Spec       domain.DropletSpec // Spec.Image is the snapshot ID
	Wait       bool
	WaitConfig provision.Config
}

// Result summarizes a deployment.
type Result struct {
	Snapshot *domain.SnapshotInfo
	GPUSizes []godo.Size
	Droplet  *domain.DropletState
	Outcome  *provision.Outcome // nil when not waiting
}

// Deployer runs the deploy flow, writing a human-readable report to out.
type Deployer struct {
	client   Client
	out      io.Writer
	log      *logging.Logger
	hooks    *hooks.Manager
	waitOpts []provision.Option
}

// Option configures a Deployer.
type Option func(*Deployer)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(d *Deployer) { d.log = l }
}

// WithWaiterOptions passes extra options, such as a clock, to the waiter.
func WithWaiterOptions(opts ...provision.Option) Option {
	return func(d *Deployer) { d.waitOpts = append(d.waitOpts, opts...) }
}

// New creates a Deployer.
func New(client Client, out io.Writer, opts ...Option) *Deployer {
	d := &Deployer{client: client, out: out, log: logging.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.Sub("deploy")
	d.hooks = hooks.NewManager(d.log)
	d.hooks.On(hooks.EventPollObserved, "deploy-progress", d.printProgress)
	d.hooks.On(hooks.EventPollFailed, "deploy-progress", d.printPollError)
	return d
}

// Run verifies the snapshot, lists GPU sizes for reference, creates the
// droplet and, if asked, waits for it to become active. The droplet is
// printed as indented JSON at the end. A partial Result is returned with
// any error.
func (d *Deployer) Run(ctx context.Context, opts Options) (*Result, error) {
	spec := opts.Spec
	if strings.TrimSpace(spec.Image) == "" {
		return nil, domain.ConfigurationError("deploy", "a snapshot ID is required: set SNAPSHOT_ID or pass --snapshot")
	}
	res := &Result{}

	// Verify snapshot exists
	d.printf("Verifying snapshot: %s\n", spec.Image)
	snap, err := d.client.GetSnapshot(ctx, spec.Image)
	if err != nil {
		return res, fmt.Errorf("verifying snapshot: %w", err)
	}
	res.Snapshot = snap
	d.printf("Snapshot found: %s (%s)\n", snap.Name, describeSnapshot(snap))

	// GPU sizes are informational only
	d.printf("\nFetching available GPU sizes...\n")
	sizes, err := d.client.ListSizes(ctx, true)
	if err != nil {
		return res, fmt.Errorf("listing GPU sizes: %w", err)
	}
	res.GPUSizes = sizes
	if len(sizes) == 0 {
		d.printf("Warning: no GPU sizes found. Make sure %q is a GPU-enabled size slug.\n", spec.Size)
	} else {
		d.printf("Available GPU sizes:\n")
		renderSizes(d.out, sizes[:min(len(sizes), maxListedSizes)])
	}

	// Create droplet
	d.printf("\nCreating droplet %q...\n", spec.Name)
	d.printf("  Region:   %s\n", spec.Region)
	d.printf("  Size:     %s\n", spec.Size)
	d.printf("  Snapshot: %s\n", spec.Image)

	st, err := d.client.CreateDroplet(ctx, spec)
	if err != nil {
		return res, fmt.Errorf("creating droplet: %w", err)
	}
	res.Droplet = st
	d.printf("\nDroplet created\n")
	d.printf("  Droplet ID: %d\n", st.ID)
	d.printf("  Name:       %s\n", st.Name)
	d.printf("  Status:     %s\n", st.Status)

	if opts.Wait {
		w := provision.New(d.client, opts.WaitConfig,
			append([]provision.Option{provision.WithHooks(d.hooks), provision.WithLogger(d.log)}, d.waitOpts...)...)
		d.printf("\nWaiting for droplet to become active (polling every %s, timeout %s)...\n",
			w.Config().Interval, w.Config().Deadline)

		out, err := w.Wait(ctx, st)
		res.Outcome = &out
		if out.Droplet != nil {
			res.Droplet = out.Droplet
		}
		if err != nil {
			return res, fmt.Errorf("waiting for droplet %d: %w", st.ID, err)
		}
		d.printf("Droplet is now active (after %s)\n", out.Elapsed.Round(time.Second))

		if len(res.Droplet.Networks) > 0 {
			d.printf("\nNetwork Information:\n")
			renderNetworks(d.out, res.Droplet.Networks)
		}
	}

	data, err := json.MarshalIndent(res.Droplet, "", "  ")
	if err != nil {
		return res, fmt.Errorf("encoding droplet: %w", err)
	}
	d.printf("\n%s\n", strings.Repeat("=", 50))
	d.printf("Droplet Information (JSON):\n%s\n", data)
	return res, nil
}

func (d *Deployer) printf(format string, args ...any) {
	fmt.Fprintf(d.out, format, args...)
}

func (d *Deployer) printProgress(_ context.Context, p hooks.Payload) error {
	elapsed, _ := p.Data["elapsed"].(time.Duration)
	d.printf("  status: %v (%s elapsed)\n", p.Data["status"], elapsed.Round(time.Second))
	return nil
}

func (d *Deployer) printPollError(_ context.Context, p hooks.Payload) error {
	d.printf("  poll failed, retrying: %v\n", p.Data["error"])
	return nil
}

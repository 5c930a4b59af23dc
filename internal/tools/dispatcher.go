// Package tools maps MCP tool calls onto DigitalOcean client operations.
package tools

import (
	"context"
	"math"
	"time"

	"github.com/digitalocean/godo"

	"github.com/soyeahso/mcp-digitalocean/internal/domain"
	"github.com/soyeahso/mcp-digitalocean/internal/hooks"
	"github.com/soyeahso/mcp-digitalocean/internal/logging"
	"github.com/soyeahso/mcp-digitalocean/internal/mcp"
	"github.com/soyeahso/mcp-digitalocean/internal/provision"
)

// Client is the resource client surface the dispatcher needs.
// *doclient.Client implements it.
type Client interface {
	ListRegions(ctx context.Context) ([]godo.Region, error)
	ListSizes(ctx context.Context, gpuOnly bool) ([]godo.Size, error)
	ListSnapshots(ctx context.Context, resourceType string) ([]domain.SnapshotInfo, error)
	GetSnapshot(ctx context.Context, id string) (*domain.SnapshotInfo, error)
	ListDroplets(ctx context.Context, tag string) ([]domain.DropletState, error)
	GetDroplet(ctx context.Context, id int) (*domain.DropletState, error)
	CreateDroplet(ctx context.Context, spec domain.DropletSpec) (*domain.DropletState, error)
	DeleteDroplet(ctx context.Context, id int) error
	ListSSHKeys(ctx context.Context) ([]godo.Key, error)
	GetAccount(ctx context.Context) (*godo.Account, error)
}

type handlerFunc func(ctx context.Context, args mcp.Args) (any, error)

// Dispatcher validates tool arguments and performs exactly one client
// operation per call. wait_for_droplet runs the provisioning waiter.
type Dispatcher struct {
	client   Client
	wait     provision.Config
	waitOpts []provision.Option
	hooks    *hooks.Manager
	log      *logging.Logger
	handlers map[string]handlerFunc
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWaitConfig sets the waiter defaults used by wait_for_droplet.
func WithWaitConfig(cfg provision.Config) Option {
	return func(d *Dispatcher) { d.wait = cfg }
}

// WithWaiterOptions passes extra options, such as a clock, to each waiter.
func WithWaiterOptions(opts ...provision.Option) Option {
	return func(d *Dispatcher) { d.waitOpts = append(d.waitOpts, opts...) }
}

// WithHooks routes droplet and provisioning events to m.
func WithHooks(m *hooks.Manager) Option {
	return func(d *Dispatcher) { d.hooks = m }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// New creates a Dispatcher over client.
func New(client Client, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client: client,
		wait:   provision.DefaultConfig(),
		log:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.Sub("tools")

	d.handlers = map[string]handlerFunc{
		ListRegions:    d.listRegions,
		ListSizes:      d.listSizes,
		ListSnapshots:  d.listSnapshots,
		GetSnapshot:    d.getSnapshot,
		ListDroplets:   d.listDroplets,
		GetDroplet:     d.getDroplet,
		CreateDroplet:  d.createDroplet,
		DeleteDroplet:  d.deleteDroplet,
		ListSSHKeys:    d.listSSHKeys,
		GetAccount:     d.getAccount,
		WaitForDroplet: d.waitForDroplet,
	}
	return d
}

// Tools returns the tool definitions.
func (d *Dispatcher) Tools() []mcp.Tool {
	return definitions()
}

// Call dispatches one tool call.
func (d *Dispatcher) Call(ctx context.Context, name string, args mcp.Args) (any, error) {
	h, ok := d.handlers[name]
	if !ok {
		return nil, domain.ValidationError("call tool", "unknown tool %q", name)
	}
	if args == nil {
		args = mcp.Args{}
	}
	return h(ctx, args)
}

// ---------- Catalog ----------

func (d *Dispatcher) listRegions(ctx context.Context, _ mcp.Args) (any, error) {
	return d.client.ListRegions(ctx)
}

func (d *Dispatcher) listSizes(ctx context.Context, args mcp.Args) (any, error) {
	gpuOnly, err := args.OptionalBool(ListSizes, "gpu_only", false)
	if err != nil {
		return nil, err
	}
	return d.client.ListSizes(ctx, gpuOnly)
}

// ---------- Snapshots ----------

func (d *Dispatcher) listSnapshots(ctx context.Context, args mcp.Args) (any, error) {
	rt, err := args.OptionalString(ListSnapshots, "resource_type", "")
	if err != nil {
		return nil, err
	}
	return d.client.ListSnapshots(ctx, rt)
}

func (d *Dispatcher) getSnapshot(ctx context.Context, args mcp.Args) (any, error) {
	id, err := args.RequiredString(GetSnapshot, "snapshot_id")
	if err != nil {
		return nil, err
	}
	return d.client.GetSnapshot(ctx, id)
}

// ---------- Droplets ----------

func (d *Dispatcher) listDroplets(ctx context.Context, args mcp.Args) (any, error) {
	tag, err := args.OptionalString(ListDroplets, "tag", "")
	if err != nil {
		return nil, err
	}
	return d.client.ListDroplets(ctx, tag)
}

func (d *Dispatcher) getDroplet(ctx context.Context, args mcp.Args) (any, error) {
	id, err := dropletID(GetDroplet, args)
	if err != nil {
		return nil, err
	}
	return d.client.GetDroplet(ctx, id)
}

func (d *Dispatcher) createDroplet(ctx context.Context, args mcp.Args) (any, error) {
	spec, err := dropletSpec(args)
	if err != nil {
		return nil, err
	}

	st, err := d.client.CreateDroplet(ctx, spec)
	if err != nil {
		return nil, err
	}
	d.hooks.Emit(ctx, hooks.EventDropletCreated, map[string]any{
		"droplet_id": st.ID,
		"name":       st.Name,
		"status":     st.Status,
	})
	return st, nil
}

func (d *Dispatcher) deleteDroplet(ctx context.Context, args mcp.Args) (any, error) {
	id, err := dropletID(DeleteDroplet, args)
	if err != nil {
		return nil, err
	}
	ignoreNotFound, err := args.OptionalBool(DeleteDroplet, "ignore_not_found", false)
	if err != nil {
		return nil, err
	}

	status := "deleted"
	if err := d.client.DeleteDroplet(ctx, id); err != nil {
		if !ignoreNotFound || domain.KindOf(err) != domain.KindNotFound {
			return nil, err
		}
		status = "not_found"
	}
	d.hooks.Emit(ctx, hooks.EventDropletDeleted, map[string]any{"droplet_id": id, "status": status})
	return map[string]any{"status": status, "droplet_id": id}, nil
}

// waitForDroplet returns the outcome for every terminal state. Failed and
// timed out waits are tool errors that still carry the outcome.
func (d *Dispatcher) waitForDroplet(ctx context.Context, args mcp.Args) (any, error) {
	id, err := dropletID(WaitForDroplet, args)
	if err != nil {
		return nil, err
	}

	cfg := d.wait
	if cfg.Interval, err = seconds(args, "interval_seconds", cfg.Interval); err != nil {
		return nil, err
	}
	if cfg.Deadline, err = seconds(args, "timeout_seconds", cfg.Deadline); err != nil {
		return nil, err
	}

	opts := append([]provision.Option{
		provision.WithHooks(d.hooks),
		provision.WithLogger(d.log),
	}, d.waitOpts...)
	w := provision.New(d.client, cfg, opts...)

	out, err := w.Wait(ctx, &domain.DropletState{ID: id})
	if err != nil {
		if out.State.Terminal() {
			return nil, &mcp.PayloadError{Err: err, Payload: out}
		}
		return nil, err
	}
	return out, nil
}

// ---------- Account ----------

func (d *Dispatcher) listSSHKeys(ctx context.Context, _ mcp.Args) (any, error) {
	return d.client.ListSSHKeys(ctx)
}

func (d *Dispatcher) getAccount(ctx context.Context, _ mcp.Args) (any, error) {
	return d.client.GetAccount(ctx)
}

// ---------- Helpers ----------

func dropletID(op string, args mcp.Args) (int, error) {
	id, err := args.RequiredInt(op, "droplet_id")
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, domain.ValidationError(op, "argument \"droplet_id\" must be positive, got %d", id)
	}
	return id, nil
}

func dropletSpec(args mcp.Args) (domain.DropletSpec, error) {
	var (
		spec domain.DropletSpec
		err  error
	)
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"name", &spec.Name},
		{"region", &spec.Region},
		{"size", &spec.Size},
		{"image", &spec.Image},
	} {
		if *f.dst, err = args.RequiredString(CreateDroplet, f.key); err != nil {
			return spec, err
		}
	}
	if spec.SSHKeys, err = args.OptionalStringList(CreateDroplet, "ssh_keys"); err != nil {
		return spec, err
	}
	if spec.Tags, err = args.OptionalStringList(CreateDroplet, "tags"); err != nil {
		return spec, err
	}
	if spec.UserData, err = args.OptionalString(CreateDroplet, "user_data", ""); err != nil {
		return spec, err
	}
	if spec.Monitoring, err = args.OptionalBool(CreateDroplet, "monitoring", false); err != nil {
		return spec, err
	}
	if spec.IPv6, err = args.OptionalBool(CreateDroplet, "ipv6", false); err != nil {
		return spec, err
	}
	if spec.PrivateNetworking, err = args.OptionalBool(CreateDroplet, "private_networking", true); err != nil {
		return spec, err
	}
	return spec, nil
}

// maxSeconds is the longest span a time.Duration can hold.
const maxSeconds = float64(math.MaxInt64) / float64(time.Second)

func seconds(args mcp.Args, key string, def time.Duration) (time.Duration, error) {
	v, err := args.OptionalFloat(WaitForDroplet, key, def.Seconds())
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, domain.ValidationError(WaitForDroplet, "argument %q must be positive, got %v", key, v)
	}
	if v >= maxSeconds {
		return 0, domain.ValidationError(WaitForDroplet, "argument %q is too large, got %v", key, v)
	}
	d := time.Duration(v * float64(time.Second))
	if d <= 0 {
		return 0, domain.ValidationError(WaitForDroplet, "argument %q is below one nanosecond, got %v", key, v)
	}
	return d, nil
}

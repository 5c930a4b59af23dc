package doclient

import (
	"context"
	"time"

	"github.com/digitalocean/godo"

	"github.com/soyeahso/mcp-digitalocean/internal/domain"
)

// ListDroplets returns every droplet, or only those carrying tag when it
// is non-empty.
func (c *Client) ListDroplets(ctx context.Context, tag string) (out []domain.DropletState, err error) {
	const op = "list droplets"
	defer func(start time.Time) { c.trace(op, start, err) }(time.Now())

	droplets, err := paginate(ctx, op, func(ctx context.Context, opt *godo.ListOptions) ([]godo.Droplet, *godo.Response, error) {
		if tag != "" {
			return c.godo.Droplets.ListByTag(ctx, tag, opt)
		}
		return c.godo.Droplets.List(ctx, opt)
	})
	if err != nil {
		return nil, err
	}

	out = make([]domain.DropletState, 0, len(droplets))
	for i := range droplets {
		out = append(out, *toDropletState(&droplets[i]))
	}
	return out, nil
}

// GetDroplet fetches the current state of one droplet.
func (c *Client) GetDroplet(ctx context.Context, id int) (st *domain.DropletState, err error) {
	const op = "get droplet"
	if id <= 0 {
		return nil, domain.ValidationError(op, "droplet id must be a positive integer, got %d", id)
	}
	defer func(start time.Time) { c.trace(op, start, err) }(time.Now())

	d, resp, err := c.godo.Droplets.Get(ctx, id)
	if err != nil {
		return nil, classify(op, resp, err)
	}
	if d == nil {
		return nil, emptyBody(op, resp)
	}
	return toDropletState(d), nil
}

// CreateDroplet submits one create request and returns the droplet as the
// API reports it, normally with status "new". It never waits and is never
// retried.
func (c *Client) CreateDroplet(ctx context.Context, spec domain.DropletSpec) (st *domain.DropletState, err error) {
	const op = "create droplet"
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	defer func(start time.Time) { c.trace(op, start, err) }(time.Now())

	req := &godo.DropletCreateRequest{
		Name:              spec.Name,
		Region:            spec.Region,
		Size:              spec.Size,
		Image:             imageRef(spec.Image),
		SSHKeys:           sshKeyRefs(spec.SSHKeys),
		Tags:              spec.Tags,
		UserData:          spec.UserData,
		Monitoring:        spec.Monitoring,
		IPv6:              spec.IPv6,
		PrivateNetworking: spec.PrivateNetworking,
	}

	d, resp, err := c.godo.Droplets.Create(ctx, req)
	if err != nil {
		return nil, classify(op, resp, err)
	}
	if d == nil {
		return nil, emptyBody(op, resp)
	}

	c.log.Info().
		Int("droplet_id", d.ID).
		Str("name", d.Name).
		Str("status", d.Status).
		Msg("droplet created")
	return toDropletState(d), nil
}

// DeleteDroplet destroys a droplet. A missing droplet is a NotFound error.
func (c *Client) DeleteDroplet(ctx context.Context, id int) (err error) {
	const op = "delete droplet"
	if id <= 0 {
		return domain.ValidationError(op, "droplet id must be a positive integer, got %d", id)
	}
	defer func(start time.Time) { c.trace(op, start, err) }(time.Now())

	resp, err := c.godo.Droplets.Delete(ctx, id)
	if err != nil {
		return classify(op, resp, err)
	}
	c.log.Info().Int("droplet_id", id).Msg("droplet deleted")
	return nil
}

package doclient

import (
	"context"
	"time"

	"github.com/digitalocean/godo"
)

// ListRegions returns every region.
func (c *Client) ListRegions(ctx context.Context) (regions []godo.Region, err error) {
	const op = "list regions"
	defer func(start time.Time) { c.trace(op, start, err) }(time.Now())
	return paginate(ctx, op, c.godo.Regions.List)
}

// ListSizes returns every size plan, or only GPU plans when gpuOnly is set.
func (c *Client) ListSizes(ctx context.Context, gpuOnly bool) (sizes []godo.Size, err error) {
	const op = "list sizes"
	defer func(start time.Time) { c.trace(op, start, err) }(time.Now())

	sizes, err = paginate(ctx, op, c.godo.Sizes.List)
	if err != nil || !gpuOnly {
		return sizes, err
	}

	gpu := []godo.Size{}
	for _, s := range sizes {
		if IsGPUSize(s) {
			gpu = append(gpu, s)
		}
	}
	return gpu, nil
}

// ListSSHKeys returns the SSH keys registered on the account.
func (c *Client) ListSSHKeys(ctx context.Context) (keys []godo.Key, err error) {
	const op = "list ssh keys"
	defer func(start time.Time) { c.trace(op, start, err) }(time.Now())
	return paginate(ctx, op, c.godo.Keys.List)
}

// GetAccount returns the account the credential belongs to.
func (c *Client) GetAccount(ctx context.Context) (acct *godo.Account, err error) {
	const op = "get account"
	defer func(start time.Time) { c.trace(op, start, err) }(time.Now())

	acct, resp, err := c.godo.Account.Get(ctx)
	if err != nil {
		return nil, classify(op, resp, err)
	}
	if acct == nil {
		return nil, emptyBody(op, resp)
	}
	return acct, nil
}

package doclient

import (
	"context"
	"strings"
	"time"

	"github.com/digitalocean/godo"

	"github.com/soyeahso/mcp-digitalocean/internal/domain"
)

// Snapshot resource type filters.
const (
	SnapshotDroplet = "droplet"
	SnapshotVolume  = "volume"
)

// ListSnapshots returns snapshots, optionally restricted to droplet or
// volume snapshots.
func (c *Client) ListSnapshots(ctx context.Context, resourceType string) (out []domain.SnapshotInfo, err error) {
	const op = "list snapshots"

	var fetch pageFunc[godo.Snapshot]
	switch strings.ToLower(resourceType) {
	case "":
		fetch = c.godo.Snapshots.List
	case SnapshotDroplet:
		fetch = c.godo.Snapshots.ListDroplet
	case SnapshotVolume:
		fetch = c.godo.Snapshots.ListVolume
	default:
		return nil, domain.ValidationError(op, "resource type must be %q or %q, got %q",
			SnapshotDroplet, SnapshotVolume, resourceType)
	}
	defer func(start time.Time) { c.trace(op, start, err) }(time.Now())

	snaps, err := paginate(ctx, op, fetch)
	if err != nil {
		return nil, err
	}

	out = make([]domain.SnapshotInfo, 0, len(snaps))
	for i := range snaps {
		out = append(out, *toSnapshotInfo(&snaps[i]))
	}
	return out, nil
}

// GetSnapshot fetches one snapshot by ID.
func (c *Client) GetSnapshot(ctx context.Context, id string) (info *domain.SnapshotInfo, err error) {
	const op = "get snapshot"
	if strings.TrimSpace(id) == "" {
		return nil, domain.ValidationError(op, "snapshot id is empty")
	}
	defer func(start time.Time) { c.trace(op, start, err) }(time.Now())

	s, resp, err := c.godo.Snapshots.Get(ctx, id)
	if err != nil {
		return nil, classify(op, resp, err)
	}
	if s == nil {
		return nil, emptyBody(op, resp)
	}
	return toSnapshotInfo(s), nil
}

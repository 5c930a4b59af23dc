package doclient

import (
	"strconv"
	"strings"
	"time"

	"github.com/digitalocean/godo"

	"github.com/soyeahso/mcp-digitalocean/internal/domain"
)

func toDropletState(d *godo.Droplet) *domain.DropletState {
	if d == nil {
		return nil
	}
	st := &domain.DropletState{
		ID:       d.ID,
		Name:     d.Name,
		Status:   d.Status,
		Networks: []domain.NetworkInterface{},
		Size:     d.SizeSlug,
		Memory:   d.Memory,
		VCPUs:    d.Vcpus,
		Disk:     d.Disk,
		Tags:     d.Tags,
		Created:  parseTime(d.Created),
	}
	if d.Region != nil {
		st.Region = d.Region.Slug
	}
	if st.Size == "" && d.Size != nil {
		st.Size = d.Size.Slug
	}
	if d.Image != nil {
		st.Image = d.Image.Slug
		if st.Image == "" && d.Image.ID != 0 {
			st.Image = strconv.Itoa(d.Image.ID)
		}
	}
	if d.Networks != nil {
		for _, n := range d.Networks.V4 {
			st.Networks = append(st.Networks, domain.NetworkInterface{Type: n.Type, Address: n.IPAddress, Version: 4})
		}
		for _, n := range d.Networks.V6 {
			st.Networks = append(st.Networks, domain.NetworkInterface{Type: n.Type, Address: n.IPAddress, Version: 6})
		}
	}
	return st
}

func toSnapshotInfo(s *godo.Snapshot) *domain.SnapshotInfo {
	if s == nil {
		return nil
	}
	regions := s.Regions
	if regions == nil {
		regions = []string{}
	}
	return &domain.SnapshotInfo{
		ID:            s.ID,
		Name:          s.Name,
		Created:       parseTime(s.Created),
		Regions:       regions,
		MinDiskSize:   s.MinDiskSize,
		SizeGigaBytes: s.SizeGigaBytes,
		ResourceID:    s.ResourceID,
		ResourceType:  s.ResourceType,
	}
}

// parseTime accepts the API's RFC 3339 timestamps; anything else is zero.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// imageRef sends purely numeric references as image IDs and everything
// else as a slug.
func imageRef(s string) godo.DropletCreateImage {
	s = strings.TrimSpace(s)
	if id, err := strconv.Atoi(s); err == nil && id > 0 {
		return godo.DropletCreateImage{ID: id}
	}
	return godo.DropletCreateImage{Slug: s}
}

// sshKeyRefs treats numeric entries as key IDs and the rest as fingerprints.
func sshKeyRefs(keys []string) []godo.DropletCreateSSHKey {
	if len(keys) == 0 {
		return nil
	}
	out := make([]godo.DropletCreateSSHKey, 0, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if id, err := strconv.Atoi(key); err == nil {
			out = append(out, godo.DropletCreateSSHKey{ID: id})
		} else {
			out = append(out, godo.DropletCreateSSHKey{Fingerprint: key})
		}
	}
	return out
}

// IsGPUSize reports whether a size plan carries a GPU.
func IsGPUSize(s godo.Size) bool {
	return strings.Contains(strings.ToLower(s.Description), "gpu") ||
		strings.HasPrefix(s.Slug, "gpu-")
}

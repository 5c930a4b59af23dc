package domain

import (
	"strings"
	"time"
)

// Droplet status values reported by the API.
const (
	StatusNew     = "new"
	StatusActive  = "active"
	StatusOff     = "off"
	StatusArchive = "archive"
	StatusUnknown = "unknown"
)

// DropletSpec describes a droplet to create.
type DropletSpec struct {
	Name              string   `json:"name"`
	Region            string   `json:"region"`
	Size              string   `json:"size"`
	Image             string   `json:"image"` // numeric image ID, snapshot ID, or slug
	SSHKeys           []string `json:"ssh_keys,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	UserData          string   `json:"user_data,omitempty"`
	Monitoring        bool     `json:"monitoring"`
	IPv6              bool     `json:"ipv6"`
	PrivateNetworking bool     `json:"private_networking"`
}

// Validate checks that every mandatory field is present.
func (s DropletSpec) Validate() error {
	var missing []string
	if strings.TrimSpace(s.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(s.Region) == "" {
		missing = append(missing, "region")
	}
	if strings.TrimSpace(s.Size) == "" {
		missing = append(missing, "size")
	}
	if strings.TrimSpace(s.Image) == "" {
		missing = append(missing, "image")
	}
	if len(missing) > 0 {
		return &Error{
			Kind:    KindValidation,
			Op:      "validate droplet spec",
			Message: "missing required field(s): " + strings.Join(missing, ", "),
		}
	}
	return nil
}

// NetworkInterface is one address attached to a droplet.
type NetworkInterface struct {
	Type    string `json:"type"` // "public" | "private"
	Address string `json:"address"`
	Version int    `json:"version"` // 4 or 6
}

// DropletState is the observed state of a remote droplet.
type DropletState struct {
	ID       int                `json:"id"`
	Name     string             `json:"name"`
	Status   string             `json:"status"`
	Networks []NetworkInterface `json:"networks"`
	Region   string             `json:"region,omitempty"`
	Size     string             `json:"size,omitempty"`
	Image    string             `json:"image,omitempty"`
	Memory   int                `json:"memory,omitempty"`
	VCPUs    int                `json:"vcpus,omitempty"`
	Disk     int                `json:"disk,omitempty"`
	Tags     []string           `json:"tags,omitempty"`
	Created  time.Time          `json:"created,omitzero"`
}

// Ref returns the droplet's resource reference.
func (d *DropletState) Ref() ResourceRef { return DropletRef(d.ID) }

// StatusClass maps the raw status onto the known lifecycle values;
// anything unrecognized is StatusUnknown.
func (d *DropletState) StatusClass() string {
	switch d.Status {
	case StatusNew, StatusActive, StatusOff, StatusArchive:
		return d.Status
	default:
		return StatusUnknown
	}
}

// PublicIPv4 returns the first public IPv4 address, if any.
func (d *DropletState) PublicIPv4() string { return d.address("public", 4) }

// PrivateIPv4 returns the first private IPv4 address, if any.
func (d *DropletState) PrivateIPv4() string { return d.address("private", 4) }

func (d *DropletState) address(typ string, version int) string {
	for _, n := range d.Networks {
		if n.Type == typ && n.Version == version {
			return n.Address
		}
	}
	return ""
}

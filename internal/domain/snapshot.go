package domain

import "time"

// SnapshotInfo describes a droplet or volume snapshot. Read-only.
type SnapshotInfo struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Created       time.Time `json:"created,omitzero"`
	Regions       []string  `json:"regions"`
	MinDiskSize   int       `json:"min_disk_size"`
	SizeGigaBytes float64   `json:"size_gigabytes"`
	ResourceID    string    `json:"resource_id,omitempty"`
	ResourceType  string    `json:"resource_type,omitempty"`
}

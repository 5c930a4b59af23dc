package domain

import (
	"fmt"
	"strconv"
)

// ResourceKind names a remote resource type.
type ResourceKind string

const (
	KindDroplet  ResourceKind = "droplet"
	KindSnapshot ResourceKind = "snapshot"
	KindSize     ResourceKind = "size"
	KindRegion   ResourceKind = "region"
	KindSSHKey   ResourceKind = "ssh_key"
	KindAccount  ResourceKind = "account"
)

// ResourceRef identifies a remote resource. The ID is either a numeric ID or
// a slug and is passed through verbatim.
type ResourceRef struct {
	Kind ResourceKind `json:"kind"`
	ID   string       `json:"id"`
}

// DropletRef builds a reference to a droplet by numeric ID.
func DropletRef(id int) ResourceRef {
	return ResourceRef{Kind: KindDroplet, ID: strconv.Itoa(id)}
}

// IntID parses the identifier as a positive integer.
func (r ResourceRef) IntID() (int, error) {
	n, err := strconv.Atoi(r.ID)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s id %q is not a positive integer", r.Kind, r.ID)
	}
	return n, nil
}

// String returns "kind:id".
func (r ResourceRef) String() string {
	return string(r.Kind) + ":" + r.ID
}

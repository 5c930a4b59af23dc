package cli

import "github.com/digitalocean/godo"

func fakeSnapshot() godo.Snapshot {
	return godo.Snapshot{ID: "123456", Name: "gpu-base", ResourceType: "droplet", Regions: []string{"nyc1"}}
}

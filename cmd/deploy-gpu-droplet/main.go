// Command deploy-gpu-droplet creates a GPU droplet from a snapshot.
// It is equivalent to "domcp deploy".
package main

import (
	"os"

	"github.com/soyeahso/mcp-digitalocean/internal/cli"
)

func main() {
	if err := cli.Execute("deploy"); err != nil {
		os.Exit(1)
	}
}

// Command mcp-digitalocean serves the DigitalOcean MCP tools on stdin/stdout.
// It is equivalent to "domcp serve".
package main

import (
	"os"

	"github.com/soyeahso/mcp-digitalocean/internal/cli"
)

func main() {
	if err := cli.Execute("serve"); err != nil {
		os.Exit(1)
	}
}

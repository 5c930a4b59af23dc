package version

import (
	"fmt"
	"runtime"
)

// Set via ldflags at build time:
//
//	go build -ldflags "-X github.com/soyeahso/mcp-digitalocean/internal/version.Version=1.0.0
//	  -X github.com/soyeahso/mcp-digitalocean/internal/version.Commit=abc123
//	  -X github.com/soyeahso/mcp-digitalocean/internal/version.Date=2026-01-01"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Name is the program name reported to users and the API.
const Name = "domcp"

// Info returns a formatted version string.
func Info() string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s, %s/%s)",
		Name, Version, short(Commit), Date, runtime.GOOS, runtime.GOARCH)
}

// UserAgent is sent with every DigitalOcean API request.
func UserAgent() string {
	return fmt.Sprintf("%s/%s (+%s)", Name, Version, short(Commit))
}

func short(s string) string {
	if len(s) > 7 {
		return s[:7]
	}
	return s
}

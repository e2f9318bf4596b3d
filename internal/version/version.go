// Package version provides build-time version information for the psodraw
// tools.
package version

import "fmt"

// Set at build time with -ldflags "-X psoriasis-draw/internal/version.GitCommit=..."
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the build information for a tool name, e.g.
// "psodraw 0.1.0 (commit abc123, built 2026-01-02)".
func String(tool string) string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", tool, Version, GitCommit, BuildTime)
}

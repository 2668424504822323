// cargo-resolvediff resolves a Cargo workspace's full dependency graph
// across one or more target platforms, diffs two such resolutions, and
// applies major-version updates back to manifests while preserving
// their formatting.
//
// Usage:
//
//	cargo-resolvediff resolve     Resolve the workspace's dependency graph
//	cargo-resolvediff diff        Diff two resolved snapshots
//	cargo-resolvediff update      Find and apply major-version updates
//	cargo-resolvediff --version   Show version information
package main

import (
	"fmt"
	"os"

	"github.com/GiGainfosystems/cargo-resolvediff/cmd/resolvediff/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

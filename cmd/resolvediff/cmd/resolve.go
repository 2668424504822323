// Copyright (c) 2024 santosr2
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	resolveOut             string
	resolveFormat          string
	resolveIncludeFiltered bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve the workspace's dependency graph",
	Long: `Resolve the full dependency graph of a Cargo workspace for one or
more target platforms, via cargo metadata, recording why each crate
version is reachable from the workspace's default members.`,
	Example: `  # Resolve the platform-independent view
  cargo-resolvediff resolve

  # Resolve for two explicit target triples
  cargo-resolvediff resolve --platform x86_64-unknown-linux-gnu --platform x86_64-pc-windows-msvc

  # Resolve strictly against the configured platforms, reporting what an
  # unfiltered resolution would additionally reach as Filtered
  cargo-resolvediff resolve --include-filtered`,
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringVarP(&resolveOut, "out", "o", "", "write the resolved snapshot to this JSON file")
	resolveCmd.Flags().StringVarP(&resolveFormat, "format", "f", "table", "output format: table, json")
	resolveCmd.Flags().BoolVar(&resolveIncludeFiltered, "include-filtered", false, "filter-to-platforms mode: report what an unfiltered resolution would additionally reach as Filtered, instead of merging it into Included")
}

func runResolve(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg := loadConfigIfPresent(logger)

	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	orch := buildOrchestrator(logger)
	ctx := context.Background()

	includeFiltered := resolveIncludeFiltered || cfg.IncludeFiltered
	resolved, err := orch.ResolveAll(ctx, dir, platforms(cfg), includeFiltered)
	if err != nil {
		return fmt.Errorf("resolve workspace: %w", err)
	}

	if resolveOut != "" {
		if err := writeSnapshot(resolveOut, resolved); err != nil {
			return err
		}
		fmt.Printf("Snapshot written to %s\n", resolveOut)
	}

	switch resolveFormat {
	case "json":
		return printJSON(snapshot{Included: toSnapshotVersions(resolved.Included), Filtered: toSnapshotVersions(resolved.Filtered)})
	case "table":
		return printResolvedTable(resolved)
	default:
		return fmt.Errorf("unsupported format: %s", resolveFormat)
	}
}

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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GiGainfosystems/cargo-resolvediff/internal/diff"
)

var diffFormat string

var diffCmd = &cobra.Command{
	Use:   "diff <old-snapshot.json> <new-snapshot.json>",
	Short: "Compare two resolved snapshots",
	Long: `Compare two dependency-graph snapshots previously written by
"resolve --out", reporting crates added, removed, or changed between
them.`,
	Example: `  cargo-resolvediff resolve --out before.json
  # ... make manifest changes ...
  cargo-resolvediff resolve --out after.json
  cargo-resolvediff diff before.json after.json`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().StringVarP(&diffFormat, "format", "f", "table", "output format: table, json")
}

func runDiff(cmd *cobra.Command, args []string) error {
	oldResolved, err := readSnapshot(args[0])
	if err != nil {
		return err
	}
	newResolved, err := readSnapshot(args[1])
	if err != nil {
		return err
	}

	d := diff.Between(oldResolved, newResolved)

	switch diffFormat {
	case "json":
		if err := printJSON(d); err != nil {
			return err
		}
	case "table":
		if err := printDiffTable(d); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format: %s", diffFormat)
	}

	if requiresReview(d) {
		os.Exit(1)
	}
	return nil
}

// requiresReview reports whether d contains anything a human should
// look at before merging. diff.Between already suppresses Changed
// entries that amount to no real difference, so a plain non-emptiness
// check is enough here.
func requiresReview(d diff.Diff) bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Changed) > 0
}

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
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/GiGainfosystems/cargo-resolvediff/internal/diff"
	"github.com/GiGainfosystems/cargo-resolvediff/internal/graph"
)

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func printResolvedTable(resolved *graph.Resolved) error {
	names := resolved.Included.Names()
	if len(names) == 0 {
		fmt.Println("No crates resolved.")
		return nil
	}

	fmt.Printf("%-40s %-12s %-10s %-10s\n", "Crate", "Version", "Build", "Debug-only")
	fmt.Println(strings.Repeat("-", 78))
	for _, name := range names {
		for _, v := range resolved.Included.Versions(name) {
			entry, _ := resolved.Included.Get(name, v)
			fmt.Printf("%-40s %-12s %-10v %-10v\n", name, v.Original(), entry.Kind.RunAtBuild, entry.Kind.OnlyDebugBuild)
		}
	}
	fmt.Printf("\nTotal: %d crates\n", len(names))

	if filteredNames := resolved.Filtered.Names(); len(filteredNames) > 0 {
		fmt.Printf("\nReachable only on other platforms: %d crates\n", len(filteredNames))
	}

	return nil
}

func printDiffTable(d diff.Diff) error {
	if len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0 &&
		len(d.FilteredAdded) == 0 && len(d.FilteredRemoved) == 0 {
		fmt.Println("No changes.")
		return nil
	}

	if len(d.Added) > 0 {
		fmt.Println("Added:")
		for _, a := range d.Added {
			fmt.Printf("  + %s %s\n", a.Name, a.Version.Original())
		}
	}

	if len(d.Removed) > 0 {
		fmt.Println("\nRemoved:")
		for _, r := range d.Removed {
			fmt.Printf("  - %s %s\n", r.Name, r.Version.Original())
		}
	}

	if len(d.Changed) > 0 {
		fmt.Println("\nChanged:")
		for _, c := range d.Changed {
			marker := ""
			if c.ClosestOldVersion != nil {
				marker = fmt.Sprintf(" (closest old: %s)", c.ClosestOldVersion.Original())
			}
			fmt.Printf("  ~ %s %s%s\n", c.Name, c.Version.Original(), marker)
			for _, p := range c.AddedInPlatforms {
				fmt.Printf("      + platform %s\n", p.Platform)
			}
			if len(c.AddedInBuild) > 0 {
				fmt.Println("      + now runs at build time")
			}
			if len(c.AddedInNonDebug) > 0 {
				fmt.Println("      + no longer restricted to debug builds")
			}
		}
	}

	if len(d.FilteredAdded) > 0 || len(d.FilteredRemoved) > 0 {
		fmt.Println("\nFiltered-set changes (reachable beyond the configured platforms):")
		for _, a := range d.FilteredAdded {
			fmt.Printf("  + %s %s\n", a.Name, a.Version.Original())
		}
		for _, r := range d.FilteredRemoved {
			fmt.Printf("  - %s %s\n", r.Name, r.Version.Original())
		}
	}

	return nil
}

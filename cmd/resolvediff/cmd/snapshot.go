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

	"github.com/Masterminds/semver/v3"

	"github.com/GiGainfosystems/cargo-resolvediff/internal/graph"
)

// snapshotVersion is one resolved crate version as persisted to a
// snapshot file, a flat encoding of graph.IncludedDependencyVersion
// that survives a JSON round-trip without needing a custom
// (Un)marshalJSON on the graph types themselves.
type snapshotVersion struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	RunAtBuild  bool     `json:"run_at_build"`
	DebugOnly   bool     `json:"debug_only"`
	HasBuildRS  bool     `json:"has_build_script"`
	IsProcMacro bool     `json:"is_proc_macro"`
	Platforms   []string `json:"platforms"`
}

type snapshot struct {
	Included []snapshotVersion `json:"included"`
	Filtered []snapshotVersion `json:"filtered"`
}

func toSnapshotVersions(inc *graph.Included) []snapshotVersion {
	var out []snapshotVersion
	for _, ident := range inc.AllVersions() {
		entry, _ := inc.Get(ident.Name, ident.Version)
		plats := make([]string, 0, len(entry.SortedPlatforms()))
		for _, p := range entry.SortedPlatforms() {
			plats = append(plats, string(p))
		}
		out = append(out, snapshotVersion{
			Name:        ident.Name,
			Version:     ident.Version.Original(),
			RunAtBuild:  entry.Kind.RunAtBuild,
			DebugOnly:   entry.Kind.OnlyDebugBuild,
			HasBuildRS:  entry.HasBuildRS,
			IsProcMacro: entry.IsProcMacro,
			Platforms:   plats,
		})
	}
	return out
}

func writeSnapshot(path string, resolved *graph.Resolved) error {
	snap := snapshot{
		Included: toSnapshotVersions(resolved.Included),
		Filtered: toSnapshotVersions(resolved.Filtered),
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return nil
}

func readSnapshot(path string) (*graph.Resolved, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}

	included, err := fromSnapshotVersions(snap.Included)
	if err != nil {
		return nil, err
	}
	filtered, err := fromSnapshotVersions(snap.Filtered)
	if err != nil {
		return nil, err
	}

	return &graph.Resolved{Included: included, Filtered: filtered}, nil
}

func fromSnapshotVersions(versions []snapshotVersion) (*graph.Included, error) {
	inc := graph.NewIncluded()
	for _, sv := range versions {
		v, err := semver.NewVersion(sv.Version)
		if err != nil {
			return nil, fmt.Errorf("parse version %q for %s: %w", sv.Version, sv.Name, err)
		}
		entry := inc.Insert(sv.Name, v)
		entry.Kind.RunAtBuild = sv.RunAtBuild
		entry.Kind.OnlyDebugBuild = sv.DebugOnly
		entry.HasBuildRS = sv.HasBuildRS
		entry.IsProcMacro = sv.IsProcMacro
		for _, p := range sv.Platforms {
			entry.Platforms[graph.Platform(p)] = struct{}{}
		}
	}
	return inc, nil
}

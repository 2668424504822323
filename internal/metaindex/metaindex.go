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

// Package metaindex gathers and indexes package-manager metadata for a
// single platform, the input the graph walker traverses.
package metaindex

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/GiGainfosystems/cargo-resolvediff/internal/graph"
)

// PackageKind classifies a single package entry in raw metadata.
type PackageKind int

const (
	// KindNormal is an ordinary registry or path dependency.
	KindNormal PackageKind = iota
	// KindWorkspaceMember is a package defined by the workspace itself.
	KindWorkspaceMember
)

// RawPackage is one package entry as reported by the package manager,
// decoded directly from its metadata JSON. HasBuildRS and IsProcMacro
// are not present on the wire; Gather derives them from Targets via
// classifyTargets once decoding completes.
type RawPackage struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Source       string          `json:"source"`
	ManifestPath string          `json:"manifest_path"`
	Targets      []RawTarget     `json:"targets"`
	HasBuildRS   bool            `json:"-"`
	IsProcMacro  bool            `json:"-"`
	Dependencies []RawDependency `json:"dependencies"`
}

// RawTarget is one build target of a package (a lib, bin, build
// script, proc-macro crate, test, example, or bench), as reported by
// the package manager. A target may carry more than one kind (e.g. a
// combined "lib"+"proc-macro" crate-type list).
type RawTarget struct {
	Kind []string `json:"kind"`
}

// knownTargetKinds are the target kinds §4.2 assigns meaning to ("other
// target kinds are ignored for classification"); anything outside this
// set is an unrecognized shape the metadata index cannot classify and
// is therefore fatal, per §4.2's "an unknown kind is fatal" and §7's
// unknown-enum taxonomy entry.
var knownTargetKinds = map[string]bool{
	"lib":          true,
	"rlib":         true,
	"dylib":        true,
	"cdylib":       true,
	"staticlib":    true,
	"proc-macro":   true,
	"bin":          true,
	"test":         true,
	"example":      true,
	"bench":        true,
	"custom-build": true,
}

// classifyTargets implements §4.2's per-package target classification:
// has_build_rs iff any target is a custom-build target, is_proc_macro
// iff any target is a procedural-macro target. An unrecognized target
// kind is fatal.
func classifyTargets(pkgName string, targets []RawTarget) (hasBuildRS, isProcMacro bool, err error) {
	for _, t := range targets {
		for _, kind := range t.Kind {
			if !knownTargetKinds[kind] {
				return false, false, fmt.Errorf("package %q: unrecognized target kind %q", pkgName, kind)
			}
			switch kind {
			case "custom-build":
				hasBuildRS = true
			case "proc-macro":
				isProcMacro = true
			}
		}
	}
	return hasBuildRS, isProcMacro, nil
}

// RawDependency is one dependency edge as reported by the package
// manager.
type RawDependency struct {
	Name   string `json:"name"`
	ID     string `json:"id"`
	Kind   string `json:"kind"` // "normal", "dev", "build"
	Target string `json:"target,omitempty"`
	Optional bool `json:"optional"`
}

// RawMetadata is the decoded form of the package manager's metadata
// output for a single platform invocation.
type RawMetadata struct {
	Packages               []RawPackage `json:"packages"`
	WorkspaceRoot           string       `json:"workspace_root"`
	WorkspaceMembers        []string     `json:"workspace_members"`
	WorkspaceDefaultMembers []string     `json:"workspace_default_members"`
}

// IndexedMetadata is RawMetadata indexed by package ID for O(1) lookup
// during the graph walk, for a single Platform.
type IndexedMetadata struct {
	Platform                graph.Platform
	Packages                map[string]*RawPackage
	WorkspaceRoot           string
	WorkspaceMembers        []string
	WorkspaceDefaultMembers []string
}

// Gatherer is the external collaborator boundary: anything that can
// produce package-manager metadata for a platform. internal/pkgmanager
// provides the concrete subprocess-backed implementation.
type Gatherer interface {
	Metadata(ctx context.Context, dir string, platform graph.Platform) ([]byte, error)
}

// Gather invokes g to fetch raw metadata for platform and indexes it by
// package ID.
func Gather(ctx context.Context, g Gatherer, dir string, platform graph.Platform) (*IndexedMetadata, error) {
	raw, err := g.Metadata(ctx, dir, platform)
	if err != nil {
		return nil, fmt.Errorf("gather metadata for platform %q: %w", platform, err)
	}

	var decoded RawMetadata
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("parse metadata for platform %q: %w", platform, err)
	}

	idx := &IndexedMetadata{
		Platform:                platform,
		Packages:                make(map[string]*RawPackage, len(decoded.Packages)),
		WorkspaceRoot:           decoded.WorkspaceRoot,
		WorkspaceMembers:        decoded.WorkspaceMembers,
		WorkspaceDefaultMembers: decoded.WorkspaceDefaultMembers,
	}

	for i := range decoded.Packages {
		p := &decoded.Packages[i]
		hasBuildRS, isProcMacro, err := classifyTargets(p.Name, p.Targets)
		if err != nil {
			return nil, fmt.Errorf("platform %q: %w", platform, err)
		}
		p.HasBuildRS = hasBuildRS
		p.IsProcMacro = isProcMacro
		idx.Packages[p.ID] = p
	}

	return idx, nil
}

// GetWorkspaceDefaultMembers returns the configured default members, or
// falls back to the full member list if none were explicitly
// configured — mirroring the fallback original_source/src/indexed.rs
// applies for workspaces without `default-members`.
func (m *IndexedMetadata) GetWorkspaceDefaultMembers() []string {
	if len(m.WorkspaceDefaultMembers) > 0 {
		return m.WorkspaceDefaultMembers
	}
	return m.WorkspaceMembers
}

// MemberManifestPaths returns the manifest path of every workspace
// member, excluding the workspace root manifest itself when the
// workspace is really just a single crate (mirroring the original's
// ManifestSet::collect special case for a non-virtual, single-crate
// workspace where the lone "member" manifest IS the root manifest).
func (m *IndexedMetadata) MemberManifestPaths() []string {
	workspaceManifest := m.WorkspaceRoot + "/Cargo.toml"

	var paths []string
	for _, id := range m.WorkspaceMembers {
		pkg, ok := m.Packages[id]
		if !ok {
			continue
		}
		paths = append(paths, pkg.ManifestPath)
	}

	if len(paths) == 1 && paths[0] == workspaceManifest {
		return nil
	}
	return paths
}

// PackageByID looks up a package by its package-manager-assigned ID.
func (m *IndexedMetadata) PackageByID(id string) (*RawPackage, bool) {
	p, ok := m.Packages[id]
	return p, ok
}

// ParseVersion is a small helper shared by callers that need a
// *semver.Version from a RawPackage's version string.
func ParseVersion(s string) (*semver.Version, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("parse package version %q: %w", s, err)
	}
	return v, nil
}

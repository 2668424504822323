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

// Package graph resolves a workspace's full dependency graph from package
// manager metadata, tracking per-platform inclusion reasons for every
// resolved crate version.
package graph

import (
	"sort"

	"github.com/Masterminds/semver/v3"
)

// Platform is a target triple (e.g. "x86_64-unknown-linux-gnu") or the
// empty string for the platform-independent resolution.
type Platform string

// AnyCrateIdent names a crate without pinning it to a version. Local
// identifies a workspace member by its manifest-relative path; CratesIO
// identifies a registry package by name.
type AnyCrateIdent struct {
	Local    string
	CratesIO string
}

// IsLocal reports whether this identifies a workspace member.
func (a AnyCrateIdent) IsLocal() bool { return a.Local != "" }

// SpecificCrateIdent names a crate at a specific resolved version.
type SpecificCrateIdent struct {
	Name    string
	Version *semver.Version
}

// SpecificAnyCrateIdent pairs a specific crate identity with the
// AnyCrateIdent it was reached through, preserving whether the edge
// originated from a local workspace member or a registry dependency.
type SpecificAnyCrateIdent struct {
	Ident SpecificCrateIdent
	Any   AnyCrateIdent
}

// DependencyKind classifies how a dependency edge was declared: at what
// build phase it is required, and whether it is restricted to debug
// builds only. The zero value is the normal, always-built dependency
// kind.
type DependencyKind struct {
	RunAtBuild     bool
	OnlyDebugBuild bool
}

// Normal dependencies are required for every build of every profile.
var Normal = DependencyKind{}

// Development dependencies are only required for test/bench/example
// builds, i.e. debug builds in the sense used by this graph.
var Development = DependencyKind{OnlyDebugBuild: true}

// Build dependencies are required to run a package's build script and
// are never linked into the final artifact directly.
var Build = DependencyKind{RunAtBuild: true}

// Then composes this edge's kind with the kind of the edge that follows
// it one hop further from the workspace root. A build-time or
// debug-only restriction on either edge propagates to the composed
// edge, since the weaker requirement of the two dominates reachability.
func (k DependencyKind) Then(next DependencyKind) DependencyKind {
	return DependencyKind{
		RunAtBuild:     k.RunAtBuild || next.RunAtBuild,
		OnlyDebugBuild: k.OnlyDebugBuild || next.OnlyDebugBuild,
	}
}

// MergedWith combines two kinds that both describe a way of reaching
// the same crate version: run_at_build is contagious across reach
// paths (true if either path sets it, since the crate genuinely runs
// at build time on at least one of them), while only_debug_builds is
// recessive (true only if every path to it is debug-only).
func (k DependencyKind) MergedWith(other DependencyKind) DependencyKind {
	return DependencyKind{
		RunAtBuild:     k.RunAtBuild || other.RunAtBuild,
		OnlyDebugBuild: k.OnlyDebugBuild && other.OnlyDebugBuild,
	}
}

// Less orders kinds for use as a map key component: normal < debug-only
// < build < both.
func (k DependencyKind) Less(other DependencyKind) bool {
	if k.RunAtBuild != other.RunAtBuild {
		return !k.RunAtBuild
	}
	return !k.OnlyDebugBuild && other.OnlyDebugBuild
}

// IncludedDependencyReason records one concrete path by which a crate
// version was reached from a workspace root.
type IncludedDependencyReason struct {
	Kind DependencyKind
	// Root is the workspace member this reach-path originates from.
	Root string
	// IntermediateRootDependency is the name of the root's direct
	// dependency that this path descends through, or "" if the
	// included crate IS that direct dependency.
	IntermediateRootDependency string
	// Parent is the immediate parent crate of the included version
	// along this path; for a direct dependency of the root it is the
	// root's own name.
	Parent string
}

// Less gives IncludedDependencyReason a total, deterministic order so
// it can be used as the key of an ordered Reasons map.
func (r IncludedDependencyReason) Less(o IncludedDependencyReason) bool {
	if r.Root != o.Root {
		return r.Root < o.Root
	}
	if r.IntermediateRootDependency != o.IntermediateRootDependency {
		return r.IntermediateRootDependency < o.IntermediateRootDependency
	}
	if r.Parent != o.Parent {
		return r.Parent < o.Parent
	}
	return r.Kind.Less(o.Kind)
}

// Reasons maps each distinct reach-path for a crate version to the set
// of platforms on which that path is live, kept sorted by
// IncludedDependencyReason for deterministic iteration and diffing.
type Reasons struct {
	entries []reasonEntry
}

type reasonEntry struct {
	reason    IncludedDependencyReason
	platforms map[Platform]struct{}
}

// NewReasons returns an empty Reasons set.
func NewReasons() *Reasons { return &Reasons{} }

func (r *Reasons) find(reason IncludedDependencyReason) (int, bool) {
	for i, e := range r.entries {
		if e.reason == reason {
			return i, true
		}
	}
	return -1, false
}

// Insert records that reason is live on platform, creating the entry
// if this is the first time reason has been observed. It reports
// whether this is a genuinely new (reason, platform) pair, which the
// graph walker uses to decide whether re-enqueuing a crate's
// dependencies is necessary.
func (r *Reasons) Insert(reason IncludedDependencyReason, platform Platform) bool {
	idx, ok := r.find(reason)
	if !ok {
		r.entries = append(r.entries, reasonEntry{reason: reason, platforms: map[Platform]struct{}{platform: {}}})
		sort.Slice(r.entries, func(i, j int) bool { return r.entries[i].reason.Less(r.entries[j].reason) })
		return true
	}
	if _, exists := r.entries[idx].platforms[platform]; exists {
		return false
	}
	r.entries[idx].platforms[platform] = struct{}{}
	return true
}

// InsertUnfiltered records that reason was observed during a
// platform-independent (unfiltered) walk, without attributing it to any
// specific platform. Per spec, reasons discovered this way carry an
// empty platform set rather than a singleton set containing the empty
// platform string. It reports whether reason is genuinely new, the
// signal the graph walker uses to decide whether to re-enqueue.
func (r *Reasons) InsertUnfiltered(reason IncludedDependencyReason) bool {
	if _, ok := r.find(reason); ok {
		return false
	}
	r.entries = append(r.entries, reasonEntry{reason: reason, platforms: map[Platform]struct{}{}})
	sort.Slice(r.entries, func(i, j int) bool { return r.entries[i].reason.Less(r.entries[j].reason) })
	return true
}

// Entries returns the (reason, platforms) pairs in deterministic order.
func (r *Reasons) Entries() [](struct {
	Reason    IncludedDependencyReason
	Platforms []Platform
}) {
	out := make([](struct {
		Reason    IncludedDependencyReason
		Platforms []Platform
	}), 0, len(r.entries))
	for _, e := range r.entries {
		plats := make([]Platform, 0, len(e.platforms))
		for p := range e.platforms {
			plats = append(plats, p)
		}
		sort.Slice(plats, func(i, j int) bool { return plats[i] < plats[j] })
		out = append(out, struct {
			Reason    IncludedDependencyReason
			Platforms []Platform
		}{Reason: e.reason, Platforms: plats})
	}
	return out
}

// Len returns the number of distinct reach-paths recorded.
func (r *Reasons) Len() int { return len(r.entries) }

// IncludedDependencyVersion is everything known about one resolved
// version of one crate: how it is reachable, whether it runs a build
// script, whether it is a proc-macro, and on which platforms it
// applies.
type IncludedDependencyVersion struct {
	// Kind is the merge (via DependencyKind.MergedWith) of every
	// reach-path's composed kind.
	Kind         DependencyKind
	HasBuildRS   bool
	IsProcMacro  bool
	Reasons      *Reasons
	Platforms    map[Platform]struct{}
}

func newIncludedDependencyVersion() *IncludedDependencyVersion {
	return &IncludedDependencyVersion{
		Kind:      DependencyKind{RunAtBuild: false, OnlyDebugBuild: true}, // identity: false ORs away, true ANDs away
		Reasons:   NewReasons(),
		Platforms: map[Platform]struct{}{},
	}
}

// SortedPlatforms returns the platform set in deterministic order.
func (v *IncludedDependencyVersion) SortedPlatforms() []Platform {
	out := make([]Platform, 0, len(v.Platforms))
	for p := range v.Platforms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Included maps crate name -> version -> resolved inclusion data. Both
// levels are kept lexicographically/semver ordered so that iterating an
// Included value is deterministic and diff-stable.
type Included struct {
	names map[string]*versionMap
	order []string
}

type versionMap struct {
	versions map[string]*IncludedDependencyVersion // keyed by version.Original()
	order    []*semver.Version
}

// NewIncluded returns an empty Included set.
func NewIncluded() *Included {
	return &Included{names: map[string]*versionMap{}}
}

// getOrCreate returns the IncludedDependencyVersion for (name, version),
// creating both levels of the map as needed, and reports whether it was
// newly created.
func (inc *Included) getOrCreate(name string, version *semver.Version) (*IncludedDependencyVersion, bool) {
	vm, ok := inc.names[name]
	if !ok {
		vm = &versionMap{versions: map[string]*IncludedDependencyVersion{}}
		inc.names[name] = vm
		inc.order = append(inc.order, name)
		sort.Strings(inc.order)
	}
	key := version.Original()
	v, ok := vm.versions[key]
	if !ok {
		v = newIncludedDependencyVersion()
		vm.versions[key] = v
		vm.order = append(vm.order, version)
		sort.Sort(bySemver(vm.order))
		return v, true
	}
	return v, false
}

// Insert returns the IncludedDependencyVersion for (name, version),
// creating it if necessary. Unlike getOrCreate it is exported for
// callers outside the package that reconstruct an Included set from a
// persisted form (a snapshot file, for example) rather than by walking
// a live dependency graph.
func (inc *Included) Insert(name string, version *semver.Version) *IncludedDependencyVersion {
	v, _ := inc.getOrCreate(name, version)
	return v
}

// Get returns the IncludedDependencyVersion for (name, version), if any.
func (inc *Included) Get(name string, version *semver.Version) (*IncludedDependencyVersion, bool) {
	vm, ok := inc.names[name]
	if !ok {
		return nil, false
	}
	v, ok := vm.versions[version.Original()]
	return v, ok
}

// Names returns all crate names present, in sorted order.
func (inc *Included) Names() []string {
	out := append([]string(nil), inc.order...)
	return out
}

// Versions returns all resolved versions of a crate, in ascending
// semver order.
func (inc *Included) Versions(name string) []*semver.Version {
	vm, ok := inc.names[name]
	if !ok {
		return nil
	}
	out := append([]*semver.Version(nil), vm.order...)
	return out
}

// AllVersions returns every (name, version) pair in the set, in
// deterministic (name, version) order — the natural iteration order of
// the conceptual BTreeMap<String, BTreeMap<Version, _>> this mirrors.
func (inc *Included) AllVersions() []SpecificCrateIdent {
	var out []SpecificCrateIdent
	for _, name := range inc.Names() {
		for _, v := range inc.Versions(name) {
			out = append(out, SpecificCrateIdent{Name: name, Version: v})
		}
	}
	return out
}

type bySemver []*semver.Version

func (s bySemver) Len() int           { return len(s) }
func (s bySemver) Less(i, j int) bool { return s[i].LessThan(s[j]) }
func (s bySemver) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

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

package graph

import (
	"fmt"

	"github.com/GiGainfosystems/cargo-resolvediff/internal/metaindex"
)

// Resolved is the full result of resolving a workspace's dependency
// graph, possibly across several platforms merged together: the last
// metadata run the walk was computed from, every crate version reached
// (and why), and — in filter-to-platforms mode only — the registry
// versions an unfiltered resolution would additionally have reached.
type Resolved struct {
	Metadata *metaindex.IndexedMetadata
	Included *Included
	Filtered *Included
}

// todoFrom records where a to-do entry's edge originates: either a
// workspace member (the graph root) or another already-included crate.
type todoFrom int

const (
	fromWorkspace todoFrom = iota
	fromDependency
)

type todo struct {
	from       todoFrom
	packageID  string
	kind       DependencyKind
	root       string
	parent     string
	intermRoot string
}

// walk traverses meta's dependency graph starting from the workspace's
// default members (the only seed the spec defines; non-default members
// never seed a walk). recordPlatform controls whether meta.Platform is
// attributed to the reasons and versions discovered: true for a
// platform-filtered metadata run, false for an unfiltered
// (platform-independent) run, whose reach-paths are recorded with an
// empty platform set rather than being attributed to any platform.
func walk(meta *metaindex.IndexedMetadata, recordPlatform bool) (*Included, error) {
	included := NewIncluded()

	memberIDs := meta.GetWorkspaceDefaultMembers()

	var queue []todo
	for _, id := range memberIDs {
		pkg, ok := meta.PackageByID(id)
		if !ok {
			return nil, fmt.Errorf("workspace member %q not present in metadata", id)
		}
		for _, dep := range pkg.Dependencies {
			queue = append(queue, todo{
				from:      fromWorkspace,
				packageID: dep.ID,
				kind:      depKind(dep),
				root:      pkg.Name,
				parent:    pkg.Name,
			})
		}
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		pkg, ok := meta.PackageByID(item.packageID)
		if !ok {
			// Dependency resolved to a package outside the metadata
			// (e.g. filtered by platform by the package manager
			// itself); nothing further to walk.
			continue
		}

		version, err := metaindex.ParseVersion(pkg.Version)
		if err != nil {
			return nil, err
		}

		// A procedural macro always runs at build time regardless of
		// how it was reached, so the edge's kind is forced here before
		// it is recorded or propagated to children.
		packageKind := item.kind
		if pkg.IsProcMacro {
			packageKind.RunAtBuild = true
		}

		// Registry packages only are recorded in Included (§4.2); a
		// local package (an empty Source, meaning a workspace member
		// or a path dependency) is attributed through but never itself
		// a reportable node. Its outgoing edges are still explored
		// unconditionally below, so registry packages reachable only
		// through a chain of local crates are still attributed back to
		// the right root and intermediate dependency.
		isLocal := pkg.Source == ""

		if !isLocal {
			reason := IncludedDependencyReason{
				Kind:                       packageKind,
				Root:                       item.root,
				IntermediateRootDependency: item.intermRoot,
				Parent:                     item.parent,
			}

			entry, created := included.getOrCreate(pkg.Name, version)
			var wasNovel bool
			if recordPlatform {
				wasNovel = entry.Reasons.Insert(reason, meta.Platform)
				entry.Platforms[meta.Platform] = struct{}{}
			} else {
				wasNovel = entry.Reasons.InsertUnfiltered(reason)
			}
			if created {
				entry.HasBuildRS = pkg.HasBuildRS
				entry.IsProcMacro = pkg.IsProcMacro
			}
			entry.Kind = entry.Kind.MergedWith(packageKind)

			// Re-enqueue this package's own dependencies only the
			// first time a genuinely new reach-path is discovered for
			// it; once every platform/reason combination has been
			// seen, walking further from here would only rediscover
			// already-recorded edges. This keeps the walk terminating:
			// the lattice of (reason, platform) pairs recorded on each
			// node only grows, and is bounded by (#roots * #packages *
			// #platforms). A local package has no such lattice (it is
			// never recorded), so its edges are always explored below.
			if !wasNovel {
				continue
			}
		}

		intermRoot := item.intermRoot
		if item.from == fromWorkspace {
			intermRoot = pkg.Name
		}

		for _, dep := range pkg.Dependencies {
			if !edgeAdmissible(dep) {
				continue
			}
			queue = append(queue, todo{
				from:       fromDependency,
				packageID:  dep.ID,
				kind:       packageKind.Then(depKind(dep)),
				root:       item.root,
				parent:     pkg.Name,
				intermRoot: intermRoot,
			})
		}
	}

	return included, nil
}

// edgeAdmissible filters out edges that cannot contribute to the final
// build. A development (test/bench) dependency is only ever meaningful
// as a direct edge from a workspace root (seeded straight into the
// queue above, bypassing this filter entirely): by the time an edge is
// reached here, the package declaring it is itself some other crate's
// dependency rather than a workspace root, and no package manager
// builds that crate's dev-dependencies on the root's behalf.
func edgeAdmissible(dep metaindex.RawDependency) bool {
	return dep.Kind != "dev"
}

func depKind(dep metaindex.RawDependency) DependencyKind {
	switch dep.Kind {
	case "build":
		return Build
	case "dev":
		return Development
	default:
		return Normal
	}
}

// ResolveFromIndexed walks a single metadata run — platform-filtered or
// platform-independent, whichever meta was gathered as — from the
// workspace's default members. Filtered is always empty; only the
// Resolution Orchestrator's filter-to-platforms mode populates it, by
// comparing the merge of several such single-run walks against an
// unfiltered one (see FilteredSet).
func ResolveFromIndexed(meta *metaindex.IndexedMetadata) (*Resolved, error) {
	included, err := walk(meta, true)
	if err != nil {
		return nil, err
	}
	return &Resolved{Metadata: meta, Included: included, Filtered: NewIncluded()}, nil
}

// FilteredSet walks unfiltered metadata (gathered with no platform
// filter) and returns the registry (name, version) pairs it reaches
// that are absent from included, the set the Resolution Orchestrator
// exposes as Resolved.Filtered in filter-to-platforms mode. The
// unfiltered walk itself never attributes reach-paths to a platform:
// its reasons carry empty platform sets, matching a run that was not
// constrained to any specific target.
func FilteredSet(unfiltered *metaindex.IndexedMetadata, included *Included) (*Included, error) {
	all, err := walk(unfiltered, false)
	if err != nil {
		return nil, err
	}

	filtered := NewIncluded()
	for _, ident := range all.AllVersions() {
		if _, ok := included.Get(ident.Name, ident.Version); ok {
			continue
		}
		entry, _ := all.Get(ident.Name, ident.Version)
		dst, _ := filtered.getOrCreate(ident.Name, ident.Version)
		dst.Kind = entry.Kind
		dst.HasBuildRS = entry.HasBuildRS
		dst.IsProcMacro = entry.IsProcMacro
		dst.Reasons = entry.Reasons
		dst.Platforms = entry.Platforms
	}

	return filtered, nil
}

// walkUnfiltered is ResolveFromIndexed's counterpart for a platform-
// independent merge step: it returns the bare Included set so the
// caller (the Orchestrator, in all-platforms mode) can merge it into a
// shared result alongside per-platform walks, rather than wrapping it
// in its own Resolved.
func walkUnfiltered(meta *metaindex.IndexedMetadata) (*Included, error) {
	return walk(meta, false)
}

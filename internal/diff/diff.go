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

// Package diff computes the human-relevant difference between two
// Resolved graphs: crate versions newly reachable, crate versions no
// longer reachable, and crate versions whose reach-paths changed in a
// way that may need review.
package diff

import (
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/GiGainfosystems/cargo-resolvediff/internal/graph"
)

// Added describes one (name, version) pair newly reachable in the new
// graph, under a crate name the old graph never resolved at all.
type Added struct {
	Name    string
	Version *semver.Version
}

// PlatformReasons pairs a platform gained by a version with the subset
// of its reach-path reasons that mention that platform.
type PlatformReasons struct {
	Platform graph.Platform
	Reasons  []graph.IncludedDependencyReason
}

// Comparison describes one new (name, version) pair under a crate name
// the old graph already resolved, together with how it differs from
// the closest old version at that name.
type Comparison struct {
	Name    string
	Version *semver.Version

	// ClosestOldVersion is the smallest old version >= Version, or (if
	// none reaches that high) the largest old version — nil if that
	// selection lands on Version itself, i.e. the exact version was
	// already present in the old graph.
	ClosestOldVersion *semver.Version
	// AllOtherOldVersions is every old version for this name except
	// whichever one ClosestOldVersion's selection landed on (even when
	// that selection equals Version and so isn't reported itself).
	AllOtherOldVersions []*semver.Version

	// AddedInPlatforms lists platforms this version is reachable on
	// that the closest old version was not, each with the reasons that
	// realize it on that platform.
	AddedInPlatforms []PlatformReasons
	// AddedInBuild is non-empty iff this version runs at build time and
	// the closest old version did not; it holds this version's reasons
	// that are themselves build-time reasons.
	AddedInBuild []graph.IncludedDependencyReason
	// AddedInNonDebug is non-empty iff this version is not restricted
	// to debug builds while the closest old version was; it holds this
	// version's reasons that are themselves non-debug-only reasons.
	AddedInNonDebug []graph.IncludedDependencyReason
}

// Removed describes one (name, version) pair no longer reachable in
// the new graph.
type Removed struct {
	Name    string
	Version *semver.Version
	// RemainingVersions lists the versions of Name still present in the
	// new graph.
	RemainingVersions []*semver.Version
}

// FilteredChange describes one (name, version) pair whose presence in
// the Filtered set (the registry versions a platform-independent
// resolution reaches beyond the configured platforms) changed.
type FilteredChange struct {
	Name    string
	Version *semver.Version
}

// Diff is the full result of comparing two Resolved graphs.
type Diff struct {
	Added           []Added
	Changed         []Comparison
	Removed         []Removed
	FilteredAdded   []FilteredChange
	FilteredRemoved []FilteredChange
}

// Between computes the Diff from an old Resolved graph to a newG one.
func Between(old, newG *graph.Resolved) Diff {
	var d Diff

	for _, name := range unionStrings(old.Included.Names(), newG.Included.Names()) {
		oldVersions := old.Included.Versions(name)
		newVersions := newG.Included.Versions(name)

		if len(oldVersions) == 0 {
			for _, v := range newVersions {
				d.Added = append(d.Added, Added{Name: name, Version: v})
			}
			continue
		}

		oldByVersion := make(map[string]*graph.IncludedDependencyVersion, len(oldVersions))
		for _, v := range oldVersions {
			entry, _ := old.Included.Get(name, v)
			oldByVersion[v.Original()] = entry
		}

		for _, v := range newVersions {
			newEntry, _ := newG.Included.Get(name, v)
			if c, retained := compareVersion(name, v, newEntry, oldVersions, oldByVersion); retained {
				d.Changed = append(d.Changed, c)
			}
		}

		d.Removed = append(d.Removed, removedForName(name, oldVersions, newVersions)...)
	}

	// FilteredAdded/FilteredRemoved as a true symmetric difference of
	// the two Filtered sets: what the new filtered set has that the old
	// one lacks, and vice versa. Both directions must be computed
	// independently — reusing one direction's expression for both would
	// silently report removals as additions.
	d.FilteredAdded = filteredDiff(old.Filtered, newG.Filtered)
	d.FilteredRemoved = filteredDiff(newG.Filtered, old.Filtered)

	return d
}

// removedForName implements §4.4's Removed rule: if any new version
// under name is absent from the old versions (i.e. the name grew a
// genuinely new version), the change is already visible via
// Added/Changed and no Removed is emitted for it at all. Otherwise,
// every old version absent from new is reported, each with the
// versions of name still present in new.
func removedForName(name string, oldVersions, newVersions []*semver.Version) []Removed {
	newSet := versionSet(newVersions)
	oldSet := versionSet(oldVersions)

	for _, v := range newVersions {
		if !oldSet[v.Original()] {
			return nil
		}
	}

	var out []Removed
	for _, v := range oldVersions {
		if newSet[v.Original()] {
			continue
		}
		out = append(out, Removed{Name: name, Version: v, RemainingVersions: newVersions})
	}
	return out
}

// filteredDiff returns, per (name, version), the pairs present in b but
// absent from a.
func filteredDiff(a, b *graph.Included) []FilteredChange {
	var out []FilteredChange
	for _, ident := range b.AllVersions() {
		if _, ok := a.Get(ident.Name, ident.Version); ok {
			continue
		}
		out = append(out, FilteredChange{Name: ident.Name, Version: ident.Version})
	}
	return out
}

// compareVersion builds the Comparison for one new (name, version)
// pair and reports whether it should be retained: per §4.4, iff
// ClosestOldVersion is set (the version itself differs from anything
// previously resolved) or any of the three "added in ..." diffs is
// non-empty. A version that merely re-resolved to an already-known
// version with unchanged kind and platforms is suppressed.
func compareVersion(name string, version *semver.Version, newEntry *graph.IncludedDependencyVersion, oldVersions []*semver.Version, oldByVersion map[string]*graph.IncludedDependencyVersion) (Comparison, bool) {
	c := Comparison{Name: name, Version: version}

	selected := selectClosestOldVersion(version, oldVersions)
	if selected != nil && !selected.Equal(version) {
		c.ClosestOldVersion = selected
	}
	for _, v := range oldVersions {
		if selected != nil && v.Equal(selected) {
			continue
		}
		c.AllOtherOldVersions = append(c.AllOtherOldVersions, v)
	}

	var closestEntry *graph.IncludedDependencyVersion
	if selected != nil {
		closestEntry = oldByVersion[selected.Original()]
	}

	c.AddedInPlatforms = addedInPlatforms(newEntry, closestEntry)
	c.AddedInBuild = addedInBuild(newEntry, closestEntry)
	c.AddedInNonDebug = addedInNonDebug(newEntry, closestEntry)

	retained := c.ClosestOldVersion != nil ||
		len(c.AddedInPlatforms) > 0 ||
		len(c.AddedInBuild) > 0 ||
		len(c.AddedInNonDebug) > 0
	return c, retained
}

// selectClosestOldVersion picks the smallest old version >= newVersion,
// or — if no old version reaches that high — the single largest old
// version, matching the original's `old.range(&new_version..).next()`
// else `last_key_value()` selection. oldVersions must be sorted
// ascending.
func selectClosestOldVersion(newVersion *semver.Version, oldVersions []*semver.Version) *semver.Version {
	if len(oldVersions) == 0 {
		return nil
	}
	for _, v := range oldVersions {
		if !v.LessThan(newVersion) {
			return v
		}
	}
	return oldVersions[len(oldVersions)-1]
}

func addedInPlatforms(newEntry, closestEntry *graph.IncludedDependencyVersion) []PlatformReasons {
	var oldPlatforms map[graph.Platform]struct{}
	if closestEntry != nil {
		oldPlatforms = closestEntry.Platforms
	}

	var gained []graph.Platform
	for p := range newEntry.Platforms {
		if _, ok := oldPlatforms[p]; !ok {
			gained = append(gained, p)
		}
	}
	if len(gained) == 0 {
		return nil
	}
	sort.Slice(gained, func(i, j int) bool { return gained[i] < gained[j] })

	out := make([]PlatformReasons, 0, len(gained))
	for _, p := range gained {
		var reasons []graph.IncludedDependencyReason
		for _, e := range newEntry.Reasons.Entries() {
			for _, rp := range e.Platforms {
				if rp == p {
					reasons = append(reasons, e.Reason)
					break
				}
			}
		}
		out = append(out, PlatformReasons{Platform: p, Reasons: reasons})
	}
	return out
}

func addedInBuild(newEntry, closestEntry *graph.IncludedDependencyVersion) []graph.IncludedDependencyReason {
	oldRunAtBuild := closestEntry != nil && closestEntry.Kind.RunAtBuild
	if !newEntry.Kind.RunAtBuild || oldRunAtBuild {
		return nil
	}
	var out []graph.IncludedDependencyReason
	for _, e := range newEntry.Reasons.Entries() {
		if e.Reason.Kind.RunAtBuild {
			out = append(out, e.Reason)
		}
	}
	return out
}

func addedInNonDebug(newEntry, closestEntry *graph.IncludedDependencyVersion) []graph.IncludedDependencyReason {
	oldOnlyDebug := closestEntry != nil && closestEntry.Kind.OnlyDebugBuild
	if newEntry.Kind.OnlyDebugBuild || !oldOnlyDebug {
		return nil
	}
	var out []graph.IncludedDependencyReason
	for _, e := range newEntry.Reasons.Entries() {
		if !e.Reason.Kind.OnlyDebugBuild {
			out = append(out, e.Reason)
		}
	}
	return out
}

func versionSet(versions []*semver.Version) map[string]bool {
	m := make(map[string]bool, len(versions))
	for _, v := range versions {
		m[v.Original()] = true
	}
	return m
}

func unionStrings(a, b []string) []string {
	seen := map[string]struct{}{}
	for _, s := range a {
		seen[s] = struct{}{}
	}
	for _, s := range b {
		seen[s] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

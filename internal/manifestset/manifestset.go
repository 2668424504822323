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

// Package manifestset discovers every place a given crate is mentioned
// as a dependency across a workspace's manifests, and applies version
// rewrites to all of them as a single transaction.
package manifestset

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/Masterminds/semver/v3"

	"github.com/GiGainfosystems/cargo-resolvediff/internal/metaindex"
	"github.com/GiGainfosystems/cargo-resolvediff/internal/resolve"
	"github.com/GiGainfosystems/cargo-resolvediff/internal/tomledit"
)

// dependencyTables are the three dependency-kind tables a crate name
// may appear under, a direct mirror of Cargo's [dependencies],
// [build-dependencies] and [dev-dependencies].
var dependencyTables = []string{"dependencies", "build-dependencies", "dev-dependencies"}

// DependencyMention is one concrete occurrence of a dependency name in
// one manifest: which manifest, which table (possibly under a
// target-platform prefix), its current version requirement, and the
// literal TOML key the entry is filed under (which may differ from the
// registry package name when a `package` override alias is used).
type DependencyMention struct {
	ManifestIdx int
	TableHeader string
	EntryKey    string
	Version     string
}

// dependencyTomlPaths returns every [table] header a dependency named
// name could appear under, the cartesian product of an optional
// `target.'<key>'.` prefix (targetKeys, which may be empty for the
// unconditional form) and the three dependency-kind tables — mirroring
// original_source/src/major_updates.rs's dependency_toml_paths.
func dependencyTomlPaths(targetKeys []string) []string {
	headers := make([]string, 0, len(dependencyTables)*(len(targetKeys)+1))
	for _, table := range dependencyTables {
		headers = append(headers, table)
	}
	for _, key := range targetKeys {
		for _, table := range dependencyTables {
			headers = append(headers, fmt.Sprintf("target.'%s'.%s", key, table))
		}
	}
	return headers
}

// manifestTargetKeys returns the keys filed directly under m's own
// `[target]` table — e.g. `cfg(windows)` or `x86_64-pc-windows-gnu` —
// discovered by reading the manifest's own parsed document rather than
// assuming a caller-supplied target-triple list, since Cargo lets a
// target key be any `cfg(...)` predicate as well as a bare triple.
func manifestTargetKeys(m *tomledit.MutableTomlFile) []string {
	target, ok := m.Document()["target"].(map[string]interface{})
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(target))
	for key := range target {
		keys = append(keys, key)
	}
	return keys
}

// targetKeysFor is the set of target headers dependencyTomlPaths should
// expand for manifest m: the caller-configured platforms (so a rewrite
// can still target a table that doesn't exist yet) unioned with every
// target key the manifest itself actually declares, so a predicate-style
// key like `target.'cfg(windows)'.dependencies` is discovered even when
// it names no triple in platforms.
func targetKeysFor(m *tomledit.MutableTomlFile, platforms []string) []string {
	seen := make(map[string]struct{}, len(platforms))
	keys := make([]string, 0, len(platforms))
	for _, p := range platforms {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		keys = append(keys, p)
	}
	for _, k := range manifestTargetKeys(m) {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// ManifestSet is every TOML manifest belonging to a workspace: the
// workspace root manifest plus one manifest per member.
type ManifestSet struct {
	manifests []*tomledit.MutableTomlFile
}

// Collect opens the workspace root manifest and every member manifest
// under workspaceRoot. A single-crate workspace (no [workspace.members]
// entries) is represented as a ManifestSet holding just the root
// manifest, matching the original's special case for that layout.
func Collect(workspaceRoot string, memberManifestPaths []string) (*ManifestSet, error) {
	root, err := tomledit.Open(filepath.Join(workspaceRoot, "Cargo.toml"))
	if err != nil {
		return nil, fmt.Errorf("open workspace manifest: %w", err)
	}

	ms := &ManifestSet{manifests: []*tomledit.MutableTomlFile{root}}

	for _, p := range memberManifestPaths {
		m, err := tomledit.Open(p)
		if err != nil {
			return nil, fmt.Errorf("open member manifest %s: %w", p, err)
		}
		ms.manifests = append(ms.manifests, m)
	}

	return ms, nil
}

// Files returns every manifest in the set, the workspace root first.
func (ms *ManifestSet) Files() []*tomledit.MutableTomlFile {
	return append([]*tomledit.MutableTomlFile(nil), ms.manifests...)
}

// CollectFromIndexed is Collect grounded in a single already-gathered
// IndexedMetadata rather than a caller-supplied member path list,
// mirroring the original's ManifestSet::collect(&IndexedMetadata).
func CollectFromIndexed(meta *metaindex.IndexedMetadata) (*ManifestSet, error) {
	return Collect(meta.WorkspaceRoot, meta.MemberManifestPaths())
}

// ManifestDependencySet indexes every mention of every dependency name
// across a ManifestSet's manifests, keyed by dependency name.
type ManifestDependencySet struct {
	Manifests    *ManifestSet
	Dependencies map[string][]DependencyMention
}

// CollectDependencies walks every manifest in manifests and records
// every mention of every dependency name found in any of
// dependencyTomlPaths(targetKeysFor(m, platforms)) — the configured
// platforms plus whatever target keys that manifest's own `[target]`
// table declares — skipping entries that have no `version` to rewrite
// (path or git dependencies) and resolving a `package` override key to
// the registry crate name it aliases.
func CollectDependencies(manifests *ManifestSet, platforms []string) (*ManifestDependencySet, error) {
	set := &ManifestDependencySet{Manifests: manifests, Dependencies: map[string][]DependencyMention{}}

	for idx, m := range manifests.manifests {
		headers := dependencyTomlPaths(targetKeysFor(m, platforms))
		for _, header := range headers {
			table, ok := pathLookupHeader(m, header)
			if !ok {
				continue
			}
			for depName, raw := range table {
				version, ok := extractVersion(raw)
				if !ok {
					continue // path/git dependency, or no version pin
				}
				name := depName
				if aliased, ok := extractPackageOverride(raw); ok {
					name = aliased
				}
				set.Dependencies[name] = append(set.Dependencies[name], DependencyMention{
					ManifestIdx: idx,
					TableHeader: header,
					EntryKey:    depName,
					Version:     version,
				})
			}
		}
	}

	return set, nil
}

func pathLookupHeader(m *tomledit.MutableTomlFile, header string) (map[string]interface{}, bool) {
	// header is dot-joined with the target prefix kept literal, e.g.
	// "target.'cfg(unix)'.dependencies"; only the plain "dependencies"
	// / "build-dependencies" / "dev-dependencies" forms are split on
	// dots for structural lookup, since a target-conditioned table is
	// looked up by its full quoted path instead.
	if segs, ok := splitTargetHeader(header); ok {
		return m.PathLookup(segs...)
	}
	return m.PathLookup(header)
}

func splitTargetHeader(header string) ([]string, bool) {
	const prefix = "target."
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return nil, false
	}
	rest := header[len(prefix):]
	// rest looks like 'cfg(unix)'.dependencies
	quoteEnd := -1
	if len(rest) > 0 && rest[0] == '\'' {
		for i := 1; i < len(rest); i++ {
			if rest[i] == '\'' {
				quoteEnd = i
				break
			}
		}
	}
	if quoteEnd < 0 {
		return nil, false
	}
	triple := rest[1:quoteEnd]
	table := rest[quoteEnd+2:] // skip "'."
	return []string{"target", triple, table}, true
}

func extractVersion(raw interface{}) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case map[string]interface{}:
		if _, isGit := v["git"]; isGit {
			return "", false
		}
		if reg, ok := v["registry"].(string); ok && reg != "" {
			return "", false
		}
		ver, ok := v["version"].(string)
		if !ok {
			return "", false
		}
		return ver, true
	default:
		return "", false
	}
}

func extractPackageOverride(raw interface{}) (string, bool) {
	if table, ok := raw.(map[string]interface{}); ok {
		if pkg, ok := table["package"].(string); ok {
			return pkg, true
		}
	}
	return "", false
}

// UpdateVersion applies update_version_in_memory to every recorded
// mention of name: a mention is rewritten to a `^ver` requirement
// (caret elided on write, per tomledit's formatting rule) only if ver
// is a major update for that mention's own current requirement (see
// internal/resolve.IsMajorUpdateFor). A crate pinned slightly
// differently across manifests may already satisfy ver in one manifest
// while needing a rewrite in another; mentions that already accept ver
// are left untouched rather than force-pinned. The rewrite is staged in
// memory only; call Commit to persist it or RollBack to discard it.
func (s *ManifestDependencySet) UpdateVersion(name string, ver *semver.Version) (int, error) {
	mentions, ok := s.Dependencies[name]
	if !ok {
		return 0, fmt.Errorf("dependency %q not tracked in this set", name)
	}

	written := tomledit.ElideCaretPrefix("^" + ver.Original())

	updated := 0
	for i := range mentions {
		mention := &mentions[i]

		req, err := resolve.ParseRequirement(mention.Version)
		if err != nil {
			return updated, fmt.Errorf("parse requirement %q for %s: %w", mention.Version, name, err)
		}
		if !resolve.IsMajorUpdateFor(req, ver) {
			continue
		}

		manifest := s.Manifests.manifests[mention.ManifestIdx]
		if err := manifest.SetDependencyVersion(mention.TableHeader, mention.EntryKey, written); err != nil {
			return updated, fmt.Errorf("update %s in %s: %w", name, manifest.Path(), err)
		}
		mention.Version = written
		updated++
	}

	return updated, nil
}

// WriteBack persists every manifest with pending changes to disk
// without advancing its baseline: a subsequent RollBack still restores
// the pre-edit contents, and a subsequent Commit re-baselines against
// what was just written. This lets a caller show a candidate edit to an
// external tool (e.g. re-resolving the lockfile) before deciding
// whether to Commit or RollBack it.
func (s *ManifestDependencySet) WriteBack() error {
	for _, m := range s.Manifests.manifests {
		if !m.Dirty() {
			continue
		}
		if err := m.WriteBack(); err != nil {
			return fmt.Errorf("write back %s: %w", m.Path(), err)
		}
	}
	return nil
}

// Commit persists every manifest that was mutated. Manifests with no
// pending changes are left untouched (and thus keep their original
// mtime), matching the original's commit() semantics of only writing
// dirty documents.
func (s *ManifestDependencySet) Commit() error {
	for _, m := range s.Manifests.manifests {
		if !m.Dirty() {
			continue
		}
		if err := m.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", m.Path(), err)
		}
	}
	return nil
}

// RollBack discards every pending mutation across every manifest in the
// set, restoring each to the contents it had when opened or last
// committed, then re-reads
// every mention's current version from its (now rolled-back) manifest
// so the set's in-memory view matches the restored files. Every
// manifest is rolled back even if an earlier one fails; a single
// aggregate error is returned if any roll-back failed.
func (s *ManifestDependencySet) RollBack() error {
	var errs []error
	for _, m := range s.Manifests.manifests {
		if !m.Dirty() {
			continue
		}
		if err := m.RollBack(); err != nil {
			errs = append(errs, fmt.Errorf("roll back %s: %w", m.Path(), err))
		}
	}

	for _, mentions := range s.Dependencies {
		for i := range mentions {
			mention := &mentions[i]
			manifest := s.Manifests.manifests[mention.ManifestIdx]
			if version, ok := rereadMentionVersion(manifest, mention.TableHeader, mention.EntryKey); ok {
				mention.Version = version
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("roll back manifest set: %w", errors.Join(errs...))
	}
	return nil
}

func rereadMentionVersion(m *tomledit.MutableTomlFile, header, entryKey string) (string, bool) {
	table, ok := pathLookupHeader(m, header)
	if !ok {
		return "", false
	}
	raw, ok := table[entryKey]
	if !ok {
		return "", false
	}
	return extractVersion(raw)
}

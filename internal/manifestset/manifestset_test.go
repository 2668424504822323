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

package manifestset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Masterminds/semver/v3"
)

const rootManifest = `[workspace]
members = ["crates/a"]

[dependencies]
serde = "1.0"
`

const memberManifest = `[package]
name = "a"
version = "0.1.0"

[dependencies]
serde = "1.0"
local-dep = { path = "../local-dep" }
vendored = { git = "https://example.com/vendored.git" }

[target.'cfg(windows)'.dependencies]
winapi = { version = "0.3", package = "winapi-real" }
`

func setupWorkspace(t *testing.T) (root string, memberPath string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(rootManifest), 0o644); err != nil {
		t.Fatalf("write root manifest: %v", err)
	}
	memberDir := filepath.Join(dir, "crates", "a")
	if err := os.MkdirAll(memberDir, 0o755); err != nil {
		t.Fatalf("mkdir member dir: %v", err)
	}
	memberPath = filepath.Join(memberDir, "Cargo.toml")
	if err := os.WriteFile(memberPath, []byte(memberManifest), 0o644); err != nil {
		t.Fatalf("write member manifest: %v", err)
	}
	return dir, memberPath
}

func TestCollectDependenciesFindsMentionsAcrossManifests(t *testing.T) {
	root, memberPath := setupWorkspace(t)

	ms, err := Collect(root, []string{memberPath})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	deps, err := CollectDependencies(ms, []string{"cfg(windows)"})
	if err != nil {
		t.Fatalf("CollectDependencies: %v", err)
	}

	if mentions := deps.Dependencies["serde"]; len(mentions) != 2 {
		t.Fatalf("serde mentions = %d, want 2 (root manifest + member manifest)", len(mentions))
	}
	if _, ok := deps.Dependencies["local-dep"]; ok {
		t.Fatal("path dependency without a version should not be tracked")
	}
	if _, ok := deps.Dependencies["vendored"]; ok {
		t.Fatal("git dependency should not be tracked")
	}

	winapiMentions, ok := deps.Dependencies["winapi-real"]
	if !ok {
		t.Fatal("expected the package-override alias winapi-real to be tracked, not the table key winapi")
	}
	if len(winapiMentions) != 1 || winapiMentions[0].TableHeader != "target.'cfg(windows)'.dependencies" {
		t.Fatalf("winapi-real mentions = %+v", winapiMentions)
	}
}

func TestCollectDependenciesDiscoversTargetKeysWithoutConfiguredPlatforms(t *testing.T) {
	// winapi-real sits under a `[target.'cfg(windows)'.dependencies]`
	// table, a predicate-style key nobody would list as a configured
	// target triple; it must still be discovered by reading the
	// manifest's own [target] table, even with no platforms configured.
	root, memberPath := setupWorkspace(t)

	ms, err := Collect(root, []string{memberPath})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	deps, err := CollectDependencies(ms, nil)
	if err != nil {
		t.Fatalf("CollectDependencies: %v", err)
	}

	winapiMentions, ok := deps.Dependencies["winapi-real"]
	if !ok {
		t.Fatal("expected winapi-real to be discovered from the manifest's own [target] table")
	}
	if len(winapiMentions) != 1 || winapiMentions[0].TableHeader != "target.'cfg(windows)'.dependencies" {
		t.Fatalf("winapi-real mentions = %+v", winapiMentions)
	}
}

func TestUpdateVersionRewritesEveryMention(t *testing.T) {
	root, memberPath := setupWorkspace(t)

	ms, err := Collect(root, []string{memberPath})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	deps, err := CollectDependencies(ms, nil)
	if err != nil {
		t.Fatalf("CollectDependencies: %v", err)
	}

	// "1.0" is an implicit caret (>=1.0.0, <2.0.0); 2.0.0 crosses that
	// bound in both mentions, so both qualify as a major update.
	n, err := deps.UpdateVersion("serde", semver.MustParse("2.0.0"))
	if err != nil {
		t.Fatalf("UpdateVersion: %v", err)
	}
	if n != 2 {
		t.Fatalf("updated = %d, want 2", n)
	}

	if err := deps.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	rootContents, err := os.ReadFile(filepath.Join(root, "Cargo.toml"))
	if err != nil {
		t.Fatalf("read root manifest: %v", err)
	}
	if !strings.Contains(string(rootContents), `serde = "2.0.0"`) {
		t.Fatalf("expected the caret to be elided on write-back, got:\n%s", rootContents)
	}

	memberContents, err := os.ReadFile(memberPath)
	if err != nil {
		t.Fatalf("read member manifest: %v", err)
	}
	if !strings.Contains(string(memberContents), `serde = "2.0.0"`) {
		t.Fatalf("expected member manifest's serde mention to be rewritten, got:\n%s", memberContents)
	}
}

func TestUpdateVersionSkipsMentionsAlreadySatisfied(t *testing.T) {
	root, memberPath := setupWorkspace(t)
	ms, err := Collect(root, []string{memberPath})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	deps, err := CollectDependencies(ms, nil)
	if err != nil {
		t.Fatalf("CollectDependencies: %v", err)
	}

	// "1.0" (implicit caret) already matches 1.5.0: neither mention is a
	// major update, so nothing should be rewritten.
	n, err := deps.UpdateVersion("serde", semver.MustParse("1.5.0"))
	if err != nil {
		t.Fatalf("UpdateVersion: %v", err)
	}
	if n != 0 {
		t.Fatalf("updated = %d, want 0 (already satisfied by every mention)", n)
	}
}

func TestUpdateVersionUsesEntryKeyNotPackageAlias(t *testing.T) {
	root, memberPath := setupWorkspace(t)
	ms, err := Collect(root, []string{memberPath})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	deps, err := CollectDependencies(ms, []string{"cfg(windows)"})
	if err != nil {
		t.Fatalf("CollectDependencies: %v", err)
	}

	// winapi-real is the registry name; the table key is "winapi". A
	// rewrite keyed on the registry name instead of the table's own key
	// would fail to find the line to edit.
	n, err := deps.UpdateVersion("winapi-real", semver.MustParse("1.0.0"))
	if err != nil {
		t.Fatalf("UpdateVersion: %v", err)
	}
	if n != 1 {
		t.Fatalf("updated = %d, want 1", n)
	}

	if err := deps.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	memberContents, err := os.ReadFile(memberPath)
	if err != nil {
		t.Fatalf("read member manifest: %v", err)
	}
	if !strings.Contains(string(memberContents), `winapi = { version = "1.0.0", package = "winapi-real" }`) {
		t.Fatalf("expected winapi table entry's version to be rewritten in place, got:\n%s", memberContents)
	}
}

func TestUpdateVersionUnknownDependency(t *testing.T) {
	root, memberPath := setupWorkspace(t)
	ms, _ := Collect(root, []string{memberPath})
	deps, _ := CollectDependencies(ms, nil)

	if _, err := deps.UpdateVersion("does-not-exist", semver.MustParse("1.0.0")); err == nil {
		t.Fatal("expected an error updating an untracked dependency")
	}
}

func TestRollBackRestoresContentsAndRereadsMentionVersions(t *testing.T) {
	root, memberPath := setupWorkspace(t)
	ms, err := Collect(root, []string{memberPath})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	deps, err := CollectDependencies(ms, nil)
	if err != nil {
		t.Fatalf("CollectDependencies: %v", err)
	}

	if _, err := deps.UpdateVersion("serde", semver.MustParse("2.0.0")); err != nil {
		t.Fatalf("UpdateVersion: %v", err)
	}

	if err := deps.RollBack(); err != nil {
		t.Fatalf("RollBack: %v", err)
	}

	rootContents, err := os.ReadFile(filepath.Join(root, "Cargo.toml"))
	if err != nil {
		t.Fatalf("read root manifest: %v", err)
	}
	if string(rootContents) != rootManifest {
		t.Fatalf("expected root manifest restored to its original contents, got:\n%s", rootContents)
	}

	for _, mention := range deps.Dependencies["serde"] {
		if mention.Version != "1.0" {
			t.Fatalf("mention version after roll-back = %q, want re-read original %q", mention.Version, "1.0")
		}
	}
}


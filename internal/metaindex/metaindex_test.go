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

package metaindex

import (
	"context"
	"testing"

	"github.com/GiGainfosystems/cargo-resolvediff/internal/graph"
)

type fixedGatherer struct {
	payload []byte
	err     error
}

func (f fixedGatherer) Metadata(_ context.Context, _ string, _ graph.Platform) ([]byte, error) {
	return f.payload, f.err
}

const sampleMetadata = `{
	"packages": [
		{"id": "root 0.1.0", "name": "root", "version": "0.1.0", "dependencies": [
			{"name": "serde", "id": "serde 1.0.1", "kind": "normal"}
		]},
		{"id": "serde 1.0.1", "name": "serde", "version": "1.0.1", "source": "registry+https://github.com/rust-lang/crates.io-index", "dependencies": []}
	],
	"workspace_root": "/ws",
	"workspace_members": ["root 0.1.0"],
	"workspace_default_members": []
}`

func TestGather(t *testing.T) {
	idx, err := Gather(context.Background(), fixedGatherer{payload: []byte(sampleMetadata)}, "/ws", graph.Platform("x86_64-unknown-linux-gnu"))
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	if idx.Platform != "x86_64-unknown-linux-gnu" {
		t.Fatalf("platform = %q", idx.Platform)
	}
	if len(idx.Packages) != 2 {
		t.Fatalf("packages = %d, want 2", len(idx.Packages))
	}
	if _, ok := idx.PackageByID("serde 1.0.1"); !ok {
		t.Fatalf("expected serde 1.0.1 to be indexed")
	}
}

func TestGetWorkspaceDefaultMembersFallsBackToMembers(t *testing.T) {
	idx := &IndexedMetadata{WorkspaceMembers: []string{"root 0.1.0"}}
	got := idx.GetWorkspaceDefaultMembers()
	if len(got) != 1 || got[0] != "root 0.1.0" {
		t.Fatalf("GetWorkspaceDefaultMembers() = %v, want fallback to WorkspaceMembers", got)
	}

	idx.WorkspaceDefaultMembers = []string{"only-default 0.1.0"}
	got = idx.GetWorkspaceDefaultMembers()
	if len(got) != 1 || got[0] != "only-default 0.1.0" {
		t.Fatalf("GetWorkspaceDefaultMembers() = %v, want explicit default members", got)
	}
}

func TestParseVersionRejectsGarbage(t *testing.T) {
	if _, err := ParseVersion("not-a-version"); err == nil {
		t.Fatal("expected error parsing invalid version")
	}
}

func TestGatherClassifiesBuildScriptAndProcMacroTargets(t *testing.T) {
	const payload = `{
		"packages": [
			{"id": "macro 1.0.0", "name": "macro", "version": "1.0.0", "dependencies": [], "targets": [
				{"kind": ["custom-build"]},
				{"kind": ["proc-macro"]}
			]}
		],
		"workspace_root": "/ws",
		"workspace_members": ["macro 1.0.0"],
		"workspace_default_members": []
	}`

	idx, err := Gather(context.Background(), fixedGatherer{payload: []byte(payload)}, "/ws", graph.Platform(""))
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	pkg, ok := idx.PackageByID("macro 1.0.0")
	if !ok {
		t.Fatal("expected macro 1.0.0 to be indexed")
	}
	if !pkg.HasBuildRS {
		t.Fatal("expected HasBuildRS to be derived from the custom-build target")
	}
	if !pkg.IsProcMacro {
		t.Fatal("expected IsProcMacro to be derived from the proc-macro target")
	}
}

func TestGatherRejectsUnknownTargetKind(t *testing.T) {
	const payload = `{
		"packages": [
			{"id": "root 0.1.0", "name": "root", "version": "0.1.0", "dependencies": [], "targets": [
				{"kind": ["wasm-blob"]}
			]}
		],
		"workspace_root": "/ws",
		"workspace_members": ["root 0.1.0"],
		"workspace_default_members": []
	}`

	_, err := Gather(context.Background(), fixedGatherer{payload: []byte(payload)}, "/ws", graph.Platform(""))
	if err == nil {
		t.Fatal("expected an error for an unrecognized target kind")
	}
}

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

package tomledit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleManifest = `[package]
name = "demo"
version = "0.1.0"

[dependencies]
serde = "1.0" # pinned deliberately
tokio = { version = "1.28", features = ["full"] }

[target.'cfg(unix)'.dependencies]
libc = "0.2"
`

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "Cargo.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp manifest: %v", err)
	}
	return path
}

func TestSetDependencyVersionBareString(t *testing.T) {
	path := writeTemp(t, sampleManifest)
	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := f.SetDependencyVersion("dependencies", "serde", "1.1"); err != nil {
		t.Fatalf("SetDependencyVersion: %v", err)
	}
	if !f.Dirty() {
		t.Fatal("expected file to be marked dirty")
	}

	out := strings.Join(f.lines, "")
	if !strings.Contains(out, `serde = "1.1" # pinned deliberately`) {
		t.Fatalf("expected rewritten serde line with comment preserved, got:\n%s", out)
	}
	if !strings.Contains(out, `tokio = { version = "1.28", features = ["full"] }`) {
		t.Fatal("expected tokio's line to be untouched")
	}
}

func TestSetDependencyVersionInlineTable(t *testing.T) {
	path := writeTemp(t, sampleManifest)
	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := f.SetDependencyVersion("dependencies", "tokio", "1.30"); err != nil {
		t.Fatalf("SetDependencyVersion: %v", err)
	}

	out := strings.Join(f.lines, "")
	if !strings.Contains(out, `tokio = { version = "1.30", features = ["full"] }`) {
		t.Fatalf("expected only the version literal to change, got:\n%s", out)
	}
}

func TestSetDependencyVersionTargetSpecificTable(t *testing.T) {
	path := writeTemp(t, sampleManifest)
	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := f.SetDependencyVersion("target.'cfg(unix)'.dependencies", "libc", "0.3"); err != nil {
		t.Fatalf("SetDependencyVersion: %v", err)
	}

	out := strings.Join(f.lines, "")
	if !strings.Contains(out, `libc = "0.3"`) {
		t.Fatalf("expected libc rewritten, got:\n%s", out)
	}
}

func TestSetDependencyVersionMissingDependency(t *testing.T) {
	path := writeTemp(t, sampleManifest)
	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := f.SetDependencyVersion("dependencies", "does-not-exist", "1.0"); err == nil {
		t.Fatal("expected an error for a dependency that does not exist")
	}
}

func TestCommitPersistsAndRollBackRestores(t *testing.T) {
	path := writeTemp(t, sampleManifest)
	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := f.SetDependencyVersion("dependencies", "serde", "2.0"); err != nil {
		t.Fatalf("SetDependencyVersion: %v", err)
	}
	if err := f.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	persisted, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(persisted), `serde = "2.0"`) {
		t.Fatalf("expected commit to persist the rewrite, got:\n%s", persisted)
	}

	if err := f.SetDependencyVersion("dependencies", "serde", "3.0"); err != nil {
		t.Fatalf("SetDependencyVersion: %v", err)
	}
	if err := f.RollBack(); err != nil {
		t.Fatalf("RollBack: %v", err)
	}

	afterRollback, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back after rollback: %v", err)
	}
	if !strings.Contains(string(afterRollback), `serde = "2.0"`) {
		t.Fatalf("expected rollback to restore the last commit, not the uncommitted edit, got:\n%s", afterRollback)
	}
	if f.Dirty() {
		t.Fatal("expected file to be clean after rollback")
	}
}

func TestElideCaretPrefix(t *testing.T) {
	cases := map[string]string{
		"^1.2.3":       "1.2.3",
		"1.2.3":        "1.2.3",
		"^1.0, <2.0":   "^1.0, <2.0",
		"=1.2.3":       "=1.2.3",
	}
	for in, want := range cases {
		if got := ElideCaretPrefix(in); got != want {
			t.Errorf("ElideCaretPrefix(%q) = %q, want %q", in, got, want)
		}
	}
}

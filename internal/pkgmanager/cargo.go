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

// Package pkgmanager is the external collaborator boundary for
// obtaining package-manager metadata. CargoRunner is a concrete
// subprocess-backed implementation using exec.CommandContext with
// validated arguments.
package pkgmanager

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"

	"github.com/GiGainfosystems/cargo-resolvediff/internal/graph"
)

// platformPattern restricts accepted platform triples to the character
// set Rust/Cargo target triples actually use, preventing command
// injection through a platform value sourced from user-controlled
// configuration.
var platformPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// CargoRunner invokes `cargo metadata` to gather workspace dependency
// metadata, optionally scoped to a single target platform.
type CargoRunner struct {
	// Locked, when true, passes --locked so metadata is read strictly
	// from the committed lockfile without modifying it.
	Locked bool
}

// Update runs `cargo update` in dir to re-resolve the lockfile against
// whatever manifest requirements are currently on disk. The command's
// exit status is reported as a boolean rather than an error: a
// candidate requirement the registry cannot satisfy is an expected,
// recoverable outcome for a caller verifying a major-version bump, not
// a failure of the runner itself.
func (r *CargoRunner) Update(ctx context.Context, dir string) (bool, error) {
	return r.runBool(ctx, dir, "update")
}

// Check runs `cargo check --workspace --all-targets` in dir, compiling
// every workspace target against the current lockfile. Like Update,
// the exit status is reported as a boolean.
func (r *CargoRunner) Check(ctx context.Context, dir string) (bool, error) {
	return r.runBool(ctx, dir, "check", "--workspace", "--all-targets")
}

func (r *CargoRunner) runBool(ctx context.Context, dir string, args ...string) (bool, error) {
	cmd := exec.CommandContext(ctx, "cargo", args...)
	cmd.Dir = dir

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}
		return false, fmt.Errorf("run cargo %v: %w", args, err)
	}
	return true, nil
}

// Metadata runs `cargo metadata --format-version 1` in dir, optionally
// filtered to platform via --filter-platform, and returns its raw JSON
// output.
func (r *CargoRunner) Metadata(ctx context.Context, dir string, platform graph.Platform) ([]byte, error) {
	args := []string{"metadata", "--format-version", "1"}
	if r.Locked {
		args = append(args, "--locked")
	}
	if platform != "" {
		p := string(platform)
		if !platformPattern.MatchString(p) {
			return nil, fmt.Errorf("invalid platform triple: %q", p)
		}
		args = append(args, "--filter-platform", p)
	}

	// #nosec G204 -- args are a fixed flag set plus a platform value validated above
	cmd := exec.CommandContext(ctx, "cargo", args...)
	cmd.Dir = dir

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("cargo metadata (platform=%q): %w", platform, err)
	}

	return out, nil
}

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

// Package vcs is the external collaborator boundary for version-control
// plumbing. GitHelper is a concrete subprocess-backed implementation
// that shells out to the git CLI via exec.CommandContext.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Helper is the interface the CLI front end depends on for recording
// manifest edits; internal/tomledit and internal/manifestset never
// import it.
type Helper interface {
	IsDirty(ctx context.Context) (bool, error)
	Add(ctx context.Context, paths ...string) error
	Commit(ctx context.Context, message string) error
	CurrentCommit(ctx context.Context) (string, error)
	CurrentBranch(ctx context.Context) (string, error)
	Checkout(ctx context.Context, revision string) error
}

// GitHelper runs `git` as a subprocess in a fixed working directory.
type GitHelper struct {
	Dir string
}

// IsDirty reports whether the working tree has uncommitted changes.
func (g *GitHelper) IsDirty(ctx context.Context) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain")
	cmd.Dir = g.Dir

	out, err := cmd.Output()
	if err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}

	return len(bytes.TrimSpace(out)) > 0, nil
}

// Add stages paths.
func (g *GitHelper) Add(ctx context.Context, paths ...string) error {
	args := append([]string{"add", "--"}, paths...)
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.Dir

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git add: %w: %s", err, out)
	}
	return nil
}

// Commit creates a commit from the currently staged changes.
func (g *GitHelper) Commit(ctx context.Context, message string) error {
	cmd := exec.CommandContext(ctx, "git", "commit", "-m", message)
	cmd.Dir = g.Dir

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git commit: %w: %s", err, out)
	}
	return nil
}

// CurrentCommit returns the full hash of HEAD.
func (g *GitHelper) CurrentCommit(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "HEAD")
	cmd.Dir = g.Dir

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse HEAD: %w", err)
	}
	return string(bytes.TrimSpace(out)), nil
}

// CurrentBranch returns the name of the currently checked-out branch.
func (g *GitHelper) CurrentBranch(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = g.Dir

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse --abbrev-ref HEAD: %w", err)
	}
	return string(bytes.TrimSpace(out)), nil
}

// Checkout switches the working tree to revision.
func (g *GitHelper) Checkout(ctx context.Context, revision string) error {
	cmd := exec.CommandContext(ctx, "git", "checkout", revision)
	cmd.Dir = g.Dir

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git checkout %s: %w: %s", revision, err, out)
	}
	return nil
}

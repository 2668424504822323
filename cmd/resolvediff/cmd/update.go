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

package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GiGainfosystems/cargo-resolvediff/internal/majorreq"
	"github.com/GiGainfosystems/cargo-resolvediff/internal/manifestset"
	"github.com/GiGainfosystems/cargo-resolvediff/internal/metaindex"
	"github.com/GiGainfosystems/cargo-resolvediff/internal/registry"
	"github.com/GiGainfosystems/cargo-resolvediff/internal/resolve"
	"github.com/GiGainfosystems/cargo-resolvediff/internal/rewrite"
	"github.com/GiGainfosystems/cargo-resolvediff/internal/vcs"
)

var (
	updateDryRun          bool
	updateShowDiff        bool
	updateAllowPrerelease bool
	updateGitCommit       bool
	updateVerifyBuild     bool
)

// resolveVerifier is the subset of package-manager operations the
// update command depends on to confirm a rewritten requirement still
// resolves (and, optionally, still compiles) before committing it.
type resolveVerifier interface {
	Update(ctx context.Context, dir string) (bool, error)
	Check(ctx context.Context, dir string) (bool, error)
}

var updateCmd = &cobra.Command{
	Use:   "update [crate...]",
	Short: "Find and apply major-version updates to workspace manifests",
	Long: `Find dependencies with a published major-version update available
and rewrite their requirement across every manifest that mentions them.

With no arguments every tracked dependency is checked. With one or more
crate names, only those dependencies are considered.`,
	Example: `  cargo-resolvediff update --dry-run
  cargo-resolvediff update --diff serde
  cargo-resolvediff update --commit`,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().BoolVar(&updateDryRun, "dry-run", false, "report available updates without writing them")
	updateCmd.Flags().BoolVar(&updateShowDiff, "diff", false, "print a unified diff of each changed manifest")
	updateCmd.Flags().BoolVar(&updateAllowPrerelease, "allow-prerelease", false, "let prerelease versions past the registry filter (a prerelease is never classified as a major update)")
	updateCmd.Flags().BoolVar(&updateGitCommit, "commit", false, "git add and commit each manifest change")
	updateCmd.Flags().BoolVar(&updateVerifyBuild, "verify-build", false, "also run `cargo check` before accepting a candidate")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg := loadConfigIfPresent(logger)

	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	ctx := context.Background()

	gatherer := buildGatherer()
	meta, err := metaindex.Gather(ctx, gatherer, dir, singlePlatform(cfg))
	if err != nil {
		return fmt.Errorf("gather workspace metadata: %w", err)
	}

	manifests, err := manifestset.CollectFromIndexed(meta)
	if err != nil {
		return fmt.Errorf("collect manifests: %w", err)
	}

	depSet, err := manifestset.CollectDependencies(manifests, cfg.Platforms)
	if err != nil {
		return fmt.Errorf("collect dependencies: %w", err)
	}

	targets := args
	if len(targets) == 0 {
		for name := range depSet.Dependencies {
			targets = append(targets, name)
		}
	}
	sort.Strings(targets)

	client := registry.NewCratesIOClient()
	var helper vcs.Helper
	if updateGitCommit {
		helper = &vcs.GitHelper{Dir: dir}
	}

	applied := 0
	var failed []string
	for _, name := range targets {
		mentions, ok := depSet.Dependencies[name]
		if !ok {
			fmt.Fprintf(os.Stderr, "skipping %s: not a tracked dependency\n", name)
			continue
		}
		if cfg.IsIgnored(name) {
			continue
		}

		result, err := findUpdate(ctx, client, name, mentions, updateAllowPrerelease || cfg.AllowPrerelease)
		if err != nil {
			return fmt.Errorf("check %s for major update: %w", name, err)
		}
		if result.Outcome != resolve.NewestUpdate {
			continue
		}

		fmt.Printf("%s: major update available -> %s\n", name, result.Version.Original())
		if updateDryRun {
			continue
		}

		before := manifestContents(manifests)

		count, err := depSet.UpdateVersion(name, result.Version)
		if err != nil {
			return fmt.Errorf("stage update for %s: %w", name, err)
		}
		fmt.Printf("  rewrote %d mention(s)\n", count)

		if updateShowDiff {
			if err := printManifestDiffs(manifests, before); err != nil {
				return err
			}
		}

		// Write the candidate to disk and let the package manager
		// confirm it actually re-resolves before committing. Only one
		// candidate's edit is ever written at a time: a failure here
		// rolls the whole set back to its baseline before the next
		// candidate is considered.
		if err := depSet.WriteBack(); err != nil {
			return fmt.Errorf("write candidate update for %s: %w", name, err)
		}

		ok, err = verifyCandidate(ctx, gatherer, dir)
		if err != nil {
			return fmt.Errorf("verify candidate update for %s: %w", name, err)
		}
		if !ok {
			fmt.Printf("  %s -> %s does not re-resolve, rolling back\n", name, result.Version.Original())
			failed = append(failed, name)
			if err := depSet.RollBack(); err != nil {
				return fmt.Errorf("roll back failed update for %s: %w", name, err)
			}
			continue
		}

		if err := depSet.Commit(); err != nil {
			return fmt.Errorf("commit update for %s: %w", name, err)
		}
		applied++

		if helper != nil {
			if err := commitUpdate(ctx, helper, manifests, name, result); err != nil {
				return err
			}
		}
	}

	if applied == 0 && !updateDryRun {
		fmt.Println("No major updates applied.")
	}
	if len(failed) > 0 {
		fmt.Printf("%d major update(s) failed to re-resolve and were rolled back: %s\n", len(failed), strings.Join(failed, ", "))
	}
	return nil
}

// verifyCandidate re-resolves the lockfile against the currently
// written (but not yet committed) manifest edits, and, when
// --verify-build is set, also confirms the workspace still compiles.
// Either check failing means the candidate is rejected.
func verifyCandidate(ctx context.Context, resolver resolveVerifier, dir string) (bool, error) {
	ok, err := resolver.Update(ctx, dir)
	if err != nil || !ok {
		return false, err
	}
	if !updateVerifyBuild {
		return true, nil
	}
	return resolver.Check(ctx, dir)
}

func findUpdate(ctx context.Context, client registry.Client, name string, mentions []manifestset.DependencyMention, allowPrerelease bool) (majorreq.Result, error) {
	requirements, err := requirementsFromMentions(mentions)
	if err != nil {
		return majorreq.Result{}, err
	}
	return majorreq.FindLatestMajorUpdate(ctx, client, name, requirements, allowPrerelease)
}

// requirementsFromMentions parses the requirement text of every
// recorded mention of a dependency. A crate may be pinned slightly
// differently across manifests, so a candidate version only needs to
// clear a major-update bar against any one of those requirements, not
// all of them; dropping every mention but the first would miss
// candidates that cross one manifest's bound while already satisfying
// another's.
func requirementsFromMentions(mentions []manifestset.DependencyMention) ([]*resolve.Requirement, error) {
	if len(mentions) == 0 {
		return nil, fmt.Errorf("no mentions to derive a requirement from")
	}
	out := make([]*resolve.Requirement, 0, len(mentions))
	for _, m := range mentions {
		req, err := resolve.ParseRequirement(m.Version)
		if err != nil {
			return nil, fmt.Errorf("parse requirement %q: %w", m.Version, err)
		}
		out = append(out, req)
	}
	return out, nil
}

func manifestContents(ms *manifestset.ManifestSet) map[string]string {
	out := map[string]string{}
	for _, f := range ms.Files() {
		out[f.Path()] = f.Contents()
	}
	return out
}

func printManifestDiffs(ms *manifestset.ManifestSet, before map[string]string) error {
	for _, f := range ms.Files() {
		oldContent, ok := before[f.Path()]
		if !ok || oldContent == f.Contents() {
			continue
		}
		text, err := rewrite.ManifestUpdateDiff(f.Path(), oldContent, f.Contents())
		if err != nil {
			return fmt.Errorf("generate diff for %s: %w", f.Path(), err)
		}
		fmt.Print(text)
	}
	return nil
}

func commitUpdate(ctx context.Context, helper vcs.Helper, ms *manifestset.ManifestSet, name string, result majorreq.Result) error {
	paths := make([]string, 0, len(ms.Files()))
	for _, f := range ms.Files() {
		paths = append(paths, f.Path())
	}
	if err := helper.Add(ctx, paths...); err != nil {
		return fmt.Errorf("git add manifests: %w", err)
	}
	msg := fmt.Sprintf("update %s to %s", name, result.Version.Original())
	if err := helper.Commit(ctx, msg); err != nil {
		return fmt.Errorf("git commit %s: %w", name, err)
	}
	return nil
}

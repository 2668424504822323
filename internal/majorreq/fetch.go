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

// Package majorreq fetches a crate's published versions from a
// registry and finds the best version that actually qualifies as a
// major update against any of its manifest mentions, building on
// internal/resolve.IsMajorUpdateFor's classification of a single
// candidate version against a single requirement.
package majorreq

import (
	"context"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/GiGainfosystems/cargo-resolvediff/internal/registry"
	"github.com/GiGainfosystems/cargo-resolvediff/internal/resolve"
)

// Result pairs a resolve.LatestVersion outcome with the selected
// version, if any.
type Result struct {
	Outcome resolve.LatestVersion
	Version *semver.Version
}

// FindLatestMajorUpdate fetches crateName's published versions from
// client, filters out yanked releases (and, unless allowPrerelease,
// prereleases), and returns the highest version that
// resolve.IsMajorUpdateFor classifies as a major update over *any* of
// requirements. IsMajorUpdateFor never classifies a prerelease as a
// major update, so no prerelease is returned even when allowPrerelease
// is set. A crate mentioned with slightly different
// requirements across workspace manifests is still a single candidate
// search, not one search per mention.
func FindLatestMajorUpdate(ctx context.Context, client registry.Client, crateName string, requirements []*resolve.Requirement, allowPrerelease bool) (Result, error) {
	versions, err := client.Versions(ctx, crateName)
	if err != nil {
		if err == registry.ErrCrateNotFound {
			return Result{Outcome: resolve.CrateNotFound}, nil
		}
		return Result{}, fmt.Errorf("fetch versions for %s: %w", crateName, err)
	}

	candidates := make([]*semver.Version, 0, len(versions))
	for _, v := range versions {
		if v.Yanked {
			continue
		}
		parsed, err := semver.NewVersion(v.Version)
		if err != nil {
			continue
		}
		if parsed.Prerelease() != "" && !allowPrerelease {
			continue
		}
		if !isMajorUpdateForAny(requirements, parsed) {
			continue
		}
		candidates = append(candidates, parsed)
	}

	if len(candidates) == 0 {
		return Result{Outcome: resolve.NoMajorUpdates}, nil
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].GreaterThan(candidates[j]) })

	return Result{Outcome: resolve.NewestUpdate, Version: candidates[0]}, nil
}

func isMajorUpdateForAny(requirements []*resolve.Requirement, candidate *semver.Version) bool {
	for _, r := range requirements {
		if resolve.IsMajorUpdateFor(r, candidate) {
			return true
		}
	}
	return false
}

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
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/GiGainfosystems/cargo-resolvediff/internal/metaindex"
)

// Orchestrator resolves a workspace across every requested platform
// concurrently and merges the per-platform results into a single
// workspace-wide Resolved value whose Included/Filtered entries each
// carry the full set of platforms they apply to.
//
// Per-platform work runs through a bounded worker pool with
// mutex-guarded accumulation into the merged result, using
// errgroup.Group so the whole resolution fails on the first platform
// error rather than collecting best-effort per-item errors: a
// workspace's dependency graph is not meaningfully partial.
type Orchestrator struct {
	Gatherer    metaindex.Gatherer
	Concurrency int
	Logger      *slog.Logger
}

// NewOrchestrator returns an Orchestrator with a default concurrency of
// 4.
func NewOrchestrator(g metaindex.Gatherer, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{Gatherer: g, Concurrency: 4, Logger: logger}
}

// ResolveAll gathers metadata and resolves the graph for each platform
// in platforms (an empty slice resolves the single platform-independent
// view), merging results into one workspace-wide Resolved.
//
// filterToPlatforms selects between the two modes the spec defines for
// reconciling the per-platform walks with the platform-independent
// view: false is "all-platforms mode" (also walk the unfiltered
// metadata into the same Included, with its reach-paths carrying empty
// platform sets; Filtered stays empty); true is "filter-to-platforms
// mode" (do not merge the unfiltered walk into Included at all — only
// use it to compute Filtered, the registry versions a platform-
// independent resolution would have reached but the configured
// platforms did not).
func (o *Orchestrator) ResolveAll(ctx context.Context, dir string, platforms []Platform, filterToPlatforms bool) (*Resolved, error) {
	if len(platforms) == 0 {
		platforms = []Platform{""}
	}

	concurrency := o.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var (
		mu     sync.Mutex
		merged = NewIncluded()
		last   *metaindex.IndexedMetadata
	)

	for _, platform := range platforms {
		platform := platform
		g.Go(func() error {
			o.Logger.Info("resolving platform", "platform", string(platform))

			meta, err := metaindex.Gather(gctx, o.Gatherer, dir, platform)
			if err != nil {
				return fmt.Errorf("platform %q: %w", platform, err)
			}

			resolved, err := ResolveFromIndexed(meta)
			if err != nil {
				return fmt.Errorf("platform %q: %w", platform, err)
			}

			mu.Lock()
			defer mu.Unlock()
			mergeInto(merged, resolved.Included)
			last = meta

			o.Logger.Info("platform resolved", "platform", string(platform), "crates", len(merged.Names()))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	unfilteredMeta, err := metaindex.Gather(ctx, o.Gatherer, dir, Platform(""))
	if err != nil {
		return nil, fmt.Errorf("unfiltered metadata: %w", err)
	}

	filtered := NewIncluded()
	if filterToPlatforms {
		filtered, err = FilteredSet(unfilteredMeta, merged)
		if err != nil {
			return nil, fmt.Errorf("compute filtered set: %w", err)
		}
	} else {
		unfilteredIncluded, err := walkUnfiltered(unfilteredMeta)
		if err != nil {
			return nil, fmt.Errorf("unfiltered walk: %w", err)
		}
		mergeInto(merged, unfilteredIncluded)
	}

	return &Resolved{Metadata: last, Included: merged, Filtered: filtered}, nil
}

// mergeInto folds src's entries into dst, unioning platforms and
// merging kinds/reasons for any (name, version) pair already present.
func mergeInto(dst, src *Included) {
	for _, ident := range src.AllVersions() {
		s, _ := src.Get(ident.Name, ident.Version)
		d, created := dst.getOrCreate(ident.Name, ident.Version)
		if created {
			d.HasBuildRS = s.HasBuildRS
			d.IsProcMacro = s.IsProcMacro
		}
		d.Kind = d.Kind.MergedWith(s.Kind)
		for p := range s.Platforms {
			d.Platforms[p] = struct{}{}
		}
		for _, e := range s.Reasons.Entries() {
			if len(e.Platforms) == 0 {
				// A reason discovered on an unfiltered (platform-
				// independent) walk: preserve its empty platform set
				// rather than silently dropping it.
				d.Reasons.InsertUnfiltered(e.Reason)
				continue
			}
			for _, p := range e.Platforms {
				d.Reasons.Insert(e.Reason, p)
			}
		}
	}
}

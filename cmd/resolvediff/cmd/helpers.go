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
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/GiGainfosystems/cargo-resolvediff/internal/config"
	"github.com/GiGainfosystems/cargo-resolvediff/internal/graph"
	"github.com/GiGainfosystems/cargo-resolvediff/internal/pkgmanager"
)

func logWriter() io.Writer { return os.Stderr }

// loadConfigIfPresent loads the resolvediff configuration file if it
// exists, returning a zero-value Config otherwise so callers always
// have something to read defaults from.
func loadConfigIfPresent(logger *slog.Logger) *config.Config {
	path, err := filepath.Abs(configPath)
	if err != nil {
		return &config.Config{}
	}
	if _, err := os.Stat(path); err != nil {
		return &config.Config{}
	}
	cfg, err := config.Load(path)
	if err != nil {
		logger.Warn("failed to load config, using defaults", "error", err, "path", path)
		return &config.Config{}
	}
	return cfg
}

// buildOrchestrator wires an Orchestrator backed by a CargoRunner
// gatherer, honoring the --locked flag.
func buildOrchestrator(logger *slog.Logger) *graph.Orchestrator {
	return graph.NewOrchestrator(buildGatherer(), logger)
}

// buildGatherer returns the CargoRunner gatherer shared by every
// subcommand that needs raw workspace metadata, honoring --locked.
func buildGatherer() *pkgmanager.CargoRunner {
	return &pkgmanager.CargoRunner{Locked: lockedFlag}
}

// singlePlatform picks one platform to gather metadata for when a
// command (like update) needs a single representative view of the
// workspace rather than a per-platform resolution: the first
// configured platform, or the platform-independent view if none is
// configured.
func singlePlatform(cfg *config.Config) graph.Platform {
	plats := platforms(cfg)
	if len(plats) == 0 {
		return ""
	}
	return plats[0]
}

// platforms resolves the effective platform set from the --platform
// flag and the configuration file, the flag taking precedence.
func platforms(cfg *config.Config) []graph.Platform {
	raw := platformFlag
	if len(raw) == 0 {
		raw = cfg.Platforms
	}
	out := make([]graph.Platform, 0, len(raw))
	for _, p := range raw {
		out = append(out, graph.Platform(p))
	}
	return out
}

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

// Package config loads resolvediff.yaml, the project-level
// configuration for which platforms to resolve and which crates are
// exempt from major-update review.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/GiGainfosystems/cargo-resolvediff/internal/secureio"
)

// Config is the top-level resolvediff.yaml document.
type Config struct {
	// Platforms lists the target triples to resolve against. An empty
	// list resolves only the platform-independent view.
	Platforms []string `yaml:"platforms"`

	// IncludeFiltered, when true, switches the resolution orchestrator
	// into filter-to-platforms mode: the configured Platforms are
	// resolved strictly (no platform-independent merge pass), and the
	// crates an unfiltered resolution would additionally have reached
	// are reported separately as Resolved.Filtered instead of being
	// folded into Included.
	IncludeFiltered bool `yaml:"includeFiltered"`

	// MajorUpdateIgnore lists crate names excluded from major-update
	// candidacy regardless of what the registry publishes.
	MajorUpdateIgnore []string `yaml:"majorUpdateIgnore"`

	// AllowPrerelease is the file form of update's --allow-prerelease
	// flag: it lets prerelease versions past the registry filter during
	// major-update selection. resolve.IsMajorUpdateFor never classifies
	// a prerelease as a major update, so none is selected either way.
	AllowPrerelease bool `yaml:"allowPrerelease"`
}

// Load reads and parses a resolvediff.yaml file at path.
func Load(path string) (*Config, error) {
	data, err := secureio.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// IsIgnored reports whether crateName is excluded from major-update
// candidacy by this configuration.
func (c *Config) IsIgnored(crateName string) bool {
	for _, name := range c.MajorUpdateIgnore {
		if name == crateName {
			return true
		}
	}
	return false
}

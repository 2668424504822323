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

package resolve

import (
	"testing"

	"github.com/Masterminds/semver/v3"
)

func mustVersion(t *testing.T, s string) *semver.Version {
	t.Helper()
	v, err := semver.NewVersion(s)
	if err != nil {
		t.Fatalf("parse version %q: %v", s, err)
	}
	return v
}

func TestRequirementMatches(t *testing.T) {
	tests := []struct {
		req     string
		version string
		want    bool
	}{
		{"1.2.3", "1.2.3", true},
		{"1.2.3", "1.3.0", true}, // implicit caret
		{"1.2.3", "2.0.0", false},
		{"^0.2.3", "0.2.5", true},
		{"^0.2.3", "0.3.0", false},
		{"^0.0.3", "0.0.3", true},
		{"^0.0.3", "0.0.4", false},
		{"~1.2.3", "1.2.9", true},
		{"~1.2.3", "1.3.0", false},
		{"=1.2.3", "1.2.3", true},
		{"=1.2.3", "1.2.4", false},
		{">=1.0.0", "5.0.0", true},
		{"<2.0.0", "1.9.9", true},
		{"<2.0.0", "2.0.0", false},
		{"*", "9.9.9", true},
	}

	for _, tt := range tests {
		t.Run(tt.req+"/"+tt.version, func(t *testing.T) {
			req, err := ParseRequirement(tt.req)
			if err != nil {
				t.Fatalf("ParseRequirement(%q): %v", tt.req, err)
			}
			got := req.Matches(mustVersion(t, tt.version))
			if got != tt.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.req, tt.version, got, tt.want)
			}
		})
	}
}

func TestIsMajorUpdateFor(t *testing.T) {
	tests := []struct {
		req       string
		candidate string
		want      bool
	}{
		// Already satisfied by the requirement: never a major update.
		{"1.2.3", "1.9.0", false},
		{"^1.2.3", "1.99.0", false},
		// Crosses the requirement's implicit upper bound: a major update.
		{"1.2.3", "2.0.0", true},
		{"^0.2.3", "0.3.0", true},
		// Prerelease candidates never count, even past the bound.
		{"1.2.3", "2.0.0-rc.1", false},
		// Exact pin: anything else is a major update.
		{"=1.2.3", "1.2.4", true},
		// Explicit "<" upper bound matching the candidate exactly: the
		// author fenced off precisely this version on purpose, so it is
		// not treated as a missed major update.
		{"<2.0.0", "2.0.0", false},
		{"<2.0.0", "2.1.0", true},
		{"<2.0.0", "1.5.0", false},
		// ">=" with no effective ceiling: nothing further counts as major.
		{">=1.0.0", "1.0.0", false},
		// Multi-comparator ranges must check every comparator, not just
		// the first: ">=1.0.0, <3.0.0" fences off 3.0.0 exactly even
		// though the lower bound alone wouldn't.
		{">=1.0.0, <3.0.0", "3.0.0", false},
		{">=1.0.0, <3.0.0", "3.1.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.req+"/"+tt.candidate, func(t *testing.T) {
			req, err := ParseRequirement(tt.req)
			if err != nil {
				t.Fatalf("ParseRequirement(%q): %v", tt.req, err)
			}
			got := IsMajorUpdateFor(req, mustVersion(t, tt.candidate))
			if got != tt.want {
				t.Errorf("IsMajorUpdateFor(%q, %q) = %v, want %v", tt.req, tt.candidate, got, tt.want)
			}
		})
	}
}

func TestParseRequirementRejectsEmpty(t *testing.T) {
	if _, err := ParseRequirement(""); err == nil {
		t.Fatal("expected error for empty requirement")
	}
}

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

// Package resolve parses Cargo-style version requirements and decides
// whether a candidate version counts as a "major update" relative to a
// manifest's current requirement.
//
// The constraint syntaxes supported are Cargo's own: a bare version
// (implicit caret, e.g. "1.2.3" means "^1.2.3"), "^", "~", "=", ">",
// ">=", "<", "<=", and comma-separated AND-lists of the above.
// Masterminds/semver/v3 parses and compares individual Version values,
// but exposes constraint sets only as an opaque Check(); the major-
// update algorithm needs to inspect each comparator's operator and its
// "implicit tuple" (the parts of the version the comparator does NOT
// pin) independently, so Comparator/Requirement are a small
// purpose-built representation layered directly on top of
// semver.Version, in the same spirit as this file's previous
// ParsedConstraint abstraction.
package resolve

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Op is a single comparator operator in a Cargo version requirement.
type Op int

const (
	OpCaret Op = iota
	OpTilde
	OpExact
	OpGreater
	OpGreaterEq
	OpLess
	OpLessEq
	OpWildcard
)

// Comparator is one operator + partial-version term of a requirement,
// e.g. the "^1.2" in "^1.2, != 1.2.5".
type Comparator struct {
	Op       Op
	Major    int64
	Minor    *int64
	Patch    *int64
	HasMajor bool
	HasMinor bool
	HasPatch bool
}

// Requirement is a comma-separated AND-list of Comparators, Cargo's
// full version-requirement grammar.
type Requirement struct {
	Original    string
	Comparators []Comparator
}

// ParseRequirement parses a Cargo-style version requirement string.
func ParseRequirement(req string) (*Requirement, error) {
	original := req
	req = strings.TrimSpace(req)
	if req == "" {
		return nil, fmt.Errorf("empty version requirement")
	}

	parts := strings.Split(req, ",")
	comparators := make([]Comparator, 0, len(parts))
	for _, part := range parts {
		c, err := parseComparator(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("parse requirement %q: %w", original, err)
		}
		comparators = append(comparators, c)
	}

	return &Requirement{Original: original, Comparators: comparators}, nil
}

func parseComparator(term string) (Comparator, error) {
	var op Op
	rest := term

	switch {
	case strings.HasPrefix(term, "^"):
		op = OpCaret
		rest = term[1:]
	case strings.HasPrefix(term, "~"):
		op = OpTilde
		rest = term[1:]
	case strings.HasPrefix(term, ">="):
		op = OpGreaterEq
		rest = term[2:]
	case strings.HasPrefix(term, "<="):
		op = OpLessEq
		rest = term[2:]
	case strings.HasPrefix(term, ">"):
		op = OpGreater
		rest = term[1:]
	case strings.HasPrefix(term, "<"):
		op = OpLess
		rest = term[1:]
	case strings.HasPrefix(term, "="):
		op = OpExact
		rest = term[1:]
	default:
		// Bare version: Cargo's implicit default is caret.
		op = OpCaret
		rest = term
	}

	rest = strings.TrimSpace(rest)
	if strings.Contains(rest, "*") {
		op = OpWildcard
	}

	c := Comparator{Op: op}

	segs := strings.SplitN(rest, "-", 2) // strip prerelease/build for numeric parse
	numeric := strings.SplitN(segs[0], "+", 2)[0]
	fields := strings.Split(numeric, ".")

	if len(fields) > 0 && fields[0] != "*" && fields[0] != "" {
		c.HasMajor = true
	}

	major, err := parseNumericField(fields, 0)
	if err != nil {
		return Comparator{}, err
	}
	c.Major = major

	if minor, ok, err := parseOptionalField(fields, 1); err != nil {
		return Comparator{}, err
	} else if ok {
		c.Minor = &minor
		c.HasMinor = true
	}

	if patch, ok, err := parseOptionalField(fields, 2); err != nil {
		return Comparator{}, err
	} else if ok {
		c.Patch = &patch
		c.HasPatch = true
	}

	return c, nil
}

func parseNumericField(fields []string, idx int) (int64, error) {
	if idx >= len(fields) || fields[idx] == "*" || fields[idx] == "" {
		return 0, nil
	}
	return strconv.ParseInt(fields[idx], 10, 64)
}

func parseOptionalField(fields []string, idx int) (int64, bool, error) {
	if idx >= len(fields) || fields[idx] == "*" || fields[idx] == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseInt(fields[idx], 10, 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// Matches reports whether version satisfies every comparator in the
// requirement (the AND semantics of a comma-separated list).
func (r *Requirement) Matches(version *semver.Version) bool {
	for _, c := range r.Comparators {
		if !c.matches(version) {
			return false
		}
	}
	return true
}

func (c Comparator) matches(v *semver.Version) bool {
	switch c.Op {
	case OpWildcard:
		if !c.HasMajor {
			return true
		}
		if int64(v.Major()) != c.Major {
			return false
		}
		if c.HasMinor && int64(v.Minor()) != *c.Minor {
			return false
		}
		return true
	case OpExact:
		return int64(v.Major()) == c.Major &&
			(!c.HasMinor || int64(v.Minor()) == *c.Minor) &&
			(!c.HasPatch || int64(v.Patch()) == *c.Patch)
	case OpGreater:
		return compareToComparator(v, c) > 0
	case OpGreaterEq:
		return compareToComparator(v, c) >= 0
	case OpLess:
		return compareToComparator(v, c) < 0
	case OpLessEq:
		return compareToComparator(v, c) <= 0
	case OpTilde:
		if int64(v.Major()) != c.Major {
			return false
		}
		if c.HasMinor && int64(v.Minor()) != *c.Minor {
			return false
		}
		return compareToComparator(v, c) >= 0
	case OpCaret:
		if !caretCompatible(v, c) {
			return false
		}
		return compareToComparator(v, c) >= 0
	}
	return false
}

// compareToComparator compares v against the fully-qualified version
// implied by c's explicit fields (missing fields treated as 0), used
// for ordering comparisons regardless of operator.
func compareToComparator(v *semver.Version, c Comparator) int {
	minor := int64(0)
	if c.HasMinor {
		minor = *c.Minor
	}
	patch := int64(0)
	if c.HasPatch {
		patch = *c.Patch
	}
	switch {
	case int64(v.Major()) != c.Major:
		return cmp64(int64(v.Major()), c.Major)
	case int64(v.Minor()) != minor:
		return cmp64(int64(v.Minor()), minor)
	default:
		return cmp64(int64(v.Patch()), patch)
	}
}

func cmp64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// caretCompatible implements Cargo's caret compatibility rule,
// including its special-cased behavior for 0.x and 0.0.x versions:
// ^1.2.3 allows 1.x.x >= 1.2.3; ^0.2.3 allows only 0.2.x >= 0.2.3;
// ^0.0.3 allows only 0.0.3 exactly.
func caretCompatible(v *semver.Version, c Comparator) bool {
	switch {
	case c.Major > 0:
		return int64(v.Major()) == c.Major
	case c.HasMinor && *c.Minor > 0:
		return int64(v.Major()) == 0 && int64(v.Minor()) == *c.Minor
	case c.HasPatch:
		return int64(v.Major()) == 0 && int64(v.Minor()) == 0 && int64(v.Patch()) == *c.Patch
	case c.HasMinor:
		return int64(v.Major()) == 0 && int64(v.Minor()) == 0
	default:
		return int64(v.Major()) == 0
	}
}

// IsMajorUpdateFor reports whether candidate is a "major update"
// relative to requirement: a version that the requirement does NOT
// already match, is not a prerelease, and was not explicitly fenced
// off by one of requirement's own comparators. This mirrors
// original_source/src/major_updates.rs::is_major_update_for exactly:
//
//  1. if requirement already matches candidate, it is not a major
//     update (the manifest already permits it);
//  2. a prerelease candidate never qualifies as a major update;
//  3. for every comparator in the requirement (not just a lone one),
//     build its "implicit tuple": the comparator's own major, its own
//     minor/patch where the comparator specifies them, and candidate's
//     stripped minor/patch where it doesn't;
//  4. a "<"/"<=" comparator whose implicit tuple exactly equals
//     candidate's stripped version disqualifies it (the requirement's
//     author fenced it off deliberately, so it isn't "missed", it was
//     excluded on purpose);
//  5. an "="/">"/">="/"~"/"^" comparator whose implicit tuple is >=
//     candidate's stripped version disqualifies it (the requirement
//     already reaches that far).
//
// A wildcard comparator never disqualifies — matches would already
// have accepted a candidate a wildcard comparator covers.
func IsMajorUpdateFor(requirement *Requirement, candidate *semver.Version) bool {
	if requirement.Matches(candidate) {
		return false
	}

	if candidate.Prerelease() != "" {
		return false
	}

	stripped, err := stripPrerelease(candidate)
	if err != nil {
		return true
	}

	for _, c := range requirement.Comparators {
		implied, err := impliedVersion(c, stripped)
		if err != nil {
			continue
		}
		switch c.Op {
		case OpLess, OpLessEq:
			if implied.Equal(stripped) {
				return false
			}
		case OpExact, OpGreater, OpGreaterEq, OpTilde, OpCaret:
			if implied.Compare(stripped) >= 0 {
				return false
			}
		}
	}
	return true
}

// impliedVersion builds the fully-qualified version a comparator
// implies when its own unspecified fields are filled in from
// candidate, matching original_source's `i.minor.unwrap_or(version.minor)`
// fallback — the candidate's own minor/patch, not zero.
func impliedVersion(c Comparator, candidate *semver.Version) (*semver.Version, error) {
	minor := int64(candidate.Minor())
	if c.HasMinor {
		minor = *c.Minor
	}
	patch := int64(candidate.Patch())
	if c.HasPatch {
		patch = *c.Patch
	}
	return semver.NewVersion(fmt.Sprintf("%d.%d.%d", c.Major, minor, patch))
}

func stripPrerelease(v *semver.Version) (*semver.Version, error) {
	return semver.NewVersion(fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch()))
}

// LatestVersion is the three-way result of searching a registry for the
// latest major update of a crate, mirroring
// original_source/src/major_updates.rs::LatestVersion.
type LatestVersion int

const (
	// CrateNotFound means the registry has no record of the crate.
	CrateNotFound LatestVersion = iota
	// NoMajorUpdates means the crate exists but nothing it publishes
	// qualifies as a major update over the current requirement.
	NoMajorUpdates
	// NewestUpdate carries the selected candidate version.
	NewestUpdate
)

// String implements fmt.Stringer for logging.
func (l LatestVersion) String() string {
	switch l {
	case CrateNotFound:
		return "crate-not-found"
	case NoMajorUpdates:
		return "no-major-updates"
	case NewestUpdate:
		return "newest-update"
	default:
		return "unknown"
	}
}

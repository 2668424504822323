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

// Package tomledit edits TOML manifests in place, rewriting exactly the
// bytes of a single dependency's version requirement while leaving
// every other byte of the file — formatting, comments, key order —
// untouched.
//
// go-toml/v2 decodes but does not offer a document/AST mutation API
// capable of a format-preserving rewrite, so structural discovery (what
// tables and keys exist) is done with go-toml/v2, while the actual
// mutation is a targeted, line-oriented text rewrite: scan line by
// line, match the table header and key being edited, and replace only
// the value literal on that line.
package tomledit

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/GiGainfosystems/cargo-resolvediff/internal/secureio"
)

var sectionHeaderPattern = regexp.MustCompile(`^\s*\[([^\[\]]+)\]\s*(#.*)?$`)

// MutableTomlFile is an in-memory, round-trippable view of a single
// TOML manifest, tracking both a structural decode (for lookups) and
// the original source text (for format-preserving writes).
type MutableTomlFile struct {
	path             string
	dirty            bool
	previousContents string
	lines            []string
	document         map[string]interface{}
}

// Open reads path and parses it, returning a MutableTomlFile ready for
// inspection and editing.
func Open(path string) (*MutableTomlFile, error) {
	raw, err := secureio.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	doc := map[string]interface{}{}
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	contents := string(raw)
	return &MutableTomlFile{
		path:             path,
		previousContents: contents,
		lines:            splitLinesKeepEnding(contents),
		document:         doc,
	}, nil
}

// Path returns the manifest path this file was opened from.
func (f *MutableTomlFile) Path() string { return f.path }

// Document returns the decoded TOML document for read-only structural
// lookups (which tables exist, what keys they hold).
func (f *MutableTomlFile) Document() map[string]interface{} { return f.document }

// Dirty reports whether any mutation has been made since Open or the
// last Commit/RollBack.
func (f *MutableTomlFile) Dirty() bool { return f.dirty }

// PathLookup walks a dotted table path (e.g. "dependencies", "target",
// "cfg(unix)", "dependencies") through the decoded document and returns
// the table found there, if any.
func (f *MutableTomlFile) PathLookup(tablePath ...string) (map[string]interface{}, bool) {
	return pathLookup(f.document, tablePath)
}

func pathLookup(doc map[string]interface{}, tablePath []string) (map[string]interface{}, bool) {
	cur := doc
	for _, key := range tablePath {
		next, ok := cur[key]
		if !ok {
			return nil, false
		}
		table, ok := next.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur = table
	}
	return cur, true
}

// SetDependencyVersion rewrites the version requirement string for
// depName inside the table identified by tableHeader (the exact bracket
// contents of a TOML table header, e.g. "dependencies" or
// "target.'cfg(unix)'.dependencies"), to newReq. It supports both
// string-valued dependencies (`foo = "1.2"`) and inline-table-valued
// dependencies (`foo = { version = "1.2", features = [...] }`),
// rewriting only the version literal and leaving every other byte on
// the line untouched. It returns an error if the table or key cannot be
// found.
func (f *MutableTomlFile) SetDependencyVersion(tableHeader, depName, newReq string) error {
	inSection := false
	found := false

	depLinePattern := regexp.MustCompile(`^(\s*)` + regexp.QuoteMeta(quoteKeyIfNeeded(depName)) + `(\s*=\s*)(.+?)(\s*(#.*)?)$`)
	versionInTablePattern := regexp.MustCompile(`(version\s*=\s*)"([^"]*)"`)
	bareStringPattern := regexp.MustCompile(`^"([^"]*)"$`)

	for i, line := range f.lines {
		trimmed := strings.TrimRight(line, "\r\n")
		if m := sectionHeaderPattern.FindStringSubmatch(trimmed); m != nil {
			inSection = normalizeHeader(m[1]) == normalizeHeader(tableHeader)
			continue
		}
		if !inSection {
			continue
		}

		m := depLinePattern.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}

		value := strings.TrimSpace(m[3])
		switch {
		case bareStringPattern.MatchString(value):
			f.lines[i] = m[1] + depName + m[2] + `"` + newReq + `"` + m[4] + lineEnding(line)
			found = true
		case strings.HasPrefix(value, "{"):
			if !versionInTablePattern.MatchString(value) {
				return fmt.Errorf("dependency %q in [%s] has no version key to rewrite", depName, tableHeader)
			}
			newValue := versionInTablePattern.ReplaceAllString(value, `${1}"`+newReq+`"`)
			f.lines[i] = m[1] + depName + m[2] + newValue + m[4] + lineEnding(line)
			found = true
		default:
			return fmt.Errorf("dependency %q in [%s] has an unsupported value shape: %q", depName, tableHeader, value)
		}

		if found {
			break
		}
	}

	if !found {
		return fmt.Errorf("dependency %q not found in [%s]", depName, tableHeader)
	}

	f.dirty = true
	return nil
}

// ElideCaretPrefix strips a leading "^" from req when it is the sole
// comparator: an implicit-caret requirement (Cargo's default when no
// operator is given) is written back without the explicit "^" that an
// internal parse step may have normalized onto it.
func ElideCaretPrefix(req string) string {
	trimmed := strings.TrimSpace(req)
	if strings.Contains(trimmed, ",") {
		return req
	}
	if strings.HasPrefix(trimmed, "^") {
		return strings.TrimPrefix(trimmed, "^")
	}
	return req
}

// Contents returns the current in-memory text, reflecting any pending
// (uncommitted) edits.
func (f *MutableTomlFile) Contents() string { return strings.Join(f.lines, "") }

// PreviousContents returns the text observed at Open, or at the last
// Commit/RollBack, whichever is most recent — the baseline a caller
// diffs Contents against to show a dependency-update reviewer exactly
// what changed.
func (f *MutableTomlFile) PreviousContents() string { return f.previousContents }

// WriteBack atomically writes the current in-memory text to Path.
func (f *MutableTomlFile) WriteBack() error {
	return secureio.AtomicWriteFile(f.path, []byte(strings.Join(f.lines, "")), 0o644)
}

// Commit writes back the current contents and re-baselines
// previousContents/dirty so a subsequent RollBack would be a no-op.
func (f *MutableTomlFile) Commit() error {
	if err := f.WriteBack(); err != nil {
		return err
	}
	f.previousContents = strings.Join(f.lines, "")
	f.dirty = false
	return nil
}

// RollBack discards every in-memory mutation, restoring and
// re-persisting the contents observed at Open (or the last Commit).
func (f *MutableTomlFile) RollBack() error {
	f.lines = splitLinesKeepEnding(f.previousContents)
	doc := map[string]interface{}{}
	if err := toml.Unmarshal([]byte(f.previousContents), &doc); err != nil {
		return fmt.Errorf("re-parse on rollback: %w", err)
	}
	f.document = doc
	f.dirty = false
	return f.WriteBack()
}

func normalizeHeader(h string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(h, "'", "\"")), "")
}

func quoteKeyIfNeeded(key string) string {
	return key
}

func lineEnding(line string) string {
	if strings.HasSuffix(line, "\r\n") {
		return "\r\n"
	}
	if strings.HasSuffix(line, "\n") {
		return "\n"
	}
	return ""
}

func splitLinesKeepEnding(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

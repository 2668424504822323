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

// Package registry is the external collaborator boundary for querying a
// crate registry's published versions. CratesIOClient is a concrete
// implementation: a small http.Client with a fixed timeout, a
// context-aware request, and a typed JSON decode of the response body.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// CrateVersion is one published version of a crate as reported by the
// registry.
type CrateVersion struct {
	Version string `json:"num"`
	Yanked  bool   `json:"yanked"`
}

// Client is the interface the major-update fetch pipeline depends on;
// internal/graph and internal/diff never import it directly.
type Client interface {
	Versions(ctx context.Context, crateName string) ([]CrateVersion, error)
}

// ErrCrateNotFound is returned by CratesIOClient.Versions when the
// registry has no record of the requested crate.
var ErrCrateNotFound = fmt.Errorf("crate not found in registry")

// CratesIOClient queries the crates.io API for a crate's published
// versions.
type CratesIOClient struct {
	client  *http.Client
	baseURL string
}

// NewCratesIOClient returns a CratesIOClient with a 10-second request
// timeout.
func NewCratesIOClient() *CratesIOClient {
	return &CratesIOClient{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: "https://crates.io/api/v1/crates",
	}
}

type crateVersionsResponse struct {
	Versions []CrateVersion `json:"versions"`
}

// Versions returns every published version of crateName, including
// yanked ones; callers that care about the major-update algorithm's
// "exclude yanked versions" rule filter them out explicitly.
func (c *CratesIOClient) Versions(ctx context.Context, crateName string) ([]CrateVersion, error) {
	url := fmt.Sprintf("%s/%s/versions", c.baseURL, crateName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", crateName, err)
	}
	req.Header.Set("User-Agent", "cargo-resolvediff")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch versions for %s: %w", crateName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrCrateNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching versions for %s", resp.StatusCode, crateName)
	}

	var decoded crateVersionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode versions for %s: %w", crateName, err)
	}

	return decoded.Versions, nil
}

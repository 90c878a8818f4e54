// Copyright (c) 2026 ShieldEye Project
// SPDX-License-Identifier: GPL-3.0-or-later

// Package update implements the self-update pipeline: manifest fetch,
// version comparison, integrity-verified download, and the platform
// install handoff.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	goversion "github.com/hashicorp/go-version"
)

const (
	checkTimeout = 10 * time.Second
	userAgent    = "ShieldEye/1.0"

	auditSource = "update checker"
)

// Auditor records audit-trail entries on behalf of the update pipeline.
// repo.Repository satisfies it.
type Auditor interface {
	RecordActivity(ctx context.Context, level, eventType, source, message, stack, tags string)
}

// Manifest is the remote update document.
type Manifest struct {
	Version     string                     `json:"version"`
	ReleaseDate string                     `json:"release_date"`
	RepoURL     string                     `json:"repo_url"`
	Platforms   map[string]PlatformPayload `json:"platforms"`
}

// PlatformPayload describes one platform's downloadable artifact.
type PlatformPayload struct {
	DownloadURL string `json:"download_url"`
	Hash        string `json:"hash"` // sha-256, lowercase hex
}

// Info is the normalized update descriptor for the running platform.
type Info struct {
	Version     string
	ReleaseDate string
	RepoURL     string
	DownloadURL string
	Hash        string
}

// MissingPlatformError reports a manifest without an entry for this OS.
type MissingPlatformError struct {
	OS string
}

func (e *MissingPlatformError) Error() string {
	return fmt.Sprintf("manifest has no entry for platform %q", e.OS)
}

// Checker fetches and resolves the update manifest.
type Checker struct {
	client      *http.Client
	manifestURL string
	platform    string
	auditor     Auditor
}

// NewChecker creates a Checker for the given manifest URL. auditor may be
// nil when no audit trail is wired (tests).
func NewChecker(manifestURL string, auditor Auditor) *Checker {
	return &Checker{
		client:      &http.Client{Timeout: checkTimeout},
		manifestURL: manifestURL,
		platform:    runtime.GOOS,
		auditor:     auditor,
	}
}

// Check performs a single bounded-timeout fetch of the manifest and
// resolves the current platform's payload. Every failure is audited and
// returned as an error; nothing is raised past this boundary.
func (c *Checker) Check(ctx context.Context) (Info, error) {
	info, err := c.check(ctx)
	if err != nil {
		c.audit(ctx, err)
		return Info{}, err
	}
	return info, nil
}

func (c *Checker) check(ctx context.Context) (Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.manifestURL, nil)
	if err != nil {
		return Info{}, fmt.Errorf("building manifest request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return Info{}, fmt.Errorf("fetching manifest: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Info{}, fmt.Errorf("fetching manifest: unexpected status %s", resp.Status)
	}

	var m Manifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return Info{}, fmt.Errorf("parsing manifest: %w", err)
	}

	payload, ok := m.Platforms[c.platform]
	if !ok {
		return Info{}, &MissingPlatformError{OS: c.platform}
	}
	if payload.DownloadURL == "" {
		return Info{}, fmt.Errorf("manifest entry for %q has no download_url", c.platform)
	}

	return Info{
		Version:     m.Version,
		ReleaseDate: m.ReleaseDate,
		RepoURL:     m.RepoURL,
		DownloadURL: payload.DownloadURL,
		Hash:        payload.Hash,
	}, nil
}

func (c *Checker) audit(ctx context.Context, cause error) {
	if c.auditor == nil {
		return
	}
	c.auditor.RecordActivity(ctx, "error", "update check", auditSource,
		cause.Error(), "", "Checker.Check")
}

// IsNewerThan reports whether the manifest version is strictly newer than
// the running version under semantic ordering ("1.10.0" > "1.9.0"). An
// equal version means already up to date. When either side fails to parse
// as a version, only exact string inequality counts as an update.
func (i Info) IsNewerThan(current string) bool {
	manifest, err1 := goversion.NewVersion(i.Version)
	running, err2 := goversion.NewVersion(current)
	if err1 != nil || err2 != nil {
		return i.Version != "" && i.Version != current
	}
	return manifest.GreaterThan(running)
}

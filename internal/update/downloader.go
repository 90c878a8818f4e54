// Copyright (c) 2026 ShieldEye Project
// SPDX-License-Identifier: GPL-3.0-or-later

package update

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	downloadTimeout = 30 * time.Second
	chunkSize       = 32 * 1024

	// ProgressUnknown is reported once when the server omits a
	// content-length and per-chunk percentages cannot be computed.
	ProgressUnknown = -1
)

var (
	// ErrDigestMismatch marks an artifact whose sha-256 digest does not
	// match the manifest. The file is deleted and never installed.
	ErrDigestMismatch = errors.New("hash mismatch: file may be corrupted or tampered with")

	// ErrCancelled marks a download aborted by the user. The partial file
	// is deleted; cancellation is a distinct outcome, not a failure.
	ErrCancelled = errors.New("download cancelled")
)

// ProgressFunc receives download progress in the range 0-100, or
// ProgressUnknown once when the total size is not known.
type ProgressFunc func(percent int)

// Downloader streams update artifacts to local disk and verifies their
// digest before handing them to the installer.
type Downloader struct {
	client  *http.Client
	dir     string // destination directory, platform temp dir by default
	auditor Auditor
}

// NewDownloader creates a Downloader writing into the platform temp
// directory. auditor may be nil.
func NewDownloader(auditor Auditor) *Downloader {
	return &Downloader{
		client: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: downloadTimeout,
			},
		},
		dir:     os.TempDir(),
		auditor: auditor,
	}
}

// Download streams the artifact at rawURL to disk in fixed-size chunks,
// reporting progress, then digests the complete file and compares it to
// expectedHash (sha-256, lowercase hex, exact match). The context is
// checked between chunks: on cancellation the partial file is removed and
// ErrCancelled returned. A digest mismatch removes the file and returns
// ErrDigestMismatch. Only a fully verified path is ever returned.
func (d *Downloader) Download(ctx context.Context, rawURL, expectedHash string, progress ProgressFunc) (string, error) {
	local, err := d.download(ctx, rawURL, expectedHash, progress)
	if err != nil {
		d.audit(ctx, err)
		return "", err
	}
	return local, nil
}

func (d *Downloader) download(ctx context.Context, rawURL, expectedHash string, progress ProgressFunc) (string, error) {
	if progress == nil {
		progress = func(int) {}
	}

	local, err := d.localPath(rawURL)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("building download request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("starting download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("starting download: unexpected status %s", resp.Status)
	}

	totalSize := resp.ContentLength
	if totalSize <= 0 {
		progress(ProgressUnknown)
	}

	out, err := os.Create(local)
	if err != nil {
		return "", fmt.Errorf("creating download file: %w", err)
	}

	if err := d.stream(ctx, out, resp.Body, totalSize, progress); err != nil {
		_ = out.Close()
		_ = os.Remove(local)
		return "", err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(local)
		return "", fmt.Errorf("writing download file: %w", err)
	}
	progress(100)

	actual, err := hashFile(local)
	if err != nil {
		_ = os.Remove(local)
		return "", err
	}
	if expectedHash != "" && actual != strings.ToLower(expectedHash) {
		_ = os.Remove(local)
		return "", ErrDigestMismatch
	}

	return local, nil
}

// stream copies the body in fixed-size chunks, checking for cancellation
// between chunks and reporting progress capped at 99 until the digest
// check completes.
func (d *Downloader) stream(ctx context.Context, out *os.File, body io.Reader, totalSize int64, progress ProgressFunc) error {
	buf := make([]byte, chunkSize)
	var downloaded int64

	for {
		if ctx.Err() != nil {
			return ErrCancelled
		}

		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return fmt.Errorf("writing download file: %w", werr)
			}
			downloaded += int64(n)
			if totalSize > 0 {
				percent := int(100 * downloaded / totalSize)
				if percent > 99 {
					percent = 99
				}
				progress(percent)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ErrCancelled
			}
			return fmt.Errorf("reading download stream: %w", err)
		}
	}
}

// localPath derives the destination file name from the URL's last path
// segment.
func (d *Downloader) localPath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing download url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("download url %q has no file name", rawURL)
	}
	return filepath.Join(d.dir, name), nil
}

func (d *Downloader) audit(ctx context.Context, cause error) {
	if d.auditor == nil {
		return
	}
	d.auditor.RecordActivity(ctx, "error", "update download", auditSource,
		cause.Error(), "", "Downloader.Download")
}

// hashFile digests the complete file with sha-256 and returns lowercase hex.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening file for digest: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("digesting file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Copyright (c) 2026 ShieldEye Project
// SPDX-License-Identifier: GPL-3.0-or-later

package update

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

const manifestBody = `{
	"version": "1.10.0",
	"release_date": "2026-08-20",
	"repo_url": "https://example.com/shieldeye",
	"platforms": {
		"linux":   {"download_url": "https://example.com/shieldeye-1.10.0.deb", "hash": "abc123"},
		"windows": {"download_url": "https://example.com/shieldeye-1.10.0.exe", "hash": "def456"},
		"darwin":  {"download_url": "https://example.com/shieldeye-1.10.0.pkg", "hash": "fed789"}
	}
}`

func newTestChecker(t *testing.T, handler http.HandlerFunc) *Checker {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewChecker(srv.URL, nil)
	c.client = srv.Client()
	return c
}

func TestCheckResolvesPlatform(t *testing.T) {
	c := newTestChecker(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != userAgent {
			t.Errorf("User-Agent = %q, want %q", got, userAgent)
		}
		_, _ = w.Write([]byte(manifestBody))
	})
	c.platform = "linux"

	info, err := c.Check(context.Background())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if info.Version != "1.10.0" {
		t.Errorf("Version = %q, want 1.10.0", info.Version)
	}
	if info.DownloadURL != "https://example.com/shieldeye-1.10.0.deb" {
		t.Errorf("DownloadURL = %q", info.DownloadURL)
	}
	if info.Hash != "abc123" {
		t.Errorf("Hash = %q, want abc123", info.Hash)
	}
}

func TestCheckMissingPlatform(t *testing.T) {
	c := newTestChecker(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(manifestBody))
	})
	c.platform = "plan9"

	_, err := c.Check(context.Background())
	var missing *MissingPlatformError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want MissingPlatformError", err)
	}
	if missing.OS != "plan9" {
		t.Errorf("OS = %q, want plan9", missing.OS)
	}
}

func TestCheckBadStatus(t *testing.T) {
	c := newTestChecker(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	if _, err := c.Check(context.Background()); err == nil {
		t.Fatal("expected error for 404 manifest")
	}
}

func TestCheckMalformedManifest(t *testing.T) {
	c := newTestChecker(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"version": `))
	})
	if _, err := c.Check(context.Background()); err == nil {
		t.Fatal("expected error for malformed manifest")
	}
}

func TestIsNewerThan(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		current  string
		want     bool
	}{
		{"newer patch", "1.0.1", "1.0.0", true},
		{"equal", "1.0.0", "1.0.0", false},
		{"older", "1.0.0", "1.2.0", false},
		{"numeric compare not lexical", "1.10.0", "1.9.0", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			info := Info{Version: tc.manifest}
			if got := info.IsNewerThan(tc.current); got != tc.want {
				t.Errorf("IsNewerThan(%q vs %q) = %v, want %v", tc.manifest, tc.current, got, tc.want)
			}
		})
	}
}

func testDownloader(t *testing.T, handler http.HandlerFunc) (*Downloader, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	d := NewDownloader(nil)
	d.client = srv.Client()
	d.dir = t.TempDir()
	return d, srv.URL
}

func TestDownloadVerifiesDigest(t *testing.T) {
	payload := []byte("shieldeye update artifact")
	sum := sha256.Sum256(payload)

	d, base := testDownloader(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	})

	var percents []int
	local, err := d.Download(context.Background(), base+"/shieldeye.deb",
		hex.EncodeToString(sum[:]), func(p int) { percents = append(percents, p) })
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	got, err := os.ReadFile(local)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if string(got) != string(payload) {
		t.Error("artifact content differs from served payload")
	}
	if len(percents) == 0 || percents[len(percents)-1] != 100 {
		t.Errorf("progress = %v, want final 100", percents)
	}
}

func TestDownloadDigestMismatchRemovesFile(t *testing.T) {
	d, base := testDownloader(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("tampered payload"))
	})

	_, err := d.Download(context.Background(), base+"/shieldeye.deb",
		strings.Repeat("0", 64), nil)
	if !errors.Is(err, ErrDigestMismatch) {
		t.Fatalf("err = %v, want ErrDigestMismatch", err)
	}
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		t.Fatalf("reading download dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("download dir not empty after mismatch: %v", entries)
	}
}

func TestDownloadUppercaseManifestHashAccepted(t *testing.T) {
	payload := []byte("case insensitive digest")
	sum := sha256.Sum256(payload)

	d, base := testDownloader(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	})

	if _, err := d.Download(context.Background(), base+"/shieldeye.deb",
		strings.ToUpper(hex.EncodeToString(sum[:])), nil); err != nil {
		t.Fatalf("Download: %v", err)
	}
}

func TestDownloadUnknownLength(t *testing.T) {
	payload := []byte("streamed without length")
	sum := sha256.Sum256(payload)

	d, base := testDownloader(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Transfer-Encoding", "chunked")
		_, _ = w.Write(payload)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	})

	var percents []int
	if _, err := d.Download(context.Background(), base+"/shieldeye.deb",
		hex.EncodeToString(sum[:]), func(p int) { percents = append(percents, p) }); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if len(percents) < 2 || percents[0] != ProgressUnknown || percents[len(percents)-1] != 100 {
		t.Errorf("progress = %v, want leading %d and final 100", percents, ProgressUnknown)
	}
}

func TestDownloadCancelledRemovesPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	d, base := testDownloader(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1048576")
		f := w.(http.Flusher)
		_, _ = w.Write(make([]byte, chunkSize))
		f.Flush()
		cancel()
		<-r.Context().Done()
	})

	_, err := d.Download(ctx, base+"/shieldeye.deb", "", nil)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		t.Fatalf("reading download dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("partial file left behind: %v", entries)
	}
}

func TestHandoffMessage(t *testing.T) {
	if got := handoffMessage("windows", `C:\tmp\shieldeye.exe`); !strings.Contains(got, "ready to install") {
		t.Errorf("windows message = %q", got)
	}
	if got := handoffMessage("linux", "/tmp/shieldeye.deb"); !strings.Contains(got, "dpkg -i /tmp/shieldeye.deb") {
		t.Errorf("linux message = %q", got)
	}
	if got := handoffMessage("darwin", "/tmp/shieldeye.pkg"); !strings.Contains(got, "Open the package") {
		t.Errorf("darwin message = %q", got)
	}
}

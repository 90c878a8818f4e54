// Copyright (c) 2026 ShieldEye Project
// SPDX-License-Identifier: GPL-3.0-or-later

// Package version provides build-time version information.
package version

// Application identity recorded on every audit-trail entry.
const (
	AppName = "ShieldEye (log analyzer) Desktop"
)

// appVersion is the running semantic version, injected via ldflags on
// release builds.
var appVersion = "1.0.0"

// Info contains build-time version information injected via ldflags.
type Info struct {
	Version   string // Semantic version from git tags (e.g., "v1.2.3")
	GitCommit string // Short git commit hash (e.g., "abc1234")
	BuildTime string // Build timestamp in RFC3339 format
}

// App returns the running application version used for update comparison.
func App() string {
	return appVersion
}

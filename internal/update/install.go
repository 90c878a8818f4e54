// Copyright (c) 2026 ShieldEye Project
// SPDX-License-Identifier: GPL-3.0-or-later

package update

import (
	"fmt"
	"os"
	"runtime"
)

// Handoff prepares a verified artifact for installation and returns the
// instruction shown to the user. On Windows the installer is launched by
// the user directly; elsewhere the package file is made executable and the
// matching package-manager command suggested.
func Handoff(artifactPath string) (string, error) {
	if runtime.GOOS != "windows" {
		if err := os.Chmod(artifactPath, 0o755); err != nil {
			return "", fmt.Errorf("marking artifact executable: %w", err)
		}
	}
	return handoffMessage(runtime.GOOS, artifactPath), nil
}

func handoffMessage(goos, artifactPath string) string {
	switch goos {
	case "windows":
		return fmt.Sprintf("Update ready to install at %s. Run the installer to finish updating.", artifactPath)
	case "darwin":
		return fmt.Sprintf("Update downloaded to %s. Open the package to finish updating.", artifactPath)
	default:
		return fmt.Sprintf("Update downloaded to %s. Install it with your package manager, e.g. sudo dpkg -i %s", artifactPath, artifactPath)
	}
}

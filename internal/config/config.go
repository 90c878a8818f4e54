// Copyright (c) 2026 ShieldEye Project
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the application configuration from environment
// variables. The Config object is constructed once at startup and passed
// explicitly into every component that needs it.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// DBFileName is the well-known datastore file name inside the data directory.
const DBFileName = "shield_eye_database.db"

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DataDir     string `env:"SHIELDEYE_DATA_DIR"` // Defaults to the per-user config dir
	ManifestURL string `env:"SHIELDEYE_MANIFEST_URL" envDefault:"https://raw.githubusercontent.com/shieldeye/shield-eye-desktop/refs/heads/master/version.json"`
	LogLevel    string `env:"SHIELDEYE_LOG_LEVEL" envDefault:"info"`

	// Credential store identity for the datastore passphrase.
	KeyringService string `env:"SHIELDEYE_KEYRING_SERVICE" envDefault:"ShieldEyeDesktop"`
	KeyringAccount string `env:"SHIELDEYE_KEYRING_ACCOUNT" envDefault:"db_encryption_key"`

	// Background task pool sizing.
	Workers int `env:"SHIELDEYE_WORKERS" envDefault:"3"`
}

// DBPath returns the full path of the encrypted datastore file.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, DBFileName)
}

// Load parses environment variables and returns a Config struct. When no
// data directory is configured, the per-user config directory is used and
// created with owner-only permissions.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.DataDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolving user config dir: %w", err)
		}
		cfg.DataDir = filepath.Join(base, "ShieldEyeDesktop")
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}

	return cfg, nil
}

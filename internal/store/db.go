// Copyright (c) 2026 ShieldEye Project
// SPDX-License-Identifier: GPL-3.0-or-later

// Package store owns the encrypted SQLite datastore: opening and keying
// connections, schema migrations, and the typed query layer. No other
// package touches the database file or the key material directly.
package store

import (
	"database/sql"
	"embed"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"

	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MinEngineVersion is the minimum SQLite library version the encrypted
// store is considered safe on. Older releases carry known query-planner
// defects (CVE-2025-6965).
const MinEngineVersion = 3050002 // 3.50.2

// DBConfig holds database connection pool options.
type DBConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultDBConfig returns sensible defaults for SQLite.
func DefaultDBConfig() DBConfig {
	return DBConfig{
		// WAL mode supports multiple readers but a single writer.
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

// Open opens the encrypted database and configures it. The passphrase is
// bound into the DSN so that every pooled connection is keyed the moment it
// is opened, before any other statement runs; a missing or wrong key fails
// every subsequent statement instead of silently operating on plaintext.
func Open(path, passphrase string) (*sql.DB, error) {
	return OpenWithConfig(path, passphrase, DefaultDBConfig())
}

// OpenWithConfig opens the encrypted database with custom pool options.
func OpenWithConfig(path, passphrase string, cfg DBConfig) (*sql.DB, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("opening database: empty passphrase")
	}

	db, err := sql.Open("sqlite3", dsn(path, passphrase))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",   // Write-Ahead Logging for better concurrency
		"PRAGMA busy_timeout=5000",  // Wait 5s when database is locked
		"PRAGMA synchronous=NORMAL", // Good balance of safety and speed
		"PRAGMA foreign_keys=ON",    // Enforce foreign key constraints
		"PRAGMA temp_store=MEMORY",  // Store temp tables in memory
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	// Verify the key actually decrypts the file. Ping alone does not read
	// pages, so touch the schema table explicitly.
	var n int
	if err := db.QueryRow("SELECT count(*) FROM sqlite_master").Scan(&n); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("verifying database key: %w", err)
	}

	return db, nil
}

// dsn builds the connection string with the key bound as a DSN parameter.
// A 64-character hex passphrase is passed in SQLCipher's raw-key form so no
// key derivation runs; anything else is passed as a plain passphrase.
func dsn(path, passphrase string) string {
	key := passphrase
	if isRawHexKey(passphrase) {
		key = fmt.Sprintf("x'%s'", passphrase)
	}
	params := url.Values{}
	params.Set("_pragma_key", key)
	params.Set("_pragma_cipher_page_size", "4096")
	return path + "?" + params.Encode()
}

// isRawHexKey reports whether s is exactly 32 hex-encoded bytes.
func isRawHexKey(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// Migrate runs all pending database migrations. It is idempotent and safe
// to call on every startup.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

// CheckEngineVersion compares the linked SQLite library against
// MinEngineVersion. It returns a human-readable warning when the library is
// older, and the empty string when it is current. The result is surfaced to
// the user once at startup, not treated as a hard abort.
func CheckEngineVersion() string {
	libVersion, libVersionNumber, _ := sqlite3.Version()
	return engineVersionWarning(libVersion, libVersionNumber)
}

func engineVersionWarning(libVersion string, libVersionNumber int) string {
	if libVersionNumber < MinEngineVersion {
		return fmt.Sprintf(
			"CRITICAL: SQLite version %s is outdated. Risk of CVE-2025-6965.",
			libVersion,
		)
	}
	return ""
}

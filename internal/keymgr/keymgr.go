// Copyright (c) 2026 ShieldEye Project
// SPDX-License-Identifier: GPL-3.0-or-later

// Package keymgr manages the datastore passphrase held in the platform's
// secure credential store. The passphrase is read once per process and
// treated as immutable; it is never logged or displayed.
package keymgr

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// passphraseBytes is the entropy of a generated passphrase: 32 random bytes,
// hex-encoded to 64 characters (256 bits).
const passphraseBytes = 32

// Manager obtains the datastore passphrase from the credential store.
type Manager struct {
	service string
	account string
}

// New creates a Manager for the given credential-store identity.
func New(service, account string) *Manager {
	return &Manager{service: service, account: account}
}

// Obtain returns the existing passphrase, or generates and stores a new one
// on first run. Any credential-store failure other than "not found" is
// returned unchanged: a silent fallback would leave the datastore keyed with
// a value that can never be recovered, so callers must treat an error here
// as fatal.
func (m *Manager) Obtain() (string, error) {
	secret, err := keyring.Get(m.service, m.account)
	if err == nil {
		return secret, nil
	}
	if !errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("reading credential store: %w", err)
	}

	secret, err = generate()
	if err != nil {
		return "", err
	}
	if err := keyring.Set(m.service, m.account, secret); err != nil {
		return "", fmt.Errorf("writing credential store: %w", err)
	}
	return secret, nil
}

// generate produces a cryptographically strong hex passphrase.
func generate() (string, error) {
	buf := make([]byte, passphraseBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating passphrase: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

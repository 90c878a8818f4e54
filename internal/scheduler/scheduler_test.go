// Copyright (c) 2026 ShieldEye Project
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shieldeye/shieldeye-go/internal/testutil"
	"github.com/shieldeye/shieldeye-go/internal/update"
)

type stubChecker struct {
	info update.Info
	err  error
}

func (s stubChecker) Check(ctx context.Context) (update.Info, error) {
	return s.info, s.err
}

func waitNotify(t *testing.T, ch <-chan update.Info) update.Info {
	t.Helper()
	select {
	case info := <-ch:
		return info
	case <-time.After(time.Second):
		t.Fatal("notify not called")
		return update.Info{}
	}
}

func TestStartNotifiesOnNewerVersion(t *testing.T) {
	notified := make(chan update.Info, 1)
	s := New(stubChecker{info: update.Info{Version: "99.0.0"}},
		func(info update.Info) { notified <- info }, testutil.TestLoggerSilent())

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	if got := waitNotify(t, notified); got.Version != "99.0.0" {
		t.Errorf("Version = %q, want 99.0.0", got.Version)
	}
}

func TestStartSilentWhenUpToDate(t *testing.T) {
	notified := make(chan update.Info, 1)
	s := New(stubChecker{info: update.Info{Version: "0.0.1"}},
		func(info update.Info) { notified <- info }, testutil.TestLoggerSilent())

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	select {
	case info := <-notified:
		t.Errorf("unexpected notify for version %q", info.Version)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCheckFailureNotFatal(t *testing.T) {
	s := New(stubChecker{err: errors.New("manifest unreachable")},
		func(update.Info) { t.Error("notify called on failed check") },
		testutil.TestLoggerSilent())

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	s.Stop()
}

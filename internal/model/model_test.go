// Copyright (c) 2026 ShieldEye Project
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"testing"
	"time"
)

func TestLevelCountsTotal(t *testing.T) {
	c := LevelCounts{Info: 3, Warn: 2, Error: 1, Critical: 4}
	if got := c.Total(); got != 10 {
		t.Errorf("Total() = %d, want 10", got)
	}
	if got := (LevelCounts{}).Total(); got != 0 {
		t.Errorf("Total() on zero value = %d, want 0", got)
	}
}

func TestEnabledLevels(t *testing.T) {
	tests := []struct {
		name   string
		policy PreferenceSetting
		want   []string
	}{
		{"all disabled", PreferenceSetting{}, nil},
		{"warn only", PreferenceSetting{Warn: "warning"}, []string{"warning"}},
		{"all enabled", PreferenceSetting{Warn: "warning", Error: "error", Critical: "critical"},
			[]string{"warning", "error", "critical"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.policy.EnabledLevels()
			if len(got) != len(tc.want) {
				t.Fatalf("EnabledLevels() = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("EnabledLevels()[%d] = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestNowFormat(t *testing.T) {
	got := Now()
	if _, err := time.Parse("2006-01-02 15:04:05", got); err != nil {
		t.Errorf("Now() = %q, not in wall-clock format: %v", got, err)
	}
}

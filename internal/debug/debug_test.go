// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package debug

import (
	"testing"
)

func TestEnabled_OffByDefault(t *testing.T) {
	t.Setenv("TASKRUN_DEBUG", "")
	ResetForTesting()

	if Enabled() {
		t.Error("Enabled() = true with TASKRUN_DEBUG unset, want false")
	}
}

func TestEnabled_States(t *testing.T) {
	testCases := []struct {
		value string
		want  bool
	}{
		{"", false},
		{"0", false},
		{"false", false},
		{"1", true},
		{"true", true},
		{"anything", true},
	}

	for _, tc := range testCases {
		t.Run("value="+tc.value, func(t *testing.T) {
			t.Setenv("TASKRUN_DEBUG", tc.value)
			ResetForTesting()

			if got := Enabled(); got != tc.want {
				t.Errorf("Enabled() with TASKRUN_DEBUG=%q = %v, want %v", tc.value, got, tc.want)
			}
		})
	}
}

func TestLogger_DisabledIsSilent(t *testing.T) {
	t.Setenv("TASKRUN_DEBUG", "")
	ResetForTesting()

	// Must not panic and must not write anywhere
	log := For("test")
	log.Debug().Str("key", "value").Msg("should be dropped")
}

func TestFor_TagsComponent(t *testing.T) {
	t.Setenv("TASKRUN_DEBUG", "1")
	ResetForTesting()
	defer ResetForTesting()

	// Smoke test: child logger is usable when enabled
	log := For("store")
	log.Debug().Int("tasks", 3).Msg("loaded")
}

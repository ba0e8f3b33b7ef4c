package consistency

import (
	"testing"
	"time"
)

func TestSweepSince_NoCheckpointUsesLookbackFloor(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	// No Redis in tests, so no checkpoint can exist.
	got := sweepSince(now, 15*time.Minute)
	if want := now.Add(-15 * time.Minute); !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseSweepCheckpoint(t *testing.T) {
	fallback := time.Date(2026, 8, 31, 11, 45, 0, 0, time.UTC)

	stamp := time.Date(2026, 8, 31, 11, 55, 0, 0, time.UTC)
	got := parseSweepCheckpoint(stamp.Format(time.RFC3339), fallback)
	if !got.Equal(stamp) {
		t.Fatalf("got %v, want %v", got, stamp)
	}

	if got := parseSweepCheckpoint("garbage", fallback); !got.Equal(fallback) {
		t.Fatalf("bad checkpoint must fall back, got %v", got)
	}
}

func TestEnvBoolDefault(t *testing.T) {
	cases := []struct {
		val  string
		def  bool
		want bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"on", false, true},
		{"false", true, false},
		{"off", true, false},
		{"", true, true},
		{"maybe", false, false},
	}
	for _, tc := range cases {
		t.Setenv("SWEEP_TEST_FLAG", tc.val)
		if got := envBoolDefault("SWEEP_TEST_FLAG", tc.def); got != tc.want {
			t.Fatalf("val=%q def=%v: got %v, want %v", tc.val, tc.def, got, tc.want)
		}
	}
}

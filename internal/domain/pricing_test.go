package domain

import (
	"errors"
	"testing"
)

func TestVideoCost(t *testing.T) {
	tests := []struct {
		name       string
		model      string
		multiplier float64
		want       int
		wantErr    error
	}{
		{name: "wan_2_5 standard", model: "wan_2_5", multiplier: 1.0, want: 38},
		{name: "wan_2_5 high priority rounds up", model: "wan_2_5", multiplier: 1.5, want: 57},
		{name: "wan_2_2 high priority", model: "wan_2_2", multiplier: 1.5, want: 36},
		{name: "turbo fractional multiplier rounds up", model: "wan_2_1_turbo", multiplier: 1.1, want: 14},
		{name: "zero multiplier defaults to standard", model: "wan_2_5", multiplier: 0, want: 38},
		{name: "empty model uses default", model: "", multiplier: 1.0, want: 38},
		{name: "unknown model", model: "sora_9000", multiplier: 1.0, wantErr: ErrUnknownModel},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := VideoCost(tc.model, tc.multiplier)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("VideoCost() error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("VideoCost() error = %v", err)
			}
			if got != tc.want {
				t.Fatalf("VideoCost(%q, %v) = %d, want %d", tc.model, tc.multiplier, got, tc.want)
			}
		})
	}
}

func TestImageCost(t *testing.T) {
	if got, err := ImageCost(""); err != nil || got != 6 {
		t.Fatalf("ImageCost(\"\") = %d, %v; want 6, nil", got, err)
	}
	if _, err := ImageCost("dalle_11"); !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("ImageCost(unknown) error = %v, want ErrUnknownModel", err)
	}
}

func TestJobStateTerminal(t *testing.T) {
	terminal := []JobState{JobStateSucceeded, JobStateFailed, JobStateCanceled, JobStateTimedOut}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("state %q should be terminal", s)
		}
	}
	for _, s := range []JobState{JobStateQueued, JobStateStarting, JobStateProcessing} {
		if s.Terminal() {
			t.Errorf("state %q should not be terminal", s)
		}
	}
}

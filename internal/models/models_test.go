package models

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestProgressAtAdvancesWhilePlaying(t *testing.T) {
	fetched := time.Now().UTC()
	p := &PlaybackState{
		IsPlaying:  true,
		ProgressMs: 10_000,
		Track:      Track{DurationMs: 200_000},
		FetchedAt:  fetched,
	}

	got := p.ProgressAt(fetched.Add(2 * time.Second))
	if got != 12_000 {
		t.Errorf("progress = %d, want 12000", got)
	}
}

func TestProgressAtMonotonic(t *testing.T) {
	fetched := time.Now().UTC()
	p := &PlaybackState{
		IsPlaying:  true,
		ProgressMs: 5_000,
		Track:      Track{DurationMs: 180_000},
		FetchedAt:  fetched,
	}

	prev := int64(-1)
	for i := 0; i < 10; i++ {
		got := p.ProgressAt(fetched.Add(time.Duration(i) * 500 * time.Millisecond))
		if got < prev {
			t.Fatalf("progress went backwards: %d after %d", got, prev)
		}
		prev = got
	}
}

func TestProgressAtClampedToDuration(t *testing.T) {
	fetched := time.Now().UTC()
	p := &PlaybackState{
		IsPlaying:  true,
		ProgressMs: 170_000,
		Track:      Track{DurationMs: 180_000},
		FetchedAt:  fetched,
	}

	got := p.ProgressAt(fetched.Add(time.Minute))
	if got != 180_000 {
		t.Errorf("progress = %d, want clamped to 180000", got)
	}
}

func TestProgressAtPausedDoesNotAdvance(t *testing.T) {
	fetched := time.Now().UTC()
	p := &PlaybackState{
		IsPlaying:  false,
		ProgressMs: 42_000,
		Track:      Track{DurationMs: 180_000},
		FetchedAt:  fetched,
	}

	if got := p.ProgressAt(fetched.Add(time.Hour)); got != 42_000 {
		t.Errorf("paused progress = %d, want 42000", got)
	}
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrInvalidRequest,
		ErrStateMismatch,
		ErrAuthExchangeFailed,
		ErrUpstreamAuth,
		ErrUpstreamFetch,
		ErrUnknownConnection,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel %v matches %v", a, b)
			}
		}
	}

	wrapped := fmt.Errorf("fetching queue: %w", ErrUpstreamFetch)
	if !errors.Is(wrapped, ErrUpstreamFetch) {
		t.Error("wrapped error should match ErrUpstreamFetch")
	}
}

package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
	if got := clock.Today(nil); got != "2024-01-15" {
		t.Fatalf("expected reference day 2024-01-15, got %q", got)
	}
}

func TestClockAdvanceAndSet(t *testing.T) {
	start := time.Date(2024, time.March, 14, 9, 26, 0, 0, time.UTC)
	clock := NewClock(start)

	updated := clock.Advance(90 * time.Minute)
	if !updated.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("advance returned %v", updated)
	}

	clock.Set(start.Add(2 * time.Hour))
	if got := clock.Now(); !got.Equal(start.Add(2 * time.Hour)) {
		t.Fatalf("expected %v, got %v", start.Add(2*time.Hour), got)
	}

	if got := clock.AdvanceDays(3); got.Format(time.DateOnly) != "2024-03-17" {
		t.Fatalf("expected three days later, got %v", got)
	}
}

func TestClockTodayUsesLocation(t *testing.T) {
	clock := NewClock(time.Date(2024, time.January, 15, 23, 30, 0, 0, time.UTC))
	tokyo := time.FixedZone("JST", 9*60*60)

	if got := clock.Today(tokyo); got != "2024-01-16" {
		t.Fatalf("expected next day in JST, got %q", got)
	}
}

func TestClockNowFunc(t *testing.T) {
	clock := NewClock(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	nowFn := clock.NowFunc()

	clock.Advance(time.Minute)
	if got := nowFn(); !got.Equal(clock.Now()) {
		t.Fatalf("expected updated time %v, got %v", clock.Now(), got)
	}

	var unset *Clock
	if unset.NowFunc() == nil {
		t.Fatalf("expected wall clock fallback for nil clock")
	}
}

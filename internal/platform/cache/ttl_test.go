package cache

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 14, 12, 0, 0, 0, time.UTC)

func TestTTLSetThenGet(t *testing.T) {
	c := NewTTL[string, int](time.Minute)
	c.Set("a", 42, 0, t0)

	got, ok := c.Get("a", t0.Add(59*time.Second))
	if !ok {
		t.Fatal("expected hit before expiry")
	}
	if got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
}

func TestTTLExpiresAtBoundary(t *testing.T) {
	c := NewTTL[string, int](time.Minute)
	c.Set("a", 1, 10*time.Second, t0)

	if _, ok := c.Get("a", t0.Add(10*time.Second)); ok {
		t.Fatal("entry must be absent at expiresAt")
	}
	if c.Len() != 0 {
		t.Fatalf("stale entry not evicted on read, len=%d", c.Len())
	}
}

func TestTTLSetOverwrites(t *testing.T) {
	c := NewTTL[string, string](time.Minute)
	c.Set("k", "old", time.Second, t0)
	c.Set("k", "new", time.Hour, t0)

	got, ok := c.Get("k", t0.Add(30*time.Minute))
	if !ok || got != "new" {
		t.Fatalf("got (%q, %v), want (new, true)", got, ok)
	}
}

func TestTTLSweepIsThrottled(t *testing.T) {
	c := NewTTL[string, int](time.Minute, WithSweepInterval(30*time.Second))

	// First Set sweeps (lastSweepAt is zero) and records t0.
	c.Set("short", 1, time.Second, t0)
	c.Set("long", 2, time.Hour, t0.Add(time.Second))

	// "short" is expired at t0+5s but no sweep runs within the interval.
	c.Set("other", 3, time.Hour, t0.Add(5*time.Second))
	if c.Len() != 3 {
		t.Fatalf("len = %d, want 3 (sweep should be throttled)", c.Len())
	}

	// Past the interval the next Set sweeps the expired entry.
	c.Set("later", 4, time.Hour, t0.Add(31*time.Second))
	if c.Len() != 3 {
		t.Fatalf("len = %d, want 3 after sweep", c.Len())
	}
	if _, ok := c.Get("long", t0.Add(31*time.Second)); !ok {
		t.Fatal("live entry removed by sweep")
	}
}

func TestTTLMissingGetSweeps(t *testing.T) {
	c := NewTTL[string, int](time.Minute, WithSweepInterval(30*time.Second))
	c.Set("short", 1, time.Second, t0)
	c.Set("long", 2, time.Hour, t0)

	// A lookup of an absent key past the interval still sweeps "short".
	if _, ok := c.Get("absent", t0.Add(31*time.Second)); ok {
		t.Fatal("absent key reported present")
	}
	if c.Len() != 1 {
		t.Fatalf("len = %d, want 1 after sweep", c.Len())
	}
}

func TestTTLClear(t *testing.T) {
	c := NewTTL[string, int](time.Minute)
	c.Set("a", 1, 0, t0)
	c.Set("b", 2, 0, t0)
	c.Clear()

	if c.Len() != 0 {
		t.Fatalf("len = %d after Clear", c.Len())
	}
	if _, ok := c.Get("a", t0); ok {
		t.Fatal("expected miss after Clear")
	}
}

func TestBucketTimestamp(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		minutes int
		want    string
	}{
		{name: "floors", input: "2026-01-14T12:07:00Z", minutes: 5, want: "2026-01-14T12:05:00.000Z"},
		{name: "just before boundary", input: "2026-01-14T12:09:59.999Z", minutes: 5, want: "2026-01-14T12:05:00.000Z"},
		{name: "on boundary", input: "2026-01-14T12:10:00Z", minutes: 5, want: "2026-01-14T12:10:00.000Z"},
		{name: "offset input", input: "2026-01-14T13:07:30+01:00", minutes: 5, want: "2026-01-14T12:05:00.000Z"},
		{name: "unparseable", input: "not-a-date", minutes: 5, want: "not-a-date"},
		{name: "zero width", input: "2026-01-14T12:07:00Z", minutes: 0, want: "2026-01-14T12:07:00Z"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BucketTimestamp(tc.input, tc.minutes); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBucketTimestampIdempotent(t *testing.T) {
	once := BucketTimestamp("2026-01-14T12:07:42.123Z", 5)
	twice := BucketTimestamp(once, 5)
	if once != twice {
		t.Fatalf("bucketing not idempotent: %q then %q", once, twice)
	}
}

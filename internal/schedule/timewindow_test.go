package schedule

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time %q: %v", value, err)
	}
	return parsed.UTC()
}

func window(t *testing.T, start, end string) TimeWindow {
	t.Helper()
	return TimeWindow{Start: mustTime(t, start), End: mustTime(t, end)}
}

func TestNewTimeWindowRejectsInvertedBounds(t *testing.T) {
	start := mustTime(t, "2026-03-02T10:00:00Z")

	if _, err := NewTimeWindow(start, start); err == nil {
		t.Fatal("expected error for zero-length window")
	}
	if _, err := NewTimeWindow(start, start.Add(-time.Hour)); err == nil {
		t.Fatal("expected error for inverted window")
	}
	if _, err := NewTimeWindow(start, start.Add(time.Hour)); err != nil {
		t.Fatalf("unexpected error for valid window: %v", err)
	}
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	a := window(t, "2026-03-02T09:00:00Z", "2026-03-02T10:00:00Z")
	b := window(t, "2026-03-02T10:00:00Z", "2026-03-02T11:00:00Z")
	c := window(t, "2026-03-02T09:30:00Z", "2026-03-02T10:30:00Z")

	if a.Overlaps(b) {
		t.Error("adjacent windows must not overlap")
	}
	if !a.Overlaps(c) || !c.Overlaps(a) {
		t.Error("expected overlap between intersecting windows")
	}
}

func TestClip(t *testing.T) {
	bounds := window(t, "2026-03-02T09:00:00Z", "2026-03-02T17:00:00Z")

	tests := []struct {
		name   string
		in     TimeWindow
		want   TimeWindow
		wantOK bool
	}{
		{
			name:   "fully inside",
			in:     window(t, "2026-03-02T10:00:00Z", "2026-03-02T11:00:00Z"),
			want:   window(t, "2026-03-02T10:00:00Z", "2026-03-02T11:00:00Z"),
			wantOK: true,
		},
		{
			name:   "overhangs both sides",
			in:     window(t, "2026-03-02T08:00:00Z", "2026-03-02T18:00:00Z"),
			want:   bounds,
			wantOK: true,
		},
		{
			name:   "disjoint",
			in:     window(t, "2026-03-02T18:00:00Z", "2026-03-02T19:00:00Z"),
			wantOK: false,
		},
		{
			name:   "touching boundary only",
			in:     window(t, "2026-03-02T17:00:00Z", "2026-03-02T18:00:00Z"),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.in.Clip(bounds)
			if ok != tt.wantOK {
				t.Fatalf("clip ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && (got != tt.want) {
				t.Fatalf("clip = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSubtract(t *testing.T) {
	base := window(t, "2026-03-02T09:00:00Z", "2026-03-02T17:00:00Z")

	tests := []struct {
		name  string
		other TimeWindow
		want  []TimeWindow
	}{
		{
			name:  "middle splits into two",
			other: window(t, "2026-03-02T12:00:00Z", "2026-03-02T13:00:00Z"),
			want: []TimeWindow{
				window(t, "2026-03-02T09:00:00Z", "2026-03-02T12:00:00Z"),
				window(t, "2026-03-02T13:00:00Z", "2026-03-02T17:00:00Z"),
			},
		},
		{
			name:  "leading edge trims start",
			other: window(t, "2026-03-02T08:00:00Z", "2026-03-02T10:00:00Z"),
			want:  []TimeWindow{window(t, "2026-03-02T10:00:00Z", "2026-03-02T17:00:00Z")},
		},
		{
			name:  "trailing edge trims end",
			other: window(t, "2026-03-02T16:00:00Z", "2026-03-02T18:00:00Z"),
			want:  []TimeWindow{window(t, "2026-03-02T09:00:00Z", "2026-03-02T16:00:00Z")},
		},
		{
			name:  "covering removes everything",
			other: window(t, "2026-03-02T08:00:00Z", "2026-03-02T18:00:00Z"),
			want:  nil,
		},
		{
			name:  "disjoint leaves base intact",
			other: window(t, "2026-03-02T18:00:00Z", "2026-03-02T19:00:00Z"),
			want:  []TimeWindow{base},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := base.Subtract(tt.other)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d windows, want %d: %v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("window %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

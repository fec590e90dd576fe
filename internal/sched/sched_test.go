package sched

import (
	"testing"
	"time"
)

func TestNextTickLaterToday(t *testing.T) {
	s := New(2, nil)
	now := time.Date(2026, 3, 1, 1, 30, 0, 0, time.UTC)
	tick := s.nextTick(now)
	want := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	if !tick.Equal(want) {
		t.Fatalf("tick = %v, want %v", tick, want)
	}
}

func TestNextTickRollsToTomorrow(t *testing.T) {
	s := New(2, nil)
	now := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	tick := s.nextTick(now)
	want := time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC)
	if !tick.Equal(want) {
		t.Fatalf("tick = %v, want %v", tick, want)
	}
}

func TestNewClampsBadHour(t *testing.T) {
	s := New(99, nil)
	if s.hourUTC != 2 {
		t.Fatalf("hour = %d, want fallback 2", s.hourUTC)
	}
}

package service

import (
	"testing"
	"time"
)

func TestCalculateAwardOnTime(t *testing.T) {
	deadline := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a := CalculateAward(100, deadline, deadline.Add(-time.Hour))
	if !a.OnTime {
		t.Fatalf("expected on-time award")
	}
	if a.Base != 100 || a.Bonus != 20 || a.Total != 120 {
		t.Fatalf("100 tokens on time: got base=%d bonus=%d total=%d, want 100/20/120", a.Base, a.Bonus, a.Total)
	}
}

func TestCalculateAwardExactlyAtDeadline(t *testing.T) {
	deadline := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Submitting at the exact deadline instant still counts as on time.
	a := CalculateAward(100, deadline, deadline)
	if !a.OnTime || a.Total != 120 {
		t.Fatalf("at-deadline submission: got onTime=%v total=%d, want true/120", a.OnTime, a.Total)
	}
}

func TestCalculateAwardLate(t *testing.T) {
	deadline := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a := CalculateAward(100, deadline, deadline.Add(time.Second))
	if a.OnTime {
		t.Fatalf("expected late award")
	}
	if a.Base != 50 || a.Bonus != 0 || a.Total != 50 {
		t.Fatalf("100 tokens late: got base=%d bonus=%d total=%d, want 50/0/50", a.Base, a.Bonus, a.Total)
	}
}

func TestCalculateAwardRoundsUp(t *testing.T) {
	deadline := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Odd values round up on both fractions.
	late := CalculateAward(7, deadline, deadline.Add(time.Hour))
	if late.Total != 4 {
		t.Fatalf("7 tokens late: got %d, want ceil(3.5)=4", late.Total)
	}
	onTime := CalculateAward(7, deadline, deadline.Add(-time.Hour))
	if onTime.Bonus != 2 || onTime.Total != 9 {
		t.Fatalf("7 tokens on time: got bonus=%d total=%d, want 2/9", onTime.Bonus, onTime.Total)
	}

	// The smallest positive value still pays at least one token late.
	one := CalculateAward(1, deadline, deadline.Add(time.Hour))
	if one.Total != 1 {
		t.Fatalf("1 token late: got %d, want 1", one.Total)
	}
}

func TestCalculateAwardZeroValue(t *testing.T) {
	deadline := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, now := range []time.Time{deadline.Add(-time.Hour), deadline.Add(time.Hour)} {
		if got := CalculateAward(0, deadline, now).Total; got != 0 {
			t.Fatalf("zero-value task at %v: got %d, want 0", now, got)
		}
	}
}

func TestCalculateAwardDeterministic(t *testing.T) {
	deadline := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := deadline.Add(time.Minute)
	first := CalculateAward(333, deadline, now)
	for i := 0; i < 10; i++ {
		if got := CalculateAward(333, deadline, now); got != first {
			t.Fatalf("award not deterministic: %+v vs %+v", got, first)
		}
	}
}

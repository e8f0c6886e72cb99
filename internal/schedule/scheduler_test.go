package schedule

import (
	"testing"
	"time"
)

func TestInSession(t *testing.T) {
	s := &Scheduler{}
	loc := time.FixedZone("CST", 8*3600)

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before open", time.Date(2025, 6, 20, 9, 15, 0, 0, loc), false},   // Friday
		{"morning session", time.Date(2025, 6, 20, 10, 0, 0, 0, loc), true},
		{"session open edge", time.Date(2025, 6, 20, 9, 30, 0, 0, loc), true},
		{"lunch break", time.Date(2025, 6, 20, 12, 0, 0, 0, loc), false},
		{"afternoon session", time.Date(2025, 6, 20, 14, 30, 0, 0, loc), true},
		{"after close", time.Date(2025, 6, 20, 15, 0, 0, 0, loc), false},
		{"saturday", time.Date(2025, 6, 21, 10, 0, 0, 0, loc), false},
		{"sunday", time.Date(2025, 6, 22, 10, 0, 0, 0, loc), false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := s.inSession(c.at); got != c.want {
				t.Errorf("inSession(%v) = %v, want %v", c.at, got, c.want)
			}
		})
	}
}

func TestTradeDateOf(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)
	at := time.Date(2025, 6, 20, 14, 45, 12, 0, loc)

	got := tradeDateOf(at)
	if got.Year() != 2025 || got.Month() != time.June || got.Day() != 20 {
		t.Errorf("tradeDateOf = %v, want 2025-06-20", got)
	}
	if got.Hour() != 0 || got.Minute() != 0 {
		t.Errorf("tradeDateOf = %v, want midnight", got)
	}
}

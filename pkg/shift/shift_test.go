package shift

import (
	"testing"
	"time"
)

func testCalendar(t *testing.T) *Calendar {
	t.Helper()
	cal, err := NewCalendar("Asia/Jakarta")
	if err != nil {
		t.Fatalf("load calendar: %v", err)
	}
	return cal
}

func TestShiftDayBoundary(t *testing.T) {
	cal := testCalendar(t)
	loc := cal.Location()

	before := cal.Info(time.Date(2026, 8, 30, 2, 59, 0, 0, loc))
	if before.Current != Night {
		t.Fatalf("02:59 expected night got %s", before.Current)
	}
	if before.ShiftDay.ISO() != "2026-08-29" {
		t.Fatalf("02:59 expected previous shift day, got %s", before.ShiftDay.ISO())
	}
	if len(before.Remaining) != 1 || before.Remaining[0] != Night {
		t.Fatalf("02:59 expected [night] remaining, got %v", before.Remaining)
	}

	after := cal.Info(time.Date(2026, 8, 30, 3, 0, 0, 0, loc))
	if after.Current != Morning {
		t.Fatalf("03:00 expected morning got %s", after.Current)
	}
	if after.ShiftDay.ISO() != "2026-08-30" {
		t.Fatalf("03:00 expected same-day shift day, got %s", after.ShiftDay.ISO())
	}
	if len(after.Remaining) != 3 {
		t.Fatalf("03:00 expected all three shifts remaining, got %v", after.Remaining)
	}
}

func TestShiftWindows(t *testing.T) {
	cal := testCalendar(t)
	loc := cal.Location()
	cases := []struct {
		hour      int
		want      Shift
		remaining int
	}{
		{3, Morning, 3},
		{10, Morning, 3},
		{11, Day, 2},
		{18, Day, 2},
		{19, Night, 1},
		{23, Night, 1},
	}
	for _, c := range cases {
		info := cal.Info(time.Date(2026, 8, 30, c.hour, 30, 0, 0, loc))
		if info.Current != c.want || len(info.Remaining) != c.remaining {
			t.Fatalf("hour %d: got %s/%d want %s/%d", c.hour, info.Current, len(info.Remaining), c.want, c.remaining)
		}
	}
}

func TestDaysBetweenInclusive(t *testing.T) {
	d := Date{2026, time.August, 30}
	if n := DaysBetweenInclusive(d, d); n != 1 {
		t.Fatalf("same-day count = %d, want 1", n)
	}
	if n := DaysBetweenInclusive(d, AddDays(d, 3)); n != 4 {
		t.Fatalf("three days ahead = %d, want 4", n)
	}
	// month rollover
	if n := DaysBetweenInclusive(Date{2026, time.August, 30}, Date{2026, time.September, 2}); n != 4 {
		t.Fatalf("rollover count = %d, want 4", n)
	}
}

func TestEndOfWeek(t *testing.T) {
	sun := Date{2026, time.August, 30} // a Sunday
	if got := EndOfWeek(sun); got != sun {
		t.Fatalf("sunday should map to itself, got %s", got.ISO())
	}
	mon := AddDays(sun, 1)
	if got := EndOfWeek(mon); got.ISO() != "2026-09-06" {
		t.Fatalf("monday end of week = %s, want 2026-09-06", got.ISO())
	}
}

func TestParseDateISO(t *testing.T) {
	d, err := ParseDate("2026-01-05")
	if err != nil || d.ISO() != "2026-01-05" {
		t.Fatalf("round trip failed: %v %s", err, d.ISO())
	}
	if _, err := ParseDate("05/01/2026"); err == nil {
		t.Fatalf("expected error for non-ISO date")
	}
}

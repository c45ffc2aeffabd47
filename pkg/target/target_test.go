package target

import (
	"errors"
	"testing"
	"time"

	"shiftfund/pkg/shift"
)

func calc(t *testing.T) (*Calculator, *time.Location) {
	t.Helper()
	cal, err := shift.NewCalendar("Asia/Jakarta")
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	return &Calculator{Cal: cal}, cal.Location()
}

func TestDailyAndPerShiftTargets(t *testing.T) {
	c, loc := calc(t)
	// 12:00 -> day shift, two shifts remaining today
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, loc)
	res, err := c.Compute(now, Input{TotalMinor: 10000, DaysOverride: 4})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if res.DaysLeft != 4 || res.DailyTargetMinor != 2500 {
		t.Fatalf("daily target: days=%d daily=%d", res.DaysLeft, res.DailyTargetMinor)
	}
	if len(res.Shift.Remaining) != 2 || res.PerShiftMinor != 1250 {
		t.Fatalf("per-shift target: remaining=%v perShift=%d", res.Shift.Remaining, res.PerShiftMinor)
	}
}

func TestDeadlineCountsFromShiftDay(t *testing.T) {
	c, loc := calc(t)
	deadline := shift.Date{Year: 2026, Month: time.September, Day: 1}
	// 01:00 on Aug 31 still belongs to shift day Aug 30, so the deadline is
	// three inclusive days away, not two.
	now := time.Date(2026, 8, 31, 1, 0, 0, 0, loc)
	res, err := c.Compute(now, Input{TotalMinor: 9000, Deadline: &deadline})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if res.DaysLeft != 3 {
		t.Fatalf("days left = %d, want 3", res.DaysLeft)
	}
}

func TestPastDeadlineClampsToOneDay(t *testing.T) {
	c, loc := calc(t)
	deadline := shift.Date{Year: 2026, Month: time.August, Day: 1}
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, loc)
	res, err := c.Compute(now, Input{TotalMinor: 5000, Deadline: &deadline})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if res.DaysLeft != 1 || res.DailyTargetMinor != 5000 {
		t.Fatalf("expected clamp to 1 day, got days=%d daily=%d", res.DaysLeft, res.DailyTargetMinor)
	}
}

func TestMissingDeadlineIsConfigError(t *testing.T) {
	c, loc := calc(t)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, loc)
	_, err := c.Compute(now, Input{TotalMinor: 5000})
	if !errors.Is(err, ErrNoDeadline) {
		t.Fatalf("expected ErrNoDeadline, got %v", err)
	}
}

func TestManualAdjustmentScenario(t *testing.T) {
	acc := ApplyAdjustment(0, 25.00, 0, false)
	if acc != -2500 {
		t.Fatalf("add(25.00) accumulator = %d, want -2500", acc)
	}
	c, loc := calc(t)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, loc)
	res, err := c.Compute(now, Input{TotalMinor: 10000, AdjustmentMinor: acc, DaysOverride: 1})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if res.RemainingMinor != 7500 {
		t.Fatalf("remaining = %d, want 7500", res.RemainingMinor)
	}
}

func TestAdjustmentRemoveAndReset(t *testing.T) {
	acc := ApplyAdjustment(-2500, 0, 10.00, false)
	if acc != -1500 {
		t.Fatalf("remove(10.00) accumulator = %d, want -1500", acc)
	}
	if acc = ApplyAdjustment(acc, 0, 0, true); acc != 0 {
		t.Fatalf("reset accumulator = %d, want 0", acc)
	}
}

func TestGoalMetYieldsZeroTargets(t *testing.T) {
	c, loc := calc(t)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, loc)
	res, err := c.Compute(now, Input{TotalMinor: 4000, AdjustmentMinor: -5000, DaysOverride: 2})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if res.DailyTargetMinor != 0 || res.PerShiftMinor != 0 {
		t.Fatalf("overshot goal should yield zero targets, got %d/%d", res.DailyTargetMinor, res.PerShiftMinor)
	}
}

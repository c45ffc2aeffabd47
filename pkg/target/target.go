package target

import (
	"errors"
	"time"

	"shiftfund/pkg/shift"
)

// ErrNoDeadline means neither a deadline date nor a days-left override was
// supplied. It is a usage error, reported distinctly from recognition
// failures.
var ErrNoDeadline = errors.New("no deadline date and no days-left override")

// Input is everything the calculator needs for one computation.
type Input struct {
	TotalMinor      int64       // parsed outstanding total
	AdjustmentMinor int64       // manual adjustment accumulator (minor units)
	Deadline        *shift.Date // optional end date
	DaysOverride    int         // optional explicit days left; 0 means unset
}

// Result is recomputed fresh on every invocation; nothing here is cached.
type Result struct {
	RemainingMinor   int64
	DaysLeft         int
	DailyTargetMinor int64
	PerShiftMinor    int64
	Shift            shift.Info
}

// Calculator turns a parsed total into time-boxed targets using the shift
// calendar.
type Calculator struct {
	Cal *shift.Calendar
}

// Compute derives daily and per-shift targets for the given instant.
// Days left count from the shift-day date, not the raw civil date, so an
// invocation at 01:00 still plans against yesterday's accounting day. The
// per-shift figure divides only over shifts not yet elapsed today, so it
// rises as the day progresses when earlier shifts under-delivered.
func (c *Calculator) Compute(now time.Time, in Input) (Result, error) {
	info := c.Cal.Info(now)
	remaining := in.TotalMinor + in.AdjustmentMinor

	var days int
	switch {
	case in.DaysOverride > 0:
		days = in.DaysOverride
	case in.Deadline != nil:
		days = shift.DaysBetweenInclusive(info.ShiftDay, *in.Deadline)
	default:
		return Result{}, ErrNoDeadline
	}
	if days < 1 {
		days = 1
	}

	daily := ceilDiv(remaining, int64(days))
	perShift := ceilDiv(daily, int64(len(info.Remaining)))
	return Result{
		RemainingMinor:   remaining,
		DaysLeft:         days,
		DailyTargetMinor: daily,
		PerShiftMinor:    perShift,
		Shift:            info,
	}, nil
}

// ceilDiv is ceiling division for non-negative goals; a met or overshot goal
// yields zero rather than a negative target.
func ceilDiv(a, b int64) int64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

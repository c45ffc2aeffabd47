package shift

import (
	"fmt"
	"time"
)

// Shift names one of the three work shifts of a shift day.
type Shift string

const (
	Morning Shift = "morning" // [03:00, 11:00)
	Day     Shift = "day"     // [11:00, 19:00)
	Night   Shift = "night"   // [19:00, 03:00)
)

// shiftDayStartHour is when the accounting day rolls over. Hours before it
// belong to the previous shift day.
const shiftDayStartHour = 3

// Civil holds wall-clock fields in the calendar's timezone.
type Civil struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Second int
}

// Info describes the shift state at one instant.
type Info struct {
	Civil     Civil
	ShiftDay  Date
	Current   Shift
	Remaining []Shift // ordered, includes the current shift
}

// Calendar answers shift and day-count questions in a fixed civil timezone,
// regardless of the host machine's zone.
type Calendar struct {
	loc *time.Location
}

// NewCalendar builds a calendar for an IANA timezone name.
func NewCalendar(tz string) (*Calendar, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return &Calendar{loc: loc}, nil
}

// Location exposes the calendar's timezone.
func (c *Calendar) Location() *time.Location { return c.loc }

// Now returns the current instant; callers pass it to Info so tests can pin time.
func (c *Calendar) Now() time.Time { return time.Now().In(c.loc) }

// Info computes shift-day date, current shift and the shifts still ahead
// today (current one included) for the given instant.
func (c *Calendar) Info(t time.Time) Info {
	lt := t.In(c.loc)
	info := Info{
		Civil: Civil{
			Year: lt.Year(), Month: lt.Month(), Day: lt.Day(),
			Hour: lt.Hour(), Minute: lt.Minute(), Second: lt.Second(),
		},
	}
	h := lt.Hour()
	switch {
	case h < shiftDayStartHour:
		// tail of the previous shift day's night shift
		info.ShiftDay = DateOf(lt.AddDate(0, 0, -1))
		info.Current = Night
		info.Remaining = []Shift{Night}
	case h < 11:
		info.ShiftDay = DateOf(lt)
		info.Current = Morning
		info.Remaining = []Shift{Morning, Day, Night}
	case h < 19:
		info.ShiftDay = DateOf(lt)
		info.Current = Day
		info.Remaining = []Shift{Day, Night}
	default:
		info.ShiftDay = DateOf(lt)
		info.Current = Night
		info.Remaining = []Shift{Night}
	}
	return info
}

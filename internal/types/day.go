package types

import (
	"time"

	ierr "github.com/gridcost/gridcost/internal/errors"
)

// Day is a calendar date with no time-of-day component. The zero value is
// the zero time; all constructors normalise to midnight UTC so Day values
// are directly comparable.
type Day struct {
	t time.Time
}

const dayLayout = "2006-01-02"

// Tariff horizon bounds. Dates at these bounds stand in for "no start
// date" / "no end date" in source attribute data.
var (
	MinTariffDay = NewDay(2008, time.January, 1)
	MaxTariffDay = NewDay(2050, time.January, 1)
)

// NewDay returns the Day for the given calendar date.
func NewDay(year int, month time.Month, day int) Day {
	return Day{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf truncates a time.Time to its calendar date (in the time's location).
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return NewDay(y, m, d)
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return Day{}, ierr.WithError(err).
			WithHintf("Dates must be in %s format", dayLayout).
			Mark(ierr.ErrValidation)
	}
	return DayOf(t), nil
}

func (d Day) String() string { return d.t.Format(dayLayout) }

// Time returns the underlying midnight-UTC instant.
func (d Day) Time() time.Time { return d.t }

func (d Day) IsZero() bool          { return d.t.IsZero() }
func (d Day) Before(o Day) bool     { return d.t.Before(o.t) }
func (d Day) After(o Day) bool      { return d.t.After(o.t) }
func (d Day) Equal(o Day) bool      { return d.t.Equal(o.t) }
func (d Day) AddDays(n int) Day     { return Day{t: d.t.AddDate(0, 0, n)} }
func (d Day) Weekday() time.Weekday { return d.t.Weekday() }

// DaysUntil returns the number of whole days from d to o (negative if o is
// earlier).
func (d Day) DaysUntil(o Day) int {
	return int(o.t.Sub(d.t).Hours() / 24)
}

// IsWeekend reports whether the day falls on a Saturday or Sunday.
func (d Day) IsWeekend() bool {
	wd := d.t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// DaysInMonth returns the number of days in the day's calendar month.
func (d Day) DaysInMonth() int {
	firstOfMonth := time.Date(d.t.Year(), d.t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return firstOfMonth.AddDate(0, 1, -1).Day()
}

// DaysInQuarter returns the number of days in the day's calendar quarter.
func (d Day) DaysInQuarter() int {
	quarterStartMonth := time.Month((int(d.t.Month())-1)/3*3 + 1)
	start := time.Date(d.t.Year(), quarterStartMonth, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 3, 0)
	return int(end.Sub(start).Hours() / 24)
}

// IsHorizonBound reports whether the day is one of the open-ended horizon
// placeholders rather than a real tariff boundary.
func (d Day) IsHorizonBound() bool {
	return d.Equal(MinTariffDay) || d.Equal(MaxTariffDay)
}

// DateRange is an inclusive range of days.
type DateRange struct {
	Start Day `json:"start_date"`
	End   Day `json:"end_date"`
}

// NewDateRange builds an inclusive range, substituting the horizon bounds
// for zero start/end days.
func NewDateRange(start, end Day) DateRange {
	if start.IsZero() {
		start = MinTariffDay
	}
	if end.IsZero() {
		end = MaxTariffDay
	}
	return DateRange{Start: start, End: end}
}

// Validate checks that the range is ordered.
func (r DateRange) Validate() error {
	if r.Start.After(r.End) {
		return ierr.NewErrorf("invalid date range: start %s after end %s", r.Start, r.End).
			WithHint("Tariff start date must not be after its end date").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Contains reports whether the day falls within the range, inclusive.
func (r DateRange) Contains(d Day) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Overlaps reports whether the two inclusive ranges share any day.
func (r DateRange) Overlaps(o DateRange) bool {
	return !r.Start.After(o.End) && !o.Start.After(r.End)
}

func (r DateRange) String() string {
	return r.Start.String() + " to " + r.End.String()
}

package types

import (
	"fmt"

	ierr "github.com/gridcost/gridcost/internal/errors"
)

// TimeOfDay is a clock time with minute precision. 24:00 is permitted as a
// range end meaning end-of-day.
type TimeOfDay struct {
	Hour   int `json:"hour" validate:"min=0,max=24"`
	Minute int `json:"minute" validate:"min=0,max=59"`
}

// NewTimeOfDay returns the given clock time.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay{Hour: hour, Minute: minute}
}

// MinuteOfDay returns minutes since midnight (0..1440).
func (t TimeOfDay) MinuteOfDay() int { return t.Hour*60 + t.Minute }

// On30MinuteBoundary reports whether the time falls exactly on a half-hour.
func (t TimeOfDay) On30MinuteBoundary() bool { return t.Minute%30 == 0 }

// HalfHourIndex returns the index of the half-hour slot containing this
// time; 24:00 maps to 48.
func (t TimeOfDay) HalfHourIndex() int { return t.MinuteOfDay() / 30 }

func (t TimeOfDay) Before(o TimeOfDay) bool { return t.MinuteOfDay() < o.MinuteOfDay() }

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// Validate checks bounds, permitting 24:00 exactly.
func (t TimeOfDay) Validate() error {
	if t.Hour < 0 || t.Hour > 24 || t.Minute < 0 || t.Minute > 59 || (t.Hour == 24 && t.Minute != 0) {
		return ierr.NewErrorf("invalid time of day %02d:%02d", t.Hour, t.Minute).
			WithHint("Times must be between 00:00 and 24:00").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TimeRange is a time-of-day range. Whether To is inclusive or exclusive
// depends on the tariff generation; see Vector48 weighting.
type TimeRange struct {
	From TimeOfDay `json:"from"`
	To   TimeOfDay `json:"to"`
}

// NewTimeRange builds a range between two clock times. Ranges where To is
// before From wrap past midnight (inclusive generation only).
func NewTimeRange(from, to TimeOfDay) TimeRange {
	return TimeRange{From: from, To: to}
}

func (r TimeRange) String() string {
	return r.From.String() + " to " + r.To.String()
}

// Validate checks both endpoints.
func (r TimeRange) Validate() error {
	if err := r.From.Validate(); err != nil {
		return err
	}
	return r.To.Validate()
}

// On30MinuteBoundaries reports whether both endpoints align to half hours.
func (r TimeRange) On30MinuteBoundaries() bool {
	return r.From.On30MinuteBoundary() && r.To.On30MinuteBoundary()
}

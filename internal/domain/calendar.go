package domain

import (
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// DateLayout is the textual form of a CalendarDate (ISO 8601 calendar date).
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned when year/month/day do not denote a real
// Gregorian calendar day (e.g. 2024-02-30 or month 13).
var ErrInvalidDate = errors.New("invalid calendar date")

// CalendarDate is a UTC calendar day with no time-of-day component.
//
// It wraps civil.Date and restricts it to valid days in years 1..9999, so
// every value round-trips through DateLayout. The zero value is not a valid
// date; use NewCalendarDate or ParseCalendarDate to construct one. Values
// are comparable with == and totally ordered through Compare.
type CalendarDate struct {
	d civil.Date
}

// NewCalendarDate validates (year, month, day) against real calendar rules.
func NewCalendarDate(year int, month time.Month, day int) (CalendarDate, error) {
	return fromCivil(civil.Date{Year: year, Month: month, Day: day})
}

func fromCivil(cd civil.Date) (CalendarDate, error) {
	if cd.Year < 1 || cd.Year > 9999 || !cd.IsValid() {
		return CalendarDate{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, cd.Year, int(cd.Month), cd.Day)
	}
	return CalendarDate{d: cd}, nil
}

// MustCalendarDate is NewCalendarDate for literals known to be valid.
func MustCalendarDate(year int, month time.Month, day int) CalendarDate {
	d, err := NewCalendarDate(year, month, day)
	if err != nil {
		panic(err)
	}
	return d
}

// ParseCalendarDate parses a strict "YYYY-MM-DD" string.
func ParseCalendarDate(s string) (CalendarDate, error) {
	cd, err := civil.ParseDate(s)
	if err != nil {
		return CalendarDate{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return fromCivil(cd)
}

// DateOf returns the UTC calendar day containing t.
func DateOf(t time.Time) CalendarDate {
	return CalendarDate{d: civil.DateOf(t.UTC())}
}

// DaysIn reports the number of days in the given month, honouring leap years.
func DaysIn(year int, month time.Month) int {
	// Day 0 of the next month normalizes to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// LastDayOfMonth returns the final calendar day of month/year.
func LastDayOfMonth(year int, month time.Month) (CalendarDate, error) {
	if month < time.January || month > time.December {
		return CalendarDate{}, fmt.Errorf("%w: month %d", ErrInvalidDate, int(month))
	}
	return NewCalendarDate(year, month, DaysIn(year, month))
}

// Year returns the year of d, in 1..9999 for valid dates.
func (d CalendarDate) Year() int { return d.d.Year }

// Month returns the month of d.
func (d CalendarDate) Month() time.Month { return d.d.Month }

// Day returns the day of the month of d, starting at 1.
func (d CalendarDate) Day() int { return d.d.Day }

// IsZero reports whether d is the (invalid) zero value.
func (d CalendarDate) IsZero() bool { return d.d.IsZero() }

// Time returns the UTC midnight instant that starts d.
func (d CalendarDate) Time() time.Time { return d.d.In(time.UTC) }

// Compare returns -1, 0 or +1 when d is before, equal to or after other.
func (d CalendarDate) Compare(other CalendarDate) int {
	switch {
	case d.d.Before(other.d):
		return -1
	case d.d.After(other.d):
		return 1
	}
	return 0
}

// Before reports whether d is an earlier day than other.
func (d CalendarDate) Before(other CalendarDate) bool { return d.d.Before(other.d) }

// After reports whether d is a later day than other. Reconciliation keeps a
// new fact only when its date is After the stored one.
func (d CalendarDate) After(other CalendarDate) bool { return d.d.After(other.d) }

// Equal reports whether d and other are the same day.
func (d CalendarDate) Equal(other CalendarDate) bool { return d == other }

// DaysSince returns the signed number of whole days from other to d
// (positive when d is later).
func (d CalendarDate) DaysSince(other CalendarDate) int { return d.d.DaysSince(other.d) }

// String formats d as YYYY-MM-DD.
func (d CalendarDate) String() string { return d.d.String() }

// MarshalText implements encoding.TextMarshaler.
func (d CalendarDate) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return nil, fmt.Errorf("%w: zero value", ErrInvalidDate)
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *CalendarDate) UnmarshalText(b []byte) error {
	v, err := ParseCalendarDate(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

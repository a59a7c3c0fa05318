package domain

import (
	"errors"
	"time"
)

// DateRange is a half-open interval [CheckIn, CheckOut) over calendar days.
// The open end is what makes same-day turnover legal: a booking checking out
// on day X does not overlap one checking in on day X.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

var ErrEmptyDateRange = errors.New("check-out must be after check-in")

func NewDateRange(checkIn, checkOut time.Time) (DateRange, error) {
	in := ToDay(checkIn)
	out := ToDay(checkOut)
	if !in.Before(out) {
		return DateRange{}, ErrEmptyDateRange
	}
	return DateRange{CheckIn: in, CheckOut: out}, nil
}

func (r DateRange) Overlaps(other DateRange) bool {
	return r.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(r.CheckOut)
}

// Nights is the number of whole nights in the range, clamped to a minimum of 1.
func (r DateRange) Nights() int {
	n := int(r.CheckOut.Sub(r.CheckIn).Hours() / 24)
	if n < 1 {
		n = 1
	}
	return n
}

// Contains reports whether the given day falls inside the range.
func (r DateRange) Contains(day time.Time) bool {
	d := ToDay(day)
	return !d.Before(r.CheckIn) && d.Before(r.CheckOut)
}

func ToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

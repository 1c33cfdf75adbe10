// Package availability decides whether a stay can be booked at a property
// and derives the booked-dates calendar shown to guests. It performs no I/O;
// callers hand it the property's zone and a snapshot of its reservations.
package availability

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	CheckInHour    = 15
	CheckOutHour   = 11
	CleaningBuffer = 120 * time.Minute
)

var (
	ErrInvalidDateRange = errors.New("check-out date must be after check-in date")
	ErrInvalidTimeZone  = errors.New("invalid time zone")
)

type Reason string

const (
	ReasonDateOrderInvalid Reason = "date_order_invalid"
	ReasonPastDate         Reason = "past_date"
	ReasonOverlap          Reason = "overlap"
	ReasonBufferViolation  Reason = "buffer_violation"
)

// Verdict is the outcome of a single availability check.
type Verdict struct {
	Available bool   `json:"available"`
	Reason    Reason `json:"reason,omitempty"`
}

func available() Verdict { return Verdict{Available: true} }

func conflict(r Reason) Verdict { return Verdict{Reason: r} }

func (v Verdict) IsConflict() bool { return !v.Available }

// StayWindow is a stay span as UTC instants.
type StayWindow struct {
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

// LoadZone resolves an IANA zone name. Empty and "Local" are rejected so the
// server's own zone can never leak into a property calendar.
func LoadZone(tz string) (*time.Location, error) {
	name := strings.TrimSpace(tz)
	if name == "" || name == "Local" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeZone, tz)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidTimeZone, tz, err)
	}
	return loc, nil
}

// LocalizeWindow pins the check-in date to 15:00 and the check-out date to
// 11:00 in the property's zone and returns both as UTC instants.
func LocalizeWindow(tz string, checkIn, checkOut Date) (StayWindow, error) {
	if !checkIn.Before(checkOut) {
		return StayWindow{}, fmt.Errorf("%w: %s..%s", ErrInvalidDateRange, checkIn, checkOut)
	}
	loc, err := LoadZone(tz)
	if err != nil {
		return StayWindow{}, err
	}
	return StayWindow{
		CheckIn:  checkIn.At(CheckInHour, loc).UTC(),
		CheckOut: checkOut.At(CheckOutHour, loc).UTC(),
	}, nil
}

// CheckConflict evaluates candidate against the existing windows of one
// property. An overlap ends the scan; a buffer violation is remembered and
// the scan continues, so the reported reason does not depend on the order
// of existing.
func CheckConflict(candidate StayWindow, existing []StayWindow, tz string, now time.Time) (Verdict, error) {
	if !candidate.CheckIn.Before(candidate.CheckOut) {
		return conflict(ReasonDateOrderInvalid), nil
	}
	loc, err := LoadZone(tz)
	if err != nil {
		return Verdict{}, err
	}

	// only the local calendar date matters, not the clock time
	today := DateOf(now.In(loc))
	if DateOf(candidate.CheckIn.In(loc)).Before(today) {
		return conflict(ReasonPastDate), nil
	}

	buffered := false
	for _, ex := range existing {
		switch {
		case overlaps(candidate, ex):
			return conflict(ReasonOverlap), nil
		case tooClose(ex.CheckOut, candidate.CheckIn), tooClose(candidate.CheckOut, ex.CheckIn):
			buffered = true
		}
	}
	if buffered {
		return conflict(ReasonBufferViolation), nil
	}
	return available(), nil
}

func overlaps(a, b StayWindow) bool {
	return a.CheckIn.Before(b.CheckOut) && a.CheckOut.After(b.CheckIn)
}

// tooClose reports whether next starts at or after prev but less than
// CleaningBuffer later. Instants compare the same in any zone.
func tooClose(prev, next time.Time) bool {
	if next.Before(prev) {
		return false
	}
	return next.Sub(prev) < CleaningBuffer
}

// CalendarDay flags a single local date. A date can carry both flags.
type CalendarDay uint8

const (
	FullyBooked CalendarDay = 1 << iota
	CheckoutDayPartial
)

func (d CalendarDay) Has(f CalendarDay) bool { return d&f != 0 }

func (d CalendarDay) String() string {
	var parts []string
	if d.Has(FullyBooked) {
		parts = append(parts, "fully_booked")
	}
	if d.Has(CheckoutDayPartial) {
		parts = append(parts, "checkout_day_partial")
	}
	return strings.Join(parts, "|")
}

type Calendar map[Date]CalendarDay

// ClassifyCalendar marks every local date from check-in up to but excluding
// check-out as fully booked, and a check-out date at exactly 11:00 local as
// partially booked, since a same-day 15:00 check-in clears the buffer.
func ClassifyCalendar(existing []StayWindow, tz string) (Calendar, error) {
	loc, err := LoadZone(tz)
	if err != nil {
		return nil, err
	}
	cal := Calendar{}
	for _, w := range existing {
		in := w.CheckIn.In(loc)
		out := w.CheckOut.In(loc)
		end := DateOf(out)
		for d := DateOf(in); d.Before(end); d = d.AddDays(1) {
			cal[d] |= FullyBooked
		}
		if out.Hour() == CheckOutHour && out.Minute() == 0 {
			cal[end] |= CheckoutDayPartial
		}
	}
	return cal, nil
}

// Dates returns the dates carrying flag f in ascending order.
func (c Calendar) Dates(f CalendarDay) []Date {
	out := make([]Date, 0, len(c))
	for d, v := range c {
		if v.Has(f) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

/*
window.go - Daily time window policy

PURPOSE:
  Answers "is booking open now?" and "is the reservation period active
  now?" for a fixed workspace timezone. Pure functions over an instant;
  no I/O, no wall-clock reads.

WRAP-AROUND:
  Both windows are closed intervals over local time-of-day and may wrap
  midnight. With open=23:30 close=00:10, 23:45 and 00:05 are inside,
  12:00 is outside.
*/
package booking

import (
	"fmt"
	"time"
)

// ClockTime is a time of day with minute granularity.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses "HH:MM", two digits each.
func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil || len(s) != len("15:04") {
		return ClockTime{}, fmt.Errorf("invalid clock time %q: want HH:MM", s)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (ct ClockTime) String() string { return fmt.Sprintf("%02d:%02d", ct.Hour, ct.Minute) }

// minutes returns the time of day as minutes since midnight.
func (ct ClockTime) minutes() int { return ct.Hour*60 + ct.Minute }

// On returns the instant at this time of day on the given date in loc.
// Built from calendar components, not midnight plus a duration, so the
// wall time holds on DST transition days.
func (ct ClockTime) On(d Day, loc *time.Location) (time.Time, error) {
	day, err := time.Parse(dayLayout, string(d))
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), ct.Hour, ct.Minute, 0, 0, loc), nil
}

// Windows configures the two daily intervals for a workspace, anchored to
// its local timezone.
type Windows struct {
	Location *time.Location

	BookingOpen  ClockTime
	BookingClose ClockTime

	ReservationStart ClockTime
	ReservationEnd   ClockTime
}

// IsBookingOpen reports whether new bookings are accepted at now.
func (w Windows) IsBookingOpen(now time.Time) bool {
	return w.contains(now, w.BookingOpen, w.BookingClose)
}

// IsReservationPeriodActive reports whether reservations are considered
// in use at now.
func (w Windows) IsReservationPeriodActive(now time.Time) bool {
	return w.contains(now, w.ReservationStart, w.ReservationEnd)
}

// ExpiryFor returns the instant an active reservation for date stops being
// valid: the end of the reservation period on that date, local time.
func (w Windows) ExpiryFor(date Day) (time.Time, error) {
	return w.ReservationEnd.On(date, w.Location)
}

// Today returns the calendar day of now in the workspace timezone.
func (w Windows) Today(now time.Time) Day {
	return DayOf(now, w.Location)
}

func (w Windows) contains(now time.Time, open, close ClockTime) bool {
	local := now.In(w.Location)
	t := local.Hour()*60 + local.Minute()
	if open.minutes() <= close.minutes() {
		return open.minutes() <= t && t <= close.minutes()
	}
	// Window wraps midnight.
	return t >= open.minutes() || t <= close.minutes()
}

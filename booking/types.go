/*
Package booking implements the reservation lifecycle engine for shared
physical seats.

PURPOSE:
  A seat can be booked for single-day use during a narrow daily booking
  window. Each user holds at most one active reservation per workspace per
  day, each seat is held by at most one user per day, reservations expire
  automatically at the end of the reservation period, and every state
  change is recorded in an append-only audit log.

KEY CONCEPTS IN THIS FILE (types.go):
  - Seat: read-only catalog entry (the engine never mutates seats)
  - Reservation: the unit of state, with a three-state lifecycle
  - LogEntry: immutable audit record of a lifecycle transition
  - Day: a calendar date in the workspace's local timezone

LIFECYCLE:
  active ──(user cancels, window-gated)──▶ cancelled   [terminal]
  active ──(timer past expiresAt)───────▶ expired      [terminal]

  No other transitions exist. A new booking always creates a new row;
  terminal rows are never reactivated and never deleted.

DESIGN PRINCIPLES:
  1. Storage-enforced invariants: uniqueness is a store constraint, not an
     engine-side check, so it holds across process boundaries.
  2. Explicit time: every operation takes `now`; the engine never reads
     the wall clock. Only the scheduler owns real time.
  3. Auditability: the log survives its reservation and snapshots the
     seat code at write time.

SEE ALSO:
  - window.go: booking/reservation window policy
  - engine.go: Book / Cancel / ExpireAll
  - store.go:  Store, AuditLog and Catalog contracts
*/
package booking

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type WorkspaceID string
type SpaceID string
type SeatID string
type ReservationID string

// =============================================================================
// DAY - calendar date in the workspace's local timezone
// =============================================================================

// Day is a reservation date, always interpreted in the workspace timezone.
// Stored and compared as "2006-01-02".
type Day string

const dayLayout = "2006-01-02"

// DayOf returns the calendar day of the given instant in loc.
func DayOf(now time.Time, loc *time.Location) Day {
	return Day(now.In(loc).Format(dayLayout))
}

func (d Day) String() string { return string(d) }

// =============================================================================
// SEAT - read-only catalog entry
// =============================================================================

// Seat is a bookable physical unit within a space. Seats are owned by the
// catalog; the engine only reads them.
type Seat struct {
	ID           SeatID
	SpaceID      SpaceID
	Code         string // e.g. "A1", "B3"
	IsActive     bool   // physically exists / usable
	IsReservable bool   // may be booked at all
}

// Bookable reports whether the seat can currently accept a booking.
func (s Seat) Bookable() bool { return s.IsActive && s.IsReservable }

// =============================================================================
// RESERVATION - the lifecycle state machine's unit
// =============================================================================

type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Reservation holds one user's claim on one seat for one day.
//
// Invariants (enforced by the Store):
//   - at most one active reservation per (seat, date)
//   - at most one active reservation per (user, workspace, date)
//   - IsActive == (Status == StatusActive)
//   - ExpiresAt is fixed at creation and never moves
type Reservation struct {
	ID          ReservationID
	UserID      UserID
	WorkspaceID WorkspaceID
	SpaceID     SpaceID
	SeatID      SeatID
	SeatCode    string // snapshot at booking time, used for audit rows
	Date        Day
	CreatedAt   time.Time
	ExpiresAt   time.Time
	Status      Status
	IsActive    bool

	// Version supports optimistic transitions. Incremented by the store on
	// every successful Transition.
	Version int64
}

// Terminal reports whether the reservation has left the active state.
func (r Reservation) Terminal() bool { return r.Status != StatusActive }

// =============================================================================
// AUDIT LOG ENTRY
// =============================================================================

type Action string

const (
	ActionCreated   Action = "created"
	ActionExpired   Action = "expired"
	ActionCancelled Action = "cancelled"
)

// LogEntry records one lifecycle transition. Entries are append-only and
// outlive the reservation they describe: ReservationID is a weak reference
// and SeatCode is a snapshot, so the row stays meaningful if the
// reservation is purged or the seat renamed.
type LogEntry struct {
	ID            string
	ReservationID ReservationID // weak reference, may dangle
	UserID        UserID
	SeatCode      string
	Action        Action
	Timestamp     time.Time
}

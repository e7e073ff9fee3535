/*
engine.go - Reservation lifecycle engine

PURPOSE:
  The state machine and concurrency-safe operations over reservations:
  Book, Cancel and ExpireAll. The engine validates a request against the
  window policy and catalog, then delegates the atomic part to the Store.

CONCURRENCY:
  The engine holds no locks. The Store's constrained CreateActive and
  atomic Transition are the only synchronization primitives, so the same
  guarantees hold with many service instances sharing one store:
  - two Book calls racing for a seat: the unique index picks exactly one
    winner, the loser sees ErrSeatUnavailable
  - Cancel racing ExpireAll on one row: whichever Transition lands first
    wins; the other observes a stale state and treats it as a no-op

ERROR REMAPPING:
  Store conflicts never leak. CreateActive's seat conflict becomes
  ErrSeatUnavailable, its user conflict becomes ErrDuplicateBooking, and a
  stale Transition during cancel becomes ErrNoActiveReservation.
*/
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Engine coordinates the reservation lifecycle. All operations take `now`
// explicitly; the engine never reads the wall clock.
type Engine struct {
	Store   Store
	Audit   AuditLog
	Catalog Catalog
	Windows Windows
}

// NewEngine wires an engine from its collaborators.
func NewEngine(store Store, audit AuditLog, catalog Catalog, windows Windows) *Engine {
	return &Engine{Store: store, Audit: audit, Catalog: catalog, Windows: windows}
}

// =============================================================================
// BOOK
// =============================================================================

// Book reserves a seat for the user for the current day. On success the
// reservation is active until the end of the reservation period and a
// "created" audit entry has been appended.
func (e *Engine) Book(ctx context.Context, userID UserID, workspaceID WorkspaceID, seatID SeatID, now time.Time) (*Reservation, error) {
	if !e.Windows.IsBookingOpen(now) {
		return nil, ErrWindowClosed
	}

	seat, err := e.Catalog.GetSeat(ctx, seatID)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}
	if seat == nil {
		return nil, fmt.Errorf("seat %s: %w", seatID, ErrNotFound)
	}
	if !seat.IsActive {
		return nil, &SeatUnavailableError{SeatID: seatID, Reason: "inactive"}
	}
	if !seat.IsReservable {
		return nil, &SeatUnavailableError{SeatID: seatID, Reason: "not_reservable"}
	}

	member, err := e.Catalog.IsMember(ctx, userID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("membership lookup: %w", err)
	}
	if !member {
		return nil, ErrUnauthorized
	}

	date := e.Windows.Today(now)

	// Fast-path duplicate check. The unique index still backstops this
	// under a race.
	existing, err := e.Store.FindActiveForUser(ctx, userID, workspaceID, date)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateBooking
	}

	expiresAt, err := e.Windows.ExpiryFor(date)
	if err != nil {
		return nil, err
	}

	res := &Reservation{
		ID:          ReservationID(uuid.NewString()),
		UserID:      userID,
		WorkspaceID: workspaceID,
		SpaceID:     seat.SpaceID,
		SeatID:      seatID,
		SeatCode:    seat.Code,
		Date:        date,
		CreatedAt:   now.UTC(),
		ExpiresAt:   expiresAt,
		Status:      StatusActive,
		IsActive:    true,
	}

	if err := e.Store.CreateActive(ctx, res); err != nil {
		switch {
		case errors.Is(err, ErrSeatConflict):
			// Another booking won the race for this seat.
			return nil, &SeatUnavailableError{SeatID: seatID, Reason: "taken"}
		case errors.Is(err, ErrUserConflict):
			return nil, ErrDuplicateBooking
		default:
			return nil, err
		}
	}

	if err := e.appendLog(ctx, res, ActionCreated, now); err != nil {
		return nil, err
	}
	return res, nil
}

// =============================================================================
// CANCEL
// =============================================================================

// Cancel releases the user's active reservation for the current day.
// Allowed while the booking window is open or the reservation period is
// active, a broader window than booking itself.
func (e *Engine) Cancel(ctx context.Context, userID UserID, workspaceID WorkspaceID, now time.Time) (*Reservation, error) {
	if !e.Windows.IsBookingOpen(now) && !e.Windows.IsReservationPeriodActive(now) {
		return nil, ErrWindowClosed
	}

	date := e.Windows.Today(now)
	res, err := e.Store.FindActiveForUser(ctx, userID, workspaceID, date)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrNoActiveReservation
	}

	err = e.Store.Transition(ctx, res.ID, StatusActive, StatusCancelled, res.Version)
	if err != nil {
		if errors.Is(err, ErrStaleTransition) || errors.Is(err, ErrNotFound) {
			// Expired (or cancelled elsewhere) between the read and the
			// write: nothing left to cancel.
			return nil, ErrNoActiveReservation
		}
		return nil, err
	}
	res.Status = StatusCancelled
	res.IsActive = false
	res.Version++

	if err := e.appendLog(ctx, res, ActionCancelled, now); err != nil {
		return nil, err
	}
	return res, nil
}

// =============================================================================
// EXPIRE
// =============================================================================

// ExpireAll transitions every active reservation past its expiry instant
// to expired, appending an audit entry per row. Expiry is idempotent and
// best-effort per row: a row that transitioned concurrently is skipped
// silently, and a per-row failure never fails the batch. Returns the
// number of rows expired.
func (e *Engine) ExpireAll(ctx context.Context, now time.Time) (int, error) {
	rows, err := e.Store.ScanExpirable(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, res := range rows {
		err := e.Store.Transition(ctx, res.ID, StatusActive, StatusExpired, res.Version)
		if err != nil {
			if errors.Is(err, ErrStaleTransition) || errors.Is(err, ErrNotFound) {
				continue // someone else got there first
			}
			log.Printf("[Engine] expire %s: %v", res.ID, err)
			continue
		}
		expired++

		res.Status = StatusExpired
		res.IsActive = false
		if err := e.appendLog(ctx, &res, ActionExpired, now); err != nil {
			log.Printf("[Engine] audit expire %s: %v", res.ID, err)
		}
	}
	return expired, nil
}

func (e *Engine) appendLog(ctx context.Context, res *Reservation, action Action, now time.Time) error {
	return e.Audit.Append(ctx, LogEntry{
		ID:            uuid.NewString(),
		ReservationID: res.ID,
		UserID:        res.UserID,
		SeatCode:      res.SeatCode,
		Action:        action,
		Timestamp:     now.UTC(),
	})
}

/*
store.go - Persistence and catalog contracts

PURPOSE:
  Defines the interfaces between the engine and its collaborators. The
  Store is the only synchronization primitive the engine relies on: its
  uniqueness constraints and atomic Transition must hold across process
  boundaries, so correctness never depends on an in-process lock.

CONTRACTS:
  Store:    reservation rows with two compound uniqueness constraints
            (seat+date+active, user+workspace+date+active)
  AuditLog: append-only transition log (no update, no delete)
  Catalog:  read-only seat / membership lookups, owned elsewhere

IMPLEMENTATIONS:
  - store/sqlite: production store (all three interfaces)
  - booking/store: in-memory store for tests and dev mode
*/
package booking

import (
	"context"
	"time"
)

// =============================================================================
// STORE - durable reservation rows
// =============================================================================

// Store persists reservations and enforces the active-row uniqueness
// constraints at the storage layer.
type Store interface {
	// CreateActive atomically inserts a new active reservation. It returns
	// ErrSeatConflict if the seat already has an active reservation for
	// the date, and ErrUserConflict if the user already has one in the
	// workspace for the date.
	CreateActive(ctx context.Context, r *Reservation) error

	// FindActiveForUser returns the user's active reservation in the
	// workspace for the date, or nil if there is none.
	FindActiveForUser(ctx context.Context, userID UserID, workspaceID WorkspaceID, date Day) (*Reservation, error)

	// FindActiveForSeat returns the active reservation holding the seat on
	// the date, or nil if the seat is free.
	FindActiveForSeat(ctx context.Context, seatID SeatID, date Day) (*Reservation, error)

	// FindActiveByWorkspace returns every active reservation in a space of
	// the workspace for the date. Used by the seat-status view.
	FindActiveByWorkspace(ctx context.Context, workspaceID WorkspaceID, spaceID SpaceID, date Day) ([]Reservation, error)

	// Transition atomically moves the reservation from one status to
	// another, keeping IsActive in sync and bumping Version. Exactly one
	// of two racing transitions succeeds; the loser gets
	// ErrStaleTransition. A missing row yields ErrNotFound.
	Transition(ctx context.Context, id ReservationID, from, to Status, version int64) error

	// ScanExpirable returns the active reservations whose ExpiresAt is at
	// or before now. Each call re-queries: a second call after some rows
	// transitioned returns the remaining set, not a frozen snapshot.
	ScanExpirable(ctx context.Context, now time.Time) ([]Reservation, error)
}

// =============================================================================
// AUDIT LOG - append-only
// =============================================================================

// AuditLog records lifecycle transitions. Append-only: the contract has no
// update or delete. Append fails only on storage unavailability.
type AuditLog interface {
	Append(ctx context.Context, entry LogEntry) error
	Query(ctx context.Context, filter LogFilter) ([]LogEntry, error)
}

// LogFilter narrows a Query. Nil fields match everything.
type LogFilter struct {
	UserID  *UserID
	Actions []Action
	From    *time.Time
	To      *time.Time
}

// =============================================================================
// CATALOG - external collaborator, read-only
// =============================================================================

// Catalog is the read-only view of the workspace/space/seat hierarchy and
// membership. The engine never writes through it.
type Catalog interface {
	// GetSeat returns the seat, or nil if no such seat exists.
	GetSeat(ctx context.Context, id SeatID) (*Seat, error)

	// ListSeats returns the active seats of a space, ordered by code.
	ListSeats(ctx context.Context, spaceID SpaceID) ([]Seat, error)

	// IsMember reports whether the user is assigned to the workspace.
	IsMember(ctx context.Context, userID UserID, workspaceID WorkspaceID) (bool, error)

	// IsAdmin reports whether the user administers the workspace.
	IsAdmin(ctx context.Context, userID UserID, workspaceID WorkspaceID) (bool, error)
}

// Package store provides in-memory implementations of the booking
// persistence and catalog contracts, for tests and dev mode.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hotdesk/seat-engine/booking"
)

// =============================================================================
// MEMORY STORE - reservations
// =============================================================================

// Memory implements booking.Store with a mutex standing in for the
// database's constraint checks: the same writes conflict, in the same way.
type Memory struct {
	mu           sync.RWMutex
	reservations map[booking.ReservationID]booking.Reservation
	bySeatDay    map[seatDay]booking.ReservationID
	byUserDay    map[userDay]booking.ReservationID
}

type seatDay struct {
	Seat booking.SeatID
	Date booking.Day
}

type userDay struct {
	User      booking.UserID
	Workspace booking.WorkspaceID
	Date      booking.Day
}

func NewMemory() *Memory {
	return &Memory{
		reservations: make(map[booking.ReservationID]booking.Reservation),
		bySeatDay:    make(map[seatDay]booking.ReservationID),
		byUserDay:    make(map[userDay]booking.ReservationID),
	}
}

func (m *Memory) CreateActive(_ context.Context, r *booking.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sk := seatDay{Seat: r.SeatID, Date: r.Date}
	uk := userDay{User: r.UserID, Workspace: r.WorkspaceID, Date: r.Date}

	// Check both constraints before writing either index, like a single
	// INSERT hitting two unique indexes.
	if _, taken := m.bySeatDay[sk]; taken {
		return booking.ErrSeatConflict
	}
	if _, taken := m.byUserDay[uk]; taken {
		return booking.ErrUserConflict
	}

	r.Status = booking.StatusActive
	r.IsActive = true
	m.reservations[r.ID] = *r
	m.bySeatDay[sk] = r.ID
	m.byUserDay[uk] = r.ID
	return nil
}

func (m *Memory) FindActiveForUser(_ context.Context, userID booking.UserID, workspaceID booking.WorkspaceID, date booking.Day) (*booking.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byUserDay[userDay{User: userID, Workspace: workspaceID, Date: date}]
	if !ok {
		return nil, nil
	}
	res := m.reservations[id]
	return &res, nil
}

func (m *Memory) FindActiveForSeat(_ context.Context, seatID booking.SeatID, date booking.Day) (*booking.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.bySeatDay[seatDay{Seat: seatID, Date: date}]
	if !ok {
		return nil, nil
	}
	res := m.reservations[id]
	return &res, nil
}

func (m *Memory) FindActiveByWorkspace(_ context.Context, workspaceID booking.WorkspaceID, spaceID booking.SpaceID, date booking.Day) ([]booking.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []booking.Reservation
	for _, res := range m.reservations {
		if res.Status == booking.StatusActive &&
			res.WorkspaceID == workspaceID &&
			res.SpaceID == spaceID &&
			res.Date == date {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatCode < out[j].SeatCode })
	return out, nil
}

func (m *Memory) Transition(_ context.Context, id booking.ReservationID, from, to booking.Status, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, ok := m.reservations[id]
	if !ok {
		return booking.ErrNotFound
	}
	if res.Status != from || res.Version != version {
		return booking.ErrStaleTransition
	}

	res.Status = to
	res.IsActive = to == booking.StatusActive
	res.Version++
	m.reservations[id] = res

	// A row leaving the active state frees its uniqueness slots.
	if !res.IsActive {
		delete(m.bySeatDay, seatDay{Seat: res.SeatID, Date: res.Date})
		delete(m.byUserDay, userDay{User: res.UserID, Workspace: res.WorkspaceID, Date: res.Date})
	}
	return nil
}

func (m *Memory) ScanExpirable(_ context.Context, now time.Time) ([]booking.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []booking.Reservation
	for _, res := range m.reservations {
		if res.Status == booking.StatusActive && !res.ExpiresAt.After(now) {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Put overwrites a reservation row in place without touching the
// uniqueness indexes (test helper).
func (m *Memory) Put(res booking.Reservation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reservations[res.ID] = res
}

// Get returns a reservation by ID regardless of status (test helper).
func (m *Memory) Get(id booking.ReservationID) (booking.Reservation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res, ok := m.reservations[id]
	return res, ok
}

// =============================================================================
// MEMORY AUDIT LOG
// =============================================================================

// MemoryAudit implements booking.AuditLog. Append-only by construction.
type MemoryAudit struct {
	mu      sync.RWMutex
	entries []booking.LogEntry
}

func NewMemoryAudit() *MemoryAudit {
	return &MemoryAudit{}
}

func (a *MemoryAudit) Append(_ context.Context, entry booking.LogEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

func (a *MemoryAudit) Query(_ context.Context, filter booking.LogFilter) ([]booking.LogEntry, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []booking.LogEntry
	for _, e := range a.entries {
		if filter.UserID != nil && e.UserID != *filter.UserID {
			continue
		}
		if len(filter.Actions) > 0 && !containsAction(filter.Actions, e.Action) {
			continue
		}
		if filter.From != nil && e.Timestamp.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.Timestamp.After(*filter.To) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func containsAction(actions []booking.Action, a booking.Action) bool {
	for _, x := range actions {
		if x == a {
			return true
		}
	}
	return false
}

// =============================================================================
// MEMORY CATALOG
// =============================================================================

// MemoryCatalog implements booking.Catalog over fixed maps. Mutators exist
// for test setup only; the engine sees the read-only interface.
type MemoryCatalog struct {
	mu      sync.RWMutex
	seats   map[booking.SeatID]booking.Seat
	members map[memberKey]bool
	admins  map[memberKey]bool
}

type memberKey struct {
	User      booking.UserID
	Workspace booking.WorkspaceID
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		seats:   make(map[booking.SeatID]booking.Seat),
		members: make(map[memberKey]bool),
		admins:  make(map[memberKey]bool),
	}
}

func (c *MemoryCatalog) AddSeat(seat booking.Seat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seats[seat.ID] = seat
}

func (c *MemoryCatalog) AddMember(userID booking.UserID, workspaceID booking.WorkspaceID, admin bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := memberKey{User: userID, Workspace: workspaceID}
	c.members[k] = true
	if admin {
		c.admins[k] = true
	}
}

func (c *MemoryCatalog) GetSeat(_ context.Context, id booking.SeatID) (*booking.Seat, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seat, ok := c.seats[id]
	if !ok {
		return nil, nil
	}
	return &seat, nil
}

func (c *MemoryCatalog) ListSeats(_ context.Context, spaceID booking.SpaceID) ([]booking.Seat, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []booking.Seat
	for _, seat := range c.seats {
		if seat.SpaceID == spaceID && seat.IsActive {
			out = append(out, seat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (c *MemoryCatalog) IsMember(_ context.Context, userID booking.UserID, workspaceID booking.WorkspaceID) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.members[memberKey{User: userID, Workspace: workspaceID}], nil
}

func (c *MemoryCatalog) IsAdmin(_ context.Context, userID booking.UserID, workspaceID booking.WorkspaceID) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.admins[memberKey{User: userID, Workspace: workspaceID}], nil
}

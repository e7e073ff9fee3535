package sqlite

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotdesk/seat-engine/booking"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newReservation(user booking.UserID, seat booking.SeatID, date booking.Day) *booking.Reservation {
	created := time.Date(2024, time.June, 1, 4, 0, 0, 0, time.UTC)
	return &booking.Reservation{
		ID:          booking.ReservationID(uuid.NewString()),
		UserID:      user,
		WorkspaceID: "ws-1",
		SpaceID:     "space-1",
		SeatID:      seat,
		SeatCode:    "A1",
		Date:        date,
		CreatedAt:   created,
		ExpiresAt:   created.Add(9 * time.Hour),
	}
}

// =============================================================================
// RESERVATION STORE
// =============================================================================

func TestCreateActive_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	res := newReservation("u1", "seat-1", "2024-06-01")
	require.NoError(t, store.CreateActive(ctx, res))
	assert.Equal(t, booking.StatusActive, res.Status)
	assert.Equal(t, int64(0), res.Version)

	found, err := store.FindActiveForUser(ctx, "u1", "ws-1", "2024-06-01")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, res.ID, found.ID)
	assert.Equal(t, "A1", found.SeatCode)
	assert.True(t, found.ExpiresAt.Equal(res.ExpiresAt))
	assert.True(t, found.IsActive)
}

func TestCreateActive_SeatConflict(t *testing.T) {
	// GIVEN: seat-1 already held for the day
	// WHEN: a different user inserts for the same seat and day
	// THEN: the seat index rejects it with ErrSeatConflict

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateActive(ctx, newReservation("u1", "seat-1", "2024-06-01")))

	err := store.CreateActive(ctx, newReservation("u2", "seat-1", "2024-06-01"))
	assert.ErrorIs(t, err, booking.ErrSeatConflict)
}

func TestCreateActive_UserConflict(t *testing.T) {
	// Same user, different seat, same day: the user index fires.
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateActive(ctx, newReservation("u1", "seat-1", "2024-06-01")))

	err := store.CreateActive(ctx, newReservation("u1", "seat-2", "2024-06-01"))
	assert.ErrorIs(t, err, booking.ErrUserConflict)
}

func TestCreateActive_AllowedAfterTerminalRow(t *testing.T) {
	// The unique indexes are partial on status='active', so a cancelled
	// row does not block a fresh booking for the same seat and day.
	store := newTestStore(t)
	ctx := context.Background()

	first := newReservation("u1", "seat-1", "2024-06-01")
	require.NoError(t, store.CreateActive(ctx, first))
	require.NoError(t, store.Transition(ctx, first.ID, booking.StatusActive, booking.StatusCancelled, 0))

	err := store.CreateActive(ctx, newReservation("u1", "seat-1", "2024-06-01"))
	assert.NoError(t, err)
}

func TestCreateActive_DifferentDaysDoNotConflict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateActive(ctx, newReservation("u1", "seat-1", "2024-06-01")))
	assert.NoError(t, store.CreateActive(ctx, newReservation("u1", "seat-1", "2024-06-02")))
}

func TestTransition_VersionGuard(t *testing.T) {
	// GIVEN: an active reservation at version 0
	// WHEN: two transitions race with the same expected version
	// THEN: the first wins, the second sees ErrStaleTransition

	store := newTestStore(t)
	ctx := context.Background()

	res := newReservation("u1", "seat-1", "2024-06-01")
	require.NoError(t, store.CreateActive(ctx, res))

	require.NoError(t, store.Transition(ctx, res.ID, booking.StatusActive, booking.StatusCancelled, 0))

	err := store.Transition(ctx, res.ID, booking.StatusActive, booking.StatusExpired, 0)
	assert.ErrorIs(t, err, booking.ErrStaleTransition)

	found, err := store.FindActiveForUser(ctx, "u1", "ws-1", "2024-06-01")
	require.NoError(t, err)
	assert.Nil(t, found, "the cancelled row must no longer show as active")
}

func TestTransition_UnknownRow(t *testing.T) {
	store := newTestStore(t)

	err := store.Transition(context.Background(), "missing", booking.StatusActive, booking.StatusExpired, 0)
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestScanExpirable_ReQueriesEachCall(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	overdue := newReservation("u1", "seat-1", "2024-06-01")
	require.NoError(t, store.CreateActive(ctx, overdue))
	future := newReservation("u2", "seat-2", "2024-06-01")
	future.ExpiresAt = future.ExpiresAt.Add(24 * time.Hour)
	require.NoError(t, store.CreateActive(ctx, future))

	cutoff := overdue.ExpiresAt.Add(time.Minute)
	rows, err := store.ScanExpirable(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, overdue.ID, rows[0].ID)

	// After the row leaves the active state, a re-scan returns nothing.
	require.NoError(t, store.Transition(ctx, overdue.ID, booking.StatusActive, booking.StatusExpired, 0))
	rows, err = store.ScanExpirable(ctx, cutoff)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFindActiveForSeat(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	res := newReservation("u1", "seat-1", "2024-06-01")
	require.NoError(t, store.CreateActive(ctx, res))

	found, err := store.FindActiveForSeat(ctx, "seat-1", "2024-06-01")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, res.ID, found.ID)

	free, err := store.FindActiveForSeat(ctx, "seat-2", "2024-06-01")
	require.NoError(t, err)
	assert.Nil(t, free, "an unbooked seat has no active holder")

	// A terminal row frees the seat.
	require.NoError(t, store.Transition(ctx, res.ID, booking.StatusActive, booking.StatusCancelled, 0))
	free, err = store.FindActiveForSeat(ctx, "seat-1", "2024-06-01")
	require.NoError(t, err)
	assert.Nil(t, free)
}

func TestFindActiveByWorkspace_OrderedBySeatCode(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	b2 := newReservation("u1", "seat-2", "2024-06-01")
	b2.SeatCode = "B2"
	require.NoError(t, store.CreateActive(ctx, b2))
	a1 := newReservation("u2", "seat-1", "2024-06-01")
	a1.SeatCode = "A1"
	require.NoError(t, store.CreateActive(ctx, a1))

	rows, err := store.FindActiveByWorkspace(ctx, "ws-1", "space-1", "2024-06-01")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A1", rows[0].SeatCode)
	assert.Equal(t, "B2", rows[1].SeatCode)
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func TestAudit_AppendAndQueryFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, time.June, 1, 4, 0, 0, 0, time.UTC)
	entries := []booking.LogEntry{
		{ID: uuid.NewString(), ReservationID: "r1", UserID: "u1", SeatCode: "A1", Action: booking.ActionCreated, Timestamp: base},
		{ID: uuid.NewString(), ReservationID: "r1", UserID: "u1", SeatCode: "A1", Action: booking.ActionCancelled, Timestamp: base.Add(time.Hour)},
		{ID: uuid.NewString(), ReservationID: "r2", UserID: "u2", SeatCode: "B1", Action: booking.ActionCreated, Timestamp: base.Add(2 * time.Hour)},
	}
	for _, e := range entries {
		require.NoError(t, store.Append(ctx, e))
	}

	all, err := store.Query(ctx, booking.LogFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, booking.ActionCreated, all[0].Action, "oldest first")

	u1 := booking.UserID("u1")
	byUser, err := store.Query(ctx, booking.LogFilter{UserID: &u1})
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	cancelled, err := store.Query(ctx, booking.LogFilter{Actions: []booking.Action{booking.ActionCancelled}})
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, "A1", cancelled[0].SeatCode)

	from := base.Add(30 * time.Minute)
	to := base.Add(90 * time.Minute)
	ranged, err := store.Query(ctx, booking.LogFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, booking.ActionCancelled, ranged[0].Action)
}

func TestAudit_EntrySurvivesWithoutReservation(t *testing.T) {
	// Log rows reference reservations weakly; an entry with no reservation
	// ID round-trips as NULL and comes back empty.
	store := newTestStore(t)
	ctx := context.Background()

	entry := booking.LogEntry{
		ID: uuid.NewString(), UserID: "u1", SeatCode: "A1",
		Action: booking.ActionExpired, Timestamp: time.Now().UTC(),
	}
	require.NoError(t, store.Append(ctx, entry))

	all, err := store.Query(ctx, booking.LogFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Empty(t, all[0].ReservationID)
	assert.Equal(t, "A1", all[0].SeatCode)
}

// =============================================================================
// CATALOG + SEEDING
// =============================================================================

func writeSeedFile(t *testing.T, seed SeedFile) string {
	t.Helper()
	data, err := json.Marshal(seed)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func defaultSeed() SeedFile {
	inactive := false
	return SeedFile{Workspaces: []SeedWorkspace{{
		ID: "ws-1", Name: "HQ", Location: "Karachi",
		Spaces: []SeedSpace{{
			ID: "space-1", Name: "Floor 2",
			Seats: []SeedSeat{
				{ID: "seat-1", Code: "A1"},
				{ID: "seat-2", Code: "B1"},
				{ID: "seat-3", Code: "C1", IsActive: &inactive},
			},
		}},
		Members: []SeedMember{
			{UserID: "u1"},
			{UserID: "admin-1", IsAdmin: true},
		},
	}}}
}

func TestSeedCatalog(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SeedCatalog(ctx, writeSeedFile(t, defaultSeed())))

	seat, err := store.GetSeat(ctx, "seat-1")
	require.NoError(t, err)
	require.NotNil(t, seat)
	assert.Equal(t, "A1", seat.Code)
	assert.True(t, seat.Bookable())

	missing, err := store.GetSeat(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	// Inactive seats are excluded from the listing.
	seats, err := store.ListSeats(ctx, "space-1")
	require.NoError(t, err)
	require.Len(t, seats, 2)
	assert.Equal(t, "A1", seats[0].Code)
	assert.Equal(t, "B1", seats[1].Code)

	member, err := store.IsMember(ctx, "u1", "ws-1")
	require.NoError(t, err)
	assert.True(t, member)

	admin, err := store.IsAdmin(ctx, "u1", "ws-1")
	require.NoError(t, err)
	assert.False(t, admin)

	admin, err = store.IsAdmin(ctx, "admin-1", "ws-1")
	require.NoError(t, err)
	assert.True(t, admin)

	outsider, err := store.IsMember(ctx, "stranger", "ws-1")
	require.NoError(t, err)
	assert.False(t, outsider)
}

func TestSeedCatalog_UpsertsOnReload(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SeedCatalog(ctx, writeSeedFile(t, defaultSeed())))

	// Re-seeding with a change updates in place instead of failing on
	// duplicate keys.
	seed := defaultSeed()
	seed.Workspaces[0].Spaces[0].Seats[0].Code = "A1-renamed"
	require.NoError(t, store.SeedCatalog(ctx, writeSeedFile(t, seed)))

	seat, err := store.GetSeat(ctx, "seat-1")
	require.NoError(t, err)
	require.NotNil(t, seat)
	assert.Equal(t, "A1-renamed", seat.Code)
}

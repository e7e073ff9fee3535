/*
Package sqlite provides the SQLite-backed implementation of the booking
storage interfaces.

PURPOSE:
  Implements booking.Store, booking.AuditLog and booking.Catalog on one
  database. The same patterns apply to PostgreSQL; only minor SQL dialect
  differences.

INVARIANT ENFORCEMENT:
  The two lifecycle invariants live in the schema, not in Go:

    idx_active_seat_day:  UNIQUE(seat_id, date)               WHERE active
    idx_active_user_day:  UNIQUE(user_id, workspace_id, date) WHERE active

  A racing INSERT loses at the index and surfaces as ErrSeatConflict or
  ErrUserConflict. Transition is a single conditional UPDATE guarded by
  status and version, so exactly one of two racing transitions succeeds.
  Because the guarantees are database-level, they hold across multiple
  service processes sharing the store.

APPEND-ONLY AUDIT:
  reservation_logs has INSERT and SELECT paths only. No UPDATE or DELETE
  statement exists for it anywhere in this package.

WAL MODE:
  Opened with WAL so readers don't block the single writer.

USAGE:
  store, err := sqlite.New("./data/seats.db")
  defer store.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hotdesk/seat-engine/booking"
)

// Store implements the booking storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Reservations (soft-delete only; terminal rows are kept)
	CREATE TABLE IF NOT EXISTS reservations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		workspace_id TEXT NOT NULL,
		space_id TEXT NOT NULL,
		seat_id TEXT NOT NULL,
		seat_code TEXT NOT NULL,
		date TEXT NOT NULL,
		created_at TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		is_active INTEGER NOT NULL DEFAULT 1,
		version INTEGER NOT NULL DEFAULT 0
	);

	-- CRITICAL: one active reservation per seat per day
	CREATE UNIQUE INDEX IF NOT EXISTS idx_active_seat_day
		ON reservations(seat_id, date)
		WHERE status = 'active';

	-- CRITICAL: one active reservation per user per workspace per day
	CREATE UNIQUE INDEX IF NOT EXISTS idx_active_user_day
		ON reservations(user_id, workspace_id, date)
		WHERE status = 'active';

	-- Expiry scan (hot path for the daily run)
	CREATE INDEX IF NOT EXISTS idx_reservations_expiry
		ON reservations(status, expires_at);

	-- Seat-status view per workspace/space/day
	CREATE INDEX IF NOT EXISTS idx_reservations_workspace_date
		ON reservations(workspace_id, space_id, date);

	-- Audit log (append-only; survives its reservation)
	CREATE TABLE IF NOT EXISTS reservation_logs (
		id TEXT PRIMARY KEY,
		reservation_id TEXT,
		user_id TEXT NOT NULL,
		seat_code TEXT NOT NULL,
		action TEXT NOT NULL,
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_logs_user
		ON reservation_logs(user_id);
	CREATE INDEX IF NOT EXISTS idx_logs_timestamp
		ON reservation_logs(timestamp);

	-- Catalog (read-only to the engine; written by seeding/management)
	CREATE TABLE IF NOT EXISTS workspaces (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS spaces (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL REFERENCES workspaces(id),
		name TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS seats (
		id TEXT PRIMARY KEY,
		space_id TEXT NOT NULL REFERENCES spaces(id),
		code TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		is_reservable INTEGER NOT NULL DEFAULT 1,
		UNIQUE(space_id, code)
	);

	CREATE TABLE IF NOT EXISTS workspace_users (
		user_id TEXT NOT NULL,
		workspace_id TEXT NOT NULL REFERENCES workspaces(id),
		is_admin INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, workspace_id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RESERVATION STORE
// =============================================================================

const reservationColumns = `id, user_id, workspace_id, space_id, seat_id, seat_code,
	date, created_at, expires_at, status, is_active, version`

// CreateActive inserts a new active reservation. The partial unique
// indexes decide races: the loser gets a constraint error which is mapped
// to the matching conflict sentinel.
func (s *Store) CreateActive(ctx context.Context, r *booking.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	const query = `
		INSERT INTO reservations
		(id, user_id, workspace_id, space_id, seat_id, seat_code, date,
		 created_at, expires_at, status, is_active, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'active', 1, 0)
	`
	_, err := s.db.ExecContext(ctx, query,
		string(r.ID),
		string(r.UserID),
		string(r.WorkspaceID),
		string(r.SpaceID),
		string(r.SeatID),
		r.SeatCode,
		string(r.Date),
		r.CreatedAt.UTC().Format(time.RFC3339),
		r.ExpiresAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			if isSeatConstraint(err) {
				return booking.ErrSeatConflict
			}
			return booking.ErrUserConflict
		}
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	r.Status = booking.StatusActive
	r.IsActive = true
	r.Version = 0
	return nil
}

// FindActiveForUser returns the user's active reservation for the date,
// or nil.
func (s *Store) FindActiveForUser(ctx context.Context, userID booking.UserID, workspaceID booking.WorkspaceID, date booking.Day) (*booking.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + reservationColumns + `
		FROM reservations
		WHERE user_id = ? AND workspace_id = ? AND date = ? AND status = 'active'`
	return s.queryOne(ctx, query, string(userID), string(workspaceID), string(date))
}

// FindActiveForSeat returns the active reservation holding the seat for
// the date, or nil.
func (s *Store) FindActiveForSeat(ctx context.Context, seatID booking.SeatID, date booking.Day) (*booking.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + reservationColumns + `
		FROM reservations
		WHERE seat_id = ? AND date = ? AND status = 'active'`
	return s.queryOne(ctx, query, string(seatID), string(date))
}

// FindActiveByWorkspace returns the active reservations of a space for
// the date, ordered by seat code.
func (s *Store) FindActiveByWorkspace(ctx context.Context, workspaceID booking.WorkspaceID, spaceID booking.SpaceID, date booking.Day) ([]booking.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + reservationColumns + `
		FROM reservations
		WHERE workspace_id = ? AND space_id = ? AND date = ? AND status = 'active'
		ORDER BY seat_code`
	rows, err := s.db.QueryContext(ctx, query, string(workspaceID), string(spaceID), string(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReservations(rows)
}

// Transition conditionally moves a reservation between states. The WHERE
// clause carries the expected status and version, so two racing updates
// cannot both succeed.
func (s *Store) Transition(ctx context.Context, id booking.ReservationID, from, to booking.Status, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	const query = `
		UPDATE reservations
		SET status = ?, is_active = ?, version = version + 1
		WHERE id = ? AND status = ? AND version = ?
	`
	isActive := 0
	if to == booking.StatusActive {
		isActive = 1
	}
	result, err := s.db.ExecContext(ctx, query, string(to), isActive, string(id), string(from), version)
	if err != nil {
		return fmt.Errorf("failed to transition reservation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	// Nothing matched: distinguish a missing row from a lost race.
	var one int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM reservations WHERE id = ?`, string(id)).Scan(&one)
	if err == sql.ErrNoRows {
		return booking.ErrNotFound
	}
	if err != nil {
		return err
	}
	return booking.ErrStaleTransition
}

// ScanExpirable returns the active reservations at or past their expiry
// instant. Each call re-queries, so a second pass sees only rows still
// active.
func (s *Store) ScanExpirable(ctx context.Context, now time.Time) ([]booking.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + reservationColumns + `
		FROM reservations
		WHERE status = 'active' AND expires_at <= ?
		ORDER BY expires_at`
	rows, err := s.db.QueryContext(ctx, query, now.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReservations(rows)
}

func (s *Store) queryOne(ctx context.Context, query string, args ...any) (*booking.Reservation, error) {
	res, err := scanReservation(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*booking.Reservation, error) {
	var r booking.Reservation
	var createdAt, expiresAt string
	var isActive int
	err := row.Scan(
		&r.ID, &r.UserID, &r.WorkspaceID, &r.SpaceID, &r.SeatID, &r.SeatCode,
		&r.Date, &createdAt, &expiresAt, &r.Status, &isActive, &r.Version,
	)
	if err != nil {
		return nil, err
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("bad created_at on %s: %w", r.ID, err)
	}
	if r.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt); err != nil {
		return nil, fmt.Errorf("bad expires_at on %s: %w", r.ID, err)
	}
	r.IsActive = isActive == 1
	return &r, nil
}

func scanReservations(rows *sql.Rows) ([]booking.Reservation, error) {
	var out []booking.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// =============================================================================
// AUDIT LOG
// =============================================================================

// Append inserts one audit row. There is deliberately no update or delete
// counterpart.
func (s *Store) Append(ctx context.Context, entry booking.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	const query = `
		INSERT INTO reservation_logs (id, reservation_id, user_id, seat_code, action, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		nullString(string(entry.ReservationID)),
		string(entry.UserID),
		entry.SeatCode,
		string(entry.Action),
		entry.Timestamp.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}
	return nil
}

// Query returns audit rows matching the filter, oldest first.
func (s *Store) Query(ctx context.Context, filter booking.LogFilter) ([]booking.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, reservation_id, user_id, seat_code, action, timestamp
		FROM reservation_logs WHERE 1=1`
	var args []any

	if filter.UserID != nil {
		query += ` AND user_id = ?`
		args = append(args, string(*filter.UserID))
	}
	if len(filter.Actions) > 0 {
		query += ` AND action IN (?` + strings.Repeat(",?", len(filter.Actions)-1) + `)`
		for _, a := range filter.Actions {
			args = append(args, string(a))
		}
	}
	if filter.From != nil {
		query += ` AND timestamp >= ?`
		args = append(args, filter.From.UTC().Format(time.RFC3339))
	}
	if filter.To != nil {
		query += ` AND timestamp <= ?`
		args = append(args, filter.To.UTC().Format(time.RFC3339))
	}
	query += ` ORDER BY timestamp, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booking.LogEntry
	for rows.Next() {
		var e booking.LogEntry
		var reservationID sql.NullString
		var ts string
		if err := rows.Scan(&e.ID, &reservationID, &e.UserID, &e.SeatCode, &e.Action, &ts); err != nil {
			return nil, err
		}
		e.ReservationID = booking.ReservationID(reservationID.String)
		if e.Timestamp, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, fmt.Errorf("bad timestamp on log %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// CATALOG
// =============================================================================

// GetSeat returns the seat, or nil if unknown.
func (s *Store) GetSeat(ctx context.Context, id booking.SeatID) (*booking.Seat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	const query = `SELECT id, space_id, code, is_active, is_reservable FROM seats WHERE id = ?`
	var seat booking.Seat
	var isActive, isReservable int
	err := s.db.QueryRowContext(ctx, query, string(id)).Scan(
		&seat.ID, &seat.SpaceID, &seat.Code, &isActive, &isReservable,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	seat.IsActive = isActive == 1
	seat.IsReservable = isReservable == 1
	return &seat, nil
}

// ListSeats returns the active seats of a space, ordered by code.
func (s *Store) ListSeats(ctx context.Context, spaceID booking.SpaceID) ([]booking.Seat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	const query = `SELECT id, space_id, code, is_active, is_reservable
		FROM seats WHERE space_id = ? AND is_active = 1 ORDER BY code`
	rows, err := s.db.QueryContext(ctx, query, string(spaceID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booking.Seat
	for rows.Next() {
		var seat booking.Seat
		var isActive, isReservable int
		if err := rows.Scan(&seat.ID, &seat.SpaceID, &seat.Code, &isActive, &isReservable); err != nil {
			return nil, err
		}
		seat.IsActive = isActive == 1
		seat.IsReservable = isReservable == 1
		out = append(out, seat)
	}
	return out, rows.Err()
}

// IsMember reports whether the user is assigned to the workspace.
func (s *Store) IsMember(ctx context.Context, userID booking.UserID, workspaceID booking.WorkspaceID) (bool, error) {
	return s.memberFlag(ctx, userID, workspaceID, false)
}

// IsAdmin reports whether the user administers the workspace.
func (s *Store) IsAdmin(ctx context.Context, userID booking.UserID, workspaceID booking.WorkspaceID) (bool, error) {
	return s.memberFlag(ctx, userID, workspaceID, true)
}

func (s *Store) memberFlag(ctx context.Context, userID booking.UserID, workspaceID booking.WorkspaceID, adminOnly bool) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT 1 FROM workspace_users WHERE user_id = ? AND workspace_id = ?`
	if adminOnly {
		query += ` AND is_admin = 1`
	}
	var one int
	err := s.db.QueryRowContext(ctx, query, string(userID), string(workspaceID)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// =============================================================================
// CATALOG SEEDING
// =============================================================================

// SeedFile is the JSON shape consumed by SeedCatalog.
type SeedFile struct {
	Workspaces []SeedWorkspace `json:"workspaces"`
}

type SeedWorkspace struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Location string       `json:"location"`
	Spaces   []SeedSpace  `json:"spaces"`
	Members  []SeedMember `json:"members"`
}

type SeedSpace struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Seats []SeedSeat `json:"seats"`
}

type SeedSeat struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	IsActive     *bool  `json:"is_active,omitempty"`
	IsReservable *bool  `json:"is_reservable,omitempty"`
}

type SeedMember struct {
	UserID  string `json:"user_id"`
	IsAdmin bool   `json:"is_admin"`
}

// SeedCatalog loads the workspace/space/seat hierarchy and memberships
// from a JSON file, upserting rows. Intended for bootstrap and dev; the
// engine itself never writes catalog tables.
func (s *Store) SeedCatalog(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed SeedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, ws := range seed.Workspaces {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO workspaces (id, name, location) VALUES (?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET name = excluded.name, location = excluded.location`,
			ws.ID, ws.Name, ws.Location); err != nil {
			return err
		}
		for _, sp := range ws.Spaces {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO spaces (id, workspace_id, name, is_active) VALUES (?, ?, ?, 1)
				 ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
				sp.ID, ws.ID, sp.Name); err != nil {
				return err
			}
			for _, st := range sp.Seats {
				active := boolOrDefault(st.IsActive, true)
				reservable := boolOrDefault(st.IsReservable, true)
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO seats (id, space_id, code, is_active, is_reservable) VALUES (?, ?, ?, ?, ?)
					 ON CONFLICT(id) DO UPDATE SET code = excluded.code,
					   is_active = excluded.is_active, is_reservable = excluded.is_reservable`,
					st.ID, sp.ID, st.Code, boolInt(active), boolInt(reservable)); err != nil {
					return err
				}
			}
		}
		for _, m := range ws.Members {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO workspace_users (user_id, workspace_id, is_admin) VALUES (?, ?, ?)
				 ON CONFLICT(user_id, workspace_id) DO UPDATE SET is_admin = excluded.is_admin`,
				m.UserID, ws.ID, boolInt(m.IsAdmin)); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func boolOrDefault(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isSeatConstraint tells the two partial unique indexes apart. SQLite
// reports the violated columns ("reservations.seat_id, reservations.date")
// or, for some index forms, the index name.
func isSeatConstraint(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "reservations.seat_id") ||
		strings.Contains(msg, "idx_active_seat_day")
}

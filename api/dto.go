/*
dto.go - Request and response payloads

Each operation has its own request variant, validated at the boundary
before anything reaches the engine.
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hotdesk/seat-engine/booking"
)

// =============================================================================
// REQUESTS
// =============================================================================

// BookRequest asks for a seat for the current day.
type BookRequest struct {
	WorkspaceID string `json:"workspace_id"`
	SeatID      string `json:"seat_id"`
}

func (r BookRequest) validate() string {
	if r.WorkspaceID == "" {
		return "workspace_id is required"
	}
	if r.SeatID == "" {
		return "seat_id is required"
	}
	return ""
}

// CancelRequest releases the caller's reservation for the current day.
type CancelRequest struct {
	WorkspaceID string `json:"workspace_id"`
}

func (r CancelRequest) validate() string {
	if r.WorkspaceID == "" {
		return "workspace_id is required"
	}
	return ""
}

// =============================================================================
// RESPONSES
// =============================================================================

type ReservationDTO struct {
	ReservationID string `json:"reservation_id"`
	SeatCode      string `json:"seat_code"`
	Date          string `json:"date"`
	ExpiresAt     string `json:"expires_at"`
	Status        string `json:"status"`
}

func toReservationDTO(r *booking.Reservation) ReservationDTO {
	return ReservationDTO{
		ReservationID: string(r.ID),
		SeatCode:      r.SeatCode,
		Date:          r.Date.String(),
		ExpiresAt:     r.ExpiresAt.Format(time.RFC3339),
		Status:        string(r.Status),
	}
}

// SeatStatusDTO is one seat on the live map.
type SeatStatusDTO struct {
	SeatID     string `json:"seat_id"`
	Code       string `json:"code"`
	Reservable bool   `json:"reservable"`
	Reserved   bool   `json:"reserved"`
	ReservedBy string `json:"reserved_by,omitempty"`
}

// StatusResponse is the seat map of a space for today.
type StatusResponse struct {
	Date              string          `json:"date"`
	BookingOpen       bool            `json:"booking_open"`
	ReservationPeriod bool            `json:"reservation_period"`
	Seats             []SeatStatusDTO `json:"seats"`
	UserReservation   *ReservationDTO `json:"user_reservation,omitempty"`
}

type LogEntryDTO struct {
	ID            string `json:"id"`
	ReservationID string `json:"reservation_id,omitempty"`
	UserID        string `json:"user_id"`
	SeatCode      string `json:"seat_code"`
	Action        string `json:"action"`
	Timestamp     string `json:"timestamp"`
}

func toLogEntryDTO(e booking.LogEntry) LogEntryDTO {
	return LogEntryDTO{
		ID:            e.ID,
		ReservationID: string(e.ReservationID),
		UserID:        string(e.UserID),
		SeatCode:      e.SeatCode,
		Action:        string(e.Action),
		Timestamp:     e.Timestamp.Format(time.RFC3339),
	}
}

// =============================================================================
// JSON HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{OK: false, Kind: kind, Error: message})
}

/*
handlers.go - HTTP handlers for the booking API

PURPOSE:
  Thin JSON boundary over the lifecycle engine: parse, validate, call the
  engine, translate the error taxonomy to HTTP.

ERROR MAPPING:
  window_closed / unauthorized     403
  seat_unavailable / duplicate...  409
  no_active_reservation/not_found  404
  anything else                    500

  Store-level conflict errors never appear here: the engine remaps them
  before returning.
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hotdesk/seat-engine/booking"
)

// Handler holds all dependencies for the HTTP handlers.
type Handler struct {
	Engine  *booking.Engine
	Store   booking.Store
	Audit   booking.AuditLog
	Catalog booking.Catalog

	// Now is the request-time clock, overridable in tests.
	Now func() time.Time
}

// NewHandler wires a handler around the engine and its collaborators.
func NewHandler(engine *booking.Engine) *Handler {
	return &Handler{
		Engine:  engine,
		Store:   engine.Store,
		Audit:   engine.Audit,
		Catalog: engine.Catalog,
		Now:     time.Now,
	}
}

// =============================================================================
// BOOKING
// =============================================================================

// Book reserves a seat for the caller for today.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, "bad_request", msg)
		return
	}

	res, err := h.Engine.Book(r.Context(), callerID(r),
		booking.WorkspaceID(req.WorkspaceID), booking.SeatID(req.SeatID), h.Now())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReservationDTO(res))
}

// Cancel releases the caller's active reservation for today.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, "bad_request", msg)
		return
	}

	res, err := h.Engine.Cancel(r.Context(), callerID(r), booking.WorkspaceID(req.WorkspaceID), h.Now())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"reservation": toReservationDTO(res),
	})
}

// =============================================================================
// SEAT STATUS
// =============================================================================

// SeatStatus returns the live seat map of a space for today, including
// the caller's own reservation and the current window flags.
func (h *Handler) SeatStatus(w http.ResponseWriter, r *http.Request) {
	workspaceID := booking.WorkspaceID(chi.URLParam(r, "workspaceID"))
	spaceID := booking.SpaceID(chi.URLParam(r, "spaceID"))
	userID := callerID(r)
	now := h.Now()

	member, err := h.Catalog.IsMember(r.Context(), userID, workspaceID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "membership lookup failed")
		return
	}
	if !member {
		writeError(w, http.StatusForbidden, "unauthorized", "not assigned to this workspace")
		return
	}

	windows := h.Engine.Windows
	date := windows.Today(now)

	seats, err := h.Catalog.ListSeats(r.Context(), spaceID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "seat lookup failed")
		return
	}
	reservations, err := h.Store.FindActiveByWorkspace(r.Context(), workspaceID, spaceID, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "reservation lookup failed")
		return
	}

	bySeat := make(map[booking.SeatID]booking.Reservation, len(reservations))
	for _, res := range reservations {
		bySeat[res.SeatID] = res
	}

	resp := StatusResponse{
		Date:              date.String(),
		BookingOpen:       windows.IsBookingOpen(now),
		ReservationPeriod: windows.IsReservationPeriodActive(now),
		Seats:             make([]SeatStatusDTO, 0, len(seats)),
	}
	for _, seat := range seats {
		dto := SeatStatusDTO{
			SeatID:     string(seat.ID),
			Code:       seat.Code,
			Reservable: seat.Bookable(),
		}
		if res, taken := bySeat[seat.ID]; taken {
			dto.Reserved = true
			dto.ReservedBy = string(res.UserID)
		}
		resp.Seats = append(resp.Seats, dto)
	}
	mine, err := h.Store.FindActiveForUser(r.Context(), userID, workspaceID, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "reservation lookup failed")
		return
	}
	if mine != nil {
		dto := toReservationDTO(mine)
		resp.UserReservation = &dto
	}

	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// AUDIT TRAIL
// =============================================================================

// Logs returns audit entries, admin-only. Supported query params:
// user, action (repeatable), from, to (RFC3339).
func (h *Handler) Logs(w http.ResponseWriter, r *http.Request) {
	workspaceID := booking.WorkspaceID(chi.URLParam(r, "workspaceID"))

	admin, err := h.Catalog.IsAdmin(r.Context(), callerID(r), workspaceID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "admin lookup failed")
		return
	}
	if !admin {
		writeError(w, http.StatusForbidden, "unauthorized", "admin rights required")
		return
	}

	var filter booking.LogFilter
	q := r.URL.Query()
	if u := q.Get("user"); u != "" {
		uid := booking.UserID(u)
		filter.UserID = &uid
	}
	for _, a := range q["action"] {
		filter.Actions = append(filter.Actions, booking.Action(a))
	}
	if from := q.Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid 'from' timestamp")
			return
		}
		filter.From = &t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid 'to' timestamp")
			return
		}
		filter.To = &t
	}

	entries, err := h.Audit.Query(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "audit query failed")
		return
	}
	dtos := make([]LogEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toLogEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ERROR TRANSLATION
// =============================================================================

func writeEngineError(w http.ResponseWriter, err error) {
	kind := booking.Kind(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, booking.ErrWindowClosed), errors.Is(err, booking.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, booking.ErrSeatUnavailable), errors.Is(err, booking.ErrDuplicateBooking):
		status = http.StatusConflict
	case errors.Is(err, booking.ErrNoActiveReservation), errors.Is(err, booking.ErrNotFound):
		status = http.StatusNotFound
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error" // don't leak storage details
	}
	writeError(w, status, kind, msg)
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medexam/booking-portal/internal/booking"
	"github.com/medexam/booking-portal/internal/document"
)

func getBookingHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		b, err := svc.GetBooking(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func listBookingsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f booking.BookingFilter

		if v := r.URL.Query().Get("status"); v != "" {
			status, ok := booking.NormalizeStatus(v)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_status", "unknown status filter")
				return
			}
			f.Status = &status
		}
		if v := r.URL.Query().Get("specialist_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_specialist_id", "specialist_id must be a valid UUID")
				return
			}
			f.SpecialistID = &id
		}
		if v := r.URL.Query().Get("organization_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_organization_id", "organization_id must be a valid UUID")
				return
			}
			f.OrganizationID = &id
		}

		bookings, err := svc.ListBookings(r.Context(), f)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]BookingResponse, 0, len(bookings))
		for i := range bookings {
			resp = append(resp, toBookingResponse(&bookings[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// updateProgressHandler is the only interactive write into the state machine.
// The actor identity comes from the authenticated session upstream and reaches
// this service as the X-Actor-ID header.
func updateProgressHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		actor := r.Header.Get("X-Actor-ID")
		if actor == "" {
			writeError(w, http.StatusBadRequest, "missing_actor", "X-Actor-ID header is required")
			return
		}

		var req UpdateProgressRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		stage, ok := booking.NormalizeStage(req.ToStatus)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_stage", "unknown to_status")
			return
		}

		b, err := svc.UpdateProgress(r.Context(), id, stage, req.Reason, actor, req.Correction)
		if err != nil {
			handleProgressError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

// archiveBookingHandler moves a booking to archived without a stage step.
func archiveBookingHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		actor := r.Header.Get("X-Actor-ID")
		if actor == "" {
			writeError(w, http.StatusBadRequest, "missing_actor", "X-Actor-ID header is required")
			return
		}

		var req ArchiveRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
				return
			}
		}

		b, err := svc.ArchiveBooking(r.Context(), id, req.Reason, actor)
		if err != nil {
			handleProgressError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func getProgressHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		entries, err := svc.History(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		resp := make([]ProgressEntryResponse, 0, len(entries))
		for _, e := range entries {
			resp = append(resp, toProgressEntryResponse(e))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listDocumentsHandler(docs document.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
			return
		}

		list, err := docs.ListByBooking(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]DocumentResponse, 0, len(list))
		for _, d := range list {
			resp = append(resp, toDocumentResponse(d))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "booking_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleProgressError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "booking_not_found", err.Error())
	case errors.Is(err, booking.ErrInvalidStageTransition):
		writeError(w, http.StatusConflict, "invalid_stage_transition", err.Error())
	case errors.Is(err, booking.ErrInvalidStatusChange):
		writeError(w, http.StatusConflict, "invalid_status_change", err.Error())
	case errors.Is(err, booking.ErrBookingBeingUpdated):
		writeError(w, http.StatusConflict, "booking_being_updated", "booking is currently being updated, please retry shortly")
	case errors.Is(err, booking.ErrMissingActor):
		writeError(w, http.StatusBadRequest, "missing_actor", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

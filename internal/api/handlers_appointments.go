package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carebook/appointment-booking/internal/booking"
	"github.com/carebook/appointment-booking/internal/model"
	"github.com/carebook/appointment-booking/internal/registry"
)

func bookHandler(engine *booking.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok || id.Role != model.RolePatient {
			writeError(w, http.StatusForbidden, "forbidden", "only patients book appointments")
			return
		}

		var req BookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		slotID, err := uuid.Parse(req.SlotID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "slot_id must be a valid UUID")
			return
		}

		appt, err := engine.Book(r.Context(), slotID, id.UserID, r.Header.Get("Idempotency-Key"))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func setStatusHandler(engine *booking.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_identity", "authentication required")
			return
		}

		apptID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req SetStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		status := model.AppointmentStatus(req.Status)
		switch status {
		case model.StatusConfirmed, model.StatusDeclined, model.StatusCompleted:
		default:
			writeError(w, http.StatusBadRequest, "invalid_status", "status must be confirmed, declined or completed")
			return
		}

		appt, err := engine.SetStatus(r.Context(), apptID, status, booking.Principal{
			UserID: id.UserID,
			Role:   id.Role,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_identity", "authentication required")
			return
		}

		apptID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := reg.Get(r.Context(), apptID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		// Appointments are visible only to their two parties.
		if appt.PatientID != id.UserID && appt.ProviderID != id.UserID {
			writeError(w, http.StatusForbidden, "forbidden", "not a party to this appointment")
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

// listAppointmentsHandler returns the caller's own appointments, newest
// first: patients see what they booked, providers what they host.
func listAppointmentsHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_identity", "authentication required")
			return
		}

		var (
			appts []model.Appointment
			err   error
		)
		switch id.Role {
		case model.RolePatient:
			appts, err = reg.ListByPatient(r.Context(), id.UserID)
		case model.RoleProvider:
			appts, err = reg.ListByProvider(r.Context(), id.UserID)
		default:
			writeError(w, http.StatusForbidden, "forbidden", "unknown role")
			return
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carebook/appointment-booking/internal/availability"
	"github.com/carebook/appointment-booking/internal/model"
)

func publishSlotHandler(slots *availability.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok || id.Role != model.RoleProvider {
			writeError(w, http.StatusForbidden, "forbidden", "only providers publish slots")
			return
		}

		var req PublishSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		slot, err := slots.PublishSlot(r.Context(), id.UserID, date, req.Time)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toSlotResponse(slot))
	}
}

func withdrawSlotHandler(slots *availability.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok || id.Role != model.RoleProvider {
			writeError(w, http.StatusForbidden, "forbidden", "only providers withdraw slots")
			return
		}

		slotID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "id must be a valid UUID")
			return
		}

		if err := slots.WithdrawSlot(r.Context(), slotID, id.UserID); err != nil {
			writeDomainError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func listOpenSlotsHandler(slots *availability.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var providerID *uuid.UUID
		if v := r.URL.Query().Get("provider_id"); v != "" {
			parsed, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
				return
			}
			providerID = &parsed
		}

		open, err := slots.ListOpenSlots(r.Context(), providerID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]SlotResponse, 0, len(open))
		for i := range open {
			resp = append(resp, toSlotResponse(&open[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/carebook/appointment-booking/internal/identity"
	"github.com/carebook/appointment-booking/internal/model"
)

func registerHandler(gateway *identity.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		id, err := gateway.Register(r.Context(), identity.Registration{
			Email:       req.Email,
			Password:    req.Password,
			DisplayName: req.DisplayName,
			Role:        model.Role(req.Role),
			Age:         req.Age,
			Gender:      model.Gender(req.Gender),
			Specialty:   req.Specialty,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		token, err := gateway.MintToken(*id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, AuthResponse{
			UserID: id.UserID,
			Role:   string(id.Role),
			Token:  token,
		})
	}
}

func loginHandler(gateway *identity.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		id, err := gateway.Authenticate(r.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, identity.ErrInvalidCredential) {
				writeError(w, http.StatusUnauthorized, "invalid_credential", err.Error())
				return
			}
			writeDomainError(w, err)
			return
		}

		token, err := gateway.MintToken(*id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AuthResponse{
			UserID: id.UserID,
			Role:   string(id.Role),
			Token:  token,
		})
	}
}

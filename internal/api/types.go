package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/carebook/appointment-booking/internal/model"
)

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Age         int    `json:"age,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Specialty   string `json:"specialty,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
	Token  string    `json:"token,omitempty"`
}

type PublishSlotRequest struct {
	Date string `json:"date"` // YYYY-MM-DD
	Time string `json:"time"` // HH:MM
}

type SlotResponse struct {
	ID         uuid.UUID `json:"id"`
	ProviderID uuid.UUID `json:"provider_id"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	Booked     bool      `json:"booked"`
}

func toSlotResponse(s *model.Slot) SlotResponse {
	return SlotResponse{
		ID:         s.ID,
		ProviderID: s.ProviderID,
		Date:       s.Date.Format("2006-01-02"),
		Time:       s.TimeOfDay,
		Booked:     s.Booked,
	}
}

type BookRequest struct {
	SlotID string `json:"slot_id"`
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

type AppointmentResponse struct {
	ID            uuid.UUID `json:"id"`
	SlotID        uuid.UUID `json:"slot_id"`
	ProviderID    uuid.UUID `json:"provider_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	ProviderName  string    `json:"provider_name"`
	PatientName   string    `json:"patient_name"`
	PatientAge    int       `json:"patient_age"`
	PatientGender string    `json:"patient_gender"`
	Specialty     string    `json:"specialty"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toAppointmentResponse(a *model.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:            a.ID,
		SlotID:        a.SlotID,
		ProviderID:    a.ProviderID,
		PatientID:     a.PatientID,
		ProviderName:  a.ProviderName,
		PatientName:   a.PatientName,
		PatientAge:    a.PatientAge,
		PatientGender: string(a.PatientGender),
		Specialty:     a.Specialty,
		Date:          a.Date.Format("2006-01-02"),
		Time:          a.TimeOfDay,
		Status:        string(a.Status),
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

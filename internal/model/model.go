package model

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient  Role = "patient"
	RoleProvider Role = "provider"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// User is the identity shared by patients and providers. Everything but
// DisplayName is immutable after registration.
type User struct {
	ID          uuid.UUID
	Email       string
	DisplayName string
	Role        Role
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type PatientProfile struct {
	User
	Age    int
	Gender Gender
}

type ProviderProfile struct {
	User
	Specialty string
}

// Slot is one bookable (provider, date, time) unit. Date is a calendar
// date pinned to UTC midnight; TimeOfDay is a zero-padded "HH:MM" string
// so lexicographic order matches chronological order.
type Slot struct {
	ID         uuid.UUID
	ProviderID uuid.UUID
	Date       time.Time
	TimeOfDay  string
	Booked     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// StartsAt combines the slot's date and time-of-day into an instant.
func (s *Slot) StartsAt() time.Time {
	t, err := time.Parse("15:04", s.TimeOfDay)
	if err != nil {
		return s.Date
	}
	return time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(),
		t.Hour(), t.Minute(), 0, 0, time.UTC)
}

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusDeclined  AppointmentStatus = "declined"
	StatusCompleted AppointmentStatus = "completed"
)

// IsTerminal reports whether no further transition is permitted.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusDeclined || s == StatusCompleted
}

// ValidTransition is the full status machine: pending fans out to
// confirmed or declined, confirmed ends in completed.
func ValidTransition(from, to AppointmentStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusDeclined
	case StatusConfirmed:
		return to == StatusCompleted
	default:
		return false
	}
}

// Appointment snapshots the participants at booking time. The
// denormalized name/age/gender/specialty fields are frozen copies and
// never track later profile edits.
type Appointment struct {
	ID             uuid.UUID
	SlotID         uuid.UUID
	ProviderID     uuid.UUID
	PatientID      uuid.UUID
	ProviderName   string
	PatientName    string
	PatientAge     int
	PatientGender  Gender
	Specialty      string
	Date           time.Time
	TimeOfDay      string
	Status         AppointmentStatus
	IdempotencyKey string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StartsAt combines the appointment's date and time-of-day.
func (a *Appointment) StartsAt() time.Time {
	t, err := time.Parse("15:04", a.TimeOfDay)
	if err != nil {
		return a.Date
	}
	return time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(),
		t.Hour(), t.Minute(), 0, 0, time.UTC)
}

// Date normalizes a calendar date to UTC midnight.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf truncates an instant to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseTimeOfDay validates and canonicalizes an "HH:MM" time-of-day.
func ParseTimeOfDay(v string) (string, bool) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return "", false
	}
	return t.Format("15:04"), true
}

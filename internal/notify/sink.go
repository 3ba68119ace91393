// Package notify delivers appointment change events to interested
// parties. Delivery is best-effort: a sink failure never rolls back the
// state change that produced the event.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carebook/appointment-booking/internal/model"
)

type EventKind string

const (
	EventAppointmentCreated EventKind = "appointment.created"
	EventStatusChanged      EventKind = "appointment.status_changed"
)

type Event struct {
	Kind        EventKind         `json:"kind"`
	Appointment model.Appointment `json:"appointment"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// Sink receives status-change events for user-facing display.
// Fire-and-forget; no acknowledgment is required.
type Sink interface {
	Notify(ctx context.Context, ev Event) error
}

// PatientChannel names the per-patient event stream.
func PatientChannel(patientID uuid.UUID) string {
	return "appointments:patient:" + patientID.String()
}

// ProviderChannel names the per-provider event stream.
func ProviderChannel(providerID uuid.UUID) string {
	return "appointments:provider:" + providerID.String()
}

// LogSink writes events to the structured log. Used with the memory
// storage driver where no broker is available.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Notify(_ context.Context, ev Event) error {
	s.log.Info().
		Str("kind", string(ev.Kind)).
		Str("appointment_id", ev.Appointment.ID.String()).
		Str("status", string(ev.Appointment.Status)).
		Msg("appointment event")
	return nil
}

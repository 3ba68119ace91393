package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSink publishes events on the patient and provider channels so
// browser sessions subscribed to either party's stream see the change.
type RedisSink struct {
	client *redis.Client
}

func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{client: client}
}

func (s *RedisSink) Notify(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	channels := []string{
		PatientChannel(ev.Appointment.PatientID),
		ProviderChannel(ev.Appointment.ProviderID),
	}
	for _, ch := range channels {
		if err := s.client.Publish(ctx, ch, payload).Err(); err != nil {
			return fmt.Errorf("publish to %s: %w", ch, err)
		}
	}
	return nil
}

package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Subscription is a cancellable handle on one event channel. A single
// goroutine drains the broker, so events for one entity arrive in
// publish order.
type Subscription struct {
	C      <-chan Event
	pubsub *redis.PubSub
	cancel context.CancelFunc
}

// Cancel stops delivery and closes the event channel.
func (s *Subscription) Cancel() {
	s.cancel()
	_ = s.pubsub.Close()
}

// Subscribe opens a live event stream for the given channel name
// (see PatientChannel / ProviderChannel).
func Subscribe(ctx context.Context, client *redis.Client, channel string, log zerolog.Logger) (*Subscription, error) {
	pubsub := client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	out := make(chan Event, 16)

	go func() {
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Warn().Err(err).Str("channel", channel).Msg("dropping undecodable event")
					continue
				}
				select {
				case out <- ev:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{C: out, pubsub: pubsub, cancel: cancel}, nil
}

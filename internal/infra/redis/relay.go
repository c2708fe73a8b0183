package redis

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"listening-quiz-service/internal/domain"
)

const eventsPattern = "room:*:events"

// Deliverer receives events that arrived over pub/sub, normally a memory.Hub.
type Deliverer interface {
	Deliver(evt domain.Event)
}

// Relay publishes room events on a Redis channel per room and forwards every event seen on
// those channels to the local hub, so websocket clients on any instance receive them.
type Relay struct {
	client *redis.Client
	local  Deliverer
	logger zerolog.Logger
}

func NewRelay(client *redis.Client, local Deliverer, logger zerolog.Logger) *Relay {
	return &Relay{client: client, local: local, logger: logger}
}

func (r *Relay) Publish(ctx context.Context, topic, event string, payload any) error {
	evt, err := domain.NewEvent(topic, event, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, eventsChannel(topic), data).Err()
}

// Run forwards pub/sub traffic to the local hub until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.PSubscribe(ctx, eventsPattern)
	defer sub.Close()

	// wait for the subscription to be confirmed so no early publish is lost
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var evt domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				r.logger.Warn().Err(err).Str("channel", msg.Channel).Msg("drop malformed event")
				continue
			}
			if evt.Topic == "" {
				evt.Topic = topicFromChannel(msg.Channel)
			}
			r.local.Deliver(evt)
		}
	}
}

func eventsChannel(code string) string { return "room:" + code + ":events" }

func topicFromChannel(channel string) string {
	return strings.TrimSuffix(strings.TrimPrefix(channel, "room:"), ":events")
}

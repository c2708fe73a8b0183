package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listening-quiz-service/internal/domain"
	"listening-quiz-service/internal/infra/memory"
)

func TestRelayForwardsEventsToLocalHub(t *testing.T) {
	mr := miniredis.RunT(t)
	client := newClient(mr)
	defer client.Close()

	hub := memory.NewHub()
	events, cancel := hub.Subscribe("ABCD")
	defer cancel()

	relay := NewRelay(client, hub, zerolog.Nop())
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	require.Eventually(t, func() bool { return mr.PubSubNumPat() > 0 }, 2*time.Second, 10*time.Millisecond)

	payload := domain.PlayerSummary{ID: "p1", Name: "Ana", JoinedAt: 7}
	require.NoError(t, relay.Publish(context.Background(), "ABCD", domain.EventPlayerJoined, payload))

	select {
	case evt := <-events:
		assert.Equal(t, "ABCD", evt.Topic)
		assert.Equal(t, domain.EventPlayerJoined, evt.Name)
		var got domain.PlayerSummary
		require.NoError(t, json.Unmarshal(evt.Payload, &got))
		assert.Equal(t, payload, got)
	case <-time.After(2 * time.Second):
		t.Fatal("event not relayed")
	}

	stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestTopicFromChannel(t *testing.T) {
	assert.Equal(t, "ABCD", topicFromChannel(eventsChannel("ABCD")))
}

package app

import (
	"context"

	"github.com/rs/zerolog"
)

// emitter publishes room events. The store is authoritative, so publish failures are logged
// and dropped rather than surfaced to the caller.
type emitter struct {
	broadcaster Broadcaster
	logger      zerolog.Logger
}

func newEmitter(broadcaster Broadcaster, logger zerolog.Logger) *emitter {
	return &emitter{broadcaster: broadcaster, logger: logger}
}

func (e *emitter) emit(ctx context.Context, code, event string, payload any) {
	if e.broadcaster == nil {
		return
	}
	if err := e.broadcaster.Publish(ctx, code, event, payload); err != nil {
		e.logger.Warn().Err(err).Str("room", code).Str("event", event).Msg("broadcast failed")
	}
}

package app

import (
	"context"
	"errors"
	"time"

	"listening-quiz-service/internal/domain"
)

const autoFinalizeTimeout = 10 * time.Second

// scheduleFinalize closes the round on the server once its window has elapsed, so a host
// that disconnects does not leave the round open. Finalize is idempotent, so racing a host
// call is harmless.
func (s *Service) scheduleFinalize(code string, round domain.Round, now time.Time) {
	delay := time.UnixMilli(round.EndsAt).Add(s.settings.AutoFinalizeGrace).Sub(now)
	if delay < 0 {
		delay = 0
	}
	s.schedule(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), autoFinalizeTimeout)
		defer cancel()

		_, err := s.FinalizeRound(ctx, code, round.RoundID)
		switch {
		case err == nil, errors.Is(err, domain.ErrFinalizeInProgress):
		case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrRoundNotFound):
			s.logger.Debug().Err(err).Str("room", code).Str("round", round.RoundID).Msg("auto-finalize skipped")
		default:
			s.logger.Error().Err(err).Str("room", code).Str("round", round.RoundID).Msg("auto-finalize failed")
		}
	})
}

package app

import (
	"context"
	"fmt"
	"strings"

	"listening-quiz-service/internal/domain"
)

// SubmitAnswer admits at most one answer per player and round. Checks run in a fixed order
// and each failure maps to its own error: input, room, round, time window, duplicate.
// The admission timestamp is taken from the server clock once and used for scoring.
func (s *Service) SubmitAnswer(ctx context.Context, code, roundID, playerID string, choiceIndex int) (domain.Answer, error) {
	roundID = strings.TrimSpace(roundID)
	playerID = strings.TrimSpace(playerID)
	if roundID == "" || playerID == "" {
		return domain.Answer{}, fmt.Errorf("%w: playerId and roundId are required", domain.ErrInvalidInput)
	}
	if choiceIndex < 0 || choiceIndex >= domain.MaxOptions {
		return domain.Answer{}, fmt.Errorf("%w: choiceIndex must be between 0 and %d", domain.ErrInvalidInput, domain.MaxOptions-1)
	}

	roomTTL, err := s.store.RoomTTL(ctx, code)
	if err != nil {
		return domain.Answer{}, err
	}
	round, err := s.store.Round(ctx, code, roundID)
	if err != nil {
		return domain.Answer{}, err
	}

	now := s.now()
	if err := round.CheckAnswerWindow(now); err != nil {
		return domain.Answer{}, err
	}

	answer := domain.Answer{ChoiceIndex: choiceIndex, AnsweredAt: domain.UnixMilli(now)}
	created, err := s.store.CreateAnswer(ctx, code, roundID, playerID, answer, s.dependentTTL(roomTTL))
	if err != nil {
		return domain.Answer{}, fmt.Errorf("record answer: %w", err)
	}
	if !created {
		return domain.Answer{}, domain.ErrAlreadyAnswered
	}

	s.logger.Debug().Str("room", code).Str("round", roundID).Str("player", playerID).Int("choice", choiceIndex).Msg("answer admitted")
	s.events.emit(ctx, code, domain.EventPlayerAnswered, domain.PlayerAnswered{
		PlayerID:    playerID,
		RoundID:     roundID,
		ChoiceIndex: choiceIndex,
		AnsweredAt:  answer.AnsweredAt,
	})
	return answer, nil
}

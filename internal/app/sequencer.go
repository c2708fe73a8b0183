package app

import (
	"context"
	"fmt"
	"time"

	"listening-quiz-service/internal/domain"
)

// StartNextRound hands the room the next catalog question and schedules its playback and
// answering window. Concurrent calls never receive the same question: the cursor is an
// atomic increment in the store.
func (s *Service) StartNextRound(ctx context.Context, code string) (domain.RoundSchedule, error) {
	roomTTL, err := s.store.RoomTTL(ctx, code)
	if err != nil {
		return domain.RoundSchedule{}, err
	}
	ttl := s.dependentTTL(roomTTL)

	// Load before advancing the cursor so a catalog outage does not burn a question.
	questions, err := s.catalog.Questions(ctx)
	if err != nil {
		return domain.RoundSchedule{}, fmt.Errorf("load catalog: %w", err)
	}

	idx, err := s.store.NextQuestionIndex(ctx, code, ttl)
	if err != nil {
		return domain.RoundSchedule{}, fmt.Errorf("advance question cursor: %w", err)
	}
	if idx >= len(questions) {
		return domain.RoundSchedule{}, domain.ErrNoMoreQuestions
	}

	now := s.now()
	round := s.buildRound(code, idx, questions[idx], now)
	if err := s.store.SaveRound(ctx, code, round, ttl); err != nil {
		return domain.RoundSchedule{}, fmt.Errorf("save round: %w", err)
	}

	schedule := round.Public()
	s.logger.Info().
		Str("room", code).
		Str("round", round.RoundID).
		Int("question", idx).
		Int64("answerStartAt", round.AnswerStartAt).
		Int64("endsAt", round.EndsAt).
		Msg("round started")
	s.events.emit(ctx, code, domain.EventRoundStarted, schedule)

	if s.settings.AutoFinalize {
		s.scheduleFinalize(code, round, now)
	}
	return schedule, nil
}

// buildRound computes the schedule: sequence start after a margin, listening for every
// segment plus the gaps between options, then the fixed answering window.
func (s *Service) buildRound(code string, idx int, q domain.Question, now time.Time) domain.Round {
	sequenceStart := now.Add(s.settings.StartMargin)
	answerStart := sequenceStart.Add(q.ListeningDuration(s.settings.OptionGap))
	ends := answerStart.Add(s.settings.AnswerWindow)

	return domain.Round{
		RoundSchedule: domain.RoundSchedule{
			RoundID:         fmt.Sprintf("%s-%d-%d", code, domain.UnixMilli(now), idx),
			Difficulty:      q.Difficulty,
			QuestionURL:     q.QuestionURL,
			OptionURLs:      append([]string(nil), q.OptionURLs...),
			AnswerURL:       q.AnswerURL,
			SequenceStartAt: domain.UnixMilli(sequenceStart),
			AnswerStartAt:   domain.UnixMilli(answerStart),
			EndsAt:          domain.UnixMilli(ends),
		},
		QuestionIndex: idx,
		CorrectIndex:  q.CorrectIndex,
		CreatedAt:     domain.UnixMilli(now),
	}
}

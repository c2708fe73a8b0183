package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"listening-quiz-service/internal/domain"
)

// FinalizeRound scores a round once and returns its result. Any number of concurrent or
// repeated calls observe the same stored result; a caller that loses the lock before the
// winner stored its result gets domain.ErrFinalizeInProgress and may retry.
func (s *Service) FinalizeRound(ctx context.Context, code, roundID string) (domain.RoundResult, error) {
	roundID = strings.TrimSpace(roundID)
	if roundID == "" {
		return domain.RoundResult{}, fmt.Errorf("%w: roundId is required", domain.ErrInvalidInput)
	}

	roomTTL, err := s.store.RoomTTL(ctx, code)
	if err != nil {
		return domain.RoundResult{}, err
	}
	ttl := s.dependentTTL(roomTTL)

	// Resolve the round before taking the lock so a bad id leaves nothing behind.
	round, err := s.store.Round(ctx, code, roundID)
	if err != nil {
		return domain.RoundResult{}, err
	}

	acquired, err := s.store.AcquireFinalizeLock(ctx, code, roundID, minDuration(ttl, s.settings.FinalizeLockTTL))
	if err != nil {
		return domain.RoundResult{}, fmt.Errorf("acquire finalize lock: %w", err)
	}
	// A result may exist even when we hold the lock: the previous holder's lock expired after
	// it stored the result.
	existing, found, err := s.store.Result(ctx, code, roundID)
	if err != nil {
		return domain.RoundResult{}, fmt.Errorf("load result: %w", err)
	}
	if found {
		return existing, nil
	}
	if !acquired {
		return domain.RoundResult{}, domain.ErrFinalizeInProgress
	}

	result, err := s.computeResult(ctx, code, round, ttl)
	if err != nil {
		return domain.RoundResult{}, err
	}

	stored, created, err := s.store.StoreResult(ctx, code, result, ttl)
	if err != nil {
		return domain.RoundResult{}, fmt.Errorf("store result: %w", err)
	}
	if created {
		s.logger.Info().Str("room", code).Str("round", roundID).Int("players", len(stored.PerPlayer)).Msg("round finalized")
		s.events.emit(ctx, code, domain.EventRoundEnded, stored)
	}
	return stored, nil
}

func (s *Service) computeResult(ctx context.Context, code string, round domain.Round, ttl time.Duration) (domain.RoundResult, error) {
	players, err := s.store.Players(ctx, code)
	if err != nil {
		return domain.RoundResult{}, fmt.Errorf("load players: %w", err)
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].JoinedAt != players[j].JoinedAt {
			return players[i].JoinedAt < players[j].JoinedAt
		}
		return players[i].ID < players[j].ID
	})

	ids := make([]string, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	answers, err := s.store.Answers(ctx, code, round.RoundID, ids)
	if err != nil {
		return domain.RoundResult{}, fmt.Errorf("load answers: %w", err)
	}

	outcomes := make([]domain.PlayerOutcome, 0, len(players))
	for _, p := range players {
		outcome := domain.PlayerOutcome{ID: p.ID, Name: displayName(p)}
		if answer, ok := answers[p.ID]; ok {
			choice, at := answer.ChoiceIndex, answer.AnsweredAt
			outcome.ChoiceIndex = &choice
			outcome.AnsweredAt = &at
			outcome.Correct, outcome.Delta = scoreAnswer(round, &answer)
		}
		outcomes = append(outcomes, outcome)
	}

	for _, o := range outcomes {
		if o.Delta <= 0 {
			continue
		}
		if err := s.store.CreditScore(ctx, code, round.RoundID, o.ID, o.Delta, ttl); err != nil {
			return domain.RoundResult{}, fmt.Errorf("credit score for %s: %w", o.ID, err)
		}
	}

	scores, err := s.store.Scores(ctx, code)
	if err != nil {
		return domain.RoundResult{}, fmt.Errorf("load scores: %w", err)
	}

	return domain.RoundResult{
		RoundID:      round.RoundID,
		CorrectIndex: round.CorrectIndex,
		CorrectLabel: optionLabel(round.CorrectIndex),
		PerPlayer:    outcomes,
		Leaderboard:  rankLeaderboard(players, scores),
		EndedAt:      domain.UnixMilli(s.now()),
	}, nil
}

// RoundStatus is a round's public schedule together with its server-side phase.
type RoundStatus struct {
	domain.RoundSchedule
	Phase     domain.Phase `json:"phase"`
	ServerNow int64        `json:"serverNow"`
}

// RoundStatus reports where a round stands right now.
func (s *Service) RoundStatus(ctx context.Context, code, roundID string) (RoundStatus, error) {
	if _, err := s.store.RoomTTL(ctx, code); err != nil {
		return RoundStatus{}, err
	}
	round, err := s.store.Round(ctx, code, roundID)
	if err != nil {
		return RoundStatus{}, err
	}
	_, finalized, err := s.store.Result(ctx, code, roundID)
	if err != nil {
		return RoundStatus{}, fmt.Errorf("load result: %w", err)
	}
	now := s.now()
	return RoundStatus{
		RoundSchedule: round.Public(),
		Phase:         domain.PhaseAt(&round, now, finalized),
		ServerNow:     domain.UnixMilli(now),
	}, nil
}

func minDuration(a, b time.Duration) time.Duration {
	if b > 0 && b < a {
		return b
	}
	return a
}

package memory

import (
	"context"
	"sync"
	"time"

	"listening-quiz-service/internal/domain"
)

// Store is an in-memory implementation of app.RoomStore for tests and single-node runs.
// A single mutex stands in for the atomicity Redis provides; entries expire lazily.
type Store struct {
	mu    sync.Mutex
	clock func() time.Time
	items map[string]*item
}

type item struct {
	value     any
	expiresAt time.Time
}

func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock allows deterministic expiry in tests.
func NewStoreWithClock(clock func() time.Time) *Store {
	return &Store{
		clock: clock,
		items: make(map[string]*item),
	}
}

func (s *Store) CreateRoom(_ context.Context, room domain.Room, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setNXLocked(roomKey(room.Code), room, ttl), nil
}

func (s *Store) RoomTTL(_ context.Context, code string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := s.getLocked(roomKey(code))
	if it == nil {
		return 0, domain.ErrRoomNotFound
	}
	if it.expiresAt.IsZero() {
		return 0, nil
	}
	return it.expiresAt.Sub(s.clock()), nil
}

func (s *Store) AddPlayer(_ context.Context, code string, player domain.Player, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(playerKey(code, player.ID), player, ttl)

	members := s.setMembersLocked(playersKey(code))
	members[player.ID] = struct{}{}
	s.setLocked(playersKey(code), members, ttl)
	return nil
}

func (s *Store) Players(_ context.Context, code string) ([]domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := s.setMembersLocked(playersKey(code))
	players := make([]domain.Player, 0, len(members))
	for id := range members {
		if it := s.getLocked(playerKey(code, id)); it != nil {
			players = append(players, it.value.(domain.Player))
			continue
		}
		players = append(players, domain.Player{ID: id})
	}
	return players, nil
}

func (s *Store) NextQuestionIndex(_ context.Context, code string, ttl time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := cursorKey(code)
	next := 1
	if it := s.getLocked(key); it != nil {
		next = it.value.(int) + 1
	}
	s.setLocked(key, next, ttl)
	return next - 1, nil
}

func (s *Store) SaveRound(_ context.Context, code string, round domain.Round, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(roundKey(code, round.RoundID), round, ttl)
	return nil
}

func (s *Store) Round(_ context.Context, code, roundID string) (domain.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := s.getLocked(roundKey(code, roundID))
	if it == nil {
		return domain.Round{}, domain.ErrRoundNotFound
	}
	return it.value.(domain.Round), nil
}

func (s *Store) CreateAnswer(_ context.Context, code, roundID, playerID string, answer domain.Answer, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setNXLocked(answerKey(code, roundID, playerID), answer, ttl), nil
}

func (s *Store) Answers(_ context.Context, code, roundID string, playerIDs []string) (map[string]domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	answers := make(map[string]domain.Answer, len(playerIDs))
	for _, id := range playerIDs {
		if it := s.getLocked(answerKey(code, roundID, id)); it != nil {
			answers[id] = it.value.(domain.Answer)
		}
	}
	return answers, nil
}

func (s *Store) AcquireFinalizeLock(_ context.Context, code, roundID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setNXLocked(lockKey(code, roundID), s.clock(), ttl), nil
}

func (s *Store) StoreResult(_ context.Context, code string, result domain.RoundResult, ttl time.Duration) (domain.RoundResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := resultKey(code, result.RoundID)
	if s.setNXLocked(key, result, ttl) {
		return result, true, nil
	}
	return s.getLocked(key).value.(domain.RoundResult), false, nil
}

func (s *Store) Result(_ context.Context, code, roundID string) (domain.RoundResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := s.getLocked(resultKey(code, roundID))
	if it == nil {
		return domain.RoundResult{}, false, nil
	}
	return it.value.(domain.RoundResult), true, nil
}

func (s *Store) CreditScore(_ context.Context, code, roundID, playerID string, delta int, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	credited := s.setMembersLocked(creditedKey(code, roundID))
	if _, done := credited[playerID]; done {
		return nil
	}
	credited[playerID] = struct{}{}
	s.setLocked(creditedKey(code, roundID), credited, ttl)

	scores := s.hashLocked(scoresKey(code))
	scores[playerID] += int64(delta)
	s.setLocked(scoresKey(code), scores, ttl)
	return nil
}

func (s *Store) Scores(_ context.Context, code string) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scores := s.hashLocked(scoresKey(code))
	out := make(map[string]int64, len(scores))
	for id, score := range scores {
		out[id] = score
	}
	return out, nil
}

func (s *Store) getLocked(key string) *item {
	it, ok := s.items[key]
	if !ok {
		return nil
	}
	if !it.expiresAt.IsZero() && !s.clock().Before(it.expiresAt) {
		delete(s.items, key)
		return nil
	}
	return it
}

func (s *Store) setLocked(key string, value any, ttl time.Duration) {
	it := &item{value: value}
	if ttl > 0 {
		it.expiresAt = s.clock().Add(ttl)
	}
	s.items[key] = it
}

func (s *Store) setNXLocked(key string, value any, ttl time.Duration) bool {
	if s.getLocked(key) != nil {
		return false
	}
	s.setLocked(key, value, ttl)
	return true
}

func (s *Store) setMembersLocked(key string) map[string]struct{} {
	if it := s.getLocked(key); it != nil {
		return it.value.(map[string]struct{})
	}
	return make(map[string]struct{})
}

func (s *Store) hashLocked(key string) map[string]int64 {
	if it := s.getLocked(key); it != nil {
		return it.value.(map[string]int64)
	}
	return make(map[string]int64)
}

func roomKey(code string) string              { return "room:" + code }
func playersKey(code string) string           { return "room:" + code + ":players" }
func playerKey(code, id string) string        { return "room:" + code + ":player:" + id }
func cursorKey(code string) string            { return "room:" + code + ":questionIndex" }
func roundKey(code, roundID string) string    { return "room:" + code + ":round:" + roundID }
func lockKey(code, roundID string) string     { return "room:" + code + ":roundEnded:" + roundID }
func resultKey(code, roundID string) string   { return "room:" + code + ":roundResult:" + roundID }
func scoresKey(code string) string            { return "room:" + code + ":scores" }
func creditedKey(code, roundID string) string { return "room:" + code + ":credited:" + roundID }
func answerKey(code, roundID, playerID string) string {
	return "room:" + code + ":answer:" + roundID + ":" + playerID
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"listening-quiz-service/internal/domain"
)

// Store is the Redis implementation of app.RoomStore.
// Keys:
//
//	room:{code}                           room record, master TTL
//	room:{code}:players                   SET of player ids
//	room:{code}:player:{id}               player JSON
//	room:{code}:questionIndex             INCR cursor
//	room:{code}:round:{roundId}           round JSON (includes correct index)
//	room:{code}:answer:{roundId}:{player} answer JSON, SET NX
//	room:{code}:roundEnded:{roundId}      finalize lock, SET NX
//	room:{code}:roundResult:{roundId}     result JSON, SET NX
//	room:{code}:credited:{roundId}        SET of players already credited for the round
//	room:{code}:scores                    HASH player id -> cumulative score
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// creditScript adds the delta only for players not yet in the round's credit set, so a
// recomputed finalization never counts a player twice.
var creditScript = redis.NewScript(`
local added = redis.call('SADD', KEYS[1], ARGV[1])
if added == 1 then
  redis.call('HINCRBY', KEYS[2], ARGV[1], ARGV[2])
end
if tonumber(ARGV[3]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[3])
  redis.call('PEXPIRE', KEYS[2], ARGV[3])
end
return added
`)

func (s *Store) CreateRoom(ctx context.Context, room domain.Room, ttl time.Duration) (bool, error) {
	return s.setNX(ctx, roomKey(room.Code), room, ttl)
}

func (s *Store) RoomTTL(ctx context.Context, code string) (time.Duration, error) {
	ttl, err := s.client.PTTL(ctx, roomKey(code)).Result()
	if err != nil {
		return 0, err
	}
	switch {
	case ttl == -2:
		return 0, domain.ErrRoomNotFound
	case ttl < 0:
		return 0, nil
	}
	return ttl, nil
}

func (s *Store) AddPlayer(ctx context.Context, code string, player domain.Player, ttl time.Duration) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, playerKey(code, player.ID), data, ttl)
		pipe.SAdd(ctx, playersKey(code), player.ID)
		if ttl > 0 {
			pipe.PExpire(ctx, playersKey(code), ttl)
		}
		return nil
	})
	return err
}

func (s *Store) Players(ctx context.Context, code string) ([]domain.Player, error) {
	ids, err := s.client.SMembers(ctx, playersKey(code)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = playerKey(code, id)
	}
	raw, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	players := make([]domain.Player, len(ids))
	for i, id := range ids {
		players[i] = domain.Player{ID: id}
		if err := decodeOptional(raw[i], &players[i]); err != nil {
			return nil, fmt.Errorf("decode player %s: %w", id, err)
		}
	}
	return players, nil
}

func (s *Store) NextQuestionIndex(ctx context.Context, code string, ttl time.Duration) (int, error) {
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, cursorKey(code))
		if ttl > 0 {
			pipe.PExpire(ctx, cursorKey(code), ttl)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(incr.Val() - 1), nil
}

func (s *Store) SaveRound(ctx context.Context, code string, round domain.Round, ttl time.Duration) error {
	data, err := json.Marshal(round)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, roundKey(code, round.RoundID), data, ttl).Err()
}

func (s *Store) Round(ctx context.Context, code, roundID string) (domain.Round, error) {
	var round domain.Round
	found, err := s.get(ctx, roundKey(code, roundID), &round)
	if err != nil {
		return domain.Round{}, err
	}
	if !found {
		return domain.Round{}, domain.ErrRoundNotFound
	}
	return round, nil
}

func (s *Store) CreateAnswer(ctx context.Context, code, roundID, playerID string, answer domain.Answer, ttl time.Duration) (bool, error) {
	return s.setNX(ctx, answerKey(code, roundID, playerID), answer, ttl)
}

func (s *Store) Answers(ctx context.Context, code, roundID string, playerIDs []string) (map[string]domain.Answer, error) {
	answers := make(map[string]domain.Answer, len(playerIDs))
	if len(playerIDs) == 0 {
		return answers, nil
	}
	keys := make([]string, len(playerIDs))
	for i, id := range playerIDs {
		keys[i] = answerKey(code, roundID, id)
	}
	raw, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, id := range playerIDs {
		if raw[i] == nil {
			continue
		}
		var answer domain.Answer
		if err := decodeOptional(raw[i], &answer); err != nil {
			return nil, fmt.Errorf("decode answer of %s: %w", id, err)
		}
		answers[id] = answer
	}
	return answers, nil
}

func (s *Store) AcquireFinalizeLock(ctx context.Context, code, roundID string, ttl time.Duration) (bool, error) {
	return s.setNX(ctx, lockKey(code, roundID), map[string]int64{"endedAt": time.Now().UnixMilli()}, ttl)
}

func (s *Store) StoreResult(ctx context.Context, code string, result domain.RoundResult, ttl time.Duration) (domain.RoundResult, bool, error) {
	created, err := s.setNX(ctx, resultKey(code, result.RoundID), result, ttl)
	if err != nil {
		return domain.RoundResult{}, false, err
	}
	if created {
		return result, true, nil
	}
	stored, found, err := s.Result(ctx, code, result.RoundID)
	if err != nil {
		return domain.RoundResult{}, false, err
	}
	if !found {
		return domain.RoundResult{}, false, fmt.Errorf("result of %s vanished after conflicting write", result.RoundID)
	}
	return stored, false, nil
}

func (s *Store) Result(ctx context.Context, code, roundID string) (domain.RoundResult, bool, error) {
	var result domain.RoundResult
	found, err := s.get(ctx, resultKey(code, roundID), &result)
	if err != nil || !found {
		return domain.RoundResult{}, false, err
	}
	return result, true, nil
}

func (s *Store) CreditScore(ctx context.Context, code, roundID, playerID string, delta int, ttl time.Duration) error {
	keys := []string{creditedKey(code, roundID), scoresKey(code)}
	return creditScript.Run(ctx, s.client, keys, playerID, delta, ttl.Milliseconds()).Err()
}

func (s *Store) Scores(ctx context.Context, code string) (map[string]int64, error) {
	raw, err := s.client.HGetAll(ctx, scoresKey(code)).Result()
	if err != nil {
		return nil, err
	}
	scores := make(map[string]int64, len(raw))
	for id, v := range raw {
		score, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse score of %s: %w", id, err)
		}
		scores[id] = score
	}
	return scores, nil
}

func (s *Store) setNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	return s.client.SetNX(ctx, key, data, ttl).Result()
}

func (s *Store) get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, dst)
}

// decodeOptional unmarshals an MGET slot, leaving dst untouched for missing keys.
func decodeOptional(slot interface{}, dst any) error {
	str, ok := slot.(string)
	if !ok {
		return nil
	}
	return json.Unmarshal([]byte(str), dst)
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

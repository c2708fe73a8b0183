package app

import (
	"context"
	"time"

	"listening-quiz-service/internal/domain"
)

// RoomStore abstracts the ephemeral store (in-memory, Redis). Every write takes the TTL the
// key must carry; callers pass the room's remaining lifetime so nothing outlives its room.
// Methods named Create*/Acquire*/Store* are create-if-absent and report whether they won.
type RoomStore interface {
	CreateRoom(ctx context.Context, room domain.Room, ttl time.Duration) (bool, error)
	// RoomTTL returns domain.ErrRoomNotFound when the room is missing and 0 when it has no expiry.
	RoomTTL(ctx context.Context, code string) (time.Duration, error)

	AddPlayer(ctx context.Context, code string, player domain.Player, ttl time.Duration) error
	// Players returns one entry per roster id; ids whose record expired come back with only ID set.
	Players(ctx context.Context, code string) ([]domain.Player, error)

	// NextQuestionIndex atomically advances the room cursor and returns the 0-based index handed out.
	NextQuestionIndex(ctx context.Context, code string, ttl time.Duration) (int, error)
	SaveRound(ctx context.Context, code string, round domain.Round, ttl time.Duration) error
	// Round returns domain.ErrRoundNotFound when nothing is stored under roundID.
	Round(ctx context.Context, code, roundID string) (domain.Round, error)

	CreateAnswer(ctx context.Context, code, roundID, playerID string, answer domain.Answer, ttl time.Duration) (bool, error)
	// Answers loads the answers of playerIDs in one batch; players without an answer are absent.
	Answers(ctx context.Context, code, roundID string, playerIDs []string) (map[string]domain.Answer, error)

	AcquireFinalizeLock(ctx context.Context, code, roundID string, ttl time.Duration) (bool, error)
	// StoreResult persists result unless one exists, and returns whichever result is stored.
	StoreResult(ctx context.Context, code string, result domain.RoundResult, ttl time.Duration) (domain.RoundResult, bool, error)
	Result(ctx context.Context, code, roundID string) (domain.RoundResult, bool, error)

	// CreditScore adds delta to the player's cumulative score at most once per round.
	CreditScore(ctx context.Context, code, roundID, playerID string, delta int, ttl time.Duration) error
	Scores(ctx context.Context, code string) (map[string]int64, error)
}

// Catalog returns the ordered question list shared by every room.
type Catalog interface {
	Questions(ctx context.Context) ([]domain.Question, error)
}

// Broadcaster fans a named event out to every subscriber of topic. Delivery is best-effort.
type Broadcaster interface {
	Publish(ctx context.Context, topic, event string, payload any) error
}

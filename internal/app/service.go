package app

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Settings holds the timing and lifetime knobs of a game.
type Settings struct {
	RoomTTL           time.Duration
	StartMargin       time.Duration
	OptionGap         time.Duration
	AnswerWindow      time.Duration
	FinalizeLockTTL   time.Duration
	AutoFinalize      bool
	AutoFinalizeGrace time.Duration
}

// DefaultSettings mirrors the timings the host and player screens are built around.
func DefaultSettings() Settings {
	return Settings{
		RoomTTL:           2 * time.Hour,
		StartMargin:       time.Second,
		OptionGap:         3 * time.Second,
		AnswerWindow:      10 * time.Second,
		FinalizeLockTTL:   30 * time.Second,
		AutoFinalizeGrace: 500 * time.Millisecond,
	}
}

// ErrInvalidSettings wraps every rejected Settings value.
var ErrInvalidSettings = errors.New("invalid settings")

// Validate rejects timings that would let a round open answers before its sequence starts
// or close them as they open.
func (s Settings) Validate() error {
	switch {
	case s.AnswerWindow <= 0:
		return fmt.Errorf("%w: answer window must be positive, got %s", ErrInvalidSettings, s.AnswerWindow)
	case s.StartMargin < 0:
		return fmt.Errorf("%w: negative start margin %s", ErrInvalidSettings, s.StartMargin)
	case s.OptionGap < 0:
		return fmt.Errorf("%w: negative option gap %s", ErrInvalidSettings, s.OptionGap)
	case s.RoomTTL < 0:
		return fmt.Errorf("%w: negative room ttl %s", ErrInvalidSettings, s.RoomTTL)
	case s.FinalizeLockTTL <= 0:
		return fmt.Errorf("%w: finalize lock ttl must be positive, got %s", ErrInvalidSettings, s.FinalizeLockTTL)
	case s.AutoFinalizeGrace < 0:
		return fmt.Errorf("%w: negative auto-finalize grace %s", ErrInvalidSettings, s.AutoFinalizeGrace)
	}
	return nil
}

// Scheduler runs f once after d. time.AfterFunc satisfies it.
type Scheduler func(d time.Duration, f func())

// Service contains the room, round, answer and scoring use cases. It keeps no game state of
// its own: every contended resource is arbitrated by the store's atomic primitives.
type Service struct {
	store    RoomStore
	catalog  Catalog
	events   *emitter
	settings Settings
	logger   zerolog.Logger

	now         func() time.Time
	newCode     func() string
	newPlayerID func() string
	schedule    Scheduler
}

func NewService(store RoomStore, catalog Catalog, broadcaster Broadcaster, settings Settings, logger zerolog.Logger) *Service {
	return &Service{
		store:       store,
		catalog:     catalog,
		events:      newEmitter(broadcaster, logger),
		settings:    settings,
		logger:      logger,
		now:         time.Now,
		newCode:     newRoomCodeGenerator(),
		newPlayerID: uuid.NewString,
		schedule:    func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithCodeGenerator replaces the random room code source.
func (s *Service) WithCodeGenerator(gen func() string) *Service {
	s.newCode = gen
	return s
}

// WithScheduler replaces time.AfterFunc for auto-finalization.
func (s *Service) WithScheduler(schedule Scheduler) *Service {
	s.schedule = schedule
	return s
}

// dependentTTL turns a room's remaining TTL into the TTL for keys written under it.
func (s *Service) dependentTTL(roomTTL time.Duration) time.Duration {
	if roomTTL > 0 {
		return roomTTL
	}
	return s.settings.RoomTTL
}

const (
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	roomCodeLength   = 4
)

func newRoomCodeGenerator() func() string {
	var mu sync.Mutex
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		code := make([]byte, roomCodeLength)
		for i := range code {
			code[i] = roomCodeAlphabet[rnd.Intn(len(roomCodeAlphabet))]
		}
		return string(code)
	}
}

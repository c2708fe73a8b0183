package app_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"listening-quiz-service/internal/app"
	"listening-quiz-service/internal/domain"
	"listening-quiz-service/internal/infra/memory"
	redisstore "listening-quiz-service/internal/infra/redis"
)

var t0 = time.UnixMilli(1_700_000_000_000)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	store   app.RoomStore
	hub     *memory.Hub
	clock   *clock
	service *app.Service
}

type fixtureOption func(*app.Settings)

func withAutoFinalize(s *app.Settings) { s.AutoFinalize = true }

// newFixture builds a service over the in-memory store sharing the fixture clock.
func newFixture(t *testing.T, questions []domain.Question, opts ...fixtureOption) *fixture {
	t.Helper()
	c := &clock{now: t0}
	return buildFixture(t, memory.NewStoreWithClock(c.Now), c, questions, opts...)
}

// newRedisFixture builds the same service over the Redis store backed by miniredis.
func newRedisFixture(t *testing.T, questions []domain.Question, opts ...fixtureOption) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return buildFixture(t, redisstore.NewStore(client), &clock{now: t0}, questions, opts...)
}

func buildFixture(t *testing.T, store app.RoomStore, c *clock, questions []domain.Question, opts ...fixtureOption) *fixture {
	t.Helper()
	settings := app.DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	hub := memory.NewHub()
	catalog := memory.NewCatalogCache(memory.NewStaticCatalogLoader(questions), time.Minute)
	service := app.NewService(store, catalog, hub, settings, zerolog.Nop()).WithClock(c.Now)
	return &fixture{store: store, hub: hub, clock: c, service: service}
}

// eachStore runs fn against the in-memory and the Redis store.
func eachStore(t *testing.T, questions []domain.Question, fn func(t *testing.T, f *fixture)) {
	t.Run("memory", func(t *testing.T) { fn(t, newFixture(t, questions)) })
	t.Run("redis", func(t *testing.T) { fn(t, newRedisFixture(t, questions)) })
}

func (f *fixture) room(t *testing.T) string {
	t.Helper()
	room, err := f.service.CreateRoom(context.Background())
	require.NoError(t, err)
	return room.Code
}

func (f *fixture) join(t *testing.T, code, name string) string {
	t.Helper()
	player, err := f.service.Join(context.Background(), code, app.JoinRequest{Name: name})
	require.NoError(t, err)
	return player.ID
}

// question builds a catalog entry whose listening phase lasts exactly listen.
func question(id string, difficulty int, listen time.Duration) domain.Question {
	return domain.Question{
		ID:               id,
		Difficulty:       difficulty,
		QuestionURL:      fmt.Sprintf("/audio/%s_question.mp3", id),
		QuestionDuration: listen.Seconds(),
		OptionURLs:       []string{fmt.Sprintf("/audio/%s_A.mp3", id)},
		OptionDurations:  []float64{0},
		CorrectIndex:     0,
	}
}

func catalogOf(n int) []domain.Question {
	questions := make([]domain.Question, n)
	for i := range questions {
		questions[i] = question(fmt.Sprintf("q%d", i+1), 1+i%3, 5*time.Second)
	}
	return questions
}

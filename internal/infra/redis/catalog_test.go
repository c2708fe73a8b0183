package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listening-quiz-service/internal/domain"
	"listening-quiz-service/internal/infra/memory"
)

func TestCatalogCacheCachesInRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := newClient(mr)
	defer client.Close()

	loader := &countingLoader{
		CatalogLoader: memory.NewStaticCatalogLoader([]domain.Question{sampleQuestion()}),
	}
	cache := NewCatalogCache(client, loader, time.Minute)

	questions, err := cache.Questions(context.Background())
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, 1, loader.calls)
	assert.True(t, mr.Exists(catalogKey))

	ttl := mr.TTL(catalogKey)
	assert.GreaterOrEqual(t, ttl, time.Minute)
	assert.LessOrEqual(t, ttl, time.Minute+6*time.Second)

	// Second call should hit cache, loader not incremented.
	again, err := cache.Questions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, questions, again)
	assert.Equal(t, 1, loader.calls)

	require.NoError(t, cache.Invalidate(context.Background()))
	_, err = cache.Questions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, loader.calls)
}

func TestCatalogCacheSharedAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	client := newClient(mr)
	defer client.Close()

	first := &countingLoader{CatalogLoader: memory.NewStaticCatalogLoader([]domain.Question{sampleQuestion()})}
	second := &countingLoader{CatalogLoader: memory.NewStaticCatalogLoader(nil)}

	_, err := NewCatalogCache(client, first, time.Minute).Questions(context.Background())
	require.NoError(t, err)

	questions, err := NewCatalogCache(client, second, time.Minute).Questions(context.Background())
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "q1", questions[0].ID)
	assert.Equal(t, 0, second.calls)
}

type countingLoader struct {
	memory.CatalogLoader
	calls int
}

func (l *countingLoader) LoadCatalog(ctx context.Context) ([]domain.Question, error) {
	l.calls++
	return l.CatalogLoader.LoadCatalog(ctx)
}

func sampleQuestion() domain.Question {
	return domain.Question{
		ID:               "q1",
		Difficulty:       2,
		QuestionURL:      "/audio/q1_question.mp3",
		QuestionDuration: 7.4,
		OptionURLs:       []string{"/audio/q1_A.mp3", "/audio/q1_B.mp3"},
		OptionDurations:  []float64{5.6, 5},
		CorrectIndex:     1,
		AnswerURL:        "/audio/q1_answer.mp3",
	}
}

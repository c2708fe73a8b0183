package memory

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"listening-quiz-service/internal/domain"
)

// CatalogLoader fetches the ordered question list from a backing store (file, Postgres).
type CatalogLoader interface {
	LoadCatalog(ctx context.Context) ([]domain.Question, error)
}

// CatalogCache caches the catalog with TTL to avoid repeated loader hits.
type CatalogCache struct {
	loader CatalogLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu        sync.RWMutex
	loaded    bool
	questions []domain.Question
	expiresAt time.Time
}

func NewCatalogCache(loader CatalogLoader, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CatalogCache) Questions(ctx context.Context) ([]domain.Question, error) {
	if questions, ok := c.cached(); ok {
		return questions, nil
	}

	result, err, _ := c.sf.Do("catalog", func() (interface{}, error) {
		if questions, ok := c.cached(); ok {
			return questions, nil
		}

		questions, err := c.loader.LoadCatalog(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.loaded = true
		c.questions = questions
		c.expiresAt = c.clock().Add(c.ttlWithJitter())
		c.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *CatalogCache) cached() ([]domain.Question, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.loaded && c.expiresAt.After(c.clock()) {
		return c.questions, true
	}
	return nil, false
}

func (c *CatalogCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// StaticCatalogLoader serves a fixed question list (useful for tests/demos).
type StaticCatalogLoader struct {
	questions []domain.Question
}

func NewStaticCatalogLoader(questions []domain.Question) *StaticCatalogLoader {
	return &StaticCatalogLoader{questions: questions}
}

func (l *StaticCatalogLoader) LoadCatalog(_ context.Context) ([]domain.Question, error) {
	return l.questions, nil
}

// FileCatalogLoader reads the catalog from a YAML file with a top-level `questions` list.
type FileCatalogLoader struct {
	path string
}

func NewFileCatalogLoader(path string) *FileCatalogLoader {
	return &FileCatalogLoader{path: path}
}

type catalogFile struct {
	Questions []domain.Question `yaml:"questions"`
}

func (l *FileCatalogLoader) LoadCatalog(_ context.Context) ([]domain.Question, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog document.
func ParseCatalog(data []byte) ([]domain.Question, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	for _, q := range file.Questions {
		if err := q.Validate(); err != nil {
			return nil, err
		}
	}
	return file.Questions, nil
}

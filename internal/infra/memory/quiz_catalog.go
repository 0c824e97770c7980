package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"quiz-stats-service/internal/domain"
)

// QuizSource loads quiz structure from the backing store.
type QuizSource interface {
	GetQuiz(ctx context.Context, slug string) (domain.Quiz, error)
}

// QuizCatalog caches quiz structures with a TTL so the category fallback
// does not reload the same quiz for every user.
type QuizCatalog struct {
	source QuizSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizCatalog(source QuizSource, ttl time.Duration) *QuizCatalog {
	return &QuizCatalog{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
	}
}

func (c *QuizCatalog) GetQuiz(ctx context.Context, slug string) (domain.Quiz, error) {
	if quiz, ok := c.lookup(slug); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(slug, func() (interface{}, error) {
		if quiz, ok := c.lookup(slug); ok {
			return quiz, nil
		}
		quiz, err := c.source.GetQuiz(ctx, slug)
		if err != nil {
			return domain.Quiz{}, err
		}

		c.mu.Lock()
		c.cache[slug] = cachedQuiz{quiz: quiz, expiresAt: c.clock().Add(c.ttlWithJitterLocked())}
		c.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *QuizCatalog) lookup(slug string) (domain.Quiz, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[slug]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.Quiz{}, false
	}
	return entry.quiz, true
}

func (c *QuizCatalog) ttlWithJitterLocked() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

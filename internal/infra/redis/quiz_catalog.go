package redis

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"quiz-stats-service/internal/domain"
)

// QuizSource loads quiz structure from the backing store.
type QuizSource interface {
	GetQuiz(ctx context.Context, slug string) (domain.Quiz, error)
}

// QuizCatalog caches quiz rounds in Redis (hash per quiz) and falls back to
// the source on a miss. Rounds are stored as:
//
//	HSET quiz:{slug}:rounds {position} {categoryID}\x1f{categoryName}
//
// Uncategorized rounds keep an empty value. A quiz without rounds is never
// cached.
type QuizCatalog struct {
	client *redis.Client
	source QuizSource
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

const roundFieldSep = "\x1f"

func NewQuizCatalog(client *redis.Client, source QuizSource, ttl time.Duration) *QuizCatalog {
	return &QuizCatalog{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuizCatalog) GetQuiz(ctx context.Context, slug string) (domain.Quiz, error) {
	key := roundsKey(slug)
	if quiz, ok := c.cached(ctx, key, slug); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(slug, func() (interface{}, error) {
		// Re-check in case another caller filled it.
		if quiz, ok := c.cached(ctx, key, slug); ok {
			return quiz, nil
		}

		quiz, err := c.source.GetQuiz(ctx, slug)
		if err != nil {
			return domain.Quiz{}, err
		}
		if len(quiz.Rounds) == 0 {
			return quiz, nil
		}

		pipe := c.client.Pipeline()
		for _, r := range quiz.Rounds {
			pipe.HSet(ctx, key, strconv.Itoa(r.Position), encodeRound(r))
		}
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *QuizCatalog) cached(ctx context.Context, key, slug string) (domain.Quiz, bool) {
	fields, err := c.client.HGetAll(ctx, key).Result()
	if err != nil || len(fields) == 0 {
		return domain.Quiz{}, false
	}
	quiz, err := decodeQuiz(slug, fields)
	if err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func roundsKey(slug string) string {
	return "quiz:" + slug + ":rounds"
}

func encodeRound(r domain.Round) string {
	if !r.Categorized() {
		return ""
	}
	return r.CategoryID + roundFieldSep + r.CategoryName
}

func decodeQuiz(slug string, fields map[string]string) (domain.Quiz, error) {
	rounds := make([]domain.Round, 0, len(fields))
	for field, value := range fields {
		position, err := strconv.Atoi(field)
		if err != nil {
			return domain.Quiz{}, fmt.Errorf("round position %q: %w", field, err)
		}
		round := domain.Round{Position: position}
		if value != "" {
			round.CategoryID, round.CategoryName, _ = strings.Cut(value, roundFieldSep)
		}
		rounds = append(rounds, round)
	}
	sort.Slice(rounds, func(i, j int) bool { return rounds[i].Position < rounds[j].Position })
	return domain.Quiz{Slug: slug, Rounds: rounds}, nil
}

func (c *QuizCatalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"secretquiz-service/internal/app"
	"secretquiz-service/internal/domain"
	"secretquiz-service/internal/infra/memory"
)

// Catalog caches quiz summaries in Redis (JSON per quiz) and falls back to a
// loader on cache miss. Keys: quiz:summary:{id}. Mutations invalidate with a
// DEL so the next read repopulates from the store.
type Catalog struct {
	client *redis.Client
	loader memory.SummaryLoader
	ttl    time.Duration
	sf     singleflight.Group
}

var _ app.SummaryCatalog = (*Catalog)(nil)

func NewCatalog(client *redis.Client, loader memory.SummaryLoader, ttl time.Duration) *Catalog {
	return &Catalog{
		client: client,
		loader: loader,
		ttl:    ttl,
	}
}

func (c *Catalog) Summary(ctx context.Context, quizID uint64) (domain.QuizSummary, error) {
	key := summaryKey(quizID)

	if summary, ok := c.fetch(ctx, key); ok {
		return summary, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if summary, ok := c.fetch(ctx, key); ok {
			return summary, nil
		}

		summary, err := c.loader.LoadSummary(ctx, quizID)
		if err != nil {
			return domain.QuizSummary{}, err
		}

		if data, err := json.Marshal(summary); err == nil {
			// best-effort cache fill
			_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
		return summary, nil
	})
	if err != nil {
		return domain.QuizSummary{}, err
	}
	return result.(domain.QuizSummary), nil
}

func (c *Catalog) Invalidate(ctx context.Context, quizID uint64) {
	_ = c.client.Del(ctx, summaryKey(quizID)).Err()
}

func (c *Catalog) fetch(ctx context.Context, key string) (domain.QuizSummary, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.QuizSummary{}, false
	}
	var summary domain.QuizSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return domain.QuizSummary{}, false
	}
	return summary, true
}

func summaryKey(quizID uint64) string {
	return "quiz:summary:" + strconv.FormatUint(quizID, 10)
}

func (c *Catalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// Reached concurrently for distinct keys; the global source is locked.
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}

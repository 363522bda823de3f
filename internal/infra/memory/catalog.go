package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"secretquiz-service/internal/app"
	"secretquiz-service/internal/domain"
)

// SummaryLoader fetches a quiz summary from the backing store on cache miss.
type SummaryLoader interface {
	LoadSummary(ctx context.Context, quizID uint64) (domain.QuizSummary, error)
}

// Catalog caches quiz summaries with TTL to keep browse traffic off the
// store. Mutations invalidate by id.
type Catalog struct {
	loader SummaryLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[uint64]cachedSummary
}

type cachedSummary struct {
	summary   domain.QuizSummary
	expiresAt time.Time
}

var _ app.SummaryCatalog = (*Catalog)(nil)

func NewCatalog(loader SummaryLoader, ttl time.Duration) *Catalog {
	return &Catalog{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[uint64]cachedSummary),
	}
}

func (c *Catalog) Summary(ctx context.Context, quizID uint64) (domain.QuizSummary, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[quizID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.summary, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(strconv.FormatUint(quizID, 10), func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[quizID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.summary, nil
		}
		c.mu.RUnlock()

		summary, err := c.loader.LoadSummary(ctx, quizID)
		if err != nil {
			return domain.QuizSummary{}, err
		}

		c.mu.Lock()
		c.cache[quizID] = cachedSummary{
			summary:   summary,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return summary, nil
	})
	if err != nil {
		return domain.QuizSummary{}, err
	}
	return result.(domain.QuizSummary), nil
}

func (c *Catalog) Invalidate(_ context.Context, quizID uint64) {
	c.mu.Lock()
	delete(c.cache, quizID)
	c.mu.Unlock()
}

// StoreLoader adapts a StateRepository into a SummaryLoader so the catalog
// can sit directly in front of the entity store.
type StoreLoader struct {
	store app.StateRepository
}

func NewStoreLoader(store app.StateRepository) *StoreLoader {
	return &StoreLoader{store: store}
}

func (l *StoreLoader) LoadSummary(ctx context.Context, quizID uint64) (domain.QuizSummary, error) {
	quiz, err := l.store.Quiz(ctx, quizID)
	if err != nil {
		return domain.QuizSummary{}, err
	}
	return quiz.Summary(), nil
}

func (c *Catalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"secretquiz-service/internal/domain"
	"secretquiz-service/internal/infra/memory"
)

func TestCatalogCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	store := memory.NewStore()
	quiz := domain.Quiz{Title: "Quiz", IsActive: true}
	_, _ = store.AppendQuiz(context.Background(), &quiz)

	loader := &countingLoader{SummaryLoader: memory.NewStoreLoader(store)}
	catalog := NewCatalog(client, loader, time.Minute)

	summary, err := catalog.Summary(context.Background(), 0)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Title != "Quiz" {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("quiz:summary:0") {
		t.Fatalf("expected redis key to be set")
	}

	// Second call should hit redis, loader not incremented.
	if _, err := catalog.Summary(context.Background(), 0); err != nil {
		t.Fatalf("summary 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
}

func TestCatalogInvalidateDeletesKey(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	store := memory.NewStore()
	quiz := domain.Quiz{Title: "Quiz", IsActive: true}
	_, _ = store.AppendQuiz(context.Background(), &quiz)

	catalog := NewCatalog(client, memory.NewStoreLoader(store), time.Minute)

	if _, err := catalog.Summary(context.Background(), 0); err != nil {
		t.Fatalf("summary: %v", err)
	}
	catalog.Invalidate(context.Background(), 0)
	if mr.Exists("quiz:summary:0") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestCatalogMissingQuiz(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	catalog := NewCatalog(client, memory.NewStoreLoader(memory.NewStore()), time.Minute)

	if _, err := catalog.Summary(context.Background(), 7); err == nil {
		t.Fatalf("expected error for unknown quiz")
	}
}

func TestCatalogConcurrentMisses(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	store := memory.NewStore()
	const quizzes = 8
	for i := 0; i < quizzes; i++ {
		quiz := domain.Quiz{Title: "Quiz", IsActive: true}
		_, _ = store.AppendQuiz(context.Background(), &quiz)
	}
	catalog := NewCatalog(client, memory.NewStoreLoader(store), time.Minute)

	var wg sync.WaitGroup
	errs := make(chan error, quizzes)
	for i := 0; i < quizzes; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			if _, err := catalog.Summary(context.Background(), id); err != nil {
				errs <- err
			}
		}(uint64(i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent summary: %v", err)
	}
}

type countingLoader struct {
	memory.SummaryLoader
	calls int
}

func (l *countingLoader) LoadSummary(ctx context.Context, quizID uint64) (domain.QuizSummary, error) {
	l.calls++
	return l.SummaryLoader.LoadSummary(ctx, quizID)
}

package memory

import (
	"context"
	"testing"
	"time"

	"secretquiz-service/internal/domain"
)

func TestCatalogCaches(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	quiz := domain.Quiz{Title: "Quiz", IsActive: true}
	_, _ = store.AppendQuiz(ctx, &quiz)

	loader := &countingLoader{SummaryLoader: NewStoreLoader(store)}
	catalog := NewCatalog(loader, time.Minute)

	if _, err := catalog.Summary(ctx, 0); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := catalog.Summary(ctx, 0); err != nil {
		t.Fatalf("summary 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestCatalogInvalidate(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	quiz := domain.Quiz{Title: "Quiz", IsActive: true}
	_, _ = store.AppendQuiz(ctx, &quiz)

	loader := &countingLoader{SummaryLoader: NewStoreLoader(store)}
	catalog := NewCatalog(loader, time.Minute)

	first, _ := catalog.Summary(ctx, 0)
	if !first.IsActive {
		t.Fatalf("expected active quiz")
	}

	stored, _ := store.Quiz(ctx, 0)
	stored.IsActive = false
	_ = store.SaveQuiz(ctx, stored)

	catalog.Invalidate(ctx, 0)
	second, _ := catalog.Summary(ctx, 0)
	if second.IsActive {
		t.Fatalf("expected invalidation to surface the update")
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, got %d calls", loader.calls)
	}
}

type countingLoader struct {
	SummaryLoader
	calls int
}

func (l *countingLoader) LoadSummary(ctx context.Context, quizID uint64) (domain.QuizSummary, error) {
	l.calls++
	return l.SummaryLoader.LoadSummary(ctx, quizID)
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"secretquiz-service/internal/domain"
)

// SummaryLoader serves the catalog read path straight from Postgres over a
// pgx pool, bypassing bun for the hot query.
type SummaryLoader struct {
	pool *pgxpool.Pool
}

func NewSummaryLoader(pool *pgxpool.Pool) *SummaryLoader {
	return &SummaryLoader{pool: pool}
}

func (l *SummaryLoader) LoadSummary(ctx context.Context, quizID uint64) (domain.QuizSummary, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, int64(quizID)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizSummary{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.QuizSummary{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.QuizSummary{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz.Summary(), nil
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"secretquiz-service/internal/app"
	"secretquiz-service/internal/domain"
)

// Store is the durable bun-backed implementation of app.StateRepository.
// Entities are stored as JSONB with the columns needed for lookups pulled
// out alongside. The service layer serializes mutating operations, so
// count-based id assignment is safe here.
type Store struct {
	db bun.IDB
}

var _ app.StateRepository = (*Store)(nil)

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// WithinTx runs fn against a store bound to a single transaction, so the
// writes inside commit together or roll back together.
func (s *Store) WithinTx(ctx context.Context, fn func(app.StateRepository) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(&Store{db: tx})
	})
}

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes"`

	ID      int64  `bun:"id,pk"`
	Creator string `bun:"creator,notnull"`
	Data    []byte `bun:"data,type:jsonb,notnull"`
}

type submissionRow struct {
	bun.BaseModel `bun:"table:submissions"`

	ID          int64  `bun:"id,pk"`
	QuizID      int64  `bun:"quiz_id,notnull"`
	Participant string `bun:"participant,notnull"`
	Data        []byte `bun:"data,type:jsonb,notnull"`
}

type pointsRow struct {
	bun.BaseModel `bun:"table:points"`

	Account string `bun:"account,pk"`
	Points  int64  `bun:"points,notnull"`
}

func (s *Store) AppendQuiz(ctx context.Context, quiz *domain.Quiz) (uint64, error) {
	count, err := s.db.NewSelect().Model((*quizRow)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count quizzes: %w", err)
	}
	quiz.ID = uint64(count)
	data, err := json.Marshal(quiz)
	if err != nil {
		return 0, fmt.Errorf("marshal quiz: %w", err)
	}
	row := quizRow{ID: int64(quiz.ID), Creator: string(quiz.Creator), Data: data}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return 0, fmt.Errorf("insert quiz: %w", err)
	}
	return quiz.ID, nil
}

func (s *Store) Quiz(ctx context.Context, id uint64) (domain.Quiz, error) {
	var row quizRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", int64(id)).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("select quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(row.Data, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

func (s *Store) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	res, err := s.db.NewUpdate().Model((*quizRow)(nil)).
		Set("data = ?", data).
		Where("id = ?", int64(quiz.ID)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *Store) QuizCount(ctx context.Context) (uint64, error) {
	count, err := s.db.NewSelect().Model((*quizRow)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count quizzes: %w", err)
	}
	return uint64(count), nil
}

func (s *Store) QuizzesByCreator(ctx context.Context, creator domain.Account) ([]uint64, error) {
	var ids []int64
	err := s.db.NewSelect().Model((*quizRow)(nil)).
		Column("id").
		Where("creator = ?", string(creator)).
		Order("id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("select creator quizzes: %w", err)
	}
	return toUint64(ids), nil
}

func (s *Store) AppendSubmission(ctx context.Context, sub *domain.Submission) (uint64, error) {
	count, err := s.db.NewSelect().Model((*submissionRow)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	sub.ID = uint64(count)
	data, err := json.Marshal(sub)
	if err != nil {
		return 0, fmt.Errorf("marshal submission: %w", err)
	}
	row := submissionRow{
		ID:          int64(sub.ID),
		QuizID:      int64(sub.QuizID),
		Participant: string(sub.Participant),
		Data:        data,
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return 0, fmt.Errorf("insert submission: %w", err)
	}
	return sub.ID, nil
}

func (s *Store) Submission(ctx context.Context, id uint64) (domain.Submission, error) {
	var row submissionRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", int64(id)).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("select submission: %w", err)
	}
	var sub domain.Submission
	if err := json.Unmarshal(row.Data, &sub); err != nil {
		return domain.Submission{}, fmt.Errorf("unmarshal submission: %w", err)
	}
	return sub, nil
}

func (s *Store) SaveSubmission(ctx context.Context, sub domain.Submission) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	res, err := s.db.NewUpdate().Model((*submissionRow)(nil)).
		Set("data = ?", data).
		Where("id = ?", int64(sub.ID)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrSubmissionNotFound
	}
	return nil
}

func (s *Store) SubmissionCount(ctx context.Context) (uint64, error) {
	count, err := s.db.NewSelect().Model((*submissionRow)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return uint64(count), nil
}

func (s *Store) SubmissionsByParticipant(ctx context.Context, account domain.Account) ([]uint64, error) {
	var ids []int64
	err := s.db.NewSelect().Model((*submissionRow)(nil)).
		Column("id").
		Where("participant = ?", string(account)).
		Order("id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("select user submissions: %w", err)
	}
	return toUint64(ids), nil
}

func (s *Store) HasSubmitted(ctx context.Context, quizID uint64, account domain.Account) (bool, error) {
	exists, err := s.db.NewSelect().Model((*submissionRow)(nil)).
		Where("quiz_id = ?", int64(quizID)).
		Where("participant = ?", string(account)).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check submission: %w", err)
	}
	return exists, nil
}

func (s *Store) AddPoints(ctx context.Context, account domain.Account, amount uint64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO points (account, points) VALUES (?, ?)
		 ON CONFLICT (account) DO UPDATE SET points = points.points + EXCLUDED.points`,
		string(account), int64(amount))
	if err != nil {
		return fmt.Errorf("credit points: %w", err)
	}
	return nil
}

func (s *Store) Points(ctx context.Context, account domain.Account) (uint64, error) {
	var row pointsRow
	err := s.db.NewSelect().Model(&row).Where("account = ?", string(account)).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("select points: %w", err)
	}
	return uint64(row.Points), nil
}

func toUint64(ids []int64) []uint64 {
	out := make([]uint64, len(ids))
	for i, id := range ids {
		out[i] = uint64(id)
	}
	return out
}

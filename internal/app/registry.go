package app

import (
	"context"
	"fmt"
	"time"

	"secretquiz-service/internal/domain"
	"secretquiz-service/internal/fhe"
)

// QuizDraft carries everything needed to create a quiz. Answers are parallel
// to Questions: one encrypted reference answer per question.
type QuizDraft struct {
	Title         string
	Description   string
	Category      domain.Category
	Difficulty    domain.Difficulty
	Questions     []domain.Question
	Answers       []fhe.EncryptedInput
	RewardAmount  uint64
	PassThreshold uint64
}

// CreateQuiz validates the draft shape, imports every reference answer
// through the runtime, and appends the quiz. All-or-nothing: a single bad
// proof aborts the call with no state written.
func (s *QuizService) CreateQuiz(ctx context.Context, creator domain.Account, draft QuizDraft) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(draft.Questions) == 0 || len(draft.Questions) != len(draft.Answers) {
		return 0, domain.ErrShapeMismatch
	}

	refs := make([]domain.CiphertextHandle, 0, len(draft.Answers))
	for i, answer := range draft.Answers {
		handle, err := s.runtime.VerifyAndImport(ctx, answer, creator)
		if err != nil {
			return 0, fmt.Errorf("import reference answer %d: %w", i, err)
		}
		refs = append(refs, handle)
	}

	quiz := domain.Quiz{
		Creator:          creator,
		Title:            draft.Title,
		Description:      draft.Description,
		Category:         draft.Category,
		Difficulty:       draft.Difficulty,
		Questions:        draft.Questions,
		ReferenceAnswers: refs,
		RewardAmount:     draft.RewardAmount,
		PassThreshold:    draft.PassThreshold,
		IsActive:         true,
		CreatedAt:        time.Now().UTC(),
	}
	id, err := s.store.AppendQuiz(ctx, &quiz)
	if err != nil {
		return 0, fmt.Errorf("append quiz: %w", err)
	}
	return id, nil
}

// EndQuiz deactivates a quiz. Creator-only and one-way; existing submissions
// are unaffected.
func (s *QuizService) EndQuiz(ctx context.Context, caller domain.Account, quizID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	quiz, err := s.store.Quiz(ctx, quizID)
	if err != nil {
		return err
	}
	if quiz.Creator != caller {
		return domain.ErrNotCreator
	}
	if !quiz.IsActive {
		return nil
	}
	quiz.IsActive = false
	if err := s.store.SaveQuiz(ctx, quiz); err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	s.invalidate(ctx, quizID)
	return nil
}

// GetQuiz returns the public summary, via the catalog cache when configured.
func (s *QuizService) GetQuiz(ctx context.Context, quizID uint64) (domain.QuizSummary, error) {
	if s.catalog != nil {
		return s.catalog.Summary(ctx, quizID)
	}
	quiz, err := s.store.Quiz(ctx, quizID)
	if err != nil {
		return domain.QuizSummary{}, err
	}
	return quiz.Summary(), nil
}

// ListQuizzes returns summaries for every quiz, in id order.
func (s *QuizService) ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	total, err := s.store.QuizCount(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]domain.QuizSummary, 0, total)
	for id := uint64(0); id < total; id++ {
		summary, err := s.GetQuiz(ctx, id)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// GetQuestion returns one question's text, type and options.
func (s *QuizService) GetQuestion(ctx context.Context, quizID uint64, index int) (domain.Question, error) {
	quiz, err := s.store.Quiz(ctx, quizID)
	if err != nil {
		return domain.Question{}, err
	}
	if index < 0 || index >= len(quiz.Questions) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return quiz.Questions[index], nil
}

// TotalQuizzes reports how many quizzes have been created.
func (s *QuizService) TotalQuizzes(ctx context.Context) (uint64, error) {
	return s.store.QuizCount(ctx)
}

// CreatorQuizzes returns the ids of every quiz created by account, in
// creation order.
func (s *QuizService) CreatorQuizzes(ctx context.Context, account domain.Account) ([]uint64, error) {
	return s.store.QuizzesByCreator(ctx, account)
}

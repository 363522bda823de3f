package app

import (
	"context"
	"fmt"
	"time"

	"secretquiz-service/internal/domain"
	"secretquiz-service/internal/fhe"
)

// SubmitAnswers verifies and imports the participant's encrypted answers,
// computes the encrypted score homomorphically, and records the submission.
// The score is computed exactly once; nothing in this path ever sees a
// plaintext answer or score.
func (s *QuizService) SubmitAnswers(ctx context.Context, participant domain.Account, quizID uint64, answers []fhe.EncryptedInput) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	quiz, err := s.store.Quiz(ctx, quizID)
	if err != nil {
		return 0, err
	}
	if !quiz.IsActive {
		return 0, domain.ErrQuizInactive
	}
	if len(answers) != len(quiz.Questions) {
		return 0, domain.ErrShapeMismatch
	}
	submitted, err := s.store.HasSubmitted(ctx, quizID, participant)
	if err != nil {
		return 0, fmt.Errorf("check prior submission: %w", err)
	}
	if submitted {
		return 0, domain.ErrAlreadySubmitted
	}

	handles := make([]domain.CiphertextHandle, 0, len(answers))
	for i, answer := range answers {
		handle, err := s.runtime.VerifyAndImport(ctx, answer, participant)
		if err != nil {
			return 0, fmt.Errorf("import answer %d: %w", i, err)
		}
		handles = append(handles, handle)
	}

	score, err := s.computeScore(ctx, quiz.ReferenceAnswers, handles)
	if err != nil {
		return 0, err
	}

	sub := domain.Submission{
		QuizID:         quizID,
		Participant:    participant,
		Answers:        handles,
		EncryptedScore: score,
		SubmittedAt:    time.Now().UTC(),
	}
	// The submission and the counter update commit together; a failure
	// between them must not leave a submission the quiz never counted.
	var id uint64
	err = s.store.WithinTx(ctx, func(tx StateRepository) error {
		var err error
		id, err = tx.AppendSubmission(ctx, &sub)
		if err != nil {
			return fmt.Errorf("append submission: %w", err)
		}
		quiz.ParticipantCount++
		if err := tx.SaveQuiz(ctx, quiz); err != nil {
			return fmt.Errorf("save quiz: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, quizID)
	return id, nil
}

// computeScore folds per-question equality indicators into one ciphertext:
// score = sum_i Eq(answer_i, reference_i) * weight. Every step is a
// homomorphic primitive; there is no branching on plaintext values.
func (s *QuizService) computeScore(ctx context.Context, refs, answers []domain.CiphertextHandle) (domain.CiphertextHandle, error) {
	score, err := s.runtime.Encrypt64(ctx, 0)
	if err != nil {
		return "", fmt.Errorf("encrypt zero: %w", err)
	}
	for i := range refs {
		hit, err := s.runtime.Eq(ctx, answers[i], refs[i])
		if err != nil {
			return "", fmt.Errorf("compare question %d: %w", i, err)
		}
		weighted, err := s.runtime.ScalarMul(ctx, hit, s.weight)
		if err != nil {
			return "", fmt.Errorf("weight question %d: %w", i, err)
		}
		score, err = s.runtime.Add(ctx, score, weighted)
		if err != nil {
			return "", fmt.Errorf("accumulate question %d: %w", i, err)
		}
	}
	return score, nil
}

// GetSubmission returns the submission projection.
func (s *QuizService) GetSubmission(ctx context.Context, id uint64) (domain.SubmissionView, error) {
	sub, err := s.store.Submission(ctx, id)
	if err != nil {
		return domain.SubmissionView{}, err
	}
	return sub.View(), nil
}

// TotalSubmissions reports how many submissions have been accepted.
func (s *QuizService) TotalSubmissions(ctx context.Context) (uint64, error) {
	return s.store.SubmissionCount(ctx)
}

// UserSubmissions returns the ids of every submission by account, in
// submission order.
func (s *QuizService) UserSubmissions(ctx context.Context, account domain.Account) ([]uint64, error) {
	return s.store.SubmissionsByParticipant(ctx, account)
}

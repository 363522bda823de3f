package app

import (
	"context"
	"fmt"

	"secretquiz-service/internal/domain"
)

// AllowResultDecryption grants the owning participant decrypt access over
// their encrypted score. Idempotent: once HasDecrypted is set the call
// returns immediately without a second grant.
func (s *QuizService) AllowResultDecryption(ctx context.Context, caller domain.Account, submissionID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, err := s.store.Submission(ctx, submissionID)
	if err != nil {
		return err
	}
	if sub.Participant != caller {
		return domain.ErrNotOwner
	}
	if sub.HasDecrypted {
		return nil
	}
	if err := s.runtime.GrantDecryptAccess(ctx, sub.EncryptedScore, sub.Participant); err != nil {
		return fmt.Errorf("grant decrypt access: %w", err)
	}
	sub.HasDecrypted = true
	if err := s.store.SaveSubmission(ctx, sub); err != nil {
		return fmt.Errorf("save submission: %w", err)
	}
	return nil
}

// EncryptedScore returns the score handle regardless of gate state; without
// a grant the handle is useless to anyone.
func (s *QuizService) EncryptedScore(ctx context.Context, submissionID uint64) (domain.CiphertextHandle, error) {
	sub, err := s.store.Submission(ctx, submissionID)
	if err != nil {
		return "", err
	}
	return sub.EncryptedScore, nil
}

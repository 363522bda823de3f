package app

import (
	"context"
	"fmt"

	"secretquiz-service/internal/domain"
)

// ClaimReward credits the quiz reward once the participant proves a passing
// score. claimedScore is the participant's decrypted value; the service
// cannot re-derive it without running the comparison in the clear, so it is
// trusted here and gated on the decrypt grant plus the threshold.
//
// Guard order: submission exists, caller owns it, decryption was allowed,
// not yet claimed, score passes.
func (s *QuizService) ClaimReward(ctx context.Context, caller domain.Account, submissionID uint64, claimedScore uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, err := s.store.Submission(ctx, submissionID)
	if err != nil {
		return err
	}
	if sub.Participant != caller {
		return domain.ErrNotOwner
	}
	if !sub.HasDecrypted {
		return domain.ErrMustDecryptFirst
	}
	if sub.HasClaimedReward {
		return domain.ErrAlreadyClaimed
	}
	quiz, err := s.store.Quiz(ctx, sub.QuizID)
	if err != nil {
		return err
	}
	if claimedScore < quiz.PassThreshold {
		return domain.ErrBelowThreshold
	}

	// Flag and credit commit together: a failure between them would
	// otherwise burn the claim without paying out.
	sub.HasClaimedReward = true
	return s.store.WithinTx(ctx, func(tx StateRepository) error {
		if err := tx.SaveSubmission(ctx, sub); err != nil {
			return fmt.Errorf("save submission: %w", err)
		}
		if err := tx.AddPoints(ctx, sub.Participant, quiz.RewardAmount); err != nil {
			return fmt.Errorf("credit points: %w", err)
		}
		return nil
	})
}

// UserPoints reports the accumulated reward points for an account.
func (s *QuizService) UserPoints(ctx context.Context, account domain.Account) (uint64, error) {
	return s.store.Points(ctx, account)
}

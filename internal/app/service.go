package app

import (
	"context"
	"sync"

	"secretquiz-service/internal/domain"
	"secretquiz-service/internal/fhe"
)

// DefaultQuestionWeight is the score credited per correct question. Thresholds
// and displayed scores use the same unit.
const DefaultQuestionWeight = 100

// StateRepository is the durable entity store (in-memory, Postgres, etc).
// The service serializes all mutating operations, so implementations do not
// need cross-call transactionality of their own.
type StateRepository interface {
	AppendQuiz(ctx context.Context, quiz *domain.Quiz) (uint64, error)
	Quiz(ctx context.Context, id uint64) (domain.Quiz, error)
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
	QuizCount(ctx context.Context) (uint64, error)
	QuizzesByCreator(ctx context.Context, creator domain.Account) ([]uint64, error)

	AppendSubmission(ctx context.Context, sub *domain.Submission) (uint64, error)
	Submission(ctx context.Context, id uint64) (domain.Submission, error)
	SaveSubmission(ctx context.Context, sub domain.Submission) error
	SubmissionCount(ctx context.Context) (uint64, error)
	SubmissionsByParticipant(ctx context.Context, account domain.Account) ([]uint64, error)
	HasSubmitted(ctx context.Context, quizID uint64, account domain.Account) (bool, error)

	AddPoints(ctx context.Context, account domain.Account, amount uint64) error
	Points(ctx context.Context, account domain.Account) (uint64, error)

	// WithinTx runs fn against a transactional view of the repository.
	// Writes issued through the argument commit together or not at all;
	// returning an error discards them. Single-statement writes do not
	// need it, multi-write operations do.
	WithinTx(ctx context.Context, fn func(StateRepository) error) error
}

// SummaryCatalog serves public quiz summaries on the read path, typically
// backed by a cache in front of the store.
type SummaryCatalog interface {
	Summary(ctx context.Context, id uint64) (domain.QuizSummary, error)
	Invalidate(ctx context.Context, id uint64)
}

// QuizService contains the quiz, scoring, decryption-gate and reward use
// cases. Mutating operations run one at a time under mu, mirroring the
// serialized-transaction model the invariants rely on: the duplicate-check
// and the participant counter are read and written in the same critical
// section.
type QuizService struct {
	mu      sync.Mutex
	store   StateRepository
	runtime fhe.Runtime
	catalog SummaryCatalog
	weight  uint64
}

func NewQuizService(store StateRepository, runtime fhe.Runtime, catalog SummaryCatalog, weight uint64) *QuizService {
	if weight == 0 {
		weight = DefaultQuestionWeight
	}
	return &QuizService{
		store:   store,
		runtime: runtime,
		catalog: catalog,
		weight:  weight,
	}
}

// QuestionWeight reports the configured per-question score unit.
func (s *QuizService) QuestionWeight() uint64 {
	return s.weight
}

func (s *QuizService) invalidate(ctx context.Context, quizID uint64) {
	if s.catalog != nil {
		s.catalog.Invalidate(ctx, quizID)
	}
}

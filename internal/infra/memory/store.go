package memory

import (
	"context"
	"sync"

	"secretquiz-service/internal/app"
	"secretquiz-service/internal/domain"
)

// Store is an in-memory implementation of app.StateRepository. Ids are
// positions in the append-order slices, so they come out sequential from 0.
type Store struct {
	mu            sync.RWMutex
	quizzes       []domain.Quiz
	submissions   []domain.Submission
	byCreator     map[domain.Account][]uint64
	byParticipant map[domain.Account][]uint64
	perQuiz       map[uint64]map[domain.Account]struct{}
	points        map[domain.Account]uint64
}

var _ app.StateRepository = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		byCreator:     make(map[domain.Account][]uint64),
		byParticipant: make(map[domain.Account][]uint64),
		perQuiz:       make(map[uint64]map[domain.Account]struct{}),
		points:        make(map[domain.Account]uint64),
	}
}

func (s *Store) AppendQuiz(_ context.Context, quiz *domain.Quiz) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz.ID = uint64(len(s.quizzes))
	s.quizzes = append(s.quizzes, *quiz)
	s.byCreator[quiz.Creator] = append(s.byCreator[quiz.Creator], quiz.ID)
	return quiz.ID, nil
}

func (s *Store) Quiz(_ context.Context, id uint64) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id >= uint64(len(s.quizzes)) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return s.quizzes[id], nil
}

func (s *Store) SaveQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if quiz.ID >= uint64(len(s.quizzes)) {
		return domain.ErrQuizNotFound
	}
	s.quizzes[quiz.ID] = quiz
	return nil
}

func (s *Store) QuizCount(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.quizzes)), nil
}

func (s *Store) QuizzesByCreator(_ context.Context, creator domain.Account) ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byCreator[creator]
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out, nil
}

func (s *Store) AppendSubmission(_ context.Context, sub *domain.Submission) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub.ID = uint64(len(s.submissions))
	s.submissions = append(s.submissions, *sub)
	s.byParticipant[sub.Participant] = append(s.byParticipant[sub.Participant], sub.ID)
	accounts, ok := s.perQuiz[sub.QuizID]
	if !ok {
		accounts = make(map[domain.Account]struct{})
		s.perQuiz[sub.QuizID] = accounts
	}
	accounts[sub.Participant] = struct{}{}
	return sub.ID, nil
}

func (s *Store) Submission(_ context.Context, id uint64) (domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id >= uint64(len(s.submissions)) {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	return s.submissions[id], nil
}

func (s *Store) SaveSubmission(_ context.Context, sub domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.ID >= uint64(len(s.submissions)) {
		return domain.ErrSubmissionNotFound
	}
	s.submissions[sub.ID] = sub
	return nil
}

func (s *Store) SubmissionCount(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.submissions)), nil
}

func (s *Store) SubmissionsByParticipant(_ context.Context, account domain.Account) ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byParticipant[account]
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out, nil
}

func (s *Store) HasSubmitted(_ context.Context, quizID uint64, account domain.Account) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.perQuiz[quizID][account]
	return ok, nil
}

func (s *Store) AddPoints(_ context.Context, account domain.Account, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points[account] += amount
	return nil
}

func (s *Store) Points(_ context.Context, account domain.Account) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.points[account], nil
}

// WithinTx is the identity here: in-memory writes are single mutex-guarded
// statements that cannot fail between each other.
func (s *Store) WithinTx(_ context.Context, fn func(app.StateRepository) error) error {
	return fn(s)
}

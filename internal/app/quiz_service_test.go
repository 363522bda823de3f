package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"secretquiz-service/internal/app"
	"secretquiz-service/internal/domain"
	"secretquiz-service/internal/fhe"
	"secretquiz-service/internal/fhe/mock"
	"secretquiz-service/internal/infra/memory"
)

const (
	creator      = domain.Account("0xc0ffee")
	participant  = domain.Account("0xabc123")
	participant2 = domain.Account("0xdef456")
)

func newTestService(t *testing.T) (*app.QuizService, *mock.Runtime) {
	t.Helper()
	store := memory.NewStore()
	runtime := mock.New()
	catalog := memory.NewCatalog(memory.NewStoreLoader(store), 5*time.Minute)
	return app.NewQuizService(store, runtime, catalog, 0), runtime
}

func draft(account domain.Account, reward, threshold uint64, answers ...uint64) app.QuizDraft {
	questions := make([]domain.Question, len(answers))
	inputs := make([]fhe.EncryptedInput, len(answers))
	for i, answer := range answers {
		questions[i] = domain.Question{Text: "question", Type: domain.QuestionFillInBlank}
		inputs[i] = mock.EncryptInput(answer, account)
	}
	return app.QuizDraft{
		Title:         "Math Quiz",
		Description:   "Basic math",
		Category:      domain.CategoryTechnology,
		Difficulty:    domain.DifficultyEasy,
		Questions:     questions,
		Answers:       inputs,
		RewardAmount:  reward,
		PassThreshold: threshold,
	}
}

func submit(t *testing.T, service *app.QuizService, account domain.Account, quizID uint64, answers ...uint64) uint64 {
	t.Helper()
	inputs := make([]fhe.EncryptedInput, len(answers))
	for i, answer := range answers {
		inputs[i] = mock.EncryptInput(answer, account)
	}
	id, err := service.SubmitAnswers(context.Background(), account, quizID, inputs)
	if err != nil {
		t.Fatalf("submit answers: %v", err)
	}
	return id
}

func TestCreateQuiz(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	id, err := service.CreateQuiz(ctx, creator, draft(creator, 100, 150, 4, 5))
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if id != 0 {
		t.Fatalf("expected first quiz id 0, got %d", id)
	}

	summary, err := service.GetQuiz(ctx, id)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if summary.Creator != creator || summary.Title != "Math Quiz" || summary.QuestionCount != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if !summary.IsActive || summary.ParticipantCount != 0 {
		t.Fatalf("expected fresh active quiz, got %+v", summary)
	}

	second, err := service.CreateQuiz(ctx, creator, draft(creator, 50, 100, 7))
	if err != nil {
		t.Fatalf("create second quiz: %v", err)
	}
	if second != 1 {
		t.Fatalf("expected sequential id 1, got %d", second)
	}

	ids, err := service.CreatorQuizzes(ctx, creator)
	if err != nil {
		t.Fatalf("creator quizzes: %v", err)
	}
	if len(ids) != 2 || ids[0] != 0 || ids[1] != 1 {
		t.Fatalf("expected [0 1], got %v", ids)
	}
}

func TestCreateQuizShapeMismatch(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	bad := draft(creator, 100, 50, 4)
	bad.Questions = append(bad.Questions, domain.Question{Text: "extra", Type: domain.QuestionFillInBlank})

	if _, err := service.CreateQuiz(ctx, creator, bad); !errors.Is(err, domain.ErrShapeMismatch) {
		t.Fatalf("expected shape mismatch, got %v", err)
	}
	total, _ := service.TotalQuizzes(ctx)
	if total != 0 {
		t.Fatalf("expected no quiz created, got %d", total)
	}
}

func TestCreateQuizRejectsBadProof(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	bad := draft(creator, 100, 50, 4, 5)
	// Second answer proof-bound to a different account.
	bad.Answers[1] = mock.EncryptInput(5, participant)

	if _, err := service.CreateQuiz(ctx, creator, bad); !errors.Is(err, domain.ErrInvalidProof) {
		t.Fatalf("expected invalid proof, got %v", err)
	}
	total, _ := service.TotalQuizzes(ctx)
	if total != 0 {
		t.Fatalf("expected all-or-nothing create, got %d quizzes", total)
	}
}

func TestEndQuizAuthorization(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	if err := service.EndQuiz(ctx, creator, 42); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	id, _ := service.CreateQuiz(ctx, creator, draft(creator, 100, 80, 4))
	if err := service.EndQuiz(ctx, participant, id); !errors.Is(err, domain.ErrNotCreator) {
		t.Fatalf("expected not creator, got %v", err)
	}
	if err := service.EndQuiz(ctx, creator, id); err != nil {
		t.Fatalf("end quiz: %v", err)
	}
	summary, _ := service.GetQuiz(ctx, id)
	if summary.IsActive {
		t.Fatalf("expected quiz inactive")
	}
}

func TestCorrectAnswerFullCredit(t *testing.T) {
	// Scenario: 1 question, reward 100, threshold 80, correct answer.
	ctx := context.Background()
	service, runtime := newTestService(t)

	quizID, _ := service.CreateQuiz(ctx, creator, draft(creator, 100, 80, 4))
	subID := submit(t, service, participant, quizID, 4)

	if err := service.AllowResultDecryption(ctx, participant, subID); err != nil {
		t.Fatalf("allow decryption: %v", err)
	}
	handle, err := service.EncryptedScore(ctx, subID)
	if err != nil {
		t.Fatalf("encrypted score: %v", err)
	}
	score, err := runtime.Decrypt(handle, participant)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if score != 100 {
		t.Fatalf("expected full credit 100, got %d", score)
	}

	if err := service.ClaimReward(ctx, participant, subID, score); err != nil {
		t.Fatalf("claim reward: %v", err)
	}
	points, _ := service.UserPoints(ctx, participant)
	if points != 100 {
		t.Fatalf("expected 100 points, got %d", points)
	}
}

func TestWrongAnswerNoCredit(t *testing.T) {
	// Scenario: same quiz, wrong answer decrypts to zero and cannot pass.
	ctx := context.Background()
	service, runtime := newTestService(t)

	quizID, _ := service.CreateQuiz(ctx, creator, draft(creator, 100, 80, 4))
	subID := submit(t, service, participant, quizID, 5)

	if err := service.AllowResultDecryption(ctx, participant, subID); err != nil {
		t.Fatalf("allow decryption: %v", err)
	}
	handle, _ := service.EncryptedScore(ctx, subID)
	score, err := runtime.Decrypt(handle, participant)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if score != 0 {
		t.Fatalf("expected zero score, got %d", score)
	}

	if err := service.ClaimReward(ctx, participant, subID, score); !errors.Is(err, domain.ErrBelowThreshold) {
		t.Fatalf("expected below threshold, got %v", err)
	}
	points, _ := service.UserPoints(ctx, participant)
	if points != 0 {
		t.Fatalf("expected no points, got %d", points)
	}
}

func TestTwoQuestionThreshold(t *testing.T) {
	// Scenario: 2 questions, threshold 150. Both correct passes, one does not.
	ctx := context.Background()
	service, runtime := newTestService(t)

	quizID, _ := service.CreateQuiz(ctx, creator, draft(creator, 100, 150, 4, 5))

	bothID := submit(t, service, participant, quizID, 4, 5)
	oneID := submit(t, service, participant2, quizID, 4, 9)

	if err := service.AllowResultDecryption(ctx, participant, bothID); err != nil {
		t.Fatalf("allow decryption: %v", err)
	}
	if err := service.AllowResultDecryption(ctx, participant2, oneID); err != nil {
		t.Fatalf("allow decryption: %v", err)
	}

	bothHandle, _ := service.EncryptedScore(ctx, bothID)
	bothScore, _ := runtime.Decrypt(bothHandle, participant)
	if bothScore != 200 {
		t.Fatalf("expected 200, got %d", bothScore)
	}
	oneHandle, _ := service.EncryptedScore(ctx, oneID)
	oneScore, _ := runtime.Decrypt(oneHandle, participant2)
	if oneScore != 100 {
		t.Fatalf("expected 100, got %d", oneScore)
	}

	if err := service.ClaimReward(ctx, participant, bothID, bothScore); err != nil {
		t.Fatalf("claim with passing score: %v", err)
	}
	if err := service.ClaimReward(ctx, participant2, oneID, oneScore); !errors.Is(err, domain.ErrBelowThreshold) {
		t.Fatalf("expected below threshold, got %v", err)
	}
}

func TestSubmitShapeAndDuplicateGuards(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	quizID, _ := service.CreateQuiz(ctx, creator, draft(creator, 100, 80, 4, 5))

	short := []fhe.EncryptedInput{mock.EncryptInput(4, participant)}
	if _, err := service.SubmitAnswers(ctx, participant, quizID, short); !errors.Is(err, domain.ErrShapeMismatch) {
		t.Fatalf("expected shape mismatch, got %v", err)
	}

	submit(t, service, participant, quizID, 4, 5)

	again := []fhe.EncryptedInput{mock.EncryptInput(4, participant), mock.EncryptInput(5, participant)}
	if _, err := service.SubmitAnswers(ctx, participant, quizID, again); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected already submitted, got %v", err)
	}

	ids, _ := service.UserSubmissions(ctx, participant)
	if len(ids) != 1 {
		t.Fatalf("expected one submission, got %v", ids)
	}
	summary, _ := service.GetQuiz(ctx, quizID)
	if summary.ParticipantCount != 1 {
		t.Fatalf("expected participant count 1, got %d", summary.ParticipantCount)
	}
}

func TestSubmitToEndedQuiz(t *testing.T) {
	// Scenario: ending a quiz blocks new submissions, old ones stay claimable.
	ctx := context.Background()
	service, runtime := newTestService(t)

	quizID, _ := service.CreateQuiz(ctx, creator, draft(creator, 100, 80, 4))
	subID := submit(t, service, participant, quizID, 4)

	if err := service.EndQuiz(ctx, creator, quizID); err != nil {
		t.Fatalf("end quiz: %v", err)
	}

	late := []fhe.EncryptedInput{mock.EncryptInput(4, participant2)}
	if _, err := service.SubmitAnswers(ctx, participant2, quizID, late); !errors.Is(err, domain.ErrQuizInactive) {
		t.Fatalf("expected quiz inactive, got %v", err)
	}

	if err := service.AllowResultDecryption(ctx, participant, subID); err != nil {
		t.Fatalf("allow decryption on ended quiz: %v", err)
	}
	handle, _ := service.EncryptedScore(ctx, subID)
	score, _ := runtime.Decrypt(handle, participant)
	if err := service.ClaimReward(ctx, participant, subID, score); err != nil {
		t.Fatalf("claim on ended quiz: %v", err)
	}
}

func TestSubmitUnknownQuiz(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	answers := []fhe.EncryptedInput{mock.EncryptInput(4, participant)}
	if _, err := service.SubmitAnswers(ctx, participant, 9, answers); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

func TestSubmitRejectsBadProof(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	quizID, _ := service.CreateQuiz(ctx, creator, draft(creator, 100, 80, 4))

	// Proof bound to a different account than the submitter.
	answers := []fhe.EncryptedInput{mock.EncryptInput(4, participant2)}
	if _, err := service.SubmitAnswers(ctx, participant, quizID, answers); !errors.Is(err, domain.ErrInvalidProof) {
		t.Fatalf("expected invalid proof, got %v", err)
	}
	total, _ := service.TotalSubmissions(ctx)
	if total != 0 {
		t.Fatalf("expected no submission, got %d", total)
	}
}

func TestClaimOrdering(t *testing.T) {
	ctx := context.Background()
	service, runtime := newTestService(t)

	quizID, _ := service.CreateQuiz(ctx, creator, draft(creator, 100, 80, 4))
	subID := submit(t, service, participant, quizID, 4)

	if err := service.ClaimReward(ctx, participant, subID, 100); !errors.Is(err, domain.ErrMustDecryptFirst) {
		t.Fatalf("expected must decrypt first, got %v", err)
	}

	if err := service.AllowResultDecryption(ctx, participant, subID); err != nil {
		t.Fatalf("allow decryption: %v", err)
	}
	handle, _ := service.EncryptedScore(ctx, subID)
	score, _ := runtime.Decrypt(handle, participant)

	if err := service.ClaimReward(ctx, participant, subID, score); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := service.ClaimReward(ctx, participant, subID, score); !errors.Is(err, domain.ErrAlreadyClaimed) {
		t.Fatalf("expected already claimed, got %v", err)
	}
	points, _ := service.UserPoints(ctx, participant)
	if points != 100 {
		t.Fatalf("expected exactly one credit of 100, got %d", points)
	}
}

func TestAllowResultDecryptionIdempotent(t *testing.T) {
	ctx := context.Background()
	service, runtime := newTestService(t)

	quizID, _ := service.CreateQuiz(ctx, creator, draft(creator, 100, 80, 4))
	subID := submit(t, service, participant, quizID, 4)

	if err := service.AllowResultDecryption(ctx, participant, subID); err != nil {
		t.Fatalf("first allow: %v", err)
	}
	if err := service.AllowResultDecryption(ctx, participant, subID); err != nil {
		t.Fatalf("second allow should be a no-op, got %v", err)
	}

	view, _ := service.GetSubmission(ctx, subID)
	if !view.HasDecrypted {
		t.Fatalf("expected hasDecrypted true")
	}
	handle, _ := service.EncryptedScore(ctx, subID)
	if !runtime.Granted(handle, participant) {
		t.Fatalf("expected decrypt grant for participant")
	}
}

func TestSubmissionOwnership(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	quizID, _ := service.CreateQuiz(ctx, creator, draft(creator, 100, 80, 4))
	subID := submit(t, service, participant, quizID, 4)

	if err := service.AllowResultDecryption(ctx, participant2, subID); !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("expected not owner on allow, got %v", err)
	}
	if err := service.ClaimReward(ctx, participant2, subID, 100); !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("expected not owner on claim, got %v", err)
	}
	if err := service.AllowResultDecryption(ctx, participant, 99); !errors.Is(err, domain.ErrSubmissionNotFound) {
		t.Fatalf("expected submission not found, got %v", err)
	}
}

func TestScoreStaysEncryptedWithoutGrant(t *testing.T) {
	ctx := context.Background()
	service, runtime := newTestService(t)

	quizID, _ := service.CreateQuiz(ctx, creator, draft(creator, 100, 80, 4))
	subID := submit(t, service, participant, quizID, 4)

	// The handle is readable by anyone, the plaintext is not.
	handle, err := service.EncryptedScore(ctx, subID)
	if err != nil {
		t.Fatalf("encrypted score: %v", err)
	}
	if _, err := runtime.Decrypt(handle, participant); !errors.Is(err, mock.ErrNoDecryptGrant) {
		t.Fatalf("expected decrypt to fail before grant, got %v", err)
	}
}

func TestGetQuestion(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	d := draft(creator, 100, 80, 2)
	d.Questions[0] = domain.Question{
		Text:    "Pick the even number",
		Type:    domain.QuestionSingleChoice,
		Options: []string{"one", "two", "three"},
	}
	quizID, err := service.CreateQuiz(ctx, creator, d)
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	question, err := service.GetQuestion(ctx, quizID, 0)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if question.Type != domain.QuestionSingleChoice || len(question.Options) != 3 {
		t.Fatalf("unexpected question %+v", question)
	}
	if _, err := service.GetQuestion(ctx, quizID, 5); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}
}

func TestClaimRewardFailureLeavesClaimRetryable(t *testing.T) {
	ctx := context.Background()
	store := &txStore{Store: memory.NewStore()}
	runtime := mock.New()
	catalog := memory.NewCatalog(memory.NewStoreLoader(store), 5*time.Minute)
	service := app.NewQuizService(store, runtime, catalog, 0)

	quizID, _ := service.CreateQuiz(ctx, creator, draft(creator, 100, 80, 4))
	subID := submit(t, service, participant, quizID, 4)
	if err := service.AllowResultDecryption(ctx, participant, subID); err != nil {
		t.Fatalf("allow decryption: %v", err)
	}
	handle, _ := service.EncryptedScore(ctx, subID)
	score, _ := runtime.Decrypt(handle, participant)

	store.failAddPoints = true
	if err := service.ClaimReward(ctx, participant, subID, score); err == nil {
		t.Fatalf("expected claim to fail on credit")
	}
	view, _ := service.GetSubmission(ctx, subID)
	if view.HasClaimedReward {
		t.Fatalf("expected claim flag rolled back with the failed credit")
	}
	points, _ := service.UserPoints(ctx, participant)
	if points != 0 {
		t.Fatalf("expected no points after failed claim, got %d", points)
	}

	store.failAddPoints = false
	if err := service.ClaimReward(ctx, participant, subID, score); err != nil {
		t.Fatalf("retry claim: %v", err)
	}
	points, _ = service.UserPoints(ctx, participant)
	if points != 100 {
		t.Fatalf("expected 100 points after retry, got %d", points)
	}
}

func TestSubmitFailureLeavesNoOrphanSubmission(t *testing.T) {
	ctx := context.Background()
	store := &txStore{Store: memory.NewStore()}
	runtime := mock.New()
	catalog := memory.NewCatalog(memory.NewStoreLoader(store), 5*time.Minute)
	service := app.NewQuizService(store, runtime, catalog, 0)

	quizID, _ := service.CreateQuiz(ctx, creator, draft(creator, 100, 80, 4))

	store.failSaveQuiz = true
	answers := []fhe.EncryptedInput{mock.EncryptInput(4, participant)}
	if _, err := service.SubmitAnswers(ctx, participant, quizID, answers); err == nil {
		t.Fatalf("expected submit to fail on counter update")
	}
	total, _ := service.TotalSubmissions(ctx)
	if total != 0 {
		t.Fatalf("expected no orphan submission, got %d", total)
	}

	store.failSaveQuiz = false
	submit(t, service, participant, quizID, 4)
	total, _ = service.TotalSubmissions(ctx)
	if total != 1 {
		t.Fatalf("expected one submission after retry, got %d", total)
	}
	summary, _ := service.GetQuiz(ctx, quizID)
	if summary.ParticipantCount != 1 {
		t.Fatalf("expected participant count 1, got %d", summary.ParticipantCount)
	}
}

func TestListQuizzes(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	_, _ = service.CreateQuiz(ctx, creator, draft(creator, 100, 80, 4))
	_, _ = service.CreateQuiz(ctx, participant, draft(participant, 50, 100, 7))

	summaries, err := service.ListQuizzes(ctx)
	if err != nil {
		t.Fatalf("list quizzes: %v", err)
	}
	if len(summaries) != 2 || summaries[0].ID != 0 || summaries[1].ID != 1 {
		t.Fatalf("unexpected summaries %+v", summaries)
	}
}

var errConnDropped = errors.New("connection dropped")

// txStore wraps the in-memory store with commit-or-discard transactions so
// tests can fail one statement of a write pair and observe what sticks.
type txStore struct {
	*memory.Store
	failSaveQuiz  bool
	failAddPoints bool
}

func (s *txStore) WithinTx(ctx context.Context, fn func(app.StateRepository) error) error {
	tx := &bufferedTx{StateRepository: s.Store, store: s}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit(ctx)
}

// bufferedTx queues writes and applies them only when the whole callback
// succeeds. Reads pass through to the base store; the service issues all of
// its reads before opening the transaction.
type bufferedTx struct {
	app.StateRepository
	store   *txStore
	pending []func(context.Context) error
	appends uint64
}

func (tx *bufferedTx) AppendSubmission(ctx context.Context, sub *domain.Submission) (uint64, error) {
	count, err := tx.store.SubmissionCount(ctx)
	if err != nil {
		return 0, err
	}
	id := count + tx.appends
	tx.appends++
	queued := *sub
	tx.pending = append(tx.pending, func(ctx context.Context) error {
		_, err := tx.store.Store.AppendSubmission(ctx, &queued)
		return err
	})
	sub.ID = id
	return id, nil
}

func (tx *bufferedTx) SaveQuiz(_ context.Context, quiz domain.Quiz) error {
	if tx.store.failSaveQuiz {
		return errConnDropped
	}
	tx.pending = append(tx.pending, func(ctx context.Context) error {
		return tx.store.Store.SaveQuiz(ctx, quiz)
	})
	return nil
}

func (tx *bufferedTx) SaveSubmission(_ context.Context, sub domain.Submission) error {
	tx.pending = append(tx.pending, func(ctx context.Context) error {
		return tx.store.Store.SaveSubmission(ctx, sub)
	})
	return nil
}

func (tx *bufferedTx) AddPoints(_ context.Context, account domain.Account, amount uint64) error {
	if tx.store.failAddPoints {
		return errConnDropped
	}
	tx.pending = append(tx.pending, func(ctx context.Context) error {
		return tx.store.Store.AddPoints(ctx, account, amount)
	})
	return nil
}

func (tx *bufferedTx) commit(ctx context.Context) error {
	for _, apply := range tx.pending {
		if err := apply(ctx); err != nil {
			return err
		}
	}
	return nil
}

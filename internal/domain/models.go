package domain

import "time"

// Account identifies a quiz creator or participant. The transport layer is
// responsible for authenticating it; the core treats it as opaque.
type Account string

// CiphertextHandle is an opaque reference to an encrypted value held by the
// homomorphic runtime. It never reveals the plaintext on its own.
type CiphertextHandle string

// Category classifies a quiz.
type Category uint8

const (
	CategoryTechnology Category = iota
	CategoryScience
	CategoryBusiness
	CategoryCustom
)

func (c Category) String() string {
	switch c {
	case CategoryTechnology:
		return "technology"
	case CategoryScience:
		return "science"
	case CategoryBusiness:
		return "business"
	case CategoryCustom:
		return "custom"
	}
	return "unknown"
}

// Difficulty grades a quiz.
type Difficulty uint8

const (
	DifficultyEasy Difficulty = iota
	DifficultyMedium
	DifficultyHard
)

func (d Difficulty) String() string {
	switch d {
	case DifficultyEasy:
		return "easy"
	case DifficultyMedium:
		return "medium"
	case DifficultyHard:
		return "hard"
	}
	return "unknown"
}

// QuestionType is a closed variant: fill-in answers are encrypted numbers,
// single-choice answers are encrypted option indices. The scoring path
// treats both identically.
type QuestionType uint8

const (
	QuestionFillInBlank QuestionType = iota
	QuestionSingleChoice
)

// Question is a single quiz question. Options is empty for fill-in-blank.
type Question struct {
	Text    string       `json:"text"`
	Type    QuestionType `json:"type"`
	Options []string     `json:"options,omitempty"`
}

// Quiz holds quiz metadata plus the encrypted reference answers, one handle
// per question.
type Quiz struct {
	ID               uint64             `json:"id"`
	Creator          Account            `json:"creator"`
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	Category         Category           `json:"category"`
	Difficulty       Difficulty         `json:"difficulty"`
	Questions        []Question         `json:"questions"`
	ReferenceAnswers []CiphertextHandle `json:"referenceAnswers"`
	RewardAmount     uint64             `json:"rewardAmount"`
	PassThreshold    uint64             `json:"passThreshold"`
	IsActive         bool               `json:"isActive"`
	CreatedAt        time.Time          `json:"createdAt"`
	ParticipantCount uint64             `json:"participantCount"`
}

// Summary is the public projection of a quiz. Reference-answer handles are
// deliberately absent.
func (q Quiz) Summary() QuizSummary {
	return QuizSummary{
		ID:               q.ID,
		Creator:          q.Creator,
		Title:            q.Title,
		Description:      q.Description,
		Category:         q.Category,
		Difficulty:       q.Difficulty,
		QuestionCount:    len(q.Questions),
		RewardAmount:     q.RewardAmount,
		PassThreshold:    q.PassThreshold,
		IsActive:         q.IsActive,
		CreatedAt:        q.CreatedAt,
		ParticipantCount: q.ParticipantCount,
	}
}

// QuizSummary is what browse pages and caches see.
type QuizSummary struct {
	ID               uint64     `json:"id"`
	Creator          Account    `json:"creator"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Category         Category   `json:"category"`
	Difficulty       Difficulty `json:"difficulty"`
	QuestionCount    int        `json:"questionCount"`
	RewardAmount     uint64     `json:"rewardAmount"`
	PassThreshold    uint64     `json:"passThreshold"`
	IsActive         bool       `json:"isActive"`
	CreatedAt        time.Time  `json:"createdAt"`
	ParticipantCount uint64     `json:"participantCount"`
}

// Submission records one participant's encrypted answers to one quiz and the
// single encrypted score computed from them.
type Submission struct {
	ID               uint64             `json:"id"`
	QuizID           uint64             `json:"quizId"`
	Participant      Account            `json:"participant"`
	Answers          []CiphertextHandle `json:"answers"`
	EncryptedScore   CiphertextHandle   `json:"encryptedScore"`
	SubmittedAt      time.Time          `json:"submittedAt"`
	HasDecrypted     bool               `json:"hasDecrypted"`
	HasClaimedReward bool               `json:"hasClaimedReward"`
}

// View is the submission projection returned by read accessors.
func (s Submission) View() SubmissionView {
	return SubmissionView{
		ID:               s.ID,
		QuizID:           s.QuizID,
		Participant:      s.Participant,
		SubmittedAt:      s.SubmittedAt,
		HasDecrypted:     s.HasDecrypted,
		HasClaimedReward: s.HasClaimedReward,
	}
}

// SubmissionView omits the raw answer handles.
type SubmissionView struct {
	ID               uint64    `json:"id"`
	QuizID           uint64    `json:"quizId"`
	Participant      Account   `json:"participant"`
	SubmittedAt      time.Time `json:"submittedAt"`
	HasDecrypted     bool      `json:"hasDecrypted"`
	HasClaimedReward bool      `json:"hasClaimedReward"`
}

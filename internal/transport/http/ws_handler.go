package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"secretquiz-service/internal/app"
	"secretquiz-service/internal/auth"
	"secretquiz-service/internal/domain"
	"secretquiz-service/internal/fhe"
)

// WSHandler speaks a JSON message protocol over a websocket. Each inbound
// message is one operation; the reply (or a coded error) is written back on
// the same connection. The caller's identity comes from the bearer token on
// the connection URL, never from message payloads.
type WSHandler struct {
	service  *app.QuizService
	tokens   *auth.Tokens
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, tokens *auth.Tokens, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		tokens:  tokens,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type encryptedInputPayload struct {
	Ciphertext []byte `json:"ciphertext"`
	Proof      []byte `json:"proof"`
}

type questionPayload struct {
	Text    string   `json:"text"`
	Type    uint8    `json:"type"`
	Options []string `json:"options,omitempty"`
}

type createQuizPayload struct {
	Title            string                  `json:"title"`
	Description      string                  `json:"description"`
	Category         uint8                   `json:"category"`
	Difficulty       uint8                   `json:"difficulty"`
	Questions        []questionPayload       `json:"questions"`
	EncryptedAnswers []encryptedInputPayload `json:"encryptedAnswers"`
	RewardAmount     uint64                  `json:"rewardAmount"`
	PassThreshold    uint64                  `json:"passThreshold"`
}

type submitAnswersPayload struct {
	QuizID           uint64                  `json:"quizId"`
	EncryptedAnswers []encryptedInputPayload `json:"encryptedAnswers"`
}

type submissionIDPayload struct {
	SubmissionID uint64 `json:"submissionId"`
}

type claimRewardPayload struct {
	SubmissionID uint64 `json:"submissionId"`
	ClaimedScore uint64 `json:"claimedScore"`
}

type quizIDPayload struct {
	QuizID uint64 `json:"quizId"`
}

type getQuestionPayload struct {
	QuizID uint64 `json:"quizId"`
	Index  int    `json:"index"`
}

// ServeWS authenticates the connection and runs the message loop.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	account, err := h.tokens.Verify(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("ws connected", zap.String("account", string(account)))

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		reply := h.dispatch(r, account, inbound)
		if err := conn.WriteJSON(reply); err != nil {
			h.logger.Warn("ws write error", zap.Error(err))
			return
		}
	}
}

func (h *WSHandler) dispatch(r *http.Request, account domain.Account, inbound inboundMessage) any {
	ctx := r.Context()
	switch inbound.Type {
	case "createQuiz":
		var payload createQuizPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return badPayload(inbound.Type)
		}
		draft := app.QuizDraft{
			Title:         payload.Title,
			Description:   payload.Description,
			Category:      domain.Category(payload.Category),
			Difficulty:    domain.Difficulty(payload.Difficulty),
			Questions:     toQuestions(payload.Questions),
			Answers:       toInputs(payload.EncryptedAnswers),
			RewardAmount:  payload.RewardAmount,
			PassThreshold: payload.PassThreshold,
		}
		id, err := h.service.CreateQuiz(ctx, account, draft)
		if err != nil {
			return h.errorMessage(inbound.Type, err)
		}
		return outboundMessage[quizIDPayload]{Type: "quizCreated", Payload: quizIDPayload{QuizID: id}}

	case "endQuiz":
		var payload quizIDPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return badPayload(inbound.Type)
		}
		if err := h.service.EndQuiz(ctx, account, payload.QuizID); err != nil {
			return h.errorMessage(inbound.Type, err)
		}
		return outboundMessage[quizIDPayload]{Type: "quizEnded", Payload: payload}

	case "submitAnswers":
		var payload submitAnswersPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return badPayload(inbound.Type)
		}
		id, err := h.service.SubmitAnswers(ctx, account, payload.QuizID, toInputs(payload.EncryptedAnswers))
		if err != nil {
			return h.errorMessage(inbound.Type, err)
		}
		return outboundMessage[submissionIDPayload]{Type: "submissionAccepted", Payload: submissionIDPayload{SubmissionID: id}}

	case "allowDecryption":
		var payload submissionIDPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return badPayload(inbound.Type)
		}
		if err := h.service.AllowResultDecryption(ctx, account, payload.SubmissionID); err != nil {
			return h.errorMessage(inbound.Type, err)
		}
		handle, err := h.service.EncryptedScore(ctx, payload.SubmissionID)
		if err != nil {
			return h.errorMessage(inbound.Type, err)
		}
		return outboundMessage[map[string]any]{Type: "decryptionAllowed", Payload: map[string]any{
			"submissionId": payload.SubmissionID,
			"scoreHandle":  handle,
		}}

	case "claimReward":
		var payload claimRewardPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return badPayload(inbound.Type)
		}
		if err := h.service.ClaimReward(ctx, account, payload.SubmissionID, payload.ClaimedScore); err != nil {
			return h.errorMessage(inbound.Type, err)
		}
		points, err := h.service.UserPoints(ctx, account)
		if err != nil {
			return h.errorMessage(inbound.Type, err)
		}
		return outboundMessage[map[string]any]{Type: "rewardClaimed", Payload: map[string]any{
			"submissionId": payload.SubmissionID,
			"points":       points,
		}}

	case "getQuiz":
		var payload quizIDPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return badPayload(inbound.Type)
		}
		summary, err := h.service.GetQuiz(ctx, payload.QuizID)
		if err != nil {
			return h.errorMessage(inbound.Type, err)
		}
		return outboundMessage[domain.QuizSummary]{Type: "quiz", Payload: summary}

	case "listQuizzes":
		summaries, err := h.service.ListQuizzes(ctx)
		if err != nil {
			return h.errorMessage(inbound.Type, err)
		}
		return outboundMessage[[]domain.QuizSummary]{Type: "quizzes", Payload: summaries}

	case "getQuestion":
		var payload getQuestionPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return badPayload(inbound.Type)
		}
		question, err := h.service.GetQuestion(ctx, payload.QuizID, payload.Index)
		if err != nil {
			return h.errorMessage(inbound.Type, err)
		}
		return outboundMessage[domain.Question]{Type: "question", Payload: question}

	case "getSubmission":
		var payload submissionIDPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return badPayload(inbound.Type)
		}
		view, err := h.service.GetSubmission(ctx, payload.SubmissionID)
		if err != nil {
			return h.errorMessage(inbound.Type, err)
		}
		return outboundMessage[domain.SubmissionView]{Type: "submission", Payload: view}

	case "getEncryptedScore":
		var payload submissionIDPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return badPayload(inbound.Type)
		}
		handle, err := h.service.EncryptedScore(ctx, payload.SubmissionID)
		if err != nil {
			return h.errorMessage(inbound.Type, err)
		}
		return outboundMessage[map[string]any]{Type: "encryptedScore", Payload: map[string]any{"handle": handle}}

	case "mySubmissions":
		ids, err := h.service.UserSubmissions(ctx, account)
		if err != nil {
			return h.errorMessage(inbound.Type, err)
		}
		return outboundMessage[map[string]any]{Type: "submissionIds", Payload: map[string]any{"ids": ids}}

	case "myQuizzes":
		ids, err := h.service.CreatorQuizzes(ctx, account)
		if err != nil {
			return h.errorMessage(inbound.Type, err)
		}
		return outboundMessage[map[string]any]{Type: "quizIds", Payload: map[string]any{"ids": ids}}

	case "totals":
		quizzes, err := h.service.TotalQuizzes(ctx)
		if err != nil {
			return h.errorMessage(inbound.Type, err)
		}
		submissions, err := h.service.TotalSubmissions(ctx)
		if err != nil {
			return h.errorMessage(inbound.Type, err)
		}
		return outboundMessage[map[string]any]{Type: "totals", Payload: map[string]any{
			"totalQuizzes":     quizzes,
			"totalSubmissions": submissions,
		}}

	case "points":
		points, err := h.service.UserPoints(ctx, account)
		if err != nil {
			return h.errorMessage(inbound.Type, err)
		}
		return outboundMessage[map[string]any]{Type: "points", Payload: map[string]any{"total": points}}

	default:
		return outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{
			Code:    "UNSUPPORTED",
			Message: "unsupported message type",
		}}
	}
}

func (h *WSHandler) errorMessage(op string, err error) outboundMessage[errorPayload] {
	code := errorCode(err)
	if code == "INTERNAL" {
		h.logger.Error("operation failed", zap.String("op", op), zap.Error(err))
	}
	return outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{
		Code:    code,
		Message: err.Error(),
	}}
}

func badPayload(op string) outboundMessage[errorPayload] {
	return outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{
		Code:    "BAD_PAYLOAD",
		Message: "invalid payload for " + op,
	}}
}

// errorCode maps each domain error to the stable code clients branch on.
func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrShapeMismatch):
		return "SHAPE_MISMATCH"
	case errors.Is(err, domain.ErrInvalidProof):
		return "INVALID_PROOF"
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrSubmissionNotFound):
		return "NOT_FOUND"
	case errors.Is(err, domain.ErrNotCreator):
		return "NOT_CREATOR"
	case errors.Is(err, domain.ErrNotOwner):
		return "NOT_OWNER"
	case errors.Is(err, domain.ErrQuizInactive):
		return "QUIZ_INACTIVE"
	case errors.Is(err, domain.ErrAlreadySubmitted):
		return "ALREADY_SUBMITTED"
	case errors.Is(err, domain.ErrMustDecryptFirst):
		return "MUST_DECRYPT_FIRST"
	case errors.Is(err, domain.ErrAlreadyClaimed):
		return "ALREADY_CLAIMED"
	case errors.Is(err, domain.ErrBelowThreshold):
		return "BELOW_THRESHOLD"
	default:
		return "INTERNAL"
	}
}

func toQuestions(payloads []questionPayload) []domain.Question {
	questions := make([]domain.Question, len(payloads))
	for i, p := range payloads {
		questions[i] = domain.Question{
			Text:    p.Text,
			Type:    domain.QuestionType(p.Type),
			Options: p.Options,
		}
	}
	return questions
}

func toInputs(payloads []encryptedInputPayload) []fhe.EncryptedInput {
	inputs := make([]fhe.EncryptedInput, len(payloads))
	for i, p := range payloads {
		inputs[i] = fhe.EncryptedInput{Ciphertext: p.Ciphertext, Proof: p.Proof}
	}
	return inputs
}

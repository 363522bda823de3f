package domain

import "errors"

var (
	// ErrShapeMismatch is returned when parallel input arrays disagree in length.
	ErrShapeMismatch = errors.New("questions and answers length mismatch")
	// ErrInvalidProof is returned when the runtime rejects a ciphertext/proof pair.
	ErrInvalidProof = errors.New("invalid input proof")
	// ErrQuizNotFound indicates an unknown quiz id.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates an out-of-range question index.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrSubmissionNotFound indicates an unknown submission id.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrNotCreator is returned when someone other than the creator mutates a quiz.
	ErrNotCreator = errors.New("not the quiz creator")
	// ErrNotOwner is returned when someone acts on another participant's submission.
	ErrNotOwner = errors.New("not your submission")
	// ErrQuizInactive is returned on submission to an ended quiz.
	ErrQuizInactive = errors.New("quiz is not active")
	// ErrAlreadySubmitted enforces one submission per participant per quiz.
	ErrAlreadySubmitted = errors.New("already submitted")
	// ErrMustDecryptFirst is returned on a claim before the decryption grant.
	ErrMustDecryptFirst = errors.New("must decrypt result first")
	// ErrAlreadyClaimed is returned on a second claim for the same submission.
	ErrAlreadyClaimed = errors.New("reward already claimed")
	// ErrBelowThreshold is returned when the decrypted score does not pass.
	ErrBelowThreshold = errors.New("score below pass threshold")
)

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the kind of every error raised for a missing attempt, question, quiz or learner.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState is the kind of errors raised when an attempt's status forbids the operation.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidInput is the kind of errors raised for malformed submissions.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAttemptNotInProgress is returned when answering or completing an attempt that is not IN_PROGRESS.
	ErrAttemptNotInProgress = InvalidState("attempt not in progress")
	// ErrQuestionNotInQuiz guards against answering a question from another quiz.
	ErrQuestionNotInQuiz = InvalidInput("question does not belong to this quiz")
	// ErrActiveAttemptExists is returned when an attempt would become the learner's second one in progress on a quiz.
	ErrActiveAttemptExists = InvalidState("learner already has an attempt in progress for this quiz")
	// ErrNoAnswers is returned for an empty bulk submission.
	ErrNoAnswers = InvalidInput("at least one answer is required")
)

// Error is a domain failure. Kind is one of ErrNotFound, ErrInvalidState or
// ErrInvalidInput and Msg is surfaced to callers verbatim.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

// Is matches both the kind and other errors carrying the same kind and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == e.Msg
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...any) error {
	return &Error{Kind: ErrInvalidState, Msg: fmt.Sprintf(format, args...)}
}

func InvalidInput(format string, args ...any) error {
	return &Error{Kind: ErrInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

// AttemptNotFound reports a missing attempt by id.
func AttemptNotFound(id string) error {
	return NotFound("quiz attempt with ID %s not found", id)
}

// QuizNotFound reports a missing quiz by id.
func QuizNotFound(id string) error {
	return NotFound("quiz with ID %s not found", id)
}

// QuestionNotFound reports a missing question by id.
func QuestionNotFound(id string) error {
	return NotFound("question with ID %s not found", id)
}

// LearnerNotFound reports a missing learner profile by id.
func LearnerNotFound(id string) error {
	return NotFound("learner with ID %s not found", id)
}

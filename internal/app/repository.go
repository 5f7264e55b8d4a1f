package app

import (
	"context"

	"quiz-attempt-service/internal/domain"
)

// QuizRepository loads quiz definitions (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuestionRepository loads catalog questions.
type QuestionRepository interface {
	GetQuestion(ctx context.Context, questionID string) (domain.Question, error)
}

// LearnerRepository checks learner profiles.
type LearnerRepository interface {
	LearnerExists(ctx context.Context, learnerID string) (bool, error)
}

// Catalog groups the read-only collaborators of the attempt engine.
type Catalog struct {
	Quizzes   QuizRepository
	Questions QuestionRepository
	Learners  LearnerRepository
}

// AttemptRepository persists attempts and answers. Lookups of a missing
// attempt return an error matching domain.ErrNotFound.
type AttemptRepository interface {
	GetAttempt(ctx context.Context, id string) (domain.Attempt, error)
	// FindActiveOrCreate returns the IN_PROGRESS attempt of the candidate's (quiz, learner)
	// pair, inserting the candidate if there is none. created reports which happened.
	FindActiveOrCreate(ctx context.Context, candidate domain.Attempt) (attempt domain.Attempt, created bool, err error)
	UpdateAttempt(ctx context.Context, attempt domain.Attempt) error
	DeleteAttempt(ctx context.Context, id string) error
	ListAttempts(ctx context.Context, filter domain.AttemptFilter) ([]domain.Attempt, error)
	AggregateAttempts(ctx context.Context, filter domain.AttemptFilter) (domain.AttemptAggregate, error)

	// UpsertAnswer inserts the answer or overwrites the one recorded for the same
	// (attempt, question) pair, returning the stored row.
	UpsertAnswer(ctx context.Context, answer domain.Answer) (domain.Answer, error)
	ListAnswers(ctx context.Context, attemptID string) ([]domain.Answer, error)
}

// AttemptStore is an AttemptRepository that can run a unit of work atomically.
// Inside fn, attempts read through repo are locked until the transaction ends.
type AttemptStore interface {
	AttemptRepository
	RunInTx(ctx context.Context, fn func(ctx context.Context, repo AttemptRepository) error) error
}

// Locker serialises work on a key across goroutines (and instances, for shared implementations).
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

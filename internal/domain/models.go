package domain

import "time"

// AttemptStatus is the lifecycle state of an attempt.
type AttemptStatus string

const (
	StatusInProgress AttemptStatus = "IN_PROGRESS"
	StatusPaused     AttemptStatus = "PAUSED"
	StatusCompleted  AttemptStatus = "COMPLETED"
	StatusAbandoned  AttemptStatus = "ABANDONED"
)

// Valid reports whether s is a known status.
func (s AttemptStatus) Valid() bool {
	switch s {
	case StatusInProgress, StatusPaused, StatusCompleted, StatusAbandoned:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s AttemptStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// CanTransition reports whether the attempt graph has an edge from s to next.
func (s AttemptStatus) CanTransition(next AttemptStatus) bool {
	switch s {
	case StatusInProgress:
		return next == StatusCompleted || next == StatusAbandoned || next == StatusPaused
	case StatusPaused:
		return next == StatusInProgress
	}
	return false
}

// Attempt is one learner's run through one quiz.
type Attempt struct {
	ID             string        `json:"id"`
	QuizID         string        `json:"quizId"`
	LearnerID      string        `json:"learnerId"`
	Status         AttemptStatus `json:"status"`
	StartedAt      time.Time     `json:"startedAt"`
	CompletedAt    *time.Time    `json:"completedAt,omitempty"`
	TimeSpent      *int          `json:"timeSpent,omitempty"`
	Score          *float64      `json:"score,omitempty"`
	TotalQuestions *int          `json:"totalQuestions,omitempty"`
	CorrectAnswers *int          `json:"correctAnswers,omitempty"`
	TotalPoints    *int          `json:"totalPoints,omitempty"`
	MaxPoints      *int          `json:"maxPoints,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// ApplyScore copies computed totals onto the attempt.
func (a *Attempt) ApplyScore(s ScoreSummary) {
	total, correct, points, max, score := s.TotalQuestions, s.CorrectAnswers, s.TotalPoints, s.MaxPoints, s.Score
	a.TotalQuestions = &total
	a.CorrectAnswers = &correct
	a.TotalPoints = &points
	a.MaxPoints = &max
	a.Score = &score
}

// AttemptPatch is an administrative correction. Nil fields are left untouched.
// Status is deliberately absent: transitions go through the state machine.
type AttemptPatch struct {
	QuizID         *string  `json:"quizId,omitempty"`
	LearnerID      *string  `json:"learnerId,omitempty"`
	TimeSpent      *int     `json:"timeSpent,omitempty" validate:"omitempty,gte=0,lte=86400"`
	Score          *float64 `json:"score,omitempty" validate:"omitempty,gte=0,lte=100"`
	TotalQuestions *int     `json:"totalQuestions,omitempty" validate:"omitempty,gte=0,lte=1000"`
	CorrectAnswers *int     `json:"correctAnswers,omitempty" validate:"omitempty,gte=0,lte=1000"`
	TotalPoints    *int     `json:"totalPoints,omitempty" validate:"omitempty,gte=0,lte=100000"`
	MaxPoints      *int     `json:"maxPoints,omitempty" validate:"omitempty,gte=0,lte=100000"`
}

// CompletionTotals are caller-computed results persisted by a client completion.
type CompletionTotals struct {
	TimeSpent      int     `json:"timeSpent" validate:"gte=0,lte=86400"`
	Score          float64 `json:"score" validate:"gte=0,lte=100"`
	TotalQuestions int     `json:"totalQuestions" validate:"gte=1,lte=1000"`
	CorrectAnswers int     `json:"correctAnswers" validate:"gte=0,lte=1000,ltefield=TotalQuestions"`
	TotalPoints    int     `json:"totalPoints" validate:"gte=0,lte=100000"`
	MaxPoints      int     `json:"maxPoints" validate:"gte=1,lte=100000"`
}

// AttemptFilter narrows attempt listings and statistics. Empty fields match everything.
type AttemptFilter struct {
	QuizID    string
	LearnerID string
	Status    AttemptStatus
}

// Answer is one response to one question within an attempt.
type Answer struct {
	ID             string    `json:"id"`
	AttemptID      string    `json:"attemptId"`
	QuestionID     string    `json:"questionId"`
	SelectedOption string    `json:"selectedOption,omitempty"`
	TextAnswer     string    `json:"textAnswer,omitempty"`
	IsCorrect      bool      `json:"isCorrect"`
	PointsEarned   int       `json:"pointsEarned"`
	TimeSpent      int       `json:"timeSpent"`
	AnsweredAt     time.Time `json:"answeredAt"`
}

// AnswerSubmission is a learner's response as received from a client.
type AnswerSubmission struct {
	QuestionID     string `json:"questionId" validate:"required"`
	SelectedOption string `json:"selectedOption,omitempty"`
	TextAnswer     string `json:"textAnswer,omitempty"`
	TimeSpent      int    `json:"timeSpent,omitempty" validate:"gte=0,lte=3600"`
}

// ScoreSummary aggregates the recorded answers of one attempt.
type ScoreSummary struct {
	TotalQuestions int     `json:"totalQuestions"`
	CorrectAnswers int     `json:"correctAnswers"`
	TotalPoints    int     `json:"totalPoints"`
	MaxPoints      int     `json:"maxPoints"`
	Score          float64 `json:"score"`
}

// AttemptAggregate is the raw aggregate a store computes for statistics.
type AttemptAggregate struct {
	TotalAttempts     int
	CompletedAttempts int
	AverageScore      float64
	AverageTimeSpent  float64
}

// StatsSummary reports completion and performance across attempts.
type StatsSummary struct {
	TotalAttempts     int     `json:"totalAttempts"`
	CompletedAttempts int     `json:"completedAttempts"`
	CompletionRate    float64 `json:"completionRate"`
	AverageScore      float64 `json:"averageScore"`
	AverageTimeSpent  float64 `json:"averageTimeSpent"`
}

package app

import (
	"context"
	"time"

	"quiz-attempt-service/internal/domain"

	"github.com/shopspring/decimal"
)

// ScoreService aggregates recorded answers into attempt totals.
type ScoreService struct {
	*core
}

// CalculateScore summarises the answers recorded so far. It has no side effects.
func (s *ScoreService) CalculateScore(ctx context.Context, attemptID string) (domain.ScoreSummary, error) {
	attempt, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return domain.ScoreSummary{}, err
	}
	return s.summarize(ctx, s.store, attempt)
}

// AutoComplete recomputes the totals from stored answers and completes the attempt.
func (s *ScoreService) AutoComplete(ctx context.Context, attemptID string) (domain.Attempt, error) {
	var attempt domain.Attempt
	err := s.withAttemptLock(ctx, attemptID, func(ctx context.Context, repo AttemptRepository) error {
		var err error
		attempt, err = repo.GetAttempt(ctx, attemptID)
		if err != nil {
			return err
		}
		if !attempt.Status.CanTransition(domain.StatusCompleted) {
			return domain.InvalidState("quiz attempt is not in progress and cannot be completed")
		}
		summary, err := s.summarize(ctx, repo, attempt)
		if err != nil {
			return err
		}

		now := s.nowUTC()
		spent := elapsedSeconds(attempt.StartedAt, now)
		attempt.ApplyScore(summary)
		attempt.TimeSpent = &spent
		attempt.Status = domain.StatusCompleted
		attempt.CompletedAt = &now
		attempt.UpdatedAt = now
		return repo.UpdateAttempt(ctx, attempt)
	})
	if err != nil {
		return domain.Attempt{}, err
	}
	s.attemptLog(attempt).WithField("score", *attempt.Score).Info("attempt auto-completed")
	return attempt, nil
}

func (s *ScoreService) summarize(ctx context.Context, repo AttemptRepository, attempt domain.Attempt) (domain.ScoreSummary, error) {
	answers, err := repo.ListAnswers(ctx, attempt.ID)
	if err != nil {
		return domain.ScoreSummary{}, err
	}
	if len(answers) == 0 {
		return domain.ScoreSummary{}, nil
	}
	quiz, err := s.catalog.Quizzes.GetQuiz(ctx, attempt.QuizID)
	if err != nil {
		return domain.ScoreSummary{}, err
	}
	return Summarize(quiz, answers), nil
}

// Summarize totals answers against the quiz's point values. MaxPoints only
// counts answered questions; a question no longer in the quiz is worth DefaultPoints.
func Summarize(quiz domain.Quiz, answers []domain.Answer) domain.ScoreSummary {
	var sum domain.ScoreSummary
	for _, a := range answers {
		sum.TotalQuestions++
		if a.IsCorrect {
			sum.CorrectAnswers++
		}
		sum.TotalPoints += a.PointsEarned
		if entry, ok := quiz.Question(a.QuestionID); ok {
			sum.MaxPoints += entry.PointValue()
		} else {
			sum.MaxPoints += domain.DefaultPoints
		}
	}
	sum.Score = Percentage(sum.CorrectAnswers, sum.TotalQuestions)
	return sum
}

// Percentage returns part/whole*100 rounded half-up to two decimals, or 0 when whole is 0.
func Percentage(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(whole))).
		Round(2)
	f, _ := pct.Float64()
	return f
}

func elapsedSeconds(from, to time.Time) int {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

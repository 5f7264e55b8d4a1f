package app

import (
	"context"

	"quiz-attempt-service/internal/domain"
)

// StatisticsService reports completion and performance across attempts.
type StatisticsService struct {
	*core
}

// Statistics aggregates the attempts of a quiz, a learner, both, or everyone.
// Averages only consider completed attempts.
func (s *StatisticsService) Statistics(ctx context.Context, quizID, learnerID string) (domain.StatsSummary, error) {
	agg, err := s.store.AggregateAttempts(ctx, domain.AttemptFilter{QuizID: quizID, LearnerID: learnerID})
	if err != nil {
		return domain.StatsSummary{}, err
	}
	summary := domain.StatsSummary{
		TotalAttempts:     agg.TotalAttempts,
		CompletedAttempts: agg.CompletedAttempts,
	}
	summary.CompletionRate = Percentage(agg.CompletedAttempts, agg.TotalAttempts)
	if agg.CompletedAttempts > 0 {
		summary.AverageScore = agg.AverageScore
		summary.AverageTimeSpent = agg.AverageTimeSpent
	}
	return summary, nil
}

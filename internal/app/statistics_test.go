package app_test

import (
	"context"
	"testing"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
)

func TestStatisticsWithoutAttempts(t *testing.T) {
	f := newFixture(t)
	stats, err := f.engine.Statistics.Statistics(context.Background(), "quiz-1", "")
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats != (domain.StatsSummary{}) {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}

func TestStatisticsAveragesCompletedAttempts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, app.WithCompletionPolicy(app.CompletionClient))

	first := mustCreate(t, f, "quiz-1", "learner-1")
	if _, err := f.engine.Attempts.Complete(ctx, first.ID, domain.CompletionTotals{
		TimeSpent: 100, Score: 80, TotalQuestions: 5, CorrectAnswers: 4, TotalPoints: 4, MaxPoints: 5,
	}); err != nil {
		t.Fatalf("complete first: %v", err)
	}
	f.clock.Advance(time.Minute)
	second := mustCreate(t, f, "quiz-1", "learner-1")
	if _, err := f.engine.Attempts.Complete(ctx, second.ID, domain.CompletionTotals{
		TimeSpent: 200, Score: 40, TotalQuestions: 5, CorrectAnswers: 2, TotalPoints: 2, MaxPoints: 5,
	}); err != nil {
		t.Fatalf("complete second: %v", err)
	}
	third := mustCreate(t, f, "quiz-1", "learner-2")
	if _, err := f.engine.Attempts.Abandon(ctx, third.ID); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	mustCreate(t, f, "quiz-1", "learner-1")
	mustCreate(t, f, "quiz-2", "learner-1")

	stats, err := f.engine.Statistics.Statistics(ctx, "quiz-1", "")
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	want := domain.StatsSummary{TotalAttempts: 4, CompletedAttempts: 2, CompletionRate: 50, AverageScore: 60, AverageTimeSpent: 150}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}

	mine, err := f.engine.Statistics.Statistics(ctx, "quiz-1", "learner-2")
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if mine.TotalAttempts != 1 || mine.CompletedAttempts != 0 || mine.AverageScore != 0 {
		t.Fatalf("unexpected learner-2 stats: %+v", mine)
	}

	everyone, _ := f.engine.Statistics.Statistics(ctx, "", "")
	if everyone.TotalAttempts != 5 || everyone.CompletionRate != 40 {
		t.Fatalf("unexpected global stats: %+v", everyone)
	}
}

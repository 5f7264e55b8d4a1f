package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
)

func newAttempt(id, quizID, learnerID string, startedAt time.Time) domain.Attempt {
	return domain.Attempt{
		ID:        id,
		QuizID:    quizID,
		LearnerID: learnerID,
		Status:    domain.StatusInProgress,
		StartedAt: startedAt,
		CreatedAt: startedAt,
		UpdatedAt: startedAt,
	}
}

func TestAttemptStoreRollsBackFailedTransaction(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()
	now := time.Now().UTC()
	if _, _, err := store.FindActiveOrCreate(ctx, newAttempt("a1", "quiz-1", "learner-1", now)); err != nil {
		t.Fatalf("create: %v", err)
	}

	boom := errors.New("boom")
	err := store.RunInTx(ctx, func(ctx context.Context, repo app.AttemptRepository) error {
		if _, err := repo.UpsertAnswer(ctx, domain.Answer{ID: "ans-1", AttemptID: "a1", QuestionID: "q1", AnsweredAt: now}); err != nil {
			return err
		}
		a, err := repo.GetAttempt(ctx, "a1")
		if err != nil {
			return err
		}
		a.Status = domain.StatusAbandoned
		if err := repo.UpdateAttempt(ctx, a); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected tx error, got %v", err)
	}

	a, err := store.GetAttempt(ctx, "a1")
	if err != nil || a.Status != domain.StatusInProgress {
		t.Fatalf("expected status rolled back: status=%s err=%v", a.Status, err)
	}
	if n := store.AnswerCount("a1"); n != 0 {
		t.Fatalf("expected answer rolled back, got %d", n)
	}
}

func TestAttemptStoreFindActiveOrCreate(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()
	now := time.Now().UTC()

	first, created, err := store.FindActiveOrCreate(ctx, newAttempt("a1", "quiz-1", "learner-1", now))
	if err != nil || !created {
		t.Fatalf("expected created: created=%v err=%v", created, err)
	}
	again, created, err := store.FindActiveOrCreate(ctx, newAttempt("a2", "quiz-1", "learner-1", now))
	if err != nil || created || again.ID != first.ID {
		t.Fatalf("expected existing a1, got %s created=%v err=%v", again.ID, created, err)
	}

	first.Status = domain.StatusCompleted
	if err := store.UpdateAttempt(ctx, first); err != nil {
		t.Fatalf("update: %v", err)
	}
	next, created, err := store.FindActiveOrCreate(ctx, newAttempt("a3", "quiz-1", "learner-1", now))
	if err != nil || !created || next.ID != "a3" {
		t.Fatalf("expected new a3, got %s created=%v err=%v", next.ID, created, err)
	}

	first.Status = domain.StatusInProgress
	if err := store.UpdateAttempt(ctx, first); !errors.Is(err, domain.ErrActiveAttemptExists) {
		t.Fatalf("expected second in-progress attempt refused, got %v", err)
	}
}

func TestAttemptStoreReturnsDetachedCopies(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()
	a := newAttempt("a1", "quiz-1", "learner-1", time.Now().UTC())
	score := 10.0
	a.Score = &score
	if _, _, err := store.FindActiveOrCreate(ctx, a); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, _ := store.GetAttempt(ctx, "a1")
	*got.Score = 99
	again, _ := store.GetAttempt(ctx, "a1")
	if *again.Score != 10 {
		t.Fatalf("stored attempt mutated through a returned pointer: %v", *again.Score)
	}
}

func TestAttemptStoreUpsertKeepsAnswerIdentity(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()
	now := time.Now().UTC()
	_, _, _ = store.FindActiveOrCreate(ctx, newAttempt("a1", "quiz-1", "learner-1", now))

	first, _ := store.UpsertAnswer(ctx, domain.Answer{ID: "x", AttemptID: "a1", QuestionID: "q2", SelectedOption: "a", AnsweredAt: now})
	_, _ = store.UpsertAnswer(ctx, domain.Answer{ID: "y", AttemptID: "a1", QuestionID: "q1", SelectedOption: "a", AnsweredAt: now.Add(time.Second)})
	second, _ := store.UpsertAnswer(ctx, domain.Answer{ID: "z", AttemptID: "a1", QuestionID: "q2", SelectedOption: "b", AnsweredAt: now.Add(2 * time.Second)})
	if second.ID != first.ID {
		t.Fatalf("expected upsert to keep id %s, got %s", first.ID, second.ID)
	}

	answers, _ := store.ListAnswers(ctx, "a1")
	if len(answers) != 2 || answers[0].QuestionID != "q1" || answers[1].SelectedOption != "b" {
		t.Fatalf("expected answers ordered by answeredAt, got %+v", answers)
	}
	if _, err := store.UpsertAnswer(ctx, domain.Answer{AttemptID: "missing", QuestionID: "q1"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected missing attempt, got %v", err)
	}
}

func TestAttemptStoreAggregate(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()
	now := time.Now().UTC()

	complete := func(id string, score float64, spent int) {
		a := newAttempt(id, "quiz-1", "learner-"+id, now)
		_, _, _ = store.FindActiveOrCreate(ctx, a)
		a.Status = domain.StatusCompleted
		a.Score = &score
		a.TimeSpent = &spent
		if err := store.UpdateAttempt(ctx, a); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	complete("a1", 90, 60)
	complete("a2", 70, 120)
	_, _, _ = store.FindActiveOrCreate(ctx, newAttempt("a3", "quiz-1", "learner-a3", now))
	_, _, _ = store.FindActiveOrCreate(ctx, newAttempt("a4", "quiz-2", "learner-a4", now))

	agg, err := store.AggregateAttempts(ctx, domain.AttemptFilter{QuizID: "quiz-1"})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	want := domain.AttemptAggregate{TotalAttempts: 3, CompletedAttempts: 2, AverageScore: 80, AverageTimeSpent: 90}
	if agg != want {
		t.Fatalf("expected %+v, got %+v", want, agg)
	}
}

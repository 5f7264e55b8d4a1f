package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quiz-attempt-service/internal/domain"
)

func TestSubmitAnswerEvaluatesAndOverwrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := mustCreate(t, f, "quiz-1", "learner-1")

	wrong, err := f.engine.Answers.SubmitAnswer(ctx, a.ID, domain.AnswerSubmission{QuestionID: "q1", SelectedOption: "3", TimeSpent: 12})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if wrong.IsCorrect || wrong.PointsEarned != 0 || wrong.TimeSpent != 12 {
		t.Fatalf("expected incorrect answer, got %+v", wrong)
	}

	f.clock.Advance(5 * time.Second)
	right, err := f.engine.Answers.SubmitAnswer(ctx, a.ID, domain.AnswerSubmission{QuestionID: "q1", SelectedOption: "4"})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if !right.IsCorrect || right.PointsEarned != 1 {
		t.Fatalf("expected correct answer worth 1 point, got %+v", right)
	}
	if right.ID != wrong.ID {
		t.Fatalf("expected the stored answer to be overwritten in place")
	}
	if n := f.store.AnswerCount(a.ID); n != 1 {
		t.Fatalf("expected one answer row, got %d", n)
	}

	answers, err := f.engine.Answers.GetAnswers(ctx, a.ID)
	if err != nil || len(answers) != 1 || answers[0].SelectedOption != "4" || !answers[0].AnsweredAt.Equal(f.clock.Now()) {
		t.Fatalf("unexpected stored answers: %+v err=%v", answers, err)
	}
}

func TestSubmitAnswerUsesQuizPointValue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := mustCreate(t, f, "quiz-1", "learner-1")

	answer, err := f.engine.Answers.SubmitAnswer(ctx, a.ID, domain.AnswerSubmission{QuestionID: "q3", TextAnswer: "  NIL "})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !answer.IsCorrect || answer.PointsEarned != 2 {
		t.Fatalf("expected fill-blank match worth 2 points, got %+v", answer)
	}
	if answer.SelectedOption != "" || answer.TextAnswer != "  NIL " {
		t.Fatalf("expected only the text answer stored, got %+v", answer)
	}
}

func TestSubmitAnswerRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := mustCreate(t, f, "quiz-1", "learner-1")

	cases := []struct {
		name string
		id   string
		sub  domain.AnswerSubmission
		want error
	}{
		{"missing attempt", "missing", domain.AnswerSubmission{QuestionID: "q1", SelectedOption: "4"}, domain.ErrNotFound},
		{"missing question", a.ID, domain.AnswerSubmission{QuestionID: "q404", SelectedOption: "4"}, domain.ErrNotFound},
		{"question from another quiz", a.ID, domain.AnswerSubmission{QuestionID: "q4", SelectedOption: "Paris"}, domain.ErrQuestionNotInQuiz},
		{"choice without option", a.ID, domain.AnswerSubmission{QuestionID: "q1", TextAnswer: "4"}, domain.ErrInvalidInput},
		{"fill blank without text", a.ID, domain.AnswerSubmission{QuestionID: "q3", SelectedOption: "nil"}, domain.ErrInvalidInput},
		{"no question id", a.ID, domain.AnswerSubmission{SelectedOption: "4"}, domain.ErrInvalidInput},
		{"time out of range", a.ID, domain.AnswerSubmission{QuestionID: "q1", SelectedOption: "4", TimeSpent: 3601}, domain.ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.engine.Answers.SubmitAnswer(ctx, tc.id, tc.sub); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if n := f.store.AnswerCount(a.ID); n != 0 {
		t.Fatalf("rejected submissions must not be stored, got %d", n)
	}
}

func TestSubmitAnswerRequiresAttemptInProgress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := mustCreate(t, f, "quiz-1", "learner-1")
	if _, err := f.engine.Attempts.Pause(ctx, a.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}

	_, err := f.engine.Answers.SubmitAnswer(ctx, a.ID, domain.AnswerSubmission{QuestionID: "q1", SelectedOption: "4"})
	if !errors.Is(err, domain.ErrAttemptNotInProgress) || !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected attempt not in progress, got %v", err)
	}
}

func TestUnknownQuestionTypeIsNeverCorrect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := mustCreate(t, f, "quiz-3", "learner-1")

	answer, err := f.engine.Answers.SubmitAnswer(ctx, a.ID, domain.AnswerSubmission{QuestionID: "q5", TextAnswer: "a lightweight thread"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if answer.IsCorrect || answer.PointsEarned != 0 {
		t.Fatalf("expected unknown type scored incorrect, got %+v", answer)
	}
	if _, err := f.engine.Answers.SubmitAnswer(ctx, a.ID, domain.AnswerSubmission{QuestionID: "q5"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected empty response rejected, got %v", err)
	}
}

func TestBulkSubmitIsAtomic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := mustCreate(t, f, "quiz-1", "learner-1")

	_, err := f.engine.Answers.BulkSubmitAnswers(ctx, a.ID, []domain.AnswerSubmission{
		{QuestionID: "q1", SelectedOption: "4"},
		{QuestionID: "q4", SelectedOption: "Paris"},
	})
	if !errors.Is(err, domain.ErrQuestionNotInQuiz) {
		t.Fatalf("expected cross-quiz rejection, got %v", err)
	}
	if n := f.store.AnswerCount(a.ID); n != 0 {
		t.Fatalf("expected no answers stored after failed bulk submit, got %d", n)
	}

	answers, err := f.engine.Answers.BulkSubmitAnswers(ctx, a.ID, []domain.AnswerSubmission{
		{QuestionID: "q2", SelectedOption: "true"},
		{QuestionID: "q1", SelectedOption: "5"},
		{QuestionID: "q3", TextAnswer: "nil"},
	})
	if err != nil {
		t.Fatalf("bulk submit: %v", err)
	}
	if len(answers) != 3 || answers[0].QuestionID != "q2" || answers[1].QuestionID != "q1" {
		t.Fatalf("expected results in submission order, got %+v", answers)
	}
	if !answers[0].IsCorrect || answers[1].IsCorrect || !answers[2].IsCorrect {
		t.Fatalf("unexpected verdicts: %+v", answers)
	}

	if _, err := f.engine.Answers.BulkSubmitAnswers(ctx, a.ID, nil); !errors.Is(err, domain.ErrNoAnswers) {
		t.Fatalf("expected empty bulk rejected, got %v", err)
	}
}

func TestConcurrentSubmissionsKeepOneRowPerQuestion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := mustCreate(t, f, "quiz-1", "learner-1")

	options := []string{"3", "4", "5"}
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(opt string) {
			defer wg.Done()
			if _, err := f.engine.Answers.SubmitAnswer(ctx, a.ID, domain.AnswerSubmission{QuestionID: "q1", SelectedOption: opt}); err != nil {
				t.Errorf("submit: %v", err)
			}
		}(options[i%len(options)])
	}
	wg.Wait()

	if n := f.store.AnswerCount(a.ID); n != 1 {
		t.Fatalf("expected one answer row, got %d", n)
	}
}

func TestGetAnswersRequiresAttempt(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.Answers.GetAnswers(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/memory"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	engine *app.Engine
	store  *memory.AttemptStore
	clock  *testClock
	logs   *test.Hook
}

func newFixture(t *testing.T, opts ...app.Option) *fixture {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	catalog := testCatalog()
	store := memory.NewAttemptStore()
	clock := newTestClock()

	all := append([]app.Option{app.WithLogger(logger), app.WithClock(clock.Now)}, opts...)
	engine := app.NewEngine(store, app.Catalog{
		Quizzes:   memory.NewQuizRepository(catalog, time.Minute),
		Questions: catalog,
		Learners:  catalog,
	}, all...)
	return &fixture{engine: engine, store: store, clock: clock, logs: hook}
}

// testCatalog: quiz-1 holds q1 (MCQ, 1pt), q2 (TRUE_FALSE, 1pt) and q3 (FILL_BLANK, 2pt);
// quiz-2 holds q4; quiz-3 holds q5, whose type the engine does not know; quiz-4 holds
// q1..q3 at one point each.
func testCatalog() *memory.StaticCatalog {
	return memory.NewStaticCatalog().
		AddLearner("learner-1", "learner-2").
		AddQuestion(domain.NewQuestion("q1", "What is 2 + 2?", domain.QuestionMCQ, "", []domain.Option{
			{Text: "3"}, {Text: "4", Correct: true}, {Text: "5"},
		})).
		AddQuestion(domain.NewQuestion("q2", "Go has generics.", domain.QuestionTrueFalse, "", []domain.Option{
			{Text: "true", Correct: true}, {Text: "false"},
		})).
		AddQuestion(domain.NewQuestion("q3", "The zero value of a pointer is ___.", domain.QuestionFillBlank, "", []domain.Option{
			{Text: "nil", Correct: true},
		})).
		AddQuestion(domain.NewQuestion("q4", "Capital of France?", domain.QuestionMCQ, "", []domain.Option{
			{Text: "Paris", Correct: true}, {Text: "Rome"},
		})).
		AddQuestion(domain.NewQuestion("q5", "Describe a goroutine.", domain.QuestionType("ESSAY"), "", nil)).
		AddQuiz(domain.Quiz{ID: "quiz-1", Title: "Warm-up", Questions: []domain.QuizQuestion{
			{QuestionID: "q1", Position: 1, Points: 1},
			{QuestionID: "q2", Position: 2, Points: 1},
			{QuestionID: "q3", Position: 3, Points: 2},
		}}).
		AddQuiz(domain.Quiz{ID: "quiz-2", Questions: []domain.QuizQuestion{
			{QuestionID: "q4", Position: 1, Points: 1},
		}}).
		AddQuiz(domain.Quiz{ID: "quiz-4", Questions: []domain.QuizQuestion{
			{QuestionID: "q1", Position: 1, Points: 1},
			{QuestionID: "q2", Position: 2, Points: 1},
			{QuestionID: "q3", Position: 3, Points: 1},
		}}).
		AddQuiz(domain.Quiz{ID: "quiz-3", Questions: []domain.QuizQuestion{
			{QuestionID: "q5", Position: 1},
		}})
}

func mustCreate(t *testing.T, f *fixture, quizID, learnerID string) domain.Attempt {
	t.Helper()
	attempt, _, err := f.engine.Attempts.Create(context.Background(), quizID, learnerID)
	if err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	return attempt
}

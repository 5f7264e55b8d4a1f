package cli

import (
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/memory"
)

// sampleCatalog provides a minimal catalog for running without Postgres.
func sampleCatalog() *memory.StaticCatalog {
	return memory.NewStaticCatalog().
		AddLearner("learner-1", "learner-2").
		AddQuestion(domain.NewQuestion("q1", "What is 2 + 2?", domain.QuestionMCQ, "", []domain.Option{
			{Text: "3"},
			{Text: "4", Correct: true},
			{Text: "5"},
		})).
		AddQuestion(domain.NewQuestion("q2", "Go has generics.", domain.QuestionTrueFalse, "Since Go 1.18.", []domain.Option{
			{Text: "true", Correct: true},
			{Text: "false"},
		})).
		AddQuestion(domain.NewQuestion("q3", "The zero value of a pointer is ___.", domain.QuestionFillBlank, "", []domain.Option{
			{Text: "nil", Correct: true},
		})).
		AddQuiz(domain.Quiz{
			ID:    "quiz-1",
			Title: "Warm-up",
			Questions: []domain.QuizQuestion{
				{QuestionID: "q1", Position: 1, Points: 1},
				{QuestionID: "q2", Position: 2, Points: 1},
				{QuestionID: "q3", Position: 3, Points: 2},
			},
		})
}

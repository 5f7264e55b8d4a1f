package app

import (
	"strings"

	"quiz-attempt-service/internal/domain"
)

// Evaluation is the verdict on one response.
type Evaluation struct {
	Correct bool
	Points  int
}

// checkResponseShape verifies the submission carries the field the question type answers with.
func checkResponseShape(q domain.Question, sub domain.AnswerSubmission) error {
	switch {
	case q.Type.IsChoice():
		if strings.TrimSpace(sub.SelectedOption) == "" {
			return domain.InvalidInput("selectedOption is required for %s questions", q.Type)
		}
	case q.Type == domain.QuestionFillBlank:
		if strings.TrimSpace(sub.TextAnswer) == "" {
			return domain.InvalidInput("textAnswer is required for %s questions", q.Type)
		}
	default:
		if strings.TrimSpace(sub.SelectedOption) == "" && strings.TrimSpace(sub.TextAnswer) == "" {
			return domain.InvalidInput("selectedOption or textAnswer is required")
		}
	}
	return nil
}

// Evaluate judges a response and awards points, the quiz-specific value when correct.
// Questions of unknown type are never correct.
func Evaluate(q domain.Question, sub domain.AnswerSubmission, points int) Evaluation {
	var correct bool
	switch p := q.Payload.(type) {
	case domain.ChoicePayload:
		if opt, ok := p.CorrectOption(); ok {
			correct = sub.SelectedOption == opt.Text
		}
	case domain.FreeTextPayload:
		correct = p.Accepts(sub.TextAnswer)
	}
	if !correct {
		return Evaluation{}
	}
	return Evaluation{Correct: true, Points: points}
}

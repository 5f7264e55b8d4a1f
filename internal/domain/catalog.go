package domain

import "strings"

// QuestionType tags how a question is answered.
type QuestionType string

const (
	QuestionMCQ       QuestionType = "MCQ"
	QuestionTrueFalse QuestionType = "TRUE_FALSE"
	QuestionFillBlank QuestionType = "FILL_BLANK"
)

// IsChoice reports whether answers select one of the question's options.
func (t QuestionType) IsChoice() bool {
	return t == QuestionMCQ || t == QuestionTrueFalse
}

// Option represents a possible answer for a question.
type Option struct {
	Text        string `json:"text"`
	Correct     bool   `json:"isCorrect"`
	Explanation string `json:"explanation,omitempty"`
}

// QuestionPayload is the type-specific part of a question:
// ChoicePayload or FreeTextPayload. A nil payload means the type is unknown.
type QuestionPayload interface {
	questionPayload()
}

// ChoicePayload holds the ordered options of an MCQ or TRUE_FALSE question.
type ChoicePayload struct {
	Options []Option
}

// CorrectOption returns the first option flagged correct.
func (p ChoicePayload) CorrectOption() (Option, bool) {
	for _, opt := range p.Options {
		if opt.Correct {
			return opt, true
		}
	}
	return Option{}, false
}

// FreeTextPayload holds the accepted texts of a FILL_BLANK question.
type FreeTextPayload struct {
	CorrectTexts []string
}

func (ChoicePayload) questionPayload()   {}
func (FreeTextPayload) questionPayload() {}

// Question is a catalog entry. It is read-only to the attempt engine.
type Question struct {
	ID          string          `json:"id"`
	Text        string          `json:"questionText"`
	Type        QuestionType    `json:"questionType"`
	Explanation string          `json:"explanation,omitempty"`
	Payload     QuestionPayload `json:"-"`
}

// NewQuestion builds a question from its stored option list, picking the payload from the type tag.
func NewQuestion(id, text string, typ QuestionType, explanation string, options []Option) Question {
	q := Question{ID: id, Text: text, Type: typ, Explanation: explanation}
	switch {
	case typ.IsChoice():
		q.Payload = ChoicePayload{Options: options}
	case typ == QuestionFillBlank:
		texts := make([]string, 0, len(options))
		for _, opt := range options {
			if opt.Correct {
				texts = append(texts, opt.Text)
			}
		}
		q.Payload = FreeTextPayload{CorrectTexts: texts}
	}
	return q
}

// Options returns the option list backing the payload, used when re-serialising a question.
func (q Question) Options() []Option {
	switch p := q.Payload.(type) {
	case ChoicePayload:
		return p.Options
	case FreeTextPayload:
		opts := make([]Option, 0, len(p.CorrectTexts))
		for _, text := range p.CorrectTexts {
			opts = append(opts, Option{Text: text, Correct: true})
		}
		return opts
	}
	return nil
}

// DefaultPoints is the value of a quiz question stored without a positive point value.
const DefaultPoints = 1

// QuizQuestion places a catalog question in a quiz with a quiz-specific point value.
type QuizQuestion struct {
	QuestionID string `json:"questionId"`
	Position   int    `json:"position"`
	Points     int    `json:"points"`
}

// PointValue returns the points awarded for a correct answer, defaulting to DefaultPoints.
func (qq QuizQuestion) PointValue() int {
	if qq.Points <= 0 {
		return DefaultPoints
	}
	return qq.Points
}

// Quiz is an ordered, weighted selection of catalog questions.
type Quiz struct {
	ID        string         `json:"id"`
	Title     string         `json:"title,omitempty"`
	Questions []QuizQuestion `json:"questions"`
}

// Question returns the association for questionID, if the question is part of the quiz.
func (q Quiz) Question(questionID string) (QuizQuestion, bool) {
	for _, qq := range q.Questions {
		if qq.QuestionID == questionID {
			return qq, true
		}
	}
	return QuizQuestion{}, false
}

// normalizeText trims and case-folds free-text answers before comparison.
func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Accepts reports whether text matches any accepted answer, ignoring case and surrounding space.
func (p FreeTextPayload) Accepts(text string) bool {
	got := normalizeText(text)
	for _, want := range p.CorrectTexts {
		if got == normalizeText(want) {
			return true
		}
	}
	return false
}

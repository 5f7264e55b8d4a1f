package memory

import (
	"context"
	"sync"

	"quiz-attempt-service/internal/domain"
)

// StaticCatalog is a catalog backed by in-memory maps (useful for tests/demos).
// It serves as QuizLoader, app.QuestionRepository and app.LearnerRepository.
type StaticCatalog struct {
	mu        sync.RWMutex
	quizzes   map[string]domain.Quiz
	questions map[string]domain.Question
	learners  map[string]struct{}
}

func NewStaticCatalog() *StaticCatalog {
	return &StaticCatalog{
		quizzes:   make(map[string]domain.Quiz),
		questions: make(map[string]domain.Question),
		learners:  make(map[string]struct{}),
	}
}

// AddQuiz registers a quiz definition.
func (c *StaticCatalog) AddQuiz(quiz domain.Quiz) *StaticCatalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quizzes[quiz.ID] = quiz
	return c
}

// AddQuestion registers a catalog question.
func (c *StaticCatalog) AddQuestion(q domain.Question) *StaticCatalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.questions[q.ID] = q
	return c
}

// AddLearner registers learner profile ids.
func (c *StaticCatalog) AddLearner(ids ...string) *StaticCatalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		c.learners[id] = struct{}{}
	}
	return c
}

func (c *StaticCatalog) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if quiz, ok := c.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.QuizNotFound(quizID)
}

func (c *StaticCatalog) GetQuestion(_ context.Context, questionID string) (domain.Question, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if q, ok := c.questions[questionID]; ok {
		return q, nil
	}
	return domain.Question{}, domain.QuestionNotFound(questionID)
}

func (c *StaticCatalog) LearnerExists(_ context.Context, learnerID string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.learners[learnerID]
	return ok, nil
}

package memory

import (
	"context"
	"sort"
	"sync"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptStore.
// Transactions are serialised and roll back by restoring a snapshot.
type AttemptStore struct {
	mu    sync.Mutex
	state *attemptState
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{state: newAttemptState()}
}

func (s *AttemptStore) RunInTx(ctx context.Context, fn func(ctx context.Context, repo app.AttemptRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(ctx, s.state); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *AttemptStore) GetAttempt(ctx context.Context, id string) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.GetAttempt(ctx, id)
}

func (s *AttemptStore) FindActiveOrCreate(ctx context.Context, candidate domain.Attempt) (domain.Attempt, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.FindActiveOrCreate(ctx, candidate)
}

func (s *AttemptStore) UpdateAttempt(ctx context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UpdateAttempt(ctx, attempt)
}

func (s *AttemptStore) DeleteAttempt(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeleteAttempt(ctx, id)
}

func (s *AttemptStore) ListAttempts(ctx context.Context, filter domain.AttemptFilter) ([]domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListAttempts(ctx, filter)
}

func (s *AttemptStore) AggregateAttempts(ctx context.Context, filter domain.AttemptFilter) (domain.AttemptAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AggregateAttempts(ctx, filter)
}

func (s *AttemptStore) UpsertAnswer(ctx context.Context, answer domain.Answer) (domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UpsertAnswer(ctx, answer)
}

func (s *AttemptStore) ListAnswers(ctx context.Context, attemptID string) ([]domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ListAnswers(ctx, attemptID)
}

// AnswerCount returns the number of stored answer rows for an attempt.
func (s *AttemptStore) AnswerCount(attemptID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.answers[attemptID])
}

// attemptState holds the data; callers must hold AttemptStore.mu.
type attemptState struct {
	attempts map[string]domain.Attempt
	// answers is keyed by attempt id, then question id.
	answers map[string]map[string]domain.Answer
}

func newAttemptState() *attemptState {
	return &attemptState{
		attempts: make(map[string]domain.Attempt),
		answers:  make(map[string]map[string]domain.Answer),
	}
}

func (st *attemptState) clone() *attemptState {
	out := newAttemptState()
	for id, a := range st.attempts {
		out.attempts[id] = a
	}
	for id, byQuestion := range st.answers {
		m := make(map[string]domain.Answer, len(byQuestion))
		for q, a := range byQuestion {
			m[q] = a
		}
		out.answers[id] = m
	}
	return out
}

func (st *attemptState) GetAttempt(_ context.Context, id string) (domain.Attempt, error) {
	a, ok := st.attempts[id]
	if !ok {
		return domain.Attempt{}, domain.AttemptNotFound(id)
	}
	return copyAttempt(a), nil
}

func (st *attemptState) FindActiveOrCreate(_ context.Context, candidate domain.Attempt) (domain.Attempt, bool, error) {
	for _, a := range st.attempts {
		if a.QuizID == candidate.QuizID && a.LearnerID == candidate.LearnerID && a.Status == domain.StatusInProgress {
			return copyAttempt(a), false, nil
		}
	}
	st.attempts[candidate.ID] = copyAttempt(candidate)
	return copyAttempt(candidate), true, nil
}

func (st *attemptState) UpdateAttempt(_ context.Context, attempt domain.Attempt) error {
	if _, ok := st.attempts[attempt.ID]; !ok {
		return domain.AttemptNotFound(attempt.ID)
	}
	if attempt.Status == domain.StatusInProgress {
		for id, other := range st.attempts {
			if id != attempt.ID && other.Status == domain.StatusInProgress &&
				other.QuizID == attempt.QuizID && other.LearnerID == attempt.LearnerID {
				return domain.ErrActiveAttemptExists
			}
		}
	}
	st.attempts[attempt.ID] = copyAttempt(attempt)
	return nil
}

func (st *attemptState) DeleteAttempt(_ context.Context, id string) error {
	if _, ok := st.attempts[id]; !ok {
		return domain.AttemptNotFound(id)
	}
	delete(st.attempts, id)
	delete(st.answers, id)
	return nil
}

func (st *attemptState) ListAttempts(_ context.Context, filter domain.AttemptFilter) ([]domain.Attempt, error) {
	out := make([]domain.Attempt, 0)
	for _, a := range st.attempts {
		if matches(a, filter) {
			out = append(out, copyAttempt(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (st *attemptState) AggregateAttempts(_ context.Context, filter domain.AttemptFilter) (domain.AttemptAggregate, error) {
	var (
		agg                   domain.AttemptAggregate
		scoreSum, timeSum     float64
		scoreCount, timeCount int
	)
	for _, a := range st.attempts {
		if !matches(a, filter) {
			continue
		}
		agg.TotalAttempts++
		if a.Status != domain.StatusCompleted {
			continue
		}
		agg.CompletedAttempts++
		if a.Score != nil {
			scoreSum += *a.Score
			scoreCount++
		}
		if a.TimeSpent != nil {
			timeSum += float64(*a.TimeSpent)
			timeCount++
		}
	}
	if scoreCount > 0 {
		agg.AverageScore = scoreSum / float64(scoreCount)
	}
	if timeCount > 0 {
		agg.AverageTimeSpent = timeSum / float64(timeCount)
	}
	return agg, nil
}

func (st *attemptState) UpsertAnswer(_ context.Context, answer domain.Answer) (domain.Answer, error) {
	if _, ok := st.attempts[answer.AttemptID]; !ok {
		return domain.Answer{}, domain.AttemptNotFound(answer.AttemptID)
	}
	byQuestion, ok := st.answers[answer.AttemptID]
	if !ok {
		byQuestion = make(map[string]domain.Answer)
		st.answers[answer.AttemptID] = byQuestion
	}
	if existing, ok := byQuestion[answer.QuestionID]; ok {
		answer.ID = existing.ID
	}
	byQuestion[answer.QuestionID] = answer
	return answer, nil
}

func (st *attemptState) ListAnswers(_ context.Context, attemptID string) ([]domain.Answer, error) {
	byQuestion := st.answers[attemptID]
	out := make([]domain.Answer, 0, len(byQuestion))
	for _, a := range byQuestion {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AnsweredAt.Equal(out[j].AnsweredAt) {
			return out[i].AnsweredAt.Before(out[j].AnsweredAt)
		}
		return out[i].QuestionID < out[j].QuestionID
	})
	return out, nil
}

func matches(a domain.Attempt, f domain.AttemptFilter) bool {
	if f.QuizID != "" && a.QuizID != f.QuizID {
		return false
	}
	if f.LearnerID != "" && a.LearnerID != f.LearnerID {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}

// copyAttempt detaches the nullable fields so callers cannot mutate stored rows.
func copyAttempt(a domain.Attempt) domain.Attempt {
	a.CompletedAt = clonePtr(a.CompletedAt)
	a.TimeSpent = clonePtr(a.TimeSpent)
	a.Score = clonePtr(a.Score)
	a.TotalQuestions = clonePtr(a.TotalQuestions)
	a.CorrectAnswers = clonePtr(a.CorrectAnswers)
	a.TotalPoints = clonePtr(a.TotalPoints)
	a.MaxPoints = clonePtr(a.MaxPoints)
	return a
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

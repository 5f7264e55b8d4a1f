package app

import (
	"context"

	"quiz-attempt-service/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AttemptService owns the attempt lifecycle.
type AttemptService struct {
	*core
	scores *ScoreService
}

// Create starts an attempt for the learner, or returns the learner's attempt
// already in progress on this quiz. created is false in the latter case.
func (s *AttemptService) Create(ctx context.Context, quizID, learnerID string) (domain.Attempt, bool, error) {
	if _, err := s.requireQuiz(ctx, quizID); err != nil {
		return domain.Attempt{}, false, err
	}
	if err := s.requireLearner(ctx, learnerID); err != nil {
		return domain.Attempt{}, false, err
	}

	unlock, err := s.locker.Lock(ctx, "active:"+quizID+":"+learnerID)
	if err != nil {
		return domain.Attempt{}, false, err
	}
	defer unlock()

	now := s.nowUTC()
	candidate := domain.Attempt{
		ID:        uuid.NewString(),
		QuizID:    quizID,
		LearnerID: learnerID,
		Status:    domain.StatusInProgress,
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var (
		attempt domain.Attempt
		created bool
	)
	err = s.store.RunInTx(ctx, func(ctx context.Context, repo AttemptRepository) error {
		var err error
		attempt, created, err = repo.FindActiveOrCreate(ctx, candidate)
		return err
	})
	if err != nil {
		return domain.Attempt{}, false, err
	}

	s.attemptLog(attempt).WithField("created", created).Info("attempt started")
	return attempt, created, nil
}

// Get returns one attempt.
func (s *AttemptService) Get(ctx context.Context, id string) (domain.Attempt, error) {
	return s.store.GetAttempt(ctx, id)
}

// List returns attempts matching filter, most recently started first.
func (s *AttemptService) List(ctx context.Context, filter domain.AttemptFilter) ([]domain.Attempt, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.InvalidInput("unknown attempt status %q", filter.Status)
	}
	return s.store.ListAttempts(ctx, filter)
}

// Pause suspends an attempt in progress.
func (s *AttemptService) Pause(ctx context.Context, id string) (domain.Attempt, error) {
	return s.transition(ctx, id, domain.StatusPaused, "quiz attempt is not in progress and cannot be paused")
}

// Resume puts a paused attempt back in progress.
func (s *AttemptService) Resume(ctx context.Context, id string) (domain.Attempt, error) {
	return s.transition(ctx, id, domain.StatusInProgress, "quiz attempt is not paused and cannot be resumed")
}

// Abandon ends an attempt in progress without scoring it.
func (s *AttemptService) Abandon(ctx context.Context, id string) (domain.Attempt, error) {
	return s.transition(ctx, id, domain.StatusAbandoned, "quiz attempt is not in progress and cannot be abandoned")
}

func (s *AttemptService) transition(ctx context.Context, id string, next domain.AttemptStatus, refusal string) (domain.Attempt, error) {
	var attempt domain.Attempt
	err := s.withAttemptLock(ctx, id, func(ctx context.Context, repo AttemptRepository) error {
		var err error
		attempt, err = repo.GetAttempt(ctx, id)
		if err != nil {
			return err
		}
		if !attempt.Status.CanTransition(next) {
			return domain.InvalidState("%s", refusal)
		}
		attempt.Status = next
		attempt.UpdatedAt = s.nowUTC()
		return repo.UpdateAttempt(ctx, attempt)
	})
	if err != nil {
		return domain.Attempt{}, err
	}
	s.attemptLog(attempt).WithField("status", next).Info("attempt status changed")
	return attempt, nil
}

// Complete finishes an attempt in progress. Under CompletionServer the totals are
// recomputed from the stored answers and the caller's only serve as a logged hint;
// under CompletionClient the validated caller totals are persisted.
func (s *AttemptService) Complete(ctx context.Context, id string, totals domain.CompletionTotals) (domain.Attempt, error) {
	if err := validateStruct(totals); err != nil {
		return domain.Attempt{}, err
	}

	var attempt domain.Attempt
	err := s.withAttemptLock(ctx, id, func(ctx context.Context, repo AttemptRepository) error {
		var err error
		attempt, err = repo.GetAttempt(ctx, id)
		if err != nil {
			return err
		}
		if !attempt.Status.CanTransition(domain.StatusCompleted) {
			return domain.InvalidState("quiz attempt is not in progress and cannot be completed")
		}

		now := s.nowUTC()
		if s.policy == CompletionServer {
			summary, err := s.scores.summarize(ctx, repo, attempt)
			if err != nil {
				return err
			}
			if summary.Score != totals.Score || summary.TotalPoints != totals.TotalPoints {
				s.attemptLog(attempt).WithFields(logrus.Fields{
					"client_score":  totals.Score,
					"server_score":  summary.Score,
					"client_points": totals.TotalPoints,
					"server_points": summary.TotalPoints,
				}).Warn("client totals disagree with stored answers")
			}
			attempt.ApplyScore(summary)
			spent := elapsedSeconds(attempt.StartedAt, now)
			attempt.TimeSpent = &spent
		} else {
			attempt.ApplyScore(domain.ScoreSummary{
				TotalQuestions: totals.TotalQuestions,
				CorrectAnswers: totals.CorrectAnswers,
				TotalPoints:    totals.TotalPoints,
				MaxPoints:      totals.MaxPoints,
				Score:          totals.Score,
			})
			spent := totals.TimeSpent
			attempt.TimeSpent = &spent
		}
		attempt.Status = domain.StatusCompleted
		attempt.CompletedAt = &now
		attempt.UpdatedAt = now
		return repo.UpdateAttempt(ctx, attempt)
	})
	if err != nil {
		return domain.Attempt{}, err
	}
	s.attemptLog(attempt).WithField("policy", s.policy).Info("attempt completed")
	return attempt, nil
}

// Update applies an administrative correction. It never changes status.
func (s *AttemptService) Update(ctx context.Context, id string, patch domain.AttemptPatch) (domain.Attempt, error) {
	if err := validateStruct(patch); err != nil {
		return domain.Attempt{}, err
	}
	if patch.QuizID != nil {
		if _, err := s.requireQuiz(ctx, *patch.QuizID); err != nil {
			return domain.Attempt{}, err
		}
	}
	if patch.LearnerID != nil {
		if err := s.requireLearner(ctx, *patch.LearnerID); err != nil {
			return domain.Attempt{}, err
		}
	}

	var attempt domain.Attempt
	err := s.withAttemptLock(ctx, id, func(ctx context.Context, repo AttemptRepository) error {
		var err error
		attempt, err = repo.GetAttempt(ctx, id)
		if err != nil {
			return err
		}
		applyPatch(&attempt, patch)
		attempt.UpdatedAt = s.nowUTC()
		return repo.UpdateAttempt(ctx, attempt)
	})
	if err != nil {
		return domain.Attempt{}, err
	}
	s.attemptLog(attempt).Info("attempt updated")
	return attempt, nil
}

func applyPatch(a *domain.Attempt, p domain.AttemptPatch) {
	if p.QuizID != nil {
		a.QuizID = *p.QuizID
	}
	if p.LearnerID != nil {
		a.LearnerID = *p.LearnerID
	}
	if p.TimeSpent != nil {
		a.TimeSpent = p.TimeSpent
	}
	if p.Score != nil {
		a.Score = p.Score
	}
	if p.TotalQuestions != nil {
		a.TotalQuestions = p.TotalQuestions
	}
	if p.CorrectAnswers != nil {
		a.CorrectAnswers = p.CorrectAnswers
	}
	if p.TotalPoints != nil {
		a.TotalPoints = p.TotalPoints
	}
	if p.MaxPoints != nil {
		a.MaxPoints = p.MaxPoints
	}
}

// Remove deletes an attempt and its answers.
func (s *AttemptService) Remove(ctx context.Context, id string) error {
	err := s.withAttemptLock(ctx, id, func(ctx context.Context, repo AttemptRepository) error {
		if _, err := repo.GetAttempt(ctx, id); err != nil {
			return err
		}
		return repo.DeleteAttempt(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.WithField("attempt_id", id).Info("attempt removed")
	return nil
}

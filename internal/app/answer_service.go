package app

import (
	"context"

	"quiz-attempt-service/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AnswerService records and evaluates learner responses.
type AnswerService struct {
	*core
}

// SubmitAnswer evaluates a response and stores it, overwriting any earlier
// response to the same question in this attempt.
func (s *AnswerService) SubmitAnswer(ctx context.Context, attemptID string, sub domain.AnswerSubmission) (domain.Answer, error) {
	if err := validateStruct(sub); err != nil {
		return domain.Answer{}, err
	}

	var answer domain.Answer
	err := s.withAttemptLock(ctx, attemptID, func(ctx context.Context, repo AttemptRepository) error {
		attempt, err := s.progressableAttempt(ctx, repo, attemptID)
		if err != nil {
			return err
		}
		quiz, err := s.catalog.Quizzes.GetQuiz(ctx, attempt.QuizID)
		if err != nil {
			return err
		}
		answer, err = s.record(ctx, repo, attempt, quiz, sub)
		return err
	})
	if err != nil {
		return domain.Answer{}, err
	}
	return answer, nil
}

// BulkSubmitAnswers applies every submission in one transaction: either all
// answers are stored or none is. Results follow submission order.
func (s *AnswerService) BulkSubmitAnswers(ctx context.Context, attemptID string, subs []domain.AnswerSubmission) ([]domain.Answer, error) {
	if len(subs) == 0 {
		return nil, domain.ErrNoAnswers
	}
	for i := range subs {
		if err := validateStruct(subs[i]); err != nil {
			return nil, err
		}
	}

	answers := make([]domain.Answer, 0, len(subs))
	err := s.withAttemptLock(ctx, attemptID, func(ctx context.Context, repo AttemptRepository) error {
		attempt, err := s.progressableAttempt(ctx, repo, attemptID)
		if err != nil {
			return err
		}
		quiz, err := s.catalog.Quizzes.GetQuiz(ctx, attempt.QuizID)
		if err != nil {
			return err
		}
		for _, sub := range subs {
			answer, err := s.record(ctx, repo, attempt, quiz, sub)
			if err != nil {
				return err
			}
			answers = append(answers, answer)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"attempt_id": attemptID, "count": len(answers)}).Info("answers submitted")
	return answers, nil
}

// GetAnswers lists the answers of an attempt in the order they were (last) given.
func (s *AnswerService) GetAnswers(ctx context.Context, attemptID string) ([]domain.Answer, error) {
	if _, err := s.store.GetAttempt(ctx, attemptID); err != nil {
		return nil, err
	}
	return s.store.ListAnswers(ctx, attemptID)
}

func (s *AnswerService) progressableAttempt(ctx context.Context, repo AttemptRepository, attemptID string) (domain.Attempt, error) {
	attempt, err := repo.GetAttempt(ctx, attemptID)
	if err != nil {
		return domain.Attempt{}, err
	}
	if attempt.Status != domain.StatusInProgress {
		return domain.Attempt{}, domain.ErrAttemptNotInProgress
	}
	return attempt, nil
}

// record runs the per-answer checks against an attempt already known to be in progress.
func (s *AnswerService) record(ctx context.Context, repo AttemptRepository, attempt domain.Attempt, quiz domain.Quiz, sub domain.AnswerSubmission) (domain.Answer, error) {
	question, err := s.catalog.Questions.GetQuestion(ctx, sub.QuestionID)
	if err != nil {
		return domain.Answer{}, err
	}
	entry, ok := quiz.Question(question.ID)
	if !ok {
		return domain.Answer{}, domain.ErrQuestionNotInQuiz
	}
	if err := checkResponseShape(question, sub); err != nil {
		return domain.Answer{}, err
	}

	verdict := Evaluate(question, sub, entry.PointValue())
	answer := domain.Answer{
		ID:           uuid.NewString(),
		AttemptID:    attempt.ID,
		QuestionID:   question.ID,
		IsCorrect:    verdict.Correct,
		PointsEarned: verdict.Points,
		TimeSpent:    sub.TimeSpent,
		AnsweredAt:   s.nowUTC(),
	}
	switch {
	case question.Type.IsChoice():
		answer.SelectedOption = sub.SelectedOption
	case question.Type == domain.QuestionFillBlank:
		answer.TextAnswer = sub.TextAnswer
	default:
		answer.SelectedOption = sub.SelectedOption
		answer.TextAnswer = sub.TextAnswer
	}

	stored, err := repo.UpsertAnswer(ctx, answer)
	if err != nil {
		return domain.Answer{}, err
	}
	s.log.WithFields(logrus.Fields{
		"attempt_id":  attempt.ID,
		"question_id": question.ID,
		"correct":     verdict.Correct,
	}).Debug("answer recorded")
	return stored, nil
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quiz-attempt-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// CatalogLoader reads quizzes, questions and learner profiles from Postgres.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz := domain.Quiz{ID: quizID}
	err := l.pool.QueryRow(ctx, `SELECT title FROM quizzes WHERE id=$1`, quizID).Scan(&quiz.Title)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.QuizNotFound(quizID)
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}

	rows, err := l.pool.Query(ctx,
		`SELECT question_id, position, points FROM quiz_questions WHERE quiz_id=$1 ORDER BY position, question_id`, quizID)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz questions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var qq domain.QuizQuestion
		if err := rows.Scan(&qq.QuestionID, &qq.Position, &qq.Points); err != nil {
			return domain.Quiz{}, fmt.Errorf("scan quiz question: %w", err)
		}
		quiz.Questions = append(quiz.Questions, qq)
	}
	if err := rows.Err(); err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz questions: %w", err)
	}
	return quiz, nil
}

func (l *CatalogLoader) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	var (
		text, typ, explanation string
		raw                    []byte
	)
	err := l.pool.QueryRow(ctx,
		`SELECT question_text, question_type, COALESCE(explanation, ''), options FROM questions WHERE id=$1`, questionID).
		Scan(&text, &typ, &explanation, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.QuestionNotFound(questionID)
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}
	var options []domain.Option
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &options); err != nil {
			return domain.Question{}, fmt.Errorf("unmarshal question options: %w", err)
		}
	}
	return domain.NewQuestion(questionID, text, domain.QuestionType(typ), explanation, options), nil
}

func (l *CatalogLoader) LearnerExists(ctx context.Context, learnerID string) (bool, error) {
	var ok bool
	if err := l.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM user_profiles WHERE id=$1)`, learnerID).Scan(&ok); err != nil {
		return false, fmt.Errorf("check learner: %w", err)
	}
	return ok, nil
}

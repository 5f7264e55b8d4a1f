package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

type attemptRow struct {
	bun.BaseModel `bun:"table:attempts,alias:a"`

	ID             string     `bun:"id,pk"`
	QuizID         string     `bun:"quiz_id,notnull"`
	LearnerID      string     `bun:"learner_id,notnull"`
	Status         string     `bun:"status,notnull"`
	StartedAt      time.Time  `bun:"started_at,notnull"`
	CompletedAt    *time.Time `bun:"completed_at"`
	TimeSpent      *int       `bun:"time_spent"`
	Score          *float64   `bun:"score"`
	TotalQuestions *int       `bun:"total_questions"`
	CorrectAnswers *int       `bun:"correct_answers"`
	TotalPoints    *int       `bun:"total_points"`
	MaxPoints      *int       `bun:"max_points"`
	CreatedAt      time.Time  `bun:"created_at,notnull"`
	UpdatedAt      time.Time  `bun:"updated_at,notnull"`
}

type answerRow struct {
	bun.BaseModel `bun:"table:answers,alias:ans"`

	ID             string    `bun:"id,pk"`
	AttemptID      string    `bun:"attempt_id,notnull"`
	QuestionID     string    `bun:"question_id,notnull"`
	SelectedOption string    `bun:"selected_option,nullzero"`
	TextAnswer     string    `bun:"text_answer,nullzero"`
	IsCorrect      bool      `bun:"is_correct"`
	PointsEarned   int       `bun:"points_earned"`
	TimeSpent      int       `bun:"time_spent"`
	AnsweredAt     time.Time `bun:"answered_at,notnull"`
}

// AttemptStore persists attempts and answers with bun. Inside RunInTx,
// attempt reads take a row lock (SELECT ... FOR UPDATE).
type AttemptStore struct {
	queries
	db *bun.DB
}

func NewAttemptStore(db *bun.DB) *AttemptStore {
	return &AttemptStore{queries: queries{idb: db}, db: db}
}

func (s *AttemptStore) RunInTx(ctx context.Context, fn func(ctx context.Context, repo app.AttemptRepository) error) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &queries{idb: tx, forUpdate: true})
	})
}

type queries struct {
	idb       bun.IDB
	forUpdate bool
}

func (q *queries) GetAttempt(ctx context.Context, id string) (domain.Attempt, error) {
	row := new(attemptRow)
	sel := q.idb.NewSelect().Model(row).Where("?TableAlias.id = ?", id)
	if q.forUpdate {
		sel = sel.For("UPDATE")
	}
	if err := sel.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Attempt{}, domain.AttemptNotFound(id)
		}
		return domain.Attempt{}, fmt.Errorf("get attempt: %w", err)
	}
	return row.toDomain(), nil
}

func (q *queries) FindActiveOrCreate(ctx context.Context, candidate domain.Attempt) (domain.Attempt, bool, error) {
	res, err := q.idb.NewInsert().
		Model(attemptFromDomain(candidate)).
		On("CONFLICT (quiz_id, learner_id) WHERE status = 'IN_PROGRESS' DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return domain.Attempt{}, false, fmt.Errorf("insert attempt: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		return candidate, true, nil
	}

	existing := new(attemptRow)
	err = q.idb.NewSelect().Model(existing).
		Where("?TableAlias.quiz_id = ?", candidate.QuizID).
		Where("?TableAlias.learner_id = ?", candidate.LearnerID).
		Where("?TableAlias.status = ?", string(domain.StatusInProgress)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Attempt{}, false, fmt.Errorf("find active attempt: %w", err)
	}
	return existing.toDomain(), false, nil
}

func (q *queries) UpdateAttempt(ctx context.Context, attempt domain.Attempt) error {
	res, err := q.idb.NewUpdate().Model(attemptFromDomain(attempt)).WherePK().Exec(ctx)
	if isActiveAttemptConflict(err) {
		return domain.ErrActiveAttemptExists
	}
	if err != nil {
		return fmt.Errorf("update attempt: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.AttemptNotFound(attempt.ID)
	}
	return nil
}

func (q *queries) DeleteAttempt(ctx context.Context, id string) error {
	res, err := q.idb.NewDelete().Model((*attemptRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete attempt: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.AttemptNotFound(id)
	}
	return nil
}

func (q *queries) ListAttempts(ctx context.Context, filter domain.AttemptFilter) ([]domain.Attempt, error) {
	var rows []attemptRow
	sel := q.idb.NewSelect().Model(&rows).OrderExpr("?TableAlias.started_at DESC, ?TableAlias.id")
	sel = applyFilter(sel, filter)
	if err := sel.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	out := make([]domain.Attempt, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (q *queries) AggregateAttempts(ctx context.Context, filter domain.AttemptFilter) (domain.AttemptAggregate, error) {
	completed := string(domain.StatusCompleted)
	var agg domain.AttemptAggregate
	sel := q.idb.NewSelect().
		Model((*attemptRow)(nil)).
		ColumnExpr("count(*)").
		ColumnExpr("count(*) FILTER (WHERE ?TableAlias.status = ?)", completed).
		ColumnExpr("COALESCE(avg(?TableAlias.score) FILTER (WHERE ?TableAlias.status = ?), 0)::float8", completed).
		ColumnExpr("COALESCE(avg(?TableAlias.time_spent) FILTER (WHERE ?TableAlias.status = ?), 0)::float8", completed)
	sel = applyFilter(sel, domain.AttemptFilter{QuizID: filter.QuizID, LearnerID: filter.LearnerID})
	if err := sel.Scan(ctx, &agg.TotalAttempts, &agg.CompletedAttempts, &agg.AverageScore, &agg.AverageTimeSpent); err != nil {
		return domain.AttemptAggregate{}, fmt.Errorf("aggregate attempts: %w", err)
	}
	return agg, nil
}

func (q *queries) UpsertAnswer(ctx context.Context, answer domain.Answer) (domain.Answer, error) {
	row := answerFromDomain(answer)
	_, err := q.idb.NewInsert().
		Model(row).
		On("CONFLICT (attempt_id, question_id) DO UPDATE").
		Set("selected_option = EXCLUDED.selected_option").
		Set("text_answer = EXCLUDED.text_answer").
		Set("is_correct = EXCLUDED.is_correct").
		Set("points_earned = EXCLUDED.points_earned").
		Set("time_spent = EXCLUDED.time_spent").
		Set("answered_at = EXCLUDED.answered_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("upsert answer: %w", err)
	}
	return row.toDomain(), nil
}

func (q *queries) ListAnswers(ctx context.Context, attemptID string) ([]domain.Answer, error) {
	var rows []answerRow
	err := q.idb.NewSelect().Model(&rows).
		Where("?TableAlias.attempt_id = ?", attemptID).
		OrderExpr("?TableAlias.answered_at ASC, ?TableAlias.question_id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	out := make([]domain.Answer, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// isActiveAttemptConflict reports a violation of the one-in-progress-attempt index.
func isActiveAttemptConflict(err error) bool {
	var pgErr pgdriver.Error
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Field('C') == "23505" && pgErr.Field('n') == "attempts_active_uq"
}

func applyFilter(sel *bun.SelectQuery, f domain.AttemptFilter) *bun.SelectQuery {
	if f.QuizID != "" {
		sel = sel.Where("?TableAlias.quiz_id = ?", f.QuizID)
	}
	if f.LearnerID != "" {
		sel = sel.Where("?TableAlias.learner_id = ?", f.LearnerID)
	}
	if f.Status != "" {
		sel = sel.Where("?TableAlias.status = ?", string(f.Status))
	}
	return sel
}

func attemptFromDomain(a domain.Attempt) *attemptRow {
	return &attemptRow{
		ID:             a.ID,
		QuizID:         a.QuizID,
		LearnerID:      a.LearnerID,
		Status:         string(a.Status),
		StartedAt:      a.StartedAt,
		CompletedAt:    a.CompletedAt,
		TimeSpent:      a.TimeSpent,
		Score:          a.Score,
		TotalQuestions: a.TotalQuestions,
		CorrectAnswers: a.CorrectAnswers,
		TotalPoints:    a.TotalPoints,
		MaxPoints:      a.MaxPoints,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func (r *attemptRow) toDomain() domain.Attempt {
	return domain.Attempt{
		ID:             r.ID,
		QuizID:         r.QuizID,
		LearnerID:      r.LearnerID,
		Status:         domain.AttemptStatus(r.Status),
		StartedAt:      r.StartedAt.UTC(),
		CompletedAt:    utcPtr(r.CompletedAt),
		TimeSpent:      r.TimeSpent,
		Score:          r.Score,
		TotalQuestions: r.TotalQuestions,
		CorrectAnswers: r.CorrectAnswers,
		TotalPoints:    r.TotalPoints,
		MaxPoints:      r.MaxPoints,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

func answerFromDomain(a domain.Answer) *answerRow {
	return &answerRow{
		ID:             a.ID,
		AttemptID:      a.AttemptID,
		QuestionID:     a.QuestionID,
		SelectedOption: a.SelectedOption,
		TextAnswer:     a.TextAnswer,
		IsCorrect:      a.IsCorrect,
		PointsEarned:   a.PointsEarned,
		TimeSpent:      a.TimeSpent,
		AnsweredAt:     a.AnsweredAt,
	}
}

func (r *answerRow) toDomain() domain.Answer {
	return domain.Answer{
		ID:             r.ID,
		AttemptID:      r.AttemptID,
		QuestionID:     r.QuestionID,
		SelectedOption: r.SelectedOption,
		TextAnswer:     r.TextAnswer,
		IsCorrect:      r.IsCorrect,
		PointsEarned:   r.PointsEarned,
		TimeSpent:      r.TimeSpent,
		AnsweredAt:     r.AnsweredAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

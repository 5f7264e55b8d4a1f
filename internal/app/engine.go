package app

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"quiz-attempt-service/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// CompletionPolicy selects which totals an explicit completion persists.
type CompletionPolicy string

const (
	// CompletionClient persists the totals supplied by the caller.
	CompletionClient CompletionPolicy = "client"
	// CompletionServer recomputes totals from stored answers; caller totals are only logged.
	CompletionServer CompletionPolicy = "server"
)

// Option customises an Engine.
type Option func(*core)

// WithLocker replaces the in-process keyed lock.
func WithLocker(l Locker) Option { return func(c *core) { c.locker = l } }

// WithLogger sets the logger used by every service.
func WithLogger(l logrus.FieldLogger) Option { return func(c *core) { c.log = l } }

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option { return func(c *core) { c.now = now } }

// WithCompletionPolicy selects how Complete treats caller totals.
func WithCompletionPolicy(p CompletionPolicy) Option { return func(c *core) { c.policy = p } }

// Engine bundles the attempt use cases over one store and catalog.
type Engine struct {
	Attempts   *AttemptService
	Answers    *AnswerService
	Scores     *ScoreService
	Statistics *StatisticsService
}

// NewEngine wires the attempt state machine, answer evaluator, score aggregator and statistics reporter.
func NewEngine(store AttemptStore, catalog Catalog, opts ...Option) *Engine {
	c := &core{
		store:   store,
		catalog: catalog,
		locker:  newKeyedLocker(),
		log:     logrus.StandardLogger(),
		now:     time.Now,
		policy:  CompletionServer,
	}
	for _, opt := range opts {
		opt(c)
	}
	scores := &ScoreService{core: c}
	return &Engine{
		Attempts:   &AttemptService{core: c, scores: scores},
		Answers:    &AnswerService{core: c},
		Scores:     scores,
		Statistics: &StatisticsService{core: c},
	}
}

type core struct {
	store   AttemptStore
	catalog Catalog
	locker  Locker
	log     logrus.FieldLogger
	now     func() time.Time
	policy  CompletionPolicy
}

// withAttemptLock runs fn in a transaction while holding the attempt's advisory lock.
func (c *core) withAttemptLock(ctx context.Context, attemptID string, fn func(ctx context.Context, repo AttemptRepository) error) error {
	unlock, err := c.locker.Lock(ctx, "attempt:"+attemptID)
	if err != nil {
		return err
	}
	defer unlock()
	return c.store.RunInTx(ctx, fn)
}

func (c *core) requireQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if strings.TrimSpace(quizID) == "" {
		return domain.Quiz{}, domain.InvalidInput("quizId is required")
	}
	return c.catalog.Quizzes.GetQuiz(ctx, quizID)
}

func (c *core) requireLearner(ctx context.Context, learnerID string) error {
	if strings.TrimSpace(learnerID) == "" {
		return domain.InvalidInput("learnerId is required")
	}
	ok, err := c.catalog.Learners.LearnerExists(ctx, learnerID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.LearnerNotFound(learnerID)
	}
	return nil
}

func (c *core) attemptLog(a domain.Attempt) logrus.FieldLogger {
	return c.log.WithFields(logrus.Fields{
		"attempt_id": a.ID,
		"quiz_id":    a.QuizID,
		"learner_id": a.LearnerID,
	})
}

// nowUTC truncates to microseconds so timestamps survive a Postgres round trip unchanged.
func (c *core) nowUTC() time.Time {
	return c.now().UTC().Truncate(time.Microsecond)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateStruct maps validator failures to an InvalidInput error naming the first bad field.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Param() != "" {
			return domain.InvalidInput("%s failed %s=%s validation", fe.Field(), fe.Tag(), fe.Param())
		}
		return domain.InvalidInput("%s failed %s validation", fe.Field(), fe.Tag())
	}
	return err
}

package redis

import (
	"context"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"quiz-attempt-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches quiz definitions from a backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizRepository caches quiz definitions in Redis and falls back to a loader on cache miss.
// A definition is stored as:
//
//	HSET quiz:{quizID}:meta      title {title}
//	HSET quiz:{quizID}:points    {questionID} {points}
//	HSET quiz:{quizID}:positions {questionID} {position}
type QuizRepository struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.fromCache(ctx, quizID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := r.fromCache(ctx, quizID); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		r.store(ctx, quiz)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate removes a cached definition.
func (r *QuizRepository) Invalidate(ctx context.Context, quizID string) error {
	return r.client.Del(ctx, metaKey(quizID), pointsKey(quizID), positionsKey(quizID)).Err()
}

func (r *QuizRepository) fromCache(ctx context.Context, quizID string) (domain.Quiz, bool) {
	pipe := r.client.Pipeline()
	metaCmd := pipe.HGetAll(ctx, metaKey(quizID))
	pointsCmd := pipe.HGetAll(ctx, pointsKey(quizID))
	positionsCmd := pipe.HGetAll(ctx, positionsKey(quizID))
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Quiz{}, false
	}
	meta := metaCmd.Val()
	if len(meta) == 0 {
		return domain.Quiz{}, false
	}
	return buildQuizFromCache(quizID, meta, pointsCmd.Val(), positionsCmd.Val()), true
}

// store writes the definition; cache failures are ignored since the loader stays authoritative.
func (r *QuizRepository) store(ctx context.Context, quiz domain.Quiz) {
	ttl := r.ttlWithJitter()
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, metaKey(quiz.ID), pointsKey(quiz.ID), positionsKey(quiz.ID))
	pipe.HSet(ctx, metaKey(quiz.ID), "title", quiz.Title)
	for _, q := range quiz.Questions {
		pipe.HSet(ctx, pointsKey(quiz.ID), q.QuestionID, q.Points)
		pipe.HSet(ctx, positionsKey(quiz.ID), q.QuestionID, q.Position)
	}
	if ttl > 0 {
		pipe.Expire(ctx, metaKey(quiz.ID), ttl)
		pipe.Expire(ctx, pointsKey(quiz.ID), ttl)
		pipe.Expire(ctx, positionsKey(quiz.ID), ttl)
	}
	_, _ = pipe.Exec(ctx)
}

func metaKey(quizID string) string {
	return "quiz:" + quizID + ":meta"
}

func pointsKey(quizID string) string {
	return "quiz:" + quizID + ":points"
}

func positionsKey(quizID string) string {
	return "quiz:" + quizID + ":positions"
}

func buildQuizFromCache(quizID string, meta, pointsMap, positionsMap map[string]string) domain.Quiz {
	questions := make([]domain.QuizQuestion, 0, len(pointsMap))
	for questionID, pStr := range pointsMap {
		points, _ := strconv.Atoi(pStr)
		position, _ := strconv.Atoi(positionsMap[questionID])
		questions = append(questions, domain.QuizQuestion{
			QuestionID: questionID,
			Position:   position,
			Points:     points,
		})
	}
	sort.Slice(questions, func(i, j int) bool {
		if questions[i].Position != questions[j].Position {
			return questions[i].Position < questions[j].Position
		}
		return questions[i].QuestionID < questions[j].QuestionID
	})
	return domain.Quiz{ID: quizID, Title: meta["title"], Questions: questions}
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

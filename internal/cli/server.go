package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/config"
	"quiz-attempt-service/internal/infra/memory"
	"quiz-attempt-service/internal/infra/postgres"
	redisinfra "quiz-attempt-service/internal/infra/redis"
	transport "quiz-attempt-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the attempt service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// wiring is the engine plus the connections it holds open.
type wiring struct {
	engine  *app.Engine
	closers []func()
}

func (w *wiring) Close() {
	for i := len(w.closers) - 1; i >= 0; i-- {
		w.closers[i]()
	}
}

// buildEngine connects the configured backends. Without Postgres the engine runs on
// the in-memory store and a sample catalog; without Redis it caches and locks in-process.
func buildEngine(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*wiring, error) {
	w := &wiring{}

	var (
		store   app.AttemptStore
		loader  memory.QuizLoader
		catalog app.Catalog
	)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		w.closers = append(w.closers, pool.Close)
		db := openBunDB(cfg.Postgres.URL)
		w.closers = append(w.closers, func() { _ = db.Close() })

		pg := postgres.NewCatalogLoader(pool)
		store = postgres.NewAttemptStore(db)
		loader = pg
		catalog = app.Catalog{Questions: pg, Learners: pg}
	} else {
		log.Warn("postgres not configured; using in-memory attempts and the sample catalog")
		sample := sampleCatalog()
		store = memory.NewAttemptStore()
		loader = sample
		catalog = app.Catalog{Questions: sample, Learners: sample}
	}

	policy := app.CompletionServer
	if cfg.Attempts.CompletionPolicy != "" {
		policy = app.CompletionPolicy(cfg.Attempts.CompletionPolicy)
	}
	opts := []app.Option{app.WithLogger(log), app.WithCompletionPolicy(policy)}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		w.closers = append(w.closers, func() { _ = client.Close() })
		catalog.Quizzes = redisinfra.NewQuizRepository(client, loader, config.TTLDuration(cfg.Redis.TTL, quizTTL))
		opts = append(opts, app.WithLocker(redisinfra.NewLocker(client, config.TTLDuration(cfg.Attempts.LockTTL, 5*time.Second))))
	} else {
		catalog.Quizzes = memory.NewQuizRepository(loader, quizTTL)
	}

	w.engine = app.NewEngine(store, catalog, opts...)
	return w, nil
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := config.NewLogger(cfg)

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	wired, err := buildEngine(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer wired.Close()

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(wired.engine, log),
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", finalPort).Info("starting quiz attempt service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

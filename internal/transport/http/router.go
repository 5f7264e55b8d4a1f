package http

import (
	"net/http"
	"time"

	"quiz-attempt-service/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// NewRouter mounts the REST routes, the websocket stream and the health check.
func NewRouter(engine *app.Engine, log logrus.FieldLogger) http.Handler {
	h := NewHandler(engine, log)
	ws := NewWSHandler(engine, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/ws", ws.ServeWS)

	r.Route("/attempts", func(r chi.Router) {
		r.Post("/", h.createAttempt)
		r.Get("/", h.listAttempts)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getAttempt)
			r.Patch("/", h.updateAttempt)
			r.Delete("/", h.removeAttempt)
			r.Post("/pause", h.pauseAttempt)
			r.Post("/resume", h.resumeAttempt)
			r.Post("/abandon", h.abandonAttempt)
			r.Post("/complete", h.completeAttempt)
			r.Post("/auto-complete", h.autoComplete)
			r.Get("/score", h.score)
			r.Post("/answers", h.submitAnswer)
			r.Post("/answers/bulk", h.bulkSubmitAnswers)
			r.Get("/answers", h.listAnswers)
		})
	})
	r.Get("/statistics", h.statistics)
	return r
}

func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"duration":   time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
			}).Debug("request")
		})
	}
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Handler exposes the attempt engine over JSON HTTP.
type Handler struct {
	engine *app.Engine
	log    logrus.FieldLogger
}

func NewHandler(engine *app.Engine, log logrus.FieldLogger) *Handler {
	return &Handler{engine: engine, log: log}
}

type createAttemptRequest struct {
	QuizID    string `json:"quizId"`
	LearnerID string `json:"learnerId"`
}

type bulkAnswersRequest struct {
	Answers []domain.AnswerSubmission `json:"answers"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func (h *Handler) createAttempt(w http.ResponseWriter, r *http.Request) {
	var req createAttemptRequest
	if !h.decode(w, r, &req) {
		return
	}
	attempt, created, err := h.engine.Attempts.Create(r.Context(), req.QuizID, req.LearnerID)
	if err != nil {
		h.fail(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, attempt)
}

func (h *Handler) listAttempts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	attempts, err := h.engine.Attempts.List(r.Context(), domain.AttemptFilter{
		QuizID:    strings.TrimSpace(q.Get("quizId")),
		LearnerID: strings.TrimSpace(q.Get("learnerId")),
		Status:    domain.AttemptStatus(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (h *Handler) getAttempt(w http.ResponseWriter, r *http.Request) {
	attempt, err := h.engine.Attempts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func (h *Handler) updateAttempt(w http.ResponseWriter, r *http.Request) {
	var patch domain.AttemptPatch
	if !h.decode(w, r, &patch) {
		return
	}
	attempt, err := h.engine.Attempts.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func (h *Handler) removeAttempt(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Attempts.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pauseAttempt(w http.ResponseWriter, r *http.Request) {
	h.respondAttempt(w, r, h.engine.Attempts.Pause)
}

func (h *Handler) resumeAttempt(w http.ResponseWriter, r *http.Request) {
	h.respondAttempt(w, r, h.engine.Attempts.Resume)
}

func (h *Handler) abandonAttempt(w http.ResponseWriter, r *http.Request) {
	h.respondAttempt(w, r, h.engine.Attempts.Abandon)
}

func (h *Handler) autoComplete(w http.ResponseWriter, r *http.Request) {
	h.respondAttempt(w, r, h.engine.Scores.AutoComplete)
}

func (h *Handler) completeAttempt(w http.ResponseWriter, r *http.Request) {
	var totals domain.CompletionTotals
	if !h.decode(w, r, &totals) {
		return
	}
	attempt, err := h.engine.Attempts.Complete(r.Context(), chi.URLParam(r, "id"), totals)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func (h *Handler) score(w http.ResponseWriter, r *http.Request) {
	summary, err := h.engine.Scores.CalculateScore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var sub domain.AnswerSubmission
	if !h.decode(w, r, &sub) {
		return
	}
	answer, err := h.engine.Answers.SubmitAnswer(r.Context(), chi.URLParam(r, "id"), sub)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (h *Handler) bulkSubmitAnswers(w http.ResponseWriter, r *http.Request) {
	var req bulkAnswersRequest
	if !h.decode(w, r, &req) {
		return
	}
	answers, err := h.engine.Answers.BulkSubmitAnswers(r.Context(), chi.URLParam(r, "id"), req.Answers)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answers)
}

func (h *Handler) listAnswers(w http.ResponseWriter, r *http.Request) {
	answers, err := h.engine.Answers.GetAnswers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answers)
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stats, err := h.engine.Statistics.Statistics(r.Context(), strings.TrimSpace(q.Get("quizId")), strings.TrimSpace(q.Get("learnerId")))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) respondAttempt(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string) (domain.Attempt, error)) {
	attempt, err := op(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// fail maps domain error kinds onto status codes; anything else is an internal failure.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.WithError(err).Error("request failed")
		msg = "internal error"
	}
	writeJSON(w, status, errorPayload{Message: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

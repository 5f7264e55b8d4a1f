package http

import (
	"bytes"
	"encoding/json"
	"net/http"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WSHandler streams answers for a single attempt over a websocket.
type WSHandler struct {
	engine   *app.Engine
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
}

func NewWSHandler(engine *app.Engine, log logrus.FieldLogger) *WSHandler {
	return &WSHandler{
		engine: engine,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerResult struct {
	QuestionID   string `json:"questionId"`
	Correct      bool   `json:"correct"`
	PointsEarned int    `json:"pointsEarned"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ServeWS upgrades the request and feeds inbound messages into the attempt use cases.
// A "complete" message without totals auto-completes from the stored answers.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	attemptID := r.URL.Query().Get("attemptId")
	if attemptID == "" {
		http.Error(w, "missing attemptId", http.StatusBadRequest)
		return
	}
	if _, err := h.engine.Attempts.Get(r.Context(), attemptID); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	log := h.log.WithField("attempt_id", attemptID)
	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})

	// Only this goroutine writes to conn.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write failed")
				_ = conn.Close()
				for range send {
				}
				return
			}
		}
	}()

	ctx := r.Context()
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var sub domain.AnswerSubmission
			if err := json.Unmarshal(inbound.Payload, &sub); err != nil {
				send <- errorMessage("invalid answer payload")
				continue
			}
			answer, err := h.engine.Answers.SubmitAnswer(ctx, attemptID, sub)
			if err != nil {
				send <- errorMessage(err.Error())
				continue
			}
			send <- outboundMessage{Type: "answerResult", Payload: answerResult{
				QuestionID:   answer.QuestionID,
				Correct:      answer.IsCorrect,
				PointsEarned: answer.PointsEarned,
			}}
		case "score":
			summary, err := h.engine.Scores.CalculateScore(ctx, attemptID)
			if err != nil {
				send <- errorMessage(err.Error())
				continue
			}
			send <- outboundMessage{Type: "score", Payload: summary}
		case "complete":
			attempt, err := h.complete(r, attemptID, inbound.Payload)
			if err != nil {
				send <- errorMessage(err.Error())
				continue
			}
			send <- outboundMessage{Type: "completed", Payload: attempt}
		default:
			send <- errorMessage("unsupported message type")
		}
	}

	close(send)
	<-writerDone
}

func (h *WSHandler) complete(r *http.Request, attemptID string, raw json.RawMessage) (domain.Attempt, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return h.engine.Scores.AutoComplete(r.Context(), attemptID)
	}
	var totals domain.CompletionTotals
	if err := json.Unmarshal(trimmed, &totals); err != nil {
		return domain.Attempt{}, domain.InvalidInput("invalid complete payload")
	}
	return h.engine.Attempts.Complete(r.Context(), attemptID, totals)
}

func errorMessage(msg string) outboundMessage {
	return outboundMessage{Type: "error", Payload: errorPayload{Message: msg}}
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"mla-quiz-service/internal/domain"
	"mla-quiz-service/internal/quiz"
)

// WSHandler drives one quiz attempt per websocket connection. The client
// sends operation messages (start, select, submit, navigation, finish); the
// handler answers with state payloads and forwards session events.
type WSHandler struct {
	quizzes      quiz.QuizRepository
	store        quiz.SnapshotStore
	log          zerolog.Logger
	shuffleOrder bool
	upgrader     websocket.Upgrader

	// newShuffler is swappable in tests for deterministic permutations.
	newShuffler func() *quiz.ShuffleEngine
}

func NewWSHandler(quizzes quiz.QuizRepository, store quiz.SnapshotStore, log zerolog.Logger, shuffleOrder bool) *WSHandler {
	h := &WSHandler{
		quizzes:      quizzes,
		store:        store,
		log:          log.With().Str("component", "ws").Logger(),
		shuffleOrder: shuffleOrder,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	h.newShuffler = func() *quiz.ShuffleEngine {
		return quiz.NewShuffleEngine(rand.New(rand.NewSource(time.Now().UnixNano())), log)
	}
	return h
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type optionPayload struct {
	OptionIndex int `json:"optionIndex"`
}

type gotoPayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// statePayload is the full view of the attempt at the cursor.
type statePayload struct {
	State    string                   `json:"state"`
	Cursor   int                      `json:"cursor"`
	Total    int                      `json:"total"`
	Question *domain.ShuffledQuestion `json:"question,omitempty"`
	Answer   *domain.AnswerRecord     `json:"answer,omitempty"`
	Stats    quiz.Stats               `json:"stats"`
}

// ServeWS upgrades the request and runs the attempt loop. The quiz name
// comes from the "quiz" query parameter.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizName := r.URL.Query().Get("quiz")
	if quizName == "" {
		http.Error(w, "missing quiz", http.StatusBadRequest)
		return
	}

	loaded, err := h.quizzes.GetQuiz(r.Context(), quizName)
	if err != nil {
		if errors.Is(err, domain.ErrQuizNotFound) {
			http.Error(w, "quiz not found", http.StatusNotFound)
			return
		}
		http.Error(w, "quiz load failed", http.StatusBadGateway)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	session := quiz.NewSession(h.newShuffler(), h.store, h.log)
	session.SetShuffleOrder(h.shuffleOrder)
	if err := session.Load(quizName, loaded.Questions); err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: errorMessage(err)}})
		return
	}

	events, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug().Err(err).Msg("ws write error")
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "event", Payload: ev}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	// Tell the client whether a saved attempt can be resumed.
	if _, err := h.store.LoadSnapshot(r.Context(), quizName); err == nil {
		send <- outboundMessage[any]{Type: "resumeAvailable", Payload: map[string]string{"quiz": quizName}}
	}
	send <- outboundMessage[any]{Type: "state", Payload: stateOf(session)}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.handleMessage(r.Context(), session, inbound, send)
	}

	// Best-effort save when the client goes away mid-attempt.
	if session.State() == quiz.InProgress {
		if err := session.SaveSnapshot(context.Background()); err != nil && !errors.Is(err, domain.ErrQuotaExceeded) {
			h.log.Warn().Err(err).Str("quiz", quizName).Msg("final snapshot save failed")
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

func (h *WSHandler) handleMessage(ctx context.Context, session *quiz.Session, inbound inboundMessage, send chan<- outboundMessage[any]) {
	fail := func(err error) {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: errorMessage(err)}}
	}
	state := func() {
		send <- outboundMessage[any]{Type: "state", Payload: stateOf(session)}
	}

	switch inbound.Type {
	case "start":
		if err := session.Start(); err != nil {
			fail(err)
			return
		}
		state()
	case "resume":
		if err := session.ResumeSaved(ctx); err != nil {
			fail(err)
			return
		}
		state()
	case "select":
		var p optionPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			fail(domain.ErrInvalidState)
			return
		}
		if err := session.SelectOption(p.OptionIndex); err != nil {
			fail(err)
			return
		}
		state()
	case "submit":
		if err := session.SubmitCurrentAnswer(ctx); err != nil {
			fail(err)
			return
		}
		state()
	case "ruleOut":
		var p optionPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			fail(domain.ErrInvalidState)
			return
		}
		if err := session.ToggleRuledOut(p.OptionIndex); err != nil {
			fail(err)
			return
		}
		state()
	case "flag":
		if err := session.ToggleFlag(); err != nil {
			fail(err)
			return
		}
		state()
	case "next":
		if err := session.GoNext(ctx); err != nil {
			fail(err)
			return
		}
		state()
	case "prev":
		if err := session.GoPrevious(); err != nil {
			fail(err)
			return
		}
		state()
	case "goto":
		var p gotoPayload
		if err := json.Unmarshal(inbound.Payload, &p); err != nil {
			fail(domain.ErrInvalidState)
			return
		}
		if err := session.GoTo(p.Index); err != nil {
			fail(err)
			return
		}
		state()
	case "finish":
		report, err := session.Finish(ctx)
		if err != nil {
			fail(err)
			return
		}
		send <- outboundMessage[any]{Type: "report", Payload: report}
	case "retry":
		if err := session.Retry(); err != nil {
			fail(err)
			return
		}
		state()
	case "save":
		if err := session.SaveSnapshot(ctx); err != nil {
			fail(err)
			return
		}
		send <- outboundMessage[any]{Type: "saved", Payload: map[string]string{"quiz": session.QuizName()}}
	case "report":
		report, err := session.Report()
		if err != nil {
			fail(err)
			return
		}
		send <- outboundMessage[any]{Type: "report", Payload: report}
	case "stats":
		send <- outboundMessage[any]{Type: "stats", Payload: session.Stats()}
	default:
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
	}
}

func stateOf(session *quiz.Session) statePayload {
	payload := statePayload{
		State:  session.State().String(),
		Cursor: session.Cursor(),
		Total:  len(session.Questions()),
		Stats:  session.Stats(),
	}
	if current, ok := session.Current(); ok {
		payload.Question = &current
		if rec, found := session.Answers()[current.ID]; found {
			payload.Answer = &rec
		}
	}
	return payload
}

// errorMessage maps domain errors to learner-friendly text; anything else
// stays generic so internals never leak to the client.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyQuiz):
		return "this quiz has no questions"
	case errors.Is(err, domain.ErrInvalidState):
		return "that action is not available right now"
	case errors.Is(err, domain.ErrCorruptSnapshot):
		return "saved progress could not be restored and was discarded"
	case errors.Is(err, domain.ErrQuotaExceeded):
		return "progress is being kept in memory only and may not survive a reload"
	case errors.Is(err, domain.ErrSnapshotNotFound):
		return "no saved progress for this quiz"
	case errors.Is(err, domain.ErrQuizNotFound):
		return "quiz not found"
	default:
		return "something went wrong, please try again"
	}
}

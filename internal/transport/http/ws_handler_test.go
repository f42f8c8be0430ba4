package http

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"mla-quiz-service/internal/domain"
	"mla-quiz-service/internal/infra/memory"
	"mla-quiz-service/internal/quiz"
)

func testQuiz() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"mla-1": {
			Name: "mla-1",
			Questions: []domain.Question{
				{ID: "q1", Prompt: "First?", Options: []string{"A) yes", "B) no"}, CorrectIndex: 0},
				{ID: "q2", Prompt: "Second?", Options: []string{"A) left", "B) right", "C) up"}, CorrectIndex: 2},
			},
		},
	}
}

func newWSTestServer(t *testing.T, store quiz.SnapshotStore) (*httptest.Server, *memory.Catalog) {
	t.Helper()
	catalog := memory.NewCatalog(testQuiz())
	repo := memory.NewQuizRepository(catalog, time.Minute)

	handler := NewWSHandler(repo, store, zerolog.Nop(), false)
	handler.newShuffler = func() *quiz.ShuffleEngine {
		return quiz.NewShuffleEngine(rand.New(rand.NewSource(1)), zerolog.Nop())
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, catalog
}

func dialWS(t *testing.T, server *httptest.Server, quizName string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?quiz=" + quizName
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil skips unrelated messages (events interleave with replies) until
// one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, wanted string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Type != wanted {
			continue
		}
		var payload map[string]any
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			t.Fatalf("decode %s payload: %v", wanted, err)
		}
		return payload
	}
	t.Fatalf("no %s message arrived", wanted)
	return nil
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	msg := map[string]any{"type": msgType}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

func TestWebSocketAttemptFlow(t *testing.T) {
	server, _ := newWSTestServer(t, memory.NewSnapshotStore())
	conn := dialWS(t, server, "mla-1")

	state := readUntil(t, conn, "state")
	if state["state"] != "loaded" {
		t.Fatalf("expected initial loaded state, got %v", state["state"])
	}

	send(t, conn, "start", nil)
	state = readUntil(t, conn, "state")
	if state["state"] != "inProgress" {
		t.Fatalf("expected inProgress, got %v", state["state"])
	}
	question, ok := state["question"].(map[string]any)
	if !ok {
		t.Fatalf("expected a current question, got %v", state["question"])
	}
	correct := int(question["correctIndex"].(float64))

	send(t, conn, "select", map[string]any{"optionIndex": correct})
	state = readUntil(t, conn, "state")
	answer := state["answer"].(map[string]any)
	if int(answer["selected"].(float64)) != correct {
		t.Fatalf("selection not reflected: %v", answer)
	}

	send(t, conn, "submit", nil)
	state = readUntil(t, conn, "state")
	answer = state["answer"].(map[string]any)
	if answer["submitted"] != true {
		t.Fatalf("expected submitted answer, got %v", answer)
	}

	send(t, conn, "finish", nil)
	report := readUntil(t, conn, "report")
	if int(report["correct"].(float64)) != 1 || int(report["answered"].(float64)) != 1 {
		t.Fatalf("unexpected report: %v", report)
	}
	if int(report["total"].(float64)) != 2 {
		t.Fatalf("expected total 2, got %v", report["total"])
	}
}

func TestWebSocketInvalidAction(t *testing.T) {
	server, _ := newWSTestServer(t, memory.NewSnapshotStore())
	conn := dialWS(t, server, "mla-1")
	readUntil(t, conn, "state")

	// Submitting before start is invalid; the connection must survive.
	send(t, conn, "submit", nil)
	errPayload := readUntil(t, conn, "error")
	if errPayload["message"] == "" {
		t.Fatalf("expected an error message")
	}

	send(t, conn, "start", nil)
	state := readUntil(t, conn, "state")
	if state["state"] != "inProgress" {
		t.Fatalf("connection unusable after error: %v", state["state"])
	}
}

func TestWebSocketUnknownQuiz(t *testing.T) {
	server, _ := newWSTestServer(t, memory.NewSnapshotStore())

	u := "ws" + server.URL[len("http"):] + "/ws?quiz=missing"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail for unknown quiz")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %+v", resp)
	}
}

func TestWebSocketResume(t *testing.T) {
	store := memory.NewSnapshotStore()
	server, _ := newWSTestServer(t, store)

	// Drive a first attempt partway and disconnect; the handler saves a
	// snapshot on the way out.
	conn := dialWS(t, server, "mla-1")
	readUntil(t, conn, "state")
	send(t, conn, "start", nil)
	state := readUntil(t, conn, "state")
	question := state["question"].(map[string]any)
	correct := int(question["correctIndex"].(float64))
	send(t, conn, "select", map[string]any{"optionIndex": correct})
	readUntil(t, conn, "state")
	send(t, conn, "submit", nil)
	readUntil(t, conn, "state")
	conn.Close()

	waitForSnapshot(t, store, "mla-1")

	// A new connection is offered the resume and picks it up.
	conn2 := dialWS(t, server, "mla-1")
	readUntil(t, conn2, "resumeAvailable")
	readUntil(t, conn2, "state")

	send(t, conn2, "resume", nil)
	state = readUntil(t, conn2, "state")
	if state["state"] != "inProgress" {
		t.Fatalf("expected resumed attempt in progress, got %v", state["state"])
	}
	answer, ok := state["answer"].(map[string]any)
	if !ok || answer["submitted"] != true {
		t.Fatalf("expected restored submitted answer, got %v", state["answer"])
	}
}

func waitForSnapshot(t *testing.T, store *memory.SnapshotStore, quizName string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := store.LoadSnapshot(context.Background(), quizName); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("snapshot was not saved on disconnect")
}

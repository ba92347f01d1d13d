package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soaringjerry/Tally/internal/models"
)

type feedStore struct {
	survey    *models.Survey
	responses []*models.Response
}

func (s *feedStore) GetSurvey(_ context.Context, id string) (*models.Survey, error) {
	if s.survey != nil && s.survey.ID == id {
		return s.survey, nil
	}
	return nil, nil
}

func (s *feedStore) ListResponses(context.Context, string) ([]*models.Response, error) {
	return s.responses, nil
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestLiveFeedPushesSnapshotAndUpdates(t *testing.T) {
	store := &feedStore{survey: &models.Survey{ID: "s1", Questions: []models.Question{
		{ID: "q1", Text: "Color", Type: models.TypeSingleChoice, Options: []string{"Red", "Blue"}},
	}}}
	hub := NewHub()
	feed := NewLiveFeed(hub, store)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := feed.Serve(r.Context(), w, r, "s1"); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
		}
	}))
	defer srv.Close()

	conn := dial(t, srv)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type string        `json:"type"`
		Data ResultsUpdate `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if msg.Type != TypeSnapshot || msg.Data.TotalResponses != 0 {
		t.Fatalf("snapshot = %+v", msg)
	}

	r := &models.Response{ID: "r1", SurveyID: "s1", Answers: []models.Answer{{QuestionID: "q1", Value: models.Text("Blue")}}}
	store.responses = []*models.Response{r}
	if hub.Subscribers("s1") != 1 {
		t.Fatalf("subscribers = %d", hub.Subscribers("s1"))
	}
	feed.ResponseSaved(r)
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if msg.Type != TypeResponse || msg.Data.TotalResponses != 1 {
		t.Fatalf("update = %+v", msg)
	}
}

func TestHubBroadcastIsScopedToSurvey(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, r.URL.Query().Get("s"), &WSMessage{Type: "hello"})
	}))
	defer srv.Close()

	a := dialQuery(t, srv, "a")
	b := dialQuery(t, srv, "b")
	hub.Broadcast("a", WSMessage{Type: "ping"})
	_ = b.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_ = a.SetReadDeadline(time.Now().Add(2 * time.Second))
	var m WSMessage
	if err := a.ReadJSON(&m); err != nil || m.Type != "ping" {
		t.Fatalf("a got %+v, %v", m, err)
	}
	if err := b.ReadJSON(&m); err == nil {
		t.Fatalf("b received a message for another survey: %+v", m)
	}
	hub.CloseSurvey("a")
	if hub.Subscribers("a") != 0 {
		t.Fatalf("subscribers left after close")
	}
}

func TestBlockedWriterDoesNotStallHub(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, r.URL.Query().Get("s"), &WSMessage{Type: "hello"})
	}))
	defer srv.Close()

	a := dialQuery(t, srv, "a")
	b := dialQuery(t, srv, "b")
	clients := hub.clients("a")
	if len(clients) != 1 {
		t.Fatalf("clients(a) = %d, want 1", len(clients))
	}
	// hold a's writer as a stuck network write would
	clients[0].mu.Lock()
	stuck := make(chan struct{})
	go func() {
		hub.Broadcast("a", WSMessage{Type: "ping"})
		close(stuck)
	}()

	done := make(chan struct{})
	go func() {
		_ = hub.Subscribers("a")
		hub.Broadcast("b", WSMessage{Type: "ping"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("hub blocked behind another survey's write")
	}
	var m WSMessage
	if err := b.ReadJSON(&m); err != nil || m.Type != "ping" {
		t.Fatalf("b got %+v, %v", m, err)
	}

	clients[0].mu.Unlock()
	select {
	case <-stuck:
	case <-time.After(2 * time.Second):
		t.Fatalf("broadcast to a never finished")
	}
	if err := a.ReadJSON(&m); err != nil || m.Type != "ping" {
		t.Fatalf("a got %+v, %v", m, err)
	}
}

func TestBroadcastDropsClosedConnection(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, r.URL.Query().Get("s"), &WSMessage{Type: "hello"})
	}))
	defer srv.Close()

	live := dialQuery(t, srv, "a")
	gone := dialQuery(t, srv, "a")
	gone.Close()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers("a") != 1 && time.Now().Before(deadline) {
		hub.Broadcast("a", WSMessage{Type: "ping"})
		time.Sleep(10 * time.Millisecond)
	}
	if n := hub.Subscribers("a"); n != 1 {
		t.Fatalf("subscribers = %d, want 1", n)
	}
	var m WSMessage
	if err := live.ReadJSON(&m); err != nil || m.Type != "ping" {
		t.Fatalf("live got %+v, %v", m, err)
	}
}

func dialQuery(t *testing.T, srv *httptest.Server, survey string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?s=" + survey
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var hello WSMessage
	if err := conn.ReadJSON(&hello); err != nil || hello.Type != "hello" {
		t.Fatalf("hello = %+v, %v", hello, err)
	}
	return conn
}

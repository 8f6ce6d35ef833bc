package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/poisonednumber/Scanner-map-sub004/internal/models"
)

type recordingHandler struct {
	mu       sync.Mutex
	newCalls []string
	feed     []string
}

func (h *recordingHandler) HandleNewCall(inc models.Incident) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.newCalls = append(h.newCalls, inc.ID)
}

func (h *recordingHandler) HandleLiveFeed(inc models.Incident) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.feed = append(h.feed, inc.ID)
}

func (h *recordingHandler) snapshot() ([]string, []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.newCalls...), append([]string(nil), h.feed...)
}

func TestStreamDispatchesEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		frames := []string{
			`{"type":"newCall","call":{"id":"c1","talkgroup_id":"tg-1","latitude":40,"longitude":-75,"timestamp":"2025-06-01T10:00:00Z"}}`,
			`{"type":"liveFeedUpdate","call":{"id":"f1","talkgroup_id":"tg-2","latitude":40,"longitude":-75,"timestamp":"2025-06-01T10:00:01Z"}}`,
			`not json`,
			`{"type":"somethingElse","call":{}}`,
			`{"type":"newCall","call":{"id":"c2","talkgroup_id":"tg-1","latitude":40,"longitude":-75,"timestamp":"2025-06-01T10:00:02Z"}}`,
		}
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// Hold the connection until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	handler := &recordingHandler{}
	stream := &Stream{
		URL:     "ws" + strings.TrimPrefix(srv.URL, "http"),
		Handler: handler,
		Log:     zerolog.Nop(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go stream.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		calls, feed := handler.snapshot()
		if len(calls) == 2 && len(feed) == 1 {
			if calls[0] != "c1" || calls[1] != "c2" || feed[0] != "f1" {
				t.Fatalf("wrong dispatch: calls=%v feed=%v", calls, feed)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	calls, feed := handler.snapshot()
	t.Fatalf("timed out: calls=%v feed=%v", calls, feed)
}

func TestStreamReconnects(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var mu sync.Mutex
	dials := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		dials++
		n := dials
		mu.Unlock()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if n == 1 {
			// Drop the first connection immediately to force a retry.
			conn.Close()
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(
			`{"type":"newCall","call":{"id":"after-retry","talkgroup_id":"tg-1","latitude":40,"longitude":-75,"timestamp":"2025-06-01T10:00:00Z"}}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	handler := &recordingHandler{}
	stream := &Stream{
		URL:     "ws" + strings.TrimPrefix(srv.URL, "http"),
		Handler: handler,
		Log:     zerolog.Nop(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go stream.Run(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		calls, _ := handler.snapshot()
		if len(calls) == 1 && calls[0] == "after-retry" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("never received an event after reconnect")
}

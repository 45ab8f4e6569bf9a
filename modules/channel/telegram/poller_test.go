package telegram

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flemzord/tgrelay/pkg/message"
)

func TestPoller_ReceivesUpdatesAndAdvancesOffset(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var offsets []int
	polledAgain := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req GetUpdatesRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		offsets = append(offsets, req.Offset)
		first := len(offsets) == 1
		if len(offsets) == 2 {
			close(polledAgain)
		}
		mu.Unlock()

		if first {
			writeJSON(t, w, APIResponse[[]Update]{OK: true, Result: []Update{
				{UpdateID: 10, Message: &Message{MessageID: 1, Chat: &Chat{ID: 200, Type: "private"}, Text: "one"}},
				{UpdateID: 11, Message: &Message{MessageID: 2, Chat: &Chat{ID: 200, Type: "private"}, Text: "two"}},
			}})
			return
		}
		writeJSON(t, w, APIResponse[[]Update]{OK: true, Result: []Update{}})
		time.Sleep(20 * time.Millisecond)
	}))
	defer srv.Close()

	received := make(chan message.InboundMessage, 4)
	handler := &updateHandler{
		inbox: func(m message.InboundMessage) error {
			received <- m
			return nil
		},
		logger:      discardLogger(),
		channelName: ModuleID,
	}

	poller := NewPoller(newTestClient(srv.URL), handler, discardLogger(), Config{AllowedUpdates: []string{"message"}})
	poller.Start()

	var texts []string
	for range 2 {
		select {
		case m := <-received:
			text, _ := m.TextContent()
			texts = append(texts, text)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for updates")
		}
	}
	select {
	case <-polledAgain:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the second poll")
	}
	poller.Stop()
	poller.Stop() // idempotent

	if texts[0] != "one" || texts[1] != "two" {
		t.Errorf("texts = %v, want [one two]", texts)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(offsets) < 2 || offsets[1] != 12 {
		t.Errorf("offsets = %v, want second poll at 12", offsets)
	}
}

func TestPoller_PausesAfterConsecutiveErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		writeJSON(t, w, APIResponse[json.RawMessage]{OK: false, ErrorCode: 502, Description: "Bad Gateway"})
	}))
	defer srv.Close()

	handler := &updateHandler{inbox: func(message.InboundMessage) error { return nil }, logger: discardLogger()}
	poller := NewPoller(newTestClient(srv.URL), handler, discardLogger(), Config{})
	poller.pause = time.Hour
	poller.Start()

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < maxConsecutivePollingErrors && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)

	if got := calls.Load(); got != maxConsecutivePollingErrors {
		t.Errorf("calls = %d, want %d before the pause", got, maxConsecutivePollingErrors)
	}

	stopped := make(chan struct{})
	go func() {
		poller.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop() did not interrupt the pause")
	}
}

func TestPoller_StopBeforeStart(t *testing.T) {
	t.Parallel()

	p := NewPoller(newTestClient("http://127.0.0.1:1"), &updateHandler{}, discardLogger(), Config{})
	p.Stop()
}

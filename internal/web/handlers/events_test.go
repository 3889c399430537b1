package handlers

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/face-gate/internal/events"
)

// readSSEEvent reads lines until a blank line and returns the event name and data.
func readSSEEvent(t *testing.T, reader *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("failed to read event stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			return name, data
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEventsHandler_Stream(t *testing.T) {
	env := newTestEnv(t)
	handler := NewEventsHandler(env.broadcaster, env.coordinator)

	server := httptest.NewServer(http.HandlerFunc(handler.Stream))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected content type 'text/event-stream', got '%s'", ct)
	}

	reader := bufio.NewReader(resp.Body)
	name, data := readSSEEvent(t, reader)
	if name != "status" {
		t.Fatalf("expected initial 'status' event, got '%s'", name)
	}
	var status armStatusResponse
	if err := json.Unmarshal([]byte(data), &status); err != nil {
		t.Fatalf("failed to parse status: %v", err)
	}
	if status.Armed {
		t.Error("expected unarmed status")
	}

	if _, err := env.coordinator.Arm(t.Context(), "alice"); err != nil {
		t.Fatalf("arm: %v", err)
	}

	name, data = readSSEEvent(t, reader)
	if name != events.TypeArmed {
		t.Fatalf("expected '%s' event, got '%s'", events.TypeArmed, name)
	}
	var event events.Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		t.Fatalf("failed to parse event: %v", err)
	}
	if event.Label != "alice" {
		t.Errorf("expected label 'alice', got '%s'", event.Label)
	}
	if event.ID == "" {
		t.Error("expected event ID to be set")
	}
}

func TestEventsHandler_Stream_RemovesListenerOnDisconnect(t *testing.T) {
	env := newTestEnv(t)
	handler := NewEventsHandler(env.broadcaster, env.coordinator)

	server := httptest.NewServer(http.HandlerFunc(handler.Stream))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	readSSEEvent(t, bufio.NewReader(resp.Body))
	if n := env.broadcaster.ListenerCount(); n != 1 {
		t.Fatalf("expected 1 listener, got %d", n)
	}
	resp.Body.Close()

	deadline := time.Now().Add(2 * time.Second)
	for env.broadcaster.ListenerCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("listener was not removed after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/kozaktomas/face-gate/internal/events"
)

// EventSource hands out event subscriptions.
type EventSource interface {
	AddListener() chan events.Event
	RemoveListener(ch chan events.Event)
}

// EventsHandler streams coordinator notifications as server-sent events.
type EventsHandler struct {
	source   EventSource
	enroller Enroller
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(source EventSource, enroller Enroller) *EventsHandler {
	return &EventsHandler{source: source, enroller: enroller}
}

// Stream holds the connection open until the client goes away. The first
// event is always "status" with the current arming state.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	eventCh := h.source.AddListener()
	defer h.source.RemoveListener(eventCh)

	label, armed := h.enroller.Armed()
	sendSSEEvent(w, flusher, "status", armStatusResponse{Armed: armed, Label: label})

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, event.Type, event)
		}
	}
}

// sendSSEEvent sends a Server-Sent Event
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	_, _ = io.WriteString(w, "event: "+eventType+"\n")
	_, _ = io.WriteString(w, "data: ")
	_, _ = io.Copy(w, bytes.NewReader(jsonData))
	_, _ = io.WriteString(w, "\n\n")
	flusher.Flush()
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"kollektor/internal/jobs"
	"kollektor/internal/models"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for WebSocket
	},
}

// StreamHandler serves live job logs over SSE and WebSocket. Both
// transports run the same poll-and-diff loop; an observer reconnecting
// after a drop resumes from its last-seen sequence via ?after=, with no
// server-side session state.
type StreamHandler struct {
	streamer *jobs.Streamer
}

func NewStreamHandler(streamer *jobs.Streamer) *StreamHandler {
	return &StreamHandler{streamer: streamer}
}

// StreamSSE is the server-sent-events endpoint. One `data:` message per
// log line, one final `event: done` carrying the terminal status.
func (h *StreamHandler) StreamSSE(w http.ResponseWriter, r *http.Request) {
	jobID, after, ok := streamParams(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")

	send := func(line models.LogLine) error {
		payload, err := json.Marshal(line)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}
	done := func(status models.Status) error {
		if _, err := fmt.Fprintf(w, "event: done\ndata: %s\n\n", status); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	err := h.streamer.Stream(r.Context(), jobID, after, send, done)
	if errors.Is(err, jobs.ErrNotFound) {
		fmt.Fprintf(w, "event: error\ndata: job not found\n\n")
		flusher.Flush()
		return
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("SSE stream for job %d ended: %v", jobID, err)
	}
}

// StreamMessage is one WebSocket frame: a log line or the terminal
// status.
type StreamMessage struct {
	Type   string          `json:"type"` // line, done, error
	Line   *models.LogLine `json:"line,omitempty"`
	Status string          `json:"status,omitempty"`
}

// StreamWS is the WebSocket variant of the log stream.
func (h *StreamHandler) StreamWS(w http.ResponseWriter, r *http.Request) {
	jobID, after, ok := streamParams(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Drain client frames so pings are answered and a closed peer
	// tears the stream down.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(line models.LogLine) error {
		return conn.WriteJSON(StreamMessage{Type: "line", Line: &line})
	}
	done := func(status models.Status) error {
		return conn.WriteJSON(StreamMessage{Type: "done", Status: string(status)})
	}

	err = h.streamer.Stream(ctx, jobID, after, send, done)
	if errors.Is(err, jobs.ErrNotFound) {
		conn.WriteJSON(StreamMessage{Type: "error", Status: "job not found"})
		return
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("WebSocket stream for job %d ended: %v", jobID, err)
	}
}

func streamParams(w http.ResponseWriter, r *http.Request) (jobID, after int64, ok bool) {
	jobID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid job ID", http.StatusBadRequest)
		return 0, 0, false
	}
	after, _ = strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
	return jobID, after, true
}

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"contentpilot/internal/telemetry"
)

type DebugHandler struct {
	rec    *telemetry.Recorder
	reader telemetry.Reader
	hub    *telemetry.Hub
	logger *slog.Logger
}

// NewDebugHandler serves the debug sink. reader and hub may be nil, in
// which case reads return nothing and the stream is unavailable.
func NewDebugHandler(rec *telemetry.Recorder, reader telemetry.Reader, hub *telemetry.Hub, logger *slog.Logger) *DebugHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DebugHandler{rec: rec, reader: reader, hub: hub, logger: logger.With("component", "debug_handler")}
}

// SinkRequest is one record written by an external collaborator.
type SinkRequest struct {
	RunID      string         `json:"runId"`
	RunIDAlt   string         `json:"run_id"`
	Stage      string         `json:"stage"`
	Request    string         `json:"request"`
	Response   string         `json:"response"`
	DurationMs int64          `json:"durationMs"`
	Tokens     int            `json:"tokens"`
	Cost       float64        `json:"cost"`
	Error      string         `json:"error"`
	Fields     map[string]any `json:"fields"`
}

// HandleSink acknowledges every well-formed write. Sink failures are
// logged by the recorder and never reach the caller.
func (h *DebugHandler) HandleSink(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var in SinkRequest
	if err := decodeBody(w, r, &in); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	runID := strings.TrimSpace(in.RunID)
	if runID == "" {
		runID = strings.TrimSpace(in.RunIDAlt)
	}
	h.rec.External(r.Context(), telemetry.Record{
		RunID:      runID,
		Stage:      strings.TrimSpace(in.Stage),
		Request:    in.Request,
		Response:   in.Response,
		DurationMs: in.DurationMs,
		Tokens:     in.Tokens,
		Cost:       in.Cost,
		Error:      in.Error,
		Fields:     in.Fields,
	})
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

func (h *DebugHandler) HandleRecords(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	runID := strings.TrimSpace(r.URL.Query().Get("run_id"))
	if runID == "" {
		writeBadRequest(w, "run_id is required")
		return
	}
	records := []telemetry.Record{}
	if h.reader != nil {
		got, err := h.reader.Read(r.Context(), runID)
		if err != nil {
			h.logger.Warn("read records failed", "run_id", runID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": errorBody{Kind: "internal", Reason: "records unavailable"}})
			return
		}
		records = append(records, got...)
	}
	writeJSON(w, http.StatusOK, map[string]any{"runId": runID, "records": records})
}

const (
	streamWriteWait = 10 * time.Second
	streamPongWait  = 60 * time.Second
	streamPingEvery = (streamPongWait * 9) / 10
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type streamMessage struct {
	Type   string            `json:"type"`
	RunID  string            `json:"runId,omitempty"`
	Record *telemetry.Record `json:"record,omitempty"`
}

// HandleStream pushes records over a websocket as they are written. An
// optional run_id query parameter filters the feed.
func (h *DebugHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": errorBody{Kind: "internal", Reason: "stream disabled"}})
		return
	}
	runID := strings.TrimSpace(r.URL.Query().Get("run_id"))

	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(streamPongWait)); err != nil {
		h.logger.Warn("stream set read deadline failed", "error", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	// The reader only drives pong handling and notices a closed peer.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	records := h.hub.Subscribe(ctx, runID)
	ticker := time.NewTicker(streamPingEvery)
	defer ticker.Stop()

	send := func(msg streamMessage) bool {
		if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
			return false
		}
		return conn.WriteJSON(msg) == nil
	}
	if !send(streamMessage{Type: "subscribed", RunID: runID}) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-records:
			if !ok {
				return
			}
			if !send(streamMessage{Type: "record", RunID: rec.RunID, Record: &rec}) {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

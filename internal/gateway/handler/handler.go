package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"contentpilot/internal/pipeline"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 4 << 20

type errorBody struct {
	Op        string `json:"op,omitempty"`
	Stage     string `json:"stage,omitempty"`
	Kind      string `json:"kind"`
	Reason    string `json:"reason"`
	Retryable bool   `json:"retryable"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, reason string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{"error": errorBody{Kind: string(pipeline.KindInvalidRequest), Reason: reason}})
}

// writeError maps a pipeline failure to 400 for request errors and 502 for
// everything the backend or validator caused.
func writeError(w http.ResponseWriter, err error) {
	var pe *pipeline.Error
	if !errors.As(err, &pe) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": errorBody{Kind: string(pipeline.KindInternal), Reason: "internal error"}})
		return
	}
	status := http.StatusBadGateway
	if pe.Kind == pipeline.KindInvalidRequest {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]any{"error": errorBody{
		Op:        pe.Op,
		Stage:     pe.Stage,
		Kind:      string(pe.Kind),
		Reason:    pe.Reason,
		Retryable: pe.Retryable,
	}})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	w.WriteHeader(http.StatusMethodNotAllowed)
	return false
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Package telemetry records one structured entry per backend call and per
// pipeline state change, and fans them out to pluggable debug sinks.
package telemetry

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
)

// Kind classifies a record.
type Kind string

const (
	KindCall       Kind = "call"
	KindTransition Kind = "transition"
	KindOutcome    Kind = "outcome"
	KindExternal   Kind = "external"
)

// Record is one debug entry. Request and Response are redacted and
// truncated before they reach a sink.
type Record struct {
	RunID         string         `json:"runId"`
	Kind          Kind           `json:"kind"`
	Op            string         `json:"op,omitempty"`
	Stage         string         `json:"stage"`
	State         string         `json:"state,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	DurationMs    int64          `json:"durationMs"`
	Attempt       int            `json:"attempt,omitempty"`
	Backend       string         `json:"backend,omitempty"`
	PromptBytes   int            `json:"promptBytes,omitempty"`
	ResponseBytes int            `json:"responseBytes,omitempty"`
	Request       string         `json:"request,omitempty"`
	Response      string         `json:"response,omitempty"`
	Tokens        int            `json:"tokens,omitempty"`
	Cost          float64        `json:"cost,omitempty"`
	Error         string         `json:"error,omitempty"`
	Fields        map[string]any `json:"fields,omitempty"`
}

// Sink accepts records. Writes must not block the pipeline for long;
// wrap slow sinks in Async.
type Sink interface {
	Write(ctx context.Context, rec Record) error
}

// Reader returns the records stored for one run, oldest first.
type Reader interface {
	Read(ctx context.Context, runID string) ([]Record, error)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, rec Record) error

func (f SinkFunc) Write(ctx context.Context, rec Record) error { return f(ctx, rec) }

// Discard drops every record.
var Discard Sink = SinkFunc(func(context.Context, Record) error { return nil })

type multi []Sink

// Multi writes to every sink and joins their errors.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return Discard
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func (m multi) Write(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var runIDSanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitizeRunID makes a run id safe for file names and object keys.
func sanitizeRunID(runID string) string {
	id := runIDSanitizer.ReplaceAllString(strings.TrimSpace(runID), "_")
	if id == "" {
		return "unknown"
	}
	return id
}

func stamp(rec Record) Record {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if rec.Stage == "" {
		rec.Stage = "unknown"
	}
	return rec
}

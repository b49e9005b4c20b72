package pipeline

import (
	"context"
	"errors"
	"fmt"

	llmclient "contentpilot/internal/llmClient"
	"contentpilot/internal/parse"
)

// Operation names.
const (
	OpGenerateBriefs = "generateBriefs"
	OpRegenerate     = "regenerate"
	OpChannelContent = "channelContent"
)

var (
	ErrPipelineFailed       = errors.New("pipeline failed")
	ErrRegenerationFailed   = errors.New("regeneration failed")
	ErrChannelContentFailed = errors.New("channel content failed")
	// ErrInvalidRequest marks failures caused by the caller's input; no
	// backend call was made.
	ErrInvalidRequest = errors.New("invalid request")
)

// Kind is the user-facing failure class.
type Kind string

const (
	KindBackendUnavailable Kind = "backend_unavailable"
	KindBackendRejected    Kind = "backend_rejected"
	KindBackendEmpty       Kind = "backend_empty_response"
	KindValidation         Kind = "validation_error"
	KindCanceled           Kind = "canceled"
	KindInvalidRequest     Kind = "invalid_request"
	KindInternal           Kind = "internal"
)

// Error is the only error the pipeline returns. Its message names the
// operation, stage and failure class and never carries backend text;
// Unwrap exposes the cause for logs.
type Error struct {
	Op        string `json:"op"`
	Stage     string `json:"stage"`
	Kind      Kind   `json:"kind"`
	Reason    string `json:"reason"`
	Retryable bool   `json:"retryable"`
	Err       error  `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed at stage %s: %s: %s", e.Op, e.Stage, e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case opSentinel(e.Op):
		return true
	case ErrInvalidRequest:
		return e.Kind == KindInvalidRequest
	}
	return false
}

func opSentinel(op string) error {
	switch op {
	case OpGenerateBriefs:
		return ErrPipelineFailed
	case OpRegenerate:
		return ErrRegenerationFailed
	case OpChannelContent:
		return ErrChannelContentFailed
	}
	return nil
}

func invalidRequest(op, stage string, err error) *Error {
	return &Error{Op: op, Stage: stage, Kind: KindInvalidRequest, Reason: err.Error(), Err: err}
}

// failure classifies err into an *Error for op at stage.
func failure(op, stage string, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	e := &Error{Op: op, Stage: stage, Err: err}
	var ve *parse.ValidationError
	switch {
	case errors.As(err, &ve):
		e.Kind, e.Reason, e.Retryable = KindValidation, ve.Reason, true
	case errors.Is(err, context.Canceled):
		e.Kind, e.Reason = KindCanceled, "request canceled"
	case errors.Is(err, llmclient.ErrBackendEmptyResponse):
		e.Kind, e.Reason = KindBackendEmpty, "backend returned an empty completion"
	case errors.Is(err, llmclient.ErrBackendRejected):
		e.Kind, e.Reason = KindBackendRejected, rejectedReason(err)
	case errors.Is(err, llmclient.ErrBackendUnavailable):
		e.Kind, e.Reason, e.Retryable = KindBackendUnavailable, "backend unavailable after retries", true
	default:
		e.Kind, e.Reason = KindInternal, "internal error"
	}
	return e
}

func rejectedReason(err error) string {
	var be *llmclient.BackendError
	if errors.As(err, &be) && be.Status > 0 {
		return fmt.Sprintf("backend rejected the request (status %d)", be.Status)
	}
	return "backend rejected the request"
}

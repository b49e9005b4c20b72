package llmclient

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	genai "google.golang.org/genai"
)

var (
	// ErrBackendUnavailable covers network failures, timeouts, 408, 429 and
	// 5xx responses. Only this class is retried.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrBackendRejected covers every other non-success status. It is
	// deterministic and never retried.
	ErrBackendRejected = errors.New("backend rejected request")
	// ErrBackendEmptyResponse is returned when the completion body is empty.
	// It is treated as a rejection.
	ErrBackendEmptyResponse = errors.New("backend returned empty response")
)

// BackendError carries the classification of a failed backend call.
type BackendError struct {
	Kind       error
	Provider   string
	Status     int
	RetryAfter time.Duration
	Err        error
}

func (e *BackendError) Error() string {
	switch {
	case e.Status > 0 && e.Err != nil:
		return fmt.Sprintf("%s: %v (status %d): %v", e.Provider, e.Kind, e.Status, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Provider, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Provider, e.Kind)
	}
}

func (e *BackendError) Unwrap() error { return e.Err }

// Is matches the classification sentinel, so errors.Is(err,
// ErrBackendUnavailable) works through any wrapping.
func (e *BackendError) Is(target error) bool {
	if target == e.Kind {
		return true
	}
	return e.Kind == ErrBackendEmptyResponse && target == ErrBackendRejected
}

// Retryable reports whether err belongs to the retried class.
func Retryable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable)
}

// KindOf returns the sentinel for err, or nil when err is unclassified.
func KindOf(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrBackendEmptyResponse):
		return ErrBackendEmptyResponse
	case errors.Is(err, ErrBackendRejected):
		return ErrBackendRejected
	case errors.Is(err, ErrBackendUnavailable):
		return ErrBackendUnavailable
	}
	return nil
}

// StatusKind maps an HTTP status to a classification sentinel.
func StatusKind(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= 500:
		return ErrBackendUnavailable
	default:
		return ErrBackendRejected
	}
}

// Classify turns a raw SDK or transport error into a *BackendError.
// Already-classified errors are returned unchanged.
func Classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}

	var aerr *anthropic.Error
	if errors.As(err, &aerr) {
		return &BackendError{Kind: StatusKind(aerr.StatusCode), Provider: provider, Status: aerr.StatusCode, RetryAfter: retryAfterFromResponse(aerr.Response), Err: err}
	}
	var oerr *openai.Error
	if errors.As(err, &oerr) {
		return &BackendError{Kind: StatusKind(oerr.StatusCode), Provider: provider, Status: oerr.StatusCode, RetryAfter: retryAfterFromResponse(oerr.Response), Err: err}
	}
	var gerr genai.APIError
	if errors.As(err, &gerr) {
		return &BackendError{Kind: StatusKind(gerr.Code), Provider: provider, Status: gerr.Code, Err: err}
	}
	var gperr *genai.APIError
	if errors.As(err, &gperr) && gperr != nil {
		return &BackendError{Kind: StatusKind(gperr.Code), Provider: provider, Status: gperr.Code, Err: err}
	}

	// Transport failures, DNS errors, cancellation and deadline expiry.
	return &BackendError{Kind: ErrBackendUnavailable, Provider: provider, Err: err}
}

// Unavailable builds an unavailable-class error.
func Unavailable(provider string, err error) error {
	return &BackendError{Kind: ErrBackendUnavailable, Provider: provider, Err: err}
}

// Rejected builds a rejected-class error with an HTTP status.
func Rejected(provider string, status int, err error) error {
	return &BackendError{Kind: ErrBackendRejected, Provider: provider, Status: status, Err: err}
}

// Empty builds an empty-response error.
func Empty(provider string) error {
	return &BackendError{Kind: ErrBackendEmptyResponse, Provider: provider}
}

// RetryAfterOf returns the backend-advertised wait for err, if any.
func RetryAfterOf(err error) time.Duration {
	var be *BackendError
	if errors.As(err, &be) {
		return be.RetryAfter
	}
	return 0
}

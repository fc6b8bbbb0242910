// Package errors defines the sentinel errors shared by the matching engine
// and maps them onto HTTP statuses and stable machine-readable codes for the
// service surface.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrModelUnavailable = errors.New("embedding model unavailable")
	ErrUnscopedFilter   = errors.New("filter is not scoped to an owner")
	ErrStoreUnavailable = errors.New("vector store unavailable")
	ErrNotFound         = errors.New("not found")
	ErrInternal         = errors.New("internal error")
	ErrTimeout          = errors.New("operation timed out")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrPayloadTooLarge  = errors.New("request body too large")
	ErrNotEnabled       = errors.New("feature not enabled")
)

type kind struct {
	sentinel error
	code     string
	status   int
	public   bool
}

// kinds is ordered: the first sentinel an error matches decides its code.
var kinds = []kind{
	{ErrInvalidInput, "invalid_input", http.StatusBadRequest, false},
	{ErrUnscopedFilter, "unscoped_filter", http.StatusBadRequest, true},
	{ErrNotFound, "not_found", http.StatusNotFound, true},
	{ErrModelUnavailable, "model_unavailable", http.StatusServiceUnavailable, true},
	{ErrStoreUnavailable, "store_unavailable", http.StatusServiceUnavailable, true},
	{ErrTimeout, "timeout", http.StatusServiceUnavailable, true},
	{ErrRateLimited, "rate_limited", http.StatusTooManyRequests, true},
	{ErrPayloadTooLarge, "payload_too_large", http.StatusRequestEntityTooLarge, true},
	{ErrNotEnabled, "not_enabled", http.StatusServiceUnavailable, true},
}

func classify(err error) kind {
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k
		}
	}
	return kind{ErrInternal, "internal", http.StatusInternalServerError, false}
}

// AppError carries a message that is safe to return to the caller. Status
// overrides the sentinel's status when non-zero.
type AppError struct {
	Err     error
	Message string
	Status  int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{Err: sentinel, Message: message}
}

// Invalidf reports a caller mistake with a formatted message.
func Invalidf(format string, args ...any) *AppError {
	return &AppError{Err: ErrInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// HTTPStatusCode picks the response status for err.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return classify(err).status
}

// Code returns a stable identifier for err, e.g. "model_unavailable".
func Code(err error) string {
	return classify(err).code
}

// PublicMessage returns the text to show a caller: an AppError's message,
// the sentinel text for dependency failures, fallback otherwise.
func PublicMessage(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if k := classify(err); k.public {
		return k.sentinel.Error()
	}
	return fallback
}

// Body is the JSON error body for err: {"error": ..., "code": ...}. Callers
// may add keys before encoding it.
func Body(err error, fallback string) map[string]any {
	return map[string]any{
		"error": PublicMessage(err, fallback),
		"code":  Code(err),
	}
}

package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestClassification(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid input", fmt.Errorf("decoding body: %w", ErrInvalidInput), http.StatusBadRequest, "invalid_input"},
		{"unscoped filter", ErrUnscopedFilter, http.StatusBadRequest, "unscoped_filter"},
		{"model unavailable", fmt.Errorf("embedding query: %w", ErrModelUnavailable), http.StatusServiceUnavailable, "model_unavailable"},
		{"store unavailable", ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable"},
		{"timeout", fmt.Errorf("query: %w", ErrTimeout), http.StatusServiceUnavailable, "timeout"},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{"not found", ErrNotFound, http.StatusNotFound, "not_found"},
		{"payload too large", ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, "payload_too_large"},
		{"not enabled", New(ErrNotEnabled, "async indexing"), http.StatusServiceUnavailable, "not_enabled"},
		{"status override", &AppError{Err: ErrInvalidInput, Message: "job text too long", Status: http.StatusRequestEntityTooLarge}, http.StatusRequestEntityTooLarge, "invalid_input"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.status {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.status)
			}
			if got := Code(tt.err); got != tt.code {
				t.Errorf("Code() = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestPublicMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{Invalidf("owner %q unknown", "u9"), `owner "u9" unknown`},
		{fmt.Errorf("embedding: %w", ErrModelUnavailable), "embedding model unavailable"},
		{fmt.Errorf("dial tcp: %w", ErrInvalidInput), "request failed"},
		{errors.New("pq: relation does not exist"), "request failed"},
	}
	for _, tt := range tests {
		if got := PublicMessage(tt.err, "request failed"); got != tt.want {
			t.Errorf("PublicMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := New(ErrModelUnavailable, "model bge-small")
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatal("expected AppError to unwrap to its sentinel")
	}
	if err.Error() != "embedding model unavailable: model bge-small" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestBody(t *testing.T) {
	body := Body(New(ErrInvalidInput, "validation failed"), "request failed")
	if body["error"] != "validation failed" || body["code"] != "invalid_input" {
		t.Errorf("Body() = %v", body)
	}
	body = Body(errors.New("pq: connection refused"), "request failed")
	if body["error"] != "request failed" || body["code"] != "internal" {
		t.Errorf("Body() = %v", body)
	}
}

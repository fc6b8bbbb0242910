package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/careermatch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/logger"
)

// Timeout cancels the request context after d. If the handler has not
// started its response by then the client gets a 504 with the usual
// {"error","code"} body, and anything the handler writes afterwards is
// discarded. Once a handler has begun writing it is left to finish.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			dw := &deadlineWriter{w: w, header: w.Header().Clone()}
			done := make(chan struct{})
			go func() {
				defer close(done)
				next.ServeHTTP(dw, r.WithContext(ctx))
			}()

			select {
			case <-done:
				dw.finish()
			case <-ctx.Done():
				if dw.expire() {
					logger.FromContext(r.Context()).Warn("request deadline exceeded",
						"method", r.Method, "path", r.URL.Path, "deadline", d)
					writeTimeout(w, d)
					return
				}
				<-done
				dw.finish()
			}
		})
	}
}

func writeTimeout(w http.ResponseWriter, d time.Duration) {
	writeError(w, http.StatusGatewayTimeout, fmt.Errorf("request exceeded %v: %w", d, apperrors.ErrTimeout))
}

// writeError answers in the same {"error","code"} shape the handlers use.
// status 0 takes the status mapped from err.
func writeError(w http.ResponseWriter, status int, err error) {
	if status == 0 {
		status = apperrors.HTTPStatusCode(err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apperrors.Body(err, http.StatusText(status)))
}

// deadlineWriter gives the handler its own header map so a late handler
// cannot race the timeout response. Headers are copied to the real writer
// on the first WriteHeader or Write.
type deadlineWriter struct {
	w       http.ResponseWriter
	header  http.Header
	mu      sync.Mutex
	started bool
	expired bool
}

func (dw *deadlineWriter) Header() http.Header {
	return dw.header
}

// start must be called with mu held.
func (dw *deadlineWriter) start(code int) {
	if dw.started {
		return
	}
	dw.started = true
	dst := dw.w.Header()
	for k, v := range dw.header {
		dst[k] = v
	}
	dw.w.WriteHeader(code)
}

func (dw *deadlineWriter) WriteHeader(code int) {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if dw.expired {
		return
	}
	dw.start(code)
}

func (dw *deadlineWriter) Write(b []byte) (int, error) {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if dw.expired {
		return 0, http.ErrHandlerTimeout
	}
	dw.start(http.StatusOK)
	return dw.w.Write(b)
}

// expire marks the response as timed out unless the handler already began
// writing. It reports whether the caller now owns the response.
func (dw *deadlineWriter) expire() bool {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if dw.started {
		return false
	}
	dw.expired = true
	return true
}

// finish flushes headers for a handler that returned without writing.
func (dw *deadlineWriter) finish() {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if !dw.expired {
		dw.start(http.StatusOK)
	}
}

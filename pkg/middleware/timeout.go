package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/qmodel/query-modelling-service/pkg/logger"
)

// Timeout cancels the request context after the given duration and answers
// 504 with a JSON body if the handler has not started a response by then.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			tw := &timeoutWriter{ResponseWriter: w}
			done := make(chan struct{})
			go func() {
				next.ServeHTTP(tw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case <-done:
			case <-ctx.Done():
				if tw.claimTimeout() {
					logger.WithComponent("middleware").Warn("request timed out",
						"method", r.Method,
						"path", r.URL.Path,
						"request_id", GetRequestID(ctx),
						"timeout", timeout,
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusGatewayTimeout)
					w.Write([]byte(`{"error":"request timeout"}`))
				}
			}
		})
	}
}

const (
	writerIdle = iota
	writerHandler
	writerTimedOut
)

// timeoutWriter arbitrates between the handler goroutine and the timeout
// path so only one of them produces the response. A handler write that
// lands after the 504 is silently discarded.
type timeoutWriter struct {
	http.ResponseWriter
	mu    sync.Mutex
	state int
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.state == writerTimedOut {
		return
	}
	tw.state = writerHandler
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.state == writerTimedOut {
		return len(b), nil
	}
	tw.state = writerHandler
	return tw.ResponseWriter.Write(b)
}

// claimTimeout marks the response as taken over by the timeout path. It
// fails when the handler already wrote, in which case the response stands.
func (tw *timeoutWriter) claimTimeout() bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.state != writerIdle {
		return false
	}
	tw.state = writerTimedOut
	return true
}

// Package tracing times named operations inside a single request and emits
// one structured log line per span when it ends. The service has no
// distributed callers, so spans carry the request ID rather than a wire
// trace context.
package tracing

import (
	"sync"
	"time"

	"github.com/qmodel/query-modelling-service/pkg/logger"
)

// Span is a timed operation tied to one request.
type Span struct {
	name      string
	requestID string
	start     time.Time

	mu    sync.Mutex
	attrs []any
}

// StartSpan begins timing a named operation for the given request.
func StartSpan(name, requestID string) *Span {
	return &Span{
		name:      name,
		requestID: requestID,
		start:     time.Now(),
	}
}

// SetAttr attaches a key-value attribute that End will log with the span.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, key, value)
	s.mu.Unlock()
}

// End stops the span and logs its duration and attributes at debug level.
func (s *Span) End() {
	elapsed := time.Since(s.start)

	s.mu.Lock()
	attrs := append([]any{
		"span", s.name,
		"request_id", s.requestID,
		"duration_ms", elapsed.Milliseconds(),
	}, s.attrs...)
	s.mu.Unlock()

	logger.WithComponent("tracing").Debug("span finished", attrs...)
}

package analytics

import (
	"context"
	"testing"
	"time"
)

func TestCollectorTrackAfterCloseIsNoop(t *testing.T) {
	c := NewCollector(nil, 4)
	c.Start(context.Background())
	c.Close()

	// Handlers may still be draining when shutdown reaches Close; a late
	// Track must be silently dropped, not panic.
	c.Track(QueryEvent{Type: EventReformulation, Query: "aap", Timestamp: time.Now()})
}

func TestCollectorCloseIsIdempotent(t *testing.T) {
	c := NewCollector(nil, 4)
	c.Start(context.Background())
	c.Close()
	c.Close()
}

func TestCollectorTrackNeverBlocksOnFullBuffer(t *testing.T) {
	c := NewCollector(nil, 2)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			c.Track(QueryEvent{Type: EventReformulation})
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Track blocked on a full buffer")
	}
}

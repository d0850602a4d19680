package session

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestAppendReturnsAccumulatedHistory(t *testing.T) {
	s := NewStore()
	base := time.Date(2016, 1, 15, 12, 0, 0, 0, time.UTC)

	first := s.Append("abc", Entry{Query: "aap", Timestamp: base})
	if len(first) != 1 || first[0].Query != "aap" {
		t.Fatalf("first append: got %+v", first)
	}

	second := s.Append("abc", Entry{Query: "noot", Timestamp: base.Add(time.Minute)})
	if len(second) != 2 {
		t.Fatalf("second append: got %d entries, want 2", len(second))
	}
	if second[0].Query != "aap" || second[1].Query != "noot" {
		t.Errorf("history order: got %+v", second)
	}
}

func TestAppendIsolatesSessions(t *testing.T) {
	s := NewStore()
	now := time.Now()

	s.Append("a", Entry{Query: "aap", Timestamp: now})
	got := s.Append("b", Entry{Query: "noot", Timestamp: now})
	if len(got) != 1 {
		t.Errorf("session b: got %d entries, want 1", len(got))
	}
	if s.Count() != 2 {
		t.Errorf("Count = %d, want 2", s.Count())
	}
}

func TestAppendReturnsCopy(t *testing.T) {
	s := NewStore()
	now := time.Now()

	got := s.Append("abc", Entry{Query: "aap", Timestamp: now})
	got[0].Query = "mutated"

	stored := s.Get("abc")
	if stored[0].Query != "aap" {
		t.Errorf("mutating the returned slice leaked into the store: %+v", stored)
	}
}

func TestGetUnknownSession(t *testing.T) {
	s := NewStore()
	if got := s.Get("missing"); got != nil {
		t.Errorf("got %+v, want nil", got)
	}
	if s.Count() != 0 {
		t.Errorf("Get must not create sessions, Count = %d", s.Count())
	}
}

func TestConcurrentAppends(t *testing.T) {
	s := NewStore()
	const workers = 16
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				history := s.Append("shared", Entry{
					Query:     fmt.Sprintf("q-%d-%d", w, i),
					Timestamp: time.Now(),
				})
				if len(history) == 0 {
					t.Error("Append returned an empty history")
				}
			}
		}(w)
	}
	wg.Wait()

	if got := len(s.Get("shared")); got != workers*perWorker {
		t.Errorf("got %d entries, want %d", got, workers*perWorker)
	}
}

func TestConcurrentSessionCreation(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for w := 0; w < 32; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			s.Append(fmt.Sprintf("session-%d", w%8), Entry{Query: "aap", Timestamp: time.Now()})
		}(w)
	}
	wg.Wait()

	if s.Count() != 8 {
		t.Errorf("Count = %d, want 8", s.Count())
	}
}

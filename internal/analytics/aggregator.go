package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/qmodel/query-modelling-service/pkg/kafka"
	"github.com/qmodel/query-modelling-service/pkg/logger"
)

// AggregatedStats is the servable summary of modelling traffic.
type AggregatedStats struct {
	TotalReformulations int64        `json:"total_reformulations"`
	TotalModellings     int64        `json:"total_modellings"`
	TotalSessionAppends int64        `json:"total_session_appends"`
	CacheHits           int64        `json:"cache_hits"`
	CacheMisses         int64        `json:"cache_misses"`
	AvgLatencyMs        float64      `json:"avg_latency_ms"`
	P50LatencyMs        int64        `json:"p50_latency_ms"`
	P95LatencyMs        int64        `json:"p95_latency_ms"`
	P99LatencyMs        int64        `json:"p99_latency_ms"`
	AvgTermsOut         float64      `json:"avg_terms_out"`
	TopQueries          []QueryCount `json:"top_queries"`
	RequestsPerMinute   float64      `json:"requests_per_minute"`
}

// QueryCount pairs a query with how often it was seen.
type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator consumes query events from Kafka and folds them into running
// statistics.
type Aggregator struct {
	mu             sync.RWMutex
	reformulations atomic.Int64
	modellings     atomic.Int64
	sessionAppends atomic.Int64
	cacheHits      atomic.Int64
	cacheMisses    atomic.Int64
	latencies      []int64
	termsOut       []int
	queryCounts    map[string]int64
	startTime      time.Time

	consumer *kafka.Consumer
	logger   *slog.Logger
}

// NewAggregator creates an Aggregator fed by the given consumer.
func NewAggregator(consumer *kafka.Consumer) *Aggregator {
	return &Aggregator{
		latencies:   make([]int64, 0, 10000),
		queryCounts: make(map[string]int64),
		startTime:   time.Now(),
		consumer:    consumer,
		logger:      logger.WithComponent("analytics-aggregator"),
	}
}

// SetConsumer attaches the Kafka consumer the aggregator reads from. The
// consumer's handler needs the aggregator, so construction happens in two
// steps.
func (a *Aggregator) SetConsumer(c *kafka.Consumer) {
	a.consumer = c
}

// Start enters the consume loop until ctx is cancelled.
func (a *Aggregator) Start(ctx context.Context) error {
	if a.consumer == nil {
		return fmt.Errorf("aggregator has no consumer attached")
	}
	a.logger.Info("analytics aggregator starting")
	return a.consumer.Start(ctx)
}

// HandleEvent returns a kafka.MessageHandler that decodes query events and
// records them on the aggregator. Undecodable messages are logged and
// skipped, never retried.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[QueryEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		agg.record(event)
		return nil
	}
}

func (a *Aggregator) record(event QueryEvent) {
	switch event.Type {
	case EventReformulation:
		a.reformulations.Add(1)
		// Only reformulation consults the result cache; counting the other
		// event types would inflate the miss rate.
		if event.CacheHit {
			a.cacheHits.Add(1)
		} else {
			a.cacheMisses.Add(1)
		}
	case EventModelling:
		a.modellings.Add(1)
	case EventSessionModelling:
		a.sessionAppends.Add(1)
	}

	a.mu.Lock()
	a.latencies = append(a.latencies, event.LatencyMs)
	a.termsOut = append(a.termsOut, event.TermsOut)
	if event.Query != "" {
		a.queryCounts[event.Query]++
	}
	a.mu.Unlock()
}

// Stats snapshots the current aggregates.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	latencies := make([]int64, len(a.latencies))
	copy(latencies, a.latencies)
	termsOut := make([]int, len(a.termsOut))
	copy(termsOut, a.termsOut)
	topQueries := topN(a.queryCounts, 10)
	a.mu.RUnlock()

	stats := AggregatedStats{
		TotalReformulations: a.reformulations.Load(),
		TotalModellings:     a.modellings.Load(),
		TotalSessionAppends: a.sessionAppends.Load(),
		CacheHits:           a.cacheHits.Load(),
		CacheMisses:         a.cacheMisses.Load(),
		TopQueries:          topQueries,
	}

	if len(latencies) > 0 {
		var sum int64
		for _, l := range latencies {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(latencies))

		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		stats.P50LatencyMs = percentile(latencies, 0.50)
		stats.P95LatencyMs = percentile(latencies, 0.95)
		stats.P99LatencyMs = percentile(latencies, 0.99)
	}
	if len(termsOut) > 0 {
		var sum int
		for _, t := range termsOut {
			sum += t
		}
		stats.AvgTermsOut = float64(sum) / float64(len(termsOut))
	}

	minutes := time.Since(a.startTime).Minutes()
	if minutes > 0 {
		total := stats.TotalReformulations + stats.TotalModellings + stats.TotalSessionAppends
		stats.RequestsPerMinute = float64(total) / minutes
	}
	return stats
}

func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []QueryCount {
	out := make([]QueryCount, 0, len(counts))
	for q, c := range counts {
		out = append(out, QueryCount{Query: q, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Query < out[j].Query
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

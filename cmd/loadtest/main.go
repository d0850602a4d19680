// Command loadtest drives concurrent traffic against a running query
// modelling service and reports throughput and latency percentiles.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	latencies     []time.Duration
	latenciesMu   sync.Mutex
	statusCodes   map[int]*atomic.Int64
	statusCodesMu sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]*atomic.Int64),
	}
}

func (s *Stats) RecordRequest(duration time.Duration, statusCode int, err error) {
	s.totalRequests.Add(1)

	if err != nil {
		s.errorCount.Add(1)
		return
	}

	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, duration)
	s.latenciesMu.Unlock()

	s.statusCodesMu.Lock()
	if _, ok := s.statusCodes[statusCode]; !ok {
		s.statusCodes[statusCode] = &atomic.Int64{}
	}
	s.statusCodes[statusCode].Add(1)
	s.statusCodesMu.Unlock()
}

var sampleQueries = []string{
	"De aap krijgt een noot van Mies",
	"Wim bakt koekjes met de zus van Jet",
	"geschiedenis van de Nederlandse spoorwegen",
	"beste restaurants Amsterdam centrum",
	"klimaatverandering gevolgen zeespiegel",
	"voetbal uitslagen eredivisie",
	"recept appeltaart oma",
	"vacatures software engineer Utrecht",
}

func main() {
	baseURL := flag.String("url", "http://localhost:5000", "base URL of the modelling service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	sessionRatio := flag.Float64("session-ratio", 0.3, "fraction of requests sent to the stored-session endpoint")
	flag.Parse()

	stats := NewStats()
	client := &http.Client{Timeout: 10 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	fmt.Printf("load testing %s with %d workers for %s\n", *baseURL, *concurrency, *duration)

	var wg sync.WaitGroup
	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(workerID)))
			sessionID := fmt.Sprintf("loadtest-%d", workerID)
			for ctx.Err() == nil {
				query := sampleQueries[rng.Intn(len(sampleQueries))]
				var url string
				if rng.Float64() < *sessionRatio {
					url = fmt.Sprintf("%s/query_modelling/%s", *baseURL, sessionID)
				} else {
					url = *baseURL + "/query_reformulation"
				}
				doRequest(ctx, client, url, query, stats)
			}
		}(w)
	}
	wg.Wait()

	report(stats, *duration)
}

func doRequest(ctx context.Context, client *http.Client, url, query string, stats *Stats) {
	body, _ := json.Marshal(map[string]string{"query": query})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		stats.RecordRequest(0, 0, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			stats.RecordRequest(elapsed, 0, err)
		}
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	stats.RecordRequest(elapsed, resp.StatusCode, nil)
}

func report(stats *Stats, duration time.Duration) {
	total := stats.totalRequests.Load()
	fmt.Printf("\ntotal requests:  %d\n", total)
	fmt.Printf("successful:      %d\n", stats.successCount.Load())
	fmt.Printf("errors:          %d\n", stats.errorCount.Load())
	fmt.Printf("throughput:      %.1f req/s\n", float64(total)/duration.Seconds())

	stats.statusCodesMu.Lock()
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  HTTP %d: %d\n", code, stats.statusCodes[code].Load())
	}
	stats.statusCodesMu.Unlock()

	stats.latenciesMu.Lock()
	latencies := stats.latencies
	stats.latenciesMu.Unlock()
	if len(latencies) == 0 {
		os.Exit(0)
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	fmt.Printf("\nlatency p50: %s\n", latencies[len(latencies)*50/100])
	fmt.Printf("latency p95: %s\n", latencies[len(latencies)*95/100])
	fmt.Printf("latency p99: %s\n", latencies[len(latencies)*99/100])
	fmt.Printf("latency max: %s\n", latencies[len(latencies)-1])
}

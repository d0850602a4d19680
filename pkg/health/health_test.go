package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func staticCheck(status Status, message string) Check {
	return func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: status, Message: message}
	}
}

func TestRunAggregatesWorstStatus(t *testing.T) {
	for _, tc := range []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"all up", []Status{StatusUp, StatusUp}, StatusUp},
		{"one degraded", []Status{StatusUp, StatusDegraded}, StatusDegraded},
		{"down wins over degraded", []Status{StatusDegraded, StatusDown}, StatusDown},
		{"no checks", nil, StatusUp},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := NewChecker()
			for i, status := range tc.statuses {
				c.Register(string(rune('a'+i)), staticCheck(status, ""))
			}
			report := c.Run(context.Background())
			if report.Status != tc.want {
				t.Errorf("overall status = %q, want %q", report.Status, tc.want)
			}
			if len(report.Components) != len(tc.statuses) {
				t.Errorf("got %d components, want %d", len(report.Components), len(tc.statuses))
			}
		})
	}
}

func TestReadyHandlerDegradedStillServes(t *testing.T) {
	c := NewChecker()
	c.Register("corpus", staticCheck(StatusUp, "loaded"))
	c.Register("redis", staticCheck(StatusDegraded, "not configured"))

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	// Optional dependencies being down must not take the service out of
	// rotation.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if report.Status != StatusDegraded {
		t.Errorf("report status = %q, want %q", report.Status, StatusDegraded)
	}
}

func TestReadyHandlerDown(t *testing.T) {
	c := NewChecker()
	c.Register("corpus", staticCheck(StatusDown, "corpus not loaded"))

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestLiveHandler(t *testing.T) {
	c := NewChecker()
	rec := httptest.NewRecorder()
	c.LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

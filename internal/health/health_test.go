package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jensholdgaard/player-auction/internal/clock"
	"github.com/jensholdgaard/player-auction/internal/health"
)

var testClk = clock.NewMock(time.Date(2025, 3, 22, 19, 30, 0, 0, time.UTC))

func TestLivenessHandler(t *testing.T) {
	h := health.NewHandler(testClk)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	h.LivenessHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusOK)
	}
	var s health.Status
	if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	if s.Status != "ok" {
		t.Errorf("got status %q, want %q", s.Status, "ok")
	}
	if s.Timestamp != "2025-03-22T19:30:00Z" {
		t.Errorf("got timestamp %q, want the clock's time", s.Timestamp)
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name       string
		ready      bool
		checkers   []health.Checker
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{
			name:       "not ready",
			ready:      false,
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "not_ready",
		},
		{
			name:       "ready no checkers",
			ready:      true,
			wantCode:   http.StatusOK,
			wantStatus: "ready",
		},
		{
			name:  "ready all checks pass",
			ready: true,
			checkers: []health.Checker{
				health.Ping("journal", func(ctx context.Context) error { return nil }),
			},
			wantCode:   http.StatusOK,
			wantStatus: "ready",
			wantChecks: map[string]string{"journal": "ok"},
		},
		{
			name:  "ready but check fails",
			ready: true,
			checkers: []health.Checker{
				health.Ping("journal", func(ctx context.Context) error { return errors.New("connection refused") }),
				health.Ping("memory", nil),
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "not_ready",
			wantChecks: map[string]string{"journal": "connection refused", "memory": "ok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := health.NewHandler(testClk, tt.checkers...)
			h.SetReady(tt.ready)

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

			h.ReadinessHandler().ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("got status %d, want %d", rec.Code, tt.wantCode)
			}
			var s health.Status
			if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
				t.Fatal(err)
			}
			if s.Status != tt.wantStatus {
				t.Errorf("got status %q, want %q", s.Status, tt.wantStatus)
			}
			for name, want := range tt.wantChecks {
				if got := s.Checks[name]; got != want {
					t.Errorf("check %s = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestFreshness(t *testing.T) {
	clk := clock.NewMock(time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC))
	var last time.Time
	c := health.Freshness("countdown", clk, 3*time.Second, func() time.Time { return last })

	if err := c.Check(context.Background()); err == nil {
		t.Error("expected failure before the first heartbeat")
	}

	last = clk.Now()
	clk.Advance(2 * time.Second)
	if err := c.Check(context.Background()); err != nil {
		t.Errorf("fresh heartbeat failed: %v", err)
	}

	clk.Advance(2 * time.Second)
	if err := c.Check(context.Background()); err == nil {
		t.Error("expected stale heartbeat to fail")
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/strideapp/habitsync/internal/queue"
)

type fakePinger struct {
	err error
}

func (p fakePinger) PingContext(ctx context.Context) error { return p.err }

type fakeQueueHealth struct {
	err error
}

func (q fakeQueueHealth) Enqueue(ctx context.Context, job *queue.Job) error { return nil }
func (q fakeQueueHealth) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, nil
}
func (q fakeQueueHealth) Close() error                        { return nil }
func (q fakeQueueHealth) HealthCheck(ctx context.Context) error { return q.err }

func doHealthCheck(t *testing.T, checker *HealthChecker, mode string) (*httptest.ResponseRecorder, HealthResponse) {
	t.Helper()

	url := "/healthz"
	if mode != "" {
		url += "?mode=" + mode
	}
	rec := httptest.NewRecorder()
	checker.HealthCheck(rec, httptest.NewRequest("GET", url, nil))

	var body HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rec, body
}

func TestHealthCheckBasicMode(t *testing.T) {
	t.Parallel()

	// Basic mode reports liveness only, even when dependencies are down.
	checker := NewHealthChecker(fakePinger{err: errors.New("down")}, nil, nil)

	rec, body := doHealthCheck(t, checker, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if body.Status != "healthy" {
		t.Errorf("expected status healthy, got %q", body.Status)
	}
	if body.Checks != nil {
		t.Errorf("expected no checks in basic mode, got %v", body.Checks)
	}
}

func TestHealthCheckExtendedMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		dbErr      error
		queueErr   error
		wantStatus int
		wantHealth string
	}{
		{
			name:       "all healthy",
			wantStatus: http.StatusOK,
			wantHealth: "healthy",
		},
		{
			name:       "database down",
			dbErr:      errors.New("connection refused"),
			wantStatus: http.StatusServiceUnavailable,
			wantHealth: "unhealthy",
		},
		{
			name:       "queue down",
			queueErr:   errors.New("channel closed"),
			wantStatus: http.StatusServiceUnavailable,
			wantHealth: "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			checker := NewHealthChecker(fakePinger{err: tt.dbErr}, fakeQueueHealth{err: tt.queueErr}, nil)

			rec, body := doHealthCheck(t, checker, "extended")
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if body.Status != tt.wantHealth {
				t.Errorf("expected status %q, got %q", tt.wantHealth, body.Status)
			}
			if body.Checks == nil {
				t.Fatal("expected checks in extended mode")
			}
			if _, ok := body.Checks["database"]; !ok {
				t.Error("expected a database check")
			}
			if _, ok := body.Checks["queue"]; !ok {
				t.Error("expected a queue check")
			}
		})
	}
}

func TestHealthCheckExtendedModeSkipsMissingDeps(t *testing.T) {
	t.Parallel()

	checker := NewHealthChecker(fakePinger{}, nil, nil)

	rec, body := doHealthCheck(t, checker, "extended")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if _, ok := body.Checks["queue"]; ok {
		t.Error("expected no queue check when the queue is not configured")
	}
	if _, ok := body.Checks["cache"]; ok {
		t.Error("expected no cache check when the cache is not configured")
	}
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/strideapp/habitsync/internal/clock"
	"github.com/strideapp/habitsync/internal/database"
	"github.com/strideapp/habitsync/internal/models"
	"github.com/strideapp/habitsync/internal/queue"
	"github.com/strideapp/habitsync/internal/remote"
	"github.com/strideapp/habitsync/internal/repository"
	"github.com/strideapp/habitsync/internal/request"
	syncengine "github.com/strideapp/habitsync/internal/sync"
)

var handlerNow = time.Date(2024, 6, 13, 9, 0, 0, 0, time.UTC)

var handlerUser = uuid.MustParse("7c1a9f5e-4b64-4f42-9a01-2f8f7f1c9d30")

// inMemoryHabits is a map-backed HabitStore for handler tests.
type inMemoryHabits struct {
	mu     sync.Mutex
	habits map[uuid.UUID]*models.Habit
}

func newInMemoryHabits() *inMemoryHabits {
	return &inMemoryHabits{habits: make(map[uuid.UUID]*models.Habit)}
}

func (s *inMemoryHabits) GetByID(ctx context.Context, id uuid.UUID) (*models.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.habits[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (s *inMemoryHabits) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Habit
	for _, h := range s.habits {
		if h.UserID == userID {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *inMemoryHabits) ListPending(ctx context.Context, userID uuid.UUID) ([]*models.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Habit
	for _, h := range s.habits {
		if h.UserID == userID && (h.SyncStatus == models.SyncStatusPending || h.SyncStatus == models.SyncStatusFailed) {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *inMemoryHabits) Upsert(ctx context.Context, habit *models.Habit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *habit
	s.habits[habit.ID] = &cp
	return nil
}

func (s *inMemoryHabits) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.habits, id)
	return nil
}

func (s *inMemoryHabits) SetSyncStatus(ctx context.Context, id uuid.UUID, status models.SyncStatus, lastSyncedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.habits[id]
	if !ok {
		return database.ErrNotFound
	}
	h.SyncStatus = status
	h.LastSyncedAt = lastSyncedAt
	return nil
}

func (s *inMemoryHabits) UpdateDerived(ctx context.Context, id uuid.UUID, streak int, lastCompleted *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.habits[id]
	if !ok {
		return database.ErrNotFound
	}
	h.CurrentStreak = streak
	h.LastCompletedDate = lastCompleted
	return nil
}

func (s *inMemoryHabits) ResetSyncing(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

// inMemoryCompletions is a map-backed CompletionStore for handler tests.
type inMemoryCompletions struct {
	mu          sync.Mutex
	completions map[uuid.UUID]*models.Completion
}

func newInMemoryCompletions() *inMemoryCompletions {
	return &inMemoryCompletions{completions: make(map[uuid.UUID]*models.Completion)}
}

func (s *inMemoryCompletions) GetByID(ctx context.Context, id uuid.UUID) (*models.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.completions[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *inMemoryCompletions) GetByHabitAndDate(ctx context.Context, habitID uuid.UUID, date time.Time) (*models.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.completions {
		if c.HabitID == habitID && models.SameDate(c.Date, date) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *inMemoryCompletions) ListByHabitID(ctx context.Context, habitID uuid.UUID) ([]*models.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Completion
	for _, c := range s.completions {
		if c.HabitID == habitID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *inMemoryCompletions) ListPending(ctx context.Context, userID uuid.UUID) ([]*models.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Completion
	for _, c := range s.completions {
		if c.SyncStatus == models.SyncStatusPending || c.SyncStatus == models.SyncStatusFailed {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *inMemoryCompletions) Upsert(ctx context.Context, completion *models.Completion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *completion
	s.completions[completion.ID] = &cp
	return nil
}

func (s *inMemoryCompletions) Delete(ctx context.Context, habitID uuid.UUID, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.completions {
		if c.HabitID == habitID && models.SameDate(c.Date, date) {
			delete(s.completions, id)
		}
	}
	return nil
}

func (s *inMemoryCompletions) SetSyncStatus(ctx context.Context, id uuid.UUID, status models.SyncStatus, lastSyncedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.completions[id]
	if !ok {
		return database.ErrNotFound
	}
	c.SyncStatus = status
	c.LastSyncedAt = lastSyncedAt
	return nil
}

func (s *inMemoryCompletions) ResetSyncing(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

// recordingQueue captures enqueued jobs and can be told to fail.
type recordingQueue struct {
	mu   sync.Mutex
	jobs []*queue.Job
	err  error
}

func (q *recordingQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

type handlerEnv struct {
	habits      *inMemoryHabits
	completions *inMemoryCompletions
	jobQueue    *recordingQueue
	router      *mux.Router
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	habits := newInMemoryHabits()
	completions := newInMemoryCompletions()
	jobQueue := &recordingQueue{}
	clk := clock.NewFixed(handlerNow)
	noop := remote.NewNoop()

	engine := syncengine.NewEngine(habits, completions, noop, clk, nil)
	facade := repository.NewFacade(habits, completions, noop, engine, jobQueue, nil, 15*time.Minute, clk, nil)

	router := mux.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(request.WithUserID(r.Context(), handlerUser)))
		})
	})

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	NewHabitHandler(facade).RegisterRoutes(apiRouter.PathPrefix("/habits").Subrouter())
	NewSyncHandler(facade).RegisterRoutes(apiRouter)

	return &handlerEnv{
		habits:      habits,
		completions: completions,
		jobQueue:    jobQueue,
		router:      router,
	}
}

func (e *handlerEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var envelope map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	data, _ := envelope["data"].(map[string]any)
	return data
}

func (e *handlerEnv) seedHabit(t *testing.T, userID uuid.UUID) *models.Habit {
	t.Helper()

	habit := &models.Habit{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       "Morning run",
		Recurrence: models.RecurrenceDaily,
		Priority:   models.PriorityMedium,
		SyncStatus: models.SyncStatusSynced,
		CreatedAt:  handlerNow.Add(-24 * time.Hour),
		UpdatedAt:  handlerNow.Add(-24 * time.Hour),
	}
	if err := e.habits.Upsert(context.Background(), habit); err != nil {
		t.Fatalf("seed habit: %v", err)
	}
	return habit
}

func TestCreateHabit(t *testing.T) {
	t.Parallel()

	t.Run("creates habit with defaults and queues a push", func(t *testing.T) {
		t.Parallel()

		env := newHandlerEnv(t)
		rec := env.do(t, http.MethodPost, "/api/v1/habits", map[string]any{"name": "Read"})

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
		}

		data := decodeData(t, rec)
		if data["name"] != "Read" {
			t.Errorf("expected name 'Read', got %v", data["name"])
		}
		if data["recurrence"] != string(models.RecurrenceDaily) {
			t.Errorf("expected default daily recurrence, got %v", data["recurrence"])
		}
		if data["sync_status"] != string(models.SyncStatusPending) {
			t.Errorf("expected pending sync status, got %v", data["sync_status"])
		}
		if env.jobQueue.count() != 1 {
			t.Errorf("expected 1 queued job, got %d", env.jobQueue.count())
		}
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		t.Parallel()

		env := newHandlerEnv(t)
		rec := env.do(t, http.MethodPost, "/api/v1/habits", map[string]any{
			"name":       "Read",
			"recurrence": "hourly",
		})

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("rejects fields failing request validation", func(t *testing.T) {
		t.Parallel()

		env := newHandlerEnv(t)
		tests := []struct {
			name string
			body map[string]any
		}{
			{"missing name", map[string]any{"priority": "high"}},
			{"unknown priority", map[string]any{"name": "Read", "priority": "urgent"}},
			{"unknown weekday", map[string]any{
				"name":            "Read",
				"recurrence":      "weekly",
				"target_weekdays": []string{"funday"},
			}},
		}
		for _, tt := range tests {
			rec := env.do(t, http.MethodPost, "/api/v1/habits", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("%s: expected status 400, got %d: %s", tt.name, rec.Code, rec.Body.String())
				continue
			}
			if !strings.Contains(rec.Body.String(), "Validation failed") {
				t.Errorf("%s: expected validation message, got %s", tt.name, rec.Body.String())
			}
		}
		if env.jobQueue.count() != 0 {
			t.Errorf("expected no queued jobs for rejected requests, got %d", env.jobQueue.count())
		}
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		t.Parallel()

		env := newHandlerEnv(t)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/habits", bytes.NewBufferString("{not json"))
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}
	})
}

func TestGetHabit(t *testing.T) {
	t.Parallel()

	t.Run("returns own habit", func(t *testing.T) {
		t.Parallel()

		env := newHandlerEnv(t)
		habit := env.seedHabit(t, handlerUser)

		rec := env.do(t, http.MethodGet, "/api/v1/habits/"+habit.ID.String(), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}

		data := decodeData(t, rec)
		if data["id"] != habit.ID.String() {
			t.Errorf("expected habit %s, got %v", habit.ID, data["id"])
		}
	})

	t.Run("hides habits of other users", func(t *testing.T) {
		t.Parallel()

		env := newHandlerEnv(t)
		habit := env.seedHabit(t, uuid.New())

		rec := env.do(t, http.MethodGet, "/api/v1/habits/"+habit.ID.String(), nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("rejects malformed id", func(t *testing.T) {
		t.Parallel()

		env := newHandlerEnv(t)
		rec := env.do(t, http.MethodGet, "/api/v1/habits/not-a-uuid", nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}
	})
}

func TestUpdateHabit(t *testing.T) {
	t.Parallel()

	t.Run("applies a partial update and marks the habit pending", func(t *testing.T) {
		t.Parallel()

		env := newHandlerEnv(t)
		habit := env.seedHabit(t, handlerUser)

		rec := env.do(t, http.MethodPatch, "/api/v1/habits/"+habit.ID.String(), map[string]any{
			"name":     "Evening run",
			"priority": "high",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}

		data := decodeData(t, rec)
		if data["name"] != "Evening run" {
			t.Errorf("expected updated name, got %v", data["name"])
		}
		if data["priority"] != string(models.PriorityHigh) {
			t.Errorf("expected priority high, got %v", data["priority"])
		}
		if data["sync_status"] != string(models.SyncStatusPending) {
			t.Errorf("expected pending sync status after edit, got %v", data["sync_status"])
		}
	})

	t.Run("rejects fields failing request validation", func(t *testing.T) {
		t.Parallel()

		env := newHandlerEnv(t)
		habit := env.seedHabit(t, handlerUser)

		rec := env.do(t, http.MethodPatch, "/api/v1/habits/"+habit.ID.String(), map[string]any{
			"recurrence": "hourly",
		})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), "Validation failed") {
			t.Errorf("expected validation message, got %s", rec.Body.String())
		}
	})
}

func TestToggleCompletion(t *testing.T) {
	t.Parallel()

	t.Run("empty body toggles today and recomputes streak", func(t *testing.T) {
		t.Parallel()

		env := newHandlerEnv(t)
		habit := env.seedHabit(t, handlerUser)

		rec := env.do(t, http.MethodPost, "/api/v1/habits/"+habit.ID.String()+"/toggle", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}

		data := decodeData(t, rec)
		if streak, _ := data["current_streak"].(float64); streak != 1 {
			t.Errorf("expected streak 1, got %v", data["current_streak"])
		}
	})

	t.Run("second toggle removes the completion", func(t *testing.T) {
		t.Parallel()

		env := newHandlerEnv(t)
		habit := env.seedHabit(t, handlerUser)
		path := "/api/v1/habits/" + habit.ID.String() + "/toggle"

		env.do(t, http.MethodPost, path, nil)
		rec := env.do(t, http.MethodPost, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}

		data := decodeData(t, rec)
		if streak, _ := data["current_streak"].(float64); streak != 0 {
			t.Errorf("expected streak 0 after untoggle, got %v", data["current_streak"])
		}
	})

	t.Run("rejects malformed date", func(t *testing.T) {
		t.Parallel()

		env := newHandlerEnv(t)
		habit := env.seedHabit(t, handlerUser)

		rec := env.do(t, http.MethodPost, "/api/v1/habits/"+habit.ID.String()+"/toggle", map[string]string{"date": "13/06/2024"})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}
	})
}

func TestListHabits(t *testing.T) {
	t.Parallel()

	env := newHandlerEnv(t)
	env.seedHabit(t, handlerUser)
	env.seedHabit(t, handlerUser)
	env.seedHabit(t, uuid.New())

	rec := env.do(t, http.MethodGet, "/api/v1/habits", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	data := decodeData(t, rec)
	if total, _ := data["total"].(float64); total != 2 {
		t.Errorf("expected 2 habits, got %v", data["total"])
	}
}

func TestListPending(t *testing.T) {
	t.Parallel()

	env := newHandlerEnv(t)
	env.do(t, http.MethodPost, "/api/v1/habits", map[string]any{"name": "Stretch"})

	rec := env.do(t, http.MethodGet, "/api/v1/habits/pending", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	data := decodeData(t, rec)
	habits, _ := data["habits"].([]any)
	if len(habits) != 1 {
		t.Errorf("expected 1 pending habit, got %d", len(habits))
	}
}

func TestRequestSync(t *testing.T) {
	t.Parallel()

	t.Run("queues a full sync", func(t *testing.T) {
		t.Parallel()

		env := newHandlerEnv(t)
		rec := env.do(t, http.MethodPost, "/api/v1/sync", nil)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected status 202, got %d", rec.Code)
		}
		if env.jobQueue.count() != 1 {
			t.Errorf("expected 1 queued job, got %d", env.jobQueue.count())
		}
	})

	t.Run("reports queue failures", func(t *testing.T) {
		t.Parallel()

		env := newHandlerEnv(t)
		env.jobQueue.err = context.DeadlineExceeded

		rec := env.do(t, http.MethodPost, "/api/v1/sync", nil)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected status 503, got %d", rec.Code)
		}
	})
}

func TestDeleteHabit(t *testing.T) {
	t.Parallel()

	env := newHandlerEnv(t)
	habit := env.seedHabit(t, handlerUser)

	rec := env.do(t, http.MethodDelete, "/api/v1/habits/"+habit.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	if _, err := env.habits.GetByID(context.Background(), habit.ID); !database.IsNotFound(err) {
		t.Errorf("expected habit to be gone, got %v", err)
	}
}

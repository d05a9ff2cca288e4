package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantJSON   bool
	}{
		{
			name: "healthy handler passes through",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("OK"))
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "string panic becomes a 500",
			handler: func(w http.ResponseWriter, r *http.Request) {
				panic("boom")
			},
			wantStatus: http.StatusInternalServerError,
			wantJSON:   true,
		},
		{
			name: "runtime panic becomes a 500",
			handler: func(w http.ResponseWriter, r *http.Request) {
				var m map[string]string
				m["key"] = "value"
			},
			wantStatus: http.StatusInternalServerError,
			wantJSON:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			wrapped := ErrorHandler(zap.NewNop())(tt.handler)

			req := httptest.NewRequest("GET", "/habits", nil)
			rec := httptest.NewRecorder()
			wrapped.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}

			if !tt.wantJSON {
				return
			}

			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected Content-Type application/json, got %q", ct)
			}

			var body ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if body.Success {
				t.Error("expected success to be false")
			}
			if body.Error != "Internal Server Error" {
				t.Errorf("expected error 'Internal Server Error', got %q", body.Error)
			}
			if body.Message != "An unexpected error occurred" {
				t.Errorf("unexpected message %q", body.Message)
			}
			if body.Path != "/habits" {
				t.Errorf("expected path '/habits', got %q", body.Path)
			}
			if body.Timestamp == "" {
				t.Error("expected timestamp to be set")
			}
		})
	}
}

func TestErrorHandlerNilLogger(t *testing.T) {
	t.Parallel()

	wrapped := ErrorHandler(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest("GET", "/habits", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
}

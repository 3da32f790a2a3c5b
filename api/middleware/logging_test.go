package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/perkstack/rewards-backend/pkg/logger"
)

func TestLoggingCapturesWrittenStatus(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	rec.WriteHeader(http.StatusTeapot)
	if rec.status != http.StatusTeapot {
		t.Fatalf("expected recorded status %d, got %d", http.StatusTeapot, rec.status)
	}
}

func TestLoggingPassesThroughHandler(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	handler := Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", w.Code)
	}
}

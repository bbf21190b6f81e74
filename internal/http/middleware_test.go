package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type recordingHandler struct {
	mu       sync.Mutex
	messages []string
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, record.Message)
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }

func (h *recordingHandler) recorded() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.messages...)
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	t.Run("attaches a request scoped logger to the context", func(t *testing.T) {
		t.Parallel()

		handler := &recordingHandler{}
		logger := slog.New(handler)

		var sawLogger bool
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sawLogger = LoggerFromContext(r.Context()) != nil
			w.WriteHeader(http.StatusOK)
		})

		recorder := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
		RequestLogger(logger)(next).ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		if !sawLogger {
			t.Fatal("expected a logger in the request context")
		}
	})

	t.Run("logs the start and completion of each request", func(t *testing.T) {
		t.Parallel()

		handler := &recordingHandler{}
		logger := slog.New(handler)

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		recorder := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
		RequestLogger(logger)(next).ServeHTTP(recorder, req)

		messages := handler.recorded()
		if len(messages) != 2 || messages[0] != "request started" || messages[1] != "request completed" {
			t.Fatalf("unexpected log messages: %v", messages)
		}
	})
}

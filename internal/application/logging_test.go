package application

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err      error
		expected string
	}{
		"nil":            {err: nil, expected: ""},
		"not found":      {err: ErrNotFound, expected: "not_found"},
		"already exists": {err: ErrAlreadyExists, expected: "already_exists"},
		"limit":          {err: ErrLimitExceeded, expected: "limit_exceeded"},
		"transition":     {err: ErrInvalidTransition, expected: "invalid_transition"},
		"validation":     {err: &ValidationError{FieldErrors: map[string]string{"field": "bad"}}, expected: "validation"},
		"unexpected":     {err: errors.New("boom"), expected: "unexpected"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := ErrorKind(tc.err); got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

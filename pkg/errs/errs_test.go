package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := New(CodeNotFound, "Task not found or permission denied")
	if !errors.Is(err, NotFound) {
		t.Fatal("expected not found match")
	}
	if errors.Is(err, Unauthorized) {
		t.Fatal("unexpected unauthorized match")
	}

	wrapped := fmt.Errorf("update task: %w", err)
	if !errors.Is(wrapped, NotFound) {
		t.Fatal("expected match through wrapping")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(CodeInternal, "save task", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
	if err.Error() != "save task: disk full" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestPublic(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"conflict", New(CodeValidationConflict, "Username already taken"), http.StatusBadRequest, "Username already taken"},
		{"credentials", New(CodeInvalidCredentials, "Incorrect username or password"), http.StatusBadRequest, "Incorrect username or password"},
		{"unauthorized", New(CodeUnauthorized, "Could not validate credentials"), http.StatusUnauthorized, "Could not validate credentials"},
		{"not found", New(CodeNotFound, "Task not found"), http.StatusNotFound, "Task not found"},
		{"internal hides cause", Wrap(CodeInternal, "query failed on host db-1", errors.New("boom")), http.StatusInternalServerError, msgInternal},
		{"foreign error", errors.New("raw"), http.StatusInternalServerError, msgInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := Public(tt.err)
			if status != tt.wantStatus || msg != tt.wantMsg {
				t.Fatalf("got (%d, %q), want (%d, %q)", status, msg, tt.wantStatus, tt.wantMsg)
			}
		})
	}
}

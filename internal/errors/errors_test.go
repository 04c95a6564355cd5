package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormat(t *testing.T) {
	err := New(UnknownEntity, "entity not found")
	want := "[UNKNOWN_ENTITY] entity not found"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestErrorWithCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(CorruptStore, "failed to persist graph", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if err.Error() != "[CORRUPT_STORE] failed to persist graph: disk full" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"direct", New(StaleRevision, "refresh required"), StaleRevision},
		{"wrapped", fmt.Errorf("outer: %w", New(InvalidDecision, "bad path")), InvalidDecision},
		{"plain", errors.New("boom"), InternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("context: %w", New(UnknownPath, "no such area"))
	if !HasCode(err, UnknownPath) {
		t.Error("expected HasCode to match UnknownPath")
	}
	if HasCode(err, StaleRevision) {
		t.Error("did not expect StaleRevision")
	}
}

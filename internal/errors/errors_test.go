package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := New(InsufficientFiles, "merge requires at least 2 files")
	if !strings.Contains(err.Error(), "INSUFFICIENT_FILES") {
		t.Errorf("error string should contain code, got: %s", err.Error())
	}
	if !strings.Contains(err.Error(), "at least 2 files") {
		t.Errorf("error string should contain message, got: %s", err.Error())
	}
}

func TestWrapAndUnwrap(t *testing.T) {
	cause := stderrors.New("underlying failure")
	err := Wrap(ParseError, "could not parse main.py", cause)

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should match cause via errors.Is")
	}
	if !strings.Contains(err.Error(), "underlying failure") {
		t.Errorf("error string should include cause, got: %s", err.Error())
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"direct", New(NoEligibleMaster, "all excluded"), NoEligibleMaster},
		{"wrapped in fmt", fmt.Errorf("selecting master: %w", New(NoEligibleMaster, "all excluded")), NoEligibleMaster},
		{"plain error", stderrors.New("boom"), InternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("executing merge: %w", New(UnresolvedConflicts, "2 conflicts pending"))
	if !Is(err, UnresolvedConflicts) {
		t.Error("Is should find the code through wrapping")
	}
	if Is(err, OutputPathConflict) {
		t.Error("Is should not match a different code")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(UnresolvedConflicts, "conflicts pending").WithDetails([]string{"foo", "bar"})
	details, ok := err.Details.([]string)
	if !ok || len(details) != 2 {
		t.Errorf("expected details to round-trip, got %v", err.Details)
	}
}

package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "package not found")
		if err.Error() != "[NOT_FOUND] package not found" {
			t.Errorf("expected [NOT_FOUND] package not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeUpstream, "registry failure")
		expected := "[UPSTREAM_ERROR] registry failure: original error"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
		if !errors.Is(err, original) {
			t.Error("expected wrapped error to unwrap to original")
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeValidationError, "invalid input")
		if !IsCode(err, CodeValidationError) {
			t.Error("expected IsCode to return true for CodeValidationError")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("IsCodeThroughFmtWrap", func(t *testing.T) {
		err := fmt.Errorf("resolve: %w", New(CodeCycle, "cycle"))
		if !IsCode(err, CodeCycle) {
			t.Error("expected IsCode to see through fmt.Errorf wrapping")
		}
		if CodeOf(err) != CodeCycle {
			t.Errorf("expected CodeOf to return CYCLE_DETECTED, got %s", CodeOf(err))
		}
	})

	t.Run("AddContext", func(t *testing.T) {
		err := AddContext(New(CodeConfig, "bad config"), CtxPath, "depgraph.toml")
		if err.Error() != "[CONFIG_ERROR] bad config map[path:depgraph.toml]" {
			t.Errorf("unexpected message %q", err.Error())
		}

		plain := AddContext(errors.New("boom"), CtxOperation, "load")
		if !IsCode(plain, CodeInternal) {
			t.Error("expected plain errors to be wrapped as internal")
		}
	})

	t.Run("CodeOfPlainError", func(t *testing.T) {
		if CodeOf(errors.New("x")) != CodeInternal {
			t.Error("expected CodeOf to default to INTERNAL_ERROR")
		}
	})
}

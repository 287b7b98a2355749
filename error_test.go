package jailconf

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestError_Is(t *testing.T) {
	derived := ErrMissingSemicolon.
		WithPosition(Position{Offset: 5, Line: 1, Column: 6}).
		With(slog.String("key", "persist"))

	if !errors.Is(derived, ErrMissingSemicolon) {
		t.Error("derived error must match its sentinel")
	}

	if errors.Is(derived, ErrInvalidKey) {
		t.Error("derived error must not match a different sentinel")
	}
}

func TestError_Wrap(t *testing.T) {
	cause := errors.New("boom")
	err := ErrReadInput.Wrap(cause)

	if !errors.Is(err, ErrReadInput) {
		t.Error("wrapped error must match its sentinel")
	}

	if !errors.Is(err, cause) {
		t.Error("wrapped error must match its cause")
	}

	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected cause in message, got %q", err.Error())
	}
}

func TestError_Position(t *testing.T) {
	if _, ok := ErrInvalidKey.Position(); ok {
		t.Error("sentinel must not carry a position")
	}

	pos := Position{Offset: 10, Line: 2, Column: 3}

	got, ok := ErrInvalidKey.WithPosition(pos).Position()
	if !ok || got != pos {
		t.Errorf("expected position %v, got %v (ok=%v)", pos, got, ok)
	}
}

func TestError_Message(t *testing.T) {
	err := ErrUnbalancedBlock.WithPosition(Position{Line: 4, Column: 1})

	want := "unbalanced block at line 4, column 1"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestError_LogValue(t *testing.T) {
	err := ErrInvalidKey.
		WithPosition(Position{Offset: 3, Line: 1, Column: 4}).
		With(slog.String("key", "bad"))

	value := err.LogValue()
	if value.Kind() != slog.KindGroup {
		t.Fatalf("expected group value, got %v", value.Kind())
	}

	keys := make(map[string]bool)
	for _, attr := range value.Group() {
		keys[attr.Key] = true
	}

	for _, want := range []string{"error", "position", "offset", "key"} {
		if !keys[want] {
			t.Errorf("expected attribute %q in log value", want)
		}
	}
}

func TestError_Diagnostic(t *testing.T) {
	source := "www {\n    path = \"/usr/jails/www;\n}"

	_, err := ParseString(context.Background(), source)
	if err == nil {
		t.Fatal("expected error")
	}

	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected *Error, got %T", err)
	}

	diag := perr.Diagnostic(source)

	if !strings.Contains(diag, "unterminated string") {
		t.Errorf("expected kind in diagnostic, got %q", diag)
	}

	if !strings.Contains(diag, "2 | ") {
		t.Errorf("expected source line in diagnostic, got %q", diag)
	}

	if !strings.Contains(diag, "^") {
		t.Errorf("expected column marker in diagnostic, got %q", diag)
	}
}

func TestError_DiagnosticWithoutPosition(t *testing.T) {
	diag := ErrReadInput.Diagnostic("whatever")
	if diag != "failed to read input" {
		t.Errorf("expected plain message, got %q", diag)
	}
}

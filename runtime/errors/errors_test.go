package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormat(t *testing.T) {
	err := NewMissingNamed("constructor: User.", "name")
	msg := err.Error()
	if !strings.HasPrefix(msg, "INV302: ") {
		t.Errorf("expected code prefix, got %q", msg)
	}
	if !strings.Contains(msg, `"name"`) {
		t.Errorf("expected parameter name in message, got %q", msg)
	}
}

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("query failed: %w", NewNotInitialized("FindByType"))

	if !stderrors.Is(err, NotInitialized) {
		t.Error("expected errors.Is to match NotInitialized sentinel")
	}
	if stderrors.Is(err, NotFound) {
		t.Error("NotInitialized must not match NotFound")
	}
	if !HasCode(err, ErrNotInitialized) {
		t.Error("HasCode should see through wrapping")
	}
}

func TestErrorUnwrapCause(t *testing.T) {
	cause := stderrors.New("read failed")
	err := NewGeneration("example.com/shop", cause)

	if !stderrors.Is(err, cause) {
		t.Error("expected cause to be reachable through Unwrap")
	}
	if err.Category != CategoryGeneration {
		t.Errorf("category: got %s, want %s", err.Category, CategoryGeneration)
	}
	if !strings.Contains(err.Error(), "read failed") {
		t.Errorf("expected cause in message, got %q", err.Error())
	}
}

func TestErrorToJSON(t *testing.T) {
	err := NewUnexpectedNamed("constructor: User.", "bogus").WithDetail("accepted: name")
	out, jerr := err.ToJSON()
	if jerr != nil {
		t.Fatalf("ToJSON failed: %v", jerr)
	}
	for _, want := range []string{`"code": "INV304"`, `"category": "invocation"`, `"detail": "accepted: name"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}

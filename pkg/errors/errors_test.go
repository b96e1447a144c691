package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("row lock timeout")
	err := Wrap(CodeDependency, cause, "accept quote")

	if err.Unwrap() != cause {
		t.Fatalf("expected cause to survive wrapping")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", err.Code())
	}
}

func TestAsUnwrapsNestedError(t *testing.T) {
	inner := New(CodeExpired, "quote expired")
	wrapped := fmt.Errorf("outer: %w", inner)

	typed := As(wrapped)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeExpired {
		t.Fatalf("unexpected code %s", typed.Code())
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("UNMAPPED"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestExpiredMapsToGone(t *testing.T) {
	meta := MetadataFor(CodeExpired)
	if meta.HTTPStatus != http.StatusGone {
		t.Fatalf("expected 410 for expired, got %d", meta.HTTPStatus)
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("wrap: %w", New(CodeStateConflict, "already accepted"))
	if !HasCode(err, CodeStateConflict) {
		t.Fatal("expected state conflict code")
	}
	if HasCode(err, CodeNotFound) {
		t.Fatal("unexpected not found code")
	}
}

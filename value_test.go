package treefold

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindClassification(t *testing.T) {
	tests := []struct {
		kind      Kind
		primitive bool
		object    bool
		name      string
	}{
		{KindUndefined, true, false, "undefined"},
		{KindNull, true, false, "null"},
		{KindBoolean, true, false, "boolean"},
		{KindNumber, true, false, "number"},
		{KindString, true, false, "string"},
		{KindSymbol, false, false, "symbol"},
		{KindFunction, false, true, "function"},
		{KindArray, false, true, "array"},
		{KindElement, false, true, "element"},
		{KindObject, false, true, "object"},
		{KindAbstract, false, false, "abstract"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.kind.IsPrimitive(); got != tt.primitive {
				t.Errorf("IsPrimitive() = %v, want %v", got, tt.primitive)
			}
			if got := tt.kind.IsObjectLike(); got != tt.object {
				t.Errorf("IsObjectLike() = %v, want %v", got, tt.object)
			}
			if got := tt.kind.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
		})
	}
}

func TestInvariantDetection(t *testing.T) {
	err := fmt.Errorf("resolving: %w", Invariantf("bad %s", "state"))
	if !IsInvariant(err) {
		t.Fatal("expected wrapped invariant to be detected")
	}
	if IsInvariant(&ExpectedBailOut{Message: "x"}) {
		t.Error("bail-out is not an invariant violation")
	}
	if !errors.Is(fmt.Errorf("render: %w", ErrNotSimple), ErrNotSimple) {
		t.Error("ErrNotSimple should survive wrapping")
	}
}

func TestHintIs(t *testing.T) {
	h := Hint{Library: LibraryReactDOM, Call: CallCreatePortal}
	if !h.Is(LibraryReactDOM, CallCreatePortal) {
		t.Error("expected portal hint to match")
	}
	if h.Is(LibraryReact, CallCreatePortal) {
		t.Error("library must match too")
	}
	if _, ok := (NoHints{}).Lookup(nil); ok {
		t.Error("NoHints must never match")
	}
}

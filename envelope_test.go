package kvdoc

import "testing"

func TestEnvelope_Delegates(t *testing.T) {
	l := NewListOf(P("a", 1))
	env := NewEnvelope(l)
	if env.Unwrap() != l {
		t.Fatalf("Unwrap() = %v, wanted the wrapped list", env.Unwrap())
	}

	c := env.Cursor()
	ensure(c.InsertAfter("b", 2))
	keysEqual(t, l, "a", "b")
	keysEqual(t, env, "a", "b")

	clone := c.Clone()
	if _, ok := clone.(*EnvelopeCursor); !ok {
		t.Fatalf("Clone() = %T, wanted *EnvelopeCursor", clone)
	}
	clone.First()
	if c.Key() != "b" || clone.Key() != "a" {
		t.Fatalf("cursor = %q, clone = %q, wanted b and a", c.Key(), clone.Key())
	}
	if c.(*EnvelopeCursor).Unwrap() == nil {
		t.Fatalf("Unwrap() = nil")
	}
}

func TestEnvelope_NilArguments(t *testing.T) {
	assertPanicsWith(t, ErrNilDocument, func() { NewEnvelope(nil) })
	assertPanicsWith(t, ErrNilDocument, func() { NewEnvelope((*List)(nil)) })
	assertPanicsWith(t, ErrNilCursor, func() { NewEnvelopeCursor(nil) })

	if WrapAll(nil) != nil {
		t.Fatalf("WrapAll(nil) != nil")
	}
	wrapped := WrapAll([]Document{NewList(), nil})
	if len(wrapped) != 2 || wrapped[1] != nil {
		t.Fatalf("WrapAll = %v, wanted the nil element kept", wrapped)
	}
	if _, ok := wrapped[0].(*Envelope); !ok {
		t.Fatalf("WrapAll[0] = %T, wanted *Envelope", wrapped[0])
	}
}

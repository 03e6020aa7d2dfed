package value

import "testing"

func TestObjectPreservesInsertionOrder(t *testing.T) {
	o := NewObject()
	o.Set("zeta", Int(1))
	o.Set("alpha", Int(2))
	o.Set("mid", Int(3))

	keys := o.Keys()
	want := []string{"zeta", "alpha", "mid"}
	if len(keys) != len(want) {
		t.Fatalf("got %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("got %v, want %v", keys, want)
		}
	}
}

func TestObjectSetOverwritesInPlace(t *testing.T) {
	o := NewObject()
	o.Set("a", Int(1))
	o.Set("b", Int(2))
	o.Set("a", Int(99))

	keys := o.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("overwrite should not change key order, got %v", keys)
	}
	v, ok := o.Get("a")
	if !ok {
		t.Fatal("expected a to be present")
	}
	i, _ := v.AsInt()
	if i != 99 {
		t.Fatalf("got %d, want 99", i)
	}
}

func TestObjectDeletePreservesRemainingOrder(t *testing.T) {
	o := NewObject()
	o.Set("a", Int(1))
	o.Set("b", Int(2))
	o.Set("c", Int(3))
	o.Delete("b")

	keys := o.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "c" {
		t.Fatalf("got %v, want [a c]", keys)
	}
	if _, ok := o.Get("b"); ok {
		t.Fatal("expected b to be gone")
	}

	// Deleting again is a no-op, not an error.
	o.Delete("b")
	if o.Len() != 2 {
		t.Fatalf("got len %d, want 2", o.Len())
	}
}

func TestObjectCloneIsIndependent(t *testing.T) {
	o := NewObject()
	o.Set("a", Int(1))
	clone := o.Clone()
	clone.Set("b", Int(2))

	if o.Len() != 1 {
		t.Fatalf("original object mutated by clone: len=%d", o.Len())
	}
	if clone.Len() != 2 {
		t.Fatalf("clone missing new key: len=%d", clone.Len())
	}
}

func TestNilObjectIsEmpty(t *testing.T) {
	var o *Object
	if o.Len() != 0 {
		t.Fatalf("got len %d, want 0", o.Len())
	}
	if _, ok := o.Get("anything"); ok {
		t.Fatal("expected Get on nil object to report absent")
	}
	if o.Keys() != nil {
		t.Fatalf("expected nil keys, got %v", o.Keys())
	}
}

func TestContainsNullRecursive(t *testing.T) {
	obj := NewObject()
	obj.Set("a", Int(1))
	obj.Set("b", Array([]Value{String("x"), Null()}))

	if !ContainsNullRecursive(ObjectValue(obj)) {
		t.Fatal("expected nested null in array to be detected")
	}

	clean := NewObject()
	clean.Set("a", Int(1))
	if ContainsNullRecursive(ObjectValue(clean)) {
		t.Fatal("expected no null detected in clean object")
	}

	if !ContainsNullRecursive(Null()) {
		t.Fatal("expected bare null to be detected")
	}
}

func TestKindAccessors(t *testing.T) {
	if k := String("s").Kind(); k != KindString {
		t.Fatalf("got %v, want KindString", k)
	}
	if !Null().IsNull() {
		t.Fatal("expected Null().IsNull()")
	}
	if !ObjectValue(NewObject()).IsObject() {
		t.Fatal("expected ObjectValue(...).IsObject()")
	}
	if !Array(nil).IsArray() {
		t.Fatal("expected Array(nil).IsArray()")
	}

	if _, ok := String("s").AsInt(); ok {
		t.Fatal("expected AsInt to fail on a string value")
	}
	if v, ok := Int(42).AsInt(); !ok || v != 42 {
		t.Fatalf("got (%d, %v), want (42, true)", v, ok)
	}
}

package merge

import (
	"testing"

	"github.com/jinconfig/jin/internal/value"
)

func obj(pairs ...interface{}) value.Value {
	o := value.NewObject()
	for i := 0; i+1 < len(pairs); i += 2 {
		o.Set(pairs[i].(string), pairs[i+1].(value.Value))
	}
	return value.ObjectValue(o)
}

func TestDeepMergeScalarOverlayWins(t *testing.T) {
	got := DeepMerge(value.Int(1), value.Int(2))
	i, _ := got.AsInt()
	if i != 2 {
		t.Fatalf("got %v, want 2", got)
	}
}

func TestDeepMergeOverlayNullDeletesKey(t *testing.T) {
	base := obj("a", value.Int(1), "b", value.Int(2))
	overlay := obj("b", value.Null())

	merged := DeepMerge(base, overlay)
	mo, _ := merged.AsObject()
	if mo.Len() != 1 {
		t.Fatalf("got %d keys, want 1 (b deleted)", mo.Len())
	}
	if _, ok := mo.Get("b"); ok {
		t.Fatal("expected b to be deleted")
	}
	a, ok := mo.Get("a")
	if !ok {
		t.Fatal("expected a to survive")
	}
	i, _ := a.AsInt()
	if i != 1 {
		t.Fatalf("got %d, want 1", i)
	}
}

func TestDeepMergeObjectsRecurseAndPreserveOrder(t *testing.T) {
	base := obj("zeta", value.Int(1), "alpha", value.Int(2))
	overlay := obj("alpha", value.Int(20), "beta", value.Int(3))

	merged := DeepMerge(base, overlay)
	mo, _ := merged.AsObject()
	keys := mo.Keys()
	// base-only keys keep position; overlay-only keys appended.
	want := []string{"zeta", "alpha", "beta"}
	if len(keys) != len(want) {
		t.Fatalf("got %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("got %v, want %v", keys, want)
		}
	}
	alpha, _ := mo.Get("alpha")
	i, _ := alpha.AsInt()
	if i != 20 {
		t.Fatalf("got %d, want overlay's 20", i)
	}
}

func TestDeepMergeNestedObjects(t *testing.T) {
	base := obj("settings", obj("theme", value.String("dark"), "size", value.Int(12)))
	overlay := obj("settings", obj("size", value.Int(14)))

	merged := DeepMerge(base, overlay)
	mo, _ := merged.AsObject()
	settings, _ := mo.Get("settings")
	so, _ := settings.AsObject()

	theme, ok := so.Get("theme")
	if !ok {
		t.Fatal("expected theme to survive from base")
	}
	s, _ := theme.AsStr()
	if s != "dark" {
		t.Fatalf("got %q, want dark", s)
	}
	size, _ := so.Get("size")
	i, _ := size.AsInt()
	if i != 14 {
		t.Fatalf("got %d, want overlay's 14", i)
	}
}

func TestDeepMergeKeyedArrayByID(t *testing.T) {
	item := func(id string, v int64) value.Value {
		o := value.NewObject()
		o.Set("id", value.String(id))
		o.Set("value", value.Int(v))
		return value.ObjectValue(o)
	}
	base := value.Array([]value.Value{item("a", 1), item("b", 2)})
	overlay := value.Array([]value.Value{item("b", 20), item("c", 3)})

	merged := DeepMerge(base, overlay)
	items, ok := merged.AsArray()
	if !ok {
		t.Fatal("expected array result")
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3 (a, b-merged, c-appended)", len(items))
	}

	idOf := func(v value.Value) string {
		o, _ := v.AsObject()
		idv, _ := o.Get("id")
		s, _ := idv.AsStr()
		return s
	}
	if idOf(items[0]) != "a" || idOf(items[1]) != "b" || idOf(items[2]) != "c" {
		t.Fatalf("unexpected key order: %v %v %v", idOf(items[0]), idOf(items[1]), idOf(items[2]))
	}

	bObj, _ := items[1].AsObject()
	bVal, _ := bObj.Get("value")
	i, _ := bVal.AsInt()
	if i != 20 {
		t.Fatalf("got %d, want overlay's 20 for merged id=b", i)
	}
}

func TestDeepMergeKeyedArrayByIntegerID(t *testing.T) {
	item := func(id int64, x string) value.Value {
		o := value.NewObject()
		o.Set("id", value.Int(id))
		if x != "" {
			o.Set("x", value.String(x))
		}
		return value.ObjectValue(o)
	}
	// deep_merge([{id:1,x:"a"},{id:2}], [{id:1,x:"b"},{id:3}])
	// => [{id:1,x:"b"},{id:2},{id:3}]
	base := value.Array([]value.Value{item(1, "a"), item(2, "")})
	overlay := value.Array([]value.Value{item(1, "b"), item(3, "")})

	merged := DeepMerge(base, overlay)
	items, ok := merged.AsArray()
	if !ok {
		t.Fatal("expected array result, integer ids should still trigger keyed merge")
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3 (id=1 merged, id=2 kept, id=3 appended)", len(items))
	}

	idOf := func(v value.Value) int64 {
		o, _ := v.AsObject()
		idv, _ := o.Get("id")
		n, _ := idv.AsInt()
		return n
	}
	if idOf(items[0]) != 1 || idOf(items[1]) != 2 || idOf(items[2]) != 3 {
		t.Fatalf("unexpected key order: %v %v %v", idOf(items[0]), idOf(items[1]), idOf(items[2]))
	}

	merged1, _ := items[0].AsObject()
	x, ok := merged1.Get("x")
	if !ok {
		t.Fatal("expected id=1's x field to survive the merge")
	}
	s, _ := x.AsStr()
	if s != "b" {
		t.Fatalf("got %q, want overlay's \"b\" for id=1", s)
	}
}

func TestDeepMergeArrayWithoutKeysReplacesWholesale(t *testing.T) {
	base := value.Array([]value.Value{value.Int(1), value.Int(2)})
	overlay := value.Array([]value.Value{value.Int(9)})

	merged := DeepMerge(base, overlay)
	items, _ := merged.AsArray()
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1 (overlay replaces unkeyed arrays)", len(items))
	}
	i, _ := items[0].AsInt()
	if i != 9 {
		t.Fatalf("got %d, want 9", i)
	}
}

func TestDeepMergeTopLevelNullDeletesEverything(t *testing.T) {
	base := obj("a", value.Int(1))
	merged := DeepMerge(base, value.Null())
	if !merged.IsNull() {
		t.Fatalf("got %v, want Null()", merged)
	}
}

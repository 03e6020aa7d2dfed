// Package merge implements jin's structured deep-merge kernel: recursive
// merge of two value.Value trees with null-deletion and keyed-array
// merge (§4.D), plus text 3-way merge with conflict markers retargeted
// from the teacher's two-way git-tree merge (internal/merge/merge.go's
// performMerge, internal/merge/tree_ops.go) to an N-layer low-to-high
// fold over value.Value trees.
package merge

import (
	"strconv"

	"github.com/jinconfig/jin/internal/value"
)

// DeepMerge folds overlay onto base per spec.md §4.D rules 1-4:
//  1. overlay Null deletes the key (propagated to the caller as an
//     isDelete=true return so an Object merge can drop it).
//  2. both Object: recurse per overlay's key order; base-only keys keep
//     their position, overlay-only keys are appended.
//  3. both Array: keyed merge by id/name if every element on both sides
//     is an Object with one of those fields; otherwise overlay replaces.
//  4. anything else: overlay wins.
func DeepMerge(base, overlay value.Value) value.Value {
	merged, isDelete := deepMerge(base, overlay)
	if isDelete {
		return value.Null()
	}
	return merged
}

func deepMerge(base, overlay value.Value) (value.Value, bool) {
	if overlay.IsNull() {
		return value.Value{}, true
	}

	if base.IsObject() && overlay.IsObject() {
		baseObj, _ := base.AsObject()
		overlayObj, _ := overlay.AsObject()
		result := value.NewObject()

		for _, k := range baseObj.Keys() {
			bv, _ := baseObj.Get(k)
			if ov, ok := overlayObj.Get(k); ok {
				merged, isDelete := deepMerge(bv, ov)
				if !isDelete {
					result.Set(k, merged)
				}
				continue
			}
			result.Set(k, bv)
		}
		for _, k := range overlayObj.Keys() {
			if _, already := baseObj.Get(k); already {
				continue
			}
			ov, _ := overlayObj.Get(k)
			if ov.IsNull() {
				continue // nothing to delete; key was never in base
			}
			result.Set(k, ov)
		}
		return value.ObjectValue(result), false
	}

	if base.IsArray() && overlay.IsArray() {
		baseItems, _ := base.AsArray()
		overlayItems, _ := overlay.AsArray()
		if merged, ok := keyedArrayMerge(baseItems, overlayItems); ok {
			return value.Array(merged), false
		}
		return overlay, false
	}

	return overlay, false
}

// keyedArrayMerge implements spec.md §4.D rule 3's keyed-merge attempt:
// every element of both arrays must be an Object carrying an "id" (or,
// failing that, "name") scalar field. Base order is preserved; elements
// only in overlay are appended; matching keys merge recursively.
func keyedArrayMerge(base, overlay []value.Value) ([]value.Value, bool) {
	baseKeys, ok := elementKeys(base)
	if !ok {
		return nil, false
	}
	overlayKeys, ok := elementKeys(overlay)
	if !ok {
		return nil, false
	}

	overlayByKey := make(map[string]value.Value, len(overlay))
	for i, k := range overlayKeys {
		overlayByKey[k] = overlay[i]
	}
	seen := make(map[string]bool, len(base))

	result := make([]value.Value, 0, len(base)+len(overlay))
	for i, k := range baseKeys {
		seen[k] = true
		if ov, ok := overlayByKey[k]; ok {
			result = append(result, DeepMerge(base[i], ov))
		} else {
			result = append(result, base[i])
		}
	}
	for i, k := range overlayKeys {
		if !seen[k] {
			result = append(result, overlay[i])
		}
	}
	return result, true
}

// elementKeys returns the "id" (preferred) or "name" scalar field of every
// element, or ok=false if any element is not an Object or lacks both
// fields. The discriminator is compared by value, not representation: an
// integer id of 1 and a string id of "1" are deliberately kept apart by
// tagging the key with its kind.
func elementKeys(items []value.Value) ([]string, bool) {
	keys := make([]string, 0, len(items))
	for _, item := range items {
		obj, isObj := item.AsObject()
		if !isObj {
			return nil, false
		}
		if v, ok := obj.Get("id"); ok {
			if s, ok := scalarKey(v); ok {
				keys = append(keys, "id:"+s)
				continue
			}
		}
		if v, ok := obj.Get("name"); ok {
			if s, ok := scalarKey(v); ok {
				keys = append(keys, "name:"+s)
				continue
			}
		}
		return nil, false
	}
	return keys, true
}

// scalarKey renders a discriminator field's value as a comparison key,
// covering every scalar value.Value kind a hand-authored config file
// might use for an "id" or "name" field.
func scalarKey(v value.Value) (string, bool) {
	if s, ok := v.AsStr(); ok {
		return "str:" + s, true
	}
	if n, ok := v.AsInt(); ok {
		return "int:" + strconv.FormatInt(n, 10), true
	}
	if f, ok := v.AsFloat(); ok {
		return "float:" + strconv.FormatFloat(f, 'g', -1, 64), true
	}
	if b, ok := v.AsBool(); ok {
		return "bool:" + strconv.FormatBool(b), true
	}
	return "", false
}

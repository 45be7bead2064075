package resource

import (
	"reflect"

	"github.com/xraph/shelf/object"
)

// mergePatch applies RFC 7386 merge semantics: a null value deletes the
// field, nested maps merge recursively, everything else replaces.
func mergePatch(target map[string]any, patch map[string]any) {
	for key, value := range patch {
		if value == nil {
			delete(target, key)
			continue
		}
		patchMap, patchIsMap := value.(map[string]any)
		targetMap, targetIsMap := target[key].(map[string]any)
		if patchIsMap && targetIsMap {
			mergePatch(targetMap, patchMap)
			continue
		}
		if patchIsMap {
			fresh := make(map[string]any, len(patchMap))
			mergePatch(fresh, patchMap)
			target[key] = fresh
			continue
		}
		target[key] = value
	}
}

// applyChanges overwrites only the fields present in the patch, without
// merge semantics (the plain PATCH body form).
func applyChanges(target map[string]any, patch map[string]any) {
	for key, value := range patch {
		target[key] = value
	}
}

// changedFields lists the fields whose value differs between the two
// states, in either direction. An empty result means the patch was a no-op
// and storage must not be touched.
func changedFields(before, after object.Object) []string {
	var changed []string
	for key, value := range after {
		if key == object.FieldLastModified || key == object.FieldPermissions {
			continue
		}
		old, ok := before[key]
		if !ok || !reflect.DeepEqual(old, value) {
			changed = append(changed, key)
		}
	}
	for key := range before {
		if key == object.FieldLastModified || key == object.FieldPermissions {
			continue
		}
		if _, ok := after[key]; !ok {
			changed = append(changed, key)
		}
	}
	return changed
}

package docstore

import (
	"fmt"
	"reflect"
	"strings"
)

// SplitPath splits a dotted field path into its segments.
func SplitPath(path string) ([]string, error) {
	parts := strings.Split(path, ".")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("invalid field path %q", path)
		}
	}
	return parts, nil
}

// segments returns the field path of u, preferring FieldPath over Path.
func (u Update) segments() ([]string, error) {
	if u.FieldPath == nil {
		return SplitPath(u.Path)
	}
	if len(u.FieldPath) == 0 {
		return nil, fmt.Errorf("empty field path")
	}
	for _, p := range u.FieldPath {
		if p == "" {
			return nil, fmt.Errorf("invalid field path %q", u.FieldPath)
		}
	}
	return u.FieldPath, nil
}

// ApplyUpdates applies field updates to doc in place. Backends that keep
// documents as plain maps (memory, SQL) share this implementation.
func ApplyUpdates(doc Document, updates []Update) error {
	for _, u := range updates {
		parts, err := u.segments()
		if err != nil {
			return err
		}

		_, isDelete := u.Value.(deleteSentinel)
		parent := doc
		for _, p := range parts[:len(parts)-1] {
			next, ok := parent[p].(map[string]interface{})
			if !ok {
				if isDelete {
					parent = nil
					break
				}
				next = map[string]interface{}{}
				parent[p] = next
			}
			parent = next
		}
		if parent == nil {
			continue
		}

		last := parts[len(parts)-1]
		switch v := u.Value.(type) {
		case deleteSentinel:
			delete(parent, last)
		case ArrayUnionValue:
			existing, _ := parent[last].([]interface{})
			for _, elem := range v.Elems {
				elem = cloneValue(elem)
				if !containsValue(existing, elem) {
					existing = append(existing, elem)
				}
			}
			parent[last] = existing
		default:
			parent[last] = cloneValue(v)
		}
	}
	return nil
}

// MergeInto deep-merges src into dst. Nested maps are merged key by key;
// every other value replaces what dst held.
func MergeInto(dst, src Document) {
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]interface{})
		dstMap, dstIsMap := dst[k].(map[string]interface{})
		if srcIsMap && dstIsMap {
			MergeInto(dstMap, srcMap)
			continue
		}
		dst[k] = cloneValue(v)
	}
}

// CloneDocument returns a deep copy of doc with slices and maps normalised to
// []interface{} and map[string]interface{}.
func CloneDocument(doc Document) Document {
	if doc == nil {
		return nil
	}
	return cloneValue(doc).(map[string]interface{})
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func containsValue(list []interface{}, v interface{}) bool {
	for _, e := range list {
		if reflect.DeepEqual(e, v) {
			return true
		}
	}
	return false
}

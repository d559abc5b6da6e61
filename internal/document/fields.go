package document

import (
	"fmt"
	"strings"
)

// Clone returns a top-level copy of doc. Values are shared; the repair merge
// contract only ever replaces whole top-level fields.
func Clone(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// Merge applies patch over a clone of base: top-level fields present in patch
// replace, all other fields keep their base value. Neither input is mutated.
func Merge(base, patch map[string]any) map[string]any {
	if base == nil && patch == nil {
		return nil
	}
	out := Clone(base)
	if out == nil {
		out = make(map[string]any, len(patch))
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// AsString coerces a document value to a string. Nil reads as "". The
// occasional scalar from a model (a number where text was asked for) is
// formatted rather than dropped.
func AsString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		return ""
	}
}

// AsStringList coerces a document value to a list of strings, tolerating
// []any payloads and dropping blank entries. Nil reads as an empty list.
func AsStringList(v any) []string {
	var out []string
	appendValue := func(item any) {
		s := strings.TrimSpace(AsString(item))
		if s != "" {
			out = append(out, s)
		}
	}
	switch val := v.(type) {
	case []string:
		for _, item := range val {
			appendValue(item)
		}
	case []any:
		for _, item := range val {
			appendValue(item)
		}
	}
	return out
}

// AsMap coerces a document value to a nested object, nil when it is not one.
func AsMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}

// AsRecords coerces a document value to a list of sub-records, skipping
// entries that are not objects.
func AsRecords(v any) []map[string]any {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// StringField reads doc[key] as a string. Missing fields read as "".
func StringField(doc map[string]any, key string) string {
	if doc == nil {
		return ""
	}
	return AsString(doc[key])
}

// StringList reads doc[key] as a list of strings.
func StringList(doc map[string]any, key string) []string {
	if doc == nil {
		return nil
	}
	return AsStringList(doc[key])
}

// MapField reads doc[key] as a nested object.
func MapField(doc map[string]any, key string) map[string]any {
	if doc == nil {
		return nil
	}
	return AsMap(doc[key])
}

// RecordList reads doc[key] as a list of sub-records.
func RecordList(doc map[string]any, key string) []map[string]any {
	if doc == nil {
		return nil
	}
	return AsRecords(doc[key])
}

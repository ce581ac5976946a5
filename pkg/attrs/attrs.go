// Package attrs reads values out of slog-style key/value attribute lists.
package attrs

// String returns the string stored under key, or "" when the key is absent or
// holds another type. Later pairs do not override earlier ones.
func String(kv []any, key string) string {
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok && k == key {
			v, _ := kv[i+1].(string)
			return v
		}
	}
	return ""
}

// Parse reads key with String and converts it with parse. Missing or
// malformed values yield the zero T.
func Parse[T any](kv []any, key string, parse func(string) (T, error)) T {
	var zero T
	raw := String(kv, key)
	if raw == "" {
		return zero
	}
	v, err := parse(raw)
	if err != nil {
		return zero
	}
	return v
}

package utils

import (
	"strings"
	"unicode"
)

/*
   Key-casing conversion at the provider boundary.

   External payloads arrive in either snake_case or camelCase; every
   map is normalized to snake_case before it reaches the domain layer,
   through one total mapping instead of per-field fallback chains.
   For well-formed identifiers the pair round-trips:
   SnakeToCamel(CamelToSnake(x)) == x.
*/

// CamelToSnake converts a camelCase identifier to snake_case. Inputs
// already in snake_case pass through unchanged.
func CamelToSnake(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SnakeToCamel converts a snake_case identifier to camelCase. Inputs
// without underscores pass through unchanged.
func SnakeToCamel(s string) string {
	parts := strings.Split(s, "_")
	if len(parts) == 1 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		r := []rune(p)
		b.WriteRune(unicode.ToUpper(r[0]))
		b.WriteString(string(r[1:]))
	}
	return b.String()
}

// NormalizeKeys rewrites every key of a decoded JSON object (and its
// nested objects and arrays) to snake_case.
func NormalizeKeys(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[CamelToSnake(k)] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return NormalizeKeys(tv)
	case []any:
		for i, item := range tv {
			tv[i] = normalizeValue(item)
		}
		return tv
	default:
		return v
	}
}

// FILE: lixenwraith/strata/helper.go
package strata

import (
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// splitPath splits a dotted path into its segments.
func splitPath(path string) []string {
	return strings.Split(path, ".")
}

// joinPath joins a prefix and a name with a dot, omitting the dot for an empty prefix.
func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	if name == "" {
		return prefix
	}
	return prefix + "." + name
}

// parentPath returns the path of the namespace holding path and the final segment.
func parentPath(path string) (string, string) {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

// isValidKeySegment checks if a single path segment is usable as a command-line key part.
func isValidKeySegment(s string) bool {
	if len(s) == 0 {
		return false
	}
	if strings.ContainsRune(s, '.') {
		return false // Segments themselves cannot contain dots
	}

	for _, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isUnderscore := r == '_'
		isDash := r == '-'

		if !(isLetter || isDigit || isUnderscore || isDash) {
			return false
		}
	}
	return true
}

// isUpper reports whether s has letters and none of them are lower case.
func isUpper(s string) bool {
	return s == strings.ToUpper(s) && s != strings.ToLower(s)
}

// valuesEqual compares option values, treating compiled patterns by source
// and timestamps by instant.
func valuesEqual(a, b any) bool {
	switch x := a.(type) {
	case *regexp.Regexp:
		y, ok := b.(*regexp.Regexp)
		if !ok || x == nil || y == nil {
			return ok && x == y
		}
		return x.String() == y.String()
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	}
	if isComparable(a) && isComparable(b) {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

func isComparable(v any) bool {
	if v == nil {
		return true
	}
	return reflect.TypeOf(v).Comparable()
}

// cloneValue copies slices and maps so the resolved view cannot alias resolver state.
func cloneValue(v any) any {
	switch x := v.(type) {
	case *Values:
		return x.Clone()
	case []string:
		return append([]string(nil), x...)
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = cloneValue(x[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = cloneValue(val)
		}
		return out
	}
	return v
}

// scalarString renders a decoded file scalar as the string a converter expects.
// Strings pass through, nil stays nil, sequences join with commas.
func scalarString(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			s, _ := scalarString(item).(string)
			parts = append(parts, s)
		}
		return strings.Join(parts, ",")
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return v
	}
	return s
}

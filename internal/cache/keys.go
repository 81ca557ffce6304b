package cache

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
)

// Key builds a cache key of the form "<namespace>:<hash>". Parameters are
// normalised before hashing: strings are lower-cased with whitespace
// collapsed, and list-valued parameters are sorted, so parameter order never
// affects key identity.
func Key(namespace string, params ...interface{}) string {
	parts := make([]string, 0, len(params))
	for _, param := range params {
		parts = append(parts, normalizeParam(param))
	}

	h := fnv.New64a()
	h.Write([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%s:%x", namespace, h.Sum64())
}

func normalizeParam(param interface{}) string {
	switch v := param.(type) {
	case string:
		return normalizeString(v)
	case []string:
		sorted := make([]string, len(v))
		for i, s := range v {
			sorted[i] = normalizeString(s)
		}
		sort.Strings(sorted)
		return strings.Join(sorted, ",")
	case float64:
		return fmt.Sprintf("%.6f", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func normalizeString(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

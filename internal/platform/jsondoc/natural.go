package jsondoc

import (
	"strconv"
	"strings"
)

// NaturalLess orders keys by their non-numeric prefix, then by the integer after
// the last underscore, then lexically.
func NaturalLess(a, b string) bool {
	ap, an, aok := splitKey(a)
	bp, bn, bok := splitKey(b)
	if ap != bp {
		return ap < bp
	}
	if aok && bok && an != bn {
		return an < bn
	}
	if aok != bok {
		return aok
	}
	return a < b
}

// KeySuffix parses the integer in the second underscore-separated segment of
// key, so "pat_3" and "pat_3_x" yield 3. Anything else, a bare "3" or
// "a_b_3" included, yields 0.
func KeySuffix(key string) int64 {
	parts := strings.Split(key, "_")
	if len(parts) < 2 {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func splitKey(key string) (string, int64, bool) {
	idx := strings.LastIndex(key, "_")
	if idx < 0 {
		if n, err := strconv.ParseInt(key, 10, 64); err == nil {
			return "", n, true
		}
		return key, 0, false
	}
	n, err := strconv.ParseInt(key[idx+1:], 10, 64)
	if err != nil {
		return key, 0, false
	}
	return key[:idx], n, true
}

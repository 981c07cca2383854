package grading

import (
	"bytes"
	"encoding/json"
	"strings"
)

// textOf renders a JSON value as text: strings are unquoted, anything else
// uses its compact JSON form.
func textOf(raw json.RawMessage) (string, bool) {
	v, ok := decode(raw)
	if !ok {
		return "", false
	}
	if s, isStr := v.(string); isStr {
		return s, true
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", false
	}
	return buf.String(), true
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func textEqual(key, answer json.RawMessage) bool {
	k, ok := textOf(key)
	if !ok {
		return false
	}
	a, ok := textOf(answer)
	if !ok {
		return false
	}
	return normalize(k) == normalize(a)
}

// sequenceEqual requires two arrays of equal length, equal at every index.
func sequenceEqual(key, answer json.RawMessage) bool {
	k, ok := decode(key)
	if !ok {
		return false
	}
	a, ok := decode(answer)
	if !ok {
		return false
	}
	ks, ok := k.([]interface{})
	if !ok {
		return false
	}
	as, ok := a.([]interface{})
	if !ok || len(ks) != len(as) {
		return false
	}
	for i := range ks {
		if !primitiveEqual(ks[i], as[i]) {
			return false
		}
	}
	return true
}

package tools

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// maxPage is the largest page the X API returns.
const maxPage = 100

// params reads tool arguments decoded from JSON. Missing or mistyped values
// read as zero; the schema check in the gate has already rejected bad input.
type params map[string]any

func (p params) str(key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

// raw returns a string argument without trimming.
func (p params) raw(key string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return p.str(key)
}

func (p params) has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}

func (p params) intOr(key string, def int) int {
	switch v := p[key].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return def
		}
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func (p params) boolean(key string) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

func (p params) boolPtr(key string) *bool {
	if !p.has(key) {
		return nil
	}
	b := p.boolean(key)
	return &b
}

func (p params) strPtr(key string) *string {
	if !p.has(key) {
		return nil
	}
	s := p.raw(key)
	return &s
}

func (p params) strs(key string) []string {
	return toStrings(p[key])
}

func (p params) nested(key string) [][]string {
	items, _ := p[key].([]any)
	out := make([][]string, 0, len(items))
	for _, it := range items {
		out = append(out, toStrings(it))
	}
	return out
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, it := range t {
			if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}
	return nil
}

// count reads the "count" argument and clamps it to [1, maxPage].
func (p params) count(def int) int {
	return clamp(p.intOr("count", def), 1, maxPage)
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// next renders a pagination token, null when there is none.
func next(token string) *string {
	if token == "" {
		return nil
	}
	return &token
}

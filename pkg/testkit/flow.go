package testkit

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Vars holds the values captured while a flow runs.
type Vars map[string]string

// Expand replaces every {{name}} with its captured value. Unknown names are
// left in place so the mismatch shows up in the failing request.
func (v Vars) Expand(s string) string {
	if len(v) == 0 || !strings.Contains(s, "{{") {
		return s
	}
	for name, val := range v {
		s = strings.ReplaceAll(s, "{{"+name+"}}", val)
	}
	return s
}

// capture stores the values named by paths from a decoded response.
func (v Vars) capture(doc any, paths map[string]string) error {
	for name, path := range paths {
		val, ok := Lookup(doc, path)
		if !ok {
			return fmt.Errorf("capture %q: path %q not in response", name, path)
		}
		v[name] = stringify(val)
	}
	return nil
}

// Lookup walks a decoded JSON document along a dotted path. Numeric
// segments index arrays and "#" yields the length of an array or object.
//
//	Lookup(doc, "data.0.requestId")
//	Lookup(doc, "data.#")
func Lookup(doc any, path string) (any, bool) {
	if path == "" || path == "." {
		return doc, true
	}
	cur := doc
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			if seg == "#" {
				return float64(len(node)), true
			}
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			if seg == "#" {
				return float64(len(node)), true
			}
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// expandValue substitutes variables inside expected values from "expect".
func (v Vars) expandValue(val any) any {
	s, ok := val.(string)
	if !ok {
		return val
	}
	return v.Expand(s)
}

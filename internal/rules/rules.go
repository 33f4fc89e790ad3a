// Package rules converts validation rule tokens ("required", "max:255", "email") into
// schema fragments and example values.
package rules

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/kolah/routedoc/internal/jsonx"
)

// Set maps field names to their rule tokens in declaration order.
type Set = jsonx.Map[[]string]

func NewSet() *Set {
	return jsonx.NewMap[[]string]()
}

// Split separates a token into its lowercased name and its parameter: "max:255" -> ("max", "255").
func Split(token string) (name, param string) {
	name, param, _ = strings.Cut(strings.TrimSpace(token), ":")
	return strings.ToLower(name), param
}

// Has reports whether tokens contain a rule with the given name, ignoring parameters.
func Has(tokens []string, name string) bool {
	_, ok := Param(tokens, name)
	return ok
}

// Param returns the parameter of the first token with the given name.
func Param(tokens []string, name string) (string, bool) {
	for _, t := range tokens {
		if n, p := Split(t); n == name {
			return p, true
		}
	}
	return "", false
}

// Tokens flattens one field's rule value: a pipe-separated string, a list of strings or
// rule objects, or a single rule object.
func Tokens(v any) []string {
	switch r := v.(type) {
	case nil:
		return nil
	case string:
		var out []string
		for _, part := range strings.Split(r, "|") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	case []string:
		out := make([]string, 0, len(r))
		for _, s := range r {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(r))
		for _, item := range r {
			if s := Normalize(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := Normalize(v); s != "" {
			return []string{s}
		}
		return nil
	}
}

// FromValue reads a flat field -> rule map. Go maps are read in sorted key order.
// ok is false when v is not a map.
func FromValue(v any) (set *Set, ok bool) {
	set = NewSet()
	switch m := v.(type) {
	case *Set:
		return m, m != nil
	case *jsonx.Object:
		if m == nil {
			return set, false
		}
		m.Each(func(field string, rule any) bool {
			set.Set(field, Tokens(rule))
			return true
		})
		return set, true
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return set, false
	}
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, k := range keys {
		set.Set(k.String(), Tokens(rv.MapIndex(k).Interface()))
	}
	return set, true
}

// Required lists the fields carrying a "required" token.
func Required(set *Set) []string {
	var out []string
	set.Each(func(field string, tokens []string) bool {
		if Has(tokens, "required") {
			out = append(out, field)
		}
		return true
	})
	return out
}

// Join renders tokens the way they are written in a rule string.
func Join(tokens []string) string {
	return strings.Join(tokens, "|")
}

// Describe renders one markdown bullet per field: "- **email**: required, email".
func Describe(set *Set) string {
	if set == nil || set.Len() == 0 {
		return "No validation rules defined."
	}
	var lines []string
	set.Each(func(field string, tokens []string) bool {
		lines = append(lines, fmt.Sprintf("- **%s**: %s", field, strings.Join(tokens, ", ")))
		return true
	})
	return strings.Join(lines, "\n")
}

// Package routes describes the application's route table: the read-only input the
// generator documents. Routes come from a YAML manifest or from a live chi or echo router.
package routes

import (
	"regexp"
	"slices"
	"strings"
)

type Route struct {
	// URI without a leading slash, using {param} and {param?} placeholders.
	URI        string
	Methods    []string
	Middleware []string
	Action     Action
	// Name is the symbolic route name (e.g. "users.show"), if any.
	Name string
}

// Action identifies the handler behind a route.
type Action struct {
	Controller string
	Method     string
	Closure    bool
}

// IsZero reports whether no handler information is known.
func (a Action) IsZero() bool {
	return a.Controller == "" && a.Method == "" && !a.Closure
}

// String renders the action as "Controller@method".
func (a Action) String() string {
	if a.Closure {
		return "Closure"
	}
	if a.Method == "" {
		return a.Controller
	}
	return a.Controller + "@" + a.Method
}

// ParseAction reads "Controller@method" or a bare controller name.
func ParseAction(s string) Action {
	if s == "" {
		return Action{}
	}
	if strings.EqualFold(s, "closure") {
		return Action{Closure: true}
	}
	controller, method, _ := strings.Cut(s, "@")
	return Action{Controller: controller, Method: method}
}

type Param struct {
	Name     string
	Optional bool
}

var placeholderRe = regexp.MustCompile(`\{([^}]+)\}`)

// Params returns the path placeholders of a URI in order.
func Params(uri string) []Param {
	var params []Param
	for _, m := range placeholderRe.FindAllStringSubmatch(uri, -1) {
		name := m[1]
		optional := strings.HasSuffix(name, "?")
		params = append(params, Param{Name: strings.TrimSuffix(name, "?"), Optional: optional})
	}
	return params
}

// Segments splits a URI on slashes, ignoring leading and trailing ones.
func Segments(uri string) []string {
	trimmed := strings.Trim(uri, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// StaticSegments returns the segments that are not placeholders.
func StaticSegments(uri string) []string {
	var out []string
	for _, seg := range Segments(uri) {
		if !IsPlaceholder(seg) {
			out = append(out, seg)
		}
	}
	return out
}

func IsPlaceholder(segment string) bool {
	return strings.HasPrefix(segment, "{")
}

// Normalize strips slashes and rewrites router-specific parameter syntax (":id", "{id:[0-9]+}")
// into plain {id} placeholders. Trailing wildcards are dropped.
func Normalize(uri string) string {
	segments := Segments(uri)
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch {
		case seg == "*":
			continue
		case strings.HasPrefix(seg, ":"):
			out = append(out, "{"+strings.TrimPrefix(seg, ":")+"}")
		case strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}"):
			name := strings.TrimSuffix(strings.TrimPrefix(seg, "{"), "}")
			if i := strings.Index(name, ":"); i >= 0 {
				name = name[:i]
			}
			out = append(out, "{"+name+"}")
		default:
			out = append(out, seg)
		}
	}
	return strings.Join(out, "/")
}

// Group merges routes sharing a URI and action into one route carrying every method,
// preserving first-seen order.
func Group(rs []Route) []Route {
	var out []Route
	index := make(map[string]int)
	for _, r := range rs {
		key := r.URI + "|" + r.Action.String() + "|" + r.Name
		if i, ok := index[key]; ok {
			for _, m := range r.Methods {
				if !slices.Contains(out[i].Methods, m) {
					out[i].Methods = append(out[i].Methods, m)
				}
			}
			continue
		}
		index[key] = len(out)
		out = append(out, r)
	}
	return out
}

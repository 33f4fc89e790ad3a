package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kolah/routedoc/internal/routes"
)

// URIPattern maps a URI regular expression to a validation scenario.
type URIPattern struct {
	Pattern  *regexp.Regexp
	Scenario string
}

// Scenarios resolves the validation scenario of a route: an injected middleware
// parameter, then a URI pattern, then the default for the action, then the action name.
type Scenarios struct {
	MiddlewareParam string
	Patterns        []URIPattern
	// Defaults maps action names to scenarios.
	Defaults map[string]string
}

func DefaultScenarios() Scenarios {
	patterns, _ := CompilePatterns([][2]string{
		{`/validate$`, "create"},
		{`/bulk-create$`, "bulk_create"},
		{`/bulk-update$`, "bulk_update"},
		{`/bulk-delete$`, "bulk_delete"},
		{`/import$`, "import"},
		{`/export$`, "export"},
	})
	return Scenarios{
		MiddlewareParam: "_scenario",
		Patterns:        patterns,
		Defaults: map[string]string{
			"create":  "create",
			"store":   "create",
			"update":  "update",
			"edit":    "update",
			"list":    "list",
			"index":   "list",
			"show":    "show",
			"delete":  "delete",
			"destroy": "delete",
		},
	}
}

// CompilePatterns compiles pattern/scenario pairs, keeping their order.
func CompilePatterns(pairs [][2]string) ([]URIPattern, error) {
	out := make([]URIPattern, 0, len(pairs))
	for _, p := range pairs {
		re, err := regexp.Compile(p[0])
		if err != nil {
			return nil, fmt.Errorf("compiling scenario pattern %q: %w", p[0], err)
		}
		out = append(out, URIPattern{Pattern: re, Scenario: p[1]})
	}
	return out, nil
}

func (s Scenarios) Resolve(rt routes.Route, action Action) string {
	if scenario, ok := s.fromMiddleware(rt.Middleware); ok {
		return scenario
	}

	uri := "/" + strings.Trim(rt.URI, "/")
	for _, p := range s.Patterns {
		if p.Pattern.MatchString(uri) {
			return p.Scenario
		}
	}
	for _, seg := range routes.Segments(rt.URI) {
		if strings.HasPrefix(seg, "bulk_") {
			return seg
		}
	}

	name := action.String()
	if scenario, ok := s.Defaults[name]; ok {
		return scenario
	}
	return name
}

// fromMiddleware reads "inject:_scenario=create" (also "inject:a=b,_scenario=create").
func (s Scenarios) fromMiddleware(middleware []string) (string, bool) {
	param := s.MiddlewareParam
	if param == "" {
		param = "_scenario"
	}
	for _, mw := range middleware {
		args, ok := strings.CutPrefix(mw, "inject:")
		if !ok {
			continue
		}
		for _, pair := range strings.Split(args, ",") {
			key, value, _ := strings.Cut(strings.TrimSpace(pair), "=")
			if key == param && value != "" {
				return value, true
			}
		}
	}
	return "", false
}

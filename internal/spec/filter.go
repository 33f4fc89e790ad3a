package spec

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/kolah/routedoc/internal/config"
	"github.com/kolah/routedoc/internal/routes"
)

// apiType is an enabled api type of the configuration.
type apiType struct {
	Key string
	config.APIType
}

// filter decides which routes are documented and under which api type.
type filter struct {
	types           []apiType
	excludeURIs     []*regexp.Regexp
	excludeNames    []*regexp.Regexp
	excludeModules  []string
	excludeByPrefix map[string][]string
}

func newFilter(cfg *config.Config, requested []string) (*filter, error) {
	f := &filter{excludeByPrefix: make(map[string][]string)}

	enabled := make([]apiType, 0, len(cfg.APITypes))
	for _, key := range cfg.EnabledAPITypes() {
		enabled = append(enabled, apiType{Key: key, APIType: cfg.APITypes[key]})
	}
	if len(requested) == 0 {
		f.types = enabled
	} else {
		for _, name := range requested {
			t, ok := findType(enabled, name)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnknownAPIType, name)
			}
			if !slices.ContainsFunc(f.types, func(o apiType) bool { return o.Key == t.Key }) {
				f.types = append(f.types, t)
			}
		}
	}

	for _, p := range cfg.Routes.ExcludePatterns {
		f.excludeURIs = append(f.excludeURIs, glob(p))
	}
	for _, p := range cfg.Routes.ExcludeNames {
		f.excludeNames = append(f.excludeNames, glob(p))
	}
	for _, m := range cfg.Routes.ExcludeModules {
		f.excludeModules = append(f.excludeModules, strings.ToLower(m))
	}
	for prefix, modules := range cfg.Routes.ExcludeModuleRoutes {
		for _, m := range modules {
			f.excludeByPrefix[prefix] = append(f.excludeByPrefix[prefix], strings.ToLower(m))
		}
	}
	return f, nil
}

// findType matches a requested name against api type keys and prefixes, ignoring case.
func findType(types []apiType, name string) (apiType, bool) {
	for _, t := range types {
		if strings.EqualFold(t.Key, name) || strings.EqualFold(t.Prefix, name) {
			return t, true
		}
	}
	return apiType{}, false
}

// glob compiles a pattern where "*" matches any run of characters, "/" included.
func glob(pattern string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(pattern)
	return regexp.MustCompile("^" + strings.ReplaceAll(quoted, `\*`, ".*") + "$")
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// match returns the api type a route is documented under.
func (f *filter) match(rt routes.Route) (apiType, bool) {
	if matchAny(f.excludeURIs, rt.URI) {
		return apiType{}, false
	}
	if rt.Name != "" && matchAny(f.excludeNames, rt.Name) {
		return apiType{}, false
	}

	var t apiType
	found := false
	for _, candidate := range f.types {
		if rt.URI == candidate.Prefix || strings.HasPrefix(rt.URI, candidate.Prefix+"/") {
			t, found = candidate, true
			break
		}
	}
	if !found {
		return apiType{}, false
	}

	static := routes.StaticSegments(strings.TrimPrefix(rt.URI, t.Prefix))
	if len(static) > 0 {
		module := strings.ToLower(static[0])
		if slices.Contains(f.excludeModules, module) || slices.Contains(f.excludeByPrefix[t.Prefix], module) {
			return apiType{}, false
		}
	}
	return t, true
}

// Package classify derives the api-type prefix, module, entity and action of a route
// from its URI, using the type registry as the oracle for modules and global models.
package classify

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/kolah/routedoc/internal/naming"
	"github.com/kolah/routedoc/internal/registry"
	"github.com/kolah/routedoc/internal/routes"
)

type Structure int

const (
	// ModuleEntity is {prefix}/{module}/{entity}/...
	ModuleEntity Structure = iota
	// ModuleRoot is {prefix}/{module} with no entity; such routes are not documented.
	ModuleRoot
	// GlobalEntity is {prefix}/{entity} backed by a global model.
	GlobalEntity
	// Auth is an authentication endpoint.
	Auth
	// Unrecognized is the fallback: the second segment is taken as the entity.
	Unrecognized
)

func (s Structure) String() string {
	switch s {
	case ModuleEntity:
		return "module"
	case ModuleRoot:
		return "module-root"
	case GlobalEntity:
		return "global"
	case Auth:
		return "auth"
	default:
		return "unrecognized"
	}
}

// Route is a classified URI.
type Route struct {
	URI       string
	Prefix    string
	Module    string
	Entity    string
	Params    []routes.Param
	Structure Structure
}

// Oracle answers existence questions about modules and models.
type Oracle interface {
	IsModule(segment string) bool
	FindGlobalModel(entity string) (*registry.Model, bool)
}

var authPatterns = []string{
	"login",
	"register",
	"logout",
	"refresh",
	"verify",
	"permissions",
	"user-profile",
	"password/reset",
	"password/forgot",
	"email/verify",
	"auth/login",
	"auth/register",
}

// Classifier memoizes classifications per raw URI. One classifier serves one generation run.
type Classifier struct {
	oracle Oracle
	log    zerolog.Logger
	cache  map[string]Route
}

func New(oracle Oracle, log zerolog.Logger) *Classifier {
	return &Classifier{
		oracle: oracle,
		log:    log,
		cache:  make(map[string]Route),
	}
}

func (c *Classifier) Classify(uri string) Route {
	if r, ok := c.cache[uri]; ok {
		return r
	}
	r := c.classify(uri)
	c.cache[uri] = r
	return r
}

func (c *Classifier) classify(uri string) Route {
	static := routes.StaticSegments(uri)
	r := Route{
		URI:    uri,
		Prefix: "api",
		Module: registry.GeneralModule,
		Params: routes.Params(uri),
	}
	if len(static) > 0 {
		r.Prefix = static[0]
	}
	var second string
	if len(static) > 1 {
		second = static[1]
	}

	switch {
	case second != "" && c.oracle.IsModule(second):
		r.Module = naming.Studly(second)
		if len(static) >= 3 {
			r.Structure = ModuleEntity
			r.Entity = static[2]
		} else {
			r.Structure = ModuleRoot
			r.Entity = "resource"
		}
	case second != "" && c.isGlobalModel(second):
		r.Structure = GlobalEntity
		r.Entity = second
	case isAuth(uri, static):
		r.Structure = Auth
		r.Entity = "auth"
	default:
		r.Structure = Unrecognized
		r.Entity = second
		if r.Entity == "" {
			r.Entity = "resource"
		}
		c.log.Warn().Str("uri", uri).Strs("segments", static).Msg("unrecognized URI structure")
	}
	return r
}

func (c *Classifier) isGlobalModel(segment string) bool {
	_, ok := c.oracle.FindGlobalModel(segment)
	return ok
}

func isAuth(uri string, static []string) bool {
	lower := strings.ToLower(uri)
	var last string
	if len(static) > 0 {
		last = strings.ToLower(static[len(static)-1])
	}
	for _, p := range authPatterns {
		if strings.Contains(lower, p) || last == p {
			return true
		}
	}
	return false
}

// IsModuleRoot reports whether the URI addresses a module without an entity.
func (c *Classifier) IsModuleRoot(uri string) bool {
	return c.Classify(uri).Structure == ModuleRoot
}

// Action detects the action of one method of a route: a custom trailing URI segment,
// then the route name, then the controller method, then the HTTP method.
func (c *Classifier) Action(rt routes.Route, method string) Action {
	cl := c.Classify(rt.URI)

	if custom, ok := customSegment(rt.URI, cl); ok {
		return NewAction(custom)
	}

	if rt.Name != "" {
		last := rt.Name[strings.LastIndex(rt.Name, ".")+1:]
		if mapped, ok := routeNameActions[last]; ok {
			return NewAction(mapped)
		}
		if last != "" {
			return NewAction(last)
		}
	}

	if m := rt.Action.Method; m != "" && !rt.Action.Closure {
		if mapped, ok := controllerActions[strings.ToLower(m)]; ok {
			return NewAction(mapped)
		}
		return NewAction(m)
	}

	return FromMethod(method)
}

// customSegment returns the last static segment when it is not the entity itself.
func customSegment(uri string, cl Route) (string, bool) {
	static := routes.StaticSegments(uri)
	if len(static) < 2 {
		return "", false
	}
	last := static[len(static)-1]
	entity := cl.Entity
	if last == entity || last == naming.Plural(entity) || last == naming.Singular(entity) {
		return "", false
	}
	return last, true
}

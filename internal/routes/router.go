package routes

import (
	"fmt"
	"net/http"
	"reflect"
	"runtime"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/labstack/echo/v4"
)

// FromChi walks a chi router. Handler function names become the route action.
func FromChi(r chi.Routes) ([]Route, error) {
	var out []Route
	err := chi.Walk(r, func(method, route string, handler http.Handler, _ ...func(http.Handler) http.Handler) error {
		out = append(out, Route{
			URI:     Normalize(route),
			Methods: []string{strings.ToUpper(method)},
			Action:  ActionFromFunc(handlerName(handler)),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking chi routes: %w", err)
	}
	return Group(out), nil
}

// FromEcho reads the routes registered on an echo instance. A route name that is not
// a handler function name is kept as the symbolic route name. Echo keeps routes in a
// map, so they are sorted by path and method.
func FromEcho(e *echo.Echo) []Route {
	registered := e.Routes()
	slices.SortStableFunc(registered, func(a, b *echo.Route) int {
		if c := strings.Compare(a.Path, b.Path); c != 0 {
			return c
		}
		return methodRank(a.Method) - methodRank(b.Method)
	})

	var out []Route
	for _, er := range registered {
		if er.Method == echo.RouteNotFound {
			continue
		}
		r := Route{
			URI:     Normalize(er.Path),
			Methods: []string{strings.ToUpper(er.Method)},
		}
		if isFuncName(er.Name) {
			r.Action = ActionFromFunc(er.Name)
		} else {
			r.Name = er.Name
		}
		out = append(out, r)
	}
	return Group(out)
}

func handlerName(h http.Handler) string {
	if h == nil {
		return ""
	}
	v := reflect.ValueOf(h)
	if v.Kind() != reflect.Func {
		return ""
	}
	fn := runtime.FuncForPC(v.Pointer())
	if fn == nil {
		return ""
	}
	return fn.Name()
}

func isFuncName(name string) bool {
	return strings.Contains(name, "/") || strings.HasSuffix(name, "-fm") || strings.Contains(name, ".func")
}

// ActionFromFunc derives an action from a runtime function name:
//
//	pkg/http.(*UserController).Show-fm -> UserController@Show
//	pkg/http.UserController.Show-fm    -> UserController@Show
//	main.main.func1                    -> closure
//	pkg/http.listUsers                 -> @listUsers
func ActionFromFunc(name string) Action {
	if name == "" {
		return Action{}
	}
	name = strings.TrimSuffix(name, "-fm")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	parts := strings.Split(name, ".")
	if len(parts) == 0 {
		return Action{}
	}
	last := parts[len(parts)-1]
	if strings.HasPrefix(last, "func") {
		return Action{Closure: true}
	}

	switch len(parts) {
	case 1, 2:
		return Action{Method: last}
	default:
		receiver := strings.Trim(parts[len(parts)-2], "(*)")
		return Action{Controller: receiver, Method: last}
	}
}

var methodOrder = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}

func methodRank(method string) int {
	if i := slices.Index(methodOrder, strings.ToUpper(method)); i >= 0 {
		return i
	}
	return len(methodOrder)
}

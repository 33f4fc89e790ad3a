package classify

import (
	"strings"
)

// Kind is the closed vocabulary of operation actions. Custom covers every other endpoint
// and carries its name in Action.Name.
type Kind int

const (
	List Kind = iota
	Create
	Show
	Update
	Delete
	Edit
	Custom
)

var kindNames = map[Kind]string{
	List:   "list",
	Create: "create",
	Show:   "show",
	Update: "update",
	Delete: "delete",
	Edit:   "edit",
}

type Action struct {
	Kind Kind
	// Name is set for Custom actions.
	Name string
}

func (a Action) String() string {
	if a.Kind == Custom {
		return a.Name
	}
	return kindNames[a.Kind]
}

// Targets reports whether the action addresses one existing resource.
func (a Action) Targets() bool {
	switch a.Kind {
	case Show, Update, Delete, Edit:
		return true
	}
	return false
}

// NewAction maps a vocabulary word to its kind; any other word is a custom action.
func NewAction(name string) Action {
	lower := strings.ToLower(name)
	for k, n := range kindNames {
		if n == lower {
			return Action{Kind: k}
		}
	}
	return Action{Kind: Custom, Name: name}
}

// routeNameActions maps the last segment of a symbolic route name.
var routeNameActions = map[string]string{
	"index":   "list",
	"store":   "create",
	"show":    "show",
	"update":  "update",
	"destroy": "delete",
	"edit":    "edit",
}

// controllerActions maps controller method names.
var controllerActions = map[string]string{
	"index":   "list",
	"store":   "create",
	"show":    "show",
	"update":  "update",
	"destroy": "delete",
}

var methodActions = map[string]Kind{
	"GET":    List,
	"POST":   Create,
	"PUT":    Update,
	"PATCH":  Update,
	"DELETE": Delete,
}

// FromMethod is the default action of an HTTP method.
func FromMethod(method string) Action {
	if k, ok := methodActions[strings.ToUpper(method)]; ok {
		return Action{Kind: k}
	}
	return Action{Kind: Custom, Name: "action"}
}

package rules

import (
	"fmt"
	"reflect"
	"strings"
)

// Parameterised rule objects a validator may return in place of string tokens.
type (
	Unique struct {
		Table  string
		Column string
	}
	Exists struct {
		Table  string
		Column string
	}
	In struct {
		Values []string
	}
	NotIn struct {
		Values []string
	}
	Password struct {
		Min int
	}
	File struct {
		Types []string
	}
	ImageFile struct{}
	Enum      struct {
		Type string
	}
	Dimensions struct {
		MinWidth, MinHeight int
	}
	ProhibitedIf struct {
		Field string
		Value string
	}
	RequiredIf struct {
		Field string
		Value string
	}
)

func (r Unique) String() string { return withParams("unique", r.Table, r.Column) }

func (r Exists) String() string { return withParams("exists", r.Table, r.Column) }

func (r In) String() string { return withParams("in", r.Values...) }

func (r NotIn) String() string { return withParams("not_in", r.Values...) }

func (r RequiredIf) String() string { return withParams("required_if", r.Field, r.Value) }

func (r ProhibitedIf) String() string { return withParams("prohibited_if", r.Field, r.Value) }

func withParams(name string, params ...string) string {
	var set []string
	for _, p := range params {
		if p != "" {
			set = append(set, p)
		}
	}
	if len(set) == 0 {
		return name
	}
	return name + ":" + strings.Join(set, ",")
}

var objectNames = map[reflect.Type]string{
	reflect.TypeOf(Unique{}):       "unique",
	reflect.TypeOf(Exists{}):       "exists",
	reflect.TypeOf(In{}):           "in",
	reflect.TypeOf(NotIn{}):        "not_in",
	reflect.TypeOf(Password{}):     "password",
	reflect.TypeOf(File{}):         "file",
	reflect.TypeOf(ImageFile{}):    "image",
	reflect.TypeOf(Enum{}):         "enum",
	reflect.TypeOf(Dimensions{}):   "dimensions",
	reflect.TypeOf(ProhibitedIf{}): "prohibited_if",
	reflect.TypeOf(RequiredIf{}):   "required_if",
}

// Normalize converts a rule entry to its token. Known rule objects use their String
// form when available and their table name otherwise; other values use String, then the
// lowercased type name.
func Normalize(rule any) string {
	if rule == nil {
		return ""
	}
	if s, ok := rule.(string); ok {
		return strings.TrimSpace(s)
	}

	t := reflect.TypeOf(rule)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if name, ok := objectNames[t]; ok {
		if s, ok := safeString(rule); ok && s != "" {
			return s
		}
		return name
	}
	if s, ok := safeString(rule); ok && s != "" {
		return s
	}
	return strings.ToLower(t.Name())
}

func safeString(v any) (s string, ok bool) {
	str, isStringer := v.(fmt.Stringer)
	if !isStringer {
		return "", false
	}
	defer func() {
		if recover() != nil {
			s, ok = "", false
		}
	}()
	return str.String(), true
}

// TokenForType maps a rule object type name to its token without constructing a value.
func TokenForType(name string) string {
	for t, token := range objectNames {
		if t.Name() == name {
			return token
		}
	}
	return strings.ToLower(name)
}

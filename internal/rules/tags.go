package rules

import (
	"reflect"
	"strings"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// FromTag translates a go-playground `validate` tag into rule tokens. The field type adds
// the matching type token. Rules after "dive" apply to elements and are ignored.
func FromTag(tag string, t reflect.Type) []string {
	var required bool
	var out []string

loop:
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		name, param, _ := strings.Cut(part, "=")
		switch name {
		case "":
			continue
		case "dive":
			break loop
		case "required":
			required = true
		case "omitempty":
			out = append(out, "nullable")
		case "email":
			out = append(out, "email")
		case "url", "uri", "http_url":
			out = append(out, "url")
		case "uuid", "uuid4", "uuid_rfc4122":
			out = append(out, "uuid")
		case "min", "gte":
			out = append(out, "min:"+param)
		case "max", "lte":
			out = append(out, "max:"+param)
		case "len":
			out = append(out, "size:"+param)
		case "oneof":
			out = append(out, "in:"+strings.Join(strings.Fields(param), ","))
		case "numeric", "number":
			out = append(out, "numeric")
		case "boolean":
			out = append(out, "boolean")
		case "datetime":
			out = append(out, "date_format:"+param)
		case "alpha":
			out = append(out, "alpha")
		case "alphanum":
			out = append(out, "alpha_num")
		case "ip", "ipv4", "ipv6":
			out = append(out, name)
		}
	}

	if typ := typeToken(t); typ != "" && !containsToken(out, typ) {
		out = append([]string{typ}, out...)
	}
	if required {
		out = append([]string{"required"}, out...)
	}
	return out
}

func typeToken(t reflect.Type) string {
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return "date"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "numeric"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return ""
	}
}

func containsToken(tokens []string, name string) bool {
	for _, t := range tokens {
		if n, _ := Split(t); n == name {
			return true
		}
	}
	return false
}

// FromStruct reads `validate` tags of a struct type. Field names come from json tags.
// Fields without a validate tag are skipped.
func FromStruct(t reflect.Type) *Set {
	set := NewSet()
	if t == nil {
		return set
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return set
	}
	collectTags(t, set)
	return set
}

func collectTags(t reflect.Type, set *Set) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Tag.Get("json") == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				collectTags(ft, set)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		tag, ok := f.Tag.Lookup("validate")
		if !ok || tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		set.Set(name, FromTag(tag, f.Type))
	}
}

package registry

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/kolah/routedoc/internal/jsonx"
	"github.com/kolah/routedoc/internal/naming"
)

// Model describes a persisted entity: its table, fields and relations.
type Model struct {
	Name  string
	Table string
	// Fields lists every attribute name in declaration order.
	Fields   []string
	Fillable []string
	Hidden   []string
	// Casts maps attributes to declared types (integer, float, boolean, datetime, array, ...).
	Casts       *jsonx.Map[string]
	Relations   []Relation
	SoftDeletes bool
}

type Relation struct {
	Name string
	Type string
}

// Cast returns the declared type of a field.
func (m *Model) Cast(field string) (string, bool) {
	if m == nil || m.Casts == nil {
		return "", false
	}
	return m.Casts.Get(field)
}

// Optional methods a registered model type may implement. They are called on a zero
// value, so they must not depend on initialised state.
type (
	tableNamer interface{ TableName() string }
	fillabler  interface{ Fillable() []string }
	hider      interface{ Hidden() []string }
	caster     interface{ Casts() map[string]string }
	relater    interface{ Relations() map[string]string }
)

var systemFields = []string{"id", "created_at", "updated_at", "deleted_at"}

var timeType = reflect.TypeOf(time.Time{})

// DescribeModel reads a model descriptor from a Go struct. Attributes come from json tags;
// the model tag marks fillable, hidden, relation and cast=<type> fields. Without any
// fillable marker every non-system attribute is fillable.
func DescribeModel(name string, v any) (m *Model, err error) {
	if v == nil {
		return nil, fmt.Errorf("nil model value")
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s is not a struct", t)
	}

	defer func() {
		if r := recover(); r != nil {
			m, err = nil, fmt.Errorf("describing %s: %v", t, r)
		}
	}()

	m = &Model{
		Name:  name,
		Table: naming.SnakeCase(naming.Plural(t.Name())),
		Casts: jsonx.NewMap[string](),
	}

	var taggedFillable, hidden []string
	collectFields(t, m, &taggedFillable, &hidden)

	zero := reflect.New(t).Interface()
	if tn, ok := zero.(tableNamer); ok {
		m.Table = tn.TableName()
	}

	m.Hidden = hidden
	if h, ok := zero.(hider); ok {
		m.Hidden = h.Hidden()
	}

	switch f, ok := zero.(fillabler); {
	case ok:
		m.Fillable = f.Fillable()
	case len(taggedFillable) > 0:
		m.Fillable = taggedFillable
	default:
		for _, field := range m.Fields {
			if !slices.Contains(systemFields, field) && !slices.Contains(m.Hidden, field) {
				m.Fillable = append(m.Fillable, field)
			}
		}
	}

	if c, ok := zero.(caster); ok {
		casts := c.Casts()
		for _, k := range sortedKeys(casts) {
			m.Casts.Set(k, casts[k])
		}
	}

	if rel, ok := zero.(relater); ok {
		declared := rel.Relations()
		m.Relations = nil
		for _, k := range sortedKeys(declared) {
			m.Relations = append(m.Relations, Relation{Name: k, Type: declared[k]})
		}
	}

	return m, nil
}

func collectFields(t reflect.Type, m *Model, fillable, hidden *[]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Tag.Get("json") == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct && ft != timeType {
				collectFields(ft, m, fillable, hidden)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}

		name := jsonName(f)
		if name == "" {
			continue
		}

		opts := parseModelTag(f.Tag.Get("model"))
		if f.Name == "DeletedAt" || name == "deleted_at" {
			m.SoftDeletes = true
		}

		if relType, ok := opts["relation"]; ok || isRelationField(f.Type) {
			if relType == "" {
				relType = inferRelation(f.Type)
			}
			m.Relations = append(m.Relations, Relation{Name: name, Type: relType})
			continue
		}

		m.Fields = append(m.Fields, name)
		if _, ok := opts["fillable"]; ok {
			*fillable = append(*fillable, name)
		}
		if _, ok := opts["hidden"]; ok {
			*hidden = append(*hidden, name)
		}
		if cast, ok := opts["cast"]; ok && cast != "" {
			m.Casts.Set(name, cast)
		} else if cast := castForType(f.Type); cast != "" {
			m.Casts.Set(name, cast)
		}
	}
}

func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		name = naming.SnakeCase(f.Name)
	}
	return name
}

// parseModelTag reads `model:"fillable,hidden,cast=datetime,relation=HasMany"`.
func parseModelTag(tag string) map[string]string {
	opts := make(map[string]string)
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		opts[key] = value
	}
	return opts
}

func isRelationField(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct && t != timeType && t.PkgPath() != "" && hasJSONFields(t)
}

func hasJSONFields(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		if _, ok := t.Field(i).Tag.Lookup("json"); ok {
			return true
		}
	}
	return false
}

func inferRelation(t reflect.Type) string {
	if t.Kind() == reflect.Slice {
		return "HasMany"
	}
	return "BelongsTo"
}

func castForType(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return "datetime"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "float"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array, reflect.Map:
		return "array"
	default:
		return ""
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func defaultTable(name string) string {
	return naming.SnakeCase(naming.Plural(basename(name)))
}

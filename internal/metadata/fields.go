package metadata

import (
	"fmt"
	"strings"

	"github.com/kolah/routedoc/internal/jsonx"
	"github.com/kolah/routedoc/internal/model"
	"github.com/kolah/routedoc/internal/registry"
)

const exampleTimestamp = "2024-12-25T10:00:00Z"

var numericFields = map[string]bool{
	"price":    true,
	"amount":   true,
	"quantity": true,
	"total":    true,
	"count":    true,
}

// systemFields never appear in request payloads built from a model.
var systemFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"deleted_at": true,
}

// inferFieldType guesses the type of an attribute without a cast from its name.
func inferFieldType(field string) string {
	switch {
	case strings.HasSuffix(field, "_id"):
		return "integer"
	case strings.HasPrefix(field, "is_") || strings.HasPrefix(field, "has_") || strings.HasPrefix(field, "can_"):
		return "boolean"
	case strings.HasSuffix(field, "_at") || strings.HasSuffix(field, "_date"):
		return "datetime"
	case numericFields[field]:
		return "number"
	}
	return "string"
}

// modelFields maps every fillable attribute to its cast or inferred type.
func modelFields(m *registry.Model) *jsonx.Map[string] {
	out := jsonx.NewMap[string]()
	if m == nil {
		return out
	}
	for _, f := range m.Fillable {
		if cast, ok := m.Cast(f); ok {
			out.Set(f, cast)
			continue
		}
		out.Set(f, inferFieldType(f))
	}
	return out
}

func fieldTypeToSchema(typ string) *model.Schema {
	switch strings.ToLower(typ) {
	case "integer", "int":
		return &model.Schema{Type: model.TypeInteger, Example: 1}
	case "boolean", "bool":
		return &model.Schema{Type: model.TypeBoolean, Example: false}
	case "datetime", "timestamp":
		return &model.Schema{Type: model.TypeString, Format: "date-time", Example: exampleTimestamp}
	case "date":
		return &model.Schema{Type: model.TypeString, Format: "date", Example: "2024-12-25"}
	case "float", "double", "decimal", "number":
		return &model.Schema{Type: model.TypeNumber, Example: 0.0}
	case "array", "json":
		return &model.Schema{Type: model.TypeArray, Items: &model.Schema{Type: model.TypeString}}
	}
	return &model.Schema{Type: model.TypeString, Example: ""}
}

// modelSchema describes a stored resource: id, the fillable attributes and timestamps.
func modelSchema(fields *jsonx.Map[string]) *model.Schema {
	s := model.NewObject()
	if fields.Len() == 0 {
		s.Properties.Set("id", &model.Schema{Type: model.TypeInteger})
		return s
	}
	s.Properties.Set("id", &model.Schema{Type: model.TypeInteger, Example: 1})
	fields.Each(func(name, typ string) bool {
		s.Properties.Set(name, fieldTypeToSchema(typ))
		return true
	})
	s.Properties.Set("created_at", &model.Schema{Type: model.TypeString, Format: "date-time", Example: exampleTimestamp})
	s.Properties.Set("updated_at", &model.Schema{Type: model.TypeString, Format: "date-time", Example: exampleTimestamp})
	return s
}

// schemaExample collects the property examples of an object schema; properties without
// one are null.
func schemaExample(s *model.Schema) *jsonx.Object {
	out := jsonx.NewObject()
	if s == nil || s.Properties == nil {
		return out
	}
	s.Properties.Each(func(name string, prop *model.Schema) bool {
		out.Set(name, prop.Example)
		return true
	})
	return out
}

func defaultAttrExamples() *jsonx.Object {
	out := jsonx.NewObject()
	out.Set("status", "active")
	out.Set("type", []any{"type1", "type2"})
	return out
}

// attrExamples are filter examples for the first two attributes.
func attrExamples(fields *jsonx.Map[string]) *jsonx.Object {
	if fields.Len() == 0 {
		return defaultAttrExamples()
	}
	out := jsonx.NewObject()
	for _, name := range firstKeys(fields, 2) {
		typ, _ := fields.Get(name)
		switch typ {
		case "string":
			out.Set(name, "value")
		case "integer":
			out.Set(name, []any{1, 2, 3})
		case "boolean":
			out.Set(name, true)
		}
	}
	if out.Len() == 0 {
		out.Set("status", "active")
	}
	return out
}

func condition(index, expr string) *jsonx.Object {
	o := jsonx.NewObject()
	o.Set(index, expr)
	return o
}

func group(op string, items ...any) *jsonx.Object {
	o := jsonx.NewObject()
	o.Set(op, items)
	return o
}

// operExamples are nested and/or filter expressions on the first attribute.
func operExamples(fields *jsonx.Map[string]) []any {
	field := "id"
	if keys := firstKeys(fields, 1); len(keys) > 0 {
		field = keys[0]
	}
	return []any{
		group("and", group("or",
			condition("0", fmt.Sprintf("<|%s|100", field)),
			condition("1", fmt.Sprintf("like|%s|%%search%%|0", field)),
		)),
		group("and", group("and",
			condition("0", fmt.Sprintf(">|%s|50", field)),
			condition("1", fmt.Sprintf("like|%s|%%value%%|0", field)),
		)),
	}
}

// orderByExamples are encoded sort clauses: descending on the first attribute,
// ascending on the second.
func orderByExamples(fields *jsonx.Map[string]) []any {
	keys := firstKeys(fields, 2)
	if len(keys) == 0 {
		return []any{`{"created_at":"desc"}`, `{"iid":"asc"}`}
	}
	out := make([]any, 0, len(keys))
	for i, name := range keys {
		dir := "asc"
		if i == 0 {
			dir = "desc"
		}
		out = append(out, fmt.Sprintf(`{"%s":"%s"}`, name, dir))
	}
	return out
}

func relationsDescription(relations []registry.Relation) string {
	if len(relations) == 0 {
		return "No relations available."
	}
	lines := make([]string, 0, len(relations))
	for _, r := range relations {
		lines = append(lines, fmt.Sprintf("- **%s** (%s)", r.Name, r.Type))
	}
	return strings.Join(lines, "\n")
}

func firstKeys[V any](m *jsonx.Map[V], n int) []string {
	keys := m.Keys()
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

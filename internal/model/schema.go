package model

import (
	"github.com/kolah/routedoc/internal/jsonx"
)

type Schema struct {
	Ref         string     `json:"$ref,omitempty"`
	Type        SchemaType `json:"type,omitempty"`
	Format      string     `json:"format,omitempty"`
	Description string     `json:"description,omitempty"`
	Pattern     string     `json:"pattern,omitempty"`
	Enum        []any      `json:"enum,omitempty"`
	Nullable    bool       `json:"nullable,omitempty"`

	// Object properties
	Properties *jsonx.Map[*Schema] `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`

	// Array items
	Items *Schema `json:"items,omitempty"`

	// Additional properties for maps
	AdditionalProperties *Schema `json:"additionalProperties,omitempty"`

	// Constraints
	Minimum   *float64 `json:"minimum,omitempty"`
	Maximum   *float64 `json:"maximum,omitempty"`
	MinLength *int64   `json:"minLength,omitempty"`
	MaxLength *int64   `json:"maxLength,omitempty"`

	Example any `json:"example,omitempty"`
}

type SchemaType string

const (
	TypeString  SchemaType = "string"
	TypeNumber  SchemaType = "number"
	TypeInteger SchemaType = "integer"
	TypeBoolean SchemaType = "boolean"
	TypeArray   SchemaType = "array"
	TypeObject  SchemaType = "object"
)

// NewObject returns an object schema with an empty, ordered property map.
func NewObject() *Schema {
	return &Schema{Type: TypeObject, Properties: jsonx.NewMap[*Schema]()}
}

// Ref returns a schema pointing at a component schema.
func Ref(name string) *Schema {
	return &Schema{Ref: "#/components/schemas/" + name}
}

// Property returns a named property of an object schema.
func (s *Schema) Property(name string) (*Schema, bool) {
	if s == nil || s.Properties == nil {
		return nil, false
	}
	return s.Properties.Get(name)
}

// IsRequired reports whether name is listed as required.
func (s *Schema) IsRequired(name string) bool {
	if s == nil {
		return false
	}
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// EmptyValue is the blank value a request template uses for a field of this schema.
func (s *Schema) EmptyValue() any {
	if s == nil {
		return ""
	}
	switch s.Type {
	case TypeString, "":
		return ""
	case TypeInteger:
		return 0
	case TypeNumber:
		return 0.0
	case TypeBoolean:
		return false
	case TypeArray:
		return []any{}
	case TypeObject:
		return jsonx.NewObject()
	default:
		return nil
	}
}

// EmptyExample builds a request payload of blank values: one entry per property for
// objects, otherwise the schema's own empty value.
func (s *Schema) EmptyExample() any {
	if s != nil && s.Type == TypeObject && s.Properties != nil {
		out := jsonx.NewObject()
		s.Properties.Each(func(name string, prop *Schema) bool {
			out.Set(name, prop.EmptyValue())
			return true
		})
		return out
	}
	return s.EmptyValue()
}

type SecurityScheme struct {
	Type         SecuritySchemeType `json:"type"`
	Description  string             `json:"description,omitempty"`
	Name         string             `json:"name,omitempty"`
	In           string             `json:"in,omitempty"`
	Scheme       string             `json:"scheme,omitempty"`
	BearerFormat string             `json:"bearerFormat,omitempty"`
}

type SecuritySchemeType string

const (
	SecurityTypeAPIKey SecuritySchemeType = "apiKey"
	SecurityTypeHTTP   SecuritySchemeType = "http"
)

package rules

import (
	"strconv"
	"strings"
	"time"

	"github.com/kolah/routedoc/internal/jsonx"
	"github.com/kolah/routedoc/internal/model"
	"github.com/kolah/routedoc/internal/naming"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// Converter turns rule tokens into schemas and examples. Dates in examples come from
// the converter's clock so output is reproducible.
type Converter struct {
	now time.Time
}

func NewConverter(now time.Time) Converter {
	return Converter{now: now}
}

func (c Converter) today() string {
	return c.now.Format(dateLayout)
}

// Type infers the schema type: integer, numeric, boolean and array tokens win in that
// order; files and everything else are strings.
func Type(tokens []string) model.SchemaType {
	switch {
	case Has(tokens, "integer") || Has(tokens, "int"):
		return model.TypeInteger
	case Has(tokens, "numeric") || Has(tokens, "decimal"):
		return model.TypeNumber
	case Has(tokens, "boolean") || Has(tokens, "bool"):
		return model.TypeBoolean
	case Has(tokens, "array"):
		return model.TypeArray
	default:
		return model.TypeString
	}
}

// Schema builds the field schema for one rule list.
func (c Converter) Schema(tokens []string, field string) *model.Schema {
	s := &model.Schema{Type: Type(tokens)}
	if s.Type == model.TypeArray {
		s.Items = &model.Schema{Type: model.TypeString}
	}

	for _, token := range tokens {
		name, param := Split(token)
		switch name {
		case "min":
			setBound(s, param, true)
		case "max":
			setBound(s, param, false)
		case "size":
			setBound(s, param, true)
			setBound(s, param, false)
		case "between":
			lo, hi, _ := strings.Cut(param, ",")
			if v, err := strconv.ParseFloat(strings.TrimSpace(lo), 64); err == nil {
				s.Minimum = &v
			}
			if v, err := strconv.ParseFloat(strings.TrimSpace(hi), 64); err == nil {
				s.Maximum = &v
			}
		case "email":
			s.Format = "email"
		case "url":
			s.Format = "uri"
		case "uuid":
			s.Format = "uuid"
		case "date", "date_format":
			s.Format = "date"
		case "regex":
			s.Pattern = trimDelimiters(param)
		case "in":
			for _, v := range listParam(param) {
				s.Enum = append(s.Enum, v)
			}
		case "nullable":
			s.Nullable = true
		}
	}

	s.Example = c.Example(tokens, field)
	return s
}

// setBound applies min/max as a length for strings and a magnitude for numbers.
func setBound(s *model.Schema, param string, lower bool) {
	switch s.Type {
	case model.TypeString:
		n, err := strconv.ParseInt(strings.TrimSpace(param), 10, 64)
		if err != nil {
			return
		}
		if lower {
			s.MinLength = &n
		} else {
			s.MaxLength = &n
		}
	case model.TypeInteger, model.TypeNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(param), 64)
		if err != nil {
			return
		}
		if lower {
			s.Minimum = &f
		} else {
			s.Maximum = &f
		}
	}
}

func trimDelimiters(pattern string) string {
	if len(pattern) >= 2 && pattern[0] == '/' {
		if end := strings.LastIndex(pattern, "/"); end > 0 {
			return pattern[1:end]
		}
	}
	return pattern
}

func listParam(param string) []string {
	var out []string
	for _, v := range strings.Split(param, ",") {
		v = strings.Trim(strings.TrimSpace(v), `"'`)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Example picks an example value. The field name is consulted before the rule types.
func (c Converter) Example(tokens []string, field string) any {
	if v, ok := c.Sniff(field); ok {
		return v
	}
	if values, ok := Param(tokens, "in"); ok {
		if list := listParam(values); len(list) > 0 {
			return list[0]
		}
	}
	switch Type(tokens) {
	case model.TypeInteger:
		return 0
	case model.TypeNumber:
		return 0.0
	case model.TypeBoolean:
		return false
	case model.TypeArray:
		return []any{}
	}
	if Has(tokens, "date") || Has(tokens, "date_format") {
		return c.today()
	}
	return ""
}

// Sniff derives a realistic example from the field name alone.
func (c Converter) Sniff(field string) (any, bool) {
	f := strings.ToLower(field)
	switch {
	case f == "id" || strings.HasSuffix(f, "_id"):
		return 1, true
	case strings.Contains(f, "email"):
		return "user@example.com", true
	case strings.Contains(f, "phone") || hasWord(field, "tel"):
		return "+1234567890", true
	case strings.Contains(f, "url") || strings.Contains(f, "link") || strings.Contains(f, "website"):
		return "https://example.com", true
	case strings.Contains(f, "password"):
		return "password123", true
	case strings.Contains(f, "date") && !containsAny(f, "update", "create", "delete"):
		return c.today(), true
	}
	return nil, false
}

// CastExample is the example for a model attribute with a declared cast type.
func (c Converter) CastExample(cast, field string) any {
	if v, ok := c.Sniff(field); ok {
		return v
	}
	switch strings.ToLower(cast) {
	case "int", "integer":
		return 0
	case "float", "double", "decimal", "number":
		return 0.0
	case "bool", "boolean":
		return false
	case "array", "json", "collection":
		return []any{}
	case "date":
		return c.today()
	case "datetime", "timestamp":
		return c.now.Format(dateTimeLayout)
	default:
		return ""
	}
}

// Object builds the request schema and example for a whole rule set.
func (c Converter) Object(set *Set) (*model.Schema, *jsonx.Object) {
	schema := model.NewObject()
	example := jsonx.NewObject()
	set.Each(func(field string, tokens []string) bool {
		prop := c.Schema(tokens, field)
		schema.Properties.Set(field, prop)
		example.Set(field, prop.Example)
		return true
	})
	schema.Required = Required(set)
	return schema, example
}

// hasWord reports whether word is one of the words of a snake, kebab or camel case name.
func hasWord(name, word string) bool {
	for _, w := range strings.Split(naming.SnakeCase(name), "_") {
		if w == word {
			return true
		}
	}
	return false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

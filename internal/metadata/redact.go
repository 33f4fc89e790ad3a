package metadata

import (
	"strings"

	"github.com/kolah/routedoc/internal/jsonx"
	"github.com/kolah/routedoc/internal/model"
)

// redact removes sanitized fields from every example of the record. Schema properties
// stay so requests still document the field, but lose their example value.
func (e *Extractor) redact(md *Metadata) {
	if len(e.sanitize) == 0 {
		return
	}
	e.redactValue(md.RequestExample)
	e.redactValue(md.ResponseExample)
	e.redactValue(md.AttrExamples)
	e.redactSchema(md.RequestSchema)
	e.redactSchema(md.ModelSchema)
	e.redactValue(md.Extra)
}

func (e *Extractor) sanitized(field string) bool {
	return e.sanitize[strings.ToLower(field)]
}

func (e *Extractor) redactValue(v any) {
	switch t := v.(type) {
	case *jsonx.Object:
		for _, k := range t.Keys() {
			if e.sanitized(k) {
				t.Delete(k)
				continue
			}
			val, _ := t.Get(k)
			e.redactValue(val)
		}
	case []any:
		for _, item := range t {
			e.redactValue(item)
		}
	case *model.Schema:
		e.redactSchema(t)
	}
}

func (e *Extractor) redactSchema(s *model.Schema) {
	if s == nil {
		return
	}
	e.redactValue(s.Example)
	s.Properties.Each(func(name string, prop *model.Schema) bool {
		if e.sanitized(name) {
			prop.Example = nil
		}
		e.redactSchema(prop)
		return true
	})
	e.redactSchema(s.Items)
	e.redactSchema(s.AdditionalProperties)
}

package metadata

import (
	"fmt"

	"github.com/kolah/routedoc/internal/extract"
	"github.com/kolah/routedoc/internal/jsonx"
	"github.com/kolah/routedoc/internal/naming"
	"github.com/kolah/routedoc/internal/registry"
	"github.com/kolah/routedoc/internal/rules"
)

// Source contributes to a metadata record. Sources run from the highest priority number
// to the lowest, so a lower number overrides what earlier sources wrote.
type Source interface {
	Name() string
	Priority() int
	CanExtract(req Request) bool
	Extract(req Request, md *Metadata) error
}

const (
	PriorityConfig    = 5
	PriorityModel     = 4
	PriorityValidator = 3
	PriorityCustom    = 1
)

// ConfigSource writes the defaults every record has, whatever else is registered.
type ConfigSource struct {
	EntityDescriptions map[string]string
}

func (ConfigSource) Name() string            { return "config" }
func (ConfigSource) Priority() int           { return PriorityConfig }
func (ConfigSource) CanExtract(Request) bool { return true }

func (s ConfigSource) Extract(req Request, md *Metadata) error {
	md.TableDescription = s.tableDescription(req)
	md.ModelSchema = modelSchema(md.AvailableFields)
	md.ResponseExample = schemaExample(md.ModelSchema)
	md.AttrExamples = defaultAttrExamples()
	md.OperExamples = operExamples(md.AvailableFields)
	md.OrderByExamples = orderByExamples(md.AvailableFields)
	md.RelationsDescription = relationsDescription(nil)
	md.ValidationDescription = rules.Describe(nil)
	md.ValidationErrorsExample = validationErrorsExample(nil)
	return nil
}

func (s ConfigSource) tableDescription(req Request) string {
	if d, ok := s.EntityDescriptions[req.Entity]; ok && d != "" {
		return d
	}
	return fmt.Sprintf("Manage %s in the %s module.", naming.PluralTitle(req.Entity), req.Module)
}

// ModelSource reads the registered model of the entity.
type ModelSource struct {
	Registry *registry.Registry
}

func (ModelSource) Name() string  { return "model" }
func (ModelSource) Priority() int { return PriorityModel }

func (s ModelSource) CanExtract(req Request) bool {
	_, ok := s.Registry.FindModel(req.Entity, req.Module)
	return ok
}

func (s ModelSource) Extract(req Request, md *Metadata) error {
	m, ok := s.Registry.FindModel(req.Entity, req.Module)
	if !ok {
		return fmt.Errorf("no model for %s.%s", req.Module, req.Entity)
	}

	md.Model = m
	md.TableName = m.Table
	md.FillableFields = append([]string(nil), m.Fillable...)
	md.HiddenFields = append([]string(nil), m.Hidden...)
	md.SoftDeletes = m.SoftDeletes
	md.Casts = jsonx.NewMap[string]()
	m.Casts.Each(func(k, v string) bool {
		md.Casts.Set(k, v)
		return true
	})
	md.AvailableRelations = make([]string, 0, len(m.Relations))
	for _, r := range m.Relations {
		md.AvailableRelations = append(md.AvailableRelations, r.Name)
	}
	md.RelationsDescription = relationsDescription(m.Relations)

	md.AvailableFields = modelFields(m)
	md.ModelSchema = modelSchema(md.AvailableFields)
	md.ResponseExample = schemaExample(md.ModelSchema)
	md.AttrExamples = attrExamples(md.AvailableFields)
	md.OperExamples = operExamples(md.AvailableFields)
	md.OrderByExamples = orderByExamples(md.AvailableFields)
	return nil
}

// ValidatorSource finds the validator of the operation and reads its rules for the
// record's scenario.
type ValidatorSource struct {
	Registry  *registry.Registry
	Rules     *extract.Extractor
	Converter rules.Converter
}

func (ValidatorSource) Name() string  { return "validator" }
func (ValidatorSource) Priority() int { return PriorityValidator }

func (s ValidatorSource) CanExtract(req Request) bool {
	_, ok := s.find(req)
	return ok
}

// find tries the name candidates, then the parameters of the controller method.
func (s ValidatorSource) find(req Request) (*registry.Validator, bool) {
	if v, ok := s.Registry.FindValidator(req.Entity, req.Module, req.Action.String()); ok {
		return v, true
	}
	a := req.Route.Action
	if a.Controller == "" || a.Closure {
		return nil, false
	}
	method := a.Method
	if method == "" {
		method = req.Action.String()
	}
	return s.Registry.ValidatorForMethod(a.Controller, method)
}

func (s ValidatorSource) Extract(req Request, md *Metadata) error {
	v, ok := s.find(req)
	if !ok {
		return fmt.Errorf("no validator for %s.%s.%s", req.Module, req.Entity, req.Action)
	}
	md.Validator = v.Name

	res := s.Rules.Rules(v, md.Scenario)
	if res.Empty() {
		return nil
	}
	md.RuleStrategy = res.Strategy
	md.ValidationRules = res.Rules
	md.RequiredFields = rules.Required(res.Rules)
	md.RequestSchema, md.RequestExample = s.Converter.Object(res.Rules)
	md.ValidationDescription = rules.Describe(res.Rules)
	md.ValidationErrorsExample = validationErrorsExample(res.Rules)
	return nil
}

// validationErrorsExample shows the messages of the first two fields.
func validationErrorsExample(set *rules.Set) *jsonx.Object {
	out := jsonx.NewObject()
	if set == nil || set.Len() == 0 {
		out.Set("field", []any{"The field is required."})
		return out
	}
	for _, field := range firstKeys(set, 2) {
		out.Set(field, []any{fmt.Sprintf("The %s field is required.", field)})
	}
	return out
}

// Package metadata builds the documentation record of one (module, entity, action)
// combination from the registered model and validator of the entity.
package metadata

import (
	"github.com/kolah/routedoc/internal/classify"
	"github.com/kolah/routedoc/internal/jsonx"
	"github.com/kolah/routedoc/internal/model"
	"github.com/kolah/routedoc/internal/naming"
	"github.com/kolah/routedoc/internal/registry"
	"github.com/kolah/routedoc/internal/routes"
	"github.com/kolah/routedoc/internal/rules"
)

// Request identifies the operation metadata is extracted for.
type Request struct {
	Entity string
	Module string
	Action classify.Action
	// Route is used for controller lookups and scenario resolution; it may be zero.
	Route routes.Route
}

// Key identifies the operation as module.entity.action.
func (r Request) Key() string {
	return r.Module + "." + r.Entity + "." + r.Action.String()
}

// Metadata is the record templates and the assembler read. Values exposes it as the
// variable set of the template language.
type Metadata struct {
	Entity         string
	EntitySingular string
	EntityPlural   string
	EntityURL      string
	Module         string
	Action         classify.Action
	Scenario       string

	// Model is nil when no model is registered for the entity.
	Model              *registry.Model
	TableName          string
	AvailableFields    *jsonx.Map[string]
	AvailableRelations []string
	FillableFields     []string
	HiddenFields       []string
	Casts              *jsonx.Map[string]
	SoftDeletes        bool

	// Validator is the name of the validator the rules were read from.
	Validator       string
	RuleStrategy    string
	ValidationRules *rules.Set
	RequiredFields  []string

	ModelSchema     *model.Schema
	RequestSchema   *model.Schema
	RequestExample  *jsonx.Object
	ResponseExample *jsonx.Object

	AttrExamples    *jsonx.Object
	OperExamples    []any
	OrderByExamples []any

	TableDescription        string
	ValidationDescription   string
	ValidationErrorsExample *jsonx.Object
	RelationsDescription    string

	// Degraded is set when neither rules nor model fields could describe the request.
	Degraded bool

	// Extra holds values set by custom sources. They override the record's own keys.
	Extra *jsonx.Object
}

func newMetadata(req Request, scenario string) *Metadata {
	return &Metadata{
		Entity:          req.Entity,
		EntitySingular:  naming.SingularTitle(req.Entity),
		EntityPlural:    naming.PluralTitle(req.Entity),
		EntityURL:       naming.KebabCase(req.Entity),
		Module:          req.Module,
		Action:          req.Action,
		Scenario:        scenario,
		AvailableFields: jsonx.NewMap[string](),
		Casts:           jsonx.NewMap[string](),
		ValidationRules: rules.NewSet(),
		Extra:           jsonx.NewObject(),
	}
}

// HasValidation reports whether rules were found for the scenario.
func (m *Metadata) HasValidation() bool {
	return m.ValidationRules != nil && m.ValidationRules.Len() > 0
}

func (m *Metadata) HasRelations() bool {
	return len(m.AvailableRelations) > 0
}

// ModelName is the qualified name of the backing model, empty without one.
func (m *Metadata) ModelName() string {
	if m.Model == nil {
		return ""
	}
	return m.Model.Name
}

// Values renders the record as template variables, in a stable key order.
func (m *Metadata) Values() *jsonx.Object {
	v := jsonx.NewObject()
	v.Set("entity", m.Entity)
	v.Set("entity_singular", m.EntitySingular)
	v.Set("entity_plural", m.EntityPlural)
	v.Set("entity_url", m.EntityURL)
	v.Set("module", m.Module)
	v.Set("action", m.Action.String())
	v.Set("scenario", m.Scenario)
	v.Set("table_name", nullable(m.TableName))
	v.Set("model_class", nullable(m.ModelName()))
	v.Set("available_fields", mapValue(m.AvailableFields))
	v.Set("available_relations", anySlice(m.AvailableRelations))
	v.Set("fillable_fields", anySlice(m.FillableFields))
	v.Set("hidden_fields", anySlice(m.HiddenFields))
	v.Set("casts", mapValue(m.Casts))
	v.Set("has_relations", m.HasRelations())
	v.Set("soft_deletes", m.SoftDeletes)
	v.Set("validator_class", nullable(m.Validator))
	v.Set("validation_rules", rulesValue(m.ValidationRules))
	v.Set("required_fields", anySlice(m.RequiredFields))
	v.Set("has_validation", m.HasValidation())
	v.Set("model_schema", m.ModelSchema)
	v.Set("request_schema", m.RequestSchema)
	v.Set("request_example", m.RequestExample)
	v.Set("response_example", m.ResponseExample)
	v.Set("attr_examples", m.AttrExamples)
	v.Set("oper_examples", m.OperExamples)
	v.Set("orderby_examples", m.OrderByExamples)
	v.Set("table_description", m.TableDescription)
	v.Set("validation_description", m.ValidationDescription)
	v.Set("validation_errors_example", m.ValidationErrorsExample)
	v.Set("relations_list", anySlice(m.AvailableRelations))
	v.Set("relations_description", m.RelationsDescription)
	v.Set("degraded", m.Degraded)

	if m.Extra != nil {
		m.Extra.Each(func(k string, val any) bool {
			v.Set(k, val)
			return true
		})
	}
	return v
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func mapValue(m *jsonx.Map[string]) *jsonx.Object {
	out := jsonx.NewObject()
	if m == nil {
		return out
	}
	m.Each(func(k, v string) bool {
		out.Set(k, v)
		return true
	})
	return out
}

func rulesValue(set *rules.Set) *jsonx.Object {
	out := jsonx.NewObject()
	if set == nil {
		return out
	}
	set.Each(func(field string, tokens []string) bool {
		out.Set(field, rules.Join(tokens))
		return true
	})
	return out
}

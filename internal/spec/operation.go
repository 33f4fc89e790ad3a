package spec

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/kolah/routedoc/internal/classify"
	"github.com/kolah/routedoc/internal/jsonx"
	"github.com/kolah/routedoc/internal/model"
	"github.com/kolah/routedoc/internal/naming"
	"github.com/kolah/routedoc/internal/routes"
	"github.com/kolah/routedoc/internal/templates"
)

// reservedExtensions are set from the route and never taken from a template.
var reservedExtensions = map[string]bool{
	"x-api-type":    true,
	"x-module":      true,
	"x-entity":      true,
	"x-action-type": true,
}

func (b *builder) operation(rt routes.Route, cl classify.Route, t apiType, m model.Method, action classify.Action, doc *templates.Documentation) *model.Operation {
	id := cl.Module + "." + cl.Entity + "." + action.String()

	description := doc.Description
	if description == "" {
		description = routeDescription(rt, m)
	}

	op := &model.Operation{
		ID:          id,
		Summary:     "[" + strings.ToUpper(t.Key) + "] " + id,
		Description: description,
		Tags:        []string{b.tag(cl.Entity, t)},
		Parameters:  b.parameters(cl, action),
		Responses:   b.responses(m, action, doc),
		Security:    b.security(rt.Middleware),
		APIType:     t.Key,
		Module:      cl.Module,
		Entity:      cl.Entity,
		ActionType:  action.String(),
		Extensions:  extensions(doc.Document),
	}
	if m.HasBody() {
		op.RequestBody = requestBody(doc)
	}
	return op
}

func routeDescription(rt routes.Route, m model.Method) string {
	if rt.Name != "" {
		return "Named route: " + rt.Name + " | Method: " + string(m) + " | Path: " + rt.URI
	}
	return "Method: " + string(m) + " | Path: " + rt.URI
}

func (b *builder) parameters(cl classify.Route, action classify.Action) []model.Parameter {
	params := make([]model.Parameter, 0, len(cl.Params))
	for _, p := range cl.Params {
		params = append(params, model.Parameter{
			Name:         p.Name,
			In:           model.LocationPath,
			Required:     !p.Optional,
			Description:  naming.Ucfirst(p.Name) + " identifier",
			Schema:       parameterSchema(p.Name),
			VariableName: b.variableName(p.Name, cl.Entity, action),
		})
	}
	return params
}

// variableName picks the variable a path parameter is filled from. Actions on one
// existing resource use the entity's tracking variable when it is registered and the
// parameter is the entity's identifier; everything else uses the parameter name.
func (b *builder) variableName(param, entity string, action classify.Action) string {
	if !action.Targets() {
		return param
	}
	global := naming.TrackingVariable(entity)
	if _, ok := b.cfg.Base().TrackingVariables[global]; !ok {
		return param
	}
	if param == "id" || param == entity+"_id" || param == naming.SnakeCase(entity)+"_id" {
		return global
	}
	return param
}

func parameterSchema(name string) *model.Schema {
	switch {
	case name == "id" || strings.HasSuffix(name, "_id"):
		return &model.Schema{Type: model.TypeInteger, Format: "int64", Example: 1}
	case strings.Contains(name, "uuid"):
		return &model.Schema{Type: model.TypeString, Format: "uuid", Example: "550e8400-e29b-41d4-a716-446655440000"}
	case strings.HasSuffix(name, "slug"):
		return &model.Schema{Type: model.TypeString, Pattern: "^[a-z0-9-]+$", Example: "example-slug"}
	}
	return &model.Schema{Type: model.TypeString, Example: "value"}
}

func (b *builder) responses(m model.Method, action classify.Action, doc *templates.Documentation) *jsonx.Map[*model.Response] {
	out := jsonx.NewMap[*model.Response]()

	success := http.StatusOK
	if m == model.MethodPost && action.Kind == classify.Create {
		success = http.StatusCreated
	}
	ok := b.response(success)
	if md := doc.Metadata; md != nil && md.ResponseExample != nil {
		ok.Content = model.JSONContent(md.ModelSchema, md.ResponseExample)
	}
	out.Set(strconv.Itoa(success), ok)

	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		r := b.response(code)
		r.Content = model.JSONContent(model.Ref("Error"), nil)
		out.Set(strconv.Itoa(code), r)
	}

	name := action.String()
	if strings.Contains(name, "show") || strings.Contains(name, "update") || strings.Contains(name, "delete") {
		r := b.response(http.StatusNotFound)
		r.Content = model.JSONContent(model.Ref("Error"), nil)
		out.Set(strconv.Itoa(http.StatusNotFound), r)
	}
	if m.HasBody() {
		r := b.response(http.StatusUnprocessableEntity)
		r.Content = model.JSONContent(model.Ref("ValidationError"), nil)
		out.Set(strconv.Itoa(http.StatusUnprocessableEntity), r)
	}

	r := b.response(http.StatusInternalServerError)
	r.Content = model.JSONContent(model.Ref("Error"), nil)
	out.Set(strconv.Itoa(http.StatusInternalServerError), r)
	return out
}

func (b *builder) response(code int) *model.Response {
	description, ok := b.cfg.Responses[strconv.Itoa(code)]
	if !ok {
		description = http.StatusText(code)
	}
	return &model.Response{Description: description}
}

func (b *builder) security(middleware []string) []model.SecurityRequirement {
	var out []model.SecurityRequirement
	seen := make(map[string]bool)
	for _, mw := range middleware {
		for _, binding := range b.cfg.Security.Middleware {
			if binding.Middleware != mw {
				continue
			}
			for _, scheme := range binding.Schemes {
				if seen[scheme] {
					continue
				}
				seen[scheme] = true
				out = append(out, model.SecurityRequirement{scheme: []string{}})
			}
		}
	}
	return out
}

// requestBody uses the resolved example and schema unless the example is empty or the
// generic single "data" placeholder.
func requestBody(doc *templates.Documentation) *model.RequestBody {
	ex := doc.RequestExample
	if ex != nil && ex.Len() > 0 && !(ex.Len() == 1 && ex.Has("data")) {
		schema := doc.RequestSchema
		if schema == nil {
			schema = model.NewObject()
		}
		return &model.RequestBody{Required: true, Content: model.JSONContent(schema, ex)}
	}

	schema := model.NewObject()
	schema.Properties.Set("data", &model.Schema{Type: model.TypeObject, Description: "Request payload"})
	return &model.RequestBody{Required: true, Content: model.JSONContent(schema, nil)}
}

func extensions(document *jsonx.Object) *jsonx.Object {
	if document == nil {
		return nil
	}
	out := jsonx.NewObject()
	document.Each(func(key string, value any) bool {
		if strings.HasPrefix(key, "x-") && !reservedExtensions[key] {
			out.Set(key, value)
		}
		return true
	})
	if out.Len() == 0 {
		return nil
	}
	return out
}

package spec

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kolah/routedoc/internal/config"
	"github.com/kolah/routedoc/internal/extract"
	"github.com/kolah/routedoc/internal/jsonx"
	"github.com/kolah/routedoc/internal/model"
	"github.com/kolah/routedoc/internal/registry"
	"github.com/kolah/routedoc/internal/routes"
	"github.com/kolah/routedoc/internal/templates"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

type invoice struct {
	ID     int     `json:"id"`
	Number string  `json:"number"`
	Amount float64 `json:"amount"`
}

type user struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func object(pairs ...any) *jsonx.Object {
	obj := jsonx.NewObject()
	for i := 0; i+1 < len(pairs); i += 2 {
		obj.Set(pairs[i].(string), pairs[i+1])
	}
	return obj
}

func newConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFile("")
	require.NoError(t, err)
	base := cfg.Environments[config.BaseEnvironment]
	base.TrackingVariables = map[string]string{"last_users_id": ""}
	cfg.Environments[config.BaseEnvironment] = base
	return cfg
}

func newAssembler(t *testing.T, cfg *config.Config) *Assembler {
	t.Helper()
	reg := registry.New(registry.Options{})
	reg.RegisterModule("Billing")
	require.NoError(t, reg.RegisterModel("Modules.Billing.Entities.Invoice", invoice{}))
	require.NoError(t, reg.RegisterValidator("Modules.Billing.Http.Requests.InvoiceRequest", nil, registry.WithDeclaredRules(
		object("create", object("amount", "required|numeric", "email", "required|email")),
	)))
	require.NoError(t, reg.RegisterModel("App.Models.User", user{}))

	store, err := templates.NewStore()
	require.NoError(t, err)

	a, err := NewAssembler(cfg, reg, store, extract.New(zerolog.Nop()), zerolog.Nop(), WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return a
}

func assemble(t *testing.T, a *Assembler, rs []routes.Route, apiTypes []string, env string) *model.Document {
	t.Helper()
	doc, err := a.Assemble(a.NewRun(), rs, apiTypes, env)
	require.NoError(t, err)
	return doc
}

func operation(t *testing.T, doc *model.Document, path, method string) *model.Operation {
	t.Helper()
	item, ok := doc.Paths.Get(path)
	require.True(t, ok, "path %s", path)
	op, ok := item.Get(method)
	require.True(t, ok, "%s %s", method, path)
	return op
}

func TestAssembleCreateFromValidator(t *testing.T) {
	a := newAssembler(t, newConfig(t))
	doc := assemble(t, a, []routes.Route{
		{URI: "api/billing/invoices", Methods: []string{"POST"}, Middleware: []string{"auth:sanctum"}},
	}, nil, "")

	op := operation(t, doc, "/api/billing/invoices", "post")
	require.Equal(t, "Billing.invoices.create", op.ID)
	require.Equal(t, "[API] Billing.invoices.create", op.Summary)
	require.Equal(t, []string{"Invoices"}, op.Tags)
	require.Equal(t, "Billing", op.Module)
	require.Equal(t, "invoices", op.Entity)
	require.Equal(t, "create", op.ActionType)
	require.Equal(t, "api", op.APIType)
	require.True(t, op.HasSecurity("BearerAuth"))

	schema := op.JSONSchema()
	require.NotNil(t, schema)
	amount, ok := schema.Property("amount")
	require.True(t, ok)
	require.Equal(t, model.TypeNumber, amount.Type)
	email, ok := schema.Property("email")
	require.True(t, ok)
	require.Equal(t, model.TypeString, email.Type)
	require.Equal(t, "email", email.Format)
	require.Equal(t, []string{"amount", "email"}, schema.Required)

	mt, _ := op.RequestBody.Content.Get(model.MediaTypeJSON)
	example, ok := mt.Example.(*jsonx.Object)
	require.True(t, ok)
	v, _ := example.Get("amount")
	require.Equal(t, 0.0, v)
	v, _ = example.Get("email")
	require.Equal(t, "user@example.com", v)

	require.Equal(t, []string{"201", "401", "403", "422", "500"}, op.Responses.Keys())
	created, _ := op.Responses.Get("201")
	require.Equal(t, "Resource created successfully", created.Description)

	require.NotNil(t, op.Extensions)
	require.True(t, op.Extensions.Has("x-required-fields"))

	tag, ok := doc.Tag("Invoices")
	require.True(t, ok)
	require.Equal(t, "Invoices management endpoints", tag.Description)
	require.Equal(t, "api", tag.APIType)
	require.Equal(t, "Api", tag.DisplayName)
}

func TestAssembleGenericRequestBody(t *testing.T) {
	a := newAssembler(t, newConfig(t))
	doc := assemble(t, a, []routes.Route{
		{URI: "api/reports/generate", Methods: []string{"POST"}},
	}, nil, "")

	op := operation(t, doc, "/api/reports/generate", "post")
	schema := op.JSONSchema()
	require.Equal(t, []string{"data"}, schema.Properties.Keys())
	data, _ := schema.Property("data")
	require.Equal(t, "Request payload", data.Description)

	mt, _ := op.RequestBody.Content.Get(model.MediaTypeJSON)
	require.Nil(t, mt.Example)
}

func TestAssembleResponses(t *testing.T) {
	a := newAssembler(t, newConfig(t))
	doc := assemble(t, a, []routes.Route{
		{URI: "api/users/{id}", Methods: []string{"GET"}, Name: "users.show"},
		{URI: "api/users/{id}", Methods: []string{"DELETE"}, Name: "users.destroy"},
		{URI: "api/users/{id}/restore", Methods: []string{"POST"}},
	}, nil, "")

	require.Equal(t, []string{"200", "401", "403", "404", "500"}, operation(t, doc, "/api/users/{id}", "get").Responses.Keys())
	require.Equal(t, []string{"200", "401", "403", "404", "500"}, operation(t, doc, "/api/users/{id}", "delete").Responses.Keys())

	restore := operation(t, doc, "/api/users/{id}/restore", "post")
	require.Equal(t, "restore", restore.ActionType)
	require.Equal(t, []string{"200", "401", "403", "422", "500"}, restore.Responses.Keys())

	validation, _ := restore.Responses.Get("422")
	mt, _ := validation.Content.Get(model.MediaTypeJSON)
	require.Equal(t, "#/components/schemas/ValidationError", mt.Schema.Ref)
}

func TestAssembleModuleRootExcluded(t *testing.T) {
	a := newAssembler(t, newConfig(t))
	doc := assemble(t, a, []routes.Route{
		{URI: "api/billing", Methods: []string{"GET"}},
		{URI: "api/billing/invoices", Methods: []string{"GET"}},
	}, nil, "")

	require.Equal(t, []string{"/api/billing/invoices"}, doc.Paths.Keys())
}

func TestAssembleVariableScoping(t *testing.T) {
	a := newAssembler(t, newConfig(t))
	doc := assemble(t, a, []routes.Route{
		{URI: "api/users/{id}", Methods: []string{"GET"}, Name: "users.show"},
		{URI: "api/users/{id}/restore", Methods: []string{"POST"}},
		{URI: "api/billing/invoices/{id}", Methods: []string{"PUT"}, Name: "invoices.update"},
		{URI: "api/users/{id}/posts/{post_slug}", Methods: []string{"GET"}, Name: "users.posts.show"},
	}, nil, "")

	tests := []struct {
		path     string
		method   string
		param    string
		variable string
	}{
		{"/api/users/{id}", "get", "id", "last_users_id"},
		{"/api/users/{id}/restore", "post", "id", "id"},
		{"/api/billing/invoices/{id}", "put", "id", "id"},
		{"/api/users/{id}/posts/{post_slug}", "get", "post_slug", "post_slug"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			p, ok := operation(t, doc, tt.path, tt.method).Parameter(tt.param)
			require.True(t, ok)
			require.Equal(t, tt.variable, p.VariableName)
		})
	}
}

func TestParameterSchema(t *testing.T) {
	tests := []struct {
		name   string
		typ    model.SchemaType
		format string
	}{
		{"id", model.TypeInteger, "int64"},
		{"invoice_id", model.TypeInteger, "int64"},
		{"uuid", model.TypeString, "uuid"},
		{"order_uuid", model.TypeString, "uuid"},
		{"slug", model.TypeString, ""},
		{"token", model.TypeString, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := parameterSchema(tt.name)
			require.Equal(t, tt.typ, s.Type)
			require.Equal(t, tt.format, s.Format)
		})
	}
	require.Equal(t, "^[a-z0-9-]+$", parameterSchema("post_slug").Pattern)
}

func TestAssembleOptionalParameter(t *testing.T) {
	a := newAssembler(t, newConfig(t))
	doc := assemble(t, a, []routes.Route{
		{URI: "api/users/{id?}", Methods: []string{"GET"}},
	}, nil, "")

	p, ok := operation(t, doc, "/api/users/{id}", "get").Parameter("id")
	require.True(t, ok)
	require.False(t, p.Required)
	require.Equal(t, "Id identifier", p.Description)
}

func TestAssembleDuplicateOperationIDs(t *testing.T) {
	a := newAssembler(t, newConfig(t))
	doc, err := a.Assemble(a.NewRun(), []routes.Route{
		{URI: "api/users", Methods: []string{"GET"}},
		{URI: "api/users/{id}", Methods: []string{"GET"}},
	}, nil, "")

	var dup *DuplicateOperationError
	require.True(t, errors.As(err, &dup))
	require.Equal(t, []Duplicate{{
		OperationID: "general.users.list",
		Kept:        "GET /api/users",
		Dropped:     "GET /api/users/{id}",
	}}, dup.Duplicates)

	require.NotNil(t, doc)
	require.Equal(t, []string{"/api/users"}, doc.Paths.Keys())
	require.Equal(t, "general.users.list", operation(t, doc, "/api/users", "get").ID)
}

func TestAssembleMethodSuffixCollision(t *testing.T) {
	a := newAssembler(t, newConfig(t))
	doc, err := a.Assemble(a.NewRun(), []routes.Route{
		{URI: "api/users/{id}", Methods: []string{"POST"}, Action: routes.Action{Controller: "UserController", Method: "update.patch"}},
		{URI: "api/users/{id}", Methods: []string{"PUT", "PATCH"}},
	}, nil, "")

	var dup *DuplicateOperationError
	require.True(t, errors.As(err, &dup))
	require.Equal(t, []Duplicate{{
		OperationID: "general.users.update.patch",
		Kept:        "POST /api/users/{id}",
		Dropped:     "PATCH /api/users/{id}",
	}}, dup.Duplicates)

	item, _ := doc.Paths.Get("/api/users/{id}")
	require.Equal(t, []string{"post", "put"}, item.Keys())
}

func TestAssembleSameRouteMethods(t *testing.T) {
	a := newAssembler(t, newConfig(t))
	doc := assemble(t, a, []routes.Route{
		{URI: "api/users/{id}", Methods: []string{"PUT", "PATCH", "HEAD"}},
	}, nil, "")

	item, _ := doc.Paths.Get("/api/users/{id}")
	require.Equal(t, []string{"put", "patch"}, item.Keys())
	require.Equal(t, "general.users.update", operation(t, doc, "/api/users/{id}", "put").ID)
	require.Equal(t, "general.users.update.patch", operation(t, doc, "/api/users/{id}", "patch").ID)
}

func TestAssembleFilters(t *testing.T) {
	cfg := newConfig(t)
	cfg.Routes.ExcludeModules = []string{"reports"}
	cfg.Routes.ExcludeModuleRoutes = map[string][]string{"admin": {"billing"}}
	a := newAssembler(t, cfg)

	rs := []routes.Route{
		{URI: "api/users", Methods: []string{"GET"}},
		{URI: "api/telescope/requests", Methods: []string{"GET"}},
		{URI: "api/debug/assets", Methods: []string{"GET"}, Name: "debugbar.assets"},
		{URI: "web/home", Methods: []string{"GET"}},
		{URI: "api/reports/daily", Methods: []string{"GET"}},
		{URI: "admin/billing/invoices", Methods: []string{"GET"}},
		{URI: "admin/accounts", Methods: []string{"GET"}},
		{URI: "mobile/devices", Methods: []string{"GET"}},
	}

	tests := []struct {
		name     string
		apiTypes []string
		paths    []string
	}{
		{
			name:  "all api types",
			paths: []string{"/api/users", "/admin/accounts", "/mobile/devices"},
		},
		{
			name:     "one api type",
			apiTypes: []string{"ADMIN"},
			paths:    []string{"/admin/accounts"},
		},
		{
			name:     "two api types",
			apiTypes: []string{"mobile", "api"},
			paths:    []string{"/api/users", "/mobile/devices"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := assemble(t, a, rs, tt.apiTypes, "")
			require.Equal(t, tt.paths, doc.Paths.Keys())
		})
	}
}

func TestAssembleUnknownFilters(t *testing.T) {
	a := newAssembler(t, newConfig(t))
	rs := []routes.Route{{URI: "api/users", Methods: []string{"GET"}}}

	_, err := a.Assemble(a.NewRun(), rs, []string{"partner"}, "")
	require.ErrorIs(t, err, ErrUnknownAPIType)

	_, err = a.Assemble(a.NewRun(), rs, nil, "qa")
	require.ErrorIs(t, err, ErrUnknownEnvironment)
}

func TestAssembleDisabledAPIType(t *testing.T) {
	cfg := newConfig(t)
	disabled := false
	mobile := cfg.APITypes["mobile"]
	mobile.Enabled = &disabled
	cfg.APITypes["mobile"] = mobile
	a := newAssembler(t, cfg)

	rs := []routes.Route{{URI: "mobile/users", Methods: []string{"GET"}}}
	doc := assemble(t, a, rs, nil, "")
	require.Zero(t, doc.Paths.Len())

	_, err := a.Assemble(a.NewRun(), rs, []string{"mobile"}, "")
	require.ErrorIs(t, err, ErrUnknownAPIType)
}

func TestAssembleEnvironmentServers(t *testing.T) {
	a := newAssembler(t, newConfig(t))
	rs := []routes.Route{{URI: "api/users", Methods: []string{"GET"}}}

	doc := assemble(t, a, rs, nil, "")
	require.Len(t, doc.Servers, 3)

	doc = assemble(t, a, rs, nil, "staging")
	require.Equal(t, []model.Server{{URL: "https://staging.routedoc.com", Description: "Staging"}}, doc.Servers)
}

func TestAssembleTagsReused(t *testing.T) {
	a := newAssembler(t, newConfig(t))
	doc := assemble(t, a, []routes.Route{
		{URI: "api/billing/invoices", Methods: []string{"GET", "POST"}},
		{URI: "api/billing/invoices/{id}", Methods: []string{"GET"}, Name: "invoices.show"},
		{URI: "api/users", Methods: []string{"GET"}},
	}, nil, "")

	names := make([]string, len(doc.Tags))
	for i, tag := range doc.Tags {
		names[i] = tag.Name
	}
	require.Equal(t, []string{"Invoices", "Users"}, names)
}

func TestAssembleComponents(t *testing.T) {
	a := newAssembler(t, newConfig(t))
	doc := assemble(t, a, nil, nil, "")

	require.Equal(t, []string{"Error", "ValidationError"}, doc.Components.Schemas.Keys())
	require.Equal(t, []string{"ApiKeyAuth", "BearerAuth"}, doc.Components.SecuritySchemes.Keys())
	apiKey, _ := doc.Components.SecuritySchemes.Get("ApiKeyAuth")
	require.Equal(t, model.SecurityTypeAPIKey, apiKey.Type)
	require.Equal(t, "X-API-Key", apiKey.Name)
	require.Equal(t, model.Version, doc.OpenAPI)
	require.Equal(t, "MIT", doc.Info.License.Name)
}

func TestAssembleIsIdempotent(t *testing.T) {
	a := newAssembler(t, newConfig(t))
	rs := []routes.Route{
		{URI: "api/billing/invoices", Methods: []string{"GET", "POST"}, Middleware: []string{"auth:api", "api.key"}},
		{URI: "api/billing/invoices/{id}", Methods: []string{"GET"}, Name: "invoices.show"},
		{URI: "api/billing/invoices/{id}", Methods: []string{"PUT", "PATCH"}, Name: "invoices.update"},
		{URI: "api/users/{id}", Methods: []string{"GET"}, Name: "users.show"},
	}

	first, err := jsonx.Marshal(assemble(t, a, rs, nil, ""))
	require.NoError(t, err)
	second, err := jsonx.Marshal(assemble(t, a, rs, nil, ""))
	require.NoError(t, err)
	require.Equal(t, string(first), string(second))
}

package workspace

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kolah/routedoc/internal/config"
	"github.com/kolah/routedoc/internal/jsonx"
	"github.com/kolah/routedoc/internal/model"
	"github.com/kolah/routedoc/internal/testscripts"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func add(doc *model.Document, path, method string, op *model.Operation) {
	item, ok := doc.Paths.Get(path)
	if !ok {
		item = jsonx.NewMap[*model.Operation]()
		doc.Paths.Set(path, item)
	}
	op.Responses = jsonx.NewMap[*model.Response]()
	item.Set(method, op)
}

func bearer() []model.SecurityRequirement {
	return []model.SecurityRequirement{{"BearerAuth": {}}}
}

func newDocument(withLogin bool) *model.Document {
	doc := model.NewDocument(model.Info{Title: "Shop API", Version: "1.0.0"}, []model.Server{{URL: "https://shop.test"}})

	if withLogin {
		add(doc, "/api/auth/login", "post", &model.Operation{
			ID: "general.auth.login", Summary: "[API] general.auth.login",
			APIType: "api", Module: "general", Entity: "auth", ActionType: "login",
		})
	}

	schema := model.NewObject()
	schema.Properties.Set("amount", &model.Schema{Type: model.TypeNumber, Example: 10.5})
	schema.Properties.Set("paid", &model.Schema{Type: model.TypeBoolean, Example: true})
	add(doc, "/api/billing/invoices", "post", &model.Operation{
		ID: "Billing.invoices.create", Summary: "[API] Billing.invoices.create",
		APIType: "api", Module: "Billing", Entity: "invoices", ActionType: "create",
		Security:    bearer(),
		RequestBody: &model.RequestBody{Content: model.JSONContent(schema, nil)},
	})
	add(doc, "/api/users/{id}", "delete", &model.Operation{
		ID: "general.users.delete", Summary: "[API] general.users.delete",
		APIType: "api", Module: "general", Entity: "users", ActionType: "delete",
		Security:   bearer(),
		Parameters: []model.Parameter{{Name: "id", In: model.LocationPath, VariableName: "last_users_id"}},
	})
	add(doc, "/api/users/{id}/restore", "post", &model.Operation{
		ID: "general.users.restore", Summary: "[API] general.users.restore",
		APIType: "api", Module: "general", Entity: "users", ActionType: "restore",
		Parameters: []model.Parameter{{Name: "id", In: model.LocationPath, VariableName: "id"}},
	})
	return doc
}

func newConverter(t *testing.T) *Converter {
	t.Helper()
	cfg, err := config.LoadFile("")
	require.NoError(t, err)
	base := cfg.Environments[config.BaseEnvironment]
	base.TrackingVariables = map[string]string{"last_users_id": ""}
	cfg.Environments[config.BaseEnvironment] = base

	tests, err := testscripts.New(cfg.Tests)
	require.NoError(t, err)
	return New(cfg, tests, func() time.Time { return fixedNow }, zerolog.Nop())
}

func requests(export *Export) map[string]*Request {
	out := make(map[string]*Request)
	for _, r := range export.Resources {
		if req, ok := r.(*Request); ok {
			out[req.Name] = req
		}
	}
	return out
}

func environments(export *Export) []*Environment {
	var out []*Environment
	for _, r := range export.Resources {
		if env, ok := r.(*Environment); ok {
			out = append(out, env)
		}
	}
	return out
}

func TestConvertResources(t *testing.T) {
	export, err := newConverter(t).Convert(newDocument(true), []string{"api"})
	require.NoError(t, err)

	require.Equal(t, TypeExport, export.Type)
	require.Equal(t, ExportFormat, export.ExportFormat)
	require.Equal(t, "2025-03-14T09:26:53Z", export.ExportDate)

	var types []string
	for _, r := range export.Resources[:4] {
		data, err := jsonx.Marshal(r)
		require.NoError(t, err)
		obj, err := jsonx.Decode(data)
		require.NoError(t, err)
		typ, _ := obj.(*jsonx.Object).Get("_type")
		types = append(types, typ.(string))
	}
	require.Equal(t, []string{TypeWorkspace, TypeEnvironment, TypeAPISpec, TypeCookieJar}, types)

	ws := export.Resources[0].(*Workspace)
	require.Equal(t, "Shop API (api)", ws.Name)
	require.Nil(t, ws.ParentID)
	require.True(t, strings.HasPrefix(ws.ID, "wrk_"))
	require.Equal(t, fixedNow.UnixMilli(), ws.Created)

	spec := export.Resources[2].(*APISpec)
	require.Equal(t, "Shop API Document", spec.FileName)
	require.Contains(t, spec.Contents, "openapi: 3.0.3")
	require.Contains(t, spec.Contents, "title: Shop API")
	require.NotContains(t, spec.Contents, "components")
	require.NotContains(t, spec.Contents, "/api/users")

	var groups []*RequestGroup
	for _, r := range export.Resources {
		if g, ok := r.(*RequestGroup); ok {
			groups = append(groups, g)
		}
	}
	require.Equal(t, "Api(api)", groups[0].Name)
	require.Equal(t, ws.ID, groups[0].ParentID)
	require.Equal(t, "General", groups[1].Name)
	require.Equal(t, groups[0].ID, groups[1].ParentID)
	require.Equal(t, "Auth", groups[2].Name)
	require.Equal(t, groups[1].ID, groups[2].ParentID)
}

func TestConvertIsDeterministic(t *testing.T) {
	c := newConverter(t)
	first, err := c.Convert(newDocument(true), nil)
	require.NoError(t, err)
	second, err := c.Convert(newDocument(true), nil)
	require.NoError(t, err)

	a, err := jsonx.Marshal(first)
	require.NoError(t, err)
	b, err := jsonx.Marshal(second)
	require.NoError(t, err)
	require.Equal(t, string(a), string(b))
}

func TestConvertRequests(t *testing.T) {
	export, err := newConverter(t).Convert(newDocument(true), nil)
	require.NoError(t, err)
	reqs := requests(export)

	create := reqs["[API] Billing.invoices.create"]
	require.Equal(t, "POST", create.Method)
	require.Equal(t, "{{ _.base_url }}/api/billing/invoices", create.URL)
	require.Equal(t, &Body{MimeType: model.MediaTypeJSON, Text: `{"amount":0,"paid":false}`}, create.Body)
	require.Equal(t, Authentication{Type: "bearer", Token: "{{ _.token }}"}, create.Authentication)
	require.Contains(t, create.AfterResponseScript, "insomnia.expect(insomnia.response.code).to.equal(201);")

	del := reqs["[API] general.users.delete"]
	require.Nil(t, del.Body)
	require.Equal(t, "{{ _.base_url }}/api/users/{{ _.last_users_id }}", del.URL)

	restore := reqs["[API] general.users.restore"]
	require.Equal(t, "{{ _.base_url }}/api/users/{{ _.id }}/restore", restore.URL)
	require.Equal(t, &Body{MimeType: model.MediaTypeJSON, Text: "{}"}, restore.Body)
	require.Equal(t, Authentication{}, restore.Authentication)
}

func TestConvertLoginTokenPropagation(t *testing.T) {
	export, err := newConverter(t).Convert(newDocument(true), nil)
	require.NoError(t, err)

	login := requests(export)["[API] general.auth.login"]
	require.Contains(t, login.AfterResponseScript, `insomnia.environment.set("token", auth.token);`)

	envs := environments(export)
	base := envs[0]
	require.Equal(t, "Base Environment", base.Name)
	require.Equal(t, []string{"api_key", "base_url", "token", "last_users_id"}, base.Data.Keys())
	require.Equal(t, base.Data.Keys(), base.DataPropertyOrder["&"])

	subs := envs[1:]
	require.Len(t, subs, 3)
	names := make([]string, len(subs))
	for i, env := range subs {
		names[i] = env.Name
		require.Equal(t, base.ID, env.ParentID)
		token, _ := env.Data.Get("token")
		require.Equal(t, "{% response 'body', '"+login.ID+"', 'b64::JC50b2tlbg==::46b', 'never', 60 %}", token)
	}
	require.Equal(t, []string{"Local Environment", "Production Environment", "Staging Environment"}, names)

	local, _ := subs[0].Data.Get("base_url")
	require.Equal(t, "http://127.0.0.1:8000", local)
}

func TestConvertWithoutLogin(t *testing.T) {
	export, err := newConverter(t).Convert(newDocument(false), nil)
	require.NoError(t, err)

	for _, env := range environments(export)[1:] {
		token, _ := env.Data.Get("token")
		require.Empty(t, token)
	}
}

package collection

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kolah/routedoc/internal/config"
	"github.com/kolah/routedoc/internal/jsonx"
	"github.com/kolah/routedoc/internal/model"
	"github.com/kolah/routedoc/internal/testscripts"
)

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

func newDocument() *model.Document {
	doc := model.NewDocument(model.Info{Title: "Shop API", Description: "Shop"}, []model.Server{{URL: "https://shop.test"}})

	add(doc, "/api/auth/login", "post", &model.Operation{
		ID: "general.auth.login", Summary: "[API] general.auth.login",
		APIType: "api", Module: "general", Entity: "auth", ActionType: "login",
		RequestBody: &model.RequestBody{Content: model.JSONContent(model.NewObject(), nil)},
	})

	schema := model.NewObject()
	schema.Properties.Set("name", &model.Schema{Type: model.TypeString, Example: "Ada"})
	schema.Properties.Set("age", &model.Schema{Type: model.TypeInteger, Example: 36})
	add(doc, "/api/users", "post", &model.Operation{
		ID: "general.users.create", Summary: "[API] general.users.create", Description: "Create a user",
		APIType: "api", Module: "general", Entity: "users", ActionType: "create",
		Security:    bearer(),
		RequestBody: &model.RequestBody{Content: model.JSONContent(schema, nil)},
	})
	add(doc, "/api/users/{id}", "get", &model.Operation{
		ID: "general.users.show", Summary: "[API] general.users.show",
		APIType: "api", Module: "general", Entity: "users", ActionType: "show",
		Security:   bearer(),
		Parameters: []model.Parameter{{Name: "id", In: model.LocationPath, Description: "Id identifier", VariableName: "last_users_id"}},
	})
	add(doc, "/api/users/{id}/restore", "post", &model.Operation{
		ID: "general.users.restore", Summary: "[API] general.users.restore",
		APIType: "api", Module: "general", Entity: "users", ActionType: "restore",
		Parameters: []model.Parameter{{Name: "id", In: model.LocationPath, VariableName: "id"}},
	})
	add(doc, "/mobile/billing/invoices", "get", &model.Operation{
		ID: "Billing.invoices.list", Summary: "[MOBILE] Billing.invoices.list",
		APIType: "mobile", Module: "Billing", Entity: "invoices", ActionType: "list",
	})
	return doc
}

func newConverter(t *testing.T) *Converter {
	t.Helper()
	cfg, err := config.LoadFile("")
	require.NoError(t, err)
	tests, err := testscripts.New(cfg.Tests)
	require.NoError(t, err)
	return New(cfg, tests, zerolog.Nop())
}

func find(t *testing.T, items []Item, names ...string) Item {
	t.Helper()
	for _, it := range items {
		if it.Name != names[0] {
			continue
		}
		if len(names) == 1 {
			return it
		}
		return find(t, it.Item, names[1:]...)
	}
	require.Failf(t, "item not found", "%v", names)
	return Item{}
}

func TestConvertStructure(t *testing.T) {
	c, err := newConverter(t).Convert(newDocument())
	require.NoError(t, err)

	require.Equal(t, "Shop API", c.Info.Name)
	require.Equal(t, "Shop", c.Info.Description)
	require.Equal(t, SchemaURL, c.Info.Schema)
	require.NotEmpty(t, c.Info.PostmanID)
	require.Equal(t, []Variable{{Key: "base_url", Value: "https://shop.test", Type: "default"}}, c.Variable)
	require.Equal(t, "bearer", c.Auth.Type)
	require.Equal(t, "{{token}}", c.Auth.Bearer[0].Value)
	require.Len(t, c.Event, 2)

	require.Len(t, c.Item, 2)
	require.Equal(t, "Api(api)", c.Item[0].Name)
	require.Equal(t, "Mobile(mobile)", c.Item[1].Name)

	users := find(t, c.Item, "Api(api)", "General", "Users")
	require.Len(t, users.Item, 3)
	require.Equal(t, "[API] general.users.create", users.Item[0].Name)

	invoices := find(t, c.Item, "Mobile(mobile)", "Billing", "Invoices")
	require.Len(t, invoices.Item, 1)
}

func TestConvertRequest(t *testing.T) {
	c, err := newConverter(t).Convert(newDocument())
	require.NoError(t, err)

	create := find(t, c.Item, "Api(api)", "General", "Users", "[API] general.users.create")
	req := create.Request
	require.Equal(t, "POST", req.Method)
	require.Equal(t, "Create a user", req.Description)
	require.Equal(t, "{{base_url}}/api/users", req.URL.Raw)
	require.Equal(t, []string{"{{base_url}}"}, req.URL.Host)
	require.Equal(t, []string{"api", "users"}, req.URL.Path)

	require.NotNil(t, req.Body)
	require.Equal(t, "raw", req.Body.Mode)
	require.Equal(t, "json", req.Body.Options.Raw.Language)
	require.JSONEq(t, `{"name":"","age":0}`, req.Body.Raw)

	keys := make([]string, len(req.Header))
	for i, h := range req.Header {
		keys[i] = h.Key
	}
	require.Equal(t, []string{"X-API-Key", "Accept", "Content-Type", "Authorization"}, keys)
	require.True(t, req.Header[3].Disabled)
	require.Equal(t, "Bearer {{token}}", req.Header[3].Value)

	require.Len(t, create.Event, 1)
	script := strings.Join(create.Event[0].Script.Exec, "\n")
	require.Contains(t, script, "pm.response.to.have.status(201);")
	require.Contains(t, script, `pm.environment.set("last_users_id", body.data.id);`)
}

func TestConvertVariableScoping(t *testing.T) {
	c, err := newConverter(t).Convert(newDocument())
	require.NoError(t, err)

	show := find(t, c.Item, "Api(api)", "General", "Users", "[API] general.users.show").Request
	require.Nil(t, show.Body)
	require.Equal(t, "{{base_url}}/api/users/:id", show.URL.Raw)
	require.Equal(t, []URLVariable{{Key: "id", Value: "{{last_users_id}}", Description: "Id identifier"}}, show.URL.Variable)

	restore := find(t, c.Item, "Api(api)", "General", "Users", "[API] general.users.restore").Request
	require.Equal(t, "{{id}}", restore.URL.Variable[0].Value)
	require.Len(t, restore.Header, 3)
}

func TestConvertLoginStoresToken(t *testing.T) {
	c, err := newConverter(t).Convert(newDocument())
	require.NoError(t, err)

	login := find(t, c.Item, "Api(api)", "General", "Auth", "[API] general.auth.login")
	require.Len(t, login.Event, 1)
	require.Contains(t, strings.Join(login.Event[0].Script.Exec, "\n"), `pm.environment.set("token", auth.token);`)

	data, err := jsonx.Marshal(c)
	require.NoError(t, err)
	require.NotContains(t, string(data), "Bearer ey")
}

func TestConvertEmptyDocument(t *testing.T) {
	c, err := newConverter(t).Convert(model.NewDocument(model.Info{Title: "Empty"}, nil))
	require.NoError(t, err)
	require.Empty(t, c.Item)
	require.Equal(t, DefaultBaseURL, c.Variable[0].Value)

	data, err := jsonx.Marshal(c)
	require.NoError(t, err)
	require.Contains(t, string(data), `"item":[]`)
}

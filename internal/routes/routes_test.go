package routes

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func TestParseManifest(t *testing.T) {
	data := []byte(`
routes:
  - uri: /api/billing/invoices
    methods: [post]
    middleware: [auth:sanctum]
    name: invoices.store
    action: InvoiceController@store
  - uri: api/users/:id
    method: get
    controller: UserController
  - uri: api/ping
    closure: true
`)

	rs, err := ParseManifest(data)
	require.NoError(t, err)
	require.Len(t, rs, 3)

	require.Equal(t, "api/billing/invoices", rs[0].URI)
	require.Equal(t, []string{"POST"}, rs[0].Methods)
	require.Equal(t, []string{"auth:sanctum"}, rs[0].Middleware)
	require.Equal(t, Action{Controller: "InvoiceController", Method: "store"}, rs[0].Action)
	require.Equal(t, "invoices.store", rs[0].Name)

	require.Equal(t, "api/users/{id}", rs[1].URI)
	require.Equal(t, []string{"GET"}, rs[1].Methods)
	require.Equal(t, "UserController", rs[1].Action.Controller)

	require.Equal(t, []string{"GET"}, rs[2].Methods)
	require.True(t, rs[2].Action.Closure)
}

func TestParseManifestErrors(t *testing.T) {
	_, err := ParseManifest([]byte("routes:\n  - methods: [GET]\n"))
	require.ErrorContains(t, err, "uri is required")

	_, err = ParseManifest([]byte("routes: [unclosed"))
	require.Error(t, err)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/api/users/", "api/users"},
		{"api/users/:id", "api/users/{id}"},
		{"/api/users/{id:[0-9]+}/posts/{post}", "api/users/{id}/posts/{post}"},
		{"/api/files/*", "api/files"},
		{"api/users/{id?}", "api/users/{id?}"},
		{"/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestParamsAndSegments(t *testing.T) {
	uri := "api/users/{user_id}/posts/{slug?}"

	require.Equal(t, []Param{{Name: "user_id"}, {Name: "slug", Optional: true}}, Params(uri))
	require.Equal(t, []string{"api", "users", "{user_id}", "posts", "{slug?}"}, Segments(uri))
	require.Equal(t, []string{"api", "users", "posts"}, StaticSegments(uri))
	require.Nil(t, Segments("/"))
}

func TestActionFromFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected Action
	}{
		{"github.com/acme/shop/http.(*UserController).Show-fm", Action{Controller: "UserController", Method: "Show"}},
		{"github.com/acme/shop/http.UserController.Index-fm", Action{Controller: "UserController", Method: "Index"}},
		{"main.main.func1", Action{Closure: true}},
		{"github.com/acme/shop/http.listUsers", Action{Method: "listUsers"}},
		{"", Action{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.expected, ActionFromFunc(tt.input))
		})
	}
}

func TestParseAction(t *testing.T) {
	require.Equal(t, Action{Controller: "UserController", Method: "show"}, ParseAction("UserController@show"))
	require.Equal(t, Action{Closure: true}, ParseAction("Closure"))
	require.True(t, ParseAction("").IsZero())
	require.Equal(t, "UserController@show", ParseAction("UserController@show").String())
}

type userController struct{}

func (userController) Index(w http.ResponseWriter, _ *http.Request) {}
func (userController) Show(w http.ResponseWriter, _ *http.Request)  {}

func TestFromChi(t *testing.T) {
	var c userController
	r := chi.NewRouter()
	r.Get("/api/users", c.Index)
	r.Get("/api/users/{id}", c.Show)
	r.Put("/api/users/{id}", c.Show)

	rs, err := FromChi(r)
	require.NoError(t, err)

	byURI := make(map[string]Route)
	for _, route := range rs {
		byURI[route.URI] = route
	}

	require.Contains(t, byURI, "api/users")
	require.Equal(t, Action{Controller: "userController", Method: "Index"}, byURI["api/users"].Action)
	require.ElementsMatch(t, []string{"GET", "PUT"}, byURI["api/users/{id}"].Methods)
}

func TestFromEcho(t *testing.T) {
	var c userController
	e := echo.New()
	e.GET("/api/users/:id", func(ctx echo.Context) error {
		c.Show(ctx.Response(), ctx.Request())
		return nil
	}).Name = "users.show"
	e.POST("/api/users", func(echo.Context) error { return nil })

	rs := FromEcho(e)
	require.Len(t, rs, 2)

	require.Equal(t, "api/users", rs[0].URI)
	require.Equal(t, []string{"POST"}, rs[0].Methods)
	require.True(t, rs[0].Action.Closure)

	require.Equal(t, "api/users/{id}", rs[1].URI)
	require.Equal(t, "users.show", rs[1].Name)
}

func TestGroup(t *testing.T) {
	rs := Group([]Route{
		{URI: "api/users/{id}", Methods: []string{"PUT"}, Action: Action{Controller: "U", Method: "update"}},
		{URI: "api/users", Methods: []string{"GET"}},
		{URI: "api/users/{id}", Methods: []string{"PATCH"}, Action: Action{Controller: "U", Method: "update"}},
	})

	require.Len(t, rs, 2)
	require.Equal(t, []string{"PUT", "PATCH"}, rs[0].Methods)
}

package extract

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/kolah/routedoc/internal/jsonx"
	"github.com/kolah/routedoc/internal/registry"
)

const invoiceSource = "testdata/invoice_request.go"

func tokens(t *testing.T, res Result, field string) []string {
	t.Helper()
	v, ok := res.Rules.Get(field)
	require.True(t, ok, "missing field %s", field)
	return v
}

func object(pairs ...any) *jsonx.Object {
	obj := jsonx.NewObject()
	for i := 0; i+1 < len(pairs); i += 2 {
		obj.Set(pairs[i].(string), pairs[i+1])
	}
	return obj
}

type priorityRequest struct{}

func (priorityRequest) Rules() map[string]any {
	return map[string]any{
		"create": map[string]any{"amount": "required|integer"},
	}
}

func TestDeclaredWinsOverSource(t *testing.T) {
	v := &registry.Validator{
		Name:     "App.Http.Requests.InvoiceRequest",
		Type:     reflect.TypeOf(priorityRequest{}),
		Source:   invoiceSource,
		TypeName: "InvoiceRequest",
	}

	res := New(zerolog.Nop()).Rules(v, "create")

	require.Equal(t, "declared", res.Strategy)
	require.Equal(t, []string{"amount"}, res.Rules.Keys())
	require.Equal(t, []string{"required", "integer"}, tokens(t, res, "amount"))
}

func TestSourceStrategy(t *testing.T) {
	v := &registry.Validator{Name: "Modules.Billing.Http.Requests.InvoiceRequest", Source: invoiceSource}
	e := New(zerolog.Nop())

	res := e.Rules(v, "create")
	require.Equal(t, "source", res.Strategy)
	require.Equal(t, "create", res.Scenario)
	require.Equal(t, []string{"amount", "email", "customer_id"}, res.Rules.Keys())
	require.Equal(t, []string{"required", "numeric"}, tokens(t, res, "amount"))
	require.Equal(t, []string{"required", "email"}, tokens(t, res, "email"))
	require.Equal(t, []string{"required", "exists"}, tokens(t, res, "customer_id"))

	res = e.Rules(v, "edit")
	require.Equal(t, "update", res.Scenario)
	require.Equal(t, []string{"sometimes", "numeric"}, tokens(t, res, "amount"))
	require.Equal(t, []string{"nullable", "in:draft,sent"}, tokens(t, res, "status"))
}

func TestParseSource(t *testing.T) {
	tests := []struct {
		name     string
		typeName string
		scenario string
		scoped   bool
		field    string
	}{
		{"scenario method", "ReminderRequest", "bulk_create", true, "invoice_ids"},
		{"package variable", "ReceiptRequest", "create", false, "store"},
	}

	src := []byte(`package x

type ReminderRequest struct{}

func (ReminderRequest) BulkCreateRules() map[string]string {
	r := map[string]string{"invoice_ids": "required|array"}
	return r
}

type ReceiptRequest struct{}

var ReceiptRequestRules = map[string]map[string]string{
	"store": {"total": "required|integer"},
}
`)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := ParseSource("x.go", src, tt.typeName, tt.scenario)
			require.NoError(t, err)
			require.Equal(t, tt.scoped, found.Scoped)
			obj, ok := found.Value.(*jsonx.Object)
			require.True(t, ok)
			require.True(t, obj.Has(tt.field))
		})
	}

	_, err := ParseSource("broken.go", []byte("package x\nfunc {"), "X", "create")
	require.Error(t, err)

	found, err := ParseSource("x.go", src, "Missing", "create")
	require.NoError(t, err)
	require.Nil(t, found.Value)
}

func TestScenarioFallback(t *testing.T) {
	tests := []struct {
		name     string
		declared *jsonx.Object
		scenario string
		used     string
		fields   []string
	}{
		{
			name:     "exact",
			declared: object("create", object("name", "required"), "update", object("name", "sometimes")),
			scenario: "update",
			used:     "update",
			fields:   []string{"name"},
		},
		{
			name:     "alias store for create",
			declared: object("store", object("title", "required|max:120"), "update", object("title", "sometimes")),
			scenario: "create",
			used:     "store",
			fields:   []string{"title"},
		},
		{
			name:     "alias index for list",
			declared: object("index", object("page", "integer"), "show", object("with", "array")),
			scenario: "list",
			used:     "index",
			fields:   []string{"page"},
		},
		{
			name:     "sole scenario",
			declared: object("bulk_create", object("items", "required|array")),
			scenario: "update",
			used:     "bulk_create",
			fields:   []string{"items"},
		},
		{
			name:     "flat map",
			declared: object("name", "required", "email", "email"),
			scenario: "create",
			used:     "",
			fields:   []string{"name", "email"},
		},
		{
			name:     "miss with several scenarios",
			declared: object("create", object("a", "required"), "update", object("b", "required")),
			scenario: "show",
			used:     "",
			fields:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &registry.Validator{Name: "Req", Declared: tt.declared}
			res := New(zerolog.Nop()).Rules(v, tt.scenario)
			require.Equal(t, tt.used, res.Scenario)
			if tt.fields == nil {
				require.True(t, res.Empty())
				require.Empty(t, res.Strategy)
				return
			}
			require.Equal(t, tt.fields, res.Rules.Keys())
			require.Equal(t, "declared", res.Strategy)
		})
	}
}

type fakeDB struct {
	prefix string
}

func (d *fakeDB) Table(name string) string {
	return d.prefix + name
}

type customerRequest struct {
	db      *fakeDB
	retries int
}

func newCustomerRequest(db *fakeDB, retries int, opts ...string) *customerRequest {
	return &customerRequest{db: db, retries: retries}
}

func (r *customerRequest) Rules() map[string]map[string]string {
	return map[string]map[string]string{
		"create": {"email": "required|email|unique:" + r.db.Table("customers")},
	}
}

func TestConstructedAfterPanickingZeroValue(t *testing.T) {
	r := registry.New(registry.Options{})
	require.NoError(t, r.RegisterValidator("App.Http.Requests.CustomerRequest", nil, registry.WithConstructor(newCustomerRequest)))
	v, ok := r.Validator("App.Http.Requests.CustomerRequest")
	require.True(t, ok)

	res := New(zerolog.Nop()).Rules(v, "store")

	require.Equal(t, "constructed", res.Strategy)
	require.Equal(t, "create", res.Scenario)
	require.Equal(t, []string{"required", "email", "unique:customers"}, tokens(t, res, "email"))
}

type failingRequest struct{}

func (*failingRequest) Rules() map[string]any { panic("container not booted") }

func TestConstructorErrorFallsThrough(t *testing.T) {
	v := &registry.Validator{
		Name: "App.Http.Requests.FailingRequest",
		Type: reflect.TypeOf(failingRequest{}),
		Constructor: reflect.ValueOf(func() (*failingRequest, error) {
			return nil, errors.New("no database")
		}),
		Source: filepath.Join("testdata", "missing.go"),
	}

	res := New(zerolog.Nop()).Rules(v, "create")
	require.True(t, res.Empty())
}

type scopedRequest struct{}

func (scopedRequest) RulesFor(scenario string) map[string]string {
	if scenario == "delete" {
		return map[string]string{"reason": "required"}
	}
	return map[string]string{"name": "required"}
}

type taggedRequest struct {
	Name  string `json:"name" validate:"required,max=64"`
	Email string `json:"email" validate:"required,email"`
}

func TestDeclaredReflection(t *testing.T) {
	e := New(zerolog.Nop())

	res := e.Rules(&registry.Validator{Name: "Scoped", Type: reflect.TypeOf(scopedRequest{})}, "delete")
	require.Equal(t, []string{"reason"}, res.Rules.Keys())
	require.Equal(t, "delete", res.Scenario)

	res = e.Rules(&registry.Validator{Name: "Tagged", Type: reflect.TypeOf(taggedRequest{})}, "create")
	require.Equal(t, "declared", res.Strategy)
	require.Equal(t, []string{"name", "email"}, res.Rules.Keys())
	require.Equal(t, []string{"required", "max:64"}, tokens(t, res, "name"))
}

func TestNilValidator(t *testing.T) {
	res := New(zerolog.Nop()).Rules(nil, "create")
	require.True(t, res.Empty())
	require.NotNil(t, res.Rules)
}

type onlyStrategy struct{ found Found }

func (onlyStrategy) Name() string { return "custom" }

func (s onlyStrategy) Extract(*registry.Validator, string) (Found, error) { return s.found, nil }

func TestWithStrategies(t *testing.T) {
	e := New(zerolog.Nop(), WithStrategies(onlyStrategy{found: Found{Value: map[string]any{"code": "required"}}}))
	res := e.Rules(&registry.Validator{Name: "X"}, "create")
	require.Equal(t, "custom", res.Strategy)
	require.Equal(t, []string{"code"}, res.Rules.Keys())
}

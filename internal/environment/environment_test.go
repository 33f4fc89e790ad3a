package environment

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kolah/routedoc/internal/config"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func newGenerator(t *testing.T) *Generator {
	t.Helper()
	cfg, err := config.LoadFile("")
	require.NoError(t, err)

	base := cfg.Environments[config.BaseEnvironment]
	base.Variables["api_key"] = "base-key"
	base.TrackingVariables = map[string]string{"last_users_id": "", "last_invoices_id": "7"}
	cfg.Environments[config.BaseEnvironment] = base

	local := cfg.Environments["local"]
	local.Variables["api_key"] = "local-key"
	cfg.Environments["local"] = local

	return New(cfg, func() time.Time { return fixedNow })
}

func valueMap(doc *Document) map[string]string {
	out := make(map[string]string)
	for _, v := range doc.Values {
		out[v.Key] = v.Value
	}
	return out
}

func TestGenerateInherits(t *testing.T) {
	doc, err := newGenerator(t).Generate("local")
	require.NoError(t, err)

	require.Equal(t, "Local", doc.Name)
	require.Equal(t, VariableScope, doc.VariableScope)
	require.Equal(t, "2025-03-14T09:26:53Z", doc.ExportedAt)
	require.Equal(t, ExportedUsing, doc.ExportedUsing)

	keys := make([]string, len(doc.Values))
	for i, v := range doc.Values {
		keys[i] = v.Key
		require.Equal(t, "default", v.Type)
		require.True(t, v.Enabled)
	}
	require.Equal(t, []string{"api_key", "base_url", "token", "last_invoices_id", "last_users_id"}, keys)

	values := valueMap(doc)
	require.Equal(t, "local-key", values["api_key"])
	require.Equal(t, "http://127.0.0.1:8000", values["base_url"])
	require.Equal(t, "7", values["last_invoices_id"])
}

func TestGenerateBase(t *testing.T) {
	doc, err := newGenerator(t).Generate(config.BaseEnvironment)
	require.NoError(t, err)
	require.Equal(t, "Base Environment", doc.Name)
	require.Equal(t, "base-key", valueMap(doc)["api_key"])
	require.Len(t, doc.Values, 5)
}

func TestGenerateUnknown(t *testing.T) {
	_, err := newGenerator(t).Generate("qa")
	require.True(t, errors.Is(err, ErrUnknownEnvironment))
}

func TestGenerateIsStable(t *testing.T) {
	g := newGenerator(t)
	a, err := g.Generate("staging")
	require.NoError(t, err)
	b, err := g.Generate("staging")
	require.NoError(t, err)
	require.Equal(t, a, b)

	other, err := g.Generate("production")
	require.NoError(t, err)
	require.NotEqual(t, a.ID, other.ID)
}

func TestAll(t *testing.T) {
	docs, err := newGenerator(t).All()
	require.NoError(t, err)
	require.Len(t, docs, 3)
	require.Contains(t, docs, "staging")
	require.NotContains(t, docs, config.BaseEnvironment)
}

func TestGenerateWalksParentChain(t *testing.T) {
	cfg, err := config.LoadFile("")
	require.NoError(t, err)

	staging := cfg.Environments["staging"]
	staging.TrackingVariables = map[string]string{"last_orders_id": "3"}
	cfg.Environments["staging"] = staging
	cfg.Environments["review"] = config.Environment{
		Name:              "Review",
		Parent:            "staging",
		Variables:         map[string]string{"token": "review-token"},
		TrackingVariables: map[string]string{"last_orders_id": "9", "last_users_id": "1"},
	}

	doc, err := New(cfg, func() time.Time { return fixedNow }).Generate("review")
	require.NoError(t, err)

	keys := make([]string, len(doc.Values))
	for i, v := range doc.Values {
		keys[i] = v.Key
	}
	require.Equal(t, []string{"api_key", "base_url", "token", "last_orders_id", "last_users_id"}, keys)

	values := valueMap(doc)
	require.Equal(t, "https://staging.routedoc.com", values["base_url"])
	require.Equal(t, "review-token", values["token"])
	require.Equal(t, "9", values["last_orders_id"])
	require.Equal(t, "1", values["last_users_id"])
}

func TestGenerateParentCycle(t *testing.T) {
	cfg, err := config.LoadFile("")
	require.NoError(t, err)
	cfg.Environments["a"] = config.Environment{Parent: "b", Variables: map[string]string{"x": "a"}}
	cfg.Environments["b"] = config.Environment{Parent: "a", Variables: map[string]string{"x": "b"}}

	doc, err := New(cfg, func() time.Time { return fixedNow }).Generate("a")
	require.NoError(t, err)
	require.Equal(t, "a", valueMap(doc)["x"])
}

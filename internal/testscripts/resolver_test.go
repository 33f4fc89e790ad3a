package testscripts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kolah/routedoc/internal/config"
)

func TestChecks(t *testing.T) {
	r, err := New(config.TestsConfig{
		Templates: map[string][]string{"list": {"status_200"}},
		Custom:    []config.CustomTests{{Entity: "users", Action: "restore", Checks: []string{"status_200_or_204"}}},
	})
	require.NoError(t, err)

	tests := []struct {
		action string
		entity string
		want   []string
	}{
		{"restore", "users", []string{"status_200_or_204"}},
		{"restore", "invoices", DefaultChecks},
		{"list", "users", []string{"status_200"}},
		{"create", "users", []string{"status_201", "json_response", "has_id", "save_id"}},
		{"archive", "users", DefaultChecks},
	}

	for _, tt := range tests {
		t.Run(tt.entity+"."+tt.action, func(t *testing.T) {
			require.Equal(t, tt.want, r.Checks(tt.action, tt.entity))
		})
	}
}

func TestScriptSubstitutesEntity(t *testing.T) {
	r, err := New(config.TestsConfig{})
	require.NoError(t, err)

	script := strings.Join(r.Script(FormatCollection, "create", "api_keys"), "\n")
	require.Contains(t, script, `pm.environment.set("last_api_keys_id", body.data.id);`)
	require.Contains(t, script, `pm.test("Api_key has an id"`)
	require.NotContains(t, script, "{{")

	script = strings.Join(r.Script(FormatWorkspace, "create", "users"), "\n")
	require.Contains(t, script, `insomnia.environment.set("last_users_id", body.data.id);`)
	require.Contains(t, script, "insomnia.expect(insomnia.response.code).to.equal(201);")
}

func TestScriptSnippetOverrides(t *testing.T) {
	r, err := New(config.TestsConfig{
		Templates: map[string][]string{"show": {"status_200", "custom_check"}},
		Snippets: map[string]map[string][]string{
			"status_200":   {"collection": {"pm.response.to.be.ok;"}},
			"custom_check": {"workspace": {"// {{entity}} only"}},
		},
	})
	require.NoError(t, err)

	require.Equal(t, []string{"pm.response.to.be.ok;"}, r.Script(FormatCollection, "show", "users"))

	workspace := r.Script(FormatWorkspace, "show", "users")
	require.Equal(t, "// User only", workspace[len(workspace)-1])
	require.Contains(t, workspace[0], "insomnia.test")
}

func TestScriptUnknownChecks(t *testing.T) {
	r, err := New(config.TestsConfig{Templates: map[string][]string{"list": {"missing"}}})
	require.NoError(t, err)
	require.Empty(t, r.Script(FormatCollection, "list", "users"))
}

func TestLoginScript(t *testing.T) {
	r, err := New(config.TestsConfig{})
	require.NoError(t, err)

	script := strings.Join(r.LoginScript(FormatCollection, "authenticate", "auth"), "\n")
	require.Contains(t, script, `pm.environment.set("token", auth.token);`)
	require.Equal(t, 1, strings.Count(strings.Join(r.LoginScript(FormatWorkspace, "login", "auth"), "\n"), "insomnia.environment.set(\"token\""))
}

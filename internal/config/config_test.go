package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadFile("")
	require.NoError(t, err)
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := validConfig(t)

	require.Equal(t, []string{"admin", "api", "mobile"}, cfg.EnabledAPITypes())
	require.Equal(t, "Main API", cfg.APITypes["api"].Title)
	require.Equal(t, "support@routedoc.com", cfg.Info.Contact.Email)
	require.Equal(t, "https://api.routedoc.com", cfg.Servers[2].URL)
	require.Equal(t, "Resource not found", cfg.Responses["404"])
	require.Equal(t, time.Hour, cfg.Cache.TTL)
	require.Equal(t, []string{"base", "local", "production", "staging"}, cfg.EnvironmentNames())
	require.Equal(t, "Base Environment", cfg.Base().Name)
	require.Len(t, cfg.Security.Middleware, 3)
	require.Equal(t, "auth:sanctum", cfg.Security.Middleware[0].Middleware)
	require.Equal(t, "X-API-Key", cfg.Security.Schemes["ApiKeyAuth"].Name)
	require.Len(t, cfg.Scenarios.URIPatterns, 6)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(c *Config)
		wantErr     bool
		errContains string
	}{
		{
			name:   "valid config",
			modify: func(c *Config) {},
		},
		{
			name:        "missing api types",
			modify:      func(c *Config) { c.APITypes = nil },
			wantErr:     true,
			errContains: "APITypes",
		},
		{
			name: "api type without prefix",
			modify: func(c *Config) {
				c.APITypes["partner"] = APIType{Title: "Partner API"}
			},
			wantErr:     true,
			errContains: "Prefix",
		},
		{
			name: "shared prefix",
			modify: func(c *Config) {
				c.APITypes["v2"] = APIType{Prefix: "api"}
			},
			wantErr:     true,
			errContains: "share the prefix api",
		},
		{
			name:        "invalid encoding",
			modify:      func(c *Config) { c.Output.Encoding = "xml" },
			wantErr:     true,
			errContains: "invalid output encoding",
		},
		{
			name:        "invalid cache driver",
			modify:      func(c *Config) { c.Cache.Driver = "memcached" },
			wantErr:     true,
			errContains: "invalid cache driver",
		},
		{
			name:        "invalid log format",
			modify:      func(c *Config) { c.Log.Format = "logfmt" },
			wantErr:     true,
			errContains: "invalid log format",
		},
		{
			name: "invalid security scheme type",
			modify: func(c *Config) {
				c.Security.Schemes["Basic"] = SecurityScheme{Type: "basic"}
			},
			wantErr:     true,
			errContains: "invalid type for security scheme Basic",
		},
		{
			name: "middleware with unknown scheme",
			modify: func(c *Config) {
				c.Security.Middleware = append(c.Security.Middleware, MiddlewareSecurity{
					Middleware: "auth:jwt",
					Schemes:    []string{"JWTAuth"},
				})
			},
			wantErr:     true,
			errContains: "unknown security scheme JWTAuth",
		},
		{
			name: "environment with unknown parent",
			modify: func(c *Config) {
				c.Environments["qa"] = Environment{Name: "QA", Parent: "staging-eu"}
			},
			wantErr:     true,
			errContains: "unknown parent staging-eu",
		},
		{
			name:        "unknown default environment",
			modify:      func(c *Config) { c.DefaultEnvironment = "qa" },
			wantErr:     true,
			errContains: "default environment qa",
		},
		{
			name:        "missing server address",
			modify:      func(c *Config) { c.Server.Addr = "" },
			wantErr:     true,
			errContains: "Addr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestEnabledAPITypes(t *testing.T) {
	cfg := validConfig(t)
	disabled := false
	mobile := cfg.APITypes["mobile"]
	mobile.Enabled = &disabled
	cfg.APITypes["mobile"] = mobile

	require.Equal(t, []string{"admin", "api"}, cfg.EnabledAPITypes())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routedoc.yaml")
	content := `
app_name: Acme Shop
api_types:
  partner:
    prefix: partner
    title: Partner API
security:
  middleware:
    - middleware: auth:partner
      schemes: [ApiKeyAuth]
environments:
  base:
    tracking_variables:
      last_users_id: ""
  qa:
    name: QA
    parent: base
    base_url: https://qa.${{projectName}}.test
tests:
  custom:
    - entity: users
      action: create
      checks: [status_201, save_id]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	require.Equal(t, []string{"admin", "api", "mobile", "partner"}, cfg.EnabledAPITypes())
	require.Len(t, cfg.Security.Middleware, 1)
	require.Equal(t, "https://qa.acme-shop.test", cfg.Environments["qa"].BaseURL)
	require.Contains(t, cfg.Base().TrackingVariables, "last_users_id")
	require.Equal(t, "http://127.0.0.1:8000", cfg.Base().Variables["base_url"])
	require.Equal(t, []CustomTests{{Entity: "users", Action: "create", Checks: []string{"status_201", "save_id"}}}, cfg.Tests.Custom)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "reading config file")
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	environ := func() []string {
		return []string{
			"ROUTEDOC_CACHE__DRIVER=redis",
			"ROUTEDOC_CACHE__KEY_PREFIX=docs:",
			"ROUTEDOC_ROUTES__EXCLUDE_MODULES=internal,legacy",
			"UNRELATED=1",
		}
	}

	cfg, err := load("", environ, nil)
	require.NoError(t, err)

	require.Equal(t, "redis", cfg.Cache.Driver)
	require.Equal(t, "docs:", cfg.Cache.KeyPrefix)
	require.Equal(t, []string{"internal", "legacy"}, cfg.Routes.ExcludeModules)
}

func TestLoadFlagsOverrideEnvironment(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	BindCommonFlags(cmd)
	cmd.Flags().String("encoding", "", "")
	require.NoError(t, cmd.ParseFlags([]string{"--log-level", "debug", "--encoding", "yaml", "--templates", "a,b"}))

	environ := func() []string { return []string{"ROUTEDOC_LOG__LEVEL=warn"} }

	cfg, err := load("", environ, buildFlagsMap(cmd))
	require.NoError(t, err)

	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "yaml", cfg.Output.Encoding)
	require.Equal(t, []string{"a", "b"}, cfg.Templates.Dirs)
}

package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"

	"github.com/kolah/routedoc/internal/naming"
)

const (
	DefaultFile = "routedoc.yaml"
	EnvPrefix   = "ROUTEDOC_"
	// BaseEnvironment is the environment every other one inherits from.
	BaseEnvironment = "base"
)

type Config struct {
	AppName                    string                 `koanf:"app_name"`
	Info                       InfoConfig             `koanf:"info"`
	Servers                    []ServerEntry          `koanf:"servers" validate:"dive"`
	APITypes                   map[string]APIType     `koanf:"api_types" validate:"required,min=1,dive"`
	Routes                     RoutesConfig           `koanf:"routes"`
	Modules                    ModulesConfig          `koanf:"modules"`
	GlobalNamespace            string                 `koanf:"global_namespace"`
	Registry                   RegistryConfig         `koanf:"registry"`
	Scenarios                  ScenariosConfig        `koanf:"scenarios"`
	Security                   SecurityConfig         `koanf:"security"`
	Responses                  map[string]string      `koanf:"responses"`
	Templates                  TemplatesConfig        `koanf:"templates"`
	EntityDescriptions         map[string]string      `koanf:"entity_descriptions"`
	Examples                   ExamplesConfig         `koanf:"examples"`
	Environments               map[string]Environment `koanf:"environments" validate:"dive"`
	DefaultEnvironment         string                 `koanf:"default_environment"`
	Tests                      TestsConfig            `koanf:"tests"`
	Collection                 CollectionConfig       `koanf:"collection"`
	Workspace                  WorkspaceConfig        `koanf:"workspace"`
	Cache                      CacheConfig            `koanf:"cache"`
	Output                     OutputConfig           `koanf:"output"`
	Log                        LogConfig              `koanf:"log"`
	Server                     ServerConfig           `koanf:"server"`
	AllowDuplicateOperationIDs bool                   `koanf:"allow_duplicate_operation_ids"`
}

type InfoConfig struct {
	Title       string        `koanf:"title" validate:"required"`
	Description string        `koanf:"description"`
	Version     string        `koanf:"version" validate:"required"`
	Contact     ContactConfig `koanf:"contact"`
	License     LicenseConfig `koanf:"license"`
}

type ContactConfig struct {
	Name  string `koanf:"name"`
	Email string `koanf:"email"`
	URL   string `koanf:"url"`
}

type LicenseConfig struct {
	Name string `koanf:"name"`
	URL  string `koanf:"url"`
}

type ServerEntry struct {
	URL         string `koanf:"url" validate:"required"`
	Description string `koanf:"description"`
}

type APIType struct {
	Prefix      string `koanf:"prefix" validate:"required"`
	Title       string `koanf:"title"`
	Description string `koanf:"description"`
	// Enabled defaults to true when unset.
	Enabled    *bool  `koanf:"enabled"`
	FolderName string `koanf:"folder_name"`
}

func (a APIType) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

type RoutesConfig struct {
	Manifest        string   `koanf:"manifest"`
	ExcludePatterns []string `koanf:"exclude_patterns"`
	ExcludeNames    []string `koanf:"exclude_names"`
	ExcludeModules  []string `koanf:"exclude_modules"`
	// ExcludeModuleRoutes maps an api-type prefix to the modules hidden under it.
	ExcludeModuleRoutes map[string][]string `koanf:"exclude_module_routes"`
}

type ModulesConfig struct {
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
}

type RegistryConfig struct {
	Sidecar string `koanf:"sidecar"`
}

type ScenariosConfig struct {
	MiddlewareParam string            `koanf:"middleware_param"`
	URIPatterns     []URIPattern      `koanf:"uri_patterns" validate:"dive"`
	Defaults        map[string]string `koanf:"defaults"`
}

type URIPattern struct {
	Pattern  string `koanf:"pattern" validate:"required"`
	Scenario string `koanf:"scenario" validate:"required"`
}

type SecurityConfig struct {
	Schemes    map[string]SecurityScheme `koanf:"schemes" validate:"dive"`
	Middleware []MiddlewareSecurity      `koanf:"middleware" validate:"dive"`
}

type SecurityScheme struct {
	Type         string `koanf:"type" validate:"required"`
	Scheme       string `koanf:"scheme"`
	BearerFormat string `koanf:"bearer_format"`
	In           string `koanf:"in"`
	Name         string `koanf:"name"`
	Description  string `koanf:"description"`
}

// MiddlewareSecurity binds a route middleware to the security schemes it enforces.
type MiddlewareSecurity struct {
	Middleware string   `koanf:"middleware" validate:"required"`
	Schemes    []string `koanf:"schemes" validate:"required,min=1"`
}

type TemplatesConfig struct {
	Dirs []string `koanf:"dirs"`
}

type ExamplesConfig struct {
	// SanitizeFields extend metadata.DefaultSanitizeFields unless OverrideSanitizeFields is set.
	SanitizeFields         []string `koanf:"sanitize_fields"`
	OverrideSanitizeFields bool     `koanf:"override_sanitize_fields"`
}

type Environment struct {
	Name    string `koanf:"name"`
	BaseURL string `koanf:"base_url"`
	Parent  string `koanf:"parent"`
	// Variables and TrackingVariables are emitted in key order.
	Variables         map[string]string `koanf:"variables"`
	TrackingVariables map[string]string `koanf:"tracking_variables"`
}

type TestsConfig struct {
	// Templates maps an action to its check names.
	Templates map[string][]string `koanf:"templates"`
	Custom    []CustomTests       `koanf:"custom" validate:"dive"`
	// Snippets maps a check name to its script lines per output format.
	Snippets map[string]map[string][]string `koanf:"snippets"`
}

// CustomTests overrides the checks of one entity action.
type CustomTests struct {
	Entity string   `koanf:"entity" validate:"required"`
	Action string   `koanf:"action" validate:"required"`
	Checks []string `koanf:"checks"`
}

type CollectionConfig struct {
	Name        string `koanf:"name"`
	Description string `koanf:"description"`
	ExporterID  string `koanf:"exporter_id"`
}

type WorkspaceConfig struct {
	Name        string `koanf:"name"`
	Description string `koanf:"description"`
	Scope       string `koanf:"scope"`
}

type CacheConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Driver    string        `koanf:"driver"`
	TTL       time.Duration `koanf:"ttl"`
	KeyPrefix string        `koanf:"key_prefix"`
	Redis     RedisConfig   `koanf:"redis"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db" validate:"gte=0"`
}

type OutputConfig struct {
	Dir      string `koanf:"dir"`
	Encoding string `koanf:"encoding"`
	// Timestamp (RFC 3339) pins export dates and example dates. Empty means the route
	// manifest's modification time.
	Timestamp string `koanf:"timestamp"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type ServerConfig struct {
	Addr   string `koanf:"addr" validate:"required"`
	Prefix string `koanf:"prefix"`
}

// BindCommonFlags binds the flags shared by every command that reads configuration.
func BindCommonFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringP("config", "c", "", "Config file path (default: routedoc.yaml)")
	flags.String("routes", "", "Route manifest file")
	flags.String("sidecar", "", "Type registry sidecar file")
	flags.StringSlice("templates", nil, "Template directories, searched before the built-in templates")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-format", "", "Log format (console, json)")
}

// Load reads defaults, then the config file, then ROUTEDOC_ environment variables
// (CACHE__DRIVER sets cache.driver), then command flags.
func Load(cmd *cobra.Command) (*Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			configFile = DefaultFile
		}
	}
	return load(configFile, os.Environ, buildFlagsMap(cmd))
}

// LoadFile reads a config file (optional) over the defaults, without environment or flags.
func LoadFile(path string) (*Config, error) {
	return load(path, func() []string { return nil }, nil)
}

func load(configFile string, environ func() []string, flagsMap map[string]any) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
		EnvironFunc:   environ,
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if len(flagsMap) > 0 {
		if err := k.Load(confmap.Provider(flagsMap, "."), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.applyProjectName()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envKey maps ROUTEDOC_CACHE__KEY_PREFIX to cache.key_prefix. Comma separated values
// become lists.
func envKey(k, v string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(k, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if strings.Contains(v, ",") {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return key, parts
	}
	return key, v
}

func buildFlagsMap(cmd *cobra.Command) map[string]any {
	m := make(map[string]any)

	getString := func(name string) string {
		if v, err := cmd.Flags().GetString(name); err == nil && v != "" {
			return v
		}
		return ""
	}

	getStringSlice := func(name string) []string {
		if v, err := cmd.Flags().GetStringSlice(name); err == nil && len(v) > 0 {
			return v
		}
		return nil
	}

	if v := getString("routes"); v != "" {
		m["routes.manifest"] = v
	}
	if v := getString("sidecar"); v != "" {
		m["registry.sidecar"] = v
	}
	if v := getStringSlice("templates"); len(v) > 0 {
		m["templates.dirs"] = v
	}
	if v := getString("log-level"); v != "" {
		m["log.level"] = v
	}
	if v := getString("log-format"); v != "" {
		m["log.format"] = v
	}
	if v := getString("output-dir"); v != "" {
		m["output.dir"] = v
	}
	if v := getString("encoding"); v != "" {
		m["output.encoding"] = v
	}
	if v := getString("timestamp"); v != "" {
		m["output.timestamp"] = v
	}
	if v := getString("addr"); v != "" {
		m["server.addr"] = v
	}
	if v := getString("prefix"); v != "" {
		m["server.prefix"] = v
	}
	if v := getString("cache-driver"); v != "" {
		m["cache.driver"] = v
	}

	return m
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	validEncodings := map[string]bool{"": true, "json": true, "yaml": true}
	if !validEncodings[c.Output.Encoding] {
		return fmt.Errorf("invalid output encoding: %s (valid: json, yaml)", c.Output.Encoding)
	}

	if c.Output.Timestamp != "" {
		if _, err := time.Parse(time.RFC3339, c.Output.Timestamp); err != nil {
			return fmt.Errorf("invalid output timestamp: %w", err)
		}
	}

	validDrivers := map[string]bool{"": true, "memory": true, "redis": true}
	if !validDrivers[c.Cache.Driver] {
		return fmt.Errorf("invalid cache driver: %s (valid: memory, redis)", c.Cache.Driver)
	}

	validLogFormats := map[string]bool{"": true, "console": true, "json": true}
	if !validLogFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s (valid: console, json)", c.Log.Format)
	}

	validSchemeTypes := map[string]bool{"http": true, "apiKey": true, "oauth2": true, "openIdConnect": true}
	for name, s := range c.Security.Schemes {
		if !validSchemeTypes[s.Type] {
			return fmt.Errorf("invalid type for security scheme %s: %s (valid: http, apiKey, oauth2, openIdConnect)", name, s.Type)
		}
	}
	for _, mw := range c.Security.Middleware {
		for _, scheme := range mw.Schemes {
			if _, ok := c.Security.Schemes[scheme]; !ok {
				return fmt.Errorf("middleware %s references unknown security scheme %s", mw.Middleware, scheme)
			}
		}
	}

	prefixes := make(map[string]string, len(c.APITypes))
	for key, t := range c.APITypes {
		if other, ok := prefixes[t.Prefix]; ok {
			return fmt.Errorf("api types %s and %s share the prefix %s", other, key, t.Prefix)
		}
		prefixes[t.Prefix] = key
	}

	for name, e := range c.Environments {
		if e.Parent == "" {
			continue
		}
		if _, ok := c.Environments[e.Parent]; !ok {
			return fmt.Errorf("environment %s has unknown parent %s", name, e.Parent)
		}
	}
	if c.DefaultEnvironment != "" {
		if _, ok := c.Environments[c.DefaultEnvironment]; !ok {
			return fmt.Errorf("default environment %s is not configured", c.DefaultEnvironment)
		}
	}

	return nil
}

// EnabledAPITypes returns the keys of the enabled api types in key order.
func (c *Config) EnabledAPITypes() []string {
	var keys []string
	for key, t := range c.APITypes {
		if t.IsEnabled() {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// EnvironmentNames returns the configured environment keys in key order.
func (c *Config) EnvironmentNames() []string {
	return SortedKeys(c.Environments)
}

// Base returns the base environment; its zero value when none is configured.
func (c *Config) Base() Environment {
	return c.Environments[BaseEnvironment]
}

// ProjectName is the cleaned application name substituted into configured URLs.
func (c *Config) ProjectName() string {
	return naming.ProjectName(c.AppName)
}

func (c *Config) applyProjectName() {
	project := c.ProjectName()
	replace := func(s *string) {
		*s = naming.ReplaceProjectName(*s, project)
	}

	replace(&c.Info.Contact.Email)
	replace(&c.Info.Contact.URL)
	for i := range c.Servers {
		replace(&c.Servers[i].URL)
	}
	for name, e := range c.Environments {
		replace(&e.BaseURL)
		for k, v := range e.Variables {
			e.Variables[k] = naming.ReplaceProjectName(v, project)
		}
		c.Environments[name] = e
	}
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

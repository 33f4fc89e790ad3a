// Package workspace converts an assembled document into an API workspace export
// (format 4): a flat resource list linked by parent ids.
package workspace

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kolah/routedoc/internal/config"
	"github.com/kolah/routedoc/internal/convert"
	"github.com/kolah/routedoc/internal/jsonx"
	"github.com/kolah/routedoc/internal/model"
	"github.com/kolah/routedoc/internal/naming"
	"github.com/kolah/routedoc/internal/testscripts"
)

const (
	ExportFormat = 4
	ExportSource = "routedoc"

	TypeExport       = "export"
	TypeWorkspace    = "workspace"
	TypeEnvironment  = "environment"
	TypeAPISpec      = "api_spec"
	TypeCookieJar    = "cookie_jar"
	TypeRequestGroup = "request_group"
	TypeRequest      = "request"

	// tokenPath is base64 of "$.token".
	tokenPath = "b64::JC50b2tlbg==::46b"
	// tokenMaxAge is how long the extracted token is reused, in seconds.
	tokenMaxAge = 60
)

type Export struct {
	Type         string `json:"_type"`
	ExportFormat int    `json:"__export_format"`
	ExportDate   string `json:"__export_date"`
	ExportSource string `json:"__export_source"`
	Resources    []any  `json:"resources"`
}

type Workspace struct {
	ID          string  `json:"_id"`
	ParentID    *string `json:"parentId"`
	Modified    int64   `json:"modified"`
	Created     int64   `json:"created"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Scope       string  `json:"scope"`
	Type        string  `json:"_type"`
}

type Environment struct {
	ID                string              `json:"_id"`
	ParentID          string              `json:"parentId"`
	Modified          int64               `json:"modified"`
	Created           int64               `json:"created"`
	Name              string              `json:"name"`
	Data              *jsonx.Map[string]  `json:"data"`
	DataPropertyOrder map[string][]string `json:"dataPropertyOrder"`
	Color             *string             `json:"color"`
	IsPrivate         bool                `json:"isPrivate"`
	MetaSortKey       int64               `json:"metaSortKey"`
	Type              string              `json:"_type"`
}

type APISpec struct {
	ID          string `json:"_id"`
	ParentID    string `json:"parentId"`
	Modified    int64  `json:"modified"`
	Created     int64  `json:"created"`
	FileName    string `json:"fileName"`
	Contents    string `json:"contents"`
	ContentType string `json:"contentType"`
	Type        string `json:"_type"`
}

type CookieJar struct {
	ID       string `json:"_id"`
	ParentID string `json:"parentId"`
	Modified int64  `json:"modified"`
	Created  int64  `json:"created"`
	Name     string `json:"name"`
	Cookies  []any  `json:"cookies"`
	Type     string `json:"_type"`
}

type RequestGroup struct {
	ID                       string         `json:"_id"`
	ParentID                 string         `json:"parentId"`
	Modified                 int64          `json:"modified"`
	Created                  int64          `json:"created"`
	Name                     string         `json:"name"`
	MetaSortKey              int64          `json:"metaSortKey"`
	Description              string         `json:"description"`
	Environment              map[string]any `json:"environment"`
	EnvironmentPropertyOrder *string        `json:"environmentPropertyOrder"`
	Type                     string         `json:"_type"`
}

type Request struct {
	ID                              string         `json:"_id"`
	ParentID                        string         `json:"parentId"`
	Modified                        int64          `json:"modified"`
	Created                         int64          `json:"created"`
	URL                             string         `json:"url"`
	Name                            string         `json:"name"`
	Description                     string         `json:"description"`
	Method                          string         `json:"method"`
	Body                            *Body          `json:"body,omitempty"`
	Parameters                      []any          `json:"parameters"`
	Headers                         []Header       `json:"headers"`
	Authentication                  Authentication `json:"authentication"`
	MetaSortKey                     int64          `json:"metaSortKey"`
	IsPrivate                       bool           `json:"isPrivate"`
	SettingStoreCookies             bool           `json:"settingStoreCookies"`
	SettingSendCookies              bool           `json:"settingSendCookies"`
	SettingDisableRenderRequestBody bool           `json:"settingDisableRenderRequestBody"`
	SettingEncodeURL                bool           `json:"settingEncodeUrl"`
	SettingRebuildPath              bool           `json:"settingRebuildPath"`
	SettingFollowRedirects          string         `json:"settingFollowRedirects"`
	AfterResponseScript             string         `json:"afterResponseScript,omitempty"`
	Type                            string         `json:"_type"`
}

type Body struct {
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Authentication is empty for operations without bearer security.
type Authentication struct {
	Type  string `json:"type,omitempty"`
	Token string `json:"token,omitempty"`
}

type Converter struct {
	cfg   *config.Config
	tests *testscripts.Resolver
	now   func() time.Time
	log   zerolog.Logger
}

func New(cfg *config.Config, tests *testscripts.Resolver, now func() time.Time, log zerolog.Logger) *Converter {
	return &Converter{cfg: cfg, tests: tests, now: now, log: log.With().Str("component", "workspace").Logger()}
}

// run holds the state of one conversion. Every resource id is derived from scope and
// the resource's position in the tree.
type run struct {
	*Converter
	scope     string
	timestamp int64
	login     string
	requests  int
}

// Convert builds the export. apiTypes is the filter the document was assembled with;
// it names the workspace.
func (c *Converter) Convert(doc *model.Document, apiTypes []string) (*Export, error) {
	now := c.now()
	r := &run{
		Converter: c,
		scope:     doc.Info.Title + "\x00" + strings.Join(apiTypes, ","),
		timestamp: now.UnixMilli(),
	}

	workspaceID := r.id("wrk_", "workspace")
	base := r.baseEnvironment(workspaceID)

	spec, err := r.apiSpec(doc, workspaceID)
	if err != nil {
		return nil, err
	}

	resources := []any{
		r.workspace(doc, workspaceID, apiTypes),
		base,
		spec,
		r.cookieJar(doc, workspaceID),
	}

	groups, err := r.groups(doc, workspaceID)
	if err != nil {
		return nil, err
	}
	resources = append(resources, groups...)
	resources = append(resources, r.subEnvironments(base.ID)...)

	return &Export{
		Type:         TypeExport,
		ExportFormat: ExportFormat,
		ExportDate:   now.UTC().Format("2006-01-02T15:04:05Z"),
		ExportSource: ExportSource,
		Resources:    resources,
	}, nil
}

func (r *run) id(prefix string, parts ...string) string {
	return convert.ID(prefix, append([]string{r.scope}, parts...)...)
}

func (r *run) title(doc *model.Document) string {
	if r.cfg.Workspace.Name != "" {
		return r.cfg.Workspace.Name
	}
	return doc.Info.Title
}

func (r *run) workspace(doc *model.Document, id string, apiTypes []string) *Workspace {
	name := r.title(doc)
	if len(apiTypes) > 0 {
		name += " (" + strings.Join(apiTypes, ", ") + ")"
	}
	description := doc.Info.Description
	if description == "" {
		description = r.cfg.Workspace.Description
	}
	scope := r.cfg.Workspace.Scope
	if scope == "" {
		scope = "design"
	}
	return &Workspace{
		ID:          id,
		Modified:    r.timestamp,
		Created:     r.timestamp,
		Name:        name,
		Description: description,
		Scope:       scope,
		Type:        TypeWorkspace,
	}
}

// baseEnvironment carries the base variables followed by the tracking variables.
func (r *run) baseEnvironment(workspaceID string) *Environment {
	base := r.cfg.Base()
	data := jsonx.NewMap[string]()
	for _, k := range config.SortedKeys(base.Variables) {
		data.Set(k, base.Variables[k])
	}
	for _, k := range config.SortedKeys(base.TrackingVariables) {
		data.Set(k, base.TrackingVariables[k])
	}
	return r.environment(r.id("env_", "environment", config.BaseEnvironment), workspaceID, "Base Environment", data, r.timestamp)
}

func (r *run) environment(id, parentID, name string, data *jsonx.Map[string], sortKey int64) *Environment {
	return &Environment{
		ID:                id,
		ParentID:          parentID,
		Modified:          sortKey,
		Created:           sortKey,
		Name:              name,
		Data:              data,
		DataPropertyOrder: map[string][]string{"&": data.Keys()},
		MetaSortKey:       sortKey,
		Type:              TypeEnvironment,
	}
}

// apiSpec embeds the document header as YAML; paths, components and tags are left out.
func (r *run) apiSpec(doc *model.Document, workspaceID string) (*APISpec, error) {
	contents, err := jsonx.YAML(struct {
		OpenAPI string                      `json:"openapi"`
		Info    model.Info                  `json:"info"`
		Servers []model.Server              `json:"servers"`
		Paths   *jsonx.Map[*model.PathItem] `json:"paths"`
	}{doc.OpenAPI, doc.Info, doc.Servers, jsonx.NewMap[*model.PathItem]()})
	if err != nil {
		return nil, fmt.Errorf("encoding api spec: %w", err)
	}
	return &APISpec{
		ID:          r.id("spc_", "api_spec"),
		ParentID:    workspaceID,
		Modified:    r.timestamp,
		Created:     r.timestamp,
		FileName:    r.title(doc) + " Document",
		Contents:    string(contents),
		ContentType: "yaml",
		Type:        TypeAPISpec,
	}, nil
}

func (r *run) cookieJar(doc *model.Document, workspaceID string) *CookieJar {
	return &CookieJar{
		ID:       r.id("jar_", "cookie_jar"),
		ParentID: workspaceID,
		Modified: r.timestamp + 1,
		Created:  r.timestamp + 1,
		Name:     r.title(doc) + " Document",
		Cookies:  []any{},
		Type:     TypeCookieJar,
	}
}

func (r *run) groups(doc *model.Document, workspaceID string) ([]any, error) {
	var out []any
	sortKey := r.timestamp
	for _, g := range convert.Group(doc, r.cfg.APITypes) {
		apiID := r.id("fld_", "group", g.Key)
		out = append(out, r.group(apiID, workspaceID, g.FolderName(), g.Type.Description, sortKey))

		moduleKey := sortKey
		for _, m := range g.Modules {
			moduleID := r.id("fld_", "group", g.Key, m.Name)
			out = append(out, r.group(moduleID, apiID, naming.Ucfirst(m.Name), "", moduleKey))

			entityKey := moduleKey
			for _, e := range m.Entities {
				entityID := r.id("fld_", "group", g.Key, m.Name, e.Name)
				out = append(out, r.group(entityID, moduleID, naming.Ucfirst(e.Name), "", entityKey))

				requestKey := entityKey
				for _, req := range e.Requests {
					resource, err := r.request(req, entityID, requestKey)
					if err != nil {
						return nil, err
					}
					out = append(out, resource)
					requestKey += 10
				}
				entityKey += 10
			}
			moduleKey += 10
		}
		sortKey += 10
	}
	return out, nil
}

func (r *run) group(id, parentID, name, description string, sortKey int64) *RequestGroup {
	return &RequestGroup{
		ID:          id,
		ParentID:    parentID,
		Modified:    r.timestamp,
		Created:     r.timestamp,
		Name:        name,
		MetaSortKey: sortKey,
		Description: description,
		Environment: map[string]any{},
		Type:        TypeRequestGroup,
	}
}

func (r *run) request(req convert.Request, parentID string, sortKey int64) (*Request, error) {
	op := req.Op
	id := r.id("req_", "request", req.Path, string(req.Method))
	r.requests++

	var script []string
	if r.login == "" && convert.IsLogin(req.Method, req.Path, op) {
		r.login = id
		r.log.Info().Str("id", id).Str("path", req.Path).Str("method", string(req.Method)).Msg("login request detected")
		script = r.tests.LoginScript(testscripts.FormatWorkspace, op.ActionType, op.Entity)
	} else {
		script = r.tests.Script(testscripts.FormatWorkspace, op.ActionType, op.Entity)
	}

	body, err := requestBody(req)
	if err != nil {
		return nil, err
	}

	name := op.Summary
	if name == "" {
		name = string(req.Method) + " " + req.Path
	}

	out := &Request{
		ID:          id,
		ParentID:    parentID,
		Modified:    r.timestamp,
		Created:     r.timestamp,
		URL:         convert.URL("{{ _.base_url }}", convert.Segments(req.Path, op), variable),
		Name:        name,
		Description: op.Description,
		Method:      string(req.Method),
		Body:        body,
		Parameters:  []any{},
		Headers: []Header{
			{Name: "X-API-Key", Value: "{{ _.api_key }}"},
			{Name: "Content-Type", Value: model.MediaTypeJSON},
		},
		MetaSortKey:            sortKey,
		SettingStoreCookies:    true,
		SettingSendCookies:     true,
		SettingEncodeURL:       true,
		SettingRebuildPath:     true,
		SettingFollowRedirects: "global",
		AfterResponseScript:    strings.Join(script, "\n"),
		Type:                   TypeRequest,
	}
	if op.HasSecurity("BearerAuth") {
		out.Authentication = Authentication{Type: "bearer", Token: "{{ _.token }}"}
	}
	return out, nil
}

func variable(s convert.Segment) string {
	return "{{ _." + s.Variable + " }}"
}

func requestBody(req convert.Request) (*Body, error) {
	if !req.Method.HasBody() {
		return nil, nil
	}
	example, ok := convert.EmptyBody(req.Method, req.Op)
	if !ok {
		return &Body{MimeType: model.MediaTypeJSON, Text: "{}"}, nil
	}
	text, err := jsonx.Marshal(example)
	if err != nil {
		return nil, fmt.Errorf("encoding body of %s %s: %w", req.Method, req.Path, err)
	}
	return &Body{MimeType: model.MediaTypeJSON, Text: string(text)}, nil
}

// tokenTemplate reads the token from the login response. It is empty without a login
// request.
func (r *run) tokenTemplate() string {
	if r.login == "" {
		r.log.Warn().Int("requests", r.requests).Msg("no login request found, token extraction will not work")
		return ""
	}
	return fmt.Sprintf("{%% response 'body', '%s', '%s', 'never', %d %%}", r.login, tokenPath, tokenMaxAge)
}

// subEnvironments emits one environment per configured deployment target, parented to
// the base environment.
func (r *run) subEnvironments(baseID string) []any {
	token := r.tokenTemplate()

	var out []any
	sortKey := r.timestamp
	for _, name := range r.cfg.EnvironmentNames() {
		if name == config.BaseEnvironment {
			continue
		}
		env := r.cfg.Environments[name]
		sortKey++

		data := jsonx.NewMap[string]()
		baseURL := env.BaseURL
		if baseURL == "" {
			baseURL = env.Variables["base_url"]
		}
		data.Set("base_url", baseURL)
		data.Set("token", token)
		data.Set("api_key", env.Variables["api_key"])

		out = append(out, r.environment(r.id("env_", "environment", name), baseID, naming.Ucfirst(name)+" Environment", data, sortKey))
	}
	return out
}

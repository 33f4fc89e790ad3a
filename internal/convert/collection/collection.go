// Package collection converts an assembled document into a v2.1 REST-client
// collection: one folder per api type, module and entity, one item per operation.
package collection

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kolah/routedoc/internal/config"
	"github.com/kolah/routedoc/internal/convert"
	"github.com/kolah/routedoc/internal/jsonx"
	"github.com/kolah/routedoc/internal/model"
	"github.com/kolah/routedoc/internal/naming"
	"github.com/kolah/routedoc/internal/testscripts"
)

const (
	SchemaURL = "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"
	BaseURL   = "{{base_url}}"
	// DefaultBaseURL is the collection-level base_url; environments override it.
	DefaultBaseURL = "http://localhost:8000"
)

type Collection struct {
	Info     Info       `json:"info"`
	Item     []Item     `json:"item"`
	Variable []Variable `json:"variable"`
	Auth     *Auth      `json:"auth,omitempty"`
	Event    []Event    `json:"event,omitempty"`
}

type Info struct {
	PostmanID   string `json:"_postman_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Schema      string `json:"schema"`
	ExporterID  string `json:"_exporter_id,omitempty"`
}

// Item is a folder when Item is set and a request otherwise.
type Item struct {
	Name        string   `json:"name"`
	Item        []Item   `json:"item,omitempty"`
	Description string   `json:"description,omitempty"`
	Request     *Request `json:"request,omitempty"`
	Response    []any    `json:"response,omitempty"`
	Event       []Event  `json:"event,omitempty"`
}

type Request struct {
	Method      string   `json:"method"`
	Header      []Header `json:"header"`
	Body        *Body    `json:"body,omitempty"`
	URL         URL      `json:"url"`
	Description string   `json:"description"`
}

type Header struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Type     string `json:"type"`
	Disabled bool   `json:"disabled,omitempty"`
}

type Body struct {
	Mode    string      `json:"mode"`
	Raw     string      `json:"raw"`
	Options BodyOptions `json:"options"`
}

type BodyOptions struct {
	Raw struct {
		Language string `json:"language"`
	} `json:"raw"`
}

type URL struct {
	Raw      string        `json:"raw"`
	Host     []string      `json:"host"`
	Path     []string      `json:"path"`
	Variable []URLVariable `json:"variable"`
}

type URLVariable struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

type Variable struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Type  string `json:"type"`
}

type Auth struct {
	Type   string     `json:"type"`
	Bearer []Variable `json:"bearer"`
}

type Event struct {
	Listen string `json:"listen"`
	Script Script `json:"script"`
}

type Script struct {
	Type string   `json:"type"`
	Exec []string `json:"exec"`
}

type Converter struct {
	cfg   *config.Config
	tests *testscripts.Resolver
	log   zerolog.Logger
}

func New(cfg *config.Config, tests *testscripts.Resolver, log zerolog.Logger) *Converter {
	return &Converter{cfg: cfg, tests: tests, log: log.With().Str("component", "collection").Logger()}
}

// run holds the state of one conversion.
type run struct {
	*Converter
	login string
}

func (c *Converter) Convert(doc *model.Document) (*Collection, error) {
	r := &run{Converter: c}

	name := c.cfg.Collection.Name
	if name == "" {
		name = doc.Info.Title
	}
	description := c.cfg.Collection.Description
	if doc.Info.Description != "" {
		description = doc.Info.Description
	}

	out := &Collection{
		Info: Info{
			PostmanID:   convert.UUID("collection", name).String(),
			Name:        name,
			Description: description,
			Schema:      SchemaURL,
			ExporterID:  c.cfg.Collection.ExporterID,
		},
		Item:     []Item{},
		Variable: []Variable{{Key: "base_url", Value: baseURL(doc), Type: "default"}},
		Auth:     &Auth{Type: "bearer", Bearer: []Variable{{Key: "token", Value: "{{token}}", Type: "string"}}},
		Event: []Event{
			event("prerequest", "// Global pre-request", `console.log("📤 " + pm.request.method + " " + pm.request.url);`),
			event("test", "// Global test", `console.log("📥 " + pm.response.code + " " + pm.response.status);`),
		},
	}

	for _, g := range convert.Group(doc, c.cfg.APITypes) {
		folder := Item{Name: g.FolderName(), Description: g.Type.Description}
		for _, m := range g.Modules {
			module := Item{Name: naming.Ucfirst(m.Name)}
			for _, e := range m.Entities {
				entity := Item{Name: naming.Ucfirst(e.Name)}
				for _, req := range e.Requests {
					item, err := r.request(req)
					if err != nil {
						return nil, err
					}
					entity.Item = append(entity.Item, item)
				}
				module.Item = append(module.Item, entity)
			}
			folder.Item = append(folder.Item, module)
		}
		out.Item = append(out.Item, folder)
	}

	if r.login == "" {
		c.log.Warn().Msg("no login request found, token must be set by hand")
	}
	return out, nil
}

func baseURL(doc *model.Document) string {
	if len(doc.Servers) > 0 && doc.Servers[0].URL != "" {
		return doc.Servers[0].URL
	}
	return DefaultBaseURL
}

func event(listen string, lines ...string) Event {
	return Event{Listen: listen, Script: Script{Type: "text/javascript", Exec: lines}}
}

func (r *run) request(req convert.Request) (Item, error) {
	op := req.Op

	body, err := requestBody(req)
	if err != nil {
		return Item{}, err
	}

	var script []string
	if r.login == "" && convert.IsLogin(req.Method, req.Path, op) {
		r.login = op.ID
		r.log.Info().Str("path", req.Path).Str("operation", op.ID).Msg("login request detected")
		script = r.tests.LoginScript(testscripts.FormatCollection, op.ActionType, op.Entity)
	} else {
		script = r.tests.Script(testscripts.FormatCollection, op.ActionType, op.Entity)
	}

	item := Item{
		Name: name(req),
		Request: &Request{
			Method:      string(req.Method),
			Header:      headers(req),
			Body:        body,
			URL:         url(req),
			Description: op.Description,
		},
	}
	if len(script) > 0 {
		item.Event = []Event{event("test", script...)}
	}
	return item, nil
}

func name(req convert.Request) string {
	if req.Op.Summary != "" {
		return req.Op.Summary
	}
	segs := convert.Segments(req.Path, req.Op)
	if len(segs) == 0 {
		return string(req.Method) + " /"
	}
	return string(req.Method) + " " + segs[len(segs)-1].Text
}

func headers(req convert.Request) []Header {
	out := []Header{
		{Key: "X-API-Key", Value: "{{api_key}}", Type: "text"},
		{Key: "Accept", Value: model.MediaTypeJSON, Type: "text"},
	}
	if req.Method.HasBody() {
		out = append(out, Header{Key: "Content-Type", Value: model.MediaTypeJSON, Type: "text"})
	}
	// Collection-level bearer auth applies; the explicit header is kept for reference.
	if len(req.Op.Security) > 0 {
		out = append(out, Header{Key: "Authorization", Value: "Bearer {{token}}", Type: "text", Disabled: true})
	}
	return out
}

func requestBody(req convert.Request) (*Body, error) {
	example, ok := convert.EmptyBody(req.Method, req.Op)
	if !ok {
		return nil, nil
	}
	raw, err := jsonx.MarshalIndent(example)
	if err != nil {
		return nil, fmt.Errorf("encoding body of %s %s: %w", req.Method, req.Path, err)
	}
	body := &Body{Mode: "raw", Raw: string(raw)}
	body.Options.Raw.Language = "json"
	return body, nil
}

func url(req convert.Request) URL {
	segs := convert.Segments(req.Path, req.Op)
	out := URL{
		Host:     []string{BaseURL},
		Path:     make([]string, len(segs)),
		Variable: []URLVariable{},
	}
	for i, s := range segs {
		if s.Param == "" {
			out.Path[i] = s.Text
			continue
		}
		out.Path[i] = ":" + s.Param
		out.Variable = append(out.Variable, URLVariable{
			Key:         s.Param,
			Value:       "{{" + s.Variable + "}}",
			Description: s.Description,
		})
	}
	out.Raw = convert.URL(BaseURL, segs, func(s convert.Segment) string { return ":" + s.Param })
	return out
}

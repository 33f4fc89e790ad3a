// Package spec assembles the OpenAPI document of a route table: it filters the routes,
// classifies each one, resolves its documentation and builds one operation per method.
package spec

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kolah/routedoc/internal/classify"
	"github.com/kolah/routedoc/internal/config"
	"github.com/kolah/routedoc/internal/extract"
	"github.com/kolah/routedoc/internal/jsonx"
	"github.com/kolah/routedoc/internal/metadata"
	"github.com/kolah/routedoc/internal/model"
	"github.com/kolah/routedoc/internal/naming"
	"github.com/kolah/routedoc/internal/registry"
	"github.com/kolah/routedoc/internal/routes"
	"github.com/kolah/routedoc/internal/templates"
)

// Run holds the caches of one generation run. It is not safe for concurrent use.
type Run struct {
	classifier *classify.Classifier
	resolver   *templates.Resolver
}

// Reset drops the resolved documentation and the metadata behind it.
func (r *Run) Reset() {
	r.resolver.Reset()
}

type Option func(*Assembler)

// WithClock sets the clock dates in examples are derived from.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

// WithSources adds metadata sources to every run.
func WithSources(sources ...metadata.Source) Option {
	return func(a *Assembler) { a.sources = append(a.sources, sources...) }
}

type Assembler struct {
	cfg       *config.Config
	registry  *registry.Registry
	store     *templates.Store
	rules     *extract.Extractor
	scenarios classify.Scenarios
	sources   []metadata.Source
	now       func() time.Time
	log       zerolog.Logger
}

func NewAssembler(cfg *config.Config, reg *registry.Registry, store *templates.Store, rx *extract.Extractor, log zerolog.Logger, opts ...Option) (*Assembler, error) {
	scenarios, err := Scenarios(cfg.Scenarios)
	if err != nil {
		return nil, err
	}
	a := &Assembler{
		cfg:       cfg,
		registry:  reg,
		store:     store,
		rules:     rx,
		scenarios: scenarios,
		now:       time.Now,
		log:       log,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Scenarios converts the scenario configuration.
func Scenarios(c config.ScenariosConfig) (classify.Scenarios, error) {
	pairs := make([][2]string, len(c.URIPatterns))
	for i, p := range c.URIPatterns {
		pairs[i] = [2]string{p.Pattern, p.Scenario}
	}
	patterns, err := classify.CompilePatterns(pairs)
	if err != nil {
		return classify.Scenarios{}, err
	}
	return classify.Scenarios{
		MiddlewareParam: c.MiddlewareParam,
		Patterns:        patterns,
		Defaults:        c.Defaults,
	}, nil
}

// NewRun starts a generation run with empty caches.
func (a *Assembler) NewRun() *Run {
	extractor := metadata.New(a.registry, a.rules, a.log, metadata.Options{
		Scenarios:              a.scenarios,
		EntityDescriptions:     a.cfg.EntityDescriptions,
		SanitizeFields:         a.cfg.Examples.SanitizeFields,
		OverrideSanitizeFields: a.cfg.Examples.OverrideSanitizeFields,
		Now:                    a.now,
		Sources:                a.sources,
	})
	return &Run{
		classifier: classify.New(a.registry, a.log),
		resolver:   templates.NewResolver(a.store, extractor, a.log),
	}
}

// Assemble documents the routes. apiTypes restricts the document to some api types (by key
// or prefix); environment, when set, replaces the servers with that environment's base URL.
// When operation IDs collide the document is returned together with a
// *DuplicateOperationError.
func (a *Assembler) Assemble(run *Run, rs []routes.Route, apiTypes []string, environment string) (*model.Document, error) {
	f, err := newFilter(a.cfg, apiTypes)
	if err != nil {
		return nil, err
	}

	servers := a.servers()
	if environment != "" {
		env, ok := a.cfg.Environments[environment]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEnvironment, environment)
		}
		servers = []model.Server{{URL: env.BaseURL, Description: env.Name}}
	}

	b := &builder{
		Assembler: a,
		run:       run,
		doc:       model.NewDocument(a.info(), servers),
		seen:      make(map[string]string),
		tags:      make(map[string]bool),
	}
	a.components(b.doc)

	for _, rt := range rs {
		t, ok := f.match(rt)
		if !ok {
			continue
		}
		if run.classifier.IsModuleRoot(rt.URI) {
			a.log.Debug().Str("uri", rt.URI).Msg("skipping module root route")
			continue
		}
		b.route(rt, t)
	}

	a.log.Info().
		Int("paths", b.doc.Paths.Len()).
		Int("operations", b.operations).
		Int("tags", len(b.doc.Tags)).
		Msg("specification assembled")

	if len(b.duplicates) > 0 {
		return b.doc, &DuplicateOperationError{Duplicates: b.duplicates}
	}
	return b.doc, nil
}

func (a *Assembler) info() model.Info {
	c := a.cfg.Info
	info := model.Info{
		Title:       c.Title,
		Description: c.Description,
		Version:     c.Version,
	}
	if c.Contact != (config.ContactConfig{}) {
		info.Contact = &model.Contact{Name: c.Contact.Name, Email: c.Contact.Email, URL: c.Contact.URL}
	}
	if c.License.Name != "" {
		info.License = &model.License{Name: c.License.Name, URL: c.License.URL}
	}
	return info
}

func (a *Assembler) servers() []model.Server {
	servers := make([]model.Server, len(a.cfg.Servers))
	for i, s := range a.cfg.Servers {
		servers[i] = model.Server{URL: s.URL, Description: s.Description}
	}
	return servers
}

func (a *Assembler) components(doc *model.Document) {
	errSchema := model.NewObject()
	errSchema.Properties.Set("message", &model.Schema{Type: model.TypeString, Example: "Error message"})
	doc.Components.Schemas.Set("Error", errSchema)

	validation := model.NewObject()
	validation.Properties.Set("message", &model.Schema{Type: model.TypeString, Example: "The given data was invalid."})
	validation.Properties.Set("errors", &model.Schema{
		Type: model.TypeObject,
		AdditionalProperties: &model.Schema{
			Type:  model.TypeArray,
			Items: &model.Schema{Type: model.TypeString},
		},
	})
	doc.Components.Schemas.Set("ValidationError", validation)

	for _, name := range config.SortedKeys(a.cfg.Security.Schemes) {
		s := a.cfg.Security.Schemes[name]
		doc.Components.SecuritySchemes.Set(name, &model.SecurityScheme{
			Type:         model.SecuritySchemeType(s.Type),
			Description:  s.Description,
			Name:         s.Name,
			In:           s.In,
			Scheme:       s.Scheme,
			BearerFormat: s.BearerFormat,
		})
	}
}

// builder accumulates the document of one Assemble call.
type builder struct {
	*Assembler
	run *Run
	doc *model.Document

	// seen maps operation IDs to the "METHOD /path" that produced them.
	seen       map[string]string
	tags       map[string]bool
	duplicates []Duplicate
	operations int
}

func (b *builder) route(rt routes.Route, t apiType) {
	cl := b.run.classifier.Classify(rt.URI)
	path := "/" + strings.ReplaceAll(rt.URI, "?}", "}")

	// operation IDs produced by earlier methods of this route
	own := make(map[string]bool)

	for _, method := range rt.Methods {
		m := model.Method(method).Upper()
		if !m.Documented() {
			continue
		}

		action := b.run.classifier.Action(rt, string(m))
		req := metadata.Request{Entity: cl.Entity, Module: cl.Module, Action: action, Route: rt}
		op := b.operation(rt, cl, t, m, action, b.run.resolver.Resolve(req))

		where := string(m) + " " + path
		if own[op.ID] {
			op.ID += "." + m.Lower()
		}
		if kept, ok := b.seen[op.ID]; ok {
			b.log.Debug().Str("operation", op.ID).Str("kept", kept).Str("dropped", where).Msg("duplicate operation id")
			b.duplicates = append(b.duplicates, Duplicate{OperationID: op.ID, Kept: kept, Dropped: where})
			continue
		}
		own[op.ID] = true
		b.seen[op.ID] = where

		item, ok := b.doc.Paths.Get(path)
		if !ok {
			item = jsonx.NewMap[*model.Operation]()
			b.doc.Paths.Set(path, item)
		}
		item.Set(m.Lower(), op)
		b.operations++
	}
}

// tag returns the tag of an entity, creating it on first use.
func (b *builder) tag(entity string, t apiType) string {
	name := naming.Studly(entity)
	if b.tags[name] {
		return name
	}
	b.tags[name] = true

	display := t.FolderName
	if display == "" {
		display = naming.Ucfirst(t.Key)
	}
	b.doc.Tags = append(b.doc.Tags, model.Tag{
		Name:        name,
		Description: name + " management endpoints",
		APIType:     t.Key,
		DisplayName: display,
	})
	return name
}

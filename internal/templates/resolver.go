package templates

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kolah/routedoc/internal/jsonx"
	"github.com/kolah/routedoc/internal/metadata"
	"github.com/kolah/routedoc/internal/model"
	"github.com/kolah/routedoc/internal/naming"
)

// genericAliases maps controller-style action names to generic template names.
var genericAliases = map[string]string{
	"index":   "list",
	"store":   "create",
	"edit":    "update",
	"destroy": "delete",
}

// Documentation is the resolved documentation of one operation.
type Documentation struct {
	Summary     string
	Description string
	// Document is the whole rendered template; extension keys ("x-...") are copied onto
	// the operation.
	Document       *jsonx.Object
	RequestExample *jsonx.Object
	RequestSchema  *model.Schema
	Metadata       *metadata.Metadata
	// Template is the origin of the rendered template, empty for the fallback.
	Template string
	Fallback bool
}

// Resolver picks and renders the documentation template of an operation: the custom
// template of the entity action, then the generic template of the action, then a
// generated fallback. Results are memoized per module.entity.action.
type Resolver struct {
	store     *Store
	extractor *metadata.Extractor
	processor *Processor
	log       zerolog.Logger

	cache map[string]*Documentation
}

func NewResolver(store *Store, extractor *metadata.Extractor, log zerolog.Logger) *Resolver {
	return &Resolver{
		store:     store,
		extractor: extractor,
		processor: NewProcessor(log),
		log:       log,
		cache:     make(map[string]*Documentation),
	}
}

func (r *Resolver) Resolve(req metadata.Request) *Documentation {
	key := req.Key()
	if doc, ok := r.cache[key]; ok {
		return doc
	}

	md := r.extractor.Extract(req)
	action := req.Action.String()

	var doc *Documentation
	if t, ok := r.store.Custom(req.Entity, naming.KebabCase(action)); ok {
		r.log.Debug().Str("template", t.Origin).Str("operation", key).Msg("using custom template")
		doc = r.render(t, md)
	} else if t, ok := r.store.Generic(genericName(action)); ok {
		r.log.Debug().Str("template", t.Origin).Str("operation", key).Msg("using generic template")
		doc = r.render(t, md)
	} else {
		r.log.Debug().Str("operation", key).Msg("no template found, using fallback")
		doc = Fallback(md)
	}

	r.cache[key] = doc
	return doc
}

// Reset drops the memoized documentation and the metadata behind it.
func (r *Resolver) Reset() {
	r.cache = make(map[string]*Documentation)
	r.extractor.Reset()
}

func genericName(action string) string {
	if alias, ok := genericAliases[action]; ok {
		return alias
	}
	return action
}

func (r *Resolver) render(t Template, md *metadata.Metadata) *Documentation {
	rendered, err := r.processor.Render(t, md.Values())
	if err != nil {
		r.log.Error().Err(err).
			Str("template", t.Origin).
			Str("entity", md.Entity).
			Str("action", md.Action.String()).
			Msg("template rendering failed, using fallback")
		return Fallback(md)
	}

	summary, _ := rendered.Get("summary")
	description, _ := rendered.Get("description")
	return &Documentation{
		Summary:        text(summary),
		Description:    text(description),
		Document:       rendered,
		RequestExample: md.RequestExample,
		RequestSchema:  md.RequestSchema,
		Metadata:       md,
		Template:       t.Origin,
	}
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	}
	return fmt.Sprint(v)
}

var fallbackSummaries = map[string]string{
	"list":   "List %s",
	"show":   "Get %s",
	"create": "Create %s",
	"update": "Update %s",
	"delete": "Delete %s",
}

// Fallback documents an operation from its entity and action names alone.
func Fallback(md *metadata.Metadata) *Documentation {
	title := naming.Title(md.Entity)
	action := md.Action.String()

	summary := naming.Ucfirst(action) + " " + title
	if format, ok := fallbackSummaries[action]; ok {
		summary = fmt.Sprintf(format, title)
	}
	description := fmt.Sprintf("Perform %s operation on %s.", action, title)

	document := jsonx.NewObject()
	document.Set("summary", summary)
	document.Set("description", description)

	return &Documentation{
		Summary:        summary,
		Description:    description,
		Document:       document,
		RequestExample: md.RequestExample,
		RequestSchema:  md.RequestSchema,
		Metadata:       md,
		Fallback:       true,
	}
}

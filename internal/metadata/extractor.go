package metadata

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kolah/routedoc/internal/classify"
	"github.com/kolah/routedoc/internal/extract"
	"github.com/kolah/routedoc/internal/jsonx"
	"github.com/kolah/routedoc/internal/model"
	"github.com/kolah/routedoc/internal/registry"
	"github.com/kolah/routedoc/internal/rules"
)

// DegradedMessage is the single value of a request example nothing could describe.
const DegradedMessage = "Example data - please configure a validator or model fillable fields"

// DefaultSanitizeFields are redacted from every example unless OverrideSanitizeFields is set.
var DefaultSanitizeFields = []string{
	"password",
	"password_hash",
	"token",
	"access_token",
	"refresh_token",
	"secret",
	"api_key",
	"private_key",
	"remember_token",
	"two_factor_secret",
	"two_factor_recovery_codes",
}

type Options struct {
	Scenarios          classify.Scenarios
	EntityDescriptions map[string]string
	// SanitizeFields are removed from every generated example in addition to
	// DefaultSanitizeFields. With OverrideSanitizeFields they replace the defaults.
	SanitizeFields         []string
	OverrideSanitizeFields bool
	Now                    func() time.Time
	// Sources are added to the built-in config, model and validator sources.
	Sources []Source
}

// Extractor runs the source chain for an operation and memoizes the record by
// module, entity and action. One extractor serves one generation run.
type Extractor struct {
	scenarios classify.Scenarios
	sources   []Source
	converter rules.Converter
	sanitize  map[string]bool
	log       zerolog.Logger

	cache map[string]*Metadata
}

func New(reg *registry.Registry, rx *extract.Extractor, log zerolog.Logger, opts Options) *Extractor {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	converter := rules.NewConverter(now())

	sanitize := opts.SanitizeFields
	if !opts.OverrideSanitizeFields {
		sanitize = append(slices.Clone(DefaultSanitizeFields), sanitize...)
	}

	sources := []Source{
		ConfigSource{EntityDescriptions: opts.EntityDescriptions},
		ModelSource{Registry: reg},
		ValidatorSource{Registry: reg, Rules: rx, Converter: converter},
	}
	sources = append(sources, opts.Sources...)
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Priority() > sources[j].Priority()
	})

	e := &Extractor{
		scenarios: opts.Scenarios,
		sources:   sources,
		converter: converter,
		sanitize:  make(map[string]bool, len(sanitize)),
		log:       log,
		cache:     make(map[string]*Metadata),
	}
	for _, f := range sanitize {
		e.sanitize[strings.ToLower(f)] = true
	}
	return e
}

// Extract returns the record of the operation, computing it on first use.
func (e *Extractor) Extract(req Request) *Metadata {
	key := req.Key()
	if md, ok := e.cache[key]; ok {
		return md
	}

	md := newMetadata(req, e.scenarios.Resolve(req.Route, req.Action))
	for _, s := range e.sources {
		if !e.canExtract(s, req) {
			continue
		}
		if err := e.run(s, req, md); err != nil {
			e.log.Debug().Err(err).Str("source", s.Name()).Str("operation", key).Msg("metadata source unavailable")
		}
	}
	e.completeRequest(md)
	e.redact(md)

	e.log.Debug().
		Str("operation", key).
		Str("scenario", md.Scenario).
		Str("validator", md.Validator).
		Str("model", md.ModelName()).
		Int("rules", md.ValidationRules.Len()).
		Bool("degraded", md.Degraded).
		Msg("metadata extracted")

	e.cache[key] = md
	return md
}

// Reset drops every memoized record.
func (e *Extractor) Reset() {
	e.cache = make(map[string]*Metadata)
}

func (e *Extractor) canExtract(s Source, req Request) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Debug().Str("source", s.Name()).Interface("panic", r).Msg("metadata source check panicked")
			ok = false
		}
	}()
	return s.CanExtract(req)
}

func (e *Extractor) run(s Source, req Request, md *Metadata) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("source %s panicked: %v", s.Name(), r)
		}
	}()
	return s.Extract(req, md)
}

// completeRequest fills the request schema and example when no rules were found: from
// the model's fillable attributes, else with a placeholder marked degraded.
func (e *Extractor) completeRequest(md *Metadata) {
	if md.RequestSchema != nil && md.RequestSchema.Properties != nil && md.RequestSchema.Properties.Len() > 0 {
		return
	}

	if md.Model != nil {
		fields := md.Model.Fillable
		if len(fields) == 0 {
			fields = md.Model.Fields
		}
		schema := model.NewObject()
		example := jsonx.NewObject()
		for _, f := range fields {
			if systemFields[f] {
				continue
			}
			cast, ok := md.Model.Cast(f)
			if !ok {
				cast = "string"
			}
			prop := fieldTypeToSchema(cast)
			prop.Example = e.converter.CastExample(cast, f)
			// cast examples use the "2006-01-02 15:04:05" layout, not RFC 3339
			if prop.Format == "date-time" {
				prop.Format = ""
			}
			schema.Properties.Set(f, prop)
			example.Set(f, prop.Example)
		}
		if example.Len() > 0 {
			md.RequestSchema = schema
			md.RequestExample = example
			return
		}
	}

	e.log.Debug().Str("entity", md.Entity).Str("action", md.Action.String()).Msg("no validator rules or model fields, using generic request example")
	md.Degraded = true
	md.RequestSchema = model.NewObject()
	md.RequestSchema.Properties.Set("data", &model.Schema{Type: model.TypeString})
	md.RequestExample = jsonx.NewObject()
	md.RequestExample.Set("data", DegradedMessage)
}

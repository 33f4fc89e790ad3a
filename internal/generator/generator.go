// Package generator is the operation surface of routedoc: it assembles, converts, encodes
// and caches documents, and lists what can be generated.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/kolah/routedoc/internal/cache"
	"github.com/kolah/routedoc/internal/config"
	"github.com/kolah/routedoc/internal/convert/collection"
	"github.com/kolah/routedoc/internal/convert/workspace"
	"github.com/kolah/routedoc/internal/environment"
	"github.com/kolah/routedoc/internal/jsonx"
	"github.com/kolah/routedoc/internal/model"
	"github.com/kolah/routedoc/internal/routes"
	"github.com/kolah/routedoc/internal/spec"
	"github.com/kolah/routedoc/internal/testscripts"
)

type Format string

const (
	FormatOpenAPI     Format = "openapi"
	FormatCollection  Format = "collection"
	FormatWorkspace   Format = "workspace"
	FormatEnvironment Format = "environment"
)

var Formats = []Format{FormatOpenAPI, FormatCollection, FormatWorkspace, FormatEnvironment}

const (
	EncodingJSON = "json"
	EncodingYAML = "yaml"
)

var (
	ErrUnknownFormat      = errors.New("unknown format")
	ErrUnknownEncoding    = errors.New("unknown encoding")
	ErrUnknownAPIType     = spec.ErrUnknownAPIType
	ErrUnknownEnvironment = spec.ErrUnknownEnvironment
)

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(s))
	if !slices.Contains(Formats, f) {
		return "", fmt.Errorf("%w: %s (valid: openapi, collection, workspace, environment)", ErrUnknownFormat, s)
	}
	return f, nil
}

// Request selects one document.
type Request struct {
	Format Format
	// APITypes restricts the document to some api types; empty means all enabled ones.
	APITypes []string
	// Environment replaces the servers of the document. It is required for
	// FormatEnvironment, where it falls back to the default environment.
	Environment string
	// Encoding is json or yaml; empty uses the configured output encoding.
	Encoding string
	NoCache  bool
}

type Option func(*Generator)

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithCache enables result caching. Without it every request is generated.
func WithCache(c cache.Cache) Option {
	return func(g *Generator) { g.cache = c }
}

type Generator struct {
	cfg       *config.Config
	assembler *spec.Assembler
	routes    []routes.Route
	cache     cache.Cache
	tests     *testscripts.Resolver
	now       func() time.Time
	log       zerolog.Logger
	group     singleflight.Group
}

func New(cfg *config.Config, assembler *spec.Assembler, rs []routes.Route, log zerolog.Logger, opts ...Option) (*Generator, error) {
	tests, err := testscripts.New(cfg.Tests)
	if err != nil {
		return nil, fmt.Errorf("loading test scripts: %w", err)
	}
	g := &Generator{
		cfg:       cfg,
		assembler: assembler,
		routes:    rs,
		tests:     tests,
		now:       time.Now,
		log:       log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate returns the encoded document. Concurrent requests for the same document share
// one generation; cached documents are returned as stored.
func (g *Generator) Generate(ctx context.Context, req Request) ([]byte, error) {
	req, err := g.normalize(req)
	if err != nil {
		return nil, err
	}

	key := g.Key(req)
	useCache := g.cache != nil && g.cfg.Cache.Enabled && !req.NoCache

	if useCache {
		data, err := g.cache.Get(ctx, key)
		switch {
		case err == nil:
			g.log.Debug().Str("key", key).Msg("cache hit")
			return encode(data, req.Encoding)
		case !errors.Is(err, cache.ErrNotFound):
			g.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
	}

	v, err, _ := g.group.Do(key, func() (any, error) {
		data, err := g.build(req)
		if err != nil {
			return nil, err
		}
		if useCache {
			if err := g.cache.Set(ctx, key, data, g.cfg.Cache.TTL); err != nil {
				g.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
			}
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return encode(v.([]byte), req.Encoding)
}

// Document assembles the OpenAPI document without caching or encoding.
func (g *Generator) Document(apiTypes []string, env string) (*model.Document, error) {
	req, err := g.normalize(Request{Format: FormatOpenAPI, APITypes: apiTypes, Environment: env})
	if err != nil {
		return nil, err
	}
	return g.document(req)
}

// ClearCache removes every cached document and reports how many were removed.
func (g *Generator) ClearCache(ctx context.Context) (int, error) {
	if g.cache == nil {
		return 0, nil
	}
	n, err := g.cache.Clear(ctx, g.cfg.Cache.KeyPrefix)
	if err != nil {
		return n, fmt.Errorf("clearing cache: %w", err)
	}
	g.log.Info().Int("keys", n).Msg("cache cleared")
	return n, nil
}

func (g *Generator) ListEnabledAPITypes() []string {
	return g.cfg.EnabledAPITypes()
}

func (g *Generator) ListEnvironments() []string {
	return g.cfg.EnvironmentNames()
}

// Key is the cache key of a request: {prefix}{types|all}_{environment|default}_{format}.
func (g *Generator) Key(req Request) string {
	if n, err := g.normalize(req); err == nil {
		req = n
	}
	types := "all"
	if len(req.APITypes) > 0 {
		types = strings.Join(req.APITypes, "_")
	}
	env := req.Environment
	if env == "" {
		env = "default"
	}
	return g.cfg.Cache.KeyPrefix + types + "_" + env + "_" + string(req.Format)
}

// Filename is the output file of a request: {format}-{types|all}[-{environment}].{encoding}.
// Environment documents are named {format}-{environment}.{encoding}.
// The request is normalized first, so filters and the default environment are reflected.
func (g *Generator) Filename(req Request) string {
	if n, err := g.normalize(req); err == nil {
		req = n
	}
	name := string(req.Format)
	if req.Format != FormatEnvironment {
		types := "all"
		if len(req.APITypes) > 0 {
			types = strings.Join(req.APITypes, "-")
		}
		name += "-" + types
	}
	if req.Environment != "" {
		name += "-" + req.Environment
	}
	encoding := req.Encoding
	if encoding == "" {
		encoding = g.encoding()
	}
	return name + "." + encoding
}

func (g *Generator) encoding() string {
	if g.cfg.Output.Encoding == "" {
		return EncodingJSON
	}
	return g.cfg.Output.Encoding
}

// normalize validates a request and puts its filters in canonical order.
func (g *Generator) normalize(req Request) (Request, error) {
	if !slices.Contains(Formats, req.Format) {
		return req, fmt.Errorf("%w: %s", ErrUnknownFormat, req.Format)
	}

	if req.Encoding == "" {
		req.Encoding = g.encoding()
	}
	if req.Encoding != EncodingJSON && req.Encoding != EncodingYAML {
		return req, fmt.Errorf("%w: %s (valid: json, yaml)", ErrUnknownEncoding, req.Encoding)
	}

	if req.Format == FormatEnvironment {
		req.APITypes = nil
		if req.Environment == "" {
			req.Environment = g.cfg.DefaultEnvironment
		}
		if req.Environment == "" {
			return req, fmt.Errorf("%w: none given and no default environment", ErrUnknownEnvironment)
		}
	}
	if req.Environment != "" {
		if _, ok := g.cfg.Environments[req.Environment]; !ok {
			return req, fmt.Errorf("%w: %s", ErrUnknownEnvironment, req.Environment)
		}
	}

	types := make([]string, 0, len(req.APITypes))
	for _, t := range req.APITypes {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && !slices.Contains(types, t) {
			types = append(types, t)
		}
	}
	slices.Sort(types)
	req.APITypes = types
	return req, nil
}

// build generates the JSON encoding of a normalized request.
func (g *Generator) build(req Request) ([]byte, error) {
	start := time.Now()

	var out any
	switch req.Format {
	case FormatEnvironment:
		doc, err := environment.New(g.cfg, g.now).Generate(req.Environment)
		if err != nil {
			return nil, err
		}
		out = doc
	default:
		doc, err := g.document(req)
		if err != nil {
			return nil, err
		}
		switch req.Format {
		case FormatCollection:
			out, err = collection.New(g.cfg, g.tests, g.log).Convert(doc)
		case FormatWorkspace:
			out, err = workspace.New(g.cfg, g.tests, g.now, g.log).Convert(doc, req.APITypes)
		default:
			out = doc
		}
		if err != nil {
			return nil, fmt.Errorf("converting to %s: %w", req.Format, err)
		}
	}

	data, err := jsonx.MarshalIndent(out)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", req.Format, err)
	}

	g.log.Info().
		Str("format", string(req.Format)).
		Strs("api_types", req.APITypes).
		Str("environment", req.Environment).
		Dur("took", time.Since(start)).
		Msg("document generated")
	return data, nil
}

func (g *Generator) document(req Request) (*model.Document, error) {
	doc, err := g.assembler.Assemble(g.assembler.NewRun(), g.routes, req.APITypes, req.Environment)
	var dup *spec.DuplicateOperationError
	switch {
	case errors.As(err, &dup) && g.cfg.AllowDuplicateOperationIDs:
		for _, d := range dup.Duplicates {
			g.log.Error().
				Str("operation_id", d.OperationID).
				Str("kept", d.Kept).
				Str("dropped", d.Dropped).
				Msg("duplicate operation id")
		}
	case err != nil:
		return nil, fmt.Errorf("assembling document: %w", err)
	}
	return doc, nil
}

func encode(data []byte, encoding string) ([]byte, error) {
	if encoding != EncodingYAML {
		return data, nil
	}
	out, err := jsonx.YAML(json.RawMessage(data))
	if err != nil {
		return nil, fmt.Errorf("encoding yaml: %w", err)
	}
	return out, nil
}

// Package environment generates the per-deployment variable documents that accompany
// a collection.
package environment

import (
	"errors"
	"fmt"
	"time"

	"github.com/kolah/routedoc/internal/config"
	"github.com/kolah/routedoc/internal/convert"
)

const (
	VariableScope = "environment"
	ExportedUsing = "routedoc"
)

var ErrUnknownEnvironment = errors.New("unknown environment")

type Document struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Values        []Value `json:"values"`
	VariableScope string  `json:"_postman_variable_scope"`
	ExportedAt    string  `json:"_postman_exported_at"`
	ExportedUsing string  `json:"_postman_exported_using"`
}

type Value struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

type Generator struct {
	cfg *config.Config
	now func() time.Time
}

func New(cfg *config.Config, now func() time.Time) *Generator {
	return &Generator{cfg: cfg, now: now}
}

// Generate builds the document of one environment. An environment starts from its
// ancestors' variables and tracking variables and overrides them with its own.
func (g *Generator) Generate(name string) (*Document, error) {
	env, ok := g.cfg.Environments[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEnvironment, name)
	}

	display := env.Name
	if display == "" {
		display = name
	}

	return &Document{
		ID:            convert.UUID("environment", name).String(),
		Name:          display,
		Values:        values(g.variables(env)),
		VariableScope: VariableScope,
		ExportedAt:    g.now().UTC().Format(time.RFC3339),
		ExportedUsing: ExportedUsing,
	}, nil
}

// All generates every environment except base, keyed by environment name.
func (g *Generator) All() (map[string]*Document, error) {
	out := make(map[string]*Document)
	for _, name := range g.cfg.EnvironmentNames() {
		if name == config.BaseEnvironment {
			continue
		}
		doc, err := g.Generate(name)
		if err != nil {
			return nil, err
		}
		out[name] = doc
	}
	return out, nil
}

// variable is one key in emission order.
type variable struct {
	key, value string
}

// variables walks the parent chain from the root down, so the nearest definition of a key
// wins while keys keep the position where they first appeared.
func (g *Generator) variables(env config.Environment) []variable {
	var out []variable
	index := make(map[string]int)
	set := func(vars map[string]string) {
		for _, k := range config.SortedKeys(vars) {
			if i, ok := index[k]; ok {
				out[i].value = vars[k]
				continue
			}
			index[k] = len(out)
			out = append(out, variable{k, vars[k]})
		}
	}

	var chain []config.Environment
	visited := make(map[string]bool)
	for e, ok := env, true; ok; e, ok = g.cfg.Environments[e.Parent] {
		chain = append(chain, e)
		if e.Parent == "" || visited[e.Parent] {
			break
		}
		visited[e.Parent] = true
	}

	for i := len(chain) - 1; i >= 0; i-- {
		e := chain[i]
		set(e.Variables)
		set(e.TrackingVariables)
		if e.BaseURL != "" {
			set(map[string]string{"base_url": e.BaseURL})
		}
	}
	return out
}

func values(vars []variable) []Value {
	out := make([]Value, len(vars))
	for i, v := range vars {
		out[i] = Value{Key: v.key, Value: v.value, Type: "default", Enabled: true}
	}
	return out
}

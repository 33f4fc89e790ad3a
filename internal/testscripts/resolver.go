// Package testscripts resolves the assertion scripts attached to converted requests.
// A script is a list of checks, each check a snippet per output format.
package testscripts

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"go.yaml.in/yaml/v4"

	"github.com/kolah/routedoc/internal/config"
	"github.com/kolah/routedoc/internal/naming"
)

type Format string

const (
	FormatCollection Format = "collection"
	FormatWorkspace  Format = "workspace"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// DefaultChecks is used for actions without a template.
var DefaultChecks = []string{"status_200", "json_response"}

// SaveToken stores the token of a login response in the environment.
const SaveToken = "save_token"

type defaults struct {
	Templates map[string][]string            `yaml:"templates"`
	Snippets  map[string]map[string][]string `yaml:"snippets"`
}

type Resolver struct {
	templates map[string][]string
	custom    map[string][]string
	snippets  map[string]map[string][]string
}

// New merges the configured templates and snippets over the built-in ones.
func New(cfg config.TestsConfig) (*Resolver, error) {
	var d defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		return nil, fmt.Errorf("parsing default test snippets: %w", err)
	}

	r := &Resolver{
		templates: d.Templates,
		custom:    make(map[string][]string, len(cfg.Custom)),
		snippets:  d.Snippets,
	}
	for action, checks := range cfg.Templates {
		r.templates[action] = checks
	}
	for _, c := range cfg.Custom {
		r.custom[c.Entity+"."+c.Action] = c.Checks
	}
	for check, formats := range cfg.Snippets {
		if r.snippets[check] == nil {
			r.snippets[check] = make(map[string][]string)
		}
		for format, lines := range formats {
			r.snippets[check][format] = lines
		}
	}
	return r, nil
}

// Checks returns the check names for an entity action: a custom entry first, then the
// action template, then DefaultChecks.
func (r *Resolver) Checks(action, entity string) []string {
	if checks, ok := r.custom[entity+"."+action]; ok {
		return checks
	}
	if checks, ok := r.templates[action]; ok {
		return checks
	}
	return DefaultChecks
}

// Script renders the checks of an entity action for one format. Checks without a
// snippet for the format contribute nothing.
func (r *Resolver) Script(format Format, action, entity string) []string {
	return r.render(format, r.Checks(action, entity), entity)
}

// LoginScript is Script with SaveToken appended when the checks lack it.
func (r *Resolver) LoginScript(format Format, action, entity string) []string {
	checks := r.Checks(action, entity)
	if !slices.Contains(checks, SaveToken) {
		checks = append(slices.Clone(checks), SaveToken)
	}
	return r.render(format, checks, entity)
}

func (r *Resolver) render(format Format, checks []string, entity string) []string {
	var lines []string
	for _, check := range checks {
		lines = append(lines, r.Snippet(format, check, entity)...)
	}
	return lines
}

// Snippet renders one check for an entity.
func (r *Resolver) Snippet(format Format, check, entity string) []string {
	snippet := r.snippets[check][string(format)]
	if len(snippet) == 0 {
		return nil
	}
	replacer := strings.NewReplacer(
		"{{tracking_var}}", naming.TrackingVariable(entity),
		"{{entity}}", naming.Ucfirst(naming.Singular(entity)),
	)
	lines := make([]string, len(snippet))
	for i, line := range snippet {
		lines[i] = replacer.Replace(line)
	}
	return lines
}

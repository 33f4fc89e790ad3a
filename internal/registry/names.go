package registry

import (
	"strings"

	"github.com/kolah/routedoc/internal/naming"
)

// Namespaces holds the roots of qualified names. Candidate generation is pure so the
// naming conventions can be tested without a populated registry.
type Namespaces struct {
	// Modules is the root of module namespaces: Modules.{Module}.Entities.{Model}.
	Modules string
	// Global is the application namespace: App.Models.{Model}.
	Global string
}

func (n Namespaces) withDefaults() Namespaces {
	if n.Modules == "" {
		n.Modules = "Modules"
	}
	if n.Global == "" {
		n.Global = "App"
	}
	return n
}

func join(parts ...string) string {
	return strings.Join(parts, ".")
}

// ModelCandidates lists model names for an entity: module Entities and Models with the
// singular name, then with the original name, then the global candidates.
func (n Namespaces) ModelCandidates(entity, module string) []string {
	n = n.withDefaults()
	return append(n.moduleModelCandidates(entity, module), n.GlobalModelCandidates(entity)...)
}

func (n Namespaces) moduleModelCandidates(entity, module string) []string {
	n = n.withDefaults()
	if module == "" || module == GeneralModule {
		return nil
	}
	ns := join(n.Modules, naming.Studly(module))
	singular := naming.Studly(naming.Singular(entity))
	original := naming.Studly(entity)

	out := []string{
		join(ns, "Entities", singular),
		join(ns, "Models", singular),
	}
	if original != singular {
		out = append(out, join(ns, "Entities", original), join(ns, "Models", original))
	}
	return out
}

// GlobalModelCandidates lists App.Models.{Singular} then App.Models.{Original}.
func (n Namespaces) GlobalModelCandidates(entity string) []string {
	n = n.withDefaults()
	singular := naming.Studly(naming.Singular(entity))
	original := naming.Studly(entity)

	out := []string{join(n.Global, "Models", singular)}
	if original != singular {
		out = append(out, join(n.Global, "Models", original))
	}
	return out
}

// ValidatorCandidates lists request names: action-specific, entity singular and entity
// plural in the module namespace, then the same three globally.
func (n Namespaces) ValidatorCandidates(entity, module, action string) []string {
	n = n.withDefaults()
	singular := naming.Studly(naming.Singular(entity))
	plural := naming.Studly(entity)

	var names []string
	if action != "" {
		names = append(names, naming.Studly(action)+"Request")
	}
	names = append(names, singular+"Request")
	if plural != singular {
		names = append(names, plural+"Request")
	}

	var out []string
	if module != "" && module != GeneralModule {
		ns := join(n.Modules, naming.Studly(module), "Http", "Requests")
		for _, name := range names {
			out = append(out, join(ns, name))
		}
	}
	ns := join(n.Global, "Http", "Requests")
	for _, name := range names {
		out = append(out, join(ns, name))
	}
	return out
}

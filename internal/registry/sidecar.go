package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"go.yaml.in/yaml/v4"

	"github.com/kolah/routedoc/internal/jsonx"
)

// The sidecar file declares registry entries for applications that are documented from
// the command line instead of linking the generator in:
//
//	modules: [Billing]
//	models:
//	  Modules.Billing.Entities.Invoice:
//	    fillable: [amount, email]
//	    casts: {amount: decimal}
//	    relations: {customer: BelongsTo}
//	validators:
//	  Modules.Billing.Http.Requests.InvoiceRequest:
//	    rules:
//	      create: {amount: required|numeric, email: [required, email]}
//	    source: requests/invoice.go
//	controllers:
//	  InvoiceController: {store: Modules.Billing.Http.Requests.InvoiceRequest}
type sidecarFile struct {
	Modules     []string                     `yaml:"modules"`
	Models      map[string]sidecarModel      `yaml:"models"`
	Validators  map[string]sidecarValidator  `yaml:"validators"`
	Controllers map[string]map[string]string `yaml:"controllers"`
}

type sidecarModel struct {
	Table       string    `yaml:"table"`
	Fields      []string  `yaml:"fields"`
	Fillable    []string  `yaml:"fillable"`
	Hidden      []string  `yaml:"hidden"`
	Casts       yaml.Node `yaml:"casts"`
	Relations   yaml.Node `yaml:"relations"`
	SoftDeletes bool      `yaml:"soft_deletes"`
}

type sidecarValidator struct {
	Rules  yaml.Node `yaml:"rules"`
	Source string    `yaml:"source"`
	Type   string    `yaml:"type"`
}

// LoadSidecar reads a sidecar file into the registry. Relative source paths are
// resolved against the file's directory.
func (r *Registry) LoadSidecar(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading registry sidecar: %w", err)
	}
	if err := r.ParseSidecar(data, filepath.Dir(path)); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func (r *Registry) ParseSidecar(data []byte, baseDir string) error {
	var f sidecarFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing registry sidecar: %w", err)
	}

	for _, m := range f.Modules {
		r.RegisterModule(m)
	}

	for _, name := range sortedKeys(f.Models) {
		sm := f.Models[name]
		m, err := sm.model(name)
		if err != nil {
			return fmt.Errorf("model %s: %w", name, err)
		}
		r.AddModel(m)
	}

	for _, name := range sortedKeys(f.Validators) {
		sv := f.Validators[name]
		v := &Validator{Name: name, TypeName: sv.Type}
		if sv.Source != "" {
			v.Source = sv.Source
			if !filepath.IsAbs(v.Source) && baseDir != "" {
				v.Source = filepath.Join(baseDir, v.Source)
			}
		}
		if !isEmptyNode(&sv.Rules) {
			v.Declared = NodeValue(&sv.Rules)
		}
		r.AddValidator(v)
	}

	for _, name := range sortedKeys(f.Controllers) {
		c := &Controller{Name: name}
		for method, validator := range f.Controllers[name] {
			c.bind(method, validator)
		}
		r.AddController(c)
	}
	return nil
}

func (sm sidecarModel) model(name string) (*Model, error) {
	m := &Model{
		Name:        name,
		Table:       sm.Table,
		Fields:      sm.Fields,
		Fillable:    sm.Fillable,
		Hidden:      sm.Hidden,
		Casts:       jsonx.NewMap[string](),
		SoftDeletes: sm.SoftDeletes,
	}

	if !isEmptyNode(&sm.Casts) {
		casts, ok := NodeValue(&sm.Casts).(*jsonx.Object)
		if !ok {
			return nil, fmt.Errorf("casts must be a mapping")
		}
		casts.Each(func(k string, v any) bool {
			m.Casts.Set(k, fmt.Sprint(v))
			return true
		})
	}

	if !isEmptyNode(&sm.Relations) {
		rels, ok := NodeValue(&sm.Relations).(*jsonx.Object)
		if !ok {
			return nil, fmt.Errorf("relations must be a mapping")
		}
		rels.Each(func(k string, v any) bool {
			m.Relations = append(m.Relations, Relation{Name: k, Type: fmt.Sprint(v)})
			return true
		})
	}

	if len(m.Fields) == 0 {
		for _, group := range [][]string{sm.Fillable, sm.Hidden, m.Casts.Keys()} {
			for _, f := range group {
				if !slices.Contains(m.Fields, f) {
					m.Fields = append(m.Fields, f)
				}
			}
		}
	}
	if m.Table == "" {
		m.Table = defaultTable(name)
	}
	if slices.Contains(m.Fields, "deleted_at") {
		m.SoftDeletes = true
	}
	return m, nil
}

func isEmptyNode(n *yaml.Node) bool {
	return n == nil || n.Kind == 0
}

// NodeValue converts a YAML node into ordered values: mappings become *jsonx.Object,
// sequences []any, scalars string and null nil.
func NodeValue(n *yaml.Node) any {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil
		}
		return NodeValue(n.Content[0])
	case yaml.MappingNode:
		obj := jsonx.NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			obj.Set(n.Content[i].Value, NodeValue(n.Content[i+1]))
		}
		return obj
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			out = append(out, NodeValue(c))
		}
		return out
	case yaml.AliasNode:
		return NodeValue(n.Alias)
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil
		}
		return n.Value
	default:
		return nil
	}
}

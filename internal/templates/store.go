package templates

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed builtin
var builtin embed.FS

const (
	tierCustom  = "custom"
	tierGeneric = "generic"
)

// Template is one raw JSON template and where it was read from.
type Template struct {
	// Name is the path relative to its root, e.g. "generic/list.json".
	Name    string
	Origin  string
	Content []byte
}

// Store holds the templates of the user directories and the built-in set. A name found in
// a user directory shadows the built-in template of the same name; earlier directories
// shadow later ones.
type Store struct {
	user    []map[string]Template
	builtin map[string]Template
}

func NewStore(dirs ...string) (*Store, error) {
	s := &Store{}

	var err error
	s.builtin, err = loadFS(builtin, "builtin", "builtin")
	if err != nil {
		return nil, fmt.Errorf("loading builtin templates: %w", err)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		templates, err := loadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("loading templates from %s: %w", dir, err)
		}
		s.user = append(s.user, templates)
	}
	return s, nil
}

func loadFS(fsys fs.FS, root, origin string) (map[string]Template, error) {
	out := make(map[string]Template)
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".json") {
			return nil
		}
		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("reading template %s: %w", p, err)
		}
		name := strings.TrimPrefix(p, root+"/")
		out[name] = Template{Name: name, Origin: path.Join(origin, name), Content: content}
		return nil
	})
	return out, err
}

func loadDir(dir string) (map[string]Template, error) {
	out := make(map[string]Template)
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".json") {
			return nil
		}
		content, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("reading template %s: %w", p, err)
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		out[name] = Template{Name: name, Origin: p, Content: content}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return out, nil
}

// Lookup finds a template by name, user directories first.
func (s *Store) Lookup(name string) (Template, bool) {
	for _, templates := range s.user {
		if t, ok := templates[name]; ok {
			return t, true
		}
	}
	t, ok := s.builtin[name]
	return t, ok
}

// Custom finds the template of one entity action: custom/{entity}.{action}.json.
func (s *Store) Custom(entity, action string) (Template, bool) {
	return s.Lookup(path.Join(tierCustom, entity+"."+action+".json"))
}

// Generic finds the template shared by all entities for an action: generic/{action}.json.
func (s *Store) Generic(action string) (Template, bool) {
	return s.Lookup(path.Join(tierGeneric, action+".json"))
}

// Names lists every template name visible through the store.
func (s *Store) Names() []string {
	seen := make(map[string]bool)
	var names []string
	add := func(templates map[string]Template) {
		for name := range templates {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	for _, templates := range s.user {
		add(templates)
	}
	add(s.builtin)
	sort.Strings(names)
	return names
}

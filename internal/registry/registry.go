// Package registry is the type lookup the generator uses in place of class-existence
// checks: models, validators and controllers are registered under dotted qualified names
// (Modules.Billing.Entities.Invoice, App.Http.Requests.LoginRequest) and found by trying
// name candidates in a fixed order.
package registry

import (
	"fmt"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/kolah/routedoc/internal/naming"
)

// GeneralModule is the module of routes that do not belong to a module directory.
const GeneralModule = "general"

type Options struct {
	// ModulesPath is the directory holding one sub-directory per module.
	ModulesPath string
	Namespaces  Namespaces
}

type Registry struct {
	names       Namespaces
	modulesPath string

	models      map[string]*Model
	validators  map[string]*Validator
	controllers map[string]*Controller
	modules     map[string]bool
}

func New(opts Options) *Registry {
	return &Registry{
		names:       opts.Namespaces.withDefaults(),
		modulesPath: opts.ModulesPath,
		models:      make(map[string]*Model),
		validators:  make(map[string]*Validator),
		controllers: make(map[string]*Controller),
		modules:     make(map[string]bool),
	}
}

func (r *Registry) Namespaces() Namespaces {
	return r.names
}

// RegisterModule declares a module without a directory on disk.
func (r *Registry) RegisterModule(name string) {
	r.modules[naming.Studly(name)] = true
}

// IsModule reports whether a URI segment names a module: a declared module or a
// directory <modules path>/<Studly(segment)>.
func (r *Registry) IsModule(segment string) bool {
	if segment == "" {
		return false
	}
	name := naming.Studly(segment)
	if r.modules[name] {
		return true
	}
	if r.modulesPath == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(r.modulesPath, name))
	return err == nil && info.IsDir()
}

// AddModel stores a model descriptor under its name.
func (r *Registry) AddModel(m *Model) {
	r.models[m.Name] = m
}

// RegisterModel describes a Go struct reflectively and stores it under name.
func (r *Registry) RegisterModel(name string, v any) error {
	m, err := DescribeModel(name, v)
	if err != nil {
		return fmt.Errorf("registering model %s: %w", name, err)
	}
	r.AddModel(m)
	return nil
}

func (r *Registry) Model(name string) (*Model, bool) {
	m, ok := r.models[name]
	return m, ok
}

// FindModel tries the module candidates, then the global ones.
func (r *Registry) FindModel(entity, module string) (*Model, bool) {
	for _, name := range r.names.ModelCandidates(entity, module) {
		if m, ok := r.models[name]; ok {
			return m, true
		}
	}
	return nil, false
}

// FindGlobalModel looks only in the global models namespace.
func (r *Registry) FindGlobalModel(entity string) (*Model, bool) {
	for _, name := range r.names.GlobalModelCandidates(entity) {
		if m, ok := r.models[name]; ok {
			return m, true
		}
	}
	return nil, false
}

// HasModuleModel reports whether the module declares a model for the entity.
func (r *Registry) HasModuleModel(entity, module string) bool {
	for _, name := range r.names.moduleModelCandidates(entity, module) {
		if _, ok := r.models[name]; ok {
			return true
		}
	}
	return false
}

func (r *Registry) AddValidator(v *Validator) {
	if existing, ok := r.validators[v.Name]; ok {
		existing.merge(v)
		return
	}
	r.validators[v.Name] = v
}

// RegisterValidator stores a validator type. v is a value or pointer of the validator
// struct type; options attach a constructor, a source file or declared rules.
func (r *Registry) RegisterValidator(name string, v any, opts ...ValidatorOption) error {
	val := &Validator{Name: name}
	if v != nil {
		t := reflect.TypeOf(v)
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t.Kind() != reflect.Struct {
			return fmt.Errorf("registering validator %s: %s is not a struct", name, t)
		}
		val.Type = t
	}
	for _, opt := range opts {
		if err := opt(val); err != nil {
			return fmt.Errorf("registering validator %s: %w", name, err)
		}
	}
	r.AddValidator(val)
	return nil
}

func (r *Registry) Validator(name string) (*Validator, bool) {
	v, ok := r.validators[name]
	return v, ok
}

// FindValidator tries action-specific, singular and plural request names in the module,
// then the same in the global namespace.
func (r *Registry) FindValidator(entity, module, action string) (*Validator, bool) {
	for _, name := range r.names.ValidatorCandidates(entity, module, action) {
		if v, ok := r.validators[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// validatorByType returns the first validator of type t by name, so lookups are stable
// when one struct is registered under several names.
func (r *Registry) validatorByType(t reflect.Type) (*Validator, bool) {
	for _, name := range slices.Sorted(maps.Keys(r.validators)) {
		if v := r.validators[name]; v.Type == t {
			return v, true
		}
	}
	return nil, false
}

// AddController stores explicit method -> validator bindings.
func (r *Registry) AddController(c *Controller) {
	if existing, ok := r.controllers[c.Name]; ok {
		for m, v := range c.Bindings {
			existing.bind(m, v)
		}
		if c.Type != nil {
			existing.Type = c.Type
		}
		return
	}
	r.controllers[c.Name] = c
}

// RegisterController records a controller type; its method parameters are inspected
// when a validator is looked up.
func (r *Registry) RegisterController(name string, v any) {
	r.AddController(&Controller{Name: name, Type: reflect.TypeOf(v)})
}

func (r *Registry) controller(name string) (*Controller, bool) {
	if c, ok := r.controllers[name]; ok {
		return c, true
	}
	base := basename(name)
	for n, c := range r.controllers {
		if basename(n) == base {
			return c, true
		}
	}
	return nil, false
}

var methodAliases = map[string]string{
	"index":  "list",
	"list":   "index",
	"store":  "create",
	"create": "store",
	"edit":   "update",
}

var httpRequestType = reflect.TypeOf(http.Request{})

// ValidatorForMethod finds the validator a controller method takes as a parameter.
// Explicit bindings win over parameter inspection; *http.Request is never a validator.
func (r *Registry) ValidatorForMethod(controller, method string) (*Validator, bool) {
	c, ok := r.controller(controller)
	if !ok || method == "" {
		return nil, false
	}

	tries := []string{method}
	if alias, ok := methodAliases[strings.ToLower(method)]; ok {
		tries = append(tries, alias)
	}

	for _, m := range tries {
		if name, ok := c.binding(m); ok {
			if v, ok := r.validators[name]; ok {
				return v, true
			}
		}
	}

	if c.Type == nil {
		return nil, false
	}
	for _, m := range tries {
		rm, ok := findMethod(c.Type, m)
		if !ok {
			continue
		}
		// index 0 is the receiver
		for i := 1; i < rm.Type.NumIn(); i++ {
			pt := rm.Type.In(i)
			for pt.Kind() == reflect.Pointer {
				pt = pt.Elem()
			}
			if pt == httpRequestType {
				continue
			}
			if v, ok := r.validatorByType(pt); ok {
				return v, true
			}
		}
		return nil, false
	}
	return nil, false
}

func findMethod(t reflect.Type, name string) (reflect.Method, bool) {
	for _, typ := range []reflect.Type{t, reflect.PointerTo(t)} {
		if typ.Kind() == reflect.Pointer && typ.Elem().Kind() == reflect.Pointer {
			continue
		}
		for i := 0; i < typ.NumMethod(); i++ {
			m := typ.Method(i)
			if strings.EqualFold(m.Name, name) {
				return m, true
			}
		}
	}
	return reflect.Method{}, false
}

func basename(name string) string {
	if i := strings.LastIndexAny(name, `.\`); i >= 0 {
		return name[i+1:]
	}
	return name
}

type Controller struct {
	Name     string
	Type     reflect.Type
	Bindings map[string]string
}

func (c *Controller) bind(method, validator string) {
	if c.Bindings == nil {
		c.Bindings = make(map[string]string)
	}
	c.Bindings[strings.ToLower(method)] = validator
}

func (c *Controller) binding(method string) (string, bool) {
	v, ok := c.Bindings[strings.ToLower(method)]
	return v, ok
}

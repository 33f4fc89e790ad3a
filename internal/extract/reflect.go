package extract

import (
	"fmt"
	"reflect"

	"github.com/kolah/routedoc/internal/naming"
	"github.com/kolah/routedoc/internal/registry"
	"github.com/kolah/routedoc/internal/rules"
)

// Declared reads rules without running a constructor: the registry's declared rule map,
// then the rule methods of the type's zero value, then its `validate` struct tags.
type Declared struct{}

func (Declared) Name() string { return "declared" }

func (Declared) Extract(v *registry.Validator, scenario string) (Found, error) {
	if v.Declared != nil {
		return Found{Value: v.Declared}, nil
	}
	if v.Type == nil {
		return Found{}, nil
	}

	if found, ok, err := callRules(reflect.New(v.Type), scenario); ok || err != nil {
		return found, err
	}

	if set := rules.FromStruct(v.Type); set.Len() > 0 {
		return Found{Value: set, Scoped: true}, nil
	}
	return Found{}, nil
}

// Constructed calls the registered constructor with stubbed arguments and reads the rule
// methods of the value it returns.
type Constructed struct{}

func (Constructed) Name() string { return "constructed" }

func (Constructed) Extract(v *registry.Validator, scenario string) (Found, error) {
	if !v.Constructor.IsValid() {
		return Found{}, nil
	}

	ft := v.Constructor.Type()
	n := ft.NumIn()
	if ft.IsVariadic() {
		n--
	}
	args := make([]reflect.Value, n)
	for i := range args {
		args[i] = stub(ft.In(i))
	}

	out := v.Constructor.Call(args)
	if len(out) == 0 {
		return Found{}, nil
	}
	if len(out) > 1 {
		if err, ok := out[len(out)-1].Interface().(error); ok && err != nil {
			return Found{}, fmt.Errorf("constructing %s: %w", v.Name, err)
		}
	}

	inst := out[0]
	if inst.Kind() == reflect.Interface {
		inst = inst.Elem()
	}
	if !inst.IsValid() || (inst.Kind() == reflect.Pointer && inst.IsNil()) {
		return Found{}, fmt.Errorf("constructor for %s returned nil", v.Name)
	}
	if inst.Kind() != reflect.Pointer {
		p := reflect.New(inst.Type())
		p.Elem().Set(inst)
		inst = p
	}

	found, _, err := callRules(inst, scenario)
	return found, err
}

// stub is the argument passed for a constructor parameter: a fresh value behind
// pointers, the zero value otherwise.
func stub(t reflect.Type) reflect.Value {
	if t.Kind() == reflect.Pointer {
		return reflect.New(t.Elem())
	}
	return reflect.Zero(t)
}

// callRules calls, in order, RulesFor(scenario), <Scenario>Rules() and Rules() on rv.
// ok is false when none of them exists.
func callRules(rv reflect.Value, scenario string) (Found, bool, error) {
	if m := rv.MethodByName("RulesFor"); m.IsValid() && takesString(m.Type()) {
		value, err := call(m, reflect.ValueOf(scenario))
		return Found{Value: value, Scoped: true}, true, err
	}
	if scenario != "" {
		if m := rv.MethodByName(naming.Studly(scenario) + "Rules"); m.IsValid() && m.Type().NumIn() == 0 {
			value, err := call(m)
			return Found{Value: value, Scoped: true}, true, err
		}
	}
	if m := rv.MethodByName("Rules"); m.IsValid() && m.Type().NumIn() == 0 {
		value, err := call(m)
		return Found{Value: value}, true, err
	}
	return Found{}, false, nil
}

func takesString(t reflect.Type) bool {
	return t.NumIn() == 1 && t.In(0).Kind() == reflect.String
}

// call invokes a rule method returning a value and optionally an error.
func call(m reflect.Value, args ...reflect.Value) (any, error) {
	out := m.Call(args)
	if len(out) == 0 {
		return nil, nil
	}
	if len(out) > 1 {
		if err, ok := out[len(out)-1].Interface().(error); ok && err != nil {
			return nil, err
		}
	}
	first := out[0]
	if (first.Kind() == reflect.Map || first.Kind() == reflect.Pointer || first.Kind() == reflect.Interface) && first.IsNil() {
		return nil, nil
	}
	return first.Interface(), nil
}

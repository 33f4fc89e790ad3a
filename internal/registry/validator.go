package registry

import (
	"fmt"
	"reflect"
)

// Validator is a request validator type and everything known about where its rules live.
type Validator struct {
	Name string
	// Type is the validator struct type, nil when only declared rules are known.
	Type reflect.Type
	// Declared is a rule map supplied without code: a *jsonx.Object keyed by scenario
	// or by field.
	Declared any
	// Constructor builds the validator; its parameters are stubbed.
	Constructor reflect.Value
	// Source is a Go file declaring the type's Rules method or <Type>Rules variable.
	Source string
	// TypeName names the type inside Source; defaults to the last segment of Name.
	TypeName string
}

// SourceTypeName is the identifier searched for in the source file.
func (v *Validator) SourceTypeName() string {
	if v.TypeName != "" {
		return v.TypeName
	}
	if v.Type != nil && v.Type.Name() != "" {
		return v.Type.Name()
	}
	return basename(v.Name)
}

func (v *Validator) merge(other *Validator) {
	if other.Type != nil {
		v.Type = other.Type
	}
	if other.Declared != nil {
		v.Declared = other.Declared
	}
	if other.Constructor.IsValid() {
		v.Constructor = other.Constructor
	}
	if other.Source != "" {
		v.Source = other.Source
	}
	if other.TypeName != "" {
		v.TypeName = other.TypeName
	}
}

type ValidatorOption func(*Validator) error

// WithConstructor attaches a constructor function returning the validator (and optionally
// an error).
func WithConstructor(fn any) ValidatorOption {
	return func(v *Validator) error {
		rv := reflect.ValueOf(fn)
		if rv.Kind() != reflect.Func {
			return fmt.Errorf("constructor must be a function, got %T", fn)
		}
		if rv.Type().NumOut() == 0 {
			return fmt.Errorf("constructor must return the validator")
		}
		v.Constructor = rv
		if v.Type == nil {
			out := rv.Type().Out(0)
			for out.Kind() == reflect.Pointer {
				out = out.Elem()
			}
			if out.Kind() == reflect.Struct {
				v.Type = out
			}
		}
		return nil
	}
}

// WithSource points at the Go file declaring the validator's rules.
func WithSource(path string) ValidatorOption {
	return func(v *Validator) error {
		v.Source = path
		return nil
	}
}

// WithTypeName overrides the identifier searched for in the source file.
func WithTypeName(name string) ValidatorOption {
	return func(v *Validator) error {
		v.TypeName = name
		return nil
	}
}

// WithDeclaredRules attaches a rule map that is read without running any code.
func WithDeclaredRules(rules any) ValidatorOption {
	return func(v *Validator) error {
		v.Declared = rules
		return nil
	}
}

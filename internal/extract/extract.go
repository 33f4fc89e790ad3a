// Package extract reads the validation rules of a registered validator for one scenario.
// Strategies are tried in order and the first non-empty rule set wins; a strategy that
// fails or panics counts as unavailable.
package extract

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/rs/zerolog"

	"github.com/kolah/routedoc/internal/jsonx"
	"github.com/kolah/routedoc/internal/registry"
	"github.com/kolah/routedoc/internal/rules"
)

// Found is a strategy's raw result: a scenario-keyed map, a flat field map, or rules
// already scoped to the requested scenario.
type Found struct {
	Value  any
	Scoped bool
}

func (f Found) empty() bool {
	return f.Value == nil
}

type Strategy interface {
	Name() string
	Extract(v *registry.Validator, scenario string) (Found, error)
}

// Result carries the extracted rules and where they came from.
type Result struct {
	Rules    *rules.Set
	Strategy string
	// Scenario is the key the rules were read from; empty for flat maps.
	Scenario string
}

func (r Result) Empty() bool {
	return r.Rules == nil || r.Rules.Len() == 0
}

type Extractor struct {
	strategies []Strategy
	log        zerolog.Logger
}

type Option func(*Extractor)

// WithStrategies replaces the default strategy list.
func WithStrategies(s ...Strategy) Option {
	return func(e *Extractor) {
		e.strategies = s
	}
}

func New(log zerolog.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		strategies: []Strategy{Declared{}, Constructed{}, Source{}},
		log:        log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules runs the cascade. A nil validator yields an empty result.
func (e *Extractor) Rules(v *registry.Validator, scenario string) Result {
	if v == nil {
		return Result{Rules: rules.NewSet()}
	}

	for _, s := range e.strategies {
		found, err := run(s, v, scenario)
		if err != nil {
			e.log.Debug().Err(err).Str("validator", v.Name).Str("strategy", s.Name()).Msg("rule strategy unavailable")
			continue
		}
		if found.empty() {
			continue
		}

		var res Result
		if found.Scoped {
			set, _ := rules.FromValue(found.Value)
			res = Result{Rules: set, Scenario: scenario}
		} else {
			res = e.selectScenario(v.Name, found.Value, scenario)
		}
		if res.Empty() {
			continue
		}
		res.Strategy = s.Name()
		e.log.Debug().Str("validator", v.Name).Str("strategy", s.Name()).Str("scenario", res.Scenario).Int("rules", res.Rules.Len()).Msg("rules extracted")
		return res
	}

	e.log.Debug().Str("validator", v.Name).Str("scenario", scenario).Msg("no rules extracted")
	return Result{Rules: rules.NewSet()}
}

func run(s Strategy, v *registry.Validator, scenario string) (found Found, err error) {
	defer func() {
		if r := recover(); r != nil {
			found, err = Found{}, fmt.Errorf("%s strategy panicked: %v", s.Name(), r)
		}
	}()
	return s.Extract(v, scenario)
}

var scenarioAliases = map[string][]string{
	"create":  {"store"},
	"store":   {"create"},
	"update":  {"edit"},
	"edit":    {"update"},
	"list":    {"index"},
	"index":   {"list"},
	"delete":  {"destroy"},
	"destroy": {"delete"},
}

// selectScenario picks the requested scenario from a rule map: the exact key, an alias,
// the only scenario, or the whole map when it is not keyed by scenario.
func (e *Extractor) selectScenario(validator string, raw any, scenario string) Result {
	obj, ok := asObject(raw)
	if !ok || obj.Len() == 0 {
		return Result{Rules: rules.NewSet()}
	}

	if !scenarioKeyed(obj) {
		set, _ := rules.FromValue(obj)
		return Result{Rules: set}
	}

	if v, ok := obj.Get(scenario); ok {
		set, _ := rules.FromValue(v)
		return Result{Rules: set, Scenario: scenario}
	}

	for _, alias := range scenarioAliases[scenario] {
		if v, ok := obj.Get(alias); ok {
			e.log.Debug().Str("validator", validator).Str("requested", scenario).Str("using", alias).Msg("scenario alias")
			set, _ := rules.FromValue(v)
			return Result{Rules: set, Scenario: alias}
		}
	}

	if obj.Len() == 1 {
		only := obj.Keys()[0]
		v, _ := obj.Get(only)
		set, _ := rules.FromValue(v)
		return Result{Rules: set, Scenario: only}
	}

	e.log.Warn().Str("validator", validator).Str("requested", scenario).Strs("available", obj.Keys()).Msg("scenario not found")
	return Result{Rules: rules.NewSet()}
}

// asObject views a string-keyed map as an ordered object; Go maps are read in key order.
func asObject(v any) (*jsonx.Object, bool) {
	if obj, ok := v.(*jsonx.Object); ok {
		return obj, obj != nil
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	obj := jsonx.NewObject()
	for _, k := range keys {
		obj.Set(k.String(), rv.MapIndex(k).Interface())
	}
	return obj, true
}

// scenarioKeyed reports whether every value of the map is itself a map.
func scenarioKeyed(obj *jsonx.Object) bool {
	keyed := true
	obj.Each(func(_ string, v any) bool {
		if _, ok := asObject(v); !ok {
			keyed = false
		}
		return keyed
	})
	return keyed
}

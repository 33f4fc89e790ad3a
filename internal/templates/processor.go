package templates

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kolah/routedoc/internal/jsonx"
)

// ErrMalformedTemplate is returned for templates that are not valid JSON, have unbalanced
// block markers or do not render to valid JSON.
var ErrMalformedTemplate = errors.New("malformed template")

var (
	markerPattern = regexp.MustCompile(`^__(IF|ENDIF|EACH|ENDEACH):(\w+)__$`)
	placeholder   = regexp.MustCompile(`__(?:(VAR|JSON):(\w+)|ITEM)__`)
	wholeValue    = regexp.MustCompile(`^__(?:JSON:(\w+)|ITEM)__$`)
)

// entry is an array element or an object member; blocks are found the same way in both.
type entry struct {
	key   string
	value any
}

// members is a decoded template object. Unlike *jsonx.Object it keeps repeated keys, so
// the same block can be opened more than once in one object.
type members []entry

// Processor renders JSON templates. Placeholders are whole or partial string values:
//
//	"__VAR:name__"      scalar, inline in a string
//	"__JSON:name__"     any value, replacing the whole string
//	"__IF:name__" ... "__ENDIF:name__"        kept when name is truthy
//	"__EACH:name__" ... "__ENDEACH:name__"    repeated per element, "__ITEM__" is the element
//
// Block markers are array elements or object keys. The template is rendered in one walk:
// inserted values are never scanned for placeholders again.
type Processor struct {
	log zerolog.Logger
}

func NewProcessor(log zerolog.Logger) *Processor {
	return &Processor{log: log}
}

// Process renders a template against vars and returns the decoded result.
func (p *Processor) Process(content []byte, vars *jsonx.Object) (any, error) {
	if !jsonx.Valid(content) {
		return nil, fmt.Errorf("%w: template is not valid JSON", ErrMalformedTemplate)
	}
	tree, err := parse(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTemplate, err)
	}

	r := &render{vars: vars}
	out, err := r.value(tree, scope{})
	if err != nil {
		return nil, err
	}

	if len(r.missing) > 0 {
		p.log.Debug().Strs("variables", r.missing).Msg("template variables without a value")
	}

	data, err := jsonx.Marshal(out)
	if err != nil || !jsonx.Valid(data) {
		return nil, fmt.Errorf("%w: rendered template is not valid JSON", ErrMalformedTemplate)
	}
	return out, nil
}

// Render processes a template whose root must be an object.
func (p *Processor) Render(t Template, vars *jsonx.Object) (*jsonx.Object, error) {
	tree, err := p.Process(t.Content, vars)
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", t.Name, err)
	}
	obj, ok := tree.(*jsonx.Object)
	if !ok {
		return nil, fmt.Errorf("rendering %s: %w: root is not an object", t.Name, ErrMalformedTemplate)
	}
	return obj, nil
}

func parse(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := parseValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after template")
	}
	return v, nil
}

func parseValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch tok {
	case json.Delim('{'):
		var obj members
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, errors.New("object key is not a string")
			}
			val, err := parseValue(dec)
			if err != nil {
				return nil, err
			}
			obj = append(obj, entry{key: key, value: val})
		}
		_, err = dec.Token()
		return obj, err
	case json.Delim('['):
		arr := []any{}
		for dec.More() {
			val, err := parseValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		_, err = dec.Token()
		return arr, err
	}
	return tok, nil
}

type render struct {
	vars    *jsonx.Object
	missing []string
}

// scope is the loop element __ITEM__ stands for.
type scope struct {
	item   any
	inLoop bool
}

func (r *render) lookup(name string) (any, bool) {
	if r.vars == nil {
		return nil, false
	}
	return r.vars.Get(name)
}

func marker(s string) (kind, name string, ok bool) {
	m := markerPattern.FindStringSubmatch(s)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func (e entry) marker(object bool) (kind, name string, ok bool) {
	if object {
		return marker(e.key)
	}
	s, isString := e.value.(string)
	if !isString {
		return "", "", false
	}
	return marker(s)
}

func (r *render) value(v any, sc scope) (any, error) {
	switch t := v.(type) {
	case string:
		return r.substitute(t, sc), nil
	case members:
		out, err := r.entries(t, true, sc)
		if err != nil {
			return nil, err
		}
		obj := jsonx.NewObject()
		for _, e := range out {
			obj.Set(e.key, e.value)
		}
		return obj, nil
	case []any:
		in := make([]entry, len(t))
		for i, val := range t {
			in[i] = entry{value: val}
		}
		out, err := r.entries(in, false, sc)
		if err != nil {
			return nil, err
		}
		arr := make([]any, len(out))
		for i, e := range out {
			arr[i] = e.value
		}
		return arr, nil
	}
	return v, nil
}

// entries renders the members of an object or the elements of an array. Array elements
// are markers by value, object members by key.
func (r *render) entries(in []entry, object bool, sc scope) ([]entry, error) {
	out := make([]entry, 0, len(in))
	for i := 0; i < len(in); i++ {
		kind, name, ok := in[i].marker(object)
		if !ok {
			e := in[i]
			if object {
				e.key = r.inline(e.key, sc)
			}
			val, err := r.value(e.value, sc)
			if err != nil {
				return nil, err
			}
			e.value = val
			out = append(out, e)
			continue
		}

		switch kind {
		case "IF":
			end, body, err := block(in, i, "IF", "ENDIF", name, object)
			if err != nil {
				return nil, err
			}
			if value, _ := r.lookup(name); truthy(value) {
				inner, err := r.entries(body, object, sc)
				if err != nil {
					return nil, err
				}
				out = append(out, inner...)
			}
			i = end
		case "EACH":
			end, body, err := block(in, i, "EACH", "ENDEACH", name, object)
			if err != nil {
				return nil, err
			}
			value, _ := r.lookup(name)
			for _, item := range items(value) {
				inner, err := r.entries(body, object, scope{item: item, inLoop: true})
				if err != nil {
					return nil, err
				}
				out = append(out, inner...)
			}
			i = end
		default:
			return nil, fmt.Errorf("%w: %s:%s without %s", ErrMalformedTemplate, kind, name, strings.TrimPrefix(kind, "END"))
		}
	}
	return out, nil
}

// block returns the end index of the block opened at start and its body. In objects the
// members of the opening key's value belong to the body too, so a block can be written as
// {"__IF:x__": {...}, "__ENDIF:x__": null}.
func block(entries []entry, start int, open, close, name string, object bool) (int, []entry, error) {
	depth := 0
	for i := start; i < len(entries); i++ {
		kind, n, ok := entries[i].marker(object)
		if !ok || n != name {
			continue
		}
		switch kind {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				var body []entry
				if m, isObject := entries[start].value.(members); object && isObject {
					body = append(body, m...)
				}
				body = append(body, entries[start+1:i]...)
				return i, body, nil
			}
		}
	}
	return 0, nil, fmt.Errorf("%w: %s:%s without %s", ErrMalformedTemplate, open, name, close)
}

// items returns the elements a loop iterates; anything but an array yields none.
func items(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case nil:
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// substitute replaces a whole-value placeholder with the value itself and anything else
// inline.
func (r *render) substitute(s string, sc scope) any {
	m := wholeValue.FindStringSubmatch(s)
	switch {
	case m == nil:
		return r.inline(s, sc)
	case m[1] == "":
		if !sc.inLoop {
			return s
		}
		return jsonx.Clone(sc.item)
	}
	value, ok := r.lookup(m[1])
	if !ok {
		r.missing = append(r.missing, m[1])
	}
	return jsonx.Clone(value)
}

func (r *render) inline(s string, sc scope) string {
	if !strings.Contains(s, "__") {
		return s
	}
	return placeholder.ReplaceAllStringFunc(s, func(match string) string {
		m := placeholder.FindStringSubmatch(match)
		if m[1] == "" {
			if !sc.inLoop {
				return match
			}
			return scalarText(sc.item)
		}
		value, ok := r.lookup(m[2])
		if !ok {
			r.missing = append(r.missing, m[2])
			return match
		}
		if m[1] == "JSON" {
			return jsonText(value)
		}
		return scalarText(value)
	})
}

// scalarText is the inline form of a value inside a string.
func scalarText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case fmt.Stringer:
		return t.String()
	}
	return jsonText(v)
}

func jsonText(v any) string {
	out, err := jsonx.Marshal(v)
	if err != nil {
		return ""
	}
	return string(out)
}

// truthy follows the usual loose rules: nil, false, zero, "", "0" and empty collections
// are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != "" && t != "0"
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case interface{ Len() int }:
		return t.Len() > 0
	case []any:
		return len(t) > 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

package model

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kolah/routedoc/internal/jsonx"
)

type Operation struct {
	ID          string                `json:"operationId"`
	Summary     string                `json:"summary"`
	Description string                `json:"description"`
	Tags        []string              `json:"tags"`
	Parameters  []Parameter           `json:"parameters"`
	RequestBody *RequestBody          `json:"requestBody,omitempty"`
	Responses   *jsonx.Map[*Response] `json:"responses"`
	Security    []SecurityRequirement `json:"security,omitempty"`

	APIType    string `json:"x-api-type,omitempty"`
	Module     string `json:"x-module"`
	Entity     string `json:"x-entity"`
	ActionType string `json:"x-action-type"`

	// Extensions are further "x-" members, written after the fields above.
	Extensions *jsonx.Object `json:"-"`
}

func (o *Operation) MarshalJSON() ([]byte, error) {
	type plain Operation
	data, err := jsonx.Marshal((*plain)(o))
	if err != nil {
		return nil, err
	}
	if o.Extensions == nil || o.Extensions.Len() == 0 {
		return data, nil
	}
	ext, err := jsonx.Marshal(o.Extensions)
	if err != nil {
		return nil, fmt.Errorf("marshaling extensions: %w", err)
	}
	// {"a":1} + {"x-b":2} -> {"a":1,"x-b":2}
	out := make([]byte, 0, len(data)+len(ext))
	out = append(out, data[:len(data)-1]...)
	out = append(out, ',')
	out = append(out, ext[1:]...)
	return out, nil
}

// HasSecurity reports whether the operation requires the named scheme.
func (o *Operation) HasSecurity(scheme string) bool {
	for _, req := range o.Security {
		if _, ok := req[scheme]; ok {
			return true
		}
	}
	return false
}

// Parameter returns the parameter with the given name.
func (o *Operation) Parameter(name string) (Parameter, bool) {
	for _, p := range o.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// JSONSchema returns the request body schema for application/json, if any.
func (o *Operation) JSONSchema() *Schema {
	if o.RequestBody == nil || o.RequestBody.Content == nil {
		return nil
	}
	mt, ok := o.RequestBody.Content.Get(MediaTypeJSON)
	if !ok {
		return nil
	}
	return mt.Schema
}

type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodPatch   Method = "PATCH"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
)

// HasBody reports whether requests with this method carry a JSON body.
func (m Method) HasBody() bool {
	return slices.Contains([]Method{MethodPost, MethodPut, MethodPatch}, m.Upper())
}

func (m Method) Upper() Method {
	return Method(strings.ToUpper(string(m)))
}

func (m Method) Lower() string {
	return strings.ToLower(string(m))
}

// Documented reports whether the method gets its own operation. HEAD and OPTIONS do not.
func (m Method) Documented() bool {
	u := m.Upper()
	return u != MethodHead && u != MethodOptions
}

type ParameterLocation string

const (
	LocationPath   ParameterLocation = "path"
	LocationQuery  ParameterLocation = "query"
	LocationHeader ParameterLocation = "header"
)

type Parameter struct {
	Name         string            `json:"name"`
	In           ParameterLocation `json:"in"`
	Required     bool              `json:"required"`
	Description  string            `json:"description,omitempty"`
	Schema       *Schema           `json:"schema,omitempty"`
	VariableName string            `json:"x-variable-name,omitempty"`
}

const MediaTypeJSON = "application/json"

type RequestBody struct {
	Description string                 `json:"description,omitempty"`
	Required    bool                   `json:"required"`
	Content     *jsonx.Map[*MediaType] `json:"content"`
}

type MediaType struct {
	Schema  *Schema `json:"schema,omitempty"`
	Example any     `json:"example,omitempty"`
}

// JSONContent builds a content map with a single application/json entry.
func JSONContent(schema *Schema, example any) *jsonx.Map[*MediaType] {
	content := jsonx.NewMap[*MediaType]()
	content.Set(MediaTypeJSON, &MediaType{Schema: schema, Example: example})
	return content
}

type Response struct {
	Description string                 `json:"description"`
	Content     *jsonx.Map[*MediaType] `json:"content,omitempty"`
}

// SecurityRequirement maps a scheme name to its scopes.
type SecurityRequirement map[string][]string

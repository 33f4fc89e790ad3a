// Package convert holds what the collection and workspace converters share: the
// api type → module → entity → request hierarchy, URL segments with their variables,
// blank request payloads, login detection and stable resource ids.
package convert

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"

	"github.com/kolah/routedoc/internal/config"
	"github.com/kolah/routedoc/internal/model"
	"github.com/kolah/routedoc/internal/naming"
)

// DefaultAPIType is used when neither the operation nor the path names an api type.
const DefaultAPIType = "api"

type Request struct {
	Path   string
	Method model.Method
	Op     *model.Operation
}

type Entity struct {
	Name     string
	Requests []Request
}

type Module struct {
	Name     string
	Entities []*Entity
}

type APIGroup struct {
	Key     string
	Type    config.APIType
	Modules []*Module
}

// FolderName is the display name of the api type folder: "Mobile(mobile)".
func (g *APIGroup) FolderName() string {
	base := g.Type.FolderName
	if base == "" {
		base = naming.Ucfirst(g.Key)
	}
	return base + "(" + g.Key + ")"
}

// Group arranges the operations of doc by api type, module and entity, each level in
// order of first appearance.
func Group(doc *model.Document, types map[string]config.APIType) []*APIGroup {
	var groups []*APIGroup
	byKey := make(map[string]*APIGroup)

	doc.Operations(func(path, method string, op *model.Operation) bool {
		key := apiTypeOf(path, op, types)
		g, ok := byKey[key]
		if !ok {
			g = &APIGroup{Key: key, Type: types[key]}
			byKey[key] = g
			groups = append(groups, g)
		}

		module := op.Module
		if module == "" {
			module = "general"
		}
		entity := op.Entity
		if entity == "" {
			entity = "resource"
		}

		m := g.module(module)
		e := m.entity(entity)
		e.Requests = append(e.Requests, Request{Path: path, Method: model.Method(method).Upper(), Op: op})
		return true
	})
	return groups
}

func (g *APIGroup) module(name string) *Module {
	for _, m := range g.Modules {
		if m.Name == name {
			return m
		}
	}
	m := &Module{Name: name}
	g.Modules = append(g.Modules, m)
	return m
}

func (m *Module) entity(name string) *Entity {
	for _, e := range m.Entities {
		if e.Name == name {
			return e
		}
	}
	e := &Entity{Name: name}
	m.Entities = append(m.Entities, e)
	return e
}

func apiTypeOf(path string, op *model.Operation, types map[string]config.APIType) string {
	if op.APIType != "" {
		return op.APIType
	}
	prefix, _, _ := strings.Cut(strings.Trim(path, "/"), "/")
	for _, key := range config.SortedKeys(types) {
		if types[key].Prefix == prefix {
			return key
		}
	}
	return DefaultAPIType
}

// Segment is one path segment. Param is set for placeholders and Variable names the
// environment variable that fills it.
type Segment struct {
	Text        string
	Param       string
	Variable    string
	Description string
}

// Segments splits path into segments, resolving each placeholder's variable from the
// parameter's x-variable-name and falling back to the parameter name.
func Segments(path string, op *model.Operation) []Segment {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	parts := strings.Split(trimmed, "/")
	out := make([]Segment, 0, len(parts))
	for _, part := range parts {
		name, ok := placeholder(part)
		if !ok {
			out = append(out, Segment{Text: part})
			continue
		}
		seg := Segment{Text: part, Param: name, Variable: name, Description: naming.Ucfirst(name)}
		if p, found := op.Parameter(name); found {
			if p.VariableName != "" {
				seg.Variable = p.VariableName
			}
			if p.Description != "" {
				seg.Description = p.Description
			}
		}
		out = append(out, seg)
	}
	return out
}

func placeholder(segment string) (string, bool) {
	start := strings.IndexByte(segment, '{')
	if start < 0 {
		return "", false
	}
	end := strings.IndexByte(segment[start:], '}')
	if end < 0 {
		return "", false
	}
	return strings.TrimSuffix(segment[start+1:start+end], "?"), true
}

// URL joins segments under base, rendering each placeholder with render.
func URL(base string, segments []Segment, render func(Segment) string) string {
	parts := make([]string, len(segments))
	for i, s := range segments {
		if s.Param == "" {
			parts[i] = s.Text
			continue
		}
		parts[i] = render(s)
	}
	return base + "/" + strings.Join(parts, "/")
}

// EmptyBody is the blank payload for a body-carrying request: every property of the
// request schema set to its type's empty value. It is nil when the request has no body.
func EmptyBody(method model.Method, op *model.Operation) (any, bool) {
	if !method.HasBody() {
		return nil, false
	}
	schema := op.JSONSchema()
	if schema == nil {
		return nil, false
	}
	return schema.EmptyExample(), true
}

// IsLogin reports whether a request authenticates a user.
func IsLogin(method model.Method, path string, op *model.Operation) bool {
	if method.Upper() != model.MethodPost {
		return false
	}
	summary := strings.ToLower(op.Summary)
	return strings.Contains(strings.ToLower(path), "login") ||
		strings.Contains(summary, "login") ||
		strings.Contains(summary, "authentication") ||
		(strings.EqualFold(op.Entity, "auth") && strings.Contains(summary, "user"))
}

var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/kolah/routedoc"))

// UUID derives a stable id from the resource path parts.
func UUID(parts ...string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(strings.Join(parts, "\x00")))
}

// ID is a prefixed 32 character hex id: ID("req_", ...) -> "req_3f2a...".
func ID(prefix string, parts ...string) string {
	u := UUID(parts...)
	return prefix + hex.EncodeToString(u[:])
}

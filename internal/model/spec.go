// Package model holds the OpenAPI document produced by the assembler and consumed by the
// format converters. Maps that must keep their order use jsonx.Map.
package model

import (
	"strings"

	"github.com/kolah/routedoc/internal/jsonx"
)

// Version is the OpenAPI version emitted in every document.
const Version = "3.0.3"

type Document struct {
	OpenAPI    string                `json:"openapi"`
	Info       Info                  `json:"info"`
	Servers    []Server              `json:"servers"`
	Paths      *jsonx.Map[*PathItem] `json:"paths"`
	Tags       []Tag                 `json:"tags"`
	Components Components            `json:"components"`
}

// PathItem maps lower-case HTTP methods to operations.
type PathItem = jsonx.Map[*Operation]

func NewDocument(info Info, servers []Server) *Document {
	return &Document{
		OpenAPI: Version,
		Info:    info,
		Servers: servers,
		Paths:   jsonx.NewMap[*PathItem](),
		Tags:    []Tag{},
		Components: Components{
			Schemas:         jsonx.NewMap[*Schema](),
			SecuritySchemes: jsonx.NewMap[*SecurityScheme](),
		},
	}
}

// SchemaByRef returns a component schema by its $ref path (e.g., "#/components/schemas/Error").
// Returns nil if the schema is not found.
func (d *Document) SchemaByRef(ref string) *Schema {
	parts := strings.Split(ref, "/")
	name := parts[len(parts)-1]
	s, _ := d.Components.Schemas.Get(name)
	return s
}

// Operations visits every operation in path order.
func (d *Document) Operations(fn func(path, method string, op *Operation) bool) {
	d.Paths.Each(func(path string, item *PathItem) bool {
		cont := true
		item.Each(func(method string, op *Operation) bool {
			cont = fn(path, method, op)
			return cont
		})
		return cont
	})
}

// Tag returns the tag with the given name.
func (d *Document) Tag(name string) (Tag, bool) {
	for _, t := range d.Tags {
		if t.Name == name {
			return t, true
		}
	}
	return Tag{}, false
}

type Info struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Version     string   `json:"version"`
	Contact     *Contact `json:"contact,omitempty"`
	License     *License `json:"license,omitempty"`
}

type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	URL   string `json:"url,omitempty"`
}

type License struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

type Server struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

type Tag struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	APIType     string `json:"x-api-type,omitempty"`
	DisplayName string `json:"x-display-name,omitempty"`
}

type Components struct {
	Schemas         *jsonx.Map[*Schema]         `json:"schemas,omitempty"`
	SecuritySchemes *jsonx.Map[*SecurityScheme] `json:"securitySchemes,omitempty"`
}

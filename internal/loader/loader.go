// Package loader re-reads a generated document with libopenapi, the way any consumer of
// the document would, and checks its request examples against its own schemas.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pb33f/libopenapi"
	"github.com/pb33f/libopenapi/datamodel"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
)

type Result struct {
	Document libopenapi.Document
	Model    *libopenapi.DocumentModel[v3.Document]
	Version  string
	Warnings []string
	RawData  []byte
}

func LoadFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	return loadWithConfig(data, &datamodel.DocumentConfiguration{
		BasePath: filepath.Dir(absPath),
	})
}

// Load parses a JSON or YAML document held in memory.
func Load(data []byte) (*Result, error) {
	return loadWithConfig(data, nil)
}

func loadWithConfig(data []byte, config *datamodel.DocumentConfiguration) (*Result, error) {
	var doc libopenapi.Document
	var err error

	if config != nil {
		doc, err = libopenapi.NewDocumentWithConfiguration(data, config)
	} else {
		doc, err = libopenapi.NewDocument(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing OpenAPI document: %w", err)
	}

	version := doc.GetVersion()
	if !strings.HasPrefix(version, "3.") {
		return nil, fmt.Errorf("unsupported OpenAPI version: %s (only 3.x supported)", version)
	}

	model, err := doc.BuildV3Model()
	if err != nil {
		return nil, fmt.Errorf("building OpenAPI model: %w", err)
	}

	result := &Result{
		Document: doc,
		Model:    model,
		Version:  version,
		RawData:  data,
	}

	if model.Model.Paths == nil || model.Model.Paths.PathItems == nil || model.Model.Paths.PathItems.Len() == 0 {
		result.Warnings = append(result.Warnings, "document has no paths")
	}

	return result, nil
}

// Stats counts what the document describes.
type Stats struct {
	Paths      int
	Operations int
	Tags       int
	Schemas    int
	// Modules counts operations per x-module.
	Modules map[string]int
}

func (r *Result) Stats() Stats {
	doc := r.Model.Model
	stats := Stats{
		Tags:    len(doc.Tags),
		Modules: make(map[string]int),
	}
	if doc.Components != nil && doc.Components.Schemas != nil {
		stats.Schemas = doc.Components.Schemas.Len()
	}
	if doc.Paths == nil || doc.Paths.PathItems == nil {
		return stats
	}

	for _, item := range doc.Paths.PathItems.FromOldest() {
		stats.Paths++
		for _, op := range operations(item) {
			stats.Operations++
			if op.op.Extensions == nil {
				continue
			}
			if node, ok := op.op.Extensions.Get("x-module"); ok && node != nil {
				stats.Modules[node.Value]++
			}
		}
	}
	return stats
}

type methodOperation struct {
	method string
	op     *v3.Operation
}

func operations(item *v3.PathItem) []methodOperation {
	methods := []methodOperation{
		{"GET", item.Get},
		{"POST", item.Post},
		{"PUT", item.Put},
		{"DELETE", item.Delete},
		{"PATCH", item.Patch},
	}
	out := methods[:0]
	for _, m := range methods {
		if m.op != nil {
			out = append(out, m)
		}
	}
	return out
}

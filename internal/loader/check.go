package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	validator "github.com/pb33f/libopenapi-validator"
	validatorErrors "github.com/pb33f/libopenapi-validator/errors"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
)

// Issue is one validation finding. Method and Path are empty for document-level issues.
type Issue struct {
	Method      string
	Path        string
	OperationID string
	Message     string
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return fmt.Sprintf("%s %s (%s): %s", i.Method, i.Path, i.OperationID, i.Message)
}

func (r *Result) validator() (validator.Validator, error) {
	v, errs := validator.NewValidator(r.Document)
	if len(errs) > 0 {
		return nil, fmt.Errorf("creating validator: %w", errors.Join(errs...))
	}
	return v, nil
}

// Validate checks the document against the OpenAPI schema.
func (r *Result) Validate() ([]Issue, error) {
	v, err := r.validator()
	if err != nil {
		return nil, err
	}
	_, verrs := v.ValidateDocument()
	return issues(verrs, Issue{}), nil
}

// CheckExamples sends the JSON request example of every operation through the validator,
// as the client of the first server would send it.
func (r *Result) CheckExamples() ([]Issue, error) {
	v, err := r.validator()
	if err != nil {
		return nil, err
	}

	doc := r.Model.Model
	if doc.Paths == nil || doc.Paths.PathItems == nil {
		return nil, nil
	}

	base := "http://localhost"
	if len(doc.Servers) > 0 && doc.Servers[0].URL != "" {
		base = strings.TrimRight(doc.Servers[0].URL, "/")
	}
	headers := credentialHeaders(doc)

	var out []Issue
	for path, item := range doc.Paths.PathItems.FromOldest() {
		for _, mo := range operations(item) {
			body, ok, err := requestExample(mo.op)
			at := Issue{Method: mo.method, Path: path, OperationID: mo.op.OperationId}
			if err != nil {
				at.Message = err.Error()
				out = append(out, at)
				continue
			}
			if !ok {
				continue
			}

			req, err := http.NewRequest(mo.method, base+fillPath(path, mo.op.Parameters), bytes.NewReader(body))
			if err != nil {
				at.Message = err.Error()
				out = append(out, at)
				continue
			}
			req.Header.Set("Content-Type", "application/json")
			for name, value := range headers {
				req.Header.Set(name, value)
			}

			if valid, verrs := v.ValidateHttpRequestSync(req); !valid {
				out = append(out, issues(verrs, at)...)
			}
		}
	}
	return out, nil
}

func issues(verrs []*validatorErrors.ValidationError, at Issue) []Issue {
	out := make([]Issue, 0, len(verrs))
	for _, e := range verrs {
		issue := at
		issue.Message = e.Message
		if e.Reason != "" {
			issue.Message += ": " + e.Reason
		}
		out = append(out, issue)
	}
	return out
}

func requestExample(op *v3.Operation) ([]byte, bool, error) {
	if op.RequestBody == nil || op.RequestBody.Content == nil {
		return nil, false, nil
	}
	mt, ok := op.RequestBody.Content.Get("application/json")
	if !ok || mt == nil || mt.Example == nil {
		return nil, false, nil
	}
	var example any
	if err := mt.Example.Decode(&example); err != nil {
		return nil, false, fmt.Errorf("decoding request example: %w", err)
	}
	body, err := json.Marshal(example)
	if err != nil {
		return nil, false, fmt.Errorf("encoding request example: %w", err)
	}
	return body, true, nil
}

// fillPath replaces path placeholders with the parameter's schema example.
func fillPath(path string, params []*v3.Parameter) string {
	for _, p := range params {
		if p == nil || p.In != "path" {
			continue
		}
		value := "1"
		if p.Schema != nil {
			if s := p.Schema.Schema(); s != nil && s.Example != nil && s.Example.Value != "" {
				value = s.Example.Value
			}
		}
		path = strings.ReplaceAll(path, "{"+p.Name+"}", value)
	}
	return path
}

// credentialHeaders satisfies every header-based security scheme of the document.
func credentialHeaders(doc v3.Document) map[string]string {
	headers := make(map[string]string)
	if doc.Components == nil || doc.Components.SecuritySchemes == nil {
		return headers
	}
	for _, scheme := range doc.Components.SecuritySchemes.FromOldest() {
		switch {
		case scheme.Type == "http" && strings.EqualFold(scheme.Scheme, "bearer"):
			headers["Authorization"] = "Bearer example-token"
		case scheme.Type == "apiKey" && scheme.In == "header" && scheme.Name != "":
			headers[scheme.Name] = "example-key"
		}
	}
	return headers
}

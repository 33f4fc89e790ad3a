package routes

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v4"
)

// Manifest is the YAML form of a route table:
//
//	routes:
//	  - uri: api/users/{id}
//	    methods: [GET]
//	    middleware: [auth:sanctum]
//	    name: users.show
//	    action: UserController@show
type Manifest struct {
	Routes []ManifestRoute `yaml:"routes"`
}

type ManifestRoute struct {
	URI        string   `yaml:"uri"`
	Methods    []string `yaml:"methods"`
	Method     string   `yaml:"method"`
	Middleware []string `yaml:"middleware"`
	Name       string   `yaml:"name"`
	Action     string   `yaml:"action"`
	Controller string   `yaml:"controller"`
	Closure    bool     `yaml:"closure"`
}

// LoadManifest reads a route manifest file.
func LoadManifest(path string) ([]Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading route manifest: %w", err)
	}
	return ParseManifest(data)
}

func ParseManifest(data []byte) ([]Route, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing route manifest: %w", err)
	}

	out := make([]Route, 0, len(m.Routes))
	for i, mr := range m.Routes {
		r, err := mr.route()
		if err != nil {
			return nil, fmt.Errorf("route %d: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (mr ManifestRoute) route() (Route, error) {
	if strings.TrimSpace(mr.URI) == "" {
		return Route{}, fmt.Errorf("uri is required")
	}

	methods := mr.Methods
	if mr.Method != "" {
		methods = append(methods, mr.Method)
	}
	if len(methods) == 0 {
		methods = []string{"GET"}
	}
	for i, m := range methods {
		methods[i] = strings.ToUpper(m)
	}

	action := ParseAction(mr.Action)
	if mr.Controller != "" {
		action.Controller = mr.Controller
	}
	if mr.Closure {
		action = Action{Closure: true}
	}

	return Route{
		URI:        Normalize(mr.URI),
		Methods:    methods,
		Middleware: mr.Middleware,
		Action:     action,
		Name:       mr.Name,
	}, nil
}

package config

func defaults() map[string]any {
	return map[string]any{
		"app_name": "routedoc",

		"info.title":         "API Documentation",
		"info.description":   "Complete API documentation for all application modules",
		"info.version":       "1.0.0",
		"info.contact.name":  "API Support Team",
		"info.contact.email": "support@${{projectName}}.com",
		"info.contact.url":   "https://${{projectName}}.com/support",
		"info.license.name":  "MIT",
		"info.license.url":   "https://opensource.org/licenses/MIT",

		"servers": []any{
			map[string]any{"url": "http://127.0.0.1:8000", "description": "Local Development Server"},
			map[string]any{"url": "https://staging.${{projectName}}.com", "description": "Staging Server"},
			map[string]any{"url": "https://api.${{projectName}}.com", "description": "Production Server"},
		},

		"api_types": map[string]any{
			"api": map[string]any{
				"prefix":      "api",
				"title":       "Main API",
				"description": "Primary REST API for web and mobile applications",
			},
			"mobile": map[string]any{
				"prefix":      "mobile",
				"title":       "Mobile API",
				"description": "Optimized API endpoints for mobile applications",
			},
			"admin": map[string]any{
				"prefix":      "admin",
				"title":       "Admin API",
				"description": "Administrative interface endpoints",
			},
		},

		"routes.manifest": "routes.yaml",
		"routes.exclude_patterns": []string{
			"*/telescope/*",
			"*/horizon/*",
			"*/_debugbar/*",
			"*/sanctum/csrf-cookie",
		},
		"routes.exclude_names": []string{"debugbar.*", "telescope.*", "horizon.*"},

		"modules.path":      "Modules",
		"modules.namespace": "Modules",
		"global_namespace":  "App",

		"scenarios.middleware_param": "_scenario",
		"scenarios.uri_patterns": []any{
			map[string]any{"pattern": `/validate$`, "scenario": "create"},
			map[string]any{"pattern": `/bulk-create$`, "scenario": "bulk_create"},
			map[string]any{"pattern": `/bulk-update$`, "scenario": "bulk_update"},
			map[string]any{"pattern": `/bulk-delete$`, "scenario": "bulk_delete"},
			map[string]any{"pattern": `/import$`, "scenario": "import"},
			map[string]any{"pattern": `/export$`, "scenario": "export"},
		},
		"scenarios.defaults": map[string]any{
			"create":  "create",
			"store":   "create",
			"update":  "update",
			"edit":    "update",
			"list":    "list",
			"index":   "list",
			"show":    "show",
			"delete":  "delete",
			"destroy": "delete",
		},

		"security.schemes": map[string]any{
			"BearerAuth": map[string]any{
				"type":          "http",
				"scheme":        "bearer",
				"bearer_format": "JWT",
				"description":   "JWT token authentication",
			},
			"ApiKeyAuth": map[string]any{
				"type":        "apiKey",
				"in":          "header",
				"name":        "X-API-Key",
				"description": "API Key authentication",
			},
		},
		"security.middleware": []any{
			map[string]any{"middleware": "auth:sanctum", "schemes": []string{"BearerAuth"}},
			map[string]any{"middleware": "auth:api", "schemes": []string{"BearerAuth"}},
			map[string]any{"middleware": "api.key", "schemes": []string{"ApiKeyAuth"}},
		},

		"responses": map[string]any{
			"200": "Successful operation",
			"201": "Resource created successfully",
			"204": "Resource deleted successfully",
			"400": "Bad request - Invalid input",
			"401": "Unauthorized - Authentication required",
			"403": "Forbidden - Insufficient permissions",
			"404": "Resource not found",
			"422": "Validation error",
			"500": "Internal server error",
		},

		"environments": map[string]any{
			BaseEnvironment: map[string]any{
				"name": "Base Environment",
				"variables": map[string]any{
					"base_url": "http://127.0.0.1:8000",
					"token":    "",
					"api_key":  "",
				},
				"tracking_variables": map[string]any{},
			},
			"local": map[string]any{
				"name":     "Local",
				"parent":   BaseEnvironment,
				"base_url": "http://127.0.0.1:8000",
				"variables": map[string]any{
					"base_url": "http://127.0.0.1:8000",
				},
			},
			"staging": map[string]any{
				"name":     "Staging",
				"parent":   BaseEnvironment,
				"base_url": "https://staging.${{projectName}}.com",
				"variables": map[string]any{
					"base_url": "https://staging.${{projectName}}.com",
				},
			},
			"production": map[string]any{
				"name":     "Production",
				"parent":   BaseEnvironment,
				"base_url": "https://api.${{projectName}}.com",
				"variables": map[string]any{
					"base_url": "https://api.${{projectName}}.com",
				},
			},
		},

		"collection.description": "API collection generated from the application routes",
		"workspace.description":  "API workspace generated from the application routes",
		"workspace.scope":        "design",

		"cache.enabled":    true,
		"cache.driver":     "memory",
		"cache.ttl":        "1h",
		"cache.key_prefix": "routedoc:",
		"cache.redis.addr": "localhost:6379",

		"output.dir":      "docs",
		"output.encoding": "json",

		"log.level":  "info",
		"log.format": "console",

		"server.addr":   ":8080",
		"server.prefix": "/docs",
	}
}

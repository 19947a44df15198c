// Package openapi builds the OpenAPI document for the admin auth API.
package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"
)

const (
	errorRef    = "#/components/schemas/ErrorResponse"
	identityRef = "#/components/schemas/AdminIdentity"
)

// GenerateAuthSpec returns an OpenAPI 3.1 document describing the login,
// logout, verify and session listing endpoints.
func GenerateAuthSpec(baseURL string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "Text2Trait Admin API",
			Description: "Administrator login and session management for Text2Trait.",
			Version:     "1.0.0",
		},
		Servers: openapi3.Servers{
			{URL: baseURL},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	// Session tokens are opaque, not JWTs.
	doc.Components.SecuritySchemes["sessionToken"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:        "http",
			Scheme:      "bearer",
			Description: "Session token from POST /api/admin/login. May also be sent as session_token in a JSON body.",
		},
	}

	doc.Components.Schemas["ErrorResponse"] = errorResponseSchema()
	doc.Components.Schemas["AdminIdentity"] = objectSchema(map[string]*openapi3.Schema{
		"id":           openapi3.NewStringSchema().WithFormat("uuid"),
		"email":        openapi3.NewStringSchema().WithFormat("email"),
		"display_name": openapi3.NewStringSchema(),
	}, "id", "email", "display_name")

	doc.Paths = openapi3.NewPaths()
	doc.Paths.Set("/api/admin/login", &openapi3.PathItem{Post: loginOperation()})
	doc.Paths.Set("/api/admin/logout", &openapi3.PathItem{Post: logoutOperation()})
	doc.Paths.Set("/api/admin/verify", &openapi3.PathItem{Get: verifyOperation()})
	doc.Paths.Set("/api/admin/sessions", &openapi3.PathItem{Get: sessionsOperation()})

	return doc
}

func loginOperation() *openapi3.Operation {
	req := objectSchema(map[string]*openapi3.Schema{
		"email":    openapi3.NewStringSchema().WithFormat("email"),
		"password": openapi3.NewStringSchema().WithFormat("password"),
	}, "email", "password")

	resp := objectSchema(map[string]*openapi3.Schema{
		"session_token": openapi3.NewStringSchema(),
		"expires_at":    openapi3.NewDateTimeSchema(),
	}, "session_token", "expires_at", "admin")
	resp.Value.Properties["admin"] = openapi3.NewSchemaRef(identityRef, nil)

	responses := newResponses("200", "Session created", resp)
	setErrorResponse(responses, "403", "Account is disabled")

	return &openapi3.Operation{
		Tags:        []string{"auth"},
		Summary:     "Log in",
		Description: "Exchanges an email and password for a session token. Unknown emails and wrong passwords get the same 401.",
		OperationID: "adminLogin",
		Security:    &openapi3.SecurityRequirements{},
		RequestBody: &openapi3.RequestBodyRef{
			Value: &openapi3.RequestBody{
				Required: true,
				Content:  openapi3.NewContentWithJSONSchemaRef(req),
			},
		},
		Responses: responses,
	}
}

func logoutOperation() *openapi3.Operation {
	resp := objectSchema(map[string]*openapi3.Schema{
		"message": openapi3.NewStringSchema(),
	}, "message")

	return &openapi3.Operation{
		Tags:        []string{"auth"},
		Summary:     "Log out",
		Description: "Deletes the presented session if it exists. Always succeeds.",
		OperationID: "adminLogout",
		Security:    &openapi3.SecurityRequirements{},
		Responses:   newResponses("200", "Logged out", resp),
	}
}

func verifyOperation() *openapi3.Operation {
	resp := objectSchema(map[string]*openapi3.Schema{
		"valid": openapi3.NewBoolSchema(),
	}, "valid", "admin")
	resp.Value.Properties["admin"] = openapi3.NewSchemaRef(identityRef, nil)

	return &openapi3.Operation{
		Tags:        []string{"auth"},
		Summary:     "Verify session",
		OperationID: "adminVerify",
		Security:    &openapi3.SecurityRequirements{{"sessionToken": {}}},
		Responses:   newResponses("200", "Session is valid", resp),
	}
}

func sessionsOperation() *openapi3.Operation {
	session := objectSchema(map[string]*openapi3.Schema{
		"id":         openapi3.NewStringSchema().WithFormat("uuid"),
		"created_at": openapi3.NewDateTimeSchema(),
		"expires_at": openapi3.NewDateTimeSchema(),
		"ip_address": openapi3.NewStringSchema(),
		"device":     openapi3.NewStringSchema(),
	}, "id", "created_at", "expires_at")

	resp := &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"resource": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:  &openapi3.Types{"array"},
						Items: session,
					},
				},
				"meta": metaSchema(),
			},
		},
	}

	return &openapi3.Operation{
		Tags:        []string{"auth"},
		Summary:     "List own sessions",
		Description: "Unexpired sessions of the calling admin. Tokens are never returned.",
		OperationID: "adminListSessions",
		Security:    &openapi3.SecurityRequirements{{"sessionToken": {}}},
		Responses:   newResponses("200", "Active sessions", resp),
	}
}

func objectSchema(props map[string]*openapi3.Schema, required ...string) *openapi3.SchemaRef {
	s := &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: openapi3.Schemas{},
		Required:   required,
	}
	for name, p := range props {
		s.Properties[name] = openapi3.NewSchemaRef("", p)
	}
	return openapi3.NewSchemaRef("", s)
}

func errorResponseSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"code":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
							"message": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
							"reason": &openapi3.SchemaRef{Value: &openapi3.Schema{
								Type:        &openapi3.Types{"string"},
								Enum:        []interface{}{"NO_SESSION", "INVALID_SESSION"},
								Description: "Set on 401 responses from protected endpoints.",
							}},
							"context": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
						},
					},
				},
			},
		},
	}
}

func newResponses(statusCode, description string, schema *openapi3.SchemaRef) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &successDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	// Standard error responses
	setErrorResponse(responses, "400", "Bad request")
	setErrorResponse(responses, "401", "Unauthorized")
	setErrorResponse(responses, "500", "Internal server error")

	return responses
}

func setErrorResponse(responses *openapi3.Responses, status, description string) {
	responses.Set(status, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &description,
			Content:     openapi3.NewContentWithJSONSchemaRef(openapi3.NewSchemaRef(errorRef, nil)),
		},
	})
}

// metaSchema returns the schema for the "meta" field in list responses.
func metaSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"count": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"integer"},
						Format:      "int64",
						Description: "Number of returned items.",
					},
				},
			},
		},
	}
}

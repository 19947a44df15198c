package handler

import (
	"net/http"

	"github.com/text2trait/t2t/internal/openapi"
)

// OpenAPIHandler serves the OpenAPI document for the admin API.
type OpenAPIHandler struct {
	baseURL string
}

// NewOpenAPIHandler creates an OpenAPIHandler. An empty baseURL is derived
// from each request.
func NewOpenAPIHandler(baseURL string) *OpenAPIHandler {
	return &OpenAPIHandler{baseURL: baseURL}
}

// ServeSpec writes the document.
// GET /openapi.json
func (h *OpenAPIHandler) ServeSpec(w http.ResponseWriter, r *http.Request) {
	baseURL := h.baseURL
	if baseURL == "" {
		scheme := "http"
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			scheme = "https"
		}
		baseURL = scheme + "://" + r.Host
	}
	writeJSON(w, http.StatusOK, openapi.GenerateAuthSpec(baseURL))
}

package sentryapi

import (
	"fmt"

	"github.com/getsentry/sentry-mcp-sub001/internal/model"
)

// TraceItemAttribute is one custom attribute discovered for a project
// scope. Type is "string" or "number" when the backend reports it.
type TraceItemAttribute struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// SearchRequest mirrors the organization events search call.
type SearchRequest struct {
	Query       string
	Fields      []string
	Sort        string
	Dataset     model.Dataset
	Limit       int
	ProjectID   string
	StatsPeriod string
	Start       string
	End         string
}

// SearchResponse is the raw result envelope of the events search call.
type SearchResponse struct {
	Data []map[string]interface{} `json:"data"`
}

// Project is the subset of the project detail payload the service needs.
type Project struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// APIError is a non-2xx response from the telemetry backend.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("sentry API error (status %d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("sentry API error (status %d)", e.StatusCode)
}

// IsInputError reports whether the failure was caused by the request
// content (4xx) rather than by the backend itself. Input errors are
// eligible for the translation correction loop; system errors are not.
func (e *APIError) IsInputError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

package schema

import (
	"github.com/getsentry/sentry-mcp-sub001/internal/model"
)

// FieldType is the value type of a queryable field.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeNumber FieldType = "number"
)

// FieldDef describes one queryable field.
type FieldDef struct {
	Name        string
	Description string
	Type        FieldType
}

// AggregateDef describes one aggregate function signature available on a
// dataset, e.g. "avg(field)".
type AggregateDef struct {
	Signature   string
	Description string
}

// baseFields are common to all three datasets.
var baseFields = []FieldDef{
	{Name: "project", Description: "Project slug the event belongs to", Type: TypeString},
	{Name: "timestamp", Description: "When the event was recorded", Type: TypeString},
	{Name: "environment", Description: "Deploy environment (production, staging, ...)", Type: TypeString},
	{Name: "release", Description: "Release version the event was reported against", Type: TypeString},
	{Name: "platform", Description: "SDK platform (javascript, python, ...)", Type: TypeString},
	{Name: "user.id", Description: "Application-assigned user identifier", Type: TypeString},
	{Name: "user.email", Description: "User email address", Type: TypeString},
	{Name: "sdk.name", Description: "Name of the SDK that sent the event", Type: TypeString},
	{Name: "sdk.version", Description: "Version of the SDK that sent the event", Type: TypeString},
	{Name: "trace", Description: "Trace identifier linking related events", Type: TypeString},
}

var errorFields = []FieldDef{
	{Name: "issue", Description: "Short issue identifier (e.g. PROJ-123)", Type: TypeString},
	{Name: "title", Description: "Issue title, typically the exception type and value", Type: TypeString},
	{Name: "message", Description: "Log or exception message", Type: TypeString},
	{Name: "level", Description: "Severity level (error, warning, info, fatal)", Type: TypeString},
	{Name: "error.type", Description: "Exception class name", Type: TypeString},
	{Name: "error.value", Description: "Exception value or message", Type: TypeString},
	{Name: "error.handled", Description: "Whether the exception was caught by the application", Type: TypeString},
	{Name: "culprit", Description: "Code location the issue is attributed to", Type: TypeString},
	{Name: "os.name", Description: "Operating system of the client", Type: TypeString},
	{Name: "browser.name", Description: "Browser of the client", Type: TypeString},
}

var logFields = []FieldDef{
	{Name: "message", Description: "Log message body", Type: TypeString},
	{Name: "severity", Description: "Log severity text (trace, debug, info, warn, error, fatal)", Type: TypeString},
	{Name: "severity_number", Description: "Numeric OpenTelemetry severity (1-24)", Type: TypeNumber},
}

var spanFields = []FieldDef{
	{Name: "id", Description: "Span identifier", Type: TypeString},
	{Name: "span.op", Description: "Span operation category (db, http.client, ai.run, ...)", Type: TypeString},
	{Name: "span.description", Description: "Human-readable span description (query text, URL, ...)", Type: TypeString},
	{Name: "span.duration", Description: "Span duration in milliseconds", Type: TypeNumber},
	{Name: "span.self_time", Description: "Exclusive time spent in the span in milliseconds", Type: TypeNumber},
	{Name: "span.status", Description: "Span status (ok, cancelled, internal_error, ...)", Type: TypeString},
	{Name: "transaction", Description: "Transaction (route or task) the span belongs to", Type: TypeString},
	{Name: "is_transaction", Description: "Whether the span is a transaction root", Type: TypeString},
	{Name: "http.status_code", Description: "HTTP response status code", Type: TypeNumber},
}

var errorAggregates = []AggregateDef{
	{Signature: "count()", Description: "Number of matching error events"},
	{Signature: "count_unique(field)", Description: "Number of distinct values of the field"},
	{Signature: "last_seen()", Description: "Most recent occurrence timestamp"},
	{Signature: "eps()", Description: "Events per second"},
	{Signature: "epm()", Description: "Events per minute"},
}

var logAggregates = []AggregateDef{
	{Signature: "count()", Description: "Number of matching log entries"},
	{Signature: "count_unique(field)", Description: "Number of distinct values of the field"},
	{Signature: "avg(field)", Description: "Average of a numeric field"},
	{Signature: "sum(field)", Description: "Sum of a numeric field"},
	{Signature: "min(field)", Description: "Minimum of a numeric field"},
	{Signature: "max(field)", Description: "Maximum of a numeric field"},
	{Signature: "p50(field)", Description: "50th percentile of a numeric field"},
	{Signature: "p75(field)", Description: "75th percentile of a numeric field"},
	{Signature: "p90(field)", Description: "90th percentile of a numeric field"},
	{Signature: "p95(field)", Description: "95th percentile of a numeric field"},
	{Signature: "p99(field)", Description: "99th percentile of a numeric field"},
	{Signature: "epm()", Description: "Log entries per minute"},
}

var spanAggregates = []AggregateDef{
	{Signature: "count()", Description: "Number of matching spans"},
	{Signature: "count_unique(field)", Description: "Number of distinct values of the field"},
	{Signature: "avg(field)", Description: "Average of a numeric field"},
	{Signature: "sum(field)", Description: "Sum of a numeric field"},
	{Signature: "min(field)", Description: "Minimum of a numeric field"},
	{Signature: "max(field)", Description: "Maximum of a numeric field"},
	{Signature: "p50(field)", Description: "50th percentile of a numeric field"},
	{Signature: "p75(field)", Description: "75th percentile of a numeric field"},
	{Signature: "p90(field)", Description: "90th percentile of a numeric field"},
	{Signature: "p95(field)", Description: "95th percentile of a numeric field"},
	{Signature: "p99(field)", Description: "99th percentile of a numeric field"},
	{Signature: "p100(field)", Description: "Maximum (100th percentile) of a numeric field"},
	{Signature: "epm()", Description: "Spans per minute"},
	{Signature: "failure_rate()", Description: "Fraction of spans with a failure status"},
}

// numericOnlyAggregates are the functions that require a numeric argument.
// count and count_unique accept any field; the zero-argument rates take none.
var numericOnlyAggregates = map[string]bool{
	"avg": true, "sum": true, "min": true, "max": true,
	"p50": true, "p75": true, "p90": true, "p95": true, "p99": true, "p100": true,
}

// NumericOnlyAggregate reports whether the named aggregate function
// accepts only numeric fields.
func NumericOnlyAggregate(fn string) bool {
	return numericOnlyAggregates[fn]
}

// recommendedFields are the basic result columns used when a
// non-aggregate translation leaves the field list empty.
var recommendedFields = map[model.Dataset][]string{
	model.DatasetErrors: {"issue", "title", "project", "timestamp", "level", "message", "error.type"},
	model.DatasetLogs:   {"timestamp", "project", "message", "severity", "trace"},
	model.DatasetSpans:  {"id", "span.op", "span.description", "span.duration", "transaction", "timestamp", "project"},
}

// RecommendedFields returns the default basic field set for a dataset.
func RecommendedFields(dataset model.Dataset) []string {
	fields := recommendedFields[dataset]
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}

// DatasetFields returns the static (base + dataset-specific) field
// definitions for a dataset.
func DatasetFields(dataset model.Dataset) []FieldDef {
	var specific []FieldDef
	switch dataset {
	case model.DatasetErrors:
		specific = errorFields
	case model.DatasetLogs:
		specific = logFields
	case model.DatasetSpans:
		specific = spanFields
	}
	out := make([]FieldDef, 0, len(baseFields)+len(specific))
	out = append(out, baseFields...)
	out = append(out, specific...)
	return out
}

// DatasetAggregates returns the aggregate function menu for a dataset.
func DatasetAggregates(dataset model.Dataset) []AggregateDef {
	switch dataset {
	case model.DatasetErrors:
		return errorAggregates
	case model.DatasetLogs:
		return logAggregates
	case model.DatasetSpans:
		return spanAggregates
	}
	return nil
}

package model

import (
	"fmt"
	"regexp"
	"strings"
)

// Dataset identifies which telemetry category a query targets.
type Dataset string

const (
	DatasetErrors Dataset = "errors"
	DatasetLogs   Dataset = "logs"
	DatasetSpans  Dataset = "spans"
)

var allDatasets = []Dataset{DatasetErrors, DatasetLogs, DatasetSpans}

func AllDatasets() []Dataset {
	return allDatasets
}

func ParseDataset(s string) (Dataset, error) {
	switch Dataset(strings.ToLower(strings.TrimSpace(s))) {
	case DatasetErrors:
		return DatasetErrors, nil
	case DatasetLogs:
		return DatasetLogs, nil
	case DatasetSpans:
		return DatasetSpans, nil
	}
	return "", fmt.Errorf("unknown dataset %q (expected one of: errors, logs, spans)", s)
}

// TimeRange is either a relative stats period ("24h", "7d") or an absolute
// start/end pair in ISO 8601. At most one form is set.
type TimeRange struct {
	StatsPeriod string `json:"statsPeriod,omitempty"`
	Start       string `json:"start,omitempty"`
	End         string `json:"end,omitempty"`
}

func (tr TimeRange) IsZero() bool {
	return tr.StatsPeriod == "" && tr.Start == "" && tr.End == ""
}

// QueryTranslation is the structured output of one translation attempt.
// It is built fresh on every model call and consumed once by the
// validator; it is never persisted.
type QueryTranslation struct {
	Dataset   Dataset   `json:"dataset"`
	Query     string    `json:"query"`
	Fields    []string  `json:"fields"`
	Sort      string    `json:"sort"`
	TimeRange TimeRange `json:"timeRange"`
	// Error is set when the model declares the request untranslatable.
	Error string `json:"error,omitempty"`
}

// aggregateRe matches function-call expressions such as count(),
// avg(span.duration) or p95(gen_ai.usage.input_tokens).
var aggregateRe = regexp.MustCompile(`^([a-zA-Z0-9_]+)\(([^)]*)\)$`)

// IsAggregateExpression reports whether a field entry is a function call.
func IsAggregateExpression(field string) bool {
	return aggregateRe.MatchString(strings.TrimSpace(field))
}

// ParseAggregate splits an aggregate expression into function name and
// argument. ok is false for plain fields.
func ParseAggregate(field string) (fn, arg string, ok bool) {
	m := aggregateRe.FindStringSubmatch(strings.TrimSpace(field))
	if m == nil {
		return "", "", false
	}
	return m[1], strings.TrimSpace(m[2]), true
}

// IsAggregate reports whether the translation is an aggregate query:
// true iff any result field is a function-call expression.
func (t *QueryTranslation) IsAggregate() bool {
	for _, f := range t.Fields {
		if IsAggregateExpression(f) {
			return true
		}
	}
	return false
}

// SortField returns the field referenced by the sort key with the leading
// descending marker stripped.
func (t *QueryTranslation) SortField() string {
	return strings.TrimPrefix(strings.TrimSpace(t.Sort), "-")
}

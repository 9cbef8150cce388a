package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/getsentry/sentry-mcp-sub001/internal/model"
)

func TestParseDataset(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    model.Dataset
		expectError bool
	}{
		{name: "Errors", input: "errors", expected: model.DatasetErrors},
		{name: "Spans Upper", input: "SPANS", expected: model.DatasetSpans},
		{name: "Logs Padded", input: " logs ", expected: model.DatasetLogs},
		{name: "Unknown", input: "metrics", expectError: true},
		{name: "Empty", input: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := model.ParseDataset(tt.input)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, ds)
		})
	}
}

func TestIsAggregateExpression(t *testing.T) {
	tests := []struct {
		field    string
		expected bool
	}{
		{"count()", true},
		{"avg(span.duration)", true},
		{"p95(gen_ai.usage.input_tokens)", true},
		{"timestamp", false},
		{"error.type", false},
		{"count(", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.expected, model.IsAggregateExpression(tt.field))
		})
	}
}

func TestParseAggregate(t *testing.T) {
	fn, arg, ok := model.ParseAggregate("avg(span.duration)")
	assert.True(t, ok)
	assert.Equal(t, "avg", fn)
	assert.Equal(t, "span.duration", arg)

	fn, arg, ok = model.ParseAggregate("count()")
	assert.True(t, ok)
	assert.Equal(t, "count", fn)
	assert.Equal(t, "", arg)

	_, _, ok = model.ParseAggregate("timestamp")
	assert.False(t, ok)
}

func TestQueryTranslationIsAggregate(t *testing.T) {
	aggregate := &model.QueryTranslation{Fields: []string{"error.type", "count()"}}
	assert.True(t, aggregate.IsAggregate())

	plain := &model.QueryTranslation{Fields: []string{"title", "timestamp"}}
	assert.False(t, plain.IsAggregate())

	empty := &model.QueryTranslation{}
	assert.False(t, empty.IsAggregate())
}

func TestSortField(t *testing.T) {
	assert.Equal(t, "timestamp", (&model.QueryTranslation{Sort: "-timestamp"}).SortField())
	assert.Equal(t, "count()", (&model.QueryTranslation{Sort: "-count()"}).SortField())
	assert.Equal(t, "span.duration", (&model.QueryTranslation{Sort: "span.duration"}).SortField())
}

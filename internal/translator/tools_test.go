package translator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getsentry/sentry-mcp-sub001/internal/llm"
	"github.com/getsentry/sentry-mcp-sub001/internal/model"
	"github.com/getsentry/sentry-mcp-sub001/internal/schema"
	"github.com/getsentry/sentry-mcp-sub001/internal/sentryapi"
)

type stubAttributeAPI struct {
	attrs []sentryapi.TraceItemAttribute
}

func (s *stubAttributeAPI) ListTraceItemAttributes(ctx context.Context, org string, dataset model.Dataset, projectID, statsPeriod string) ([]sentryapi.TraceItemAttribute, error) {
	return s.attrs, nil
}

func (s *stubAttributeAPI) ListTags(ctx context.Context, org, projectID, statsPeriod string) ([]sentryapi.TraceItemAttribute, error) {
	return nil, nil
}

func testCatalogs(t *testing.T, attrs ...sentryapi.TraceItemAttribute) map[model.Dataset]*schema.Catalog {
	t.Helper()
	builder := schema.NewBuilder(&stubAttributeAPI{attrs: attrs}, "14d")
	catalogs := make(map[model.Dataset]*schema.Catalog)
	for _, ds := range model.AllDatasets() {
		catalog, err := builder.Build(context.Background(), ds, "acme", "")
		require.NoError(t, err)
		catalogs[ds] = catalog
	}
	return catalogs
}

func TestToolboxDefinitions(t *testing.T) {
	toolbox := NewToolbox(testCatalogs(t))
	defs := toolbox.Definitions()
	require.Len(t, defs, 2)

	assert.Equal(t, toolDatasetAttributes, defs[0].Name)
	assert.Equal(t, []string{"dataset"}, defs[0].InputSchema.Required)
	assert.ElementsMatch(t, []string{"errors", "logs", "spans"}, defs[0].InputSchema.Properties["dataset"].Enum)

	assert.Equal(t, toolOtelSemantics, defs[1].Name)
	assert.ElementsMatch(t, []string{"namespace", "dataset"}, defs[1].InputSchema.Required)
}

func TestDispatchDatasetAttributes(t *testing.T) {
	toolbox := NewToolbox(testCatalogs(t))

	result := toolbox.Dispatch(llm.ToolCall{
		Name:  toolDatasetAttributes,
		Input: map[string]interface{}{"dataset": "spans"},
	})

	assert.Contains(t, result, "span.duration")
	assert.Contains(t, result, "(number)")
	assert.Contains(t, result, "p95(field)")
}

func TestDispatchDatasetAttributesBadDataset(t *testing.T) {
	toolbox := NewToolbox(testCatalogs(t))

	result := toolbox.Dispatch(llm.ToolCall{
		Name:  toolDatasetAttributes,
		Input: map[string]interface{}{"dataset": "metrics"},
	})

	// Bad input is answered in text so the model can correct itself.
	assert.Contains(t, result, "unknown dataset")
	assert.Contains(t, result, "errors, logs, spans")
}

func TestDispatchOtelSemanticsCurated(t *testing.T) {
	toolbox := NewToolbox(testCatalogs(t))

	result := toolbox.Dispatch(llm.ToolCall{
		Name: toolOtelSemantics,
		Input: map[string]interface{}{
			"namespace": "ai",
			"dataset":   "spans",
		},
	})

	assert.Contains(t, result, "gen_ai.usage.input_tokens")
	assert.Contains(t, result, "gen_ai.usage.output_tokens")
}

func TestDispatchOtelSemanticsCatalogFallback(t *testing.T) {
	catalogs := testCatalogs(t, sentryapi.TraceItemAttribute{
		Key: "payment.processor", Name: "Payment processor",
	})
	toolbox := NewToolbox(catalogs)

	result := toolbox.Dispatch(llm.ToolCall{
		Name: toolOtelSemantics,
		Input: map[string]interface{}{
			"namespace": "payment",
			"dataset":   "spans",
		},
	})

	assert.Contains(t, result, "payment.processor")
	assert.Contains(t, result, "not a curated namespace")
}

func TestDispatchOtelSemanticsMiss(t *testing.T) {
	toolbox := NewToolbox(testCatalogs(t))

	result := toolbox.Dispatch(llm.ToolCall{
		Name: toolOtelSemantics,
		Input: map[string]interface{}{
			"namespace": "blockchain",
			"dataset":   "spans",
		},
	})

	assert.Contains(t, result, "Did you mean")
	assert.Contains(t, result, "gen_ai")
}

func TestDispatchUnknownTool(t *testing.T) {
	toolbox := NewToolbox(testCatalogs(t))

	result := toolbox.Dispatch(llm.ToolCall{Name: "drop_tables"})
	assert.Contains(t, result, "Unknown tool")
}

func TestDispatchDeterministic(t *testing.T) {
	toolbox := NewToolbox(testCatalogs(t))
	call := llm.ToolCall{
		Name:  toolDatasetAttributes,
		Input: map[string]interface{}{"dataset": "errors"},
	}

	assert.Equal(t, toolbox.Dispatch(call), toolbox.Dispatch(call))
}

package translator

import (
	"fmt"
	"strings"

	"github.com/getsentry/sentry-mcp-sub001/internal/llm"
	"github.com/getsentry/sentry-mcp-sub001/internal/model"
	"github.com/getsentry/sentry-mcp-sub001/internal/schema"
)

const (
	toolDatasetAttributes = "dataset_attributes"
	toolOtelSemantics     = "otel_semantics"
)

// Toolbox exposes the two schema-introspection tools to the model. Both
// are pure reads over the per-request catalogs: safe to call repeatedly,
// and they always answer with deterministically shaped text because the
// consumer is a model, not program code.
type Toolbox struct {
	catalogs map[model.Dataset]*schema.Catalog
}

func NewToolbox(catalogs map[model.Dataset]*schema.Catalog) *Toolbox {
	return &Toolbox{catalogs: catalogs}
}

// Definitions returns the tool declarations supplied on every model call.
func (t *Toolbox) Definitions() []llm.Tool {
	datasetEnum := []string{string(model.DatasetErrors), string(model.DatasetLogs), string(model.DatasetSpans)}
	return []llm.Tool{
		{
			Name: toolDatasetAttributes,
			Description: "List every queryable field of a dataset with its description and value type. " +
				"This is the only way to learn which fields exist; call it before referencing any field.",
			InputSchema: llm.InputSchema{
				Type: "object",
				Properties: map[string]llm.Property{
					"dataset": {Type: "string", Description: "Dataset to inspect", Enum: datasetEnum},
				},
				Required: []string{"dataset"},
			},
		},
		{
			Name: toolOtelSemantics,
			Description: "Look up OpenTelemetry semantic-convention attributes for a domain concept " +
				"(AI usage, database calls, HTTP requests, tool invocations, queues). " +
				"Returns attribute names you can use as fields or filters.",
			InputSchema: llm.InputSchema{
				Type: "object",
				Properties: map[string]llm.Property{
					"namespace":   {Type: "string", Description: "Namespace or concept, e.g. gen_ai, db, http, mcp"},
					"search_term": {Type: "string", Description: "Optional substring to narrow the attribute list"},
					"dataset":     {Type: "string", Description: "Dataset whose live catalog is searched on a miss", Enum: datasetEnum},
				},
				Required: []string{"namespace", "dataset"},
			},
		},
	}
}

// Dispatch runs one tool call and returns its textual result. Bad input
// from the model is answered in text as well, so the conversation stays
// well-formed and the model can correct itself.
func (t *Toolbox) Dispatch(call llm.ToolCall) string {
	switch call.Name {
	case toolDatasetAttributes:
		return t.datasetAttributes(stringArg(call.Input, "dataset"))
	case toolOtelSemantics:
		return t.otelSemantics(
			stringArg(call.Input, "namespace"),
			stringArg(call.Input, "search_term"),
			stringArg(call.Input, "dataset"),
		)
	}
	return fmt.Sprintf("Unknown tool %q. Available tools: %s, %s.", call.Name, toolDatasetAttributes, toolOtelSemantics)
}

func (t *Toolbox) datasetAttributes(dataset string) string {
	ds, err := model.ParseDataset(dataset)
	if err != nil {
		return err.Error()
	}
	catalog, ok := t.catalogs[ds]
	if !ok {
		return fmt.Sprintf("No field catalog is loaded for dataset %q.", dataset)
	}
	return catalog.Describe()
}

func (t *Toolbox) otelSemantics(namespace, searchTerm, dataset string) string {
	if ns, ok := schema.LookupNamespace(namespace); ok {
		return schema.DescribeNamespace(ns, searchTerm)
	}

	// Not a curated namespace: best-effort substring match against the
	// live catalog of the requested dataset.
	if ds, err := model.ParseDataset(dataset); err == nil {
		if catalog, ok := t.catalogs[ds]; ok {
			term := namespace
			if searchTerm != "" {
				term = searchTerm
			}
			if matches := schema.SearchCatalog(catalog, term); len(matches) > 0 {
				var sb strings.Builder
				fmt.Fprintf(&sb, "%q is not a curated namespace, but these %s fields match:\n", namespace, ds)
				for _, name := range matches {
					fmt.Fprintf(&sb, "- %s\n", name)
				}
				return sb.String()
			}
		}
	}

	return schema.MissMessage(namespace)
}

func stringArg(input map[string]interface{}, key string) string {
	if input == nil {
		return ""
	}
	if v, ok := input[key].(string); ok {
		return v
	}
	return ""
}

package translator

import (
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-mcp-sub001/internal/model"
)

// datasetGuidance is the per-dataset selection heuristic shown to the
// model. Wording here is what steers dataset routing; keep it aligned
// with the aggregate menus in the schema package.
var datasetGuidance = map[model.Dataset]string{
	model.DatasetSpans: "Performance data: durations, throughput, database queries, HTTP requests, " +
		"and all AI/LLM usage (tokens, costs, model calls). Any mathematical or aggregation " +
		"wording (sum, average, percentile, \"how many\", \"slowest\") belongs here unless it " +
		"clearly counts crashes or log lines.",
	model.DatasetErrors: "Exceptions and crashes: anything worded around errors, exceptions, " +
		"stack traces, unhandled failures, or issue triage.",
	model.DatasetLogs: "Log entries: anything worded around log lines, log severity " +
		"(warn, info, debug) or log messages.",
}

// grammarRules is the bounded filter grammar the model must produce.
// This is intentionally not a general SQL dialect.
var grammarRules = []string{
	`Filters are space-separated tokens: field:value (exact match), field:>n / field:<n / field:>=n / field:<=n (numeric comparison).`,
	`Quote values containing spaces: message:"connection reset".`,
	`Negate with a leading !: !level:info.`,
	`Wildcards use *: url.path:/api/*.`,
	`Existence checks use has:field and !has:field.`,
	`Combine tokens with AND / OR and parentheses; bare juxtaposition means AND.`,
	`Do NOT invent SQL syntax (SELECT, WHERE, GROUP BY are all invalid).`,
}

var sortAndAggregateRules = []string{
	`"sort" is required and must reference a field or aggregate present in "fields"; prefix with - for descending (e.g. "-timestamp", "-count()").`,
	`A query is an aggregate query when any entry of "fields" is a function call. Aggregate queries must list ONLY aggregate functions and group-by fields; never mix in plain result columns.`,
	`avg/sum/min/max/p50-p100 accept numeric fields only; verify the field type with the dataset_attributes tool first.`,
	`For non-aggregate queries you may leave "fields" empty to get the dataset's default columns.`,
	`"timeRange" is optional: use {"statsPeriod": "24h"} style relative windows or {"start": ..., "end": ...} ISO 8601 pairs. Omit it for the default window.`,
}

var toolUsageRules = []string{
	`Never assume a field exists - not even ones that sound standard. Confirm every field with the dataset_attributes tool before using it.`,
	`Use the otel_semantics tool to map domain concepts (AI usage, database calls, queue work) onto attribute names.`,
	`If the request cannot be answered with these datasets and this grammar, return {"error": "<explanation>"} instead of guessing.`,
}

// outputShape is the JSON object the model must emit as its final answer.
const outputShape = `{
  "dataset": "errors" | "logs" | "spans",
  "query": string,            // filter expression in the grammar above, may be ""
  "fields": [string, ...],    // result columns; aggregate functions imply grouping
  "sort": string,             // required, e.g. "-timestamp" or "-count()"
  "timeRange": {"statsPeriod": string} | {"start": string, "end": string} | omitted,
  "error": string             // only when the request is untranslatable; omit otherwise
}`

// BuildSystemPrompt assembles the translator instruction set. feedback,
// when non-empty, is a prior validation rejection appended verbatim so
// the model can repair its own output. The function is pure so prompt
// content can be unit-tested without a model call.
func BuildSystemPrompt(now time.Time, feedback string) string {
	var sb strings.Builder

	sb.WriteString("You translate natural-language questions about telemetry (errors, logs, performance spans) into a single structured query.\n\n")
	fmt.Fprintf(&sb, "Current UTC date: %s\n\n", now.UTC().Format("2006-01-02"))

	sb.WriteString("Choosing the dataset:\n")
	for _, ds := range model.AllDatasets() {
		fmt.Fprintf(&sb, "- %s: %s\n", ds, datasetGuidance[ds])
	}

	sb.WriteString("\nFilter grammar:\n")
	for _, rule := range grammarRules {
		fmt.Fprintf(&sb, "- %s\n", rule)
	}

	sb.WriteString("\nSort, fields and aggregates:\n")
	for _, rule := range sortAndAggregateRules {
		fmt.Fprintf(&sb, "- %s\n", rule)
	}

	sb.WriteString("\nTools:\n")
	for _, rule := range toolUsageRules {
		fmt.Fprintf(&sb, "- %s\n", rule)
	}

	sb.WriteString("\nRespond with ONLY one JSON object of this shape, no prose and no markdown fences:\n")
	sb.WriteString(outputShape)
	sb.WriteString("\n")

	if feedback != "" {
		sb.WriteString("\nYour previous attempt was rejected. Fix exactly this problem and try once more:\n")
		sb.WriteString(feedback)
		sb.WriteString("\n")
	}

	return sb.String()
}

package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Namespace is a curated group of OpenTelemetry semantic-convention
// attributes representing one domain concept.
type Namespace struct {
	Name        string
	Description string
	Aliases     []string
	Attributes  []FieldDef
}

var namespaces = []Namespace{
	{
		Name:        "gen_ai",
		Description: "Generative AI / LLM usage: model calls, token consumption, agent runs",
		Aliases:     []string{"ai", "llm", "tokens", "agent"},
		Attributes: []FieldDef{
			{Name: "gen_ai.usage.input_tokens", Description: "Prompt tokens consumed by the model call", Type: TypeNumber},
			{Name: "gen_ai.usage.output_tokens", Description: "Completion tokens produced by the model call", Type: TypeNumber},
			{Name: "gen_ai.usage.total_tokens", Description: "Total tokens for the model call", Type: TypeNumber},
			{Name: "gen_ai.usage.total_cost", Description: "Estimated cost of the model call in USD", Type: TypeNumber},
			{Name: "gen_ai.request.model", Description: "Model identifier requested by the caller", Type: TypeString},
			{Name: "gen_ai.response.model", Description: "Model identifier that served the request", Type: TypeString},
			{Name: "gen_ai.system", Description: "Model provider (anthropic, openai, ...)", Type: TypeString},
			{Name: "gen_ai.operation.name", Description: "Operation kind (chat, embeddings, ...)", Type: TypeString},
		},
	},
	{
		Name:        "db",
		Description: "Database client calls: queries, operations, target collections",
		Aliases:     []string{"database", "sql", "query"},
		Attributes: []FieldDef{
			{Name: "db.system", Description: "Database engine (postgresql, mysql, redis, ...)", Type: TypeString},
			{Name: "db.operation.name", Description: "Operation (SELECT, INSERT, GET, ...)", Type: TypeString},
			{Name: "db.collection.name", Description: "Table or collection the operation targets", Type: TypeString},
			{Name: "db.query.text", Description: "Sanitized query text", Type: TypeString},
		},
	},
	{
		Name:        "http",
		Description: "HTTP client and server requests",
		Aliases:     []string{"request", "url"},
		Attributes: []FieldDef{
			{Name: "http.request.method", Description: "HTTP method (GET, POST, ...)", Type: TypeString},
			{Name: "http.response.status_code", Description: "HTTP response status code", Type: TypeNumber},
			{Name: "url.path", Description: "Request URL path", Type: TypeString},
			{Name: "url.full", Description: "Full request URL", Type: TypeString},
			{Name: "server.address", Description: "Host the request was sent to", Type: TypeString},
		},
	},
	{
		Name:        "mcp",
		Description: "Model Context Protocol tool and prompt invocations",
		Aliases:     []string{"tool", "tools", "prompt"},
		Attributes: []FieldDef{
			{Name: "mcp.tool.name", Description: "Name of the invoked tool", Type: TypeString},
			{Name: "mcp.prompt.name", Description: "Name of the invoked prompt", Type: TypeString},
			{Name: "mcp.session.id", Description: "Client session identifier", Type: TypeString},
			{Name: "mcp.transport", Description: "Transport used by the client (stdio, http)", Type: TypeString},
		},
	},
	{
		Name:        "rpc",
		Description: "Remote procedure calls",
		Aliases:     []string{"grpc"},
		Attributes: []FieldDef{
			{Name: "rpc.system", Description: "RPC system (grpc, connect_rpc, ...)", Type: TypeString},
			{Name: "rpc.service", Description: "Full name of the called service", Type: TypeString},
			{Name: "rpc.method", Description: "Name of the called method", Type: TypeString},
		},
	},
	{
		Name:        "messaging",
		Description: "Message queue producers and consumers",
		Aliases:     []string{"queue", "broker"},
		Attributes: []FieldDef{
			{Name: "messaging.system", Description: "Messaging system (kafka, rabbitmq, sqs, ...)", Type: TypeString},
			{Name: "messaging.destination.name", Description: "Topic or queue name", Type: TypeString},
			{Name: "messaging.operation.type", Description: "Operation (publish, receive, process)", Type: TypeString},
		},
	},
}

// NamespaceNames returns the curated namespace names in sorted order.
func NamespaceNames() []string {
	names := make([]string, 0, len(namespaces))
	for _, ns := range namespaces {
		names = append(names, ns.Name)
	}
	sort.Strings(names)
	return names
}

// LookupNamespace resolves a namespace by name or alias.
func LookupNamespace(name string) (*Namespace, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for i := range namespaces {
		if namespaces[i].Name == needle {
			return &namespaces[i], true
		}
		for _, alias := range namespaces[i].Aliases {
			if alias == needle {
				return &namespaces[i], true
			}
		}
	}
	return nil, false
}

// DescribeNamespace renders a namespace (optionally filtered by a search
// term) as deterministic text for model consumption.
func DescribeNamespace(ns *Namespace, searchTerm string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Semantic convention namespace %q: %s\n", ns.Name, ns.Description)

	term := strings.ToLower(strings.TrimSpace(searchTerm))
	matched := 0
	for _, attr := range ns.Attributes {
		if term != "" && !strings.Contains(strings.ToLower(attr.Name), term) &&
			!strings.Contains(strings.ToLower(attr.Description), term) {
			continue
		}
		fmt.Fprintf(&sb, "- %s (%s): %s\n", attr.Name, attr.Type, attr.Description)
		matched++
	}
	if matched == 0 {
		fmt.Fprintf(&sb, "No attributes in %q match %q. Available attributes:\n", ns.Name, searchTerm)
		for _, attr := range ns.Attributes {
			fmt.Fprintf(&sb, "- %s (%s): %s\n", attr.Name, attr.Type, attr.Description)
		}
	}
	return sb.String()
}

// SearchCatalog is the substring fallback used when the requested
// namespace is not curated: it scans the live catalog for field names
// containing the term.
func SearchCatalog(catalog *Catalog, term string) []string {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return nil
	}
	var matches []string
	for _, name := range catalog.FieldNames() {
		if strings.Contains(strings.ToLower(name), needle) {
			matches = append(matches, name)
		}
	}
	return matches
}

// MissMessage is returned when neither the curated namespaces nor the
// live catalog produced a match. It always names the available
// namespaces so the model's next action stays well-formed.
func MissMessage(namespace string) string {
	return fmt.Sprintf(
		"No semantic convention namespace or catalog field matched %q. Did you mean one of the curated namespaces: %s? You can also call the dataset attributes tool to list every queryable field.",
		namespace, strings.Join(NamespaceNames(), ", "))
}

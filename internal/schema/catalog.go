package schema

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/getsentry/sentry-mcp-sub001/internal/model"
	"github.com/getsentry/sentry-mcp-sub001/internal/sentryapi"
)

// reservedPrefixes are backend-internal attribute namespaces that must
// never surface as queryable field names.
var reservedPrefixes = []string{"sentry.", "tags["}

// Catalog is the authoritative set of queryable fields for one dataset
// and request scope. It is built once per request and treated as
// read-only afterwards; the validator and the correction retry share the
// same instance.
type Catalog struct {
	dataset    model.Dataset
	fields     map[string]FieldDef
	aggregates []AggregateDef
}

// Dataset returns the dataset the catalog was built for.
func (c *Catalog) Dataset() model.Dataset {
	return c.dataset
}

// Has reports whether the field name is queryable in this catalog.
func (c *Catalog) Has(name string) bool {
	_, ok := c.fields[name]
	return ok
}

// FieldType returns the value type of a field, when known.
func (c *Catalog) FieldType(name string) (FieldType, bool) {
	def, ok := c.fields[name]
	if !ok || def.Type == "" {
		return "", false
	}
	return def.Type, true
}

// Aggregates returns the aggregate function menu for the dataset.
func (c *Catalog) Aggregates() []AggregateDef {
	return c.aggregates
}

// FieldNames returns all queryable field names in sorted order.
func (c *Catalog) FieldNames() []string {
	names := make([]string, 0, len(c.fields))
	for name := range c.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe renders the catalog as deterministic text for model
// consumption: one line per field with description and value type,
// followed by the aggregate menu.
func (c *Catalog) Describe() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Queryable fields for the %s dataset:\n", c.dataset)
	for _, name := range c.FieldNames() {
		def := c.fields[name]
		typ := def.Type
		if typ == "" {
			typ = TypeString
		}
		desc := def.Description
		if desc == "" {
			desc = "Custom attribute"
		}
		fmt.Fprintf(&sb, "- %s (%s): %s\n", name, typ, desc)
	}
	sb.WriteString("\nAggregate functions:\n")
	for _, agg := range c.aggregates {
		fmt.Fprintf(&sb, "- %s: %s\n", agg.Signature, agg.Description)
	}
	return sb.String()
}

// AttributeAPI is the slice of the backend client the builder needs.
type AttributeAPI interface {
	ListTraceItemAttributes(ctx context.Context, org string, dataset model.Dataset, projectID, statsPeriod string) ([]sentryapi.TraceItemAttribute, error)
	ListTags(ctx context.Context, org, projectID, statsPeriod string) ([]sentryapi.TraceItemAttribute, error)
}

// Builder merges the static per-dataset field tables with custom
// attributes discovered from the backend.
type Builder struct {
	api         AttributeAPI
	statsPeriod string
}

func NewBuilder(api AttributeAPI, statsPeriod string) *Builder {
	if statsPeriod == "" {
		statsPeriod = "14d"
	}
	return &Builder{api: api, statsPeriod: statsPeriod}
}

// Build constructs the catalog for one dataset and scope. A failing
// discovery call propagates: returning a silently empty catalog would
// let the model hallucinate field names undetected.
func (b *Builder) Build(ctx context.Context, dataset model.Dataset, org, projectID string) (*Catalog, error) {
	fields := make(map[string]FieldDef)
	for _, def := range DatasetFields(dataset) {
		fields[def.Name] = def
	}

	var custom []sentryapi.TraceItemAttribute
	var err error
	if dataset == model.DatasetErrors {
		custom, err = b.api.ListTags(ctx, org, projectID, b.statsPeriod)
	} else {
		custom, err = b.api.ListTraceItemAttributes(ctx, org, dataset, projectID, b.statsPeriod)
	}
	if err != nil {
		return nil, fmt.Errorf("attribute discovery failed for dataset %s: %w", dataset, err)
	}

	added := 0
	for _, attr := range custom {
		if attr.Key == "" || isReserved(attr.Key) {
			continue
		}
		if _, exists := fields[attr.Key]; exists {
			continue
		}
		typ := TypeString
		if attr.Type == string(TypeNumber) {
			typ = TypeNumber
		}
		desc := attr.Name
		if desc == "" || desc == attr.Key {
			desc = "Custom attribute"
		}
		fields[attr.Key] = FieldDef{Name: attr.Key, Description: desc, Type: typ}
		added++
	}

	log.Debug().
		Str("dataset", string(dataset)).
		Str("organization", org).
		Int("custom_attributes", added).
		Int("total_fields", len(fields)).
		Msg("Field catalog built")

	return &Catalog{
		dataset:    dataset,
		fields:     fields,
		aggregates: DatasetAggregates(dataset),
	}, nil
}

func isReserved(key string) bool {
	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

package validator

import (
	"fmt"
	"strings"

	"github.com/getsentry/sentry-mcp-sub001/internal/model"
	"github.com/getsentry/sentry-mcp-sub001/internal/schema"
)

// ValidationError is a deterministic invariant violation in a
// translation candidate. Message always names the literal rejected
// value so both humans and the model can self-correct.
type ValidationError struct {
	Field   string
	Message string
	Hint    string
}

func (e *ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate applies the invariants the model is prone to violate, in
// order, and returns the first violation. It is pure: the same
// candidate and catalog always produce the same result.
func Validate(candidate *model.QueryTranslation, catalog *schema.Catalog) *ValidationError {
	if err := validateSortPresent(candidate); err != nil {
		return err
	}
	if candidate.IsAggregate() {
		if err := validateAggregateFields(candidate, catalog); err != nil {
			return err
		}
	} else {
		if err := validatePlainFields(candidate, catalog); err != nil {
			return err
		}
	}
	return validateSortProjected(candidate)
}

func validateSortPresent(candidate *model.QueryTranslation) *ValidationError {
	if strings.TrimSpace(candidate.Sort) == "" {
		return &ValidationError{
			Field:   "sort",
			Message: "sort is required and must reference one of the result fields",
			Hint:    `use "-timestamp" for newest-first, or "-count()" for aggregate queries`,
		}
	}
	return nil
}

// validateAggregateFields enforces aggregate-mode rules: a non-empty
// field list containing only aggregate expressions and catalog-known
// group-by fields, with numeric-only functions applied to numeric fields.
func validateAggregateFields(candidate *model.QueryTranslation, catalog *schema.Catalog) *ValidationError {
	knownAggregates := aggregateNames(catalog)

	for _, field := range candidate.Fields {
		fn, arg, ok := model.ParseAggregate(field)
		if !ok {
			// Plain entry in an aggregate query: it is a group-by field
			// and must exist in the catalog.
			if !catalog.Has(field) {
				return &ValidationError{
					Field:   "fields",
					Message: fmt.Sprintf("%q is not a queryable field of the %s dataset", field, catalog.Dataset()),
					Hint:    "group-by fields must come from the dataset attributes tool output",
				}
			}
			continue
		}

		if !knownAggregates[fn] {
			return &ValidationError{
				Field:   "fields",
				Message: fmt.Sprintf("%q is not an aggregate function of the %s dataset", fn+"()", catalog.Dataset()),
			}
		}

		if schema.NumericOnlyAggregate(fn) {
			if arg == "" {
				return &ValidationError{
					Field:   "fields",
					Message: fmt.Sprintf("%s() requires a numeric field argument", fn),
				}
			}
			typ, known := catalog.FieldType(arg)
			if !known || typ != schema.TypeNumber {
				return &ValidationError{
					Field:   "fields",
					Message: fmt.Sprintf("%s(%s) is invalid: %q is not a numeric field", fn, arg, arg),
					Hint:    "check field value types with the dataset attributes tool",
				}
			}
		} else if arg != "" && fn == "count_unique" && !catalog.Has(arg) {
			return &ValidationError{
				Field:   "fields",
				Message: fmt.Sprintf("count_unique(%s) is invalid: %q is not a queryable field", arg, arg),
			}
		}
	}
	return nil
}

// validatePlainFields checks every explicitly listed field in a
// non-aggregate query against the catalog. An empty list is fine: the
// executor substitutes the dataset's recommended fields.
func validatePlainFields(candidate *model.QueryTranslation, catalog *schema.Catalog) *ValidationError {
	for _, field := range candidate.Fields {
		if !catalog.Has(field) {
			return &ValidationError{
				Field:   "fields",
				Message: fmt.Sprintf("%q is not a queryable field of the %s dataset", field, catalog.Dataset()),
				Hint:    "only fields returned by the dataset attributes tool may be used",
			}
		}
	}
	return nil
}

// validateSortProjected requires the sort key (descending marker
// stripped) to appear in the projected fields. When a non-aggregate
// query left the field list empty, the dataset's recommended columns
// are the projection.
func validateSortProjected(candidate *model.QueryTranslation) *ValidationError {
	sortField := candidate.SortField()

	projected := candidate.Fields
	if len(projected) == 0 && !candidate.IsAggregate() {
		projected = schema.RecommendedFields(candidate.Dataset)
	}

	for _, field := range projected {
		if strings.TrimSpace(field) == sortField {
			return nil
		}
	}
	return &ValidationError{
		Field:   "sort",
		Message: fmt.Sprintf("sort references %q which is not in the result fields %v", sortField, candidate.Fields),
		Hint:    fmt.Sprintf("add %q to fields or sort by a projected field", sortField),
	}
}

func aggregateNames(catalog *schema.Catalog) map[string]bool {
	names := make(map[string]bool)
	for _, agg := range catalog.Aggregates() {
		if idx := strings.Index(agg.Signature, "("); idx > 0 {
			names[agg.Signature[:idx]] = true
		}
	}
	return names
}

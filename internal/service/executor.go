package service

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/getsentry/sentry-mcp-sub001/internal/model"
	"github.com/getsentry/sentry-mcp-sub001/internal/schema"
	"github.com/getsentry/sentry-mcp-sub001/internal/sentryapi"
	"github.com/getsentry/sentry-mcp-sub001/internal/util"
)

// defaultStatsPeriod is the lookback window applied when a translation
// carries no time range.
const defaultStatsPeriod = "14d"

// resolveFields returns the final projection for an accepted candidate.
// Aggregate queries are taken verbatim; non-aggregate queries with an
// empty field list fall back to the dataset's recommended columns.
func resolveFields(candidate *model.QueryTranslation) []string {
	if len(candidate.Fields) > 0 {
		return candidate.Fields
	}
	if candidate.IsAggregate() {
		return candidate.Fields
	}
	return schema.RecommendedFields(candidate.Dataset)
}

// splitAggregates partitions the final projection into aggregate
// expressions and plain group-by fields. The split feeds the
// results-explorer link, not backend filtering.
func splitAggregates(fields []string) (aggregates, groupBys []string) {
	for _, field := range fields {
		if model.IsAggregateExpression(field) {
			aggregates = append(aggregates, field)
		} else {
			groupBys = append(groupBys, field)
		}
	}
	return aggregates, groupBys
}

// buildSearchRequest maps an accepted candidate onto the backend search
// call. Time ranges map to either a relative stats period or an
// absolute start/end pair, defaulting to the 14-day lookback.
func buildSearchRequest(candidate *model.QueryTranslation, projectID string, limit int) sentryapi.SearchRequest {
	req := sentryapi.SearchRequest{
		Query:     candidate.Query,
		Fields:    resolveFields(candidate),
		Sort:      candidate.Sort,
		Dataset:   candidate.Dataset,
		Limit:     limit,
		ProjectID: projectID,
	}

	switch {
	case candidate.TimeRange.Start != "" && candidate.TimeRange.End != "":
		start, errStart := util.ParseTimeFlexible(candidate.TimeRange.Start)
		end, errEnd := util.ParseTimeFlexible(candidate.TimeRange.End)
		if errStart != nil || errEnd != nil || end.Before(start) {
			req.StatsPeriod = defaultStatsPeriod
			break
		}
		req.Start = start.Format(time.RFC3339)
		req.End = end.Format(time.RFC3339)
	case util.ValidStatsPeriod(candidate.TimeRange.StatsPeriod):
		req.StatsPeriod = candidate.TimeRange.StatsPeriod
	default:
		req.StatsPeriod = defaultStatsPeriod
	}
	return req
}

// explorerURL builds the backend UI link for an executed query so the
// caller can open the same result set interactively.
func explorerURL(baseURL, org string, candidate *model.QueryTranslation, req sentryapi.SearchRequest) string {
	base := strings.TrimSuffix(baseURL, "/")

	var path string
	switch candidate.Dataset {
	case model.DatasetLogs:
		path = fmt.Sprintf("/organizations/%s/explore/logs/", url.PathEscape(org))
	case model.DatasetSpans:
		path = fmt.Sprintf("/organizations/%s/explore/traces/", url.PathEscape(org))
	default:
		path = fmt.Sprintf("/organizations/%s/issues/", url.PathEscape(org))
	}

	params := url.Values{}
	if req.Query != "" {
		params.Set("query", req.Query)
	}
	if req.StatsPeriod != "" {
		params.Set("statsPeriod", req.StatsPeriod)
	} else if req.Start != "" && req.End != "" {
		params.Set("start", req.Start)
		params.Set("end", req.End)
	}
	if req.ProjectID != "" {
		params.Set("project", req.ProjectID)
	}

	aggregates, groupBys := splitAggregates(req.Fields)
	if len(aggregates) > 0 {
		params.Set("mode", "aggregate")
		for _, agg := range aggregates {
			params.Add("aggregateField", agg)
		}
		for _, gb := range groupBys {
			params.Add("groupBy", gb)
		}
	} else {
		for _, f := range req.Fields {
			params.Add("field", f)
		}
	}
	params.Set("sort", req.Sort)

	return base + path + "?" + params.Encode()
}

package sentryapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/getsentry/sentry-mcp-sub001/config"
	"github.com/getsentry/sentry-mcp-sub001/internal/model"
)

// Client wraps the telemetry backend's REST API. All methods are
// read-only and honor the caller's context deadline.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:   strings.TrimSuffix(cfg.Sentry.BaseURL, "/"),
		authToken: cfg.Sentry.AuthToken,
		httpClient: &http.Client{
			Timeout: cfg.Sentry.Timeout,
		},
	}
}

// WithRegion returns a client pointed at a region-specific base URL,
// sharing the auth token and transport. An empty regionURL returns the
// receiver unchanged.
func (c *Client) WithRegion(regionURL string) *Client {
	if regionURL == "" {
		return c
	}
	return &Client{
		baseURL:    strings.TrimSuffix(regionURL, "/"),
		authToken:  c.authToken,
		httpClient: c.httpClient,
	}
}

// datasetItemType maps a dataset onto the backend's trace item type
// used by the attribute discovery endpoint.
func datasetItemType(dataset model.Dataset) string {
	if dataset == model.DatasetLogs {
		return "logs"
	}
	return "spans"
}

// ListTraceItemAttributes fetches the custom attributes (and their value
// types) visible for the organization/project scope. statsPeriod bounds
// discovery only, it does not filter search results.
func (c *Client) ListTraceItemAttributes(ctx context.Context, org string, dataset model.Dataset, projectID, statsPeriod string) ([]TraceItemAttribute, error) {
	endpoint := fmt.Sprintf("%s/api/0/organizations/%s/trace-items/attributes/", c.baseURL, url.PathEscape(org))

	params := url.Values{}
	params.Set("itemType", datasetItemType(dataset))
	if projectID != "" {
		params.Set("project", projectID)
	}
	if statsPeriod != "" {
		params.Set("statsPeriod", statsPeriod)
	}

	var attrs []TraceItemAttribute
	if err := c.getJSON(ctx, endpoint+"?"+params.Encode(), &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

// ListTags fetches the tag keys recorded for error events in the
// organization scope. Tags are always string-valued.
func (c *Client) ListTags(ctx context.Context, org, projectID, statsPeriod string) ([]TraceItemAttribute, error) {
	endpoint := fmt.Sprintf("%s/api/0/organizations/%s/tags/", c.baseURL, url.PathEscape(org))

	params := url.Values{}
	if projectID != "" {
		params.Set("project", projectID)
	}
	if statsPeriod != "" {
		params.Set("statsPeriod", statsPeriod)
	}

	var tags []struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	}
	if err := c.getJSON(ctx, endpoint+"?"+params.Encode(), &tags); err != nil {
		return nil, err
	}

	attrs := make([]TraceItemAttribute, 0, len(tags))
	for _, t := range tags {
		attrs = append(attrs, TraceItemAttribute{Key: t.Key, Name: t.Name, Type: "string"})
	}
	return attrs, nil
}

// SearchEvents executes an accepted translation against the organization
// events endpoint.
func (c *Client) SearchEvents(ctx context.Context, org string, req SearchRequest) (*SearchResponse, error) {
	endpoint := fmt.Sprintf("%s/api/0/organizations/%s/events/", c.baseURL, url.PathEscape(org))

	params := url.Values{}
	params.Set("query", req.Query)
	for _, f := range req.Fields {
		params.Add("field", f)
	}
	params.Set("sort", req.Sort)
	params.Set("dataset", backendDataset(req.Dataset))
	params.Set("per_page", strconv.Itoa(req.Limit))
	if req.ProjectID != "" {
		params.Set("project", req.ProjectID)
	}
	if req.Start != "" && req.End != "" {
		params.Set("start", req.Start)
		params.Set("end", req.End)
	} else if req.StatsPeriod != "" {
		params.Set("statsPeriod", req.StatsPeriod)
	}

	var resp SearchResponse
	if err := c.getJSON(ctx, endpoint+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// backendDataset converts the public dataset name to the value the
// events endpoint expects. Logs are routed to the "ourlogs" dataset.
func backendDataset(dataset model.Dataset) string {
	if dataset == model.DatasetLogs {
		return "ourlogs"
	}
	return string(dataset)
}

// GetProject resolves a project slug to the project detail payload,
// including the numeric identifier the search endpoint requires.
func (c *Client) GetProject(ctx context.Context, org, slug string) (*Project, error) {
	endpoint := fmt.Sprintf("%s/api/0/projects/%s/%s/", c.baseURL, url.PathEscape(org), url.PathEscape(slug))

	var project Project
	if err := c.getJSON(ctx, endpoint, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sentry request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	log.Debug().
		Str("url", rawURL).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Sentry API call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Detail:     extractDetail(body),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse sentry response: %w", err)
	}
	return nil
}

// extractDetail pulls the human-readable message out of the backend's
// {"detail": "..."} error envelope, falling back to the raw body.
func extractDetail(body []byte) string {
	var envelope struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Detail != "" {
		return envelope.Detail
	}
	trimmed := strings.TrimSpace(string(body))
	if len(trimmed) > 500 {
		trimmed = trimmed[:500]
	}
	return trimmed
}

package dto

import "github.com/getsentry/sentry-mcp-sub001/internal/model"

type SearchResponse struct {
	OriginalQuery string                   `json:"originalQuery"`
	Dataset       string                   `json:"dataset,omitempty"`
	Query         string                   `json:"query,omitempty"`
	Fields        []string                 `json:"fields,omitempty"`
	Sort          string                   `json:"sort,omitempty"`
	TimeRange     *model.TimeRange         `json:"timeRange,omitempty"`
	ExplorerURL   string                   `json:"explorerUrl,omitempty"`
	Data          []map[string]interface{} `json:"data,omitempty"`
	ErrorMessage  *string                  `json:"errorMessage,omitempty"`
}

type HistoryEntry struct {
	ID           string `json:"id"`
	Organization string `json:"organization"`
	Query        string `json:"query"`
	Dataset      string `json:"dataset,omitempty"`
	Status       string `json:"status"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	DurationMS   int64  `json:"durationMs"`
	CreatedAt    string `json:"createdAt"`
}

type HistoryResponse struct {
	Organization string         `json:"organization"`
	Entries      []HistoryEntry `json:"entries"`
}

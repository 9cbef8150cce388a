package repository

import (
	"context"
	"time"
)

// QueryHistoryRecord is one audit row for a processed search request.
type QueryHistoryRecord struct {
	ID           string
	Organization string
	Query        string
	Dataset      string
	Status       string // "ok", "translation_failed", "validation_failed", "backend_error"
	ErrorMessage string
	Duration     time.Duration
	CreatedAt    time.Time
}

type QueryHistoryRepository interface {
	Record(ctx context.Context, rec QueryHistoryRecord) error
	ListRecent(ctx context.Context, organization string, limit int) ([]QueryHistoryRecord, error)
}

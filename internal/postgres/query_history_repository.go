package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"github.com/getsentry/sentry-mcp-sub001/config"
	"github.com/getsentry/sentry-mcp-sub001/internal/repository"
)

const queryHistoryTable = "query_history"

const createTableDDL = `
CREATE TABLE IF NOT EXISTS ` + queryHistoryTable + ` (
	id            TEXT PRIMARY KEY,
	organization  TEXT NOT NULL,
	query         TEXT NOT NULL,
	dataset       TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	duration_ms   BIGINT NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_query_history_org_created
	ON ` + queryHistoryTable + ` (organization, created_at DESC);
`

type queryHistoryRepository struct {
	pool *pgxpool.Pool
}

// ProvidePostgresPool creates the connection pool, verifies it, applies
// the schema, and ties pool shutdown to the fx lifecycle.
func ProvidePostgresPool(lc fx.Lifecycle, cfg *config.Config) (repository.QueryHistoryRepository, *pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Postgres.DSN)
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse Postgres DSN")
		return nil, nil, fmt.Errorf("invalid Postgres DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Error().Err(err).Msg("Unable to create Postgres connection pool")
		return nil, nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		log.Error().Err(err).Msg("Failed to ping Postgres")
		return nil, nil, fmt.Errorf("failed to ping Postgres: %w", err)
	}

	if _, err := pool.Exec(pingCtx, createTableDDL); err != nil {
		pool.Close()
		log.Error().Err(err).Msg("Failed to ensure query_history schema")
		return nil, nil, fmt.Errorf("failed to ensure query_history schema: %w", err)
	}
	log.Info().Msg("Postgres connection pool created and verified.")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Closing Postgres connection pool...")
			pool.Close()
			return nil
		},
	})

	return &queryHistoryRepository{pool: pool}, pool, nil
}

func (r *queryHistoryRepository) Record(ctx context.Context, rec repository.QueryHistoryRecord) error {
	sql := fmt.Sprintf(`INSERT INTO %s
		(id, organization, query, dataset, status, error_message, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, queryHistoryTable)

	_, err := r.pool.Exec(ctx, sql,
		rec.ID,
		rec.Organization,
		rec.Query,
		rec.Dataset,
		rec.Status,
		rec.ErrorMessage,
		rec.Duration.Milliseconds(),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert query history row: %w", err)
	}
	return nil
}

func (r *queryHistoryRepository) ListRecent(ctx context.Context, organization string, limit int) ([]repository.QueryHistoryRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	sql := fmt.Sprintf(`SELECT id, organization, query, dataset, status, error_message, duration_ms, created_at
		FROM %s WHERE organization = $1 ORDER BY created_at DESC LIMIT $2`, queryHistoryTable)

	rows, err := r.pool.Query(ctx, sql, organization, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history rows: %w", err)
	}
	defer rows.Close()

	var records []repository.QueryHistoryRecord
	for rows.Next() {
		var rec repository.QueryHistoryRecord
		var durationMS int64
		if err := rows.Scan(&rec.ID, &rec.Organization, &rec.Query, &rec.Dataset, &rec.Status, &rec.ErrorMessage, &durationMS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}
	return records, nil
}

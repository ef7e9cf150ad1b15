package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/user/catalog-scraper/internal/domain"
	"go.uber.org/zap"
)

// DBPool abstracts pgxpool.Pool so the sink can be tested with pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS scrape_runs (
    id          BIGSERIAL PRIMARY KEY,
    entry_url   TEXT        NOT NULL,
    status      TEXT        NOT NULL,
    stage       TEXT        NOT NULL DEFAULT '',
    reason      TEXT        NOT NULL DEFAULT '',
    pages       INTEGER     NOT NULL,
    records     INTEGER     NOT NULL,
    warnings    TEXT[]      NOT NULL DEFAULT '{}',
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS products (
    run_id       BIGINT  NOT NULL REFERENCES scrape_runs (id) ON DELETE CASCADE,
    position     INTEGER NOT NULL,
    product_id   TEXT    NOT NULL,
    sku          TEXT    NOT NULL,
    category     TEXT    NOT NULL,
    manufacturer TEXT    NOT NULL,
    price        TEXT    NOT NULL,
    description  TEXT    NOT NULL,
    size         TEXT    NOT NULL,
    warranty     TEXT    NOT NULL,
    item         TEXT    NOT NULL,
    PRIMARY KEY (run_id, position)
);`

const insertRunSQL = `
INSERT INTO scrape_runs (entry_url, status, stage, reason, pages, records, warnings, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`

var productColumns = []string{
	"run_id", "position", "product_id", "sku", "category", "manufacturer",
	"price", "description", "size", "warranty", "item",
}

// PostgresSink stores every run and its products. Products are loaded with COPY.
type PostgresSink struct {
	pool     DBPool
	entryURL string
	log      *zap.Logger
}

// NewPostgresSink verifies the connection and creates the tables if needed.
func NewPostgresSink(ctx context.Context, pool DBPool, entryURL string, logger *zap.Logger) (*PostgresSink, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &PostgresSink{
		pool:     pool,
		entryURL: entryURL,
		log:      logger.Named("postgres"),
	}, nil
}

func (s *PostgresSink) Name() string {
	return "postgres"
}

// Write saves the run summary and its records in one transaction.
func (s *PostgresSink) Write(ctx context.Context, result *domain.ScrapeResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	warnings := result.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	var runID int64
	err = tx.QueryRow(ctx, insertRunSQL,
		s.entryURL,
		string(result.Status.Kind),
		string(result.Status.Stage),
		result.Status.Reason,
		result.Pages,
		len(result.Records),
		warnings,
		result.StartedAt.UTC(),
		result.FinishedAt.UTC(),
	).Scan(&runID)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if len(result.Records) > 0 {
		rows := make([][]any, len(result.Records))
		for i, r := range result.Records {
			rows[i] = []any{
				runID, i + 1, r.ID, r.SKU, r.Category, r.Manufacturer,
				r.Price, r.Description, r.Size, r.Warranty, r.Item,
			}
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"products"}, productColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to copy products: %w", err)
		}
		if n != int64(len(rows)) {
			return fmt.Errorf("copied %d of %d products", n, len(rows))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Debug("run stored", zap.Int64("run_id", runID), zap.Int("products", len(result.Records)))
	return nil
}

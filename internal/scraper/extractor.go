package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/user/catalog-scraper/internal/browser"
	"github.com/user/catalog-scraper/internal/config"
	"github.com/user/catalog-scraper/internal/domain"
	"github.com/user/catalog-scraper/pkg/utils"
	"go.uber.org/zap"
)

// Extractor reads the product table currently on screen.
type Extractor struct {
	tableSelector string
	rowSelector   string
	cellSelector  string
	tableTimeout  time.Duration
	logger        *zap.Logger
}

func NewExtractor(cfg *config.Config, logger *zap.Logger) *Extractor {
	return &Extractor{
		tableSelector: cfg.Selectors.Table,
		rowSelector:   cfg.Selectors.Row,
		cellSelector:  cfg.Selectors.Cell,
		tableTimeout:  cfg.Timeouts.Table,
		logger:        logger.Named("extractor"),
	}
}

// ExtractCurrentPage returns the records of the visible table in row order.
// It returns domain.ErrNoTable when the table does not show up in time.
func (e *Extractor) ExtractCurrentPage(ctx context.Context, d browser.Driver) (domain.PageBatch, error) {
	batch, _, err := e.extract(ctx, d)
	return batch, err
}

// extract also returns the fingerprint of the raw rows it read.
func (e *Extractor) extract(ctx context.Context, d browser.Driver) (domain.PageBatch, string, error) {
	if err := d.WaitFor(ctx, e.tableSelector, e.tableTimeout); err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			return domain.PageBatch{}, "", domain.ErrNoTable
		}
		return domain.PageBatch{}, "", fmt.Errorf("waiting for product table: %w", err)
	}

	rows, err := d.Rows(ctx, e.rowSelector, e.cellSelector)
	if err != nil {
		return domain.PageBatch{}, "", fmt.Errorf("reading product rows: %w", err)
	}

	batch := make(domain.PageBatch, 0, len(rows))
	skipped := 0
	for _, cells := range rows {
		rec, ok := domain.RecordFromCells(cells)
		if !ok {
			skipped++
			continue
		}
		batch = append(batch, rec)
	}
	if skipped > 0 {
		e.logger.Debug("skipped rows without cells", zap.Int("count", skipped))
	}
	return batch, utils.Fingerprint(rows), nil
}

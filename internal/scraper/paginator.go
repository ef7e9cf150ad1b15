package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/user/catalog-scraper/internal/browser"
	"github.com/user/catalog-scraper/internal/config"
	"github.com/user/catalog-scraper/internal/domain"
	"github.com/user/catalog-scraper/pkg/utils"
	"go.uber.org/zap"
)

// stableReads is how many identical consecutive reads count as a finished render.
const stableReads = 3

var (
	errUnchanged = errors.New("table content unchanged")
	errUnsettled = errors.New("table content still changing")
)

// Paginator detects and activates the table's next-page control.
type Paginator struct {
	nextSelector  string
	rowSelector   string
	cellSelector  string
	clickTimeout  time.Duration
	settleTimeout time.Duration
	settleDelay   time.Duration
	logger        *zap.Logger
}

func NewPaginator(cfg *config.Config, logger *zap.Logger) *Paginator {
	return &Paginator{
		nextSelector:  cfg.Selectors.Next,
		rowSelector:   cfg.Selectors.Row,
		cellSelector:  cfg.Selectors.Cell,
		clickTimeout:  cfg.Timeouts.Click,
		settleTimeout: cfg.Pagination.SettleTimeout,
		settleDelay:   cfg.Pagination.SettleDelay,
		logger:        logger.Named("paginator"),
	}
}

// HasNext is true only when the next control exists and is enabled.
func (p *Paginator) HasNext(ctx context.Context, d browser.Driver) (bool, error) {
	present, enabled, err := d.Control(ctx, p.nextSelector)
	if err != nil {
		return false, err
	}
	return present && enabled, nil
}

// Advance clicks the next control and waits for the table to re-render.
// page is the number of the page being left, used for error reporting.
func (p *Paginator) Advance(ctx context.Context, d browser.Driver, page int) error {
	before, err := p.fingerprint(ctx, d)
	if err != nil {
		p.logger.Debug("could not fingerprint table before advancing", zap.Error(err))
	}

	if err := d.Click(ctx, p.nextSelector, p.clickTimeout); err != nil {
		return &domain.PagingError{Page: page, Err: err}
	}

	if p.waitForChange(ctx, d, before) {
		return nil
	}
	if ctx.Err() != nil {
		return &domain.PagingError{Page: page, Err: ctx.Err()}
	}

	p.logger.Debug("table did not settle, falling back to fixed delay",
		zap.Int("page", page), zap.Duration("delay", p.settleDelay))
	if err := d.Sleep(ctx, p.settleDelay); err != nil {
		return &domain.PagingError{Page: page, Err: err}
	}
	return nil
}

// waitForChange polls the table until it shows non-empty content that differs
// from before and reads the same on stableReads consecutive polls. It reports
// false when that does not happen within the settle timeout.
func (p *Paginator) waitForChange(ctx context.Context, d browser.Driver, before string) bool {
	if p.settleTimeout <= 0 {
		return false
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = p.settleTimeout

	var (
		last string
		seen int
	)
	err := backoff.Retry(func() error {
		rows, err := d.Rows(ctx, p.rowSelector, p.cellSelector)
		if err != nil {
			return err
		}
		fp := utils.Fingerprint(rows)
		switch {
		case len(rows) == 0 || fp == before:
			last, seen = "", 0
			return errUnchanged
		case fp != last:
			last, seen = fp, 1
		default:
			seen++
		}
		if seen < stableReads {
			return errUnsettled
		}
		return nil
	}, backoff.WithContext(b, ctx))
	return err == nil
}

func (p *Paginator) fingerprint(ctx context.Context, d browser.Driver) (string, error) {
	rows, err := d.Rows(ctx, p.rowSelector, p.cellSelector)
	if err != nil {
		return "", err
	}
	return utils.Fingerprint(rows), nil
}

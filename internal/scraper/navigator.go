package scraper

import (
	"context"
	"time"

	"github.com/user/catalog-scraper/internal/browser"
	"github.com/user/catalog-scraper/internal/config"
	"github.com/user/catalog-scraper/internal/domain"
	"go.uber.org/zap"
)

// Navigator walks the disclosure menu down to the product table.
type Navigator struct {
	steps        []domain.NavigationStep
	clickTimeout time.Duration
	logger       *zap.Logger
}

func NewNavigator(cfg *config.Config, logger *zap.Logger) *Navigator {
	return &Navigator{
		steps:        cfg.Navigation.Steps,
		clickTimeout: cfg.Timeouts.Click,
		logger:       logger.Named("navigator"),
	}
}

// ReachTarget activates every step once, in order. The first step that does
// not appear within its timeout stops the walk with a *domain.StepUnreachableError.
func (n *Navigator) ReachTarget(ctx context.Context, d browser.Driver) error {
	for i, step := range n.steps {
		sel := step.Selector
		if sel == "" {
			sel = browser.TextSelector(step.Label)
		}
		unreachable := func(err error) error {
			return &domain.StepUnreachableError{Index: i + 1, Label: step.Label, Err: err}
		}

		if err := d.WaitFor(ctx, sel, step.Timeout); err != nil {
			return unreachable(err)
		}
		if err := d.Click(ctx, sel, n.clickTimeout); err != nil {
			return unreachable(err)
		}
		if step.Marker != "" {
			if err := d.WaitFor(ctx, step.Marker, step.Timeout); err != nil {
				return unreachable(err)
			}
		}
		n.logger.Debug("navigation step done", zap.Int("step", i+1), zap.String("label", step.Label))
	}
	return nil
}

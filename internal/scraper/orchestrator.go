package scraper

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/user/catalog-scraper/internal/browser"
	"github.com/user/catalog-scraper/internal/config"
	"github.com/user/catalog-scraper/internal/domain"
	"github.com/user/catalog-scraper/internal/monitoring"
	"github.com/user/catalog-scraper/internal/session"
	"github.com/user/catalog-scraper/pkg/utils"
	"go.uber.org/zap"
)

// State is a phase of a scrape run.
type State int32

const (
	StateInit State = iota
	StateAuthenticating
	StateNavigating
	StateExtracting
	StatePaginating
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateAuthenticating:
		return "authenticating"
	case StateNavigating:
		return "navigating"
	case StateExtracting:
		return "extracting"
	case StatePaginating:
		return "paginating"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Sink receives the result of every run that did not fail outright.
type Sink interface {
	Name() string
	Write(ctx context.Context, result *domain.ScrapeResult) error
}

const snapshotTimeout = 10 * time.Second

// Orchestrator runs the whole scrape: authenticate, navigate, then extract
// and paginate until the table runs out of pages.
type Orchestrator struct {
	cfg       *config.Config
	auth      *Authenticator
	navigator *Navigator
	extractor *Extractor
	paginator *Paginator
	sinks     []Sink
	metrics   *monitoring.Metrics
	logger    *zap.Logger
	now       func() time.Time

	state atomic.Int32
}

func NewOrchestrator(cfg *config.Config, store session.Store, sinks []Sink, m *monitoring.Metrics, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		auth:      NewAuthenticator(cfg, store, logger),
		navigator: NewNavigator(cfg, logger),
		extractor: NewExtractor(cfg, logger),
		paginator: NewPaginator(cfg, logger),
		sinks:     sinks,
		metrics:   m,
		logger:    logger.Named("orchestrator"),
		now:       time.Now,
	}
}

// State returns the phase of the current or most recent run.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// run carries the mutable state of a single Run call.
type run struct {
	o        *Orchestrator
	d        browser.Driver
	result   *domain.ScrapeResult
	degraded bool
	seen     map[string]int
}

// Run performs one scrape with d. It never returns an error: failures are
// reported through the result status. The result is immutable once returned.
func (o *Orchestrator) Run(ctx context.Context, d browser.Driver) *domain.ScrapeResult {
	if o.cfg.Run.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Run.Timeout)
		defer cancel()
	}

	r := &run{
		o:      o,
		d:      d,
		result: &domain.ScrapeResult{Records: []domain.ProductRecord{}, Status: domain.Success(), StartedAt: o.now()},
		seen:   map[string]int{},
	}
	o.transition(StateInit)
	o.logger.Info("scrape run starting", zap.String("entry_url", o.cfg.EntryURL))

	o.transition(StateAuthenticating)
	sess, err := o.auth.EnsureAuthenticated(ctx, d)
	if sess != nil {
		for _, w := range sess.Warnings {
			r.warn(w)
		}
	}
	if err != nil {
		reason := err.Error()
		if errors.Is(err, domain.ErrUnreachable) {
			reason = domain.ErrUnreachable.Error()
		}
		r.result.Status = domain.Failure(reason)
		o.transition(StateFailed)
		o.logger.Error("aborting run", zap.Error(err))
		return r.finish()
	}

	o.transition(StateNavigating)
	if err := o.navigator.ReachTarget(ctx, d); err != nil {
		reason := err.Error()
		var stepErr *domain.StepUnreachableError
		if errors.As(err, &stepErr) {
			reason = fmt.Sprintf("step %d missing", stepErr.Index)
		}
		r.degrade(ctx, domain.StageNavigation, reason, err)
	}

	r.paginate(ctx)
	o.transition(StateDone)

	r.deliver(ctx)
	return r.finish()
}

func (r *run) paginate(ctx context.Context) {
	o := r.o
	for page := 1; ; page++ {
		o.transition(StateExtracting)
		batch, fp, err := o.extractor.extract(ctx, r.d)
		if err != nil {
			r.degrade(ctx, domain.StageExtraction, err.Error(), err)
			return
		}
		if first, ok := r.seen[fp]; ok {
			r.degrade(ctx, domain.StagePagination, "page content repeated",
				fmt.Errorf("page %d repeats page %d: %w", page, first, domain.ErrPaginationStuck))
			return
		}
		r.seen[fp] = page
		r.result.Records = append(r.result.Records, batch...)
		r.result.Pages++
		o.metrics.ObservePage(len(batch))
		o.logger.Info("extracted page", zap.Int("page", page), zap.Int("records", len(batch)))

		o.transition(StatePaginating)
		hasNext, err := o.paginator.HasNext(ctx, r.d)
		if err != nil {
			r.degrade(ctx, domain.StagePagination, err.Error(), err)
			return
		}
		if !hasNext {
			return
		}
		if o.cfg.Pagination.MaxPages > 0 && r.result.Pages >= o.cfg.Pagination.MaxPages {
			r.degrade(ctx, domain.StagePagination, domain.ErrMaxPages.Error(), domain.ErrMaxPages)
			return
		}
		if err := o.paginator.Advance(ctx, r.d, page); err != nil {
			r.degrade(ctx, domain.StagePagination, err.Error(), err)
			return
		}
	}
}

// degrade records a stage failure the run continues past. The first one
// decides the status; later ones only add warnings.
func (r *run) degrade(ctx context.Context, stage domain.Stage, reason string, err error) {
	r.o.metrics.IncDegradation(stage)
	r.o.logger.Warn("proceeding despite stage failure",
		zap.String("stage", string(stage)), zap.String("reason", reason), zap.Error(err))

	if !r.degraded {
		r.degraded = true
		r.result.Status = domain.PartialFailure(stage, reason)
	} else {
		r.warn(Warning{Kind: string(stage), Message: reason})
	}
	r.snapshot(ctx, stage)
}

func (r *run) warn(w Warning) {
	r.result.Warnings = append(r.result.Warnings, w.String())
	r.o.metrics.IncWarning(w.Kind)
}

func (r *run) snapshot(ctx context.Context, stage domain.Stage) {
	dir := r.o.cfg.Debug.SnapshotDir
	if dir == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotTimeout)
	defer cancel()

	html, err := r.d.Snapshot(ctx)
	if err != nil {
		r.o.logger.Warn("could not capture page snapshot", zap.Error(err))
		return
	}
	name := fmt.Sprintf("%s-%s.html", r.o.now().UTC().Format("20060102T150405.000"), stage)
	path := filepath.Join(dir, name)
	if err := utils.WriteFileAtomic(path, []byte(html), 0o644); err != nil {
		r.o.logger.Warn("could not write page snapshot", zap.String("path", path), zap.Error(err))
		return
	}
	r.o.logger.Info("page snapshot saved", zap.String("path", path))
}

// deliver hands the result to every sink. Sinks still run after the run
// deadline so that extracted records are not lost.
func (r *run) deliver(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	r.result.FinishedAt = r.o.now()
	for _, sink := range r.o.sinks {
		if err := sink.Write(ctx, r.result); err != nil {
			r.o.logger.Error("sink failed", zap.String("sink", sink.Name()), zap.Error(err))
			r.warn(Warning{Kind: "sink", Message: fmt.Sprintf("%s: %v", sink.Name(), err)})
			continue
		}
		r.o.logger.Info("records written", zap.String("sink", sink.Name()), zap.Int("records", len(r.result.Records)))
	}
}

func (r *run) finish() *domain.ScrapeResult {
	if r.result.FinishedAt.IsZero() {
		r.result.FinishedAt = r.o.now()
	}
	duration := r.result.FinishedAt.Sub(r.result.StartedAt)
	r.o.metrics.ObserveRun(r.result.Status, duration)
	r.o.logger.Info("scrape run finished",
		zap.Stringer("status", r.result.Status),
		zap.Int("pages", r.result.Pages),
		zap.Int("records", len(r.result.Records)),
		zap.Int("warnings", len(r.result.Warnings)),
		zap.Duration("duration", duration))
	return r.result
}

func (o *Orchestrator) transition(s State) {
	prev := State(o.state.Swap(int32(s)))
	o.logger.Debug("state transition", zap.Stringer("from", prev), zap.Stringer("to", s))
}

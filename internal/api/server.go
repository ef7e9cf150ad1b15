package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/user/catalog-scraper/internal/config"
	"github.com/user/catalog-scraper/internal/domain"
	"github.com/user/catalog-scraper/internal/monitoring"
	"go.uber.org/zap"
)

// ErrBusy is returned by Trigger while a run is in progress.
var ErrBusy = errors.New("a scrape run is already in progress")

// Runner performs one complete scrape.
type Runner interface {
	Run(ctx context.Context) *domain.ScrapeResult
}

// Pinger is a dependency reported by the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes scrape runs over HTTP. At most one run is active at a time.
type Server struct {
	config     config.ServerConfig
	router     http.Handler
	httpServer *http.Server
	runner     Runner
	checks     map[string]Pinger
	metrics    *monitoring.Metrics
	gatherer   prometheus.Gatherer
	logger     *zap.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu        sync.Mutex
	running   bool
	startedAt time.Time
	last      *domain.ScrapeResult
}

func NewServer(cfg config.ServerConfig, runner Runner, checks map[string]Pinger, m *monitoring.Metrics, gatherer prometheus.Gatherer, l *zap.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:   cfg,
		runner:   runner,
		checks:   checks,
		metrics:  m,
		gatherer: gatherer,
		logger:   l.Named("api"),
		baseCtx:  ctx,
		cancel:   cancel,
	}
	s.router = s.setupRouter()
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests, cancels an active run and waits for it to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}
	return err
}

// Trigger starts a run in the background.
func (s *Server) Trigger() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrBusy
	}
	s.running = true
	s.startedAt = time.Now()

	s.metrics.RunInProgress.Set(1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		result := s.runner.Run(s.baseCtx)
		s.metrics.RunInProgress.Set(0)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.running = false
		s.last = result
	}()
	return nil
}

// snapshot returns whether a run is active and the last finished result.
func (s *Server) snapshot() (bool, time.Time, *domain.ScrapeResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running, s.startedAt, s.last
}

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/catalog-scraper/internal/config"
	"github.com/user/catalog-scraper/internal/domain"
	"github.com/user/catalog-scraper/internal/monitoring"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// blockingRunner finishes a run only when release is closed.
type blockingRunner struct {
	started chan struct{}
	release chan struct{}
	result  *domain.ScrapeResult
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		result: &domain.ScrapeResult{
			Records: []domain.ProductRecord{{ID: "1", SKU: "SKU-1"}},
			Status:  domain.Success(),
			Pages:   1,
		},
	}
}

func (r *blockingRunner) Run(ctx context.Context) *domain.ScrapeResult {
	r.started <- struct{}{}
	select {
	case <-r.release:
		return r.result
	case <-ctx.Done():
		return &domain.ScrapeResult{Status: domain.Failure(ctx.Err().Error())}
	}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestServer(t *testing.T, runner Runner, checks map[string]Pinger) *Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := monitoring.NewMetrics(reg)
	m.ObservePage(3)
	s := NewServer(config.ServerConfig{Port: "0"}, runner, checks, m, reg, zaptest.NewLogger(t))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func do(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func waitIdle(t *testing.T, s *Server) {
	t.Helper()
	require.Eventually(t, func() bool {
		running, _, _ := s.snapshot()
		return !running
	}, time.Second, 5*time.Millisecond)
}

func TestScrapeLifecycle(t *testing.T) {
	runner := newBlockingRunner()
	s := newTestServer(t, runner, nil)

	rec := do(t, s, http.MethodGet, "/api/result")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/scrape")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	<-runner.started

	rec = do(t, s, http.MethodPost, "/api/scrape")
	assert.Equal(t, http.StatusConflict, rec.Code, "second trigger while running")

	rec = do(t, s, http.MethodGet, "/api/result")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"running":true`)

	close(runner.release)
	waitIdle(t, s)

	rec = do(t, s, http.MethodGet, "/api/result")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ResultResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Running)
	require.NotNil(t, resp.Result)
	assert.Equal(t, domain.Success(), resp.Result.Status)
	assert.Len(t, resp.Result.Records, 1)
}

func TestShutdownCancelsActiveRun(t *testing.T) {
	runner := newBlockingRunner()
	s := newTestServer(t, runner, nil)

	require.NoError(t, s.Trigger())
	<-runner.started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	_, _, last := s.snapshot()
	require.NotNil(t, last)
	assert.True(t, last.Failed())
}

func TestHealthCheck(t *testing.T) {
	t.Run("all dependencies healthy", func(t *testing.T) {
		s := newTestServer(t, newBlockingRunner(), map[string]Pinger{
			"redis": pingFunc(func(context.Context) error { return nil }),
		})
		rec := do(t, s, http.MethodGet, "/api/health")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"redis":"healthy"}`, rec.Body.String())
	})

	t.Run("failing dependency", func(t *testing.T) {
		s := newTestServer(t, newBlockingRunner(), map[string]Pinger{
			"redis":    pingFunc(func(context.Context) error { return nil }),
			"postgres": pingFunc(func(context.Context) error { return errors.New("connection refused") }),
		})
		rec := do(t, s, http.MethodGet, "/api/health")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.JSONEq(t, `{"redis":"healthy","postgres":"unhealthy"}`, rec.Body.String())
	})
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, newBlockingRunner(), nil)
	rec := do(t, s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "scraper_records_extracted_total 3"))

	do(t, s, http.MethodGet, "/api/result")
	rec = do(t, s, http.MethodGet, "/metrics")
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",path="/api/result",status="404"} 1`)
}

package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/catalog-scraper/internal/browser"
	"github.com/user/catalog-scraper/internal/domain"
	"go.uber.org/zap/zaptest"
)

func TestHasNext(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name              string
		pages             []int
		disableNextOnLast bool
		want              bool
	}{
		{name: "enabled control", pages: []int{10, 10}, want: true},
		{name: "control absent", pages: []int{10}, want: false},
		{name: "control present but disabled", pages: []int{10}, disableNextOnLast: true, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			site := testSite(cfg, tt.pages...)
			site.DisableNextOnLast = tt.disableNextOnLast
			d := atTable(t, cfg, site)

			got, err := NewPaginator(cfg, zaptest.NewLogger(t)).HasNext(ctx, d)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdvance(t *testing.T) {
	ctx := context.Background()

	t.Run("moves to the next page without the fallback delay", func(t *testing.T) {
		cfg := testConfig()
		d := atTable(t, cfg, testSite(cfg, 10, 10))

		require.NoError(t, NewPaginator(cfg, zaptest.NewLogger(t)).Advance(ctx, d, 1))
		assert.Equal(t, 1, d.Page())
		assert.Empty(t, d.Sleeps())
	})

	t.Run("unchanged table falls back to the fixed delay", func(t *testing.T) {
		cfg := testConfig()
		site := testSite(cfg, 10, 10)
		site.StuckPaging = true
		cfg.Pagination.SettleTimeout = 100 * time.Millisecond
		d := atTable(t, cfg, site)

		start := time.Now()
		require.NoError(t, NewPaginator(cfg, zaptest.NewLogger(t)).Advance(ctx, d, 1))
		assert.Less(t, time.Since(start), time.Second, "polling is bounded by the settle timeout")
		assert.Equal(t, 0, d.Page())
		assert.Equal(t, []time.Duration{cfg.Pagination.SettleDelay}, d.Sleeps())
	})

	t.Run("waits out a loading placeholder", func(t *testing.T) {
		cfg := testConfig()
		site := testSite(cfg, 10, 10)
		site.LoadingReads = 2
		d := atTable(t, cfg, site)

		require.NoError(t, NewPaginator(cfg, zaptest.NewLogger(t)).Advance(ctx, d, 1))
		assert.Empty(t, d.Sleeps())

		rows, err := d.Rows(ctx, cfg.Selectors.Row, cfg.Selectors.Cell)
		require.NoError(t, err)
		assert.Equal(t, makePages(10, 10)[1], rows)
	})

	t.Run("cleared table falls back to the fixed delay", func(t *testing.T) {
		cfg := testConfig()
		cfg.Pagination.SettleTimeout = 100 * time.Millisecond
		d := atTable(t, cfg, testSite(cfg, 10, 0))

		require.NoError(t, NewPaginator(cfg, zaptest.NewLogger(t)).Advance(ctx, d, 1))
		assert.Equal(t, 1, d.Page())
		assert.Equal(t, []time.Duration{cfg.Pagination.SettleDelay}, d.Sleeps())
	})

	t.Run("missing control is a paging error", func(t *testing.T) {
		cfg := testConfig()
		d := atTable(t, cfg, testSite(cfg, 10))

		err := NewPaginator(cfg, zaptest.NewLogger(t)).Advance(ctx, d, 1)
		var pagingErr *domain.PagingError
		require.True(t, errors.As(err, &pagingErr), "got %v", err)
		assert.Equal(t, 1, pagingErr.Page)
		assert.ErrorIs(t, err, browser.ErrTimeout)
	})
}

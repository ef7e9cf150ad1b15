package scraper

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/catalog-scraper/internal/domain"
	"go.uber.org/zap/zaptest"
)

func TestExtractCurrentPage(t *testing.T) {
	ctx := context.Background()

	t.Run("empty rows are skipped and short rows padded", func(t *testing.T) {
		cfg := testConfig()
		site := testSite(cfg)
		site.Pages = [][][]string{{
			productRow(1),
			productRow(2),
			{},
			{"3", "SKU-0003", "Tools", "Acme", "$3.99"},
		}}
		d := atTable(t, cfg, site)

		batch, err := NewExtractor(cfg, zaptest.NewLogger(t)).ExtractCurrentPage(ctx, d)
		require.NoError(t, err)

		shouldBe := domain.PageBatch{
			{ID: "1", SKU: "SKU-0001", Category: "Tools", Manufacturer: "Acme", Price: "$1.99",
				Description: "Product number 1", Size: "M", Warranty: "1 year", Item: "Item 1"},
			{ID: "2", SKU: "SKU-0002", Category: "Tools", Manufacturer: "Acme", Price: "$2.99",
				Description: "Product number 2", Size: "M", Warranty: "1 year", Item: "Item 2"},
			{ID: "3", SKU: "SKU-0003", Category: "Tools", Manufacturer: "Acme", Price: "$3.99"},
		}
		if diff := cmp.Diff(shouldBe, batch); diff != "" {
			t.Errorf("ExtractCurrentPage() mismatch (-shouldBe +got):\n%s", diff)
		}
	})

	t.Run("missing table", func(t *testing.T) {
		cfg := testConfig()
		site := testSite(cfg, 3)
		d := signedIn(t, site)

		batch, err := NewExtractor(cfg, zaptest.NewLogger(t)).ExtractCurrentPage(ctx, d)
		assert.ErrorIs(t, err, domain.ErrNoTable)
		assert.Empty(t, batch)
		assert.Zero(t, d.Calls("Rows"))
	})

	t.Run("identical renderings share a fingerprint", func(t *testing.T) {
		cfg := testConfig()
		d := atTable(t, cfg, testSite(cfg, 2, 2))
		e := NewExtractor(cfg, zaptest.NewLogger(t))

		_, first, err := e.extract(ctx, d)
		require.NoError(t, err)
		_, again, err := e.extract(ctx, d)
		require.NoError(t, err)
		assert.Equal(t, first, again)

		require.NoError(t, d.Click(ctx, cfg.Selectors.Next, cfg.Timeouts.Click))
		_, second, err := e.extract(ctx, d)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})
}

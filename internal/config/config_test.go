package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/catalog-scraper/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "entry_url: https://dashboard.example.com\n")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "https://dashboard.example.com", cfg.EntryURL)
	assert.Equal(t, "products.json", cfg.Output.Path)
	assert.Equal(t, "session.json", cfg.Session.Path)
	assert.Equal(t, "file", cfg.Session.Backend)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.LoginSettle)
	assert.Equal(t, 1500*time.Millisecond, cfg.Pagination.SettleDelay)
	assert.Equal(t, "table tbody tr", cfg.Selectors.Row)

	require.Len(t, cfg.Navigation.Steps, 4)
	assert.Equal(t, "Dashboard Tools", cfg.Navigation.Steps[0].Label)
	assert.Equal(t, "View Product Inventory", cfg.Navigation.Steps[3].Label)
	for _, step := range cfg.Navigation.Steps {
		assert.Equal(t, 15*time.Second, step.Timeout, "steps inherit the default step timeout")
	}
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
entry_url: https://dashboard.example.com
credentials:
  username: alice
navigation:
  steps:
    - label: Reports
      timeout: 3s
    - label: Stock
      marker: "#stock-table"
timeouts:
  table: 7s
`)
	t.Setenv("SCRAPER_CREDENTIALS_PASSWORD", "s3cret")
	t.Setenv("SCRAPER_OUTPUT_PATH", "/tmp/out.json")
	t.Setenv("SCRAPER_TIMEOUTS_CLICK", "2s")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, domain.Credentials{Username: "alice", Password: "s3cret"}, cfg.Credentials)
	assert.Equal(t, "/tmp/out.json", cfg.Output.Path)
	assert.Equal(t, 7*time.Second, cfg.Timeouts.Table)
	assert.Equal(t, 2*time.Second, cfg.Timeouts.Click)

	require.Len(t, cfg.Navigation.Steps, 2)
	assert.Equal(t, domain.NavigationStep{Label: "Reports", Timeout: 3 * time.Second}, cfg.Navigation.Steps[0])
	assert.Equal(t, domain.NavigationStep{Label: "Stock", Marker: "#stock-table", Timeout: 15 * time.Second}, cfg.Navigation.Steps[1])
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load(viper.New(), writeConfig(t, "entry_url: https://x.example\n"))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing entry url", func(c *Config) { c.EntryURL = "" }, "entry_url is required"},
		{"no steps", func(c *Config) { c.Navigation.Steps = nil }, "navigation.steps must not be empty"},
		{"blank step", func(c *Config) { c.Navigation.Steps[1] = domain.NavigationStep{} }, "navigation.steps[1]"},
		{"unknown backend", func(c *Config) { c.Session.Backend = "s3" }, `unknown session.backend "s3"`},
		{"zero timeout", func(c *Config) { c.Timeouts.Table = 0 }, "timeouts.table must be positive"},
		{"zero max pages", func(c *Config) { c.Pagination.MaxPages = 0 }, "pagination.max_pages must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootLoadsFlagsOverConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "scraper.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
entry_url: https://from-file.example.com/
output:
  path: from-file.json
`), 0o600))

	rootCmd, c := newRootCmd()
	require.NoError(t, rootCmd.PersistentFlags().Set("config", cfgPath))
	require.NoError(t, rootCmd.PersistentFlags().Set("output", filepath.Join(dir, "flag.json")))

	require.NoError(t, rootCmd.PersistentPreRunE(rootCmd, nil))
	require.NotNil(t, c.cfg)
	assert.Equal(t, "https://from-file.example.com/", c.cfg.EntryURL)
	assert.Equal(t, filepath.Join(dir, "flag.json"), c.cfg.Output.Path)
	assert.True(t, c.cfg.Browser.Headless)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	t.Setenv("SCRAPER_ENTRY_URL", "")

	rootCmd, _ := newRootCmd()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"run", "--config", filepath.Join(t.TempDir(), "missing.yaml")})

	err := rootCmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, errRunFailed)
}

func TestRunRequiresEntryURL(t *testing.T) {
	t.Setenv("SCRAPER_ENTRY_URL", "")
	t.Chdir(t.TempDir())

	rootCmd, _ := newRootCmd()
	rootCmd.SetArgs([]string{"run"})

	err := rootCmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry_url is required")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/user/catalog-scraper/internal/config"
	"github.com/user/catalog-scraper/internal/logging"
	"go.uber.org/zap"
)

// errRunFailed marks a run that ended in Failure. The details are already logged.
var errRunFailed = errors.New("scrape run failed")

// cli holds the state shared by all commands of one invocation.
type cli struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
}

func newRootCmd() (*cobra.Command, *cli) {
	c := &cli{v: viper.New(), logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:           "catalog-scraper",
		Short:         "Extracts the product inventory from an authenticated dashboard.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.v, c.cfgFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			c.cfg = cfg
			c.logger = logging.New(cfg.Logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = c.logger.Sync()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&c.cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	flags.String("entry-url", "", "dashboard entry URL")
	flags.String("output", "", "path of the products JSON file")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.Bool("headless", true, "run the browser without a window")
	_ = c.v.BindPFlag("entry_url", flags.Lookup("entry-url"))
	_ = c.v.BindPFlag("output.path", flags.Lookup("output"))
	_ = c.v.BindPFlag("logger.level", flags.Lookup("log-level"))
	_ = c.v.BindPFlag("browser.headless", flags.Lookup("headless"))

	rootCmd.AddCommand(newRunCmd(c), newServeCmd(c))
	return rootCmd, c
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	rootCmd, c := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errRunFailed) {
			if c.cfg != nil {
				c.logger.Error("Command execution failed", zap.Error(err))
			} else {
				fmt.Fprintln(os.Stderr, err)
			}
		}
		return 1
	}
	return 0
}

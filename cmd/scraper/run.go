package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a single scrape and write the products file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			result := a.Run(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Scraped %d products (%s)\n", len(result.Records), result.Status)
			for _, w := range result.Warnings {
				c.logger.Warn("run warning", zap.String("warning", w))
			}
			if result.Failed() {
				return errRunFailed
			}
			return nil
		},
	}
}

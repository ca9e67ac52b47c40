package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"edge-log-analytics/internal/app"
	"edge-log-analytics/internal/shared/configs"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "analyzer: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "analyzer -f <input> [-o <output>] [-s <window>]",
		Short: "Aggregate access and edge logs into ranked per-window URI reports",
		Long: "analyzer walks a log file or directory (plain, gzip, bzip2 or 7z), aggregates request and " +
			"edge traffic per time window at every configured URI level and writes one ranked report per " +
			"level and window.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configs.LoadConfig(configPath, cmd.Flags())
			if err != nil {
				return err
			}

			application, err := app.New(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(quit)
			go func() {
				select {
				case <-quit:
					cancel()
				case <-ctx.Done():
				}
			}()

			_, err = application.Run(ctx)
			return err
		},
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	flags := root.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML config file (optional)")
	flags.StringP("input", "f", "", "log file or directory to analyze")
	flags.StringP("output", "o", "", "report root directory (default \"./\")")
	flags.StringP("split", "s", "", "window duration, ISO-8601 (P1D, PT1H) or Go (90m) (default \"P1D\")")
	flags.String("format", "", "report format, csv or json (default \"csv\")")
	flags.Int("shards", 0, "number of parallel aggregation shards (default 1)")

	return root
}

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teralabs/queuewatch/internal/client"
)

func watchCmd() *cobra.Command {
	var (
		server   string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the queue snapshot and reprint it on an interval",
		Long: `Poll the live queue snapshot and reprint it until interrupted.

Examples:
  # Refresh every 30 seconds (default)
  queuewatch watch

  # Faster refresh for a specific server
  queuewatch watch --server Kaiator --interval 10s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			target := cfg.Server
			if server != "" {
				target = server
			}
			qc := client.New(cfg.API.BaseURL, target, cfg.API.Timeout(), logger)

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			// First snapshot immediately, then on every tick. A fetch
			// failure is logged and retried on the next tick rather than
			// ending the watch.
			for {
				snap, err := qc.FetchSnapshot(ctx)
				if err != nil {
					logger.Warn("snapshot fetch failed", zap.Error(err))
				} else {
					fmt.Fprint(os.Stdout, "\033[2J\033[H")
					printSnapshot(os.Stdout, target, snap)
				}

				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}

	cmd.Flags().StringVarP(&server, "server", "s", "", "override the configured server name")
	cmd.Flags().DurationVarP(&interval, "interval", "i", 30*time.Second, "refresh interval")
	return cmd
}

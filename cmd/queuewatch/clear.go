package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teralabs/queuewatch/internal/client"
)

func clearCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Wipe the queue state",
		Long: `Delete all live queue counters. Requires the API key to be
configured (QUEUEWATCH_API_KEY or api.key in the config file).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.API.Key == "" {
				return fmt.Errorf("no API key configured; set QUEUEWATCH_API_KEY")
			}

			target := cfg.Server
			if server != "" {
				target = server
			}

			qc := client.New(cfg.API.BaseURL, target, cfg.API.Timeout(), logger)
			if err := qc.Clear(cmd.Context(), cfg.API.Key); err != nil {
				return err
			}

			logger.Info("queue state cleared", zap.String("server", target))
			fmt.Printf("Cleared queue state for %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&server, "server", "s", "", "override the configured server name")
	return cmd
}

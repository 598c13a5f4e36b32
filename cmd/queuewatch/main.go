package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teralabs/queuewatch/internal/config"
)

var (
	cfgFile string
	verbose bool
	logger  *zap.Logger
	cfg     *config.CLIConfig
)

func setupLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	zapConfig := zap.NewProductionConfig()
	zapConfig.DisableStacktrace = true
	return zapConfig.Build()
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "queuewatch",
		Short: "Inspect and manage matchmaking queue telemetry",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logger, err = setupLogger(verbose)
			if err != nil {
				return err
			}
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			cfg, err = config.LoadCLI(cfgFile)
			return err
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", os.Getenv("QUEUEWATCH_CONFIG"), "config file path (or set QUEUEWATCH_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(queueCmd())
	rootCmd.AddCommand(clearCmd())
	rootCmd.AddCommand(watchCmd())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

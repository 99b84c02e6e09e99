package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opscart/k8s-resource-advisor/pkg/config"
	"github.com/opscart/k8s-resource-advisor/pkg/logger"
)

var (
	// Global flags
	configFile string
	logLevel   string
	logFormat  string

	// Input files shared by analyze and collect
	metricsFile string
	healthFile  string

	cfg *config.Config
	log *zap.Logger
)

func main() {
	cfg = config.NewConfig()

	rootCmd := &cobra.Command{
		Use:               "resource-advisor",
		Short:             "Flag unstable services and forecast their CPU and memory needs",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if log != nil {
				_ = log.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console, json")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "metrics.txt", "Metric lines file")
	rootCmd.PersistentFlags().StringVar(&healthFile, "health-file", "restarts.txt", "Health lines file")

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newCollectCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// setup loads the config file and builds the logger before any command runs
func setup(cmd *cobra.Command, _ []string) error {
	if configFile != "" {
		if err := cfg.LoadFile(configFile); err != nil {
			return err
		}
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}

	var err error
	log, err = logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	return nil
}

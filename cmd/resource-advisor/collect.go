package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opscart/k8s-resource-advisor/pkg/datasource"
	"github.com/opscart/k8s-resource-advisor/pkg/scanner"
)

var (
	collectDuration time.Duration
	collectInterval time.Duration
	analyzeAfter    bool
)

func newCollectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Poll a namespace and append metric and health lines to files",
		RunE:  runCollect,
	}

	cmd.Flags().StringVar(&kubeconfig, "kubeconfig", "", "Path to kubeconfig")
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Namespace to poll (default from config)")
	cmd.Flags().DurationVar(&collectDuration, "duration", 0, "How long to collect (default from config)")
	cmd.Flags().DurationVar(&collectInterval, "interval", 0, "Polling interval (default from config)")
	cmd.Flags().BoolVar(&analyzeAfter, "analyze", false, "Analyze the collected files when collection completes")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "Output format for --analyze: text, json, yaml, csv")

	return cmd
}

func scannerOptions() scanner.Options {
	return scanner.Options{
		Namespace:       cfg.Namespace,
		Interval:        cfg.CollectInterval,
		Duration:        cfg.CollectDuration,
		RateLimitCalls:  cfg.RateLimitCalls,
		RateLimitPeriod: cfg.RateLimitPeriod,
		CacheTTL:        cfg.CacheTTL,
	}
}

func runCollect(cmd *cobra.Command, _ []string) error {
	if collectDuration > 0 {
		cfg.CollectDuration = collectDuration
	}
	if collectInterval > 0 {
		cfg.CollectInterval = collectInterval
	}
	if outputFormat != "" {
		cfg.OutputFormat = outputFormat
	}
	if namespace != "" {
		cfg.Namespace = namespace
	}
	if err := cfg.ValidateCollection(); err != nil {
		return err
	}

	collector, err := scanner.New(kubeconfig, scannerOptions(), log)
	if err != nil {
		return err
	}

	metricsOut, err := os.OpenFile(metricsFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open metrics file: %w", err)
	}
	defer metricsOut.Close()

	healthOut, err := os.OpenFile(healthFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open health file: %w", err)
	}
	defer healthOut.Close()

	err = collector.Run(cmd.Context(), metricsOut, healthOut)
	if scanner.IsCanceled(err) {
		log.Warn("collection stopped by user")
		return nil
	}
	if err != nil {
		return fmt.Errorf("collection failed: %w", err)
	}

	if !analyzeAfter {
		return nil
	}

	log.Info("collection complete, running analysis",
		zap.String("metrics_file", metricsFile),
		zap.String("health_file", healthFile))

	lines, err := datasource.NewFileSource(metricsFile, healthFile, log).Collect(cmd.Context())
	if err != nil {
		return err
	}
	return analyzeLines(cmd, lines)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opscart/k8s-resource-advisor/pkg/advisor"
	"github.com/opscart/k8s-resource-advisor/pkg/datasource"
	"github.com/opscart/k8s-resource-advisor/pkg/metrics"
	"github.com/opscart/k8s-resource-advisor/pkg/reporter"
	"github.com/opscart/k8s-resource-advisor/pkg/scanner"
)

var (
	source          string
	kubeconfig      string
	analysisDate    string
	recencyWindow   float64
	workers         int
	outputFormat    string
	metricsTextfile string
	prometheusURL   string
	namespace       string
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze collected lines and print recommendations",
		RunE:  runAnalyze,
	}

	cmd.Flags().StringVar(&source, "source", "file", "Line source: file, prometheus, kubernetes")
	cmd.Flags().StringVar(&kubeconfig, "kubeconfig", "", "Path to kubeconfig (kubernetes source)")
	cmd.Flags().StringVar(&analysisDate, "date", "", "Analysis date (YYYY-MM-DD) combined with metric line times")
	cmd.Flags().Float64Var(&recencyWindow, "recency-window", 0, "Only count restarts younger than this many hours (unset: count all)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Services forecast in parallel")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "Output format: text, json, yaml, csv")
	cmd.Flags().StringVar(&metricsTextfile, "metrics-textfile", "", "Write run metrics to this node_exporter textfile")
	cmd.Flags().StringVar(&prometheusURL, "prometheus-url", "", "Prometheus server URL (prometheus source)")
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Namespace (prometheus and kubernetes sources)")

	return cmd
}

// applyAnalyzeFlags overlays explicitly set flags onto the configuration
func applyAnalyzeFlags(cmd *cobra.Command) {
	if analysisDate != "" {
		cfg.AnalysisDate = analysisDate
	}
	if cmd.Flags().Changed("recency-window") {
		window := recencyWindow
		cfg.RecencyWindowHours = &window
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	if outputFormat != "" {
		cfg.OutputFormat = outputFormat
	}
	if prometheusURL != "" {
		cfg.PrometheusURL = prometheusURL
	}
	if namespace != "" {
		cfg.Namespace = namespace
	}
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	applyAnalyzeFlags(cmd)

	src, err := newSource()
	if err != nil {
		return err
	}
	if source != "file" && !src.IsAvailable(ctx) {
		return fmt.Errorf("%s source is not reachable", src.Name())
	}

	lines, err := src.Collect(ctx)
	if err != nil {
		return fmt.Errorf("failed to collect lines from %s: %w", src.Name(), err)
	}

	return analyzeLines(cmd, lines)
}

// analyzeLines runs the advisor over lines and prints the report
func analyzeLines(cmd *cobra.Command, lines *datasource.Lines) error {
	rep, err := reporter.New(reporter.ReportFormat(cfg.OutputFormat))
	if err != nil {
		return err
	}

	rec := metrics.NewRecorder()
	adv, err := advisor.FromConfig(cfg, rec, log)
	if err != nil {
		return err
	}

	result, err := adv.Analyze(cmd.Context(), &advisor.Input{
		MetricLines: lines.Metrics,
		HealthLines: lines.Health,
	})
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if err := rep.Write(os.Stdout, result); err != nil {
		return err
	}

	if metricsTextfile != "" {
		if err := rec.WriteToTextfile(metricsTextfile); err != nil {
			return err
		}
		log.Info("wrote run metrics", zap.String("path", metricsTextfile))
	}
	return nil
}

func newSource() (datasource.DataSource, error) {
	switch source {
	case "file":
		return datasource.NewFileSource(metricsFile, healthFile, log), nil
	case "prometheus":
		return datasource.NewPrometheusSource(datasource.PrometheusOptions{
			URL:       cfg.PrometheusURL,
			Namespace: cfg.Namespace,
			Window:    cfg.CollectDuration,
			Step:      cfg.CollectInterval,
		}, log)
	case "kubernetes":
		return scanner.New(kubeconfig, scannerOptions(), log)
	default:
		return nil, fmt.Errorf("unknown source %q (expected file, prometheus or kubernetes)", source)
	}
}

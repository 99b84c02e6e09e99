// Package advisor runs the batch analysis: parse lines, flag unstable services,
// and size each of them independently.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/opscart/k8s-resource-advisor/pkg/analyzer"
	"github.com/opscart/k8s-resource-advisor/pkg/config"
	"github.com/opscart/k8s-resource-advisor/pkg/forecast"
	"github.com/opscart/k8s-resource-advisor/pkg/logger"
	"github.com/opscart/k8s-resource-advisor/pkg/metrics"
	"github.com/opscart/k8s-resource-advisor/pkg/models"
	"github.com/opscart/k8s-resource-advisor/pkg/parser"
	"github.com/opscart/k8s-resource-advisor/pkg/recommender"
	"github.com/opscart/k8s-resource-advisor/pkg/units"
)

// ErrNilInput is returned when Analyze is called without input
var ErrNilInput = errors.New("input is required")

const (
	defaultWorkers    = 4
	defaultFitTimeout = 30 * time.Second
)

// Input is the raw text of one run
type Input struct {
	MetricLines []string
	HealthLines []string
}

// Result is the outcome of one run
type Result struct {
	RunID        string                                   `json:"run_id" yaml:"run_id"`
	AnalysisDate time.Time                                `json:"analysis_date" yaml:"analysis_date"`
	Unstable     []string                                 `json:"unstable_services" yaml:"unstable_services"`
	Services     map[string]*models.ServiceRecommendation `json:"recommendations" yaml:"recommendations"`
	Failures     []models.ServiceFailure                  `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// ServiceNames returns the recommended services in name order
func (r *Result) ServiceNames() []string {
	names := make([]string, 0, len(r.Services))
	for name := range r.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Options configures an Advisor
type Options struct {
	Date               time.Time
	RecencyWindowHours *float64
	Workers            int
	FitTimeout         time.Duration
	Policy             recommender.Policy
	Engine             forecast.Engine
	Metrics            *metrics.Recorder
}

// Advisor runs analyses. It holds no per-run state and can be reused.
type Advisor struct {
	opts Options
	log  *zap.Logger
}

// New creates an advisor, filling unset options with defaults
func New(opts Options, log *zap.Logger) *Advisor {
	if opts.Date.IsZero() {
		opts.Date = time.Now()
	}
	if opts.Workers < 1 {
		opts.Workers = defaultWorkers
	}
	if opts.FitTimeout <= 0 {
		opts.FitTimeout = defaultFitTimeout
	}
	if opts.Policy.BufferMultiplier == 0 {
		opts.Policy = recommender.DefaultPolicy()
	}
	if opts.Engine == nil {
		opts.Engine = forecast.NewLinearEngine(forecast.DefaultIntervalWidth, true)
	}
	return &Advisor{opts: opts, log: logger.OrNop(log)}
}

// FromConfig builds an advisor from validated configuration
func FromConfig(cfg *config.Config, rec *metrics.Recorder, log *zap.Logger) (*Advisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	date, err := cfg.Date()
	if err != nil {
		return nil, err
	}

	return New(Options{
		Date:               date,
		RecencyWindowHours: cfg.RecencyWindowHours,
		Workers:            cfg.Workers,
		FitTimeout:         cfg.FitTimeout,
		Policy: recommender.Policy{
			BufferMultiplier: cfg.BufferMultiplier,
			Horizon: forecast.Horizon{
				Steps: cfg.ForecastSteps,
				Step:  cfg.ForecastStep,
			},
		},
		Engine:  forecast.NewLinearEngine(cfg.IntervalWidth, cfg.Seasonality),
		Metrics: rec,
	}, log), nil
}

// Analyze runs one batch. Per-service failures are reported in the result,
// never returned as an error.
func (a *Advisor) Analyze(ctx context.Context, in *Input) (*Result, error) {
	if in == nil {
		return nil, ErrNilInput
	}

	runID := uuid.NewString()
	log := logger.ForRun(a.log, runID)
	start := time.Now()

	p := parser.New(a.opts.Date, log)
	samples := p.ParseMetricLines(in.MetricLines)
	events := p.ParseHealthLines(in.HealthLines)
	a.opts.Metrics.ObserveLines(metrics.StreamMetrics, len(in.MetricLines), len(samples))
	a.opts.Metrics.ObserveLines(metrics.StreamHealth, len(in.HealthLines), len(events))

	unstable := analyzer.NewHealthEvaluator(a.opts.RecencyWindowHours, log).Evaluate(events)
	a.opts.Metrics.SetUnstable(unstable.Len())

	result := &Result{
		RunID:        runID,
		AnalysisDate: p.Date(),
		Unstable:     sets.List(unstable),
		Services:     make(map[string]*models.ServiceRecommendation),
	}

	if unstable.Len() == 0 {
		log.Info("no unstable services found")
		return result, nil
	}

	groups := analyzer.NewAggregator(log).GroupByService(samples, unstable)
	a.recommendAll(ctx, groups, result, log)

	log.Info("analysis complete",
		zap.Int("unstable", unstable.Len()),
		zap.Int("recommended", len(result.Services)),
		zap.Int("failed", len(result.Failures)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

type outcome struct {
	service string
	rec     *models.ServiceRecommendation
	err     error
}

// recommendAll sizes every grouped service on a bounded pool
func (a *Advisor) recommendAll(ctx context.Context, groups map[string][]models.MetricSample, result *Result, log *zap.Logger) {
	services := make([]string, 0, len(groups))
	for service := range groups {
		services = append(services, service)
	}
	sort.Strings(services)

	rec := recommender.New(a.opts.Engine, a.opts.Policy, units.NewNormalizer(log), log)
	outcomes := make([]outcome, len(services))

	var group errgroup.Group
	group.SetLimit(a.opts.Workers)

	for idx, service := range services {
		idx, service := idx, service
		group.Go(func() error {
			outcomes[idx] = a.recommendOne(ctx, rec, service, groups[service])
			return nil
		})
	}
	_ = group.Wait()

	for _, o := range outcomes {
		if o.err != nil {
			log.Warn("skipping service, forecast failed",
				zap.String("service", o.service),
				zap.Error(o.err),
			)
			result.Failures = append(result.Failures, models.ServiceFailure{
				Service: o.service,
				Reason:  o.err.Error(),
			})
			continue
		}
		result.Services[o.service] = o.rec
		a.opts.Metrics.ObserveRecommendation(o.service, string(models.ResourceCPU), o.rec.CPU.Recommended)
		a.opts.Metrics.ObserveRecommendation(o.service, string(models.ResourceMemory), o.rec.Memory.Recommended)
	}
}

func (a *Advisor) recommendOne(ctx context.Context, rec *recommender.Recommender, service string, samples []models.MetricSample) (o outcome) {
	o.service = service
	started := time.Now()
	defer func() {
		a.opts.Metrics.ObserveFit(time.Since(started), o.err)
	}()

	defer func() {
		if r := recover(); r != nil {
			o.rec, o.err = nil, fmt.Errorf("forecast panicked: %v", r)
		}
	}()

	fitCtx, cancel := context.WithTimeout(ctx, a.opts.FitTimeout)
	defer cancel()

	o.rec, o.err = rec.RecommendService(fitCtx, service, samples)
	if o.err == nil && fitCtx.Err() != nil {
		o.rec, o.err = nil, fmt.Errorf("failed to size %s: %w", service, fitCtx.Err())
	}
	return o
}

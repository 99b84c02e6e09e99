package recommender

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/opscart/k8s-resource-advisor/pkg/analyzer"
	"github.com/opscart/k8s-resource-advisor/pkg/forecast"
	"github.com/opscart/k8s-resource-advisor/pkg/logger"
	"github.com/opscart/k8s-resource-advisor/pkg/models"
	"github.com/opscart/k8s-resource-advisor/pkg/units"
)

// DefaultBufferMultiplier is the safety margin applied to the forecast peak
const DefaultBufferMultiplier = 1.2

// Policy controls how forecasts become recommendations
type Policy struct {
	BufferMultiplier float64
	Horizon          forecast.Horizon
}

// DefaultPolicy returns the default buffer with a 30 step horizon at the sampling cadence
func DefaultPolicy() Policy {
	return Policy{
		BufferMultiplier: DefaultBufferMultiplier,
		Horizon:          forecast.Horizon{Steps: 30},
	}
}

// Recommender turns metric samples of a service into sizing recommendations
type Recommender struct {
	engine     forecast.Engine
	policy     Policy
	normalizer *units.Normalizer
	log        *zap.Logger
}

// New creates a recommender. A buffer below 1 is replaced by the default.
func New(engine forecast.Engine, policy Policy, normalizer *units.Normalizer, log *zap.Logger) *Recommender {
	if policy.BufferMultiplier < 1 {
		policy.BufferMultiplier = DefaultBufferMultiplier
	}
	log = logger.OrNop(log)
	if normalizer == nil {
		normalizer = units.NewNormalizer(log)
	}
	return &Recommender{
		engine:     engine,
		policy:     policy,
		normalizer: normalizer,
		log:        log,
	}
}

// Policy returns the active policy
func (r *Recommender) Policy() Policy {
	return r.policy
}

// Recommend forecasts one resource of a service and sizes it
func (r *Recommender) Recommend(ctx context.Context, service string, resource models.ResourceType, samples []models.MetricSample) (*models.Recommendation, error) {
	series := analyzer.BuildSeries(service, resource, samples, r.normalizer)

	fc, err := r.engine.Fit(ctx, series, r.policy.Horizon)
	if err != nil {
		return nil, fmt.Errorf("failed to forecast %s for %s: %w", resource, service, err)
	}

	current := currentUsage(series)
	recommended := math.Max(0, fc.MaxUpper()) * r.policy.BufferMultiplier

	r.log.Debug("sized resource",
		zap.String("service", service),
		zap.String("resource", string(resource)),
		zap.Int("points", len(series.Points)),
		zap.Float64("current", current),
		zap.Float64("recommended", recommended),
	)

	return &models.Recommendation{
		Service:               service,
		ResourceType:          resource,
		CurrentUsage:          current,
		Recommended:           recommended,
		CurrentUsageFormatted: units.Format(resource, current),
		RecommendedFormatted:  units.Format(resource, recommended),
		ForecastPoints:        fc.Points,
		Factors: models.Factors{
			Trend:            fc.TrendMean,
			HasDailyPattern:  fc.HasDailyPattern,
			HasWeeklyPattern: fc.HasWeeklyPattern,
			BufferMultiplier: r.policy.BufferMultiplier,
		},
	}, nil
}

// RecommendService sizes every resource type of a service
func (r *Recommender) RecommendService(ctx context.Context, service string, samples []models.MetricSample) (*models.ServiceRecommendation, error) {
	result := &models.ServiceRecommendation{
		Service:     service,
		SampleCount: len(samples),
	}

	for _, resource := range models.Resources {
		rec, err := r.Recommend(ctx, service, resource, samples)
		if err != nil {
			return nil, err
		}
		if resource == models.ResourceCPU {
			result.CPU = rec
		} else {
			result.Memory = rec
		}
	}

	return result, nil
}

func currentUsage(series models.Series) float64 {
	if len(series.Points) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range series.Points {
		sum += p.Value
	}
	return sum / float64(len(series.Points))
}

package analyzer

import (
	"sort"

	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/opscart/k8s-resource-advisor/pkg/logger"
	"github.com/opscart/k8s-resource-advisor/pkg/models"
	"github.com/opscart/k8s-resource-advisor/pkg/units"
)

// Aggregator groups metric samples into per-service series
type Aggregator struct {
	log *zap.Logger
}

// NewAggregator creates an aggregator
func NewAggregator(log *zap.Logger) *Aggregator {
	return &Aggregator{log: logger.OrNop(log)}
}

// GroupByService buckets samples by resolved service, keeping only unstable services.
// Unstable services without any samples are dropped.
func (a *Aggregator) GroupByService(samples []models.MetricSample, unstable sets.Set[string]) map[string][]models.MetricSample {
	groups := make(map[string][]models.MetricSample, unstable.Len())

	for _, sample := range samples {
		service := ResolveService(sample.InstanceName)
		if !unstable.Has(service) {
			continue
		}
		groups[service] = append(groups[service], sample)
	}

	for _, service := range sets.List(unstable) {
		if _, ok := groups[service]; !ok {
			a.log.Warn("no metric samples for unstable service, skipping",
				zap.String("service", service))
		}
	}

	return groups
}

// BuildSeries converts samples of one service into a normalized series for one resource
func BuildSeries(service string, resource models.ResourceType, samples []models.MetricSample, normalizer *units.Normalizer) models.Series {
	ordered := make([]models.MetricSample, len(samples))
	copy(ordered, samples)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	points := make([]models.Point, len(ordered))
	for i, sample := range ordered {
		quantity := sample.CPUQuantity
		if resource == models.ResourceMemory {
			quantity = sample.MemoryQuantity
		}
		points[i] = models.Point{
			Timestamp: sample.Timestamp,
			Value:     normalizer.Normalize(resource, quantity),
		}
	}

	return models.Series{
		Service:  service,
		Resource: resource,
		Points:   points,
	}
}

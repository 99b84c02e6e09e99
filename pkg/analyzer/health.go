package analyzer

import (
	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/opscart/k8s-resource-advisor/pkg/logger"
	"github.com/opscart/k8s-resource-advisor/pkg/models"
	"github.com/opscart/k8s-resource-advisor/pkg/parser"
)

// CrashLoopBackOff is the waiting reason that flags a service even without restarts
const CrashLoopBackOff = "CrashLoopBackOff"

// HealthEvaluator decides which services are unstable
type HealthEvaluator struct {
	recencyWindowHours *float64
	log                *zap.Logger
}

// NewHealthEvaluator creates an evaluator. A nil window counts every unhealthy event;
// otherwise only events whose age is within the window are counted.
func NewHealthEvaluator(recencyWindowHours *float64, log *zap.Logger) *HealthEvaluator {
	return &HealthEvaluator{
		recencyWindowHours: recencyWindowHours,
		log:                logger.OrNop(log),
	}
}

// IsUnhealthy reports whether an event meets the instability predicate, ignoring recency
func IsUnhealthy(event models.HealthEvent) bool {
	return event.RestartCount > 0 || event.StatusPhase == CrashLoopBackOff
}

// Evaluate returns the resolved names of every unstable service
func (e *HealthEvaluator) Evaluate(events []models.HealthEvent) sets.Set[string] {
	unstable := sets.New[string]()

	for _, event := range events {
		if !IsUnhealthy(event) {
			continue
		}
		if !e.isRecent(event) {
			continue
		}
		unstable.Insert(ResolveService(event.InstanceName))
	}

	e.log.Info("evaluated health events",
		zap.Int("events", len(events)),
		zap.Int("unstable_services", unstable.Len()),
	)
	return unstable
}

func (e *HealthEvaluator) isRecent(event models.HealthEvent) bool {
	if e.recencyWindowHours == nil {
		return true
	}

	hours, err := parser.ParseAge(event.Age)
	if err != nil {
		e.log.Warn("ignoring health event with unparsable age",
			zap.String("instance", event.InstanceName),
			zap.String("age", event.Age),
			zap.Error(err),
		)
		return false
	}
	return hours <= *e.recencyWindowHours
}

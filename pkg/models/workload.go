package models

import (
	"errors"
	"time"
)

var (
	errMissingInstance = errors.New("instance name is required")
	errMissingQuantity = errors.New("cpu and memory quantities are required")
	errMissingTime     = errors.New("timestamp is required")
	errMissingStatus   = errors.New("status phase is required")
	errNegativeRestart = errors.New("restart count must be >= 0")
)

// MetricSample is one resource usage observation of a workload instance
type MetricSample struct {
	InstanceName   string
	CPUQuantity    string // raw quantity, e.g. "250m"
	MemoryQuantity string // raw quantity, e.g. "512Mi"
	Timestamp      time.Time
}

// NewMetricSample validates field presence and returns a sample
func NewMetricSample(instance, cpu, memory string, ts time.Time) (MetricSample, error) {
	if instance == "" {
		return MetricSample{}, errMissingInstance
	}
	if cpu == "" || memory == "" {
		return MetricSample{}, errMissingQuantity
	}
	if ts.IsZero() {
		return MetricSample{}, errMissingTime
	}
	return MetricSample{
		InstanceName:   instance,
		CPUQuantity:    cpu,
		MemoryQuantity: memory,
		Timestamp:      ts,
	}, nil
}

// HealthEvent is one status snapshot of a workload instance
type HealthEvent struct {
	InstanceName string
	StatusPhase  string
	RestartCount int
	Age          string // e.g. "18h" or "(2h15m ago)"
}

// NewHealthEvent validates field presence and returns an event
func NewHealthEvent(instance, status string, restarts int, age string) (HealthEvent, error) {
	if instance == "" {
		return HealthEvent{}, errMissingInstance
	}
	if status == "" {
		return HealthEvent{}, errMissingStatus
	}
	if restarts < 0 {
		return HealthEvent{}, errNegativeRestart
	}
	return HealthEvent{
		InstanceName: instance,
		StatusPhase:  status,
		RestartCount: restarts,
		Age:          age,
	}, nil
}

// Package units converts orchestration quantity strings into the canonical
// units used by every series: millicores for CPU and Mi (1024*1024 bytes)
// for memory. Conversion back to display strings happens only in Format*.
package units

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/opscart/k8s-resource-advisor/pkg/models"
)

const (
	// CPUUnit is the canonical CPU unit
	CPUUnit = "millicores"
	// MemoryUnit is the canonical memory unit
	MemoryUnit = "Mi"

	bytesPerMi = 1024 * 1024
)

var (
	cpuToken    = regexp.MustCompile(`(\d+(?:\.\d+)?)([num]?)`)
	memoryToken = regexp.MustCompile(`(\d+(?:\.\d+)?)([A-Za-z]*)`)

	binarySuffixes = map[string]bool{"Ki": true, "Mi": true, "Gi": true, "Ti": true}
)

// Normalizer parses quantity strings. It never fails: unparsable input
// yields 0 and a warning.
type Normalizer struct {
	log *zap.Logger
}

// NewNormalizer creates a normalizer that reports bad input to log
func NewNormalizer(log *zap.Logger) *Normalizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Normalizer{log: log}
}

// Normalize dispatches on the resource type
func (n *Normalizer) Normalize(rt models.ResourceType, quantity string) float64 {
	if rt == models.ResourceCPU {
		return n.CPU(quantity)
	}
	return n.Memory(quantity)
}

// CPU returns the quantity in millicores. Unsuffixed numbers are cores.
// Concatenated values such as "120m95m" resolve to the first token.
func (n *Normalizer) CPU(quantity string) float64 {
	m := cpuToken.FindStringSubmatch(quantity)
	if m == nil {
		n.log.Warn("unparsable cpu quantity, using 0", zap.String("quantity", quantity))
		return 0
	}

	q, err := resource.ParseQuantity(m[1] + m[2])
	if err != nil {
		n.log.Warn("unparsable cpu quantity, using 0", zap.String("quantity", quantity), zap.Error(err))
		return 0
	}
	return n.finite(q.AsApproximateFloat64()*1000, quantity)
}

// Memory returns the quantity in Mi. An unsuffixed number is already Mi;
// an unknown suffix is ignored (multiplier 1).
func (n *Normalizer) Memory(quantity string) float64 {
	m := memoryToken.FindStringSubmatch(quantity)
	if m == nil {
		n.log.Warn("unparsable memory quantity, using 0", zap.String("quantity", quantity))
		return 0
	}

	number, suffix := m[1], m[2]
	if binarySuffixes[suffix] {
		q, err := resource.ParseQuantity(number + suffix)
		if err == nil {
			return n.finite(q.AsApproximateFloat64()/bytesPerMi, quantity)
		}
		n.log.Warn("failed to parse memory quantity, ignoring unit", zap.String("quantity", quantity), zap.Error(err))
	} else if suffix != "" {
		n.log.Warn("unknown memory unit, treating as Mi",
			zap.String("quantity", quantity), zap.String("unit", suffix))
	}

	v, err := strconv.ParseFloat(number, 64)
	if err != nil {
		n.log.Warn("unparsable memory quantity, using 0", zap.String("quantity", quantity), zap.Error(err))
		return 0
	}
	return n.finite(v, quantity)
}

func (n *Normalizer) finite(v float64, quantity string) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		n.log.Warn("quantity out of range, using 0", zap.String("quantity", quantity))
		return 0
	}
	return v
}

// FormatCPU renders millicores as an integer "<n>m" string, floored at 0
func FormatCPU(millicores float64) string {
	return fmt.Sprintf("%dm", displayInt(millicores))
}

// FormatMemory renders Mi as an integer "<n>Mi" string, floored at 0
func FormatMemory(mi float64) string {
	return fmt.Sprintf("%dMi", displayInt(mi))
}

// Format dispatches on the resource type
func Format(rt models.ResourceType, value float64) string {
	if rt == models.ResourceCPU {
		return FormatCPU(value)
	}
	return FormatMemory(value)
}

func displayInt(v float64) int64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

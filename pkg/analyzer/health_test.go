package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/opscart/k8s-resource-advisor/pkg/models"
)

func event(instance, status string, restarts int, age string) models.HealthEvent {
	return models.HealthEvent{
		InstanceName: instance,
		StatusPhase:  status,
		RestartCount: restarts,
		Age:          age,
	}
}

func TestIsUnhealthy(t *testing.T) {
	tests := []struct {
		name     string
		event    models.HealthEvent
		expected bool
	}{
		{"running without restarts", event("a", "Running", 0, "18h"), false},
		{"restarts while running", event("a", "Running", 3, "18h"), true},
		{"restarts while pending", event("a", "Pending", 3, "18h"), true},
		{"crash loop without restarts", event("a", CrashLoopBackOff, 0, "1m"), true},
		{"completed", event("a", "Completed", 0, "2d"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsUnhealthy(tt.event))
		})
	}
}

func TestEvaluateWithoutRecencyGate(t *testing.T) {
	e := NewHealthEvaluator(nil, zaptest.NewLogger(t))

	unstable := e.Evaluate([]models.HealthEvent{
		event("checkout-7d9f8c6b5-xk2p9", "Running", 2, "(5m ago)"),
		event("checkout-7d9f8c6b5-qq7rt", "Running", 1, "(30h ago)"),
		event("cart-5f6d7c8b9a-ab12c", CrashLoopBackOff, 0, "3d"),
		event("search-5f6d7c8b9a-ab12c", "Running", 0, "3d"),
		event("standalone-job", "Error", 4, "old"),
	})

	assert.Equal(t, sets.New("checkout", "cart", "standalone-job"), unstable)
}

func TestEvaluateWithRecencyGate(t *testing.T) {
	window := 2.0
	core, logs := observer.New(zapcore.WarnLevel)
	e := NewHealthEvaluator(&window, zap.New(core))

	unstable := e.Evaluate([]models.HealthEvent{
		event("checkout-7d9f8c6b5-xk2p9", "Running", 2, "(45m ago)"),
		event("cart-5f6d7c8b9a-ab12c", "Running", 1, "(2h15m ago)"),
		event("search-5f6d7c8b9a-ab12c", CrashLoopBackOff, 0, "2h"),
		event("billing-5f6d7c8b9a-ab12c", "Running", 5, "yesterday"),
	})

	assert.Equal(t, sets.New("checkout", "search"), unstable)
	assert.Equal(t, 1, logs.FilterMessage("ignoring health event with unparsable age").Len())
}

func TestEvaluateEmpty(t *testing.T) {
	e := NewHealthEvaluator(nil, nil)
	assert.Equal(t, 0, e.Evaluate(nil).Len())
}
